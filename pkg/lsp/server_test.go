package lsp

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
)

var diagnosticsTests = []struct {
	name    string
	content string
	want    []lsp.Diagnostic
}{
	{
		name:    "no error",
		content: "message(hello)\n",
		want:    []lsp.Diagnostic{},
	},
	{
		name:    "missing separator",
		content: `message("a""b")`,
		want: []lsp.Diagnostic{{
			Range: lsp.Range{
				Start: lsp.Position{Line: 0, Character: 11},
				End:   lsp.Position{Line: 0, Character: 14}},
			Severity: lsp.Warning,
			Source:   "parse",
			Message:  "Syntax Warning in cmake code at column 12\nArgument not separated from preceding token by whitespace.",
		}},
	},
	{
		name:    "bad nesting",
		content: "if(x)\nendwhile()\n",
		want: []lsp.Diagnostic{{
			Range: lsp.Range{
				Start: lsp.Position{Line: 0, Character: 0},
				End:   lsp.Position{Line: 0, Character: 5}},
			Severity: lsp.Error,
			Source:   "parse",
			Message:  "Flow control statements are not properly nested.",
		}},
	},
}

func TestDiagnostics(t *testing.T) {
	for _, test := range diagnosticsTests {
		t.Run(test.name, func(t *testing.T) {
			got := diagnostics("file:///CMakeLists.txt", test.content)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("diagnostics (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiagnostics_SyntaxError(t *testing.T) {
	got := diagnostics("file:///CMakeLists.txt", "message(\n")
	if len(got) != 1 || got[0].Severity != lsp.Error ||
		!strings.Contains(got[0].Message, "Function missing ending") {
		t.Errorf("got %+v", got)
	}
}

const document = "function(helper_fn)\nendfunction()\nmacro(my_macro)\nendmacro()\nhel\nmessage(x)\n"

func openDocument(s *server) {
	s.content["file:///a.cmake"] = document
}

func call(t *testing.T, m method, params any) any {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}
	result, err := m(context.Background(), nil, raw)
	if err != nil {
		t.Fatalf("got error %v", err)
	}
	return result
}

func TestCompletion(t *testing.T) {
	s := newServer()
	openDocument(s)
	result := call(t, s.completion, lsp.CompletionParams{TextDocumentPositionParams: lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: "file:///a.cmake"},
		Position:     lsp.Position{Line: 4, Character: 3},
	}})
	items := result.([]lsp.CompletionItem)
	if len(items) == 0 {
		t.Fatal("got no completion items")
	}
	// The closest match comes first.
	if items[0].Label != "helper_fn" {
		t.Errorf("got first item %q, want helper_fn", items[0].Label)
	}
	if items[0].Kind != lsp.CIKFunction || items[0].Detail != "Function defined at line 1" {
		t.Errorf("got first item %+v", items[0])
	}
	wantRange := lsp.Range{Start: lsp.Position{Line: 4, Character: 0}, End: lsp.Position{Line: 4, Character: 3}}
	if diff := cmp.Diff(wantRange, items[0].TextEdit.Range); diff != "" {
		t.Errorf("range (-want +got):\n%s", diff)
	}
	for _, item := range items {
		if !strings.Contains(item.Label, "h") {
			t.Errorf("item %q doesn't match seed", item.Label)
		}
	}
}

func TestCompletion_NotAtCommand(t *testing.T) {
	s := newServer()
	openDocument(s)
	result := call(t, s.completion, lsp.CompletionParams{TextDocumentPositionParams: lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: "file:///a.cmake"},
		Position:     lsp.Position{Line: 5, Character: 9},
	}})
	if items := result.([]lsp.CompletionItem); len(items) != 0 {
		t.Errorf("got %d items, want none", len(items))
	}
}

func hoverText(t *testing.T, s *server, pos lsp.Position) string {
	t.Helper()
	result := call(t, s.hover, lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: "file:///a.cmake"},
		Position:     pos,
	})
	h := result.(lsp.Hover)
	if len(h.Contents) == 0 {
		return ""
	}
	return h.Contents[0].Value
}

func TestHover(t *testing.T) {
	s := newServer()
	openDocument(s)
	tests := []struct {
		pos  lsp.Position
		want string
	}{
		{lsp.Position{Line: 5, Character: 2}, "Built-in command `message`"},
		{lsp.Position{Line: 2, Character: 8}, "Macro `my_macro` defined at line 3"},
		{lsp.Position{Line: 0, Character: 10}, "Function `helper_fn` defined at line 1"},
		{lsp.Position{Line: 4, Character: 1}, ""},
	}
	for _, test := range tests {
		if got := hoverText(t, s, test.pos); got != test.want {
			t.Errorf("hover at %v: got %q, want %q", test.pos, got, test.want)
		}
	}
}

func TestInvalidParams(t *testing.T) {
	s := newServer()
	for _, m := range []method{s.didOpen, s.didChange, s.hover, s.completion} {
		if _, err := m(context.Background(), nil, json.RawMessage("[")); err != errInvalidParams {
			t.Errorf("got error %v, want errInvalidParams", err)
		}
	}
}

type collector chan *jsonrpc2.Request

func (c collector) Handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) {
	c <- req
}

func TestServer_PublishesDiagnostics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverSide, clientSide := net.Pipe()
	jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(serverSide, jsonrpc2.VSCodeObjectCodec{}), handler(newServer()))
	notifications := make(collector, 1)
	client := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}), notifications)
	defer client.Close()

	var init lsp.InitializeResult
	if err := client.Call(ctx, "initialize", lsp.InitializeParams{}, &init); err != nil {
		t.Fatal(err)
	}
	if !init.Capabilities.HoverProvider {
		t.Errorf("hover not advertised")
	}

	err := client.Notify(ctx, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: "file:///b.cmake", Text: "endif()\n"}})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case req := <-notifications:
		if req.Method != "textDocument/publishDiagnostics" {
			t.Fatalf("got method %q", req.Method)
		}
		var params lsp.PublishDiagnosticsParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			t.Fatal(err)
		}
		if len(params.Diagnostics) != 1 || params.URI != "file:///b.cmake" {
			t.Errorf("got %+v", params)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for diagnostics")
	}

	var result any
	err = client.Call(ctx, "no/such/method", nil, &result)
	if e, ok := err.(*jsonrpc2.Error); !ok || e.Code != jsonrpc2.CodeMethodNotFound {
		t.Errorf("got error %v, want method not found", err)
	}
}

func TestPositionConversion(t *testing.T) {
	s := "ab\ncd\n😀x"
	tests := []struct {
		idx int
		pos lsp.Position
	}{
		{0, lsp.Position{Line: 0, Character: 0}},
		{3, lsp.Position{Line: 1, Character: 0}},
		{6, lsp.Position{Line: 2, Character: 0}},
		{10, lsp.Position{Line: 2, Character: 2}},
	}
	for _, test := range tests {
		if got := lspPositionFromIdx(s, test.idx); got != test.pos {
			t.Errorf("lspPositionFromIdx(%d) = %v, want %v", test.idx, got, test.pos)
		}
		if got := lspPositionToIdx(s, test.pos); got != test.idx {
			t.Errorf("lspPositionToIdx(%v) = %d, want %d", test.pos, got, test.idx)
		}
	}
}
