package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/eval"
	"src.cmk.sh/pkg/logutil"
	"src.cmk.sh/pkg/parse"
)

var logger = logutil.GetLogger("[lsp] ")

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

type server struct {
	builtins map[string]bool
	names    []string
	content  map[lsp.DocumentURI]string
}

func newServer() *server {
	names := eval.New(eval.Config{}).CommandNames()
	builtins := make(map[string]bool, len(names))
	for _, name := range names {
		builtins[name] = true
	}
	return &server{builtins, names, make(map[lsp.DocumentURI]string)}
}

func handler(s *server) jsonrpc2.Handler {
	return routingHandler(map[string]method{
		"initialize":              s.initialize,
		"textDocument/didOpen":    s.didOpen,
		"textDocument/didChange":  s.didChange,
		"textDocument/didClose":   s.didClose,
		"textDocument/hover":      s.hover,
		"textDocument/completion": s.completion,

		// Required by the protocol.
		"initialized": noop,
		"shutdown":    noop,
		"exit":        exit,
		// Called by clients even when server doesn't advertise support:
		// https://microsoft.github.io/language-server-protocol/specification#workspace_didChangeWatchedFiles
		"workspace/didChangeWatchedFiles": noop,
	})
}

type method func(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (any, error)

func noop(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return nil, nil
}

func exit(_ context.Context, conn jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	go conn.Close()
	return nil, nil
}

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			logger.Println("unknown method", req.Method)
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, conn, params)
	})
}

// Handler implementations. These are all called synchronously.

func (s *server) initialize(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Options: &lsp.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    lsp.TDSKFull,
				},
			},
			CompletionProvider: &lsp.CompletionOptions{},
			HoverProvider:      true,
		},
	}, nil
}

func (s *server) didOpen(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidOpenTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	uri, content := params.TextDocument.URI, params.TextDocument.Text
	s.content[uri] = content
	go publishDiagnostics(ctx, conn, uri, content)
	return nil, nil
}

func (s *server) didChange(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidChangeTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil || len(params.ContentChanges) == 0 {
		return nil, errInvalidParams
	}

	// ContentChanges includes full text since the server is only advertised to
	// support that; see the initialize method.
	uri, content := params.TextDocument.URI, params.ContentChanges[0].Text
	s.content[uri] = content
	go publishDiagnostics(ctx, conn, uri, content)
	return nil, nil
}

func (s *server) didClose(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidCloseTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	delete(s.content, params.TextDocument.URI)
	return nil, nil
}

func (s *server) hover(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.TextDocumentPositionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	content := s.content[params.TextDocument.URI]
	from, to := wordAt(content, lspPositionToIdx(content, params.Position))
	if from == to {
		return lsp.Hover{}, nil
	}
	name := strings.ToLower(content[from:to])
	var text string
	if def, ok := definitions(content)[name]; ok {
		text = fmt.Sprintf("%s `%s` defined at line %d", def.kind, def.name, def.line)
	} else if s.builtins[name] {
		text = fmt.Sprintf("Built-in command `%s`", name)
	} else {
		return lsp.Hover{}, nil
	}
	rg := lsp.Range{Start: lspPositionFromIdx(content, from), End: lspPositionFromIdx(content, to)}
	return lsp.Hover{Contents: []lsp.MarkedString{lsp.RawMarkedString(text)}, Range: &rg}, nil
}

func (s *server) completion(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.CompletionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	content := s.content[params.TextDocument.URI]
	dot := lspPositionToIdx(content, params.Position)
	from, _ := wordAt(content, dot)
	if !atCommandStart(content, from) {
		return []lsp.CompletionItem{}, nil
	}
	seed := content[from:dot]

	defs := definitions(content)
	var docNames []string
	for name := range defs {
		if !s.builtins[name] {
			docNames = append(docNames, name)
		}
	}
	sort.Strings(docNames)
	candidates := append(append([]string(nil), s.names...), docNames...)
	ranks := fuzzy.RankFindFold(seed, candidates)
	sort.Stable(ranks)

	lspRange := lsp.Range{Start: lspPositionFromIdx(content, from), End: params.Position}
	items := make([]lsp.CompletionItem, len(ranks))
	for i, rank := range ranks {
		name := rank.Target
		kind, detail := lsp.CIKKeyword, "built-in command"
		if def, ok := defs[name]; ok {
			kind, detail = lsp.CIKFunction, fmt.Sprintf("%s defined at line %d", def.kind, def.line)
		}
		items[i] = lsp.CompletionItem{
			Label:    name,
			Kind:     kind,
			Detail:   detail,
			SortText: fmt.Sprintf("%04d", i),
			TextEdit: &lsp.TextEdit{
				Range:   lspRange,
				NewText: name,
			},
		}
	}
	return items, nil
}

type definition struct {
	kind string
	name string
	line int
}

// Returns the functions and macros defined in the content, keyed by their
// lower-cased names. Later definitions override earlier ones. The content is
// only lexed, so that definitions are found while the document has syntax
// errors.
func definitions(content string) map[string]definition {
	defs := make(map[string]definition)
	tokens := parse.Lex(content)
	next := func(i int) (parse.Token, int) {
		for i < len(tokens) && tokens[i].Type == parse.Space {
			i++
		}
		if i == len(tokens) {
			return parse.Token{}, i
		}
		return tokens[i], i + 1
	}
	for i, token := range tokens {
		if token.Type != parse.Identifier {
			continue
		}
		var kind string
		switch strings.ToLower(token.Text) {
		case "function":
			kind = "Function"
		case "macro":
			kind = "Macro"
		default:
			continue
		}
		paren, j := next(i + 1)
		if paren.Type != parse.ParenLeft {
			continue
		}
		name, _ := next(j)
		switch name.Type {
		case parse.Identifier, parse.ArgumentUnquoted, parse.ArgumentQuoted, parse.ArgumentBracket:
			if name.Text != "" {
				defs[strings.ToLower(name.Text)] = definition{kind, name.Text, token.Line}
			}
		}
	}
	return defs
}

func isIdentChar(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

// Returns the range of the identifier containing or ending at idx.
func wordAt(s string, idx int) (from, to int) {
	from, to = idx, idx
	for from > 0 && isIdentChar(s[from-1]) {
		from--
	}
	for to < len(s) && isIdentChar(s[to]) {
		to++
	}
	return from, to
}

// Reports whether a command name may start at idx, which is the case when
// only whitespace precedes it on its line.
func atCommandStart(s string, idx int) bool {
	for i := idx - 1; i >= 0; i-- {
		switch s[i] {
		case ' ', '\t':
		case '\n', '\r':
			return true
		default:
			return false
		}
	}
	return true
}

func publishDiagnostics(ctx context.Context, conn jsonrpc2.JSONRPC2, uri lsp.DocumentURI, content string) {
	conn.Notify(ctx, "textDocument/publishDiagnostics",
		lsp.PublishDiagnosticsParams{URI: uri, Diagnostics: diagnostics(uri, content)})
}

func diagnostics(uri lsp.DocumentURI, content string) []lsp.Diagnostic {
	diags := []lsp.Diagnostic{}
	add := func(e *diag.Error, severity lsp.DiagnosticSeverity) {
		diags = append(diags, lsp.Diagnostic{
			Range:    lspRangeFromError(content, e),
			Severity: severity,
			Source:   "parse",
			Message:  e.Message,
		})
	}
	_, err := parse.Parse(parse.Source{Name: string(uri), Code: content}, parse.Config{
		WarningHandler: func(e *diag.Error) { add(e, lsp.Warning) },
	})
	if e, ok := err.(*diag.Error); ok {
		add(e, lsp.Error)
	}
	return diags
}

// Errors carry either a byte range or only a line and column. In the latter
// case the range extends to the end of the line.
func lspRangeFromError(s string, e *diag.Error) lsp.Range {
	if e.To > e.From {
		return lsp.Range{
			Start: lspPositionFromIdx(s, e.From),
			End:   lspPositionFromIdx(s, e.To),
		}
	}
	line := e.Line - 1
	if line < 0 {
		line = 0
	}
	col := e.Column - 1
	if col < 0 {
		col = 0
	}
	start := lsp.Position{Line: line, Character: col}
	idx := lspPositionToIdx(s, start)
	end := idx
	for end < len(s) && s[end] != '\n' && s[end] != '\r' {
		end++
	}
	return lsp.Range{Start: start, End: lspPositionFromIdx(s, end)}
}

func lspPositionToIdx(s string, pos lsp.Position) int {
	var idx int
	walkString(s, func(i int, p lsp.Position) bool {
		idx = i
		return p.Line < pos.Line || (p.Line == pos.Line && p.Character < pos.Character)
	})
	return idx
}

func lspPositionFromIdx(s string, idx int) lsp.Position {
	var pos lsp.Position
	walkString(s, func(i int, p lsp.Position) bool {
		pos = p
		return i < idx
	})
	return pos
}

// Generates (index, lspPosition) pairs in s, stopping if f returns false.
func walkString(s string, f func(i int, p lsp.Position) bool) {
	var p lsp.Position
	lastCR := false

	for i, r := range s {
		if !f(i, p) {
			return
		}
		switch {
		case r == '\r':
			p.Line++
			p.Character = 0
		case r == '\n':
			if lastCR {
				// Ignore \n if it's part of a \r\n sequence
			} else {
				p.Line++
				p.Character = 0
			}
		case r <= 0xFFFF:
			// Encoded in UTF-16 with one unit
			p.Character++
		default:
			// Encoded in UTF-16 with two units
			p.Character += 2
		}
		lastCR = r == '\r'
	}
	f(len(s), p)
}
