package eval_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.cmk.sh/pkg/eval"
	"src.cmk.sh/pkg/parse"
)

func runTraced(t *testing.T, cfg eval.Config, code string) string {
	t.Helper()
	var stderr bytes.Buffer
	cfg.Stderr = &stderr
	cfg.Trace = true
	cfg.ScriptMode = true
	ev := eval.New(cfg)
	if err := ev.EvalScript(parse.Source{Name: "trace.cmake", Code: code}); err != nil {
		t.Fatalf("got error %v", err)
	}
	return stderr.String()
}

func TestTrace_Human(t *testing.T) {
	out := runTraced(t, eval.Config{}, "set(X v)\nmessage(${X})\n")
	for _, want := range []string{
		"trace.cmake(1):  set(X v )\n",
		"trace.cmake(2):  message(${X} )\nv\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("trace %q doesn't contain %q", out, want)
		}
	}
}

func TestTrace_Expand(t *testing.T) {
	out := runTraced(t, eval.Config{TraceExpand: true}, "set(X v)\nmessage(${X} [[${X}]])\n")
	if want := "trace.cmake(2):  message(v ${X} )\n"; !strings.Contains(out, want) {
		t.Errorf("trace %q doesn't contain %q", out, want)
	}
}

func TestTrace_Deferred(t *testing.T) {
	out := runTraced(t, eval.Config{}, "cmake_language(DEFER ID later CALL message x)\n")
	if want := "DEFERRED:later:  message(x )\n"; !strings.Contains(out, want) {
		t.Errorf("trace %q doesn't contain %q", out, want)
	}
}

func TestTrace_JSON(t *testing.T) {
	out := runTraced(t, eval.Config{TraceFormat: eval.TraceJSONv1}, "message(a b)\n")
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), out)
	}
	if want := `{"version":{"major":1,"minor":2}}`; lines[0] != want {
		t.Errorf("got version line %q, want %q", lines[0], want)
	}
	var entry struct {
		Args []string `json:"args"`
		Cmd  string   `json:"cmd"`
		File string   `json:"file"`
		Line int      `json:"line"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("cannot decode %q: %v", lines[1], err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, entry.Args); diff != "" {
		t.Errorf("args (-want +got):\n%s", diff)
	}
	if entry.Cmd != "message" || entry.Line != 1 || !strings.HasSuffix(entry.File, "trace.cmake") {
		t.Errorf("got entry %+v", entry)
	}
	if lines[2] != "ab" {
		t.Errorf("got output line %q, want ab", lines[2])
	}
}
