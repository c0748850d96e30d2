package eval

import (
	"encoding/json"
	"io"
	"strings"

	"src.cmk.sh/pkg/parse"
)

// One line of --trace-format=json-v1 output. Fields are in the order they
// are written.
type jsonTrace struct {
	Args        []string `json:"args"`
	Cmd         string   `json:"cmd"`
	Defer       string   `json:"defer,omitempty"`
	File        string   `json:"file"`
	Frame       int      `json:"frame"`
	GlobalFrame int      `json:"global_frame"`
	Line        int      `json:"line"`
	LineEnd     int      `json:"line_end,omitempty"`
}

const jsonTraceVersion = `{"version":{"major":1,"minor":2}}`

func (ev *Evaler) startTrace() {
	if ev.traceStarted || !ev.cfg.Trace {
		return
	}
	ev.traceStarted = true
	if ev.cfg.TraceFormat == TraceJSONv1 {
		io.WriteString(ev.stderr, jsonTraceVersion+"\n")
	}
}

// Prints a command about to run, attributed to the given file.
func (d *Directory) printCommandTrace(fn parse.Function, file, deferID string) {
	ev := d.ev
	ev.startTrace()
	args := make([]string, len(fn.Args))
	for i, arg := range fn.Args {
		args[i] = arg.Value
		if ev.cfg.TraceExpand && arg.Delim != parse.Bracket {
			if v, err := d.expandVariables(arg.Value, expandOptions{}); err == nil {
				args[i] = v
			}
		}
	}

	var sb strings.Builder
	switch ev.cfg.TraceFormat {
	case TraceJSONv1:
		t := jsonTrace{Args: args, Cmd: fn.OriginalName, Defer: deferID, File: file,
			Frame: len(d.statusStack), GlobalFrame: ev.depth, Line: fn.Line}
		if fn.LineEnd != fn.Line {
			t.LineEnd = fn.LineEnd
		}
		enc := json.NewEncoder(&sb)
		enc.SetEscapeHTML(false)
		enc.Encode(t)
	default:
		sb.WriteString(file + "(" + itoa(fn.Line) + "):")
		if deferID != "" {
			sb.WriteString("DEFERRED:" + deferID + ":")
		}
		sb.WriteString("  " + fn.OriginalName + "(")
		for _, arg := range args {
			sb.WriteString(arg + " ")
		}
		sb.WriteString(")\n")
	}
	io.WriteString(ev.stderr, sb.String())
}
