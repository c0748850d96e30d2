package parse

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.cmk.sh/pkg/diag"
)

func fn(name string, line, lineEnd int, args ...Argument) Function {
	f := NewFunction(name, line, args)
	f.LineEnd = lineEnd
	return f
}

func u(v string, line int) Argument { return Argument{v, Unquoted, line} }
func q(v string, line int) Argument { return Argument{v, Quoted, line} }
func b(v string, line int) Argument { return Argument{v, Bracket, line} }

var parseTests = []struct {
	name string
	code string
	want []Function

	wantErr     string
	wantErrLine int
}{
	{
		name: "empty",
		code: "",
		want: nil,
	},
	{
		name: "functions with all kinds of arguments",
		code: "Set(X a \"b c\" [[d]])\nmessage(${X})\n",
		want: []Function{
			fn("Set", 1, 1, u("X", 1), u("a", 1), q("b c", 1), b("d", 1)),
			fn("message", 2, 2, u("${X}", 2)),
		},
	},
	{
		name: "nested parens are kept as arguments",
		code: "if((A AND B) OR C)\nendif()",
		want: []Function{
			fn("if", 1, 1, u("(", 1), u("A", 1), u("AND", 1), u("B", 1),
				u(")", 1), u("OR", 1), u("C", 1)),
			fn("endif", 2, 2),
		},
	},
	{
		name: "multi-line invocation",
		code: "f(\n  a\n  b\n)",
		want: []Function{fn("f", 1, 4, u("a", 2), u("b", 3))},
	},
	{
		name: "space between name and paren, comments",
		code: "#[[c]]\nf (a) # trailing\n",
		want: []Function{fn("f", 2, 2, u("a", 2))},
	},
	{
		name: "UTF-8 BOM is skipped",
		code: "\xEF\xBB\xBFf()",
		want: []Function{fn("f", 1, 1)},
	},

	{
		name:        "non-UTF-8 BOM",
		code:        "\xFF\xFEf()",
		wantErr:     "File starts with a Byte-Order-Mark that is not UTF-8:\n  test.txt",
		wantErrLine: 0,
	},
	{
		name:        "two commands on one line",
		code:        "f() g()",
		wantErr:     `Parse error.  Expected a newline, got identifier with text "g".`,
		wantErrLine: 1,
	},
	{
		name:        "command after bracket comment on the same line",
		code:        "#[[x]] f()",
		wantErr:     `Parse error.  Expected a newline, got identifier with text "f".`,
		wantErrLine: 1,
	},
	{
		name:        "argument at top level",
		code:        "\n\"x\"",
		wantErr:     `Parse error.  Expected a command name, got quoted argument with text "x".`,
		wantErrLine: 2,
	},
	{
		name:        "missing opening paren at EOF",
		code:        "f",
		wantErr:     "Unexpected end of file.\nParse error.  Function missing opening \"(\".",
		wantErrLine: 1,
	},
	{
		name:        "missing opening paren",
		code:        "f x",
		wantErr:     `Parse error.  Expected "(", got identifier with text "x".`,
		wantErrLine: 1,
	},
	{
		name:        "missing closing paren",
		code:        "f(x\n",
		wantErr:     `Parse error.  Function missing ending ")".  End of file reached.`,
		wantErrLine: 2,
	},
	{
		name:        "unterminated string",
		code:        "f(\"x)",
		wantErr:     "Parse error.  Function missing ending \")\".  Instead found unterminated string with text \"\"x)\".",
		wantErrLine: 1,
	},
	{
		name:        "bracket argument not separated",
		code:        `f("a"[[b]])`,
		wantErr:     "Syntax Error in cmake code at column 6\nArgument not separated from preceding token by whitespace.",
		wantErrLine: 1,
	},
	{
		name:        "argument after bracket argument not separated",
		code:        "f([[b]]a)",
		wantErr:     "Syntax Error in cmake code at column 8\nArgument not separated from preceding token by whitespace.",
		wantErrLine: 1,
	},
	{
		name:        "improper nesting",
		code:        "if(a)\nforeach(x)\nendif()\nendforeach()",
		wantErr:     "Flow control statements are not properly nested.",
		wantErrLine: 2,
	},
}

func TestParse(t *testing.T) {
	for _, test := range parseTests {
		t.Run(test.name, func(t *testing.T) {
			lf, err := Parse(Source{Name: "test.txt", Code: test.code}, Config{})
			if test.wantErr == "" {
				if err != nil {
					t.Fatalf("Parse(%q) -> error %v", test.code, err)
				}
				if diff := cmp.Diff(test.want, lf.Functions); diff != "" {
					t.Errorf("Parse(%q) (-want +got):\n%s", test.code, diff)
				}
				return
			}
			var parseErr *diag.Error
			if !errors.As(err, &parseErr) {
				t.Fatalf("Parse(%q) -> error %v, want *diag.Error", test.code, err)
			}
			if parseErr.Message != test.wantErr {
				t.Errorf("Parse(%q) -> message %q, want %q", test.code, parseErr.Message, test.wantErr)
			}
			if parseErr.Line != test.wantErrLine {
				t.Errorf("Parse(%q) -> error at line %d, want %d", test.code, parseErr.Line, test.wantErrLine)
			}
		})
	}
}

func TestParse_SeparationWarning(t *testing.T) {
	var warnings []*diag.Error
	cfg := Config{WarningHandler: func(e *diag.Error) { warnings = append(warnings, e) }}

	lf, err := Parse(Source{Name: "w.txt", Code: `f("a"b)`}, cfg)
	if err != nil {
		t.Fatalf("Parse -> error %v", err)
	}
	if diff := cmp.Diff([]Argument{q("a", 1), u("b", 1)}, lf.Functions[0].Args); diff != "" {
		t.Errorf("args (-want +got):\n%s", diff)
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	want := "Syntax Warning in cmake code at column 6\nArgument not separated from preceding token by whitespace."
	if warnings[0].Message != want {
		t.Errorf("warning %q, want %q", warnings[0].Message, want)
	}
}

func TestFunction_String(t *testing.T) {
	f := fn("Message", 1, 1, u("STATUS", 1), q("a b", 1), b("]]", 1))
	if got, want := f.String(), `Message(STATUS "a b" [=[]]]=])`; got != want {
		t.Errorf("String() -> %q, want %q", got, want)
	}
}

func FuzzParse(f *testing.F) {
	f.Add("set(X 1)")
	f.Add("if(A)\nmessage([==[x]==])\nendif()")
	f.Add("f(\"${a}\" b;c #[[c]])")
	f.Fuzz(func(t *testing.T, code string) {
		lf, err := Parse(Source{Name: "fuzz", Code: code}, Config{})
		if err == nil && lf == nil {
			t.Errorf("nil ListFile without error")
		}
		if err != nil && !strings.Contains(err.Error(), "fuzz") {
			t.Errorf("error %q does not mention source name", err)
		}
	})
}
