// Package evaltest provides a framework for testing list file code.
//
// The entry point for the framework is the Test function, which accepts a
// *testing.T and any number of test cases.
//
// Test cases are constructed using the That function, followed by method calls
// that add additional information to it.
//
// Example:
//
//	Test(t,
//	    That("set(X 1)", "message(${X})").Prints("1\n"),
//	    That("message(STATUS x)").PrintsStdout("-- x\n"))
//
// Code runs in script mode in a fresh Evaler, with message() output without
// a mode (which goes to stderr) compared by Prints, and diagnostics captured
// separately.
package evaltest

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/eval"
	"src.cmk.sh/pkg/parse"
	"src.cmk.sh/pkg/testutil"
)

// Case is a test case that can be used in Test.
type Case struct {
	codes  []string
	dir    testutil.Dir
	config func(*eval.Config)
	setup  func(*eval.Evaler)
	verify func(t *testing.T, ev *eval.Evaler)
	want   result
}

type result struct {
	Stdout []byte
	Stderr []byte
	// Substring of the diagnostics. Nil means there must be none.
	Diagnostics []byte

	Fails    bool
	ExitCode *int
}

// That returns a new Case with the specified source code. Multiple arguments
// are joined with newlines. To specify multiple pieces of code that are
// evaluated separately, use the Then method to append code pieces.
//
// When combined with subsequent method calls, a test case reads like English.
// For example, a test for the fact that "message(x)" prints "x" reads:
//
//	That("message(x)").Prints("x\n")
func That(lines ...string) Case {
	return Case{codes: []string{strings.Join(lines, "\n")}}
}

// Then returns a new Case that evaluates the given code in addition. Multiple
// arguments are joined with newlines.
func (c Case) Then(lines ...string) Case {
	c.codes = append(c.codes, strings.Join(lines, "\n"))
	return c
}

// InDir returns an altered Case that runs in a temporary directory with the
// given layout.
func (c Case) InDir(dir testutil.Dir) Case {
	c.dir = dir
	return c
}

// WithConfig returns an altered Case that modifies the Config of the Evaler
// before it is created.
func (c Case) WithConfig(f func(*eval.Config)) Case {
	c.config = f
	return c
}

// WithSetup returns an altered Case with the given setup function executed on
// the Evaler before the code is evaluated.
func (c Case) WithSetup(f func(*eval.Evaler)) Case {
	c.setup = f
	return c
}

// Passes returns an altered Case that runs an additional verification
// function after the code is evaluated.
func (c Case) Passes(f func(t *testing.T, ev *eval.Evaler)) Case {
	c.verify = f
	return c
}

// Prints returns an altered Case that requires the code to write s to the
// standard error with message().
func (c Case) Prints(s string) Case {
	c.want.Stderr = []byte(s)
	return c
}

// PrintsStdout returns an altered Case that requires the code to write s to
// the standard output.
func (c Case) PrintsStdout(s string) Case {
	c.want.Stdout = []byte(s)
	return c
}

// PrintsStderrWith returns an altered Case that requires the diagnostics to
// contain s, without requiring the run to fail.
func (c Case) PrintsStderrWith(s string) Case {
	c.want.Diagnostics = []byte(s)
	return c
}

// Fails returns an altered Case that requires the run to report an error.
func (c Case) Fails() Case {
	c.want.Fails = true
	if c.want.Diagnostics == nil {
		c.want.Diagnostics = []byte{}
	}
	return c
}

// FailsWith returns an altered Case that requires the run to report an error
// whose diagnostic contains s.
func (c Case) FailsWith(s string) Case {
	c.want.Fails = true
	c.want.Diagnostics = []byte(s)
	return c
}

// Exits returns an altered Case that requires the code to call
// cmake_language(EXIT) with the given code.
func (c Case) Exits(code int) Case {
	c.want.ExitCode = &code
	return c
}

// DoesNothing returns c unchanged. It is useful to mark tests that don't have
// any visible effect, for example:
//
//	That("set(X 1)").DoesNothing()
func (c Case) DoesNothing() Case {
	return c
}

// Test runs test cases. For each test case, a new Evaler is created.
func Test(t *testing.T, tests ...Case) {
	t.Helper()
	for _, tc := range tests {
		t.Run(strings.Join(tc.codes, "\n"), func(t *testing.T) {
			t.Helper()
			if tc.dir != nil {
				testutil.InTempDir(t)
				testutil.ApplyDir(tc.dir)
			}
			var stdout, stderr, diagnostics bytes.Buffer
			cfg := eval.Config{
				Stdout:     &stdout,
				Stderr:     &stderr,
				Messenger:  diag.NewStreamMessenger(&diagnostics, diag.MessengerOptions{}),
				ScriptMode: true,
				Environ:    []string{"CMK_TEST=1"},
			}
			if tc.config != nil {
				tc.config(&cfg)
			}
			ev := eval.New(cfg)
			if tc.setup != nil {
				tc.setup(ev)
			}

			for i, code := range tc.codes {
				ev.EvalScript(parse.Source{Name: "test" + suffix(i) + ".cmake", Code: code})
			}

			if tc.verify != nil {
				tc.verify(t, ev)
			}
			if !bytes.Equal(tc.want.Stdout, stdout.Bytes()) && (tc.want.Stdout != nil || stdout.Len() > 0) {
				t.Errorf("got stdout %q, want %q", stdout.Bytes(), tc.want.Stdout)
			}
			if !bytes.Equal(tc.want.Stderr, stderr.Bytes()) && (tc.want.Stderr != nil || stderr.Len() > 0) {
				t.Errorf("got stderr %q, want %q", stderr.Bytes(), tc.want.Stderr)
			}
			if tc.want.Diagnostics == nil {
				if diagnostics.Len() > 0 {
					t.Errorf("got diagnostics %q, want none", diagnostics.Bytes())
				}
			} else if !bytes.Contains(diagnostics.Bytes(), tc.want.Diagnostics) {
				t.Errorf("got diagnostics %q, want diagnostics containing %q",
					diagnostics.Bytes(), tc.want.Diagnostics)
			}
			if failed := ev.ErrorOccurred(); failed != tc.want.Fails {
				t.Errorf("got failure %v, want %v", failed, tc.want.Fails)
			}
			code, exited := ev.ExitCode()
			switch {
			case tc.want.ExitCode == nil && exited:
				t.Errorf("got exit code %d, want no exit", code)
			case tc.want.ExitCode != nil && !exited:
				t.Errorf("got no exit, want exit code %d", *tc.want.ExitCode)
			case tc.want.ExitCode != nil && code != *tc.want.ExitCode:
				t.Errorf("got exit code %d, want %d", code, *tc.want.ExitCode)
			}
		})
	}
}

func suffix(i int) string {
	if i == 0 {
		return ""
	}
	return strconv.Itoa(i)
}
