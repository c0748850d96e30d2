// Package progtest contains utilities for testing [prog.Program]
// implementations by running them with command-line arguments and checking
// their output and exit status.
package progtest

import (
	"io"
	"os"
	"strings"
	"testing"

	"src.cmk.sh/pkg/must"
	"src.cmk.sh/pkg/prog"
)

// Case is a test case for Test.
type Case struct {
	args   []string
	stdin  string
	exit   int
	stdout outputMatcher
	stderr outputMatcher
}

type outputMatcher struct {
	set      bool
	text     string
	contains bool
}

func (m outputMatcher) match(s string) bool {
	if !m.set {
		return s == ""
	}
	if m.contains {
		return strings.Contains(s, m.text)
	}
	return s == m.text
}

// ThatCmk returns a new Case with the specified command-line arguments. The
// program name is implicit.
//
// The new Case expects an exit code of 0 and nothing written to stdout or
// stderr.
func ThatCmk(args ...string) Case {
	return Case{args: append([]string{"cmk"}, args...)}
}

// WithStdin returns an altered Case that provides the given input to stdin.
func (c Case) WithStdin(s string) Case {
	c.stdin = s
	return c
}

// DoesNothing returns c itself. It is useful to mark that a case expects
// the default behavior.
func (c Case) DoesNothing() Case { return c }

// ExitsWith returns an altered Case that requires the program to exit with
// the given code.
func (c Case) ExitsWith(code int) Case {
	c.exit = code
	return c
}

// WritesStdout returns an altered Case that requires stdout to be exactly s.
func (c Case) WritesStdout(s string) Case {
	c.stdout = outputMatcher{true, s, false}
	return c
}

// WritesStdoutContaining returns an altered Case that requires stdout to
// contain s.
func (c Case) WritesStdoutContaining(s string) Case {
	c.stdout = outputMatcher{true, s, true}
	return c
}

// WritesStderr returns an altered Case that requires stderr to be exactly s.
func (c Case) WritesStderr(s string) Case {
	c.stderr = outputMatcher{true, s, false}
	return c
}

// WritesStderrContaining returns an altered Case that requires stderr to
// contain s.
func (c Case) WritesStderrContaining(s string) Case {
	c.stderr = outputMatcher{true, s, true}
	return c
}

// Test runs test cases against a given program.
func Test(t *testing.T, p prog.Program, cases ...Case) {
	t.Helper()
	for _, c := range cases {
		t.Run(strings.Join(c.args, " "), func(t *testing.T) {
			t.Helper()
			exit, stdout, stderr := Run(p, c.stdin, c.args...)
			if exit != c.exit {
				t.Errorf("got exit %v, want %v", exit, c.exit)
			}
			if !c.stdout.match(stdout) {
				t.Errorf("got stdout %q, want %s", stdout, c.stdout.describe())
			}
			if !c.stderr.match(stderr) {
				t.Errorf("got stderr %q, want %s", stderr, c.stderr.describe())
			}
		})
	}
}

func (m outputMatcher) describe() string {
	switch {
	case !m.set:
		return "empty"
	case m.contains:
		return "containing " + quote(m.text)
	default:
		return quote(m.text)
	}
}

func quote(s string) string { return "\"" + strings.ReplaceAll(s, "\n", `\n`) + "\"" }

// Run runs a program with the given stdin and arguments, and returns its
// exit status and output. The first argument is the program name.
func Run(p prog.Program, stdin string, args ...string) (exit int, stdout, stderr string) {
	r0, w0 := must.OK2(os.Pipe())
	r1, w1 := must.OK2(os.Pipe())
	r2, w2 := must.OK2(os.Pipe())

	go func() {
		io.WriteString(w0, stdin)
		w0.Close()
	}()
	outCh := readAllAsync(r1)
	errCh := readAllAsync(r2)

	exit = prog.Run([3]*os.File{r0, w1, w2}, args, p)
	w1.Close()
	w2.Close()
	stdout, stderr = <-outCh, <-errCh
	r0.Close()
	return exit, stdout, stderr
}

func readAllAsync(r *os.File) <-chan string {
	ch := make(chan string, 1)
	go func() {
		ch <- string(must.OK1(io.ReadAll(r)))
		r.Close()
	}()
	return ch
}
