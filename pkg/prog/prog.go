// Package prog provides the entry point to cmk. Its subpackages correspond to
// subprograms of cmk.
package prog

// This package parses the command line with a cobra command whose flags are
// registered by the subprograms, sets up logging, and calls the first
// subprogram that is suitable for the flags.

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/logutil"
)

// Program represents a subprogram.
type Program interface {
	// RegisterFlags registers the flags of the subprogram. Flags shared by
	// several subprograms should be obtained from the methods of FlagSet
	// instead of being registered directly.
	RegisterFlags(fs *FlagSet)
	// Run runs the subprogram with the positional arguments.
	Run(fds [3]*os.File, args []string) error
}

// NewCommand builds the cobra command that runs the program. The returned
// command does not print errors itself; Run does that.
func NewCommand(fds [3]*os.File, p Program) *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "cmk [flags] [-- args]",
		Short: "Configure a project from its CMakeLists.txt, or run a script",
		Args:  cobra.ArbitraryArgs,

		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(*cobra.Command, []string) error {
			if logFile != "" {
				if err := logutil.SetOutputFile(logFile); err != nil {
					fmt.Fprintln(fds[2], "Warning: cannot open log file:", err)
				}
			}
			return nil
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return p.Run(fds, args)
		},
	}
	cmd.SetIn(fds[0])
	cmd.SetOut(fds[1])
	cmd.SetErr(fds[2])
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return BadUsage(err.Error())
	})

	fs := &FlagSet{FlagSet: cmd.Flags()}
	fs.SortFlags = false
	fs.StringVar(&logFile, "log", "", "Write debug log to the file")
	p.RegisterFlags(fs)
	return cmd
}

// Run parses command-line flags and runs the program. It returns the exit
// status of the program.
func Run(fds [3]*os.File, args []string, p Program) int {
	cmd := NewCommand(fds, p)
	cmd.SetArgs(args[1:])
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(fds[2], msg)
	}
	var bu badUsageError
	var ee exitError
	switch {
	case errors.As(err, &bu):
		fmt.Fprint(fds[2], cmd.UsageString())
	case errors.As(err, &ee):
		return ee.exit
	}
	return 2
}

// Composite returns a Program made up from the given programs. Its Run method
// tries each program in turn, terminating at the first one that doesn't
// return ErrNotSuitable or an error from NextProgram. Cleanup functions
// passed to NextProgram run in reverse order after that program finishes.
func Composite(programs ...Program) Program {
	return compositeProgram(programs)
}

type compositeProgram []Program

func (cp compositeProgram) RegisterFlags(fs *FlagSet) {
	for _, p := range cp {
		p.RegisterFlags(fs)
	}
}

func (cp compositeProgram) Run(fds [3]*os.File, args []string) error {
	var cleanups []func([3]*os.File)
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i](fds)
		}
	}()
	for _, p := range cp {
		err := p.Run(fds, args)
		if np, ok := err.(nextProgramError); ok {
			cleanups = append(cleanups, np.cleanups...)
			continue
		}
		if err != ErrNotSuitable {
			return err
		}
	}
	// If we have reached here, all subprograms have returned ErrNotSuitable
	return ErrNotSuitable
}

// ErrNotSuitable is a special error that may be returned by Program.Run, to
// signify that this Program should not be run. It is useful when a Program is
// used in Composite.
var ErrNotSuitable = errors.New("internal error: no suitable subprogram")

// NextProgram returns a special error that may be returned by Program.Run in
// a Composite. Like ErrNotSuitable it passes control to the next program; the
// cleanup functions are called after the rest of the Composite has run.
func NextProgram(cleanups ...func([3]*os.File)) error { return nextProgramError{cleanups} }

type nextProgramError struct{ cleanups []func([3]*os.File) }

func (e nextProgramError) Error() string { return ErrNotSuitable.Error() }

// BadUsage returns a special error that may be returned by Program.Run. It
// causes the main function to print out a message, the usage information and
// exit with 2.
func BadUsage(msg string) error { return badUsageError{msg} }

type badUsageError struct{ msg string }

func (e badUsageError) Error() string { return e.msg }

// Exit returns a special error that may be returned by Program.Run. It causes
// the main function to exit with the given code without printing any error
// messages. Exit(0) returns nil.
func Exit(exit int) error {
	if exit == 0 {
		return nil
	}
	return exitError{exit}
}

type exitError struct{ exit int }

// ExitCode returns the code of an error returned by Exit, and whether err is
// such an error.
func ExitCode(err error) (int, bool) {
	var ee exitError
	if errors.As(err, &ee) {
		return ee.exit, true
	}
	return 0, false
}

func (e exitError) Error() string { return "" }

// ShowError shows err on w with diag.ShowError and returns Exit(2). Errors
// that Run treats specially, and nil, are returned unchanged.
func ShowError(w io.Writer, err error) error {
	var bu badUsageError
	var ee exitError
	var np nextProgramError
	if err == nil || errors.Is(err, ErrNotSuitable) ||
		errors.As(err, &bu) || errors.As(err, &ee) || errors.As(err, &np) {
		return err
	}
	diag.ShowError(w, err)
	return Exit(2)
}
