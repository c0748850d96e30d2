// Package script implements the script subprogram, which runs a list file
// given with -P without configuring a project.
package script

import (
	"errors"
	"os"

	"src.cmk.sh/pkg/eval"
	"src.cmk.sh/pkg/prog"
	"src.cmk.sh/pkg/state"
)

// Program is the script subprogram.
type Program struct {
	file string

	evalFlags  *prog.EvalFlags
	diagFlags  *prog.DiagFlags
	cacheFlags *prog.CacheFlags
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.StringVarP(&p.file, "script", "P", "", "Process the file as a script")
	p.evalFlags = fs.Eval()
	p.diagFlags = fs.Diag()
	p.cacheFlags = fs.Cache()
}

// Run runs the script. The exit status is the code given to
// cmake_language(EXIT) if the script called it, 1 if an error occurred and 0
// otherwise.
func (p *Program) Run(fds [3]*os.File, args []string) error {
	if p.file == "" {
		return prog.ErrNotSuitable
	}
	return prog.ShowError(fds[2], p.run(fds, args))
}

func (p *Program) run(fds [3]*os.File, args []string) error {
	cache := state.NewMemCache()
	if err := p.cacheFlags.Edit(cache); err != nil {
		return err
	}
	cfg := eval.Config{
		Stdout:     fds[1],
		Stderr:     fds[2],
		Messenger:  p.diagFlags.Messenger(fds[2]),
		Cache:      cache,
		ScriptMode: true,
	}
	if err := p.evalFlags.Apply(&cfg); err != nil {
		return err
	}
	if exe, err := os.Executable(); err == nil {
		cfg.Command = exe
	}
	ev := eval.New(cfg)
	err := ev.RunScript(p.file, argv(p.file, args))
	if code, ok := ev.ExitCode(); ok {
		return prog.Exit(code)
	}
	if err != nil {
		if errors.Is(err, eval.ErrFailed) {
			return prog.Exit(1)
		}
		return err
	}
	return nil
}

// The command line as seen by the script. Arguments after "--" follow the
// "--" itself.
func argv(file string, args []string) []string {
	argv := []string{"cmk", "-P", file}
	if len(args) > 0 {
		argv = append(argv, "--")
		argv = append(argv, args...)
	}
	return argv
}
