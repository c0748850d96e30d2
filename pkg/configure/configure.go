// Package configure implements the configure subprogram, which reads the
// CMakeLists.txt of a source directory and records the resulting cache in
// the binary directory.
package configure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/eval"
	"src.cmk.sh/pkg/logutil"
	"src.cmk.sh/pkg/prog"
	"src.cmk.sh/pkg/state"
	"src.cmk.sh/pkg/store"
	"src.cmk.sh/pkg/sys"
)

var logger = logutil.GetLogger("[configure] ")

// Cache entries recording where the cache belongs.
const (
	homeDirectoryEntry = "CMAKE_HOME_DIRECTORY"
	cacheDirEntry      = "CMAKE_CACHEFILE_DIR"
)

// Program is the configure subprogram. It is suitable for every command
// line, so it should come last in a composite program.
type Program struct {
	sourceDir, binaryDir string
	watch                bool

	evalFlags  *prog.EvalFlags
	diagFlags  *prog.DiagFlags
	cacheFlags *prog.CacheFlags
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.StringVarP(&p.sourceDir, "source", "S", "", "Source directory of the project")
	fs.StringVarP(&p.binaryDir, "build", "B", "", "Binary directory of the project")
	fs.BoolVar(&p.watch, "watch", false, "Configure again whenever a list file changes")
	p.evalFlags = fs.Eval()
	p.diagFlags = fs.Diag()
	p.cacheFlags = fs.Cache()
}

func (p *Program) Run(fds [3]*os.File, args []string) error {
	return prog.ShowError(fds[2], p.run(fds, args))
}

func (p *Program) run(fds [3]*os.File, args []string) error {
	if len(args) > 1 {
		return prog.BadUsage("at most one path may be given")
	}
	src, bin, err := p.dirs(args)
	if err != nil {
		return err
	}
	if !p.watch {
		_, err := p.configure(fds, src, bin)
		return err
	}

	w, err := newWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	stop, stopNotify := sys.NotifyStop()
	defer stopNotify()
	for {
		files, err := p.configure(fds, src, bin)
		if _, ok := prog.ExitCode(err); err != nil && !ok {
			return err
		}
		if err := w.Reset(files); err != nil {
			return err
		}
		fmt.Fprintln(fds[1], "-- Watching", len(files), "list files for changes")
		if !w.Wait(stop) {
			return err
		}
	}
}

// Works out the source and binary directories from -S, -B and the
// positional path. A positional path containing a CMakeLists.txt is a source
// directory built in the working directory; one containing a cache is an
// existing binary directory.
func (p *Program) dirs(args []string) (src, bin string, err error) {
	src, bin = p.sourceDir, p.binaryDir
	if len(args) == 1 {
		path := args[0]
		switch {
		case exists(filepath.Join(path, "CMakeLists.txt")):
			if src == "" {
				src = path
			}
		case exists(store.Path(path)):
			if bin == "" {
				bin = path
			}
		default:
			return "", "", prog.BadUsage(fmt.Sprintf("%s is neither a source directory nor a binary directory", path))
		}
	}
	if src == "" && bin == "" {
		return "", "", prog.BadUsage("no source or binary directory given")
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", "", err
	}
	if bin == "" {
		bin = wd
	}
	if src == "" {
		home, err := cachedHomeDirectory(bin)
		if err != nil {
			return "", "", err
		}
		if home == "" {
			home = wd
		}
		src = home
	}
	if src, err = filepath.Abs(src); err != nil {
		return "", "", err
	}
	if bin, err = filepath.Abs(bin); err != nil {
		return "", "", err
	}
	return src, bin, nil
}

func cachedHomeDirectory(bin string) (string, error) {
	if !exists(store.Path(bin)) {
		return "", nil
	}
	st, err := store.NewStore(store.Path(bin))
	if err != nil {
		return "", err
	}
	defer st.Close()
	e, _, err := st.Entry(homeDirectoryEntry)
	return e.Value, err
}

func exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// Runs one configure pass and returns the list files it read.
func (p *Program) configure(fds [3]*os.File, src, bin string) ([]string, error) {
	logger.Println("configuring", src, "into", bin)
	if err := os.MkdirAll(bin, 0755); err != nil {
		return nil, err
	}
	st, err := store.NewStore(store.Path(bin))
	if err != nil {
		return nil, fmt.Errorf("cannot open cache: %w", err)
	}
	defer st.Close()
	cache, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("cannot load cache: %w", err)
	}
	if err := p.cacheFlags.Edit(cache); err != nil {
		return nil, err
	}
	if home, ok := cache.Get(homeDirectoryEntry); ok && home.Value != src {
		diag.Complainf(fds[2], "CMake Error: The source %q does not match the source %q used to generate cache.  "+
			"Re-run cmake with a different source directory.",
			filepath.Join(src, "CMakeLists.txt"), filepath.Join(home.Value, "CMakeLists.txt"))
		return nil, prog.Exit(1)
	}

	cfg := eval.Config{
		Stdout:    fds[1],
		Stderr:    fds[2],
		Messenger: p.diagFlags.Messenger(fds[2]),
		Cache:     cache,
	}
	if err := p.evalFlags.Apply(&cfg); err != nil {
		return nil, err
	}
	if exe, err := os.Executable(); err == nil {
		cfg.Command = exe
	}
	ev := eval.New(cfg)
	err = ev.Configure(src, bin)
	files := ev.ListFiles()
	if err != nil {
		if !errors.Is(err, eval.ErrFailed) {
			return files, err
		}
		fmt.Fprintln(fds[1], "-- Configuring incomplete, errors occurred!")
		return files, prog.Exit(1)
	}
	fmt.Fprintln(fds[1], "-- Configuring done")

	cache.Set(homeDirectoryEntry, state.CacheEntry{
		Value: src, Type: state.CacheInternal, Help: "Source directory with the top level CMakeLists.txt file for this project"})
	cache.Set(cacheDirEntry, state.CacheEntry{
		Value: bin, Type: state.CacheInternal, Help: "This is the directory where this CMakeCache.txt was created"})
	if err := st.Save(cache, state.EngineVersion.String()); err != nil {
		return files, fmt.Errorf("cannot save cache: %w", err)
	}
	return files, nil
}
