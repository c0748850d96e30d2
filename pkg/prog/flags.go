package prog

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"src.cmk.sh/pkg/cachefile"
	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/eval"
	"src.cmk.sh/pkg/logutil"
	"src.cmk.sh/pkg/state"
	"src.cmk.sh/pkg/sys"
)

var logger = logutil.GetLogger("[prog] ")

// FlagSet wraps a [pflag.FlagSet]. Flags used by several subprograms are
// registered the first time one of the accessors is called.
type FlagSet struct {
	*pflag.FlagSet
	eval  *EvalFlags
	diag  *DiagFlags
	cache *CacheFlags
}

// CacheFlags keeps the flags that edit the cache before a run.
type CacheFlags struct {
	Defines      []string
	Undefines    []string
	InitialCache string
}

// EvalFlags keeps the flags that configure an Evaler.
type EvalFlags struct {
	Trace             bool
	TraceExpand       bool
	TraceFormat       string
	WarnUninitialized bool
	LogLevel          string
	MaxRecursionDepth int
}

// DiagFlags keeps the flags that control which diagnostics are shown.
type DiagFlags struct {
	NoWarnDev             bool
	WarnDevAsError        bool
	NoWarnDeprecated      bool
	WarnDeprecatedAsError bool
}

// Eval returns the flags controlling evaluation.
func (fs *FlagSet) Eval() *EvalFlags {
	if fs.eval == nil {
		var f EvalFlags
		fs.BoolVar(&f.Trace, "trace", false, "Put the interpreter in trace mode")
		fs.BoolVar(&f.TraceExpand, "trace-expand", false, "Like --trace, but with variables expanded")
		fs.StringVar(&f.TraceFormat, "trace-format", "human", "Format of the trace output: human or json-v1")
		fs.BoolVar(&f.WarnUninitialized, "warn-uninitialized", false, "Warn about uninitialized values")
		fs.StringVar(&f.LogLevel, "log-level", "", "Minimum level of messages shown by message()")
		fs.IntVar(&f.MaxRecursionDepth, "max-recursion-depth", 0, "Maximum depth of nested calls")
		fs.eval = &f
	}
	return fs.eval
}

// Diag returns the flags controlling diagnostics.
func (fs *FlagSet) Diag() *DiagFlags {
	if fs.diag == nil {
		var f DiagFlags
		fs.BoolVar(&f.NoWarnDev, "no-warn-dev", false, "Suppress developer warnings")
		fs.BoolVar(&f.WarnDevAsError, "warn-dev-as-error", false, "Make developer warnings errors")
		fs.BoolVar(&f.NoWarnDeprecated, "no-warn-deprecated", false, "Suppress deprecation warnings")
		fs.BoolVar(&f.WarnDeprecatedAsError, "warn-deprecated-as-error", false, "Make deprecation warnings errors")
		fs.diag = &f
	}
	return fs.diag
}

// Cache returns the flags editing the cache.
func (fs *FlagSet) Cache() *CacheFlags {
	if fs.cache == nil {
		var f CacheFlags
		fs.StringArrayVarP(&f.Defines, "define", "D", nil, "Create or update a cache entry, as VAR[:TYPE]=VALUE")
		fs.StringArrayVarP(&f.Undefines, "undefine", "U", nil, "Remove matching entries from the cache")
		fs.StringVarP(&f.InitialCache, "initial-cache", "C", "", "Pre-load the cache from a YAML file")
		fs.cache = &f
	}
	return fs.cache
}

// Edit applies the flags to the cache: the initial cache file first, then
// definitions, then removals.
func (f *CacheFlags) Edit(cache state.Cache) error {
	if f.InitialCache != "" {
		defs, err := cachefile.LoadFile(f.InitialCache)
		if err != nil {
			return err
		}
		cachefile.Apply(cache, defs, false)
	}
	defs, err := cachefile.ParseDefinitions(f.Defines)
	if err != nil {
		return BadUsage(err.Error())
	}
	cachefile.Apply(cache, defs, true)
	for _, pattern := range f.Undefines {
		removed, err := cachefile.Remove(cache, pattern)
		if err != nil {
			return BadUsage(err.Error())
		}
		logger.Printf("-U %s removed %v", pattern, removed)
	}
	return nil
}

// Messenger returns a messenger writing to w, colored if w is a terminal.
func (f *DiagFlags) Messenger(w *os.File) *diag.StreamMessenger {
	m := diag.NewStreamMessenger(w, diag.MessengerOptions{
		SuppressDev:        f.NoWarnDev && !f.WarnDevAsError,
		DevAsError:         f.WarnDevAsError,
		SuppressDeprecated: f.NoWarnDeprecated && !f.WarnDeprecatedAsError,
		DeprecatedAsError:  f.WarnDeprecatedAsError,
	})
	m.Color = sys.IsATTY(w)
	return m
}

// Apply copies the flags into an eval.Config. It returns a bad usage error
// if a flag has an invalid value.
func (f *EvalFlags) Apply(cfg *eval.Config) error {
	cfg.Trace = f.Trace || f.TraceExpand
	cfg.TraceExpand = f.TraceExpand
	format, ok := eval.ParseTraceFormat(f.TraceFormat)
	if !ok {
		return BadUsage(fmt.Sprintf("invalid value for --trace-format: %q", f.TraceFormat))
	}
	cfg.TraceFormat = format
	cfg.WarnUninitialized = f.WarnUninitialized
	if f.LogLevel != "" {
		level, ok := eval.ParseLogLevel(f.LogLevel)
		if !ok {
			return BadUsage(fmt.Sprintf("invalid value for --log-level: %q", f.LogLevel))
		}
		cfg.LogLevel = level
	}
	if f.MaxRecursionDepth < 0 {
		return BadUsage("--max-recursion-depth must not be negative")
	}
	cfg.MaxRecursionDepth = f.MaxRecursionDepth
	return nil
}
