// Package eval executes parsed list files. It keeps the run context (error
// flags, recursion depth, registered commands and the environment) in an
// Evaler, and the per-directory execution state (current snapshot,
// backtrace, open blocks and deferred calls) in a Directory.
package eval

import (
	"io"
	"os"
	"sort"
	"strings"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/logutil"
	"src.cmk.sh/pkg/state"
)

var logger = logutil.GetLogger("[eval] ")

// DefaultMaxRecursionDepth is the recursion limit used when neither the
// Config nor CMAKE_MAXIMUM_RECURSION_DEPTH sets one.
const DefaultMaxRecursionDepth = 1000

// TraceFormat is the output format of --trace.
type TraceFormat int

// Trace formats.
const (
	TraceHuman TraceFormat = iota
	TraceJSONv1
)

// ParseTraceFormat parses the argument of --trace-format.
func ParseTraceFormat(s string) (TraceFormat, bool) {
	switch s {
	case "human":
		return TraceHuman, true
	case "json-v1":
		return TraceJSONv1, true
	}
	return TraceHuman, false
}

// Config keeps the options of an Evaler. The zero value is usable.
type Config struct {
	// Standard output and error. Nil writers discard.
	Stdout, Stderr io.Writer
	// Sink of diagnostics. If nil, a StreamMessenger writing to Stderr is
	// used.
	Messenger diag.Messenger
	// Cache that variable lookups fall back to. If nil, an in-memory cache
	// is used.
	Cache state.Cache
	// Recursion limit. Zero means DefaultMaxRecursionDepth.
	MaxRecursionDepth int
	// ScriptMode makes every failing command a fatal error, and hides the
	// commands that only make sense when configuring a project.
	ScriptMode bool

	Trace       bool
	TraceExpand bool
	TraceFormat TraceFormat

	WarnUninitialized bool
	// Minimum level of messages shown by message(). LogUndefined means
	// LogStatus.
	LogLevel LogLevel
	// Initial environment in the form of os.Environ. If nil, the environment
	// of the process is used. Changes made by set(ENV{...}) are kept in the
	// Evaler and never touch the process environment.
	Environ []string
	// Value of CMAKE_COMMAND.
	Command string
	// Directories searched by include() for modules, after
	// CMAKE_MODULE_PATH.
	ModulePath []string
}

// Evaler is the context of one run: configuring a project or running a
// script. An Evaler is not safe for concurrent use.
type Evaler struct {
	cfg       Config
	state     *state.State
	messenger diag.Messenger
	stdout    io.Writer
	stderr    io.Writer

	// Commands defined by function() and macro(), and builtins added with
	// AddBuiltinCommand.
	scripted map[string]Command
	env      map[string]string

	depth         int
	errorOccurred bool
	fatalOccurred bool
	exitCode      int
	exitCodeSet   bool

	// List files read so far, in order.
	listFiles []string
	// Binary directories in use, mapped to their directories.
	directories map[string]*Directory
	top         *Directory
	scriptDir   *Directory

	watches      map[string][]*watch
	checks       []string
	reported0054 map[diag.Frame]bool
	traceStarted bool
}

// New creates a new Evaler.
func New(cfg Config) *Evaler {
	ev := &Evaler{
		cfg:          cfg,
		state:        state.New(cfg.Cache),
		stdout:       cfg.Stdout,
		stderr:       cfg.Stderr,
		scripted:     make(map[string]Command),
		env:          make(map[string]string),
		directories:  make(map[string]*Directory),
		watches:      make(map[string][]*watch),
		reported0054: make(map[diag.Frame]bool),
	}
	if ev.stdout == nil {
		ev.stdout = io.Discard
	}
	if ev.stderr == nil {
		ev.stderr = io.Discard
	}
	ev.messenger = cfg.Messenger
	if ev.messenger == nil {
		ev.messenger = diag.NewStreamMessenger(ev.stderr, diag.MessengerOptions{})
	}
	environ := cfg.Environ
	if environ == nil {
		environ = os.Environ()
	}
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			ev.env[k] = v
		}
	}
	return ev
}

// State returns the state of the run.
func (ev *Evaler) State() *state.State { return ev.state }

// Config returns the configuration of the Evaler.
func (ev *Evaler) Config() Config { return ev.cfg }

// ErrorOccurred returns whether an error has been reported.
func (ev *Evaler) ErrorOccurred() bool { return ev.errorOccurred || ev.fatalOccurred }

// FatalErrorOccurred returns whether a fatal error stopped execution.
func (ev *Evaler) FatalErrorOccurred() bool { return ev.fatalOccurred }

// ExitCode returns the code passed to cmake_language(EXIT), if any.
func (ev *Evaler) ExitCode() (int, bool) { return ev.exitCode, ev.exitCodeSet }

// ListFiles returns the list files read so far.
func (ev *Evaler) ListFiles() []string {
	return append([]string(nil), ev.listFiles...)
}

// Getenv looks up a variable of the environment of the run.
func (ev *Evaler) Getenv(name string) (string, bool) {
	v, ok := ev.env[name]
	return v, ok
}

// Setenv sets a variable of the environment of the run.
func (ev *Evaler) Setenv(name, value string) { ev.env[name] = value }

// Unsetenv removes a variable from the environment of the run.
func (ev *Evaler) Unsetenv(name string) { delete(ev.env, name) }

// Environ returns the environment of the run in the form of os.Environ,
// sorted by name.
func (ev *Evaler) Environ() []string {
	names := make([]string, 0, len(ev.env))
	for name := range ev.env {
		names = append(names, name)
	}
	sort.Strings(names)
	environ := make([]string, len(names))
	for i, name := range names {
		environ[i] = name + "=" + ev.env[name]
	}
	return environ
}

func (ev *Evaler) issueMessage(t diag.MessageType, text string, bt diag.Backtrace) {
	t = ev.messenger.IssueMessage(t, text, bt)
	if t.IsError() {
		ev.errorOccurred = true
	}
}

func (ev *Evaler) setFatal() { ev.fatalOccurred = true }

func (ev *Evaler) maxRecursionDepth(d *Directory) int {
	if v, ok := d.GetDefinition("CMAKE_MAXIMUM_RECURSION_DEPTH"); ok {
		if n, ok := parseInt(v); ok && n > 0 {
			return int(n)
		}
	}
	if ev.cfg.MaxRecursionDepth > 0 {
		return ev.cfg.MaxRecursionDepth
	}
	return DefaultMaxRecursionDepth
}
