package eval

import (
	"errors"
	"sort"
	"strings"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/parse"
)

// Command is the handler of a command. It receives the arguments as written
// in the source and the status of the invocation.
//
// A non-nil error makes the dispatcher report "<name> <error>" as a fatal
// error. A handler that has already issued its own diagnostic returns
// ErrReported instead.
type Command interface {
	Invoke(st *Status, args []parse.Argument) error
}

// ErrReported is returned by command handlers whose failure has already been
// diagnosed.
var ErrReported = errors.New("error already reported")

// RawFunc adapts a function receiving unexpanded arguments to a Command.
type RawFunc func(st *Status, args []parse.Argument) error

// Invoke implements Command.
func (f RawFunc) Invoke(st *Status, args []parse.Argument) error { return f(st, args) }

// Func adapts a function receiving expanded arguments to a Command. If the
// expansion fails the error is reported and the function is not called.
type Func func(st *Status, args []string) error

// Invoke implements Command.
func (f Func) Invoke(st *Status, args []parse.Argument) error {
	expanded, ok := st.Dir().ExpandArguments(args)
	if !ok {
		return nil
	}
	return f(st, expanded)
}

type builtin struct {
	cmd Command
	// Whether the command is available in script mode.
	scriptable bool
}

var builtins = make(map[string]builtin)

// Flow control commands can't be redefined by function() or macro().
var flowControl = map[string]bool{
	"break": true, "continue": true, "return": true,
	"if": true, "elseif": true, "else": true, "endif": true,
	"foreach": true, "endforeach": true, "while": true, "endwhile": true,
	"function": true, "endfunction": true, "macro": true, "endmacro": true,
	"block": true, "endblock": true,
}

func addBuiltin(name string, cmd Command) {
	builtins[name] = builtin{cmd, true}
}

// Adds a builtin that is only available when configuring a project.
func addProjectBuiltin(name string, cmd Command) {
	builtins[name] = builtin{cmd, false}
}

// Adds a closing command that fails when it is not consumed by the block
// it closes. A stray endif() is tolerated in projects that don't require a
// version above 1.4.
func addUnexpected(name, msg string) {
	addBuiltin(name, RawFunc(func(st *Status, args []parse.Argument) error {
		if name == "endif" {
			v, ok := st.Dir().GetDefinition("CMAKE_MINIMUM_REQUIRED_VERSION")
			if f, _ := parseLeadingFloat(v); !ok || f <= 1.4 {
				return nil
			}
		}
		return errors.New(msg)
	}))
}

// BuiltinNames returns the names of all builtin commands, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsBuiltin returns whether name is the name of a builtin command.
func IsBuiltin(name string) bool {
	_, ok := builtins[strings.ToLower(name)]
	return ok
}

// AddBuiltinCommand registers a command for this Evaler. It takes precedence
// over a builtin of the same name.
func (ev *Evaler) AddBuiltinCommand(name string, cmd Command) {
	ev.scripted[strings.ToLower(name)] = cmd
}

// LookupCommand finds the command with the given name, ignoring case.
func (ev *Evaler) LookupCommand(name string) (Command, bool) {
	name = strings.ToLower(name)
	if cmd, ok := ev.scripted[name]; ok {
		return cmd, true
	}
	if b, ok := builtins[name]; ok && (b.scriptable || !ev.cfg.ScriptMode) {
		return b.cmd, true
	}
	return nil, false
}

// CommandNames returns the names of all commands that can be invoked,
// sorted.
func (ev *Evaler) CommandNames() []string {
	seen := make(map[string]bool)
	var names []string
	for name, b := range builtins {
		if b.scriptable || !ev.cfg.ScriptMode {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range ev.scripted {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Adds a command defined by function() or macro(). An existing command of
// the same name stays available as "_<name>". The backtrace locates the
// definition.
func (d *Directory) addScriptedCommand(name string, cmd Command, bt diag.Backtrace) bool {
	ev := d.ev
	lower := strings.ToLower(name)
	if flowControl[lower] {
		d.issueMessageAt(diag.FatalError, `Built-in flow control command "`+lower+`" cannot be overridden.`, bt)
		ev.setFatal()
		return false
	}
	if old, ok := ev.LookupCommand(lower); ok {
		ev.scripted["_"+lower] = old
	}
	ev.scripted[lower] = cmd
	return true
}
