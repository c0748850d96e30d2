package eval

import (
	"strings"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/parse"
)

// Access is a kind of access to a watched variable.
type Access int

// Kinds of access.
const (
	ReadAccess Access = iota
	UnknownReadAccess
	ModifiedAccess
	UnknownModifiedAccess
	RemovedAccess
)

var accessNames = [...]string{
	ReadAccess:            "READ_ACCESS",
	UnknownReadAccess:     "UNKNOWN_READ_ACCESS",
	ModifiedAccess:        "MODIFIED_ACCESS",
	UnknownModifiedAccess: "UNKNOWN_MODIFIED_ACCESS",
	RemovedAccess:         "REMOVED_ACCESS",
}

func (a Access) String() string { return accessNames[a] }

// WatchFunc is called when a watched variable is accessed.
type WatchFunc func(d *Directory, name string, access Access, value string)

type watch struct {
	fn      WatchFunc
	running bool
}

// AddWatch registers fn to be called on every access to a variable.
func (ev *Evaler) AddWatch(name string, fn WatchFunc) {
	ev.watches[name] = append(ev.watches[name], &watch{fn: fn})
}

func (ev *Evaler) watched(name string) bool { return len(ev.watches[name]) > 0 }

// Calls the watches of a variable, except those already running. It returns
// whether any was called.
func (ev *Evaler) notifyWatch(d *Directory, name string, access Access, value string) bool {
	called := false
	for _, w := range ev.watches[name] {
		if w.running {
			continue
		}
		w.running = true
		w.fn(d, name, access, value)
		w.running = false
		called = true
	}
	return called
}

// The watch of variable_watch(). With no command, it logs the access.
func commandWatch(command string) WatchFunc {
	return func(d *Directory, name string, access Access, value string) {
		if command == "" {
			d.IssueMessage(diag.Log, `Variable "`+name+`" was accessed using `+access.String()+
				` with value "`+value+`".`)
			return
		}
		line := d.backtrace.Top().Line
		arg := func(s string) parse.Argument { return parse.Argument{Value: s, Delim: parse.Bracket, Line: line} }
		fn := parse.NewFunction(command, line, []parse.Argument{
			arg(name), arg(access.String()), arg(value),
			arg(d.GetSafeDefinition("CMAKE_CURRENT_LIST_FILE")),
			arg(listFileStack(d.backtrace)),
		})
		st := newStatus(d)
		if !d.ExecuteCommand(fn, st, "") {
			d.IssueMessage(diag.FatalError, "Error in cmake code at\nUnknown:0:\nA command failed during the invocation of callback \""+
				command+"\".")
		}
	}
}

// Files of the frames of bt, outermost first, as a list.
func listFileStack(bt diag.Backtrace) string {
	frames := bt.Frames()
	files := make([]string, len(frames))
	for i, f := range frames {
		files[len(frames)-1-i] = f.File
	}
	return strings.Join(files, ";")
}
