package eval

import (
	"errors"
	"strings"

	"src.cmk.sh/pkg/parse"
)

func init() {
	addBuiltin("cmake_language", RawFunc(languageCommand))
}

// Commands that cmake_language(CALL) can't call.
var uncallable = map[string]bool{
	"function": true, "endfunction": true, "macro": true, "endmacro": true,
	"if": true, "elseif": true, "else": true, "endif": true,
	"while": true, "endwhile": true, "foreach": true, "endforeach": true,
	"block": true, "endblock": true,
}

// Arguments of cmake_language, expanded one raw argument at a time so that
// the arguments of CALL can be passed on unexpanded.
type languageArgs struct {
	d      *Directory
	raw    []parse.Argument
	rawPos int
	exp    []string
	pos    int
}

// Makes sure there is an unconsumed expanded argument, expanding more raw
// arguments if needed.
func (a *languageArgs) more() bool {
	for a.pos >= len(a.exp) {
		if a.rawPos >= len(a.raw) {
			return false
		}
		v, _ := a.d.ExpandArguments(a.raw[a.rawPos : a.rawPos+1])
		a.rawPos++
		a.exp = append(a.exp, v...)
	}
	return true
}

// Expands all remaining raw arguments.
func (a *languageArgs) finish() {
	v, _ := a.d.ExpandArguments(a.raw[a.rawPos:])
	a.rawPos = len(a.raw)
	a.exp = append(a.exp, v...)
}

func (a *languageArgs) peek() string { return a.exp[a.pos] }

func (a *languageArgs) next() string {
	s := a.exp[a.pos]
	a.pos++
	return s
}

func (a *languageArgs) rest() []string { return a.exp[a.pos:] }

type deferOptions struct {
	dir   *Directory
	id    string
	idVar string
}

func languageCommand(st *Status, raw []parse.Argument) error {
	d := st.Dir()
	// Errors of cmake_language stop the run.
	fatal := func(msg string) error {
		d.ev.setFatal()
		return errors.New(msg)
	}
	a := &languageArgs{d: d, raw: raw}
	if !a.more() {
		return fatal("called with incorrect number of arguments")
	}

	var deferred *deferOptions
	switch a.peek() {
	case "EXIT":
		a.next()
		if !a.more() {
			return fatal("EXIT requires one argument")
		}
		if !d.ev.cfg.ScriptMode {
			return fatal("EXIT can be used only in SCRIPT mode")
		}
		code, ok := parseInt(a.next())
		if !ok {
			return fatal("EXIT requires one argument of type integer")
		}
		st.SetExitCode(int(code))
		return nil
	case "DEFER":
		a.next()
		if !a.more() {
			return fatal("DEFER requires at least one argument")
		}
		deferred = &deferOptions{}
		for a.more() && a.peek() != "CALL" {
			switch opt := a.next(); opt {
			case "CANCEL_CALL", "GET_CALL_IDS", "GET_CALL":
				if deferred.id != "" || deferred.idVar != "" {
					return fatal(`"` + opt + `" does not accept ID or ID_VAR.`)
				}
				a.finish()
				target := d
				if deferred.dir != nil {
					target = deferred.dir
				}
				if err := deferQuery(d, target, opt, a.rest()); err != nil {
					return fatal(err.Error())
				}
				return nil
			case "DIRECTORY":
				if deferred.dir != nil {
					return fatal("DEFER given multiple DIRECTORY arguments")
				}
				if !a.more() {
					return fatal("DEFER DIRECTORY missing value")
				}
				dir := collapseFullPath(a.next(), d.SourceDir())
				target := d.ev.directoryBySource(dir)
				if target == nil {
					return fatal("DEFER DIRECTORY:\n  " + dir + "\nis not known.  It may not have been processed yet.")
				}
				deferred.dir = target
			case "ID":
				if deferred.id != "" {
					return fatal("DEFER given multiple ID arguments")
				}
				if !a.more() {
					return fatal("DEFER ID missing value")
				}
				deferred.id = a.next()
				if deferred.id == "" {
					return fatal("DEFER ID may not be empty")
				}
				if c := deferred.id[0]; 'A' <= c && c <= 'Z' {
					return fatal("DEFER ID may not start in A-Z.")
				}
			case "ID_VAR":
				if deferred.idVar != "" {
					return fatal("DEFER given multiple ID_VAR arguments")
				}
				if !a.more() {
					return fatal("DEFER ID_VAR missing variable name")
				}
				deferred.idVar = a.next()
				if deferred.idVar == "" {
					return fatal("DEFER ID_VAR given empty variable name")
				}
			default:
				return fatal("DEFER unknown option:\n  " + opt)
			}
		}
		if !a.more() || a.peek() != "CALL" {
			return fatal("DEFER must be followed by a CALL argument")
		}
	}

	switch a.peek() {
	case "CALL":
		a.next()
		if !a.more() {
			return fatal("CALL missing command name")
		}
		command := a.next()
		if a.pos != len(a.exp) {
			return fatal("CALL command's arguments must be literal")
		}
		return languageCall(st, command, raw[a.rawPos:], deferred, fatal)
	case "EVAL":
		a.next()
		a.finish()
		rest := a.rest()
		if len(rest) == 0 || rest[0] != "CODE" {
			return fatal("called without CODE argument")
		}
		top := d.backtrace.Top()
		name := top.File + ":" + itoa(top.Line) + ":EVAL"
		if !d.readListFileAsString(strings.Join(rest[1:], " "), name) {
			return ErrReported
		}
		return nil
	case "GET_MESSAGE_LOG_LEVEL":
		a.next()
		a.finish()
		rest := a.rest()
		if len(rest) != 1 {
			return fatal("called with incorrect number of arguments")
		}
		d.AddDefinition(rest[0], strings.ToUpper(d.logLevel().String()))
		return nil
	}
	return fatal("called with unknown meta-operation")
}

// Calls a command, or defers the call. The arguments are passed on as
// written.
func languageCall(st *Status, command string, args []parse.Argument, deferred *deferOptions, fatal func(string) error) error {
	d := st.Dir()
	if uncallable[strings.ToLower(command)] {
		return fatal("invalid command specified: " + command)
	}
	top := d.backtrace.Top()
	callArgs := make([]parse.Argument, len(args))
	for i, arg := range args {
		callArgs[i] = parse.Argument{Value: arg.Value, Delim: arg.Delim, Line: top.Line}
	}
	fn := parse.NewFunction(command, top.Line, callArgs)

	if deferred == nil {
		if !d.ExecuteCommand(fn, st, "") {
			return ErrReported
		}
		return nil
	}
	target := d
	if deferred.dir != nil {
		target = deferred.dir
	}
	if target.deferred == nil {
		return fatal("DEFER CALL may not be scheduled in directory:\n  " + target.BinaryDir() + "\nat this time.")
	}
	id := deferred.id
	if id == "" {
		id = target.deferred.nextID()
	}
	if deferred.idVar != "" {
		d.AddDefinition(deferred.idVar, id)
	}
	target.DeferCall(id, top.File, fn)
	return nil
}

// GET_CALL_IDS, GET_CALL and CANCEL_CALL of cmake_language(DEFER).
func deferQuery(d, target *Directory, op string, args []string) error {
	notNow := func(what string) error {
		return errors.New("DEFER " + op + " may not " + what + " directory:\n  " + target.BinaryDir() + "\nat this time.")
	}
	switch op {
	case "CANCEL_CALL":
		for _, id := range args {
			if id != "" && 'A' <= id[0] && id[0] <= 'Z' {
				return errors.New("DEFER CANCEL_CALL unknown argument:\n  " + id)
			}
			if !target.DeferCancel([]string{id}) {
				return notNow("update")
			}
		}
	case "GET_CALL_IDS":
		if len(args) == 0 {
			return errors.New("DEFER GET_CALL_IDS missing output variable")
		}
		if len(args) > 1 {
			return errors.New("DEFER GET_CALL_IDS given too many arguments")
		}
		ids, ok := target.DeferIDs()
		if !ok {
			return notNow("access")
		}
		d.AddDefinition(args[0], JoinList(ids))
	case "GET_CALL":
		if len(args) == 0 {
			return errors.New("DEFER GET_CALL missing id")
		}
		if len(args) == 1 {
			return errors.New("DEFER GET_CALL missing output variable")
		}
		if len(args) > 2 {
			return errors.New("DEFER GET_CALL given too many arguments")
		}
		id := args[0]
		if id == "" {
			return errors.New("DEFER GET_CALL id may not be empty")
		}
		if 'A' <= id[0] && id[0] <= 'Z' {
			return errors.New("DEFER GET_CALL unknown argument:\n " + id)
		}
		call, ok := target.DeferGetCall(id)
		if !ok {
			return notNow("access")
		}
		d.AddDefinition(args[1], call)
	}
	return nil
}

// Finds a directory that has been configured by its source directory.
func (ev *Evaler) directoryBySource(dir string) *Directory {
	for _, d := range ev.directories {
		if d.SourceDir() == dir {
			return d
		}
	}
	return nil
}
