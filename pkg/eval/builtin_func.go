package eval

import (
	"errors"
	"strings"

	"src.cmk.sh/pkg/parse"
	"src.cmk.sh/pkg/state"
)

// Definitions of commands: function and macro.

func init() {
	addBuiltin("function", Func(functionCommand))
	addBuiltin("macro", Func(macroCommand))

	addUnexpected("endfunction", "An ENDFUNCTION command was found outside of a proper FUNCTION ENDFUNCTION structure. "+
		"Or its arguments did not match the opening FUNCTION command.")
	addUnexpected("endmacro", "An ENDMACRO command was found outside of a proper MACRO ENDMACRO structure. "+
		"Or its arguments did not match the opening MACRO command.")
}

func functionCommand(st *Status, args []string) error {
	if len(args) == 0 {
		return errors.New("called with incorrect number of arguments")
	}
	st.Dir().addFunctionBlocker(&definitionBlocker{blockerBase: newBlockerBase(), args: args})
	return nil
}

func macroCommand(st *Status, args []string) error {
	if len(args) == 0 {
		return errors.New("called with incorrect number of arguments")
	}
	st.Dir().addFunctionBlocker(&definitionBlocker{blockerBase: newBlockerBase(), args: args, macro: true})
	return nil
}

// Records the body of a function or a macro.
type definitionBlocker struct {
	blockerBase
	// Name followed by the parameters.
	args  []string
	macro bool
}

func (b *definitionBlocker) startCommand() string {
	if b.macro {
		return "macro"
	}
	return "function"
}

func (b *definitionBlocker) endCommand() string { return "end" + b.startCommand() }

func (b *definitionBlocker) argumentsMatch(fn parse.Function, d *Directory) bool {
	expanded, _ := d.ExpandArguments(fn.Args)
	if len(expanded) == 0 {
		return true
	}
	if b.macro {
		return strings.EqualFold(expanded[0], b.args[0])
	}
	return expanded[0] == b.args[0]
}

func (b *definitionBlocker) replay(fns []parse.Function, st *Status) {
	d := st.Dir()
	def := definition{
		params:    b.args,
		functions: fns,
		file:      b.start.File,
		line:      b.start.Line,
		policies:  d.snap.PolicySettings(),
	}
	var cmd Command = &functionHelper{def}
	if b.macro {
		cmd = &macroHelper{def}
	}
	d.addScriptedCommand(b.args[0], cmd, d.backtrace.Push(b.start))
}

type definition struct {
	params    []string
	functions []parse.Function
	file      string
	line      int
	policies  state.PolicyMap
}

// The command defined by function().
type functionHelper struct{ definition }

func (f *functionHelper) Invoke(st *Status, args []parse.Argument) error {
	d := st.Dir()
	expanded, _ := d.ExpandArguments(args)
	if len(expanded) < len(f.params)-1 {
		return errors.New("Function invoked with incorrect arguments for function named: " + f.params[0])
	}

	pop := d.pushFunctionScope(f.file, f.policies)
	report := true
	defer func() { pop(report) }()

	d.AddDefinition("ARGC", itoa(len(expanded)))
	for i, arg := range expanded {
		d.AddDefinition("ARGV"+itoa(i), arg)
	}
	for j, param := range f.params[1:] {
		d.AddDefinition(param, expanded[j])
	}
	d.AddDefinition("ARGV", JoinList(expanded))
	d.AddDefinition("ARGN", JoinList(expanded[len(f.params)-1:]))
	d.AddDefinition("CMAKE_CURRENT_FUNCTION", f.params[0])
	d.AddDefinition("CMAKE_CURRENT_FUNCTION_LIST_FILE", f.file)
	d.AddDefinition("CMAKE_CURRENT_FUNCTION_LIST_DIR", dirOf(f.file))
	d.AddDefinition("CMAKE_CURRENT_FUNCTION_LIST_LINE", itoa(f.line))

	for _, fn := range f.functions {
		inner := newStatus(d)
		if !d.ExecuteCommand(fn, inner, "") || inner.nestedError {
			// The failure has been reported with the call stack.
			report = false
			st.SetNestedError()
			return nil
		}
		if inner.returnInvoked {
			d.raiseScopes(inner.returnVariables)
			break
		}
		if inner.hasExitCode {
			st.SetExitCode(inner.exitCode)
			break
		}
	}
	return nil
}

// The command defined by macro().
type macroHelper struct{ definition }

func (m *macroHelper) Invoke(st *Status, args []parse.Argument) error {
	d := st.Dir()
	expanded, _ := d.ExpandArguments(args)
	if len(expanded) < len(m.params)-1 {
		return errors.New("Macro invoked with incorrect arguments for macro named: " + m.params[0])
	}

	pop := d.pushMacroScope(m.file, m.policies)
	report := true
	defer func() { pop(report) }()

	argc := itoa(len(expanded))
	argn := JoinList(expanded[len(m.params)-1:])
	argv := JoinList(expanded)
	formals := make([]string, len(m.params)-1)
	for j, param := range m.params[1:] {
		formals[j] = "${" + param + "}"
	}

	for _, fn := range m.functions {
		substituted := fn
		substituted.Args = make([]parse.Argument, len(fn.Args))
		for i, arg := range fn.Args {
			if arg.Delim != parse.Bracket {
				arg.Value = substituteMacroArgs(arg.Value, formals, argc, argn, argv, expanded)
			}
			substituted.Args[i] = arg
		}
		inner := newStatus(d)
		if !d.ExecuteCommand(substituted, inner, "") || inner.nestedError {
			report = false
			st.SetNestedError()
			return nil
		}
		if st.forward(inner) {
			return nil
		}
	}
	return nil
}

// Replaces references to the parameters in the text of a macro argument.
// Parameters are replaced one after the other, so that the value of one can
// form a reference to the next.
func substituteMacroArgs(s string, formals []string, argc, argn, argv string, args []string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	for j, formal := range formals {
		s = strings.ReplaceAll(s, formal, args[j])
	}
	s = strings.ReplaceAll(s, "${ARGC}", argc)
	s = strings.ReplaceAll(s, "${ARGN}", argn)
	s = strings.ReplaceAll(s, "${ARGV}", argv)
	if strings.Contains(s, "${ARGV") {
		for i, arg := range args {
			s = strings.ReplaceAll(s, "${ARGV"+itoa(i)+"}", arg)
		}
	}
	return s
}
