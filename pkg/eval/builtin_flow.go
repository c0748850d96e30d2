package eval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/parse"
	"src.cmk.sh/pkg/state"
)

// Flow control: if, foreach, while, break, continue, return and block.

func init() {
	addBuiltin("if", RawFunc(ifCommand))
	addBuiltin("foreach", Func(foreachCommand))
	addBuiltin("while", RawFunc(whileCommand))
	addBuiltin("break", Func(breakCommand))
	addBuiltin("continue", Func(continueCommand))
	addBuiltin("return", Func(returnCommand))
	addBuiltin("block", Func(blockCommand))

	addUnexpected("else", "An ELSE command was found outside of a proper IF ENDIF structure. "+
		"Or its arguments did not match the opening IF command.")
	addUnexpected("elseif", "An ELSEIF command was found outside of a proper IF ENDIF structure.")
	addUnexpected("endif", "An ENDIF command was found outside of a proper IF ENDIF structure. "+
		"Or its arguments did not match the opening IF command.")
	addUnexpected("endforeach", "An ENDFOREACH command was found outside of a proper FOREACH ENDFOREACH structure. "+
		"Or its arguments did not match the opening FOREACH command.")
	addUnexpected("endwhile", "An ENDWHILE command was found outside of a proper WHILE ENDWHILE structure. "+
		"Or its arguments did not match the opening WHILE command.")
	addUnexpected("endblock", "An ENDBLOCK command was found outside of a proper BLOCK ENDBLOCK structure.")
}

// Prefix of messages about bad conditions.
func conditionError(args []expandedArg) string {
	return "given arguments:\n " + quotedArgs(args) + "\n\n"
}

type ifBlocker struct {
	blockerBase
	args     []parse.Argument
	blocking bool
	hasRun   bool
	elseSeen bool
}

func ifCommand(st *Status, args []parse.Argument) error {
	d := st.Dir()
	expanded, ok := d.expandArgumentsQuoted(args)
	if !ok {
		return nil
	}
	ce := newConditionEvaluator(d, d.backtrace)
	isTrue := ce.isTrue(expanded)
	if ce.err != "" {
		msg := "if " + conditionError(expanded) + ce.err
		d.IssueMessage(ce.errType, msg)
		if ce.errType == diag.FatalError {
			d.ev.setFatal()
			return nil
		}
	}
	d.addFunctionBlocker(&ifBlocker{blockerBase: newBlockerBase(),
		args: args, blocking: !isTrue, hasRun: isTrue})
	return nil
}

func (b *ifBlocker) startCommand() string { return "if" }
func (b *ifBlocker) endCommand() string   { return "endif" }

func (b *ifBlocker) argumentsMatch(fn parse.Function, _ *Directory) bool {
	return len(fn.Args) == 0 || argumentsEqual(fn.Args, b.args)
}

func (b *ifBlocker) replay(fns []parse.Function, st *Status) {
	d := st.Dir()
	ev := d.ev
	depth := 0
	for _, fn := range fns {
		switch fn.LowerName {
		case "if":
			depth++
		case "endif":
			depth--
		}
		if depth == 0 && (fn.LowerName == "else" || fn.LowerName == "elseif") {
			bt := d.backtrace.Push(diag.Frame{File: b.start.File, Line: fn.Line, Name: fn.OriginalName})
			if fn.LowerName == "else" {
				if b.elseSeen {
					d.issueMessageAt(diag.FatalError, "A duplicate ELSE command was found inside an IF block.", bt)
					ev.setFatal()
					return
				}
				b.blocking = b.hasRun
				b.hasRun = true
				b.elseSeen = true
				if !b.blocking && ev.cfg.Trace {
					d.printCommandTrace(fn, b.start.File, "")
				}
				continue
			}
			if b.elseSeen {
				d.issueMessageAt(diag.FatalError, "An ELSEIF command was found after an ELSE command.", bt)
				ev.setFatal()
				return
			}
			if b.hasRun {
				b.blocking = true
				continue
			}
			if ev.cfg.Trace {
				d.printCommandTrace(fn, b.start.File, "")
			}
			if b.elseIf(d, fn, bt) {
				b.blocking = false
				b.hasRun = true
			}
			if ev.fatalOccurred {
				return
			}
			continue
		}
		if b.blocking {
			continue
		}
		inner := newStatus(d)
		d.ExecuteCommand(fn, inner, "")
		if st.forward(inner) {
			return
		}
	}
}

// Evaluates the condition of an elseif in the context bt.
func (b *ifBlocker) elseIf(d *Directory, fn parse.Function, bt diag.Backtrace) bool {
	saved := d.backtrace
	d.backtrace = bt
	defer func() { d.backtrace = saved }()
	expanded, ok := d.expandArgumentsQuoted(fn.Args)
	if !ok {
		return false
	}
	ce := newConditionEvaluator(d, bt)
	isTrue := ce.isTrue(expanded)
	if ce.err != "" {
		d.issueMessageAt(ce.errType, conditionError(expanded)+ce.err, bt)
		if ce.errType == diag.FatalError {
			d.ev.setFatal()
			return false
		}
	}
	return isTrue
}

type foreachBlocker struct {
	blockerBase
	// The loop variables followed by the items, or, with zipLists, by the
	// names of the lists.
	args     []string
	varCount int
	zipLists bool
}

func (d *Directory) addLoopBlocker(b functionBlocker) {
	d.pushLoopBlock()
	b.base().onRemove = d.popLoopBlock
	d.addFunctionBlocker(b)
}

func foreachCommand(st *Status, args []string) error {
	d := st.Dir()
	if len(args) == 0 {
		return errors.New("called with incorrect number of arguments")
	}
	for i, arg := range args {
		if arg == "IN" {
			d.foreachIn(args[:i], args[i+1:])
			return nil
		}
	}
	b := &foreachBlocker{blockerBase: newBlockerBase(), varCount: 1}
	if len(args) > 1 && args[1] == "RANGE" {
		var start, stop, step int
		var err error
		switch len(args) {
		case 3:
			stop, err = parseRangeInt(args[2])
		case 4:
			start, err = parseRangeInt(args[2])
			if err == nil {
				stop, err = parseRangeInt(args[3])
			}
		case 5:
			start, err = parseRangeInt(args[2])
			if err == nil {
				stop, err = parseRangeInt(args[3])
			}
			if err == nil {
				step, err = parseRangeInt(args[4])
			}
		}
		if err != nil {
			d.ev.setFatal()
			return err
		}
		if step == 0 {
			if start > stop {
				step = -1
			} else {
				step = 1
			}
		}
		if (start > stop && step > 0) || (start < stop && step < 0) {
			d.ev.setFatal()
			return fmt.Errorf("called with incorrect range specification: start %d, stop %d, step %d",
				start, stop, step)
		}
		b.args = []string{args[0]}
		for i := start; (step > 0 && i <= stop) || (step < 0 && i >= stop); i += step {
			b.args = append(b.args, strconv.Itoa(i))
		}
	} else {
		b.args = args
	}
	d.addLoopBlocker(b)
	return nil
}

// Parses an integer like C++'s std::stoi: leading white space and trailing
// garbage are ignored.
func parseRangeInt(s string) (int, error) {
	t := strings.TrimLeft(s, " \t\n\r\f\v")
	end := 0
	if end < len(t) && (t[end] == '+' || t[end] == '-') {
		end++
	}
	digits := end
	for end < len(t) && '0' <= t[end] && t[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, fmt.Errorf("Invalid integer: '%s'", s)
	}
	n, err := strconv.ParseInt(t[:end], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("Integer out of range: '%s'", s)
	}
	return int(n), nil
}

// foreach(vars... IN [LISTS lists...] [ITEMS items...]) and
// foreach(vars... IN ZIP_LISTS lists...).
func (d *Directory) foreachIn(vars, rest []string) {
	b := &foreachBlocker{blockerBase: newBlockerBase(),
		args: append([]string(nil), vars...), varCount: len(vars)}
	const zipError = "ZIP_LISTS can not be used with LISTS or ITEMS"
	mode := ""
	for _, arg := range rest {
		switch {
		case arg == "LISTS" || arg == "ITEMS":
			if mode == "ZIP_LISTS" {
				d.IssueMessage(diag.FatalError, zipError)
				return
			}
			mode = arg
		case arg == "ZIP_LISTS":
			if mode != "" {
				d.IssueMessage(diag.FatalError, zipError)
				return
			}
			mode = arg
			b.zipLists = true
		case mode == "LISTS":
			if v := d.GetSafeDefinition(arg); v != "" {
				b.args = append(b.args, ExpandList(v, true)...)
			}
		case mode == "ITEMS" || mode == "ZIP_LISTS":
			b.args = append(b.args, arg)
		default:
			d.IssueMessage(diag.FatalError, "Unknown argument:\n  "+arg+"\n")
			return
		}
	}
	if !b.zipLists && len(vars) != 1 {
		d.IssueMessage(diag.FatalError, "Expected exactly one loop variable without ZIP_LISTS, but given "+
			itoa(len(vars)))
		return
	}
	if b.zipLists && len(vars) > 1 && len(b.args) != 2*len(vars) {
		d.IssueMessage(diag.FatalError, "Expected "+itoa(len(vars))+" list variables, but given "+
			itoa(len(b.args)-len(vars)))
		return
	}
	d.addLoopBlocker(b)
}

func (b *foreachBlocker) startCommand() string { return "foreach" }
func (b *foreachBlocker) endCommand() string   { return "endforeach" }

func (b *foreachBlocker) argumentsMatch(fn parse.Function, d *Directory) bool {
	expanded, _ := d.ExpandArguments(fn.Args)
	return len(expanded) == 0 || expanded[0] == b.args[0]
}

func (b *foreachBlocker) replay(fns []parse.Function, st *Status) {
	if len(b.args) == b.varCount {
		return
	}
	if b.zipLists {
		b.replayZipLists(fns, st)
	} else {
		b.replayItems(fns, st)
	}
}

// The value a loop variable is restored to after the loop; nil means unset.
func loopVarSaved(d *Directory, name string) *string {
	if d.GetPolicy(state.CMP0124) != state.PolicyNew {
		v := d.GetSafeDefinition(name)
		return &v
	}
	if d.IsNormalDefinitionSet(name) {
		v := d.GetSafeDefinition(name)
		return &v
	}
	return nil
}

func restoreLoopVar(d *Directory, name string, saved *string) {
	if saved != nil {
		d.AddDefinition(name, *saved)
	} else {
		d.RemoveDefinition(name)
	}
}

func (b *foreachBlocker) replayItems(fns []parse.Function, st *Status) {
	d := st.Dir()
	name := b.args[0]
	saved := loopVarSaved(d, name)
	restore := false
	for _, item := range b.args[1:] {
		d.AddDefinition(name, item)
		var stop bool
		restore, stop = b.invoke(d, fns, st)
		if stop {
			break
		}
	}
	if restore {
		restoreLoopVar(d, name, saved)
	}
}

func (b *foreachBlocker) replayZipLists(fns []parse.Function, st *Status) {
	d := st.Dir()
	var values [][]string
	maxItems := 0
	for _, name := range b.args[b.varCount:] {
		var items []string
		if v := d.GetSafeDefinition(name); v != "" {
			items = ExpandList(v, true)
		}
		if len(items) > maxItems {
			maxItems = len(items)
		}
		values = append(values, items)
	}
	vars := b.args[:b.varCount]
	if b.varCount == 1 {
		vars = make([]string, len(values))
		for i := range values {
			vars[i] = b.args[0] + "_" + itoa(i)
		}
	}
	saved := make([]*string, len(vars))
	for i, name := range vars {
		saved[i] = loopVarSaved(d, name)
	}
	restore := false
	for item := 0; item < maxItems; item++ {
		for i, list := range values {
			if item < len(list) {
				d.AddDefinition(vars[i], list[item])
			} else {
				d.RemoveDefinition(vars[i])
			}
		}
		var stop bool
		restore, stop = b.invoke(d, fns, st)
		if stop {
			break
		}
	}
	if restore {
		for i, name := range vars {
			restoreLoopVar(d, name, saved[i])
		}
	}
}

// Runs one iteration. It returns whether the loop variables should be
// restored and whether the loop should stop.
func (b *foreachBlocker) invoke(d *Directory, fns []parse.Function, st *Status) (restore, stop bool) {
	for _, fn := range fns {
		inner := newStatus(d)
		d.ExecuteCommand(fn, inner, "")
		switch {
		case inner.returnInvoked:
			st.SetReturnInvoked(inner.returnVariables)
			return true, true
		case inner.breakInvoked:
			return true, true
		case inner.continueInvoked:
			return true, false
		case inner.hasExitCode:
			st.SetExitCode(inner.exitCode)
			return true, true
		case d.ev.fatalOccurred:
			return false, true
		}
	}
	return true, false
}

type whileBlocker struct {
	blockerBase
	args []parse.Argument
}

func whileCommand(st *Status, args []parse.Argument) error {
	if len(args) == 0 {
		return errors.New("called with incorrect number of arguments")
	}
	st.Dir().addLoopBlocker(&whileBlocker{blockerBase: newBlockerBase(), args: args})
	return nil
}

func (b *whileBlocker) startCommand() string { return "while" }
func (b *whileBlocker) endCommand() string   { return "endwhile" }

func (b *whileBlocker) argumentsMatch(fn parse.Function, _ *Directory) bool {
	return len(fn.Args) == 0 || argumentsEqual(fn.Args, b.args)
}

// Evaluates the condition in the context bt.
func (b *whileBlocker) condition(d *Directory, bt diag.Backtrace) (bool, bool) {
	saved := d.backtrace
	d.backtrace = bt
	defer func() { d.backtrace = saved }()
	expanded, ok := d.expandArgumentsQuoted(b.args)
	if !ok {
		return false, false
	}
	ce := newConditionEvaluator(d, bt)
	isTrue := ce.isTrue(expanded)
	if ce.err != "" {
		d.issueMessageAt(ce.errType, "while() given incorrect arguments:\n "+quotedArgs(expanded)+
			"\n\n"+ce.err, bt)
		if ce.errType == diag.FatalError {
			d.ev.setFatal()
		}
		return false, false
	}
	return isTrue, true
}

func (b *whileBlocker) replay(fns []parse.Function, st *Status) {
	d := st.Dir()
	bt := d.backtrace.Push(b.start)
	for {
		isTrue, ok := b.condition(d, bt)
		if !ok || !isTrue {
			return
		}
	body:
		for _, fn := range fns {
			inner := newStatus(d)
			d.ExecuteCommand(fn, inner, "")
			switch {
			case inner.returnInvoked:
				st.SetReturnInvoked(inner.returnVariables)
				return
			case inner.breakInvoked:
				return
			case inner.continueInvoked:
				break body
			case inner.hasExitCode:
				st.SetExitCode(inner.exitCode)
				return
			case d.ev.fatalOccurred:
				return
			}
		}
	}
}

// Reports a misuse of break() according to policy CMP0055. It returns
// false if the misuse is an error.
func checkBreak(d *Directory, msg string) bool {
	switch d.GetPolicy(state.CMP0055) {
	case state.PolicyOld:
		return true
	case state.PolicyWarn:
		d.IssueMessage(diag.AuthorWarning, policyWarning(state.CMP0055)+"\n"+msg)
		return true
	default:
		d.IssueMessage(diag.FatalError, msg)
		return false
	}
}

func breakCommand(st *Status, args []string) error {
	d := st.Dir()
	if !d.isLoopBlock() &&
		!checkBreak(d, "A BREAK command was found outside of a proper FOREACH or WHILE loop scope.") {
		return nil
	}
	st.SetBreakInvoked()
	if len(args) > 0 {
		checkBreak(d, "The BREAK command does not accept any arguments.")
	}
	return nil
}

func continueCommand(st *Status, args []string) error {
	d := st.Dir()
	if !d.isLoopBlock() {
		d.IssueMessage(diag.FatalError,
			"A CONTINUE command was found outside of a proper FOREACH or WHILE loop scope.")
		d.ev.setFatal()
		return nil
	}
	st.SetContinueInvoked()
	if len(args) > 0 {
		d.IssueMessage(diag.FatalError, "The CONTINUE command does not accept any arguments.")
		d.ev.setFatal()
	}
	return nil
}

func returnCommand(st *Status, args []string) error {
	d := st.Dir()
	if len(args) == 0 {
		st.SetReturnInvoked(nil)
		return nil
	}
	switch d.GetPolicy(state.CMP0140) {
	case state.PolicyWarn:
		d.IssueMessage(diag.AuthorWarning, policyWarning(state.CMP0140)+"\n"+
			"return() checks its arguments when the policy is set to NEW. "+
			"Since the policy is not set the OLD behavior will be used so the arguments will be ignored.")
		fallthrough
	case state.PolicyOld:
		st.SetReturnInvoked(nil)
		return nil
	}
	if args[0] != "PROPAGATE" {
		d.ev.setFatal()
		return fmt.Errorf("called with unsupported argument %q", args[0])
	}
	st.SetReturnInvoked(args[1:])
	return nil
}

type blockBlocker struct {
	blockerBase
	policies  bool
	variables bool
	propagate []string
}

func blockCommand(st *Status, args []string) error {
	d := st.Dir()
	var scopeFor, propagate []string
	scopeForSeen := false
	keyword := ""
	for _, arg := range args {
		switch {
		case arg == "SCOPE_FOR":
			keyword, scopeForSeen = arg, true
		case arg == "PROPAGATE":
			keyword = arg
		case keyword == "SCOPE_FOR":
			scopeFor = append(scopeFor, arg)
		case keyword == "PROPAGATE":
			propagate = append(propagate, arg)
		default:
			d.ev.setFatal()
			return fmt.Errorf("called with unsupported argument %q", arg)
		}
	}
	if scopeForSeen && len(scopeFor) == 0 {
		d.IssueMessage(diag.FatalError, "Error after keyword \"SCOPE_FOR\":\n  missing required value")
		d.ev.setFatal()
		return nil
	}

	b := &blockBlocker{blockerBase: newBlockerBase(), propagate: propagate}
	if !scopeForSeen {
		b.policies, b.variables = true, true
	}
	for _, scope := range scopeFor {
		switch scope {
		case "POLICIES":
			b.policies = true
		case "VARIABLES":
			b.variables = true
		default:
			d.ev.setFatal()
			return fmt.Errorf("SCOPE_FOR unsupported scope %q", scope)
		}
	}
	if !b.variables && len(propagate) > 0 {
		d.ev.setFatal()
		return errors.New("PROPAGATE cannot be specified without a new scope for VARIABLES")
	}

	if b.policies {
		d.snap = d.snap.CreatePolicyScopeSnapshot()
	}
	if b.variables {
		d.snap = d.snap.CreateVariableScopeSnapshot()
	}
	pushed := d.snap
	b.onRemove = func() {
		d.snap = pushed
		report := !d.ev.fatalOccurred
		if b.variables {
			d.raiseScopes(b.propagate)
			d.popSnapshot(report)
		}
		if b.policies {
			d.popSnapshot(report)
		}
	}
	d.addFunctionBlocker(b)
	return nil
}

func (b *blockBlocker) startCommand() string { return "block" }
func (b *blockBlocker) endCommand() string   { return "endblock" }

func (b *blockBlocker) argumentsMatch(fn parse.Function, _ *Directory) bool {
	return len(fn.Args) == 0
}

func (b *blockBlocker) replay(fns []parse.Function, st *Status) {
	d := st.Dir()
	for _, fn := range fns {
		inner := newStatus(d)
		d.ExecuteCommand(fn, inner, "")
		if inner.returnInvoked {
			d.raiseScopes(inner.returnVariables)
			st.SetReturnInvoked(inner.returnVariables)
			return
		}
		if st.forward(inner) || d.ev.fatalOccurred {
			return
		}
	}
}
