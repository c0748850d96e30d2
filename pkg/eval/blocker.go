package eval

import (
	"strings"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/parse"
)

// A functionBlocker is an open block, like an if or a function definition.
// While it is on top of the blocker stack of a Directory, it records the
// commands that would otherwise be executed, until the closing command is
// seen. Then it is removed and replays the recorded commands.
type functionBlocker interface {
	base() *blockerBase
	// Lower-cased names of the commands opening and closing the block.
	startCommand() string
	endCommand() string
	// Whether the arguments of the closing command match the opening one.
	argumentsMatch(fn parse.Function, d *Directory) bool
	replay(fns []parse.Function, st *Status)
}

type blockerBase struct {
	// Context of the opening command.
	start diag.Frame
	// Number of open blocks of the same kind, including this one.
	depth     int
	functions []parse.Function
	// Called after the blocker has been removed from the stack, whether
	// closed or unwound.
	onRemove func()
}

func (b *blockerBase) base() *blockerBase { return b }

func newBlockerBase() blockerBase { return blockerBase{depth: 1} }

func (d *Directory) addFunctionBlocker(b functionBlocker) {
	if len(d.statusStack) > 0 {
		b.base().start = d.backtrace.Top()
	}
	d.blockers = append(d.blockers, b)
}

func (d *Directory) removeFunctionBlocker() functionBlocker {
	n := len(d.blockers)
	if n == 0 || (len(d.barriers) > 0 && n <= d.barriers[len(d.barriers)-1]) {
		return nil
	}
	b := d.blockers[n-1]
	d.blockers = d.blockers[:n-1]
	return b
}

// Gives the blocker on top of the stack a chance to take fn. It returns
// whether fn was consumed.
func (d *Directory) isFunctionBlocked(fn parse.Function, st *Status) bool {
	n := len(d.blockers)
	if n == 0 {
		return false
	}
	if len(d.barriers) > 0 && n <= d.barriers[len(d.barriers)-1] {
		return false
	}
	b := d.blockers[n-1]
	base := b.base()
	switch fn.LowerName {
	case b.startCommand():
		base.depth++
	case b.endCommand():
		base.depth--
		if base.depth == 0 {
			d.removeFunctionBlocker()
			d.closeBlocker(b, fn, st)
			return true
		}
	}
	base.functions = append(base.functions, fn)
	return true
}

func (d *Directory) closeBlocker(b functionBlocker, fn parse.Function, st *Status) {
	base := b.base()
	if base.onRemove != nil {
		defer base.onRemove()
	}
	closing := diag.Frame{File: base.start.File, Line: fn.Line, Name: fn.OriginalName}
	if !b.argumentsMatch(fn, d) {
		if _, ok := b.(*blockBlocker); ok {
			d.IssueMessage(diag.AuthorWarning, "A logical block closing on the line\n  "+
				closing.String()+"\nhas unexpected arguments.")
		} else {
			d.IssueMessage(diag.AuthorWarning, "A logical block opening on the line\n  "+
				base.start.String()+"\ncloses on the line\n  "+closing.String()+
				"\nwith mis-matching arguments.")
		}
	}
	fns := base.functions
	base.functions = nil
	b.replay(fns, st)
}

// Marks the current depth of the blocker stack. Blockers pushed after it
// are not visible until the barrier is popped.
func (d *Directory) pushBlockerBarrier() {
	d.barriers = append(d.barriers, len(d.blockers))
}

// Removes the blockers pushed after the last barrier and the barrier. The
// first of them is reported as not closed if report is set.
func (d *Directory) popBlockerBarrier(report bool) {
	barrier := d.barriers[len(d.barriers)-1]
	for len(d.blockers) > barrier {
		b := d.blockers[len(d.blockers)-1]
		d.blockers = d.blockers[:len(d.blockers)-1]
		if report {
			d.IssueMessage(diag.FatalError, "A logical block opening on the line\n  "+
				b.base().start.String()+"\nis not closed.")
			report = false
		}
		if f := b.base().onRemove; f != nil {
			f()
		}
	}
	d.barriers = d.barriers[:len(d.barriers)-1]
}

// Expanded arguments as shown in messages about conditions: each one
// quoted and preceded by a space.
func quotedArgs(args []expandedArg) string {
	var sb strings.Builder
	for _, arg := range args {
		sb.WriteString(" " + parse.Quote(arg.value))
	}
	return sb.String()
}

// Whether two argument lists are written the same way.
func argumentsEqual(a, b []parse.Argument) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Value != b[i].Value || a[i].Delim != b[i].Delim {
			return false
		}
	}
	return true
}
