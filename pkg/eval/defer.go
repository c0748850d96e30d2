package eval

import (
	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/parse"
)

type deferredCall struct {
	// Empty once the call has run or has been cancelled.
	id   string
	file string
	fn   parse.Function
}

// Calls deferred to the end of a directory or script. Calls are never removed,
// so that the queue can be walked by index while deferred calls schedule more.
type deferQueue struct {
	calls []*deferredCall
}

func (q *deferQueue) add(id, file string, fn parse.Function) {
	q.calls = append(q.calls, &deferredCall{id, file, fn})
}

// Generates an id for a call with none given.
func (q *deferQueue) nextID() string { return "__" + itoa(len(q.calls)) }

func (q *deferQueue) ids() []string {
	var ids []string
	for _, c := range q.calls {
		if c.id != "" {
			ids = append(ids, c.id)
		}
	}
	return ids
}

func (q *deferQueue) get(id string) (parse.Function, bool) {
	for _, c := range q.calls {
		if c.id == id {
			return c.fn, true
		}
	}
	return parse.Function{}, false
}

func (q *deferQueue) cancel(ids []string) {
	for _, id := range ids {
		for _, c := range q.calls {
			if c.id == id {
				c.id = ""
			}
		}
	}
}

// DeferCall schedules fn to run at the end of the directory. The file is the
// one the call is attributed to. It returns false if calls can no longer be
// deferred in d.
func (d *Directory) DeferCall(id, file string, fn parse.Function) bool {
	if d.deferred == nil {
		return false
	}
	d.deferred.add(id, file, fn)
	return true
}

// DeferIDs returns the ids of the pending deferred calls.
func (d *Directory) DeferIDs() ([]string, bool) {
	if d.deferred == nil {
		return nil, false
	}
	return d.deferred.ids(), true
}

// DeferCancel cancels pending deferred calls.
func (d *Directory) DeferCancel(ids []string) bool {
	if d.deferred == nil {
		return false
	}
	d.deferred.cancel(ids)
	return true
}

// DeferGetCall returns a pending deferred call as a list of the command name
// and its arguments, or "" if there is no pending call with that id. It
// returns false if d has no deferred calls at this time.
func (d *Directory) DeferGetCall(id string) (string, bool) {
	if d.deferred == nil {
		return "", false
	}
	fn, ok := d.deferred.get(id)
	if !ok {
		return "", true
	}
	elems := []string{fn.OriginalName}
	for _, arg := range fn.Args {
		elems = append(elems, arg.Value)
	}
	return JoinList(elems), true
}

// Runs the pending deferred calls of q in order, including those scheduled
// by deferred calls.
func (d *Directory) runDeferred(q *deferQueue, file string) {
	logger.Printf("running %d deferred calls of %s", len(q.calls), file)
	savedBT := d.backtrace
	d.backtrace = d.backtrace.Push(diag.Frame{File: file, Line: diag.LineDeferred})
	d.deferRunning = true
	defer func() { d.backtrace, d.deferRunning = savedBT, false }()
	for i := 0; i < len(q.calls); i++ {
		c := q.calls[i]
		if c.id == "" {
			continue
		}
		id := c.id
		c.id = ""
		d.setCurrentListFile(c.file)
		pop := d.pushDeferCallScope(c.file)
		d.ExecuteCommand(c.fn, newStatus(d), id)
		pop()
		if d.ev.stopped() {
			break
		}
	}
}
