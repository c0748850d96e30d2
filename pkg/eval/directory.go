package eval

import (
	"path/filepath"
	"strings"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/state"
)

// Directory is the execution state of one directory of a project, or of a
// script. Commands always run in some Directory.
type Directory struct {
	ev     *Evaler
	parent *Directory
	snap   *state.Snapshot

	backtrace diag.Backtrace
	// The list file commands currently come from. Commands in the body of a
	// function come from the file that defined the function.
	listFile string

	statusStack []*Status
	blockers    []functionBlocker
	barriers    []int
	loopBlocks  []int
	// Calls deferred to the end of the directory. Nil when calls can no
	// longer be deferred.
	deferred     *deferQueue
	deferRunning bool
}

func (ev *Evaler) newDirectory(parent *Directory, snap *state.Snapshot, bt diag.Backtrace) *Directory {
	d := &Directory{ev: ev, parent: parent, snap: snap, backtrace: bt, loopBlocks: []int{0}}
	ev.directories[snap.Directory().BinaryDir] = d
	return d
}

// Evaler returns the Evaler the directory belongs to.
func (d *Directory) Evaler() *Evaler { return d.ev }

// Parent returns the directory that added this one, or nil.
func (d *Directory) Parent() *Directory { return d.parent }

// Snapshot returns the current snapshot.
func (d *Directory) Snapshot() *state.Snapshot { return d.snap }

// Backtrace returns the current backtrace.
func (d *Directory) Backtrace() diag.Backtrace { return d.backtrace }

// SourceDir returns the source directory.
func (d *Directory) SourceDir() string { return d.snap.Directory().SourceDir }

// BinaryDir returns the binary directory.
func (d *Directory) BinaryDir() string { return d.snap.Directory().BinaryDir }

// ListFile returns the list file commands currently come from.
func (d *Directory) ListFile() string { return d.listFile }

// IssueMessage issues a message with the current backtrace. Fatal and
// internal errors mark the status of the running command as nested, so that
// the dispatcher doesn't report the failure again.
func (d *Directory) IssueMessage(t diag.MessageType, text string) {
	if t == diag.FatalError || t == diag.InternalError {
		if n := len(d.statusStack); n > 0 {
			d.statusStack[n-1].SetNestedError()
		}
	}
	d.ev.issueMessage(t, text, d.backtrace)
}

// Issues a message with the given backtrace, without marking statuses.
func (d *Directory) issueMessageAt(t diag.MessageType, text string, bt diag.Backtrace) {
	d.ev.issueMessage(t, text, bt)
}

func policyWarning(id state.PolicyID) string {
	info, _ := state.LookupPolicy(string(id))
	return "Policy " + string(id) + " is not set: " + info.Doc +
		"  Use the cmake_policy command to set the policy and suppress this warning."
}

// GetPolicy returns the setting of a policy in the current context.
func (d *Directory) GetPolicy(id state.PolicyID) state.PolicyStatus {
	return d.snap.GetPolicy(id)
}

// GetDefinition looks up a variable, falling back to the cache.
func (d *Directory) GetDefinition(name string) (string, bool) {
	v, ok := d.snap.GetDefinition(name)
	if d.ev.watched(name) {
		access := ReadAccess
		if !ok {
			access = UnknownReadAccess
		}
		if d.ev.notifyWatch(d, name, access, v) {
			v, ok = d.snap.GetDefinition(name)
		}
	}
	return v, ok
}

// GetSafeDefinition looks up a variable, returning "" if it is not defined.
func (d *Directory) GetSafeDefinition(name string) string {
	v, _ := d.GetDefinition(name)
	return v
}

// IsDefinitionSet returns whether a variable is defined, as a normal
// variable or in the cache.
func (d *Directory) IsDefinitionSet(name string) bool {
	_, ok := d.snap.GetDefinition(name)
	return ok
}

// IsNormalDefinitionSet returns whether a normal variable is defined.
func (d *Directory) IsNormalDefinitionSet(name string) bool {
	return d.snap.IsNormalDefinition(name)
}

// IsOn returns whether a variable holds a true constant.
func (d *Directory) IsOn(name string) bool {
	v, ok := d.GetDefinition(name)
	return ok && IsOn(v)
}

// IsSet returns whether a variable is defined to something other than an
// empty or NOTFOUND value.
func (d *Directory) IsSet(name string) bool {
	v, ok := d.GetDefinition(name)
	return ok && v != "" && !isNotFound(v)
}

// AddDefinition sets a variable in the current scope.
func (d *Directory) AddDefinition(name, value string) {
	access := ModifiedAccess
	if d.ev.watched(name) && !d.IsDefinitionSet(name) {
		access = UnknownModifiedAccess
	}
	d.snap.SetDefinition(name, value)
	d.ev.notifyWatch(d, name, access, value)
}

// AddBoolDefinition sets a variable to ON or OFF.
func (d *Directory) AddBoolDefinition(name string, b bool) {
	if b {
		d.AddDefinition(name, "ON")
	} else {
		d.AddDefinition(name, "OFF")
	}
}

// RemoveDefinition unsets a variable in the current scope.
func (d *Directory) RemoveDefinition(name string) {
	d.snap.RemoveDefinition(name)
	d.ev.notifyWatch(d, name, RemovedAccess, "")
}

// RaiseScope sets, or unsets if value is nil, a variable in the parent
// scope.
func (d *Directory) RaiseScope(name string, value *string) {
	if name == "" {
		return
	}
	if !d.snap.RaiseScope(name, value) {
		d.IssueMessage(diag.AuthorWarning, `Cannot set "`+name+`": current scope has no parent.`)
		return
	}
	v := ""
	if value != nil {
		v = *value
	}
	d.ev.notifyWatch(d, name, ModifiedAccess, v)
}

// Raises the current values of variables to the parent scope. Variables
// that are not normal variables are unset there.
func (d *Directory) raiseScopes(names []string) {
	for _, name := range names {
		if d.IsNormalDefinitionSet(name) {
			v := d.GetSafeDefinition(name)
			d.RaiseScope(name, &v)
		} else {
			d.RaiseScope(name, nil)
		}
	}
}

// AddCacheDefinition sets a cache entry. An entry given on the command line
// without a type keeps its value unless force is set.
func (d *Directory) AddCacheDefinition(name, value, doc string, typ state.CacheType, force bool) {
	cache := d.ev.state.Cache
	existing, exists := cache.Get(name)
	if exists && existing.Type == state.CacheUninitialized {
		if !force {
			value = existing.Value
		}
		if typ == state.CachePath || typ == state.CacheFilepath {
			files := ExpandList(value, false)
			for i, file := range files {
				if !IsOff(file) {
					if abs, err := filepath.Abs(file); err == nil {
						files[i] = abs
					}
				}
			}
			value = JoinList(files)
		}
	}
	cache.Set(name, state.CacheEntry{Value: value, Type: typ, Help: doc, Advanced: existing.Advanced})
	if d.GetPolicy(state.CMP0126) != state.PolicyNew {
		d.snap.RemoveDefinition(name)
	}
}

// RemoveCacheDefinition removes a cache entry.
func (d *Directory) RemoveCacheDefinition(name string) {
	d.ev.state.Cache.Remove(name)
}

// Sets the CMAKE_MATCH_<n> variables from the groups of a regular
// expression match. Empty groups are left unset.
func (d *Directory) storeMatches(groups []string) {
	highest := 0
	for i := 0; i < len(groups) && i < 10; i++ {
		if groups[i] != "" {
			d.AddDefinition(matchVar(i), groups[i])
			highest = i
		}
	}
	d.AddDefinition("CMAKE_MATCH_COUNT", itoa(highest))
}

// Clears the CMAKE_MATCH_<n> variables set by a previous match.
func (d *Directory) clearMatches() {
	count, ok := d.GetDefinition("CMAKE_MATCH_COUNT")
	if !ok {
		return
	}
	n, _ := parseInt(count)
	for i := 0; i <= int(n) && i < 10; i++ {
		if d.GetSafeDefinition(matchVar(i)) != "" {
			d.AddDefinition(matchVar(i), "")
		}
	}
	d.AddDefinition("CMAKE_MATCH_COUNT", "0")
}

func matchVar(i int) string { return "CMAKE_MATCH_" + itoa(i) }

// Indents a message with the elements of CMAKE_MESSAGE_INDENT.
func (d *Directory) indentText(msg string) string {
	indent := strings.Join(ExpandList(d.GetSafeDefinition("CMAKE_MESSAGE_INDENT"), false), "")
	if indent == "" {
		return msg
	}
	return indent + strings.ReplaceAll(msg, "\n", "\n"+indent)
}

// Replaces the current snapshot with its parent, reporting policies pushed
// in it and not popped.
func (d *Directory) popSnapshot(reportError bool) {
	parent, err := d.snap.Pop()
	if err != nil && reportError {
		d.IssueMessage(diag.FatalError, err.Error())
	}
	d.snap = parent
}

// PushPolicy pushes a strong policy entry for cmake_policy(PUSH).
func (d *Directory) PushPolicy() { d.snap.PushPolicy(false, nil) }

// PopPolicy pops a policy entry pushed with PushPolicy.
func (d *Directory) PopPolicy() bool {
	if err := d.snap.PopPolicy(); err != nil {
		d.IssueMessage(diag.FatalError, err.Error())
		return false
	}
	return true
}

// Scope helpers. Each one returns a function that undoes what it did.

// Reading a list file or a string of code.
func (d *Directory) pushListFileScope(file string) func() {
	savedBT, savedFile := d.backtrace, d.listFile
	d.backtrace = d.backtrace.Push(diag.Frame{File: file})
	d.listFile = file
	d.snap = d.snap.CreateInlineListFileSnapshot()
	d.pushBlockerBarrier()
	return func() {
		report := !d.ev.fatalOccurred
		d.popBlockerBarrier(report)
		d.popSnapshot(report)
		d.backtrace, d.listFile = savedBT, savedFile
	}
}

// include() of a file.
func (d *Directory) pushIncludeScope(file string, noPolicyScope bool) func() {
	savedBT, savedFile := d.backtrace, d.listFile
	d.backtrace = d.backtrace.Push(diag.Frame{File: file})
	d.listFile = file
	d.snap = d.snap.CreateIncludeFileSnapshot()
	if !noPolicyScope {
		d.snap = d.snap.CreatePolicyScopeSnapshot()
	}
	d.pushBlockerBarrier()
	return func() {
		report := !d.ev.fatalOccurred
		d.popBlockerBarrier(report)
		if !noPolicyScope {
			d.popSnapshot(report)
		}
		d.popSnapshot(report)
		d.backtrace, d.listFile = savedBT, savedFile
	}
}

// The call of a function. The variable scope is new, and policies start
// from those recorded when the function was defined.
func (d *Directory) pushFunctionScope(file string, policies state.PolicyMap) func(report bool) {
	savedFile := d.listFile
	d.listFile = file
	d.snap = d.snap.CreateFunctionCallSnapshot(policies)
	d.pushBlockerBarrier()
	d.pushLoopBlockBarrier()
	return func(report bool) {
		report = report && !d.ev.fatalOccurred
		d.popLoopBlockBarrier()
		d.popBlockerBarrier(report)
		d.popSnapshot(report)
		d.listFile = savedFile
	}
}

// The call of a macro. Variables are shared with the caller.
func (d *Directory) pushMacroScope(file string, policies state.PolicyMap) func(report bool) {
	savedFile := d.listFile
	d.listFile = file
	d.snap = d.snap.CreateMacroCallSnapshot(policies)
	d.pushBlockerBarrier()
	return func(report bool) {
		report = report && !d.ev.fatalOccurred
		d.popBlockerBarrier(report)
		d.popSnapshot(report)
		d.listFile = savedFile
	}
}

// The list file of a directory.
func (d *Directory) pushBuildsystemFileScope() func() {
	d.snap = d.snap.CreatePolicyScopeSnapshot()
	d.pushBlockerBarrier()
	return func() {
		report := !d.ev.fatalOccurred
		d.popBlockerBarrier(report)
		d.popSnapshot(report)
	}
}

// A deferred call, run in the context of the file it was deferred from.
func (d *Directory) pushDeferCallScope(file string) func() {
	savedFile := d.listFile
	d.listFile = file
	d.snap = d.snap.CreateDeferCallSnapshot()
	return func() {
		d.popSnapshot(!d.ev.fatalOccurred)
		d.listFile = savedFile
	}
}

func (d *Directory) pushLoopBlock() { d.loopBlocks[len(d.loopBlocks)-1]++ }

func (d *Directory) popLoopBlock() { d.loopBlocks[len(d.loopBlocks)-1]-- }

func (d *Directory) pushLoopBlockBarrier() { d.loopBlocks = append(d.loopBlocks, 0) }

func (d *Directory) popLoopBlockBarrier() { d.loopBlocks = d.loopBlocks[:len(d.loopBlocks)-1] }

// Returns whether commands currently run inside a loop.
func (d *Directory) isLoopBlock() bool { return d.loopBlocks[len(d.loopBlocks)-1] > 0 }
