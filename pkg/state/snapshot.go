package state

import (
	"errors"
)

// SnapshotType is the kind of construct a Snapshot was created for.
type SnapshotType int

// Snapshot types.
const (
	BaseType SnapshotType = iota
	BuildsystemDirectoryType
	FunctionCallType
	MacroCallType
	IncludeFileType
	InlineListFileType
	PolicyScopeType
	VariableScopeType
	DeferCallType
)

var snapshotTypeNames = [...]string{
	BaseType:                 "base",
	BuildsystemDirectoryType: "directory",
	FunctionCallType:         "function call",
	MacroCallType:            "macro call",
	IncludeFileType:          "include",
	InlineListFileType:       "inline",
	PolicyScopeType:          "policy scope",
	VariableScopeType:        "variable scope",
	DeferCallType:            "deferred call",
}

func (t SnapshotType) String() string { return snapshotTypeNames[t] }

// Errors from popping policies and snapshots.
var (
	ErrPolicyPopWithoutPush = errors.New("cmake_policy POP without matching PUSH")
	ErrPolicyPushWithoutPop = errors.New("cmake_policy PUSH without matching POP")
)

type policyEntry struct {
	parent *policyEntry
	weak   bool
	values PolicyMap
}

func (e *policyEntry) set(id PolicyID, status PolicyStatus) {
	if e.values == nil {
		e.values = make(PolicyMap)
	}
	e.values[id] = status
}

// Snapshot is a node in the tree of execution contexts. It owns a view of
// variables and a stack of policy settings.
type Snapshot struct {
	typ    SnapshotType
	state  *State
	parent *Snapshot
	dir    *Directory
	// Snapshot of the parent directory that created this directory. Only set
	// for directory snapshots.
	origin *Snapshot
	vars   *Scope

	policies *policyEntry
	// Policy entry of this snapshot that must be on top when it is popped.
	policyScope *policyEntry
	// SetPolicy does not propagate to this entry or its ancestors.
	policyRoot *policyEntry
}

func (s *Snapshot) child(typ SnapshotType) *Snapshot {
	return &Snapshot{typ: typ, state: s.state, parent: s, dir: s.dir, vars: s.vars,
		policies: s.policies, policyScope: s.policies, policyRoot: s.policyRoot}
}

// CreateBuildsystemDirectorySnapshot creates the snapshot of a
// subdirectory. Its variables start as a copy of the variables visible here,
// and it has its own policy scope.
func (s *Snapshot) CreateBuildsystemDirectorySnapshot(sourceDir, binaryDir string) *Snapshot {
	dir := &Directory{SourceDir: sourceDir, BinaryDir: binaryDir, Parent: s.dir}
	s.dir.Children = append(s.dir.Children, dir)
	c := s.child(BuildsystemDirectoryType)
	c.dir = dir
	c.origin = s
	c.vars = s.vars.Closure()
	c.policyRoot = s.policies
	c.pushPolicy(false, nil)
	c.policyScope = c.policies
	return c
}

// CreateFunctionCallSnapshot creates the snapshot of a function call, with a
// new variable scope and a weak policy entry holding the policies recorded
// when the function was defined.
func (s *Snapshot) CreateFunctionCallSnapshot(recorded PolicyMap) *Snapshot {
	c := s.child(FunctionCallType)
	c.vars = NewScope(s.vars)
	c.pushPolicy(true, recorded)
	c.policyScope = c.policies
	return c
}

// CreateMacroCallSnapshot creates the snapshot of a macro call, sharing
// variables with the caller. Like function calls, it has a weak policy entry
// holding the policies recorded at definition.
func (s *Snapshot) CreateMacroCallSnapshot(recorded PolicyMap) *Snapshot {
	c := s.child(MacroCallType)
	c.pushPolicy(true, recorded)
	c.policyScope = c.policies
	return c
}

// CreateIncludeFileSnapshot creates the snapshot of an included file,
// sharing variables with the includer.
func (s *Snapshot) CreateIncludeFileSnapshot() *Snapshot {
	return s.child(IncludeFileType)
}

// CreateInlineListFileSnapshot creates the snapshot of code evaluated from a
// string, sharing variables with the evaluator.
func (s *Snapshot) CreateInlineListFileSnapshot() *Snapshot {
	return s.child(InlineListFileType)
}

// CreateDeferCallSnapshot creates the snapshot of a deferred call, sharing
// variables with the directory it runs in.
func (s *Snapshot) CreateDeferCallSnapshot() *Snapshot {
	return s.child(DeferCallType)
}

// CreatePolicyScopeSnapshot creates a snapshot that has a new strong policy
// entry and shares variables.
func (s *Snapshot) CreatePolicyScopeSnapshot() *Snapshot {
	c := s.child(PolicyScopeType)
	c.pushPolicy(false, nil)
	c.policyScope = c.policies
	return c
}

// CreateVariableScopeSnapshot creates a snapshot with a new variable scope.
func (s *Snapshot) CreateVariableScopeSnapshot() *Snapshot {
	c := s.child(VariableScopeType)
	c.vars = NewScope(s.vars)
	return c
}

// Pop returns the parent snapshot. If policies pushed in this snapshot were
// not popped, it returns ErrPolicyPushWithoutPop along with the parent.
func (s *Snapshot) Pop() (*Snapshot, error) {
	var err error
	if s.policies != s.policyScope {
		err = ErrPolicyPushWithoutPop
	}
	if s.parent == nil {
		return s, err
	}
	return s.parent, err
}

// Type returns the type of the snapshot.
func (s *Snapshot) Type() SnapshotType { return s.typ }

// Parent returns the snapshot this one was created from.
func (s *Snapshot) Parent() *Snapshot { return s.parent }

// State returns the state the snapshot belongs to.
func (s *Snapshot) State() *State { return s.state }

// Directory returns the directory the snapshot belongs to.
func (s *Snapshot) Directory() *Directory { return s.dir }

// DirectoryParent returns the snapshot of the parent directory that created
// the directory of this snapshot, or nil for the top directory.
func (s *Snapshot) DirectoryParent() *Snapshot {
	for sn := s; sn != nil; sn = sn.parent {
		if sn.typ == BuildsystemDirectoryType {
			return sn.origin
		}
	}
	return nil
}

// Scope returns the variable scope of the snapshot.
func (s *Snapshot) Scope() *Scope { return s.vars }

// GetDefinition looks up a variable, falling back to the cache.
func (s *Snapshot) GetDefinition(name string) (string, bool) {
	if v, ok := s.vars.Get(name); ok {
		return v, true
	}
	if e, ok := s.state.Cache.Get(name); ok {
		return e.Value, true
	}
	return "", false
}

// IsNormalDefinition returns whether a variable is defined, without
// consulting the cache.
func (s *Snapshot) IsNormalDefinition(name string) bool {
	_, ok := s.vars.Get(name)
	return ok
}

// SetDefinition sets a variable in the current scope.
func (s *Snapshot) SetDefinition(name, value string) {
	s.vars.Set(name, value)
}

// RemoveDefinition unsets a variable in the current scope. A cache entry of
// the same name becomes visible.
func (s *Snapshot) RemoveDefinition(name string) {
	s.vars.Unset(name)
}

// DefinitionNames returns the names of all visible normal variables.
func (s *Snapshot) DefinitionNames() []string {
	return s.vars.Names()
}

// RaiseScope sets (or, if value is nil, unsets) a variable in the parent
// scope. At the top scope of a directory, the parent is the scope that
// created the directory. It returns false if there is no parent scope.
func (s *Snapshot) RaiseScope(name string, value *string) bool {
	target := s.vars.Parent()
	if target == nil {
		parentDir := s.DirectoryParent()
		if parentDir == nil {
			return false
		}
		target = parentDir.vars
	} else {
		s.vars.Localize(name)
	}
	if value != nil {
		target.Set(name, *value)
	} else {
		target.Unset(name)
	}
	return true
}

// GetPolicy returns the setting of a policy visible from this snapshot.
func (s *Snapshot) GetPolicy(id PolicyID) PolicyStatus {
	for e := s.policies; e != nil; e = e.parent {
		if status, ok := e.values[id]; ok {
			return status
		}
	}
	return PolicyWarn
}

// SetPolicy sets a policy in the top policy entry. The setting also goes
// into the entries below, as long as the entries it has been written into
// are weak.
func (s *Snapshot) SetPolicy(id PolicyID, status PolicyStatus) {
	for e := s.policies; e != nil && e != s.policyRoot; e = e.parent {
		e.set(id, status)
		if !e.weak {
			break
		}
	}
}

// PushPolicy pushes a policy entry with the given initial settings. Weak
// entries let SetPolicy write through them.
func (s *Snapshot) PushPolicy(weak bool, values PolicyMap) {
	s.pushPolicy(weak, values)
}

func (s *Snapshot) pushPolicy(weak bool, values PolicyMap) {
	e := &policyEntry{parent: s.policies, weak: weak}
	for id, status := range values {
		e.set(id, status)
	}
	s.policies = e
}

// PopPolicy pops a policy entry pushed by PushPolicy.
func (s *Snapshot) PopPolicy() error {
	if s.policies == s.policyScope {
		return ErrPolicyPopWithoutPush
	}
	s.policies = s.policies.parent
	return nil
}

// PolicySettings returns all policies that are set, as seen from this
// snapshot.
func (s *Snapshot) PolicySettings() PolicyMap {
	m := make(PolicyMap)
	for e := s.policies; e != nil; e = e.parent {
		for id, status := range e.values {
			if _, ok := m[id]; !ok {
				m[id] = status
			}
		}
	}
	return m
}
