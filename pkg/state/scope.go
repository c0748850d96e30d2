package state

import "sort"

// Scope is a level of variable bindings. Lookups that miss in a scope
// continue in its parent. A variable explicitly unset in a scope hides the
// bindings of its ancestors.
type Scope struct {
	parent *Scope
	// A nil value marks a variable unset in this scope.
	vars map[string]*string
}

// NewScope returns an empty scope on top of parent, which may be nil.
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: make(map[string]*string)}
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Get looks up a variable in the scope chain.
func (s *Scope) Get(name string) (string, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			if v == nil {
				return "", false
			}
			return *v, true
		}
	}
	return "", false
}

// Set binds a variable in this scope.
func (s *Scope) Set(name, value string) {
	s.vars[name] = &value
}

// Unset removes a variable from the view of this scope, without affecting
// ancestors.
func (s *Scope) Unset(name string) {
	if s.parent == nil {
		delete(s.vars, name)
		return
	}
	s.vars[name] = nil
}

// Localize copies the value of a variable as seen from this scope into this
// scope, so that later changes to ancestors do not affect it.
func (s *Scope) Localize(name string) {
	if v, ok := s.Get(name); ok {
		s.Set(name, v)
	} else {
		s.Unset(name)
	}
}

// Closure returns a new root scope holding all the variables visible from
// this scope.
func (s *Scope) Closure() *Scope {
	c := NewScope(nil)
	for _, name := range s.Names() {
		v, _ := s.Get(name)
		c.Set(name, v)
	}
	return c
}

// Names returns the names of all variables visible from this scope, sorted.
func (s *Scope) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for sc := s; sc != nil; sc = sc.parent {
		for name, v := range sc.vars {
			if seen[name] {
				continue
			}
			seen[name] = true
			if v != nil {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
