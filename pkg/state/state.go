// Package state keeps the variable and policy state of a configuration run:
// a tree of snapshots, each with a view of variables and policies, plus the
// cache and global properties.
package state

// State is the root of the state of a run.
type State struct {
	Cache Cache
	// Global properties.
	Properties Properties
}

// New returns a new State using the given cache. If cache is nil, an empty
// MemCache is used.
func New(cache Cache) *State {
	if cache == nil {
		cache = NewMemCache()
	}
	return &State{Cache: cache}
}

// Directory is the state of a directory being configured.
type Directory struct {
	SourceDir string
	BinaryDir string
	Parent    *Directory
	// Directory properties.
	Properties Properties
	// Subdirectories in the order they were added.
	Children []*Directory
}

// CreateBaseSnapshot creates the root snapshot of a run, belonging to a
// top-level directory with the given paths.
func (st *State) CreateBaseSnapshot(sourceDir, binaryDir string) *Snapshot {
	root := &policyEntry{}
	return &Snapshot{
		typ:         BaseType,
		state:       st,
		dir:         &Directory{SourceDir: sourceDir, BinaryDir: binaryDir},
		vars:        NewScope(nil),
		policies:    root,
		policyScope: root,
		policyRoot:  nil,
	}
}
