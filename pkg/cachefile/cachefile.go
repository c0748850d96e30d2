// Package cachefile parses cache definitions given on the command line and in
// initial-cache files, and applies them to a cache.
package cachefile

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"src.cmk.sh/pkg/state"
)

// CommandLineHelp is the help string of entries defined with -D.
const CommandLineHelp = "No help, variable specified on the command line."

// Definition is a single cache entry to define.
type Definition struct {
	Name  string
	Entry state.CacheEntry
}

var errNoEqual = errors.New("no = in definition")

// ParseDefinition parses the argument of -D, which has the form
// VAR[:TYPE]=VALUE. A definition without a type is UNINITIALIZED.
func ParseDefinition(s string) (Definition, error) {
	lhs, value, ok := strings.Cut(s, "=")
	if !ok {
		return Definition{}, fmt.Errorf("parse error in -D %q: %w", s, errNoEqual)
	}
	name, typeName, typed := strings.Cut(lhs, ":")
	if name == "" {
		return Definition{}, fmt.Errorf("parse error in -D %q: empty variable name", s)
	}
	t := state.CacheUninitialized
	if typed {
		var ok bool
		t, ok = state.ParseCacheType(typeName)
		if !ok {
			return Definition{}, fmt.Errorf("parse error in -D %q: unknown cache entry type %q", s, typeName)
		}
	}
	return Definition{name, state.CacheEntry{Value: value, Type: t, Help: CommandLineHelp}}, nil
}

// ParseDefinitions parses a list of -D arguments.
func ParseDefinitions(args []string) ([]Definition, error) {
	defs := make([]Definition, 0, len(args))
	for _, arg := range args {
		def, err := ParseDefinition(arg)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Apply writes the definitions into the cache. When force is false, existing
// entries are left alone. When an untyped definition replaces a typed entry,
// the entry keeps its type and help string.
func Apply(cache state.Cache, defs []Definition, force bool) {
	for _, def := range defs {
		old, exists := cache.Get(def.Name)
		if exists && !force {
			continue
		}
		e := def.Entry
		if exists && e.Type == state.CacheUninitialized && old.Type != state.CacheUninitialized {
			e.Type = old.Type
			e.Help = old.Help
			e.Advanced = old.Advanced
		}
		cache.Set(def.Name, e)
	}
}

// Remove deletes every cache entry whose name matches the glob pattern, as
// understood by path.Match, and returns the names of the removed entries.
func Remove(cache state.Cache, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid -U pattern %q: %w", pattern, err)
	}
	var removed []string
	for _, name := range cache.Names() {
		if ok, _ := path.Match(pattern, name); ok {
			cache.Remove(name)
			removed = append(removed, name)
		}
	}
	return removed, nil
}
