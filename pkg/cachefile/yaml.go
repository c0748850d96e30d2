package cachefile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/state"
)

// InitialCacheHelp is the help string of entries given without help in an
// initial-cache file.
const InitialCacheHelp = "Initial cache"

const errorType = "initial cache error"

// Returns a *diag.Error located at n. The file is filled in by LoadFile.
func errorAt(n *yaml.Node, format string, args ...any) error {
	return &diag.Error{Type: errorType,
		Message:  fmt.Sprintf(format, args...),
		Position: diag.Position{Line: n.Line, Column: n.Column}}
}

type entryDoc struct {
	Value    string `yaml:"value"`
	Type     string `yaml:"type"`
	Help     string `yaml:"help"`
	Advanced bool   `yaml:"advanced"`
}

// LoadFile reads an initial-cache file.
func LoadFile(name string) ([]Definition, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	defs, err := Load(f)
	var e *diag.Error
	if errors.As(err, &e) {
		e.File = name
		return nil, e
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return defs, nil
}

// Load reads an initial-cache document: a mapping from variable names to
// either a scalar value or a mapping with the keys value, type, help and
// advanced. Definitions are returned in document order.
func Load(r io.Reader) ([]Definition, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errorAt(root, "initial cache must be a mapping")
	}
	var defs []Definition
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		def, err := parseEntry(key, value)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func parseEntry(key, value *yaml.Node) (Definition, error) {
	if key.Kind != yaml.ScalarNode || key.Value == "" {
		return Definition{}, errorAt(key, "variable name must be a non-empty string")
	}
	switch value.Kind {
	case yaml.ScalarNode:
		return Definition{key.Value, state.CacheEntry{
			Value: scalarValue(value), Type: state.CacheUninitialized, Help: InitialCacheHelp}}, nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return Definition{}, errorAt(value, "%v", err)
		}
		return Definition{key.Value, state.CacheEntry{
			Value: strings.Join(items, ";"), Type: state.CacheUninitialized, Help: InitialCacheHelp}}, nil
	case yaml.MappingNode:
		var d entryDoc
		if err := value.Decode(&d); err != nil {
			return Definition{}, errorAt(value, "%v", err)
		}
		t := state.CacheUninitialized
		if d.Type != "" {
			var ok bool
			t, ok = state.ParseCacheType(d.Type)
			if !ok {
				return Definition{}, errorAt(value, "unknown cache entry type %q", d.Type)
			}
		}
		help := d.Help
		if help == "" {
			help = InitialCacheHelp
		}
		return Definition{key.Value, state.CacheEntry{Value: d.Value, Type: t, Help: help, Advanced: d.Advanced}}, nil
	default:
		return Definition{}, errorAt(value, "unsupported value for %s", key.Value)
	}
}

// Booleans are written as ON and OFF so they read naturally in conditions.
func scalarValue(n *yaml.Node) string {
	if n.Tag == "!!bool" {
		var b bool
		if n.Decode(&b) == nil {
			if b {
				return "ON"
			}
			return "OFF"
		}
	}
	if n.Tag == "!!null" {
		return ""
	}
	return n.Value
}
