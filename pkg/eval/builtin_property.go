package eval

import (
	"errors"
	"fmt"
	"path/filepath"

	"src.cmk.sh/pkg/state"
)

func init() {
	addBuiltin("set_property", Func(setPropertyCommand))
	addBuiltin("get_property", Func(getPropertyCommand))
}

// The object whose properties are read or written.
type propertyScope struct {
	props *state.Properties
	// The directory, for DIRECTORY scope.
	dir *state.Directory
}

// Resolves the scope of set_property and get_property. The names are the
// arguments given after DIRECTORY, if any.
func (d *Directory) propertyScope(scope string, names []string) (propertyScope, error) {
	switch scope {
	case "GLOBAL":
		if len(names) > 0 {
			return propertyScope{}, errors.New("given names for GLOBAL scope.")
		}
		return propertyScope{props: &d.ev.state.Properties}, nil
	case "DIRECTORY":
		if len(names) > 1 {
			return propertyScope{}, errors.New("allows at most one name for DIRECTORY scope.")
		}
		dir := d.snap.Directory()
		if len(names) == 1 {
			path := collapseFullPath(names[0], d.SourceDir())
			target := d.ev.directoryBySource(path)
			if target == nil {
				return propertyScope{}, errors.New("DIRECTORY scope provided but requested directory was not found. " +
					"This could be because the directory argument was invalid or, it is valid but has not been processed yet.")
			}
			dir = target.snap.Directory()
		}
		return propertyScope{props: &dir.Properties, dir: dir}, nil
	}
	return propertyScope{}, fmt.Errorf("given invalid scope %s.  Valid scopes are GLOBAL, DIRECTORY.", scope)
}

func setPropertyCommand(st *Status, args []string) error {
	if len(args) < 2 {
		return errors.New("called with incorrect number of arguments")
	}
	d := st.Dir()
	scope := args[0]
	var names, values []string
	var name string
	appendMode, appendString := false, false
	propertyGiven := false
	doing := "names"
	for _, arg := range args[1:] {
		switch {
		case doing != "values" && arg == "PROPERTY":
			doing = "property"
			propertyGiven = true
		case doing != "values" && arg == "APPEND":
			doing = "none"
			appendMode = true
		case doing != "values" && arg == "APPEND_STRING":
			doing = "none"
			appendMode, appendString = true, true
		case doing == "names":
			names = append(names, arg)
		case doing == "property":
			name = arg
			doing = "values"
		case doing == "values":
			values = append(values, arg)
		default:
			return errors.New(`given invalid argument "` + arg + `".`)
		}
	}
	if !propertyGiven || name == "" {
		return errors.New("not given a PROPERTY <name> argument.")
	}
	ps, err := d.propertyScope(scope, names)
	if err != nil {
		return err
	}
	value := JoinList(values)
	switch {
	case appendString:
		ps.props.AppendString(name, value)
	case appendMode:
		ps.props.Append(name, value)
	case len(values) == 0:
		ps.props.Remove(name)
	default:
		ps.props.Set(name, value)
	}
	return nil
}

func getPropertyCommand(st *Status, args []string) error {
	if len(args) < 3 {
		return errors.New("called with incorrect number of arguments")
	}
	d := st.Dir()
	out, scope := args[0], args[1]
	var names []string
	var name string
	info := ""
	doing := "names"
	for _, arg := range args[2:] {
		switch {
		case doing == "names" && arg == "PROPERTY":
			doing = "property"
		case doing == "names":
			names = append(names, arg)
		case doing == "property":
			name = arg
			doing = "none"
		case arg == "SET" || arg == "DEFINED":
			info = arg
		default:
			return errors.New(`given invalid argument "` + arg + `".`)
		}
	}
	if name == "" {
		return errors.New("not given name for PROPERTY argument.")
	}
	ps, err := d.propertyScope(scope, names)
	if err != nil {
		return err
	}
	value, ok := ps.get(d.ev, name)
	switch info {
	case "SET":
		d.AddDefinition(out, boolString(ok))
	case "DEFINED":
		// Properties are never declared with define_property.
		d.AddDefinition(out, "0")
	default:
		if ok {
			d.AddDefinition(out, value)
		} else {
			d.RemoveDefinition(out)
		}
	}
	return nil
}

// Gets a property. Some directory properties are computed.
func (ps propertyScope) get(ev *Evaler, name string) (string, bool) {
	if dir := ps.dir; dir != nil {
		switch name {
		case "SOURCE_DIR":
			return dir.SourceDir, true
		case "BINARY_DIR":
			return dir.BinaryDir, true
		case "PARENT_DIRECTORY":
			if dir.Parent == nil {
				return "", true
			}
			return dir.Parent.SourceDir, true
		case "SUBDIRECTORIES":
			var subdirs []string
			for _, c := range dir.Children {
				subdirs = append(subdirs, filepath.ToSlash(c.SourceDir))
			}
			return JoinList(subdirs), true
		case "VARIABLES":
			if d := ev.directories[dir.BinaryDir]; d != nil {
				return JoinList(d.snap.DefinitionNames()), true
			}
		}
	}
	return ps.props.Get(name)
}
