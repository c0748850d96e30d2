package eval

import (
	"errors"
	"fmt"
	"strings"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/state"
)

// Variables: set, unset, option, variable_watch and math.

func init() {
	addBuiltin("set", Func(setCommand))
	addBuiltin("unset", Func(unsetCommand))
	addBuiltin("option", Func(optionCommand))
	addBuiltin("variable_watch", Func(variableWatchCommand))
	addBuiltin("math", Func(mathCommand))
}

// Name of the environment variable in "ENV{name}".
func envVarName(s string) (string, bool) {
	if strings.HasPrefix(s, "ENV{") && len(s) > 5 {
		return s[4 : len(s)-1], true
	}
	return "", false
}

func setCommand(st *Status, args []string) error {
	d := st.Dir()
	if len(args) == 0 {
		return errors.New("called with incorrect number of arguments")
	}
	name := args[0]
	if env, ok := envVarName(name); ok {
		current, set := d.ev.Getenv(env)
		if len(args) > 1 && args[1] != "" {
			if !set || current != args[1] {
				d.ev.Setenv(env, args[1])
			}
			if len(args) > 2 {
				d.IssueMessage(diag.AuthorWarning, "Only the first value argument is used when setting "+
					"an environment variable.  Argument '"+args[2]+"' and later are unused.")
			}
			return nil
		}
		if set {
			d.ev.Unsetenv(env)
		}
		return nil
	}

	if len(args) == 1 {
		d.RemoveDefinition(name)
		return nil
	}
	last := args[len(args)-1]
	if len(args) == 2 && last == "PARENT_SCOPE" {
		d.RaiseScope(name, nil)
		return nil
	}

	var cache, force, parentScope bool
	ignoreLast := 0
	if last == "PARENT_SCOPE" {
		parentScope = true
		ignoreLast++
	} else {
		if len(args) > 4 && last == "FORCE" {
			force = true
			ignoreLast++
		}
		if len(args) > 3 && args[len(args)-3-ignoreLast] == "CACHE" {
			cache = true
			ignoreLast += 3
		}
	}
	value := JoinList(args[1 : len(args)-ignoreLast])

	if parentScope {
		d.RaiseScope(name, &value)
		return nil
	}
	if last == "CACHE" || args[len(args)-2] == "CACHE" || (force && !cache) {
		return errors.New("given invalid arguments for CACHE mode.")
	}

	if !cache {
		d.AddDefinition(name, value)
		return nil
	}
	cacheStart := len(args) - 3
	if force {
		cacheStart--
	}
	typ, ok := state.ParseCacheType(args[cacheStart+1])
	if !ok {
		d.IssueMessage(diag.AuthorWarning, "implicitly converting '"+args[cacheStart+1]+"' to 'STRING' type.")
		typ = state.CacheString
	}
	doc := args[cacheStart+2]
	if existing, ok := d.ev.state.Cache.Get(name); ok && existing.Type != state.CacheUninitialized {
		// An existing entry is only replaced by an INTERNAL one, or with
		// FORCE.
		if typ != state.CacheInternal && !force {
			return nil
		}
	}
	d.AddCacheDefinition(name, value, doc, typ, force)
	return nil
}

func unsetCommand(st *Status, args []string) error {
	d := st.Dir()
	if len(args) == 0 || len(args) > 2 {
		return errors.New("called with incorrect number of arguments")
	}
	name := args[0]
	if env, ok := envVarName(name); ok {
		d.ev.Unsetenv(env)
		return nil
	}
	if len(args) == 1 {
		d.RemoveDefinition(name)
		return nil
	}
	switch args[1] {
	case "CACHE":
		d.RemoveCacheDefinition(name)
		return nil
	case "PARENT_SCOPE":
		d.RaiseScope(name, nil)
		return nil
	}
	return errors.New("called with an invalid second argument")
}

func optionCommand(st *Status, args []string) error {
	d := st.Dir()
	if len(args) < 2 || len(args) > 3 {
		return errors.New("called with incorrect number of arguments: " + strings.Join(args, " "))
	}
	name, doc := args[0], args[1]
	checkAndWarn := false
	switch d.GetPolicy(state.CMP0077) {
	case state.PolicyWarn:
		checkAndWarn = d.IsNormalDefinitionSet(name)
	case state.PolicyNew:
		if d.IsNormalDefinitionSet(name) {
			return nil
		}
	}

	cache := d.ev.state.Cache
	existing, exists := cache.Get(name)
	if exists && existing.Type != state.CacheUninitialized {
		existing.Help = doc
		cache.Set(name, existing)
		return nil
	}
	initial := "Off"
	if exists {
		initial = existing.Value
	}
	if len(args) == 3 {
		initial = args[2]
	}
	d.AddCacheDefinition(name, initial, doc, state.CacheBool, false)

	if checkAndWarn && !d.IsNormalDefinitionSet(name) {
		d.IssueMessage(diag.AuthorWarning, policyWarning(state.CMP0077)+"\n"+
			"For compatibility with older versions of CMake, option is clearing the normal variable '"+
			name+"'.")
	}
	return nil
}

func variableWatchCommand(st *Status, args []string) error {
	d := st.Dir()
	if len(args) == 0 {
		return errors.New("must be called with at least one argument.")
	}
	name := args[0]
	command := ""
	if len(args) > 1 {
		command = args[1]
	}
	if name == "CMAKE_CURRENT_LIST_FILE" {
		return errors.New("cannot be set on the variable: " + name)
	}
	d.ev.AddWatch(name, commandWatch(command))
	return nil
}

func mathCommand(st *Status, args []string) error {
	if len(args) == 0 {
		return errors.New("must be called with at least one argument.")
	}
	if args[0] != "EXPR" {
		return errors.New("does not recognize sub-command " + args[0])
	}
	if len(args) != 3 && len(args) != 5 {
		return errors.New("EXPR called with incorrect arguments.")
	}
	d := st.Dir()
	out, expr := args[1], args[2]
	d.AddDefinition(out, "ERROR")
	hex := false
	if len(args) == 5 {
		if args[3] != "OUTPUT_FORMAT" {
			return fmt.Errorf("sub-command EXPR option \"%s\" is unknown.", args[3])
		}
		switch args[4] {
		case "DECIMAL":
		case "HEXADECIMAL":
			hex = true
		default:
			return fmt.Errorf("sub-command EXPR value \"%s\" for option \"%s\" is invalid.", args[4], args[3])
		}
	}
	v, err := evalExpr(expr)
	if err != nil {
		return err
	}
	if hex {
		d.AddDefinition(out, fmt.Sprintf("0x%x", uint64(v)))
	} else {
		d.AddDefinition(out, fmt.Sprint(v))
	}
	return nil
}
