package eval

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/state"
)

// Reading other files: include, include_guard, add_subdirectory and project.

func init() {
	addBuiltin("include", Func(includeCommand))
	addBuiltin("include_guard", Func(includeGuardCommand))
	addProjectBuiltin("add_subdirectory", Func(addSubdirectoryCommand))
	addProjectBuiltin("project", Func(projectCommand))
}

// Finds a module in CMAKE_MODULE_PATH, then in the configured module path.
func (d *Directory) modulesFile(name string) string {
	dirs := ExpandList(d.GetSafeDefinition("CMAKE_MODULE_PATH"), false)
	dirs = append(dirs, d.ev.cfg.ModulePath...)
	for _, dir := range dirs {
		file := filepath.Join(dir, name)
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			return filepath.ToSlash(file)
		}
	}
	return ""
}

// Makes a path absolute relative to base, and cleans it.
func collapseFullPath(path, base string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	return filepath.ToSlash(filepath.Clean(path))
}

func includeCommand(st *Status, args []string) error {
	if len(args) == 0 || len(args) > 4 {
		return errors.New("called with wrong number of arguments.  include() only takes one file.")
	}
	d := st.Dir()
	optional, noPolicyScope := false, false
	fname, resultVar := args[0], ""
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "OPTIONAL":
			if optional {
				return errors.New("called with invalid arguments: OPTIONAL used twice")
			}
			optional = true
		case "RESULT_VARIABLE":
			if resultVar != "" {
				return errors.New("called with invalid arguments: only one result variable allowed")
			}
			i++
			if i >= len(args) {
				return errors.New("called with no value for RESULT_VARIABLE.")
			}
			resultVar = args[i]
		case "NO_POLICY_SCOPE":
			noPolicyScope = true
		default:
			if i > 1 {
				return errors.New("called with invalid argument: " + args[i])
			}
		}
	}

	if fname == "" {
		d.IssueMessage(diag.AuthorWarning, "include() given empty file name (ignored).")
		return nil
	}
	if !filepath.IsAbs(fname) {
		if module := d.modulesFile(fname + ".cmake"); module != "" {
			fname = module
		}
	}
	file := collapseFullPath(fname, d.SourceDir())

	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		if resultVar != "" {
			d.AddDefinition(resultVar, "NOTFOUND")
		}
		if optional {
			return nil
		}
		if err != nil {
			return errors.New("could not find requested file:\n  " + fname)
		}
		return errors.New("requested file is a directory:\n  " + fname)
	}

	read := d.readDependentFile(file, noPolicyScope)
	if resultVar != "" {
		if read {
			d.AddDefinition(resultVar, file)
		} else {
			d.AddDefinition(resultVar, "NOTFOUND")
		}
	}
	if !optional && !read && !d.ev.fatalOccurred {
		d.ev.issueMessage(diag.FatalError, "could not load requested file:\n  "+fname, diag.Backtrace{})
	}
	return nil
}

// Name of the variable or property guarding a file.
func includeGuardName(file string) string {
	sum := md5.Sum([]byte(file))
	return "__INCGUARD_" + hex.EncodeToString(sum[:]) + "__"
}

func includeGuardCommand(st *Status, args []string) error {
	if len(args) > 1 {
		return errors.New("given an invalid number of arguments. The command takes at most 1 argument.")
	}
	scope := "VARIABLE"
	if len(args) == 1 {
		scope = args[0]
		if scope != "DIRECTORY" && scope != "GLOBAL" {
			return errors.New("given an invalid scope: " + scope)
		}
	}
	d := st.Dir()
	name := includeGuardName(d.GetSafeDefinition("CMAKE_CURRENT_LIST_FILE"))
	switch scope {
	case "VARIABLE":
		if d.IsDefinitionSet(name) {
			st.SetReturnInvoked(nil)
			return nil
		}
		d.AddBoolDefinition(name, true)
	case "DIRECTORY":
		for dir := d.snap.Directory(); dir != nil; dir = dir.Parent {
			if _, ok := dir.Properties.Get(name); ok {
				st.SetReturnInvoked(nil)
				return nil
			}
		}
		d.snap.Directory().Properties.Set(name, "TRUE")
	case "GLOBAL":
		props := &d.ev.state.Properties
		if _, ok := props.Get(name); ok {
			st.SetReturnInvoked(nil)
			return nil
		}
		props.Set(name, "TRUE")
	}
	return nil
}

func addSubdirectoryCommand(st *Status, args []string) error {
	if len(args) == 0 {
		return errors.New("called with incorrect number of arguments")
	}
	d := st.Dir()
	srcArg, binArg := args[0], ""
	for _, arg := range args[1:] {
		switch {
		case arg == "EXCLUDE_FROM_ALL" || arg == "SYSTEM":
		case binArg == "":
			binArg = arg
		default:
			return errors.New("called with incorrect number of arguments")
		}
	}

	curSrc, curBin := d.SourceDir(), d.BinaryDir()
	srcPath := srcArg
	if !filepath.IsAbs(srcPath) {
		srcPath = curSrc + "/" + srcArg
	}
	if info, err := os.Stat(srcPath); err != nil || !info.IsDir() {
		return fmt.Errorf("given source \"%s\" which is not an existing directory.", srcArg)
	}
	srcPath = collapseFullPath(srcPath, d.ev.top.BinaryDir())

	var binPath string
	if binArg == "" {
		rel, err := filepath.Rel(curSrc, srcPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
			return fmt.Errorf("not given a binary directory but the given source directory \"%s\" "+
				"is not a subdirectory of \"%s\".  When specifying an out-of-tree source a binary "+
				"directory must be explicitly specified.", srcPath, curSrc)
		}
		binPath = strings.TrimSuffix(curBin, "/") + srcPath[len(strings.TrimSuffix(curSrc, "/")):]
	} else if filepath.IsAbs(binArg) {
		binPath = binArg
	} else {
		binPath = curBin + "/" + binArg
	}
	binPath = collapseFullPath(binPath, "/")

	d.addSubDirectory(srcPath, binPath)
	return nil
}

var projectVersionPattern = regexp.MustCompile(`^([0-9]+(\.[0-9]+(\.[0-9]+(\.[0-9]+)?)?)?)?$`)

const computedByCMake = "Value Computed by CMake"

// Sets a CMAKE_PROJECT_* cache entry from the top-level project, or from
// the first project when it is not set yet.
func (d *Directory) setTopLevelProjectVar(name, value string) {
	if _, ok := d.GetDefinition(name); !ok || d.parent == nil {
		d.RemoveDefinition(name)
		d.AddCacheDefinition(name, value, computedByCMake, state.CacheStatic, false)
	}
}

// Includes the files listed in a variable, as project() does with
// CMAKE_PROJECT_INCLUDE and its variants.
func (d *Directory) includeByVariable(variable string) error {
	v, ok := d.GetDefinition(variable)
	if !ok {
		return nil
	}
	var failure error
	for _, file := range ExpandList(v, false) {
		if !filepath.IsAbs(file) && !strings.HasSuffix(file, ".cmake") {
			module := d.modulesFile(file + ".cmake")
			if module == "" {
				failure = errors.New("could not find requested module:\n  " + file)
				continue
			}
			file = module
		}
		full := collapseFullPath(file, d.SourceDir())
		info, err := os.Stat(full)
		if err != nil {
			failure = errors.New("could not find requested file:\n  " + file)
			continue
		}
		if info.IsDir() {
			failure = errors.New("requested file is a directory:\n  " + file)
			continue
		}
		if !d.readDependentFile(full, false) {
			if d.ev.fatalOccurred {
				return ErrReported
			}
			failure = errors.New("could not load requested file:\n  " + file)
		}
	}
	return failure
}

func projectCommand(st *Status, args []string) error {
	if len(args) == 0 {
		return errors.New("PROJECT called with incorrect number of arguments")
	}
	d := st.Dir()
	ev := d.ev
	isRoot := d.parent == nil
	if isRoot && !d.IsDefinitionSet("CMAKE_MINIMUM_REQUIRED_VERSION") {
		d.IssueMessage(diag.AuthorWarning, "cmake_minimum_required() should be called prior to "+
			"this top-level project() call. Please see the cmake-commands(7) manual for usage "+
			"documentation of both commands.")
	}
	name := args[0]
	if err := d.includeByVariable("CMAKE_PROJECT_INCLUDE_BEFORE"); err != nil {
		return err
	}
	if err := d.includeByVariable("CMAKE_PROJECT_" + name + "_INCLUDE_BEFORE"); err != nil {
		return err
	}

	d.AddCacheDefinition(name+"_BINARY_DIR", d.BinaryDir(), computedByCMake, state.CacheStatic, false)
	d.AddCacheDefinition(name+"_SOURCE_DIR", d.SourceDir(), computedByCMake, state.CacheStatic, false)
	isTop := "OFF"
	if isRoot {
		isTop = "ON"
	}
	d.AddCacheDefinition(name+"_IS_TOP_LEVEL", isTop, computedByCMake, state.CacheStatic, false)
	d.AddDefinition("PROJECT_BINARY_DIR", d.BinaryDir())
	d.AddDefinition("PROJECT_SOURCE_DIR", d.SourceDir())
	d.AddDefinition("PROJECT_NAME", name)
	d.AddBoolDefinition("PROJECT_IS_TOP_LEVEL", isRoot)
	d.setTopLevelProjectVar("CMAKE_PROJECT_NAME", name)

	const (
		doingLanguages = iota
		doingVersion
		doingDescription
		doingHomepage
	)
	doing := doingLanguages
	seen := map[string]bool{}
	var version, description, homepage string
	var languages []string
	missing := ""
	reportMissing := func() {
		if missing != "" {
			d.IssueMessage(diag.Warning, missing+" keyword not followed by a value or was followed "+
				"by a value that expanded to nothing.")
			missing = ""
		}
	}
	fatal := func(msg string) error {
		d.IssueMessage(diag.FatalError, msg)
		ev.setFatal()
		return nil
	}
	for i, arg := range args[1:] {
		switch arg {
		case "LANGUAGES", "VERSION", "DESCRIPTION", "HOMEPAGE_URL":
			if seen[arg] {
				return fatal(arg + " may be specified at most once.")
			}
			seen[arg] = true
			reportMissing()
			switch arg {
			case "LANGUAGES":
				doing = doingLanguages
				if len(languages) > 0 {
					d.IssueMessage(diag.Warning, "the following parameters must be specified after "+
						"LANGUAGES keyword: "+strings.Join(languages, ", ")+".")
				}
			case "VERSION":
				doing, missing = doingVersion, arg
			case "DESCRIPTION":
				doing, missing = doingDescription, arg
			case "HOMEPAGE_URL":
				doing, missing = doingHomepage, arg
			}
			continue
		}
		if i == 0 && arg == "__CMAKE_INJECTED_PROJECT_COMMAND__" {
			continue
		}
		switch doing {
		case doingVersion:
			version = arg
		case doingDescription:
			description = arg
		case doingHomepage:
			homepage = arg
		default:
			languages = append(languages, arg)
		}
		if doing != doingLanguages {
			doing, missing = doingLanguages, ""
		}
	}
	reportMissing()

	if (seen["VERSION"] || seen["DESCRIPTION"] || seen["HOMEPAGE_URL"]) && !seen["LANGUAGES"] && len(languages) > 0 {
		return fatal("project with VERSION, DESCRIPTION or HOMEPAGE_URL must use LANGUAGES before language names.")
	}
	if seen["LANGUAGES"] && len(languages) == 0 {
		languages = []string{"NONE"}
	}

	versionVars := []string{"PROJECT_VERSION", name + "_VERSION"}
	topVersionVar := "CMAKE_PROJECT_VERSION"
	components := []string{"MAJOR", "MINOR", "PATCH", "TWEAK"}
	if seen["VERSION"] {
		if !projectVersionPattern.MatchString(version) {
			return fatal(`VERSION "` + version + `" format invalid.`)
		}
		parts := strings.Split(version, ".")
		for len(parts) < len(components) {
			parts = append(parts, "")
		}
		for _, v := range versionVars {
			d.AddDefinition(v, version)
			for i, c := range components {
				d.AddDefinition(v+"_"+c, parts[i])
			}
		}
		d.setTopLevelProjectVar(topVersionVar, version)
		for i, c := range components {
			d.setTopLevelProjectVar(topVersionVar+"_"+c, parts[i])
		}
	} else {
		vars := append([]string(nil), versionVars...)
		if isRoot {
			vars = append(vars, topVersionVar)
		}
		for _, v := range vars {
			for _, n := range append([]string{v}, suffixed(v, components)...) {
				if d.GetSafeDefinition(n) != "" {
					d.AddDefinition(n, "")
				}
			}
		}
	}

	d.AddDefinition("PROJECT_DESCRIPTION", description)
	d.AddDefinition(name+"_DESCRIPTION", description)
	d.setTopLevelProjectVar("CMAKE_PROJECT_DESCRIPTION", description)
	d.AddDefinition("PROJECT_HOMEPAGE_URL", homepage)
	d.AddDefinition(name+"_HOMEPAGE_URL", homepage)
	d.setTopLevelProjectVar("CMAKE_PROJECT_HOMEPAGE_URL", homepage)

	if len(languages) == 0 {
		languages = []string{"C", "CXX"}
	}
	// Toolchains are not detected; the languages are only recorded.
	current, _ := ev.state.Properties.Get("ENABLED_LANGUAGES")
	enabled := ExpandList(current, false)
	for _, lang := range languages {
		if lang != "NONE" && !contains(enabled, lang) {
			enabled = append(enabled, lang)
		}
	}
	ev.state.Properties.Set("ENABLED_LANGUAGES", JoinList(enabled))

	if err := d.includeByVariable("CMAKE_PROJECT_INCLUDE"); err != nil {
		return err
	}
	return d.includeByVariable("CMAKE_PROJECT_" + name + "_INCLUDE")
}

func suffixed(prefix string, suffixes []string) []string {
	names := make([]string, len(suffixes))
	for i, s := range suffixes {
		names[i] = prefix + "_" + s
	}
	return names
}

func contains(list []string, s string) bool {
	for _, elem := range list {
		if elem == s {
			return true
		}
	}
	return false
}
