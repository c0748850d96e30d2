package eval

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/parse"
	"src.cmk.sh/pkg/state"
	"src.cmk.sh/pkg/sys"
)

// ErrFailed is returned by runs during which an error was reported. The
// diagnostics have already gone through the Messenger.
var ErrFailed = errors.New("errors occurred")

// Whether commands should no longer run, because of a fatal error or an
// exit request.
func (ev *Evaler) stopped() bool { return ev.fatalOccurred || ev.exitCodeSet }

// ExecuteCommand runs one command invocation in d. It returns false if the
// command failed.
func (d *Directory) ExecuteCommand(fn parse.Function, st *Status, deferID string) bool {
	if d.isFunctionBlocked(fn, st) {
		return true
	}
	ev := d.ev

	savedBT := d.backtrace
	d.backtrace = d.backtrace.Push(diag.Frame{
		File: d.listFile, Line: fn.Line, Name: fn.OriginalName, DeferID: deferID})
	d.statusStack = append(d.statusStack, st)
	ev.depth++
	defer func() {
		ev.depth--
		d.statusStack = d.statusStack[:len(d.statusStack)-1]
		d.backtrace = savedBT
	}()

	if limit := ev.maxRecursionDepth(d); ev.depth > limit {
		d.IssueMessage(diag.FatalError, "Maximum recursion depth of "+itoa(limit)+" exceeded")
		ev.setFatal()
		return false
	}

	cmd, ok := ev.LookupCommand(fn.LowerName)
	if !ok {
		if ev.fatalOccurred {
			return true
		}
		d.IssueMessage(diag.FatalError, `Unknown CMake command "`+fn.OriginalName+`".`)
		ev.setFatal()
		return false
	}
	if ev.fatalOccurred {
		return true
	}
	if ev.cfg.Trace {
		d.printCommandTrace(fn, d.listFile, deferID)
	}
	err := cmd.Invoke(st, fn.Args)
	nested := st.nestedError || errors.Is(err, ErrReported)
	if err == nil && !nested {
		return true
	}
	if !nested {
		d.IssueMessage(diag.FatalError, fn.OriginalName+" "+err.Error())
	}
	if ev.cfg.ScriptMode {
		ev.setFatal()
	}
	return false
}

func (d *Directory) setCurrentListFile(file string) {
	d.AddDefinition("CMAKE_CURRENT_LIST_FILE", file)
	d.AddDefinition("CMAKE_CURRENT_LIST_DIR", dirOf(file))
}

func dirOf(file string) string {
	if file == "" {
		return ""
	}
	return filepath.Dir(file)
}

// Runs the commands of a parsed list file, then the calls deferred to q if
// it is not nil.
func (d *Directory) runListFile(lf *parse.ListFile, file string, q *deferQueue) {
	ev := d.ev
	logger.Println("running", file)

	parentFile := d.GetSafeDefinition("CMAKE_PARENT_LIST_FILE")
	currentFile := d.GetSafeDefinition("CMAKE_CURRENT_LIST_FILE")
	d.setCurrentListFile(file)

	for _, fn := range lf.Functions {
		st := newStatus(d)
		d.ExecuteCommand(fn, st, "")
		if ev.fatalOccurred {
			break
		}
		if st.returnInvoked {
			d.raiseScopes(st.returnVariables)
			break
		}
		if st.hasExitCode {
			ev.exitCode, ev.exitCodeSet = st.exitCode, true
			break
		}
		if ev.exitCodeSet {
			break
		}
	}

	if q != nil && !ev.stopped() {
		d.runDeferred(q, file)
	}

	d.AddDefinition("CMAKE_PARENT_LIST_FILE", parentFile)
	d.setCurrentListFile(currentFile)
}

// Parses a source, reporting the syntax warnings and errors.
func (d *Directory) parseSource(src parse.Source) (*parse.ListFile, bool) {
	lf, err := parse.Parse(src, parse.Config{WarningHandler: func(e *diag.Error) {
		d.issueMessageAt(diag.AuthorWarning, e.Message, d.backtrace.Push(errorFrame(e)))
	}})
	if err != nil {
		var perr *diag.Error
		if errors.As(err, &perr) {
			d.issueMessageAt(diag.FatalError, perr.Message, d.backtrace.Push(errorFrame(perr)))
		} else {
			d.issueMessageAt(diag.FatalError, err.Error(), d.backtrace)
		}
		d.ev.setFatal()
		return nil, false
	}
	return lf, true
}

func errorFrame(e *diag.Error) diag.Frame {
	return diag.Frame{File: e.File, Line: e.Line}
}

func (d *Directory) parseFile(file string) (*parse.ListFile, bool) {
	code, err := os.ReadFile(file)
	if err != nil {
		logger.Println("cannot read list file:", err)
		d.issueMessageAt(diag.FatalError, "Cannot open file:\n  "+file, d.backtrace)
		d.ev.setFatal()
		return nil, false
	}
	d.ev.listFiles = append(d.ev.listFiles, file)
	return d.parseSource(parse.Source{Name: file, Code: string(code)})
}

// Reads and runs a list file in a scope of its own, like a script run with
// -P.
func (d *Directory) readListFile(file string) bool {
	pop := d.pushListFileScope(file)
	defer pop()
	lf, ok := d.parseFile(file)
	if !ok {
		return false
	}
	d.runWithDeferQueue(lf, file)
	return true
}

// Reads and runs a file included by the current one.
func (d *Directory) readDependentFile(file string, noPolicyScope bool) bool {
	d.AddDefinition("CMAKE_PARENT_LIST_FILE", d.GetSafeDefinition("CMAKE_CURRENT_LIST_FILE"))
	pop := d.pushIncludeScope(file, noPolicyScope)
	defer pop()
	lf, ok := d.parseFile(file)
	if !ok {
		return false
	}
	d.runListFile(lf, file, nil)
	return true
}

// Runs code given as a string, attributed to a virtual file name.
func (d *Directory) readListFileAsString(code, name string) bool {
	pop := d.pushListFileScope(name)
	defer pop()
	lf, ok := d.parseSource(parse.Source{Name: name, Code: code})
	if !ok {
		return false
	}
	d.runListFile(lf, name, nil)
	return true
}

// Runs a script with a defer queue of its own, unless one is already active.
func (d *Directory) runWithDeferQueue(lf *parse.ListFile, file string) {
	if d.deferred != nil {
		d.runListFile(lf, file, nil)
		return
	}
	q := &deferQueue{}
	d.deferred = q
	d.runListFile(lf, file, q)
	d.deferred = nil
}

// Configure reads the CMakeLists.txt of a source directory as the top of a
// project. It returns ErrFailed if errors were reported.
func (ev *Evaler) Configure(sourceDir, binaryDir string) error {
	src, err := filepath.Abs(sourceDir)
	if err != nil {
		return err
	}
	bin, err := filepath.Abs(binaryDir)
	if err != nil {
		return err
	}
	snap := ev.state.CreateBaseSnapshot(src, bin)
	d := ev.newDirectory(nil, snap, diag.Backtrace{})
	ev.top = d
	d.setDefaultDefinitions()
	d.AddDefinition("CMAKE_SOURCE_DIR", src)
	d.AddDefinition("CMAKE_BINARY_DIR", bin)
	d.AddDefinition("CMAKE_CURRENT_SOURCE_DIR", src)
	d.AddDefinition("CMAKE_CURRENT_BINARY_DIR", bin)
	if _, err := os.Stat(filepath.Join(src, "CMakeLists.txt")); err != nil {
		ev.issueMessage(diag.FatalError, "The source directory\n  "+src+
			"\ndoes not appear to contain CMakeLists.txt.", diag.Backtrace{})
		ev.setFatal()
		return ErrFailed
	}
	d.configure()
	if ev.ErrorOccurred() {
		return ErrFailed
	}
	return nil
}

// Top returns the top directory of the project being configured, or nil.
func (ev *Evaler) Top() *Directory { return ev.top }

// Runs the CMakeLists.txt of the directory.
func (d *Directory) configure() {
	file := filepath.Join(d.SourceDir(), "CMakeLists.txt")
	logger.Println("configuring", d.SourceDir())
	d.backtrace = d.backtrace.Push(diag.Frame{File: file})
	d.listFile = file
	pop := d.pushBuildsystemFileScope()
	defer pop()

	d.AddDefinition("CMAKE_PARENT_LIST_FILE", file)
	lf, ok := d.parseFile(file)
	if !ok {
		return
	}
	if d.parent == nil {
		lf = d.checkTopListFile(lf)
	}
	d.deferred = &deferQueue{}
	d.runListFile(lf, file, d.deferred)
	d.deferred = nil
	logger.Println("done configuring", d.SourceDir())
}

// Warns about a top-level list file without cmake_minimum_required or
// project, and pretends there is a project(Project) call in the latter case.
func (d *Directory) checkTopListFile(lf *parse.ListFile) *parse.ListFile {
	hasVersion, hasProject := false, false
	for _, fn := range lf.Functions {
		switch fn.LowerName {
		case "cmake_minimum_required":
			hasVersion = true
		case "project":
			hasProject = true
		}
	}
	if !hasVersion {
		d.IssueMessage(diag.AuthorWarning, "No cmake_minimum_required command is present.  "+
			"A line of code such as\n\n  cmake_minimum_required(VERSION "+
			strconv.Itoa(state.EngineVersion[0])+"."+strconv.Itoa(state.EngineVersion[1])+
			")\n\nshould be added at the top of the file.  The version specified may be lower "+
			"if you wish to support older CMake versions for this project.")
	}
	if !hasProject {
		d.IssueMessage(diag.AuthorWarning, "No project() command is present.  The top-level "+
			"CMakeLists.txt file must contain a literal, direct call to the project() command.  "+
			"Add a line of code such as\n\n  project(ProjectName)\n\nnear the top of the file, "+
			"but after cmake_minimum_required().\n\n"+
			"CMake is pretending there is a \"project(Project)\" command on the first line.")
		project := parse.NewFunction("project", 0,
			[]parse.Argument{{Value: "Project", Delim: parse.Unquoted}})
		lf = &parse.ListFile{Functions: append([]parse.Function{project}, lf.Functions...)}
	}
	return lf
}

// Adds and configures a subdirectory.
func (d *Directory) addSubDirectory(src, bin string) bool {
	if d.deferRunning {
		d.IssueMessage(diag.FatalError, "Subdirectories may not be created during deferred execution.")
		return false
	}
	if _, ok := d.ev.directories[bin]; ok {
		d.IssueMessage(diag.FatalError, "The binary directory\n  "+bin+
			"\nis already used to build a source directory.  It cannot be used to build source directory\n  "+
			src+"\nSpecify a unique binary directory name.")
		return false
	}
	snap := d.snap.CreateBuildsystemDirectorySnapshot(src, bin)
	sub := d.ev.newDirectory(d, snap, d.backtrace)
	sub.snap.SetDefinition("CMAKE_CURRENT_SOURCE_DIR", src)
	sub.snap.SetDefinition("CMAKE_CURRENT_BINARY_DIR", bin)

	if _, err := os.Stat(filepath.Join(src, "CMakeLists.txt")); err != nil {
		d.IssueMessage(diag.FatalError, "The source directory\n  "+src+
			"\ndoes not contain a CMakeLists.txt file.")
		return false
	}
	sub.configure()
	return true
}

// Sets the variables every run starts with.
func (d *Directory) setDefaultDefinitions() {
	v := state.EngineVersion
	d.AddDefinition("CMAKE_VERSION", v.String())
	d.AddDefinition("CMAKE_MAJOR_VERSION", strconv.Itoa(v[0]))
	d.AddDefinition("CMAKE_MINOR_VERSION", strconv.Itoa(v[1]))
	d.AddDefinition("CMAKE_PATCH_VERSION", strconv.Itoa(v[2]))
	d.AddDefinition("CMAKE_TWEAK_VERSION", "0")
	d.AddDefinition("CMAKE_FILES_DIRECTORY", "/CMakeFiles")
	if cmd := d.ev.cfg.Command; cmd != "" {
		d.AddDefinition("CMAKE_COMMAND", cmd)
	}
	if runtime.GOOS == "windows" {
		d.AddBoolDefinition("WIN32", true)
		d.AddBoolDefinition("CMAKE_HOST_WIN32", true)
	} else {
		d.AddBoolDefinition("UNIX", true)
		d.AddBoolDefinition("CMAKE_HOST_UNIX", true)
	}
	if runtime.GOOS == "darwin" {
		d.AddBoolDefinition("APPLE", true)
		d.AddBoolDefinition("CMAKE_HOST_APPLE", true)
	}
	if runtime.GOOS == "linux" {
		d.AddBoolDefinition("CMAKE_HOST_LINUX", true)
	}
	host := sys.Host()
	d.AddDefinition("CMAKE_HOST_SYSTEM_NAME", host.Name)
	d.AddDefinition("CMAKE_HOST_SYSTEM_PROCESSOR", host.Processor)
	d.AddDefinition("CMAKE_HOST_SYSTEM_VERSION", host.Version)
	if host.Version != "" {
		d.AddDefinition("CMAKE_HOST_SYSTEM", host.Name+"-"+host.Version)
	} else {
		d.AddDefinition("CMAKE_HOST_SYSTEM", host.Name)
	}
}

// Returns the directory scripts run in, creating it on first use.
func (ev *Evaler) scriptDirectory() *Directory {
	if ev.scriptDir != nil {
		return ev.scriptDir
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "/"
	}
	snap := ev.state.CreateBaseSnapshot(wd, wd)
	d := ev.newDirectory(nil, snap, diag.Backtrace{})
	d.setDefaultDefinitions()
	for _, name := range []string{"CMAKE_SOURCE_DIR", "CMAKE_BINARY_DIR",
		"CMAKE_CURRENT_SOURCE_DIR", "CMAKE_CURRENT_BINARY_DIR"} {
		d.AddDefinition(name, wd)
	}
	ev.scriptDir = d
	return d
}

// ScriptDir returns the directory scripts run in.
func (ev *Evaler) ScriptDir() *Directory { return ev.scriptDirectory() }

// RunScript runs a script file the way "cmk -P" does. The argv are the
// command line arguments made available as CMAKE_ARGV<n>. It returns
// ErrFailed if errors were reported; the exit code requested by the script,
// if any, is available from ExitCode.
func (ev *Evaler) RunScript(path string, argv []string) error {
	d := ev.scriptDirectory()
	file, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	d.AddDefinition("CMAKE_SCRIPT_MODE_FILE", filepath.ToSlash(file))
	d.AddDefinition("CMAKE_ARGC", strconv.Itoa(len(argv)))
	for i, arg := range argv {
		d.AddDefinition("CMAKE_ARGV"+strconv.Itoa(i), arg)
	}
	if !d.readListFile(file) && !ev.exitCodeSet {
		ev.errorOccurred = true
	}
	if ev.ErrorOccurred() {
		return ErrFailed
	}
	return nil
}

// EvalScript runs code in the script directory. Successive calls share
// variables and commands.
func (ev *Evaler) EvalScript(src parse.Source) error {
	d := ev.scriptDirectory()
	file := src.Name
	if !filepath.IsAbs(file) {
		file = filepath.Join(d.SourceDir(), file)
	}
	pop := d.pushListFileScope(file)
	lf, ok := d.parseSource(parse.Source{Name: file, Code: src.Code})
	if ok {
		d.runWithDeferQueue(lf, file)
	}
	pop()
	if ev.ErrorOccurred() {
		return ErrFailed
	}
	return nil
}
