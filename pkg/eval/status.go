package eval

// Status is the execution status of one command invocation. Handlers use it
// to reach the directory they run in and to signal control flow to the
// enclosing construct.
type Status struct {
	dir *Directory

	returnInvoked   bool
	returnVariables []string
	breakInvoked    bool
	continueInvoked bool
	nestedError     bool
	exitCode        int
	hasExitCode     bool
}

func newStatus(d *Directory) *Status { return &Status{dir: d} }

// Dir returns the directory the command runs in.
func (st *Status) Dir() *Directory { return st.dir }

// SetReturnInvoked records that return() was called, propagating the given
// variables to the caller.
func (st *Status) SetReturnInvoked(vars []string) {
	st.returnInvoked = true
	st.returnVariables = vars
}

// ReturnInvoked returns whether return() was called.
func (st *Status) ReturnInvoked() bool { return st.returnInvoked }

// ReturnVariables returns the variables passed to return(PROPAGATE).
func (st *Status) ReturnVariables() []string { return st.returnVariables }

// SetBreakInvoked records that break() was called.
func (st *Status) SetBreakInvoked() { st.breakInvoked = true }

// BreakInvoked returns whether break() was called.
func (st *Status) BreakInvoked() bool { return st.breakInvoked }

// SetContinueInvoked records that continue() was called.
func (st *Status) SetContinueInvoked() { st.continueInvoked = true }

// ContinueInvoked returns whether continue() was called.
func (st *Status) ContinueInvoked() bool { return st.continueInvoked }

// SetNestedError records that an error has been reported by a command
// run on behalf of this one.
func (st *Status) SetNestedError() { st.nestedError = true }

// NestedError returns whether a nested error has been reported.
func (st *Status) NestedError() bool { return st.nestedError }

// SetExitCode records a request to end the script with the given code.
func (st *Status) SetExitCode(code int) {
	st.exitCode = code
	st.hasExitCode = true
}

// ExitCode returns the requested exit code, if any.
func (st *Status) ExitCode() (int, bool) { return st.exitCode, st.hasExitCode }

// Copies the control flow signals of an inner status that end the
// enclosing construct. It returns whether there was any.
func (st *Status) forward(inner *Status) bool {
	switch {
	case inner.returnInvoked:
		st.SetReturnInvoked(inner.returnVariables)
	case inner.breakInvoked:
		st.SetBreakInvoked()
	case inner.continueInvoked:
		st.SetContinueInvoked()
	case inner.hasExitCode:
		st.SetExitCode(inner.exitCode)
	default:
		return false
	}
	return true
}
