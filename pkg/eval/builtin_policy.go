package eval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/state"
)

func init() {
	addBuiltin("cmake_minimum_required", Func(minimumRequiredCommand))
	addBuiltin("cmake_policy", Func(policyCommand))
}

// Scans a version the way sscanf("%u.%u.%u.%u") does, returning the
// components and how many were found.
func scanVersion(s string) ([4]int, int) {
	var v [4]int
	n := 0
	for n < 4 {
		end := digitRun(s)
		if end == 0 {
			break
		}
		v[n], _ = strconv.Atoi(s[:end])
		n++
		s = s[end:]
		if !strings.HasPrefix(s, ".") {
			break
		}
		s = s[1:]
	}
	return v, n
}

func compareVersion4(a, b [4]int) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

func engineVersion4() [4]int {
	v := state.EngineVersion
	return [4]int{v[0], v[1], v[2], 0}
}

// Splits "min...max".
func splitVersionRange(s string) (minVersion, maxVersion string, err error) {
	minVersion, maxVersion, found := strings.Cut(s, "...")
	if found && (minVersion == "" || maxVersion == "") {
		return "", "", fmt.Errorf("VERSION \"%s\" does not have a version on both sides of \"...\".", s)
	}
	return minVersion, maxVersion, nil
}

func minimumRequiredCommand(st *Status, args []string) error {
	d := st.Dir()
	var version string
	var unknown []string
	doingVersion := false
	for _, arg := range args {
		switch {
		case arg == "VERSION":
			doingVersion = true
		case arg == "FATAL_ERROR":
			if doingVersion {
				return errors.New("called with no value for VERSION.")
			}
		case doingVersion:
			doingVersion = false
			version = arg
		default:
			unknown = append(unknown, arg)
		}
	}
	if doingVersion {
		return errors.New("called with no value for VERSION.")
	}
	enforceUnknown := func() error {
		if len(unknown) > 0 {
			return errors.New(`called with unknown argument "` + unknown[0] + `".`)
		}
		return nil
	}
	if version == "" {
		return enforceUnknown()
	}
	minVersion, maxVersion, err := splitVersionRange(version)
	if err != nil {
		return err
	}
	d.AddDefinition("CMAKE_MINIMUM_REQUIRED_VERSION", minVersion)

	required, n := scanVersion(minVersion)
	if n < 2 {
		return fmt.Errorf("could not parse VERSION \"%s\".", minVersion)
	}
	if compareVersion4(engineVersion4(), required) < 0 {
		d.IssueMessage(diag.FatalError, fmt.Sprintf("CMake %d.%d or higher is required.  You are running version %s",
			required[0], required[1], state.EngineVersion))
		d.ev.setFatal()
		return nil
	}
	if err := enforceUnknown(); err != nil {
		return err
	}
	if required[0] < 2 || required[0] == 2 && required[1] < 4 {
		d.IssueMessage(diag.AuthorWarning, "Compatibility with CMake < 2.4 is not supported by CMake >= 3.0.")
		d.setPolicyVersion("2.4", maxVersion)
	} else {
		d.setPolicyVersion(minVersion, maxVersion)
	}
	return nil
}

// Sets every known policy introduced at or before the given version to NEW,
// and the others to their default from CMAKE_POLICY_DEFAULT_CMP<NNNN>, or
// leaves them unset.
func (d *Directory) setPolicyVersion(minVersion, maxVersion string) bool {
	fail := func(msg string) bool {
		d.IssueMessage(diag.FatalError, msg)
		return false
	}
	v, n := scanVersion(minVersion)
	if n < 2 {
		return fail(`Invalid policy version value "` + minVersion + `".  A numeric major.minor[.patch[.tweak]] must be given.`)
	}
	if v[0] < 2 || v[0] == 2 && v[1] < 4 {
		return fail("Compatibility with CMake < 2.4 is not supported by CMake >= 3.0.  " +
			"For compatibility with older versions please use any CMake 2.8.x release or lower.")
	}
	if compareVersion4(v, engineVersion4()) > 0 {
		return fail(`Policy version "` + minVersion + `" is greater than this version of CMake, ` +
			state.EngineVersion.String() + ".")
	}
	if maxVersion != "" {
		vmax, n := scanVersion(maxVersion)
		if n < 2 {
			return fail(`Invalid policy max version value "` + maxVersion + `".  A numeric major.minor[.patch[.tweak]] must be given.`)
		}
		if compareVersion4(v, vmax) > 0 {
			return fail(`Policy VERSION range "` + minVersion + "..." + maxVersion + `" specifies a larger minimum than maximum.`)
		}
		v = vmax
	}
	version := state.Version{v[0], v[1], v[2]}
	for _, p := range state.Policies() {
		if p.Version.Compare(version) <= 0 {
			d.snap.SetPolicy(p.ID, state.PolicyNew)
			continue
		}
		switch d.GetSafeDefinition("CMAKE_POLICY_DEFAULT_" + string(p.ID)) {
		case "OLD":
			d.snap.SetPolicy(p.ID, state.PolicyOld)
		case "NEW":
			d.snap.SetPolicy(p.ID, state.PolicyNew)
		default:
			d.snap.SetPolicy(p.ID, state.PolicyWarn)
		}
	}
	return true
}

func policyCommand(st *Status, args []string) error {
	if len(args) == 0 {
		return errors.New("requires at least one argument.")
	}
	d := st.Dir()
	switch args[0] {
	case "SET":
		if len(args) != 3 {
			return errors.New("SET must be given exactly 2 additional arguments.")
		}
		var status state.PolicyStatus
		switch args[2] {
		case "OLD":
			status = state.PolicyOld
		case "NEW":
			status = state.PolicyNew
		default:
			return errors.New(`SET given unrecognized policy status "` + args[2] + `"`)
		}
		if _, ok := state.LookupPolicy(args[1]); !ok {
			d.IssueMessage(diag.FatalError, `Policy "`+args[1]+`" is not known to this version of CMake.`)
			return ErrReported
		}
		d.snap.SetPolicy(state.PolicyID(args[1]), status)
	case "GET":
		parentScope := len(args) == 4 && args[3] == "PARENT_SCOPE"
		if len(args) != 3 && !parentScope {
			return errors.New("GET must be given exactly 2 additional arguments.")
		}
		id, out := args[1], args[2]
		if _, ok := state.LookupPolicy(id); !ok {
			return errors.New(`GET given policy "` + id + `" which is not known to this version of CMake.`)
		}
		snap := d.snap
		if parentScope && snap.Parent() != nil {
			snap = snap.Parent()
		}
		switch snap.GetPolicy(state.PolicyID(id)) {
		case state.PolicyOld:
			d.AddDefinition(out, "OLD")
		case state.PolicyNew:
			d.AddDefinition(out, "NEW")
		default:
			d.AddDefinition(out, "")
		}
	case "PUSH":
		if len(args) > 1 {
			return errors.New("PUSH may not be given additional arguments.")
		}
		d.PushPolicy()
	case "POP":
		if len(args) > 1 {
			return errors.New("POP may not be given additional arguments.")
		}
		d.PopPolicy()
	case "VERSION":
		if len(args) <= 1 {
			return errors.New("VERSION not given an argument")
		}
		if len(args) >= 3 {
			return errors.New("VERSION given too many arguments")
		}
		minVersion, maxVersion, err := splitVersionRange(args[1])
		if err != nil {
			return err
		}
		d.setPolicyVersion(minVersion, maxVersion)
	default:
		return errors.New(`given unknown first argument "` + args[0] + `"`)
	}
	return nil
}
