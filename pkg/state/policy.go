package state

import (
	"fmt"
	"strconv"
	"strings"
)

// PolicyStatus is the setting of a policy.
type PolicyStatus int

// Policy settings. A policy that has never been set is PolicyWarn.
const (
	PolicyWarn PolicyStatus = iota
	PolicyOld
	PolicyNew
)

func (s PolicyStatus) String() string {
	switch s {
	case PolicyOld:
		return "OLD"
	case PolicyNew:
		return "NEW"
	default:
		return "WARN"
	}
}

// PolicyID identifies a policy, like "CMP0054".
type PolicyID string

// Policies consulted by the interpreter.
const (
	CMP0010 PolicyID = "CMP0010"
	CMP0053 PolicyID = "CMP0053"
	CMP0054 PolicyID = "CMP0054"
	CMP0055 PolicyID = "CMP0055"
	CMP0057 PolicyID = "CMP0057"
	CMP0077 PolicyID = "CMP0077"
	CMP0124 PolicyID = "CMP0124"
	CMP0126 PolicyID = "CMP0126"
	CMP0140 PolicyID = "CMP0140"
)

// PolicyInfo describes a known policy.
type PolicyInfo struct {
	ID PolicyID
	// Version is the version that introduced the policy.
	Version Version
	Doc     string
}

var policies = []PolicyInfo{
	{CMP0010, Version{2, 8, 0}, "Bad variable reference syntax is an error."},
	{CMP0053, Version{3, 1, 0}, "Simplify variable reference and escape sequence evaluation."},
	{CMP0054, Version{3, 1, 0}, "Only interpret if() arguments as variables or keywords when unquoted."},
	{CMP0055, Version{3, 2, 0}, "Strict checking for break() command."},
	{CMP0057, Version{3, 3, 0}, "Support new if() IN_LIST operator."},
	{CMP0077, Version{3, 13, 0}, "option() honors normal variables."},
	{CMP0124, Version{3, 21, 0}, "foreach() loop variables are only available in the loop scope."},
	{CMP0126, Version{3, 21, 0}, "set(CACHE) does not remove a normal variable of the same name."},
	{CMP0140, Version{3, 25, 0}, "The return() command checks its parameters."},
}

// Policies returns information about all known policies.
func Policies() []PolicyInfo {
	return append([]PolicyInfo(nil), policies...)
}

// LookupPolicy returns information about a policy.
func LookupPolicy(id string) (PolicyInfo, bool) {
	for _, p := range policies {
		if string(p.ID) == id {
			return p, true
		}
	}
	return PolicyInfo{}, false
}

// PoliciesAtVersion returns the policies introduced at or before v.
func PoliciesAtVersion(v Version) []PolicyID {
	var ids []PolicyID
	for _, p := range policies {
		if p.Version.Compare(v) <= 0 {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// PolicyMap is a set of policy settings.
type PolicyMap map[PolicyID]PolicyStatus

// Version is a version number with major, minor and patch components.
type Version [3]int

// EngineVersion is the version of the language this interpreter implements.
var EngineVersion = Version{3, 28, 0}

// ParseVersion parses a version of the form major[.minor[.patch[.tweak]]].
// The tweak component is ignored.
func ParseVersion(s string) (Version, error) {
	var v Version
	parts := strings.Split(s, ".")
	if s == "" || len(parts) > 4 {
		return v, fmt.Errorf("invalid version %q", s)
	}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return v, fmt.Errorf("invalid version %q", s)
		}
		if i < 3 {
			v[i] = n
		}
	}
	return v, nil
}

// Compare returns -1, 0 or 1 when v is less than, equal to or greater
// than w.
func (v Version) Compare(w Version) int {
	for i := range v {
		switch {
		case v[i] < w[i]:
			return -1
		case v[i] > w[i]:
			return 1
		}
	}
	return 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}
