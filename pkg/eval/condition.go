package eval

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/state"
)

// Evaluates the conditions of if(), elseif() and while().
//
// The arguments are reduced in passes of decreasing precedence:
// parentheses, unary predicates, binary operators, NOT, and finally AND and
// OR. Each reduction replaces the operator and its operands with a quoted
// "1" or "0".
type conditionEvaluator struct {
	d  *Directory
	bt diag.Backtrace

	policy54 state.PolicyStatus
	policy57 state.PolicyStatus

	// The first error encountered, and the type it is to be reported with.
	err     string
	errType diag.MessageType
}

func newConditionEvaluator(d *Directory, bt diag.Backtrace) *conditionEvaluator {
	return &conditionEvaluator{d: d, bt: bt,
		policy54: d.GetPolicy(state.CMP0054), policy57: d.GetPolicy(state.CMP0057)}
}

func (ce *conditionEvaluator) fail(msg string) {
	if ce.err == "" {
		ce.err, ce.errType = msg, diag.FatalError
	}
}

func boolArg(b bool) expandedArg {
	if b {
		return expandedArg{"1", true}
	}
	return expandedArg{"0", true}
}

// Evaluates the condition. The error, if any, is left in ce.err.
func (ce *conditionEvaluator) isTrue(args []expandedArg) bool {
	if len(args) == 0 {
		return false
	}
	list := append([]expandedArg(nil), args...)
	var ok bool
	if list, ok = ce.handleParens(list); !ok {
		return false
	}
	list = ce.handleUnary(list)
	if list, ok = ce.handleBinary(list); !ok {
		return false
	}
	list = ce.handleNot(list)
	list = ce.handleAndOr(list)
	if len(list) != 1 {
		ce.fail("Unknown arguments specified")
		return false
	}
	return ce.booleanValue(list[0])
}

func (ce *conditionEvaluator) handleParens(args []expandedArg) ([]expandedArg, bool) {
	for i := 0; i < len(args); i++ {
		if !ce.isKeyword("(", args[i]) {
			continue
		}
		depth := 1
		j := i + 1
		for ; j < len(args) && depth > 0; j++ {
			if ce.isKeyword("(", args[j]) {
				depth++
			} else if ce.isKeyword(")", args[j]) {
				depth--
			}
		}
		if depth > 0 {
			ce.fail("mismatched parenthesis in condition")
			return nil, false
		}
		value := ce.isTrue(args[i+1 : j-1])
		args = append(append(args[:i:i], boolArg(value)), args[j:]...)
	}
	return args, true
}

var unaryPredicates = map[string]func(ce *conditionEvaluator, arg string) bool{
	"EXISTS": func(_ *conditionEvaluator, arg string) bool {
		if arg == "" {
			return false
		}
		_, err := os.Stat(arg)
		return err == nil
	},
	"IS_READABLE":   func(_ *conditionEvaluator, arg string) bool { return accessible(arg, os.O_RDONLY) },
	"IS_WRITABLE":   func(_ *conditionEvaluator, arg string) bool { return accessible(arg, os.O_WRONLY) },
	"IS_EXECUTABLE": func(_ *conditionEvaluator, arg string) bool { return executable(arg) },
	"IS_DIRECTORY": func(_ *conditionEvaluator, arg string) bool {
		info, err := os.Stat(arg)
		return err == nil && info.IsDir()
	},
	"IS_SYMLINK": func(_ *conditionEvaluator, arg string) bool {
		info, err := os.Lstat(arg)
		return err == nil && info.Mode()&os.ModeSymlink != 0
	},
	"IS_ABSOLUTE": func(_ *conditionEvaluator, arg string) bool { return filepath.IsAbs(arg) },
	"COMMAND": func(ce *conditionEvaluator, arg string) bool {
		_, ok := ce.d.ev.LookupCommand(arg)
		return ok
	},
	"POLICY": func(_ *conditionEvaluator, arg string) bool {
		_, ok := state.LookupPolicy(arg)
		return ok
	},
	// There are no targets or tests.
	"TARGET": func(*conditionEvaluator, string) bool { return false },
	"TEST":   func(*conditionEvaluator, string) bool { return false },
	"DEFINED": func(ce *conditionEvaluator, arg string) bool {
		if name, ok := specialVariable(arg, "ENV"); ok {
			_, ok := ce.d.ev.Getenv(name)
			return ok
		}
		if name, ok := specialVariable(arg, "CACHE"); ok {
			_, ok := ce.d.ev.state.Cache.Get(name)
			return ok
		}
		return ce.d.IsDefinitionSet(arg)
	},
}

// Recognizes ENV{name} and CACHE{name}.
func specialVariable(s, domain string) (string, bool) {
	if strings.HasPrefix(s, domain+"{") && strings.HasSuffix(s, "}") && len(s) > len(domain)+2 {
		return s[len(domain)+1 : len(s)-1], true
	}
	return "", false
}

func accessible(name string, flag int) bool {
	f, err := os.OpenFile(name, flag, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func executable(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.Mode()&0o111 != 0
}

func (ce *conditionEvaluator) handleUnary(args []expandedArg) []expandedArg {
	for i := 0; i+1 < len(args); i++ {
		for kw, pred := range unaryPredicates {
			if ce.isKeyword(kw, args[i]) {
				args[i] = boolArg(pred(ce, args[i+1].value))
				args = append(args[:i+1], args[i+2:]...)
				break
			}
		}
	}
	return args
}

type compareOp int

const (
	opLess compareOp = iota
	opLessEqual
	opGreater
	opGreaterEqual
	opEqual
)

func compareResult(op compareOp, c int) bool {
	switch op {
	case opLess:
		return c < 0
	case opLessEqual:
		return c <= 0
	case opGreater:
		return c > 0
	case opGreaterEqual:
		return c >= 0
	default:
		return c == 0
	}
}

func (ce *conditionEvaluator) matchOp(arg expandedArg, prefix string) (compareOp, bool) {
	for op, suffix := range [...]string{"LESS", "LESS_EQUAL", "GREATER", "GREATER_EQUAL", "EQUAL"} {
		if ce.isKeyword(prefix+suffix, arg) {
			return compareOp(op), true
		}
	}
	return 0, false
}

func (ce *conditionEvaluator) handleBinary(args []expandedArg) ([]expandedArg, bool) {
	reduce := func(i int, b bool) {
		args[i] = boolArg(b)
		args = append(args[:i+1], args[i+3:]...)
	}
	for i := 0; i < len(args); i++ {
		// "MATCHES" with nothing on its left is false.
		if i+1 < len(args) && ce.isKeyword("MATCHES", args[i]) {
			args[i] = boolArg(false)
			args = append(args[:i+1], args[i+2:]...)
			continue
		}
		if i+2 >= len(args) {
			continue
		}
		lhs, op, rhs := args[i], args[i+1], args[i+2]
		if ce.isKeyword("MATCHES", op) {
			value := ce.definitionIfUnquoted(lhs)
			if value == nil {
				value = &lhs.value
			}
			subject := *value
			ce.d.clearMatches()
			re, err := regexp.Compile(rhs.value)
			if err != nil {
				ce.fail(`Regular expression "` + rhs.value + `" cannot compile`)
				return nil, false
			}
			groups := re.FindStringSubmatch(subject)
			if groups != nil {
				ce.d.storeMatches(groups)
			}
			reduce(i, groups != nil)
		} else if cmp, ok := ce.matchOp(op, ""); ok {
			l, lok := parseLeadingFloat(ce.variableOrString(lhs))
			r, rok := parseLeadingFloat(ce.variableOrString(rhs))
			result := false
			if lok && rok {
				switch {
				case l < r:
					result = compareResult(cmp, -1)
				case l > r:
					result = compareResult(cmp, 1)
				case l == r:
					result = compareResult(cmp, 0)
				}
			}
			reduce(i, result)
		} else if cmp, ok := ce.matchOp(op, "STR"); ok {
			reduce(i, compareResult(cmp, strings.Compare(ce.variableOrString(lhs), ce.variableOrString(rhs))))
		} else if cmp, ok := ce.matchOp(op, "VERSION_"); ok {
			reduce(i, compareResult(cmp, compareVersions(ce.variableOrString(lhs), ce.variableOrString(rhs))))
		} else if ce.isKeyword("IS_NEWER_THAN", op) {
			reduce(i, isNewerThan(lhs.value, rhs.value))
		} else if ce.isKeyword("IN_LIST", op) {
			switch ce.policy57 {
			case state.PolicyNew:
				elem := ce.variableOrString(lhs)
				list, ok := ce.d.GetDefinition(rhs.value)
				found := false
				if ok {
					for _, e := range ExpandList(list, true) {
						if e == elem {
							found = true
							break
						}
					}
				}
				reduce(i, found)
			case state.PolicyWarn:
				ce.d.issueMessageAt(diag.AuthorWarning, policyWarning(state.CMP0057)+"\n"+
					"IN_LIST will be interpreted as an operator when the policy is set to NEW.  "+
					"Since the policy is not set the OLD behavior will be used.", ce.bt)
			}
		} else if ce.isKeyword("PATH_EQUAL", op) {
			reduce(i, pathEqual(ce.variableOrString(lhs), ce.variableOrString(rhs)))
		}
	}
	return args, true
}

// NOT binds to the right, so it is reduced from the last one.
func (ce *conditionEvaluator) handleNot(args []expandedArg) []expandedArg {
	for i := len(args) - 2; i >= 0; i-- {
		if ce.isKeyword("NOT", args[i]) {
			args[i] = boolArg(!ce.booleanValue(args[i+1]))
			args = append(args[:i+1], args[i+2:]...)
		}
	}
	return args
}

func (ce *conditionEvaluator) handleAndOr(args []expandedArg) []expandedArg {
	for i := 0; i+2 < len(args); {
		var and bool
		switch {
		case ce.isKeyword("AND", args[i+1]):
			and = true
		case ce.isKeyword("OR", args[i+1]):
			and = false
		default:
			i++
			continue
		}
		lhs := ce.booleanValue(args[i])
		rhs := ce.booleanValue(args[i+2])
		if and {
			args[i] = boolArg(lhs && rhs)
		} else {
			args[i] = boolArg(lhs || rhs)
		}
		args = append(args[:i+1], args[i+3:]...)
	}
	return args
}

// Whether arg is the given keyword. Quoted arguments are keywords only
// before policy CMP0054.
func (ce *conditionEvaluator) isKeyword(kw string, arg expandedArg) bool {
	if arg.quoted && ce.policy54 == state.PolicyNew {
		return false
	}
	is := arg.value == kw
	if is && arg.quoted && ce.policy54 == state.PolicyWarn {
		ce.report0054("Quoted keywords like \"" + arg.value +
			"\" will no longer be interpreted as keywords when the policy is set to NEW.  " +
			"Since the policy is not set the OLD behavior will be used.")
	}
	return is
}

func (ce *conditionEvaluator) report0054(msg string) {
	top := ce.bt.Top()
	if ce.d.ev.reported0054[top] {
		return
	}
	ce.d.ev.reported0054[top] = true
	ce.d.issueMessageAt(diag.AuthorWarning, policyWarning(state.CMP0054)+"\n"+msg, ce.bt)
}

// The value of the variable named by arg. Quoted arguments are not variable
// references after policy CMP0054.
func (ce *conditionEvaluator) definitionIfUnquoted(arg expandedArg) *string {
	if arg.quoted && ce.policy54 == state.PolicyNew {
		return nil
	}
	v, ok := ce.d.GetDefinition(arg.value)
	if !ok {
		return nil
	}
	if arg.quoted && ce.policy54 == state.PolicyWarn {
		ce.report0054("Quoted variables like \"" + arg.value +
			"\" will no longer be dereferenced when the policy is set to NEW.  " +
			"Since the policy is not set the OLD behavior will be used.")
	}
	return &v
}

func (ce *conditionEvaluator) variableOrString(arg expandedArg) string {
	if v := ce.definitionIfUnquoted(arg); v != nil {
		return *v
	}
	return arg.value
}

func (ce *conditionEvaluator) booleanValue(arg expandedArg) bool {
	if IsOn(arg.value) {
		return true
	}
	if IsOff(arg.value) {
		return false
	}
	if f, err := strconv.ParseFloat(strings.TrimLeft(arg.value, " \t\n\r\f\v"), 64); err == nil {
		return f != 0
	}
	v := ce.definitionIfUnquoted(arg)
	return v != nil && !IsOff(*v)
}

// Parses the longest prefix of s that is a floating point number, after
// leading white space.
func parseLeadingFloat(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	for end := len(s); end > 0; end-- {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return f, true
		} else if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, true
		}
	}
	return 0, false
}

// Compares two versions made of up to four numeric components separated by
// dots. Missing components are zero, and a component stops at the first
// non-digit.
func compareVersions(a, b string) int {
	pa, pb := versionComponents(a), versionComponents(b)
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y uint64
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func versionComponents(s string) []uint64 {
	var parts []uint64
	for _, field := range strings.Split(s, ".") {
		i := 0
		for i < len(field) && '0' <= field[i] && field[i] <= '9' {
			i++
		}
		n, _ := strconv.ParseUint(field[:i], 10, 64)
		parts = append(parts, n)
		if i < len(field) {
			break
		}
	}
	return parts
}

// Whether a is newer than b, or either of them doesn't exist. Files with the
// same modification time count as newer.
func isNewerThan(a, b string) bool {
	ia, errA := os.Stat(a)
	ib, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return true
	}
	return !ia.ModTime().Before(ib.ModTime())
}

// Compares paths component by component, ignoring repeated separators.
func pathEqual(a, b string) bool {
	split := func(p string) []string {
		var parts []string
		if strings.HasPrefix(p, "/") {
			parts = append(parts, "/")
		}
		for _, part := range strings.Split(p, "/") {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if strings.HasSuffix(p, "/") && len(p) > 1 {
			parts = append(parts, "")
		}
		return parts
	}
	pa, pb := split(a), split(b)
	if len(pa) != len(pb) {
		return false
	}
	for i := range pa {
		if pa[i] != pb[i] {
			return false
		}
	}
	return true
}
