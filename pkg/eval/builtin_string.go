package eval

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

func init() {
	addBuiltin("string", Func(stringCommand))
}

var stringSubcommands = map[string]func(d *Directory, args []string) error{
	"APPEND":    stringAppend,
	"PREPEND":   stringPrepend,
	"CONCAT":    stringConcat,
	"JOIN":      stringJoin,
	"LENGTH":    stringLength,
	"TOUPPER":   stringCase,
	"TOLOWER":   stringCase,
	"SUBSTRING": stringSubstring,
	"STRIP":     stringStrip,
	"FIND":      stringFind,
	"REPLACE":   stringReplace,
	"COMPARE":   stringCompare,
	"REPEAT":    stringRepeat,
	"REGEX":     stringRegex,
	"CONFIGURE": stringConfigure,
}

func stringCommand(st *Status, args []string) error {
	if len(args) == 0 {
		return errors.New("must be called with at least one argument.")
	}
	sub, ok := stringSubcommands[args[0]]
	if !ok {
		return errors.New("does not recognize sub-command " + args[0])
	}
	return sub(st.Dir(), args)
}

func stringAppend(d *Directory, args []string) error {
	if len(args) < 2 {
		return errors.New("sub-command APPEND requires at least one argument.")
	}
	if len(args) == 2 {
		return nil
	}
	d.AddDefinition(args[1], d.GetSafeDefinition(args[1])+strings.Join(args[2:], ""))
	return nil
}

func stringPrepend(d *Directory, args []string) error {
	if len(args) < 2 {
		return errors.New("sub-command PREPEND requires at least one argument.")
	}
	if len(args) == 2 {
		return nil
	}
	d.AddDefinition(args[1], strings.Join(args[2:], "")+d.GetSafeDefinition(args[1]))
	return nil
}

func stringConcat(d *Directory, args []string) error {
	if len(args) < 2 {
		return errors.New("sub-command CONCAT requires at least one argument.")
	}
	d.AddDefinition(args[1], strings.Join(args[2:], ""))
	return nil
}

func stringJoin(d *Directory, args []string) error {
	if len(args) < 3 {
		return errors.New("sub-command JOIN requires at least two arguments.")
	}
	d.AddDefinition(args[2], strings.Join(args[3:], args[1]))
	return nil
}

func stringLength(d *Directory, args []string) error {
	if len(args) != 3 {
		return errors.New("sub-command LENGTH requires two arguments.")
	}
	d.AddDefinition(args[2], itoa(len(args[1])))
	return nil
}

// TOUPPER and TOLOWER. Only ASCII letters are converted.
func stringCase(d *Directory, args []string) error {
	if len(args) < 3 {
		return errors.New("no output variable specified")
	}
	upper := args[0] == "TOUPPER"
	b := []byte(args[1])
	for i, c := range b {
		switch {
		case upper && 'a' <= c && c <= 'z':
			b[i] = c - 'a' + 'A'
		case !upper && 'A' <= c && c <= 'Z':
			b[i] = c - 'A' + 'a'
		}
	}
	d.AddDefinition(args[2], string(b))
	return nil
}

// Parses an integer the way atoi does: leading digits, 0 if there are none.
func atoi(s string) int {
	s = strings.TrimLeft(s, " \t\n\v\f\r")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && isASCIIDigit(s[end]) {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

func stringSubstring(d *Directory, args []string) error {
	if len(args) != 5 {
		return errors.New("sub-command SUBSTRING requires four arguments.")
	}
	s := args[1]
	begin, length := atoi(args[2]), atoi(args[3])
	if begin < 0 || begin > len(s) {
		return fmt.Errorf("begin index: %d is out of range 0 - %d", begin, len(s))
	}
	if length < -1 {
		return fmt.Errorf("end index: %d should be -1 or greater", length)
	}
	end := len(s)
	if length != -1 && begin+length < end {
		end = begin + length
	}
	d.AddDefinition(args[4], s[begin:end])
	return nil
}

func stringStrip(d *Directory, args []string) error {
	if len(args) != 3 {
		return errors.New("sub-command STRIP requires two arguments.")
	}
	d.AddDefinition(args[2], strings.Trim(args[1], " \t\n\v\f\r"))
	return nil
}

func stringFind(d *Directory, args []string) error {
	if len(args) < 4 || len(args) > 5 {
		return errors.New("sub-command FIND requires 3 or 4 parameters.")
	}
	if len(args) == 5 && args[4] != "REVERSE" {
		return errors.New("sub-command FIND: unknown last parameter")
	}
	var pos int
	if len(args) == 5 {
		pos = strings.LastIndex(args[1], args[2])
	} else {
		pos = strings.Index(args[1], args[2])
	}
	d.AddDefinition(args[3], itoa(pos))
	return nil
}

func stringReplace(d *Directory, args []string) error {
	if len(args) < 5 {
		return errors.New("sub-command REPLACE requires at least four arguments.")
	}
	match, replace, out := args[1], args[2], args[3]
	input := strings.Join(args[4:], "")
	if match != "" {
		input = strings.ReplaceAll(input, match, replace)
	}
	d.AddDefinition(out, input)
	return nil
}

func stringCompare(d *Directory, args []string) error {
	if len(args) < 2 {
		return errors.New("sub-command COMPARE requires a mode to be specified.")
	}
	mode := args[1]
	var op func(c int) bool
	switch mode {
	case "EQUAL":
		op = func(c int) bool { return c == 0 }
	case "NOTEQUAL":
		op = func(c int) bool { return c != 0 }
	case "LESS":
		op = func(c int) bool { return c < 0 }
	case "LESS_EQUAL":
		op = func(c int) bool { return c <= 0 }
	case "GREATER":
		op = func(c int) bool { return c > 0 }
	case "GREATER_EQUAL":
		op = func(c int) bool { return c >= 0 }
	default:
		return errors.New("sub-command COMPARE does not recognize mode " + mode)
	}
	if len(args) < 5 {
		return fmt.Errorf("sub-command COMPARE, mode %s needs at least 5 arguments total to command.", mode)
	}
	d.AddDefinition(args[4], boolString(op(strings.Compare(args[2], args[3]))))
	return nil
}

func boolString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func stringRepeat(d *Directory, args []string) error {
	if len(args) != 4 {
		return errors.New("sub-command REPEAT requires three arguments.")
	}
	times, err := strconv.ParseUint(strings.TrimSpace(args[2]), 10, 32)
	if err != nil {
		return errors.New("repeat count is not a positive number.")
	}
	d.AddDefinition(args[3], strings.Repeat(args[1], int(times)))
	return nil
}

func stringRegex(d *Directory, args []string) error {
	if len(args) < 2 {
		return errors.New("sub-command REGEX requires a mode to be specified.")
	}
	mode := args[1]
	switch mode {
	case "MATCH", "MATCHALL":
		if len(args) < 5 {
			return fmt.Errorf("sub-command REGEX, mode %s needs at least 5 arguments total to command.", mode)
		}
		return regexMatch(d, mode, args[2], args[3], strings.Join(args[4:], ""))
	case "REPLACE":
		if len(args) < 6 {
			return errors.New("sub-command REGEX, mode REPLACE needs at least 6 arguments total to command.")
		}
		return regexReplace(d, args[2], args[3], args[4], strings.Join(args[5:], ""))
	}
	return errors.New("sub-command REGEX does not recognize mode " + mode)
}

// Returns the text of the groups of a match, given the submatch indices.
func matchGroups(input string, loc []int) []string {
	groups := make([]string, len(loc)/2)
	for i := range groups {
		if loc[2*i] >= 0 {
			groups[i] = input[loc[2*i]:loc[2*i+1]]
		}
	}
	return groups
}

func regexMatch(d *Directory, mode, pattern, out, input string) error {
	d.clearMatches()
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("sub-command REGEX, mode %s failed to compile regex \"%s\".", mode, pattern)
	}
	var found []string
	for _, loc := range re.FindAllStringSubmatchIndex(input, -1) {
		if loc[0] == loc[1] {
			return fmt.Errorf("sub-command REGEX, mode %s regex \"%s\" matched an empty string.", mode, pattern)
		}
		d.storeMatches(matchGroups(input, loc))
		found = append(found, input[loc[0]:loc[1]])
		if mode == "MATCH" {
			break
		}
	}
	d.AddDefinition(out, JoinList(found))
	return nil
}

// A piece of the replacement of REGEX REPLACE: literal text, or a group
// reference if group is not negative.
type replacePiece struct {
	text  string
	group int
}

func parseReplacement(replace string) ([]replacePiece, error) {
	var pieces []replacePiece
	l := 0
	for {
		r := strings.IndexByte(replace[l:], '\\')
		if r < 0 {
			break
		}
		r += l
		if r > l {
			pieces = append(pieces, replacePiece{replace[l:r], -1})
		}
		if r == len(replace)-1 {
			return nil, errors.New("replace-expression ends in a backslash")
		}
		switch c := replace[r+1]; {
		case isASCIIDigit(c):
			pieces = append(pieces, replacePiece{group: int(c - '0')})
		case c == 'n':
			pieces = append(pieces, replacePiece{"\n", -1})
		case c == '\\':
			pieces = append(pieces, replacePiece{"\\", -1})
		default:
			return nil, fmt.Errorf("Unknown escape \"%s\" in replace-expression", replace[r:r+2])
		}
		l = r + 2
	}
	if l < len(replace) {
		pieces = append(pieces, replacePiece{replace[l:], -1})
	}
	return pieces, nil
}

func regexReplace(d *Directory, pattern, replace, out, input string) error {
	pieces, err := parseReplacement(replace)
	if err != nil {
		return errors.New("sub-command REGEX, mode REPLACE: " + err.Error() + ".")
	}
	d.clearMatches()
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("sub-command REGEX, mode REPLACE failed to compile regex \"%s\".", pattern)
	}
	var sb strings.Builder
	base := 0
	for _, loc := range re.FindAllStringSubmatchIndex(input, -1) {
		if loc[0] == loc[1] {
			return fmt.Errorf("sub-command REGEX, mode REPLACE regex \"%s\" matched an empty string.", pattern)
		}
		groups := matchGroups(input, loc)
		d.storeMatches(groups)
		sb.WriteString(input[base:loc[0]])
		for _, p := range pieces {
			if p.group < 0 {
				sb.WriteString(p.text)
				continue
			}
			if p.group >= len(groups) {
				return fmt.Errorf("sub-command REGEX, mode REPLACE replace expression \"%s\" "+
					"contains an out-of-range escape for regex \"%s\".", replace, pattern)
			}
			sb.WriteString(groups[p.group])
		}
		base = loc[1]
	}
	sb.WriteString(input[base:])
	d.AddDefinition(out, sb.String())
	return nil
}

func stringConfigure(d *Directory, args []string) error {
	if len(args) < 2 {
		return errors.New("No input string specified.")
	}
	if len(args) < 3 {
		return errors.New("No output variable specified.")
	}
	atOnly, escape := false, false
	for _, arg := range args[3:] {
		switch arg {
		case "@ONLY":
			atOnly = true
		case "ESCAPE_QUOTES":
			escape = true
		default:
			return fmt.Errorf("Unrecognized argument \"%s\"", arg)
		}
	}
	v, err := d.ConfigureString(args[1], atOnly, escape)
	if err != nil {
		d.reportExpandError(err)
		return ErrReported
	}
	d.AddDefinition(args[2], v)
	return nil
}
