package eval

import (
	"regexp"
	"strings"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/parse"
)

type lookupDomain int

const (
	normalDomain lookupDomain = iota
	envDomain
	cacheDomain
)

type openLookup struct {
	domain lookupDomain
	// Position in the result where the name of the variable starts.
	loc int
}

// Options of expandVariables.
type expandOptions struct {
	escapeQuotes bool
	noEscapes    bool
	// Only replace @VAR@ references.
	atOnly    bool
	replaceAt bool
	// Location of the source, for error messages and
	// CMAKE_CURRENT_LIST_LINE. The file is empty when the source doesn't
	// come from a list file.
	file string
	line int
}

// ExpandError is a syntax error in variable references.
type ExpandError struct {
	Message string
}

func (e *ExpandError) Error() string { return e.Message }

func isVarNameChar(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '_' || c == '/' || c == '.' || c == '+' || c == '-'
}

func isAlnum(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

// Expands ${VAR}, $ENV{VAR}, $CACHE{VAR} and optionally @VAR@ references
// and escape sequences in source. Nested references are expanded from the
// inside out.
func (d *Directory) expandVariables(source string, opts expandOptions) (string, error) {
	var (
		result strings.Builder
		open   []openLookup
		errmsg string
	)
	line := opts.line
	// Start of the part of source not yet copied into the result.
	last := 0
	buf := func() string { return result.String() }

	i := 0
scan:
	for ; i < len(source); i++ {
		c := source[i]
		switch c {
		case '}':
			if len(open) == 0 {
				continue
			}
			lookup := open[len(open)-1]
			open = open[:len(open)-1]
			result.WriteString(source[last:i])
			name := buf()[lookup.loc:]
			var value string
			var found bool
			switch lookup.domain {
			case normalDomain:
				if opts.file != "" && name == "CMAKE_CURRENT_LIST_LINE" {
					if top := d.backtrace.Top(); top.DeferID != "" {
						value = "DEFERRED:" + top.DeferID
					} else {
						value = itoa(line)
					}
					found = true
				} else {
					value, found = d.GetDefinition(name)
				}
			case envDomain:
				value, found = d.ev.Getenv(name)
			case cacheDomain:
				if e, ok := d.ev.state.Cache.Get(name); ok {
					value, found = e.Value, true
				}
			}
			if found && opts.escapeQuotes {
				value = escapeQuotes(value)
			}
			if !found {
				if lookup.domain == normalDomain {
					d.maybeWarnUninitialized(name, opts.file)
				}
				value = ""
			}
			prefix := buf()[:lookup.loc]
			result.Reset()
			result.WriteString(prefix)
			result.WriteString(value)
			last = i + 1
		case '$':
			if opts.atOnly {
				continue
			}
			rest := source[i+1:]
			start := -1
			var domain lookupDomain
			switch {
			case strings.HasPrefix(rest, "{"):
				start, domain = i+2, normalDomain
			case strings.HasPrefix(rest, "<"), rest == "":
			case strings.HasPrefix(rest, "ENV{"):
				start, domain = i+5, envDomain
			case strings.HasPrefix(rest, "CACHE{"):
				start, domain = i+7, cacheDomain
			default:
				j := 0
				for j < len(rest) && isVarNameChar(rest[j]) {
					j++
				}
				if j > 0 && j < len(rest) && rest[j] == '{' {
					errmsg = "Syntax $" + rest[:j] + "{} is not supported.  Only ${}, $ENV{}, and $CACHE{} are allowed."
					break scan
				}
			}
			if start >= 0 {
				result.WriteString(source[last:i])
				last = start
				open = append(open, openLookup{domain, result.Len()})
				i = start - 1
			}
		case '\\':
			if opts.noEscapes {
				continue
			}
			var next byte
			if i+1 < len(source) {
				next = source[i+1]
			}
			switch {
			case next == 't' || next == 'n' || next == 'r':
				result.WriteString(source[last:i])
				result.WriteByte(map[byte]byte{'t': '\t', 'n': '\n', 'r': '\r'}[next])
				last = i + 2
			case next == ';' && len(open) == 0:
				// Kept for list splitting.
			case next == 0 || isAlnum(next):
				if next == 0 {
					errmsg = "Invalid character escape '\\' (at end of input)."
				} else {
					errmsg = "Invalid character escape '\\" + string(next) + "'."
				}
				break scan
			default:
				result.WriteString(source[last:i])
				last = i + 1
			}
			if i+1 < len(source) {
				i++
			}
		case '\n':
			line++
		case '@':
			if opts.replaceAt {
				j := i + 1
				for j < len(source) && isVarNameChar(source[j]) {
					j++
				}
				if j > i+1 && j < len(source) && source[j] == '@' {
					name := source[i+1 : j]
					var value string
					if opts.file != "" && name == "CMAKE_CURRENT_LIST_LINE" {
						value = itoa(line)
					} else if v, ok := d.GetDefinition(name); ok {
						value = v
					} else {
						d.maybeWarnUninitialized(name, opts.file)
					}
					if opts.escapeQuotes {
						value = escapeQuotes(value)
					}
					result.WriteString(source[last:i])
					result.WriteString(value)
					i = j
					last = j + 1
					continue
				}
			}
			if len(open) > 0 {
				errmsg = invalidNameChar(c, buf()[open[len(open)-1].loc:]+source[last:i])
				break scan
			}
		default:
			if len(open) > 0 && !isVarNameChar(c) {
				errmsg = invalidNameChar(c, buf()[open[len(open)-1].loc:]+source[last:i])
				break scan
			}
		}
	}

	if errmsg == "" && len(open) > 0 {
		errmsg = "There is an unterminated variable reference."
	}
	if errmsg != "" {
		var sb strings.Builder
		sb.WriteString("Syntax error in cmake code ")
		if opts.file != "" {
			sb.WriteString("at\n  " + opts.file + ":" + itoa(line) + "\n")
		}
		sb.WriteString("when parsing string\n  " + source + "\n" + errmsg)
		return "", &ExpandError{sb.String()}
	}
	result.WriteString(source[last:])
	return result.String(), nil
}

func invalidNameChar(c byte, name string) string {
	return "Invalid character ('" + string(c) + "') in a variable name: '" + name + "'"
}

func (d *Directory) maybeWarnUninitialized(name, file string) {
	if !d.ev.cfg.WarnUninitialized || file == "" {
		return
	}
	d.IssueMessage(diag.AuthorWarning, "uninitialized variable '"+name+"'")
}

// ExpandString expands variable references and escape sequences in s, as in
// a quoted argument. Errors are reported and make it return false.
func (d *Directory) ExpandString(s string, line int) (string, bool) {
	v, err := d.expandVariables(s, expandOptions{file: d.backtrace.Top().File, line: line})
	if err != nil {
		d.reportExpandError(err)
		return "", false
	}
	return v, true
}

func (d *Directory) reportExpandError(err error) {
	d.ev.setFatal()
	d.IssueMessage(diag.FatalError, err.Error())
}

// ExpandArguments expands arguments for a command. Unquoted arguments are
// split into list elements; bracket arguments are kept as is. It returns
// false if an error has stopped the run.
func (d *Directory) ExpandArguments(args []parse.Argument) ([]string, bool) {
	file := d.backtrace.Top().File
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if arg.Delim == parse.Bracket {
			out = append(out, arg.Value)
			continue
		}
		v, err := d.expandVariables(arg.Value, expandOptions{file: file, line: arg.Line})
		if err != nil {
			d.reportExpandError(err)
			continue
		}
		if arg.Delim == parse.Quoted {
			out = append(out, v)
		} else {
			out = append(out, ExpandList(v, false)...)
		}
	}
	return out, !d.ev.fatalOccurred
}

// An expanded argument that remembers whether it was quoted.
type expandedArg struct {
	value  string
	quoted bool
}

// Like ExpandArguments, but keeps whether each argument was quoted, for
// conditions.
func (d *Directory) expandArgumentsQuoted(args []parse.Argument) ([]expandedArg, bool) {
	file := d.backtrace.Top().File
	out := make([]expandedArg, 0, len(args))
	for _, arg := range args {
		if arg.Delim == parse.Bracket {
			out = append(out, expandedArg{arg.Value, true})
			continue
		}
		v, err := d.expandVariables(arg.Value, expandOptions{file: file, line: arg.Line})
		if err != nil {
			d.reportExpandError(err)
			continue
		}
		if arg.Delim == parse.Quoted {
			out = append(out, expandedArg{v, true})
		} else {
			for _, elem := range ExpandList(v, false) {
				out = append(out, expandedArg{elem, false})
			}
		}
	}
	return out, !d.ev.fatalOccurred
}

var (
	cmakedefineRegexp   = regexp.MustCompile(`#([ \t]*)cmakedefine[ \t]+([A-Za-z0-9_]+)`)
	cmakedefine01Regexp = regexp.MustCompile(`#([ \t]*)cmakedefine01[ \t]+([A-Za-z0-9_]+)`)
)

// ConfigureString replaces @VAR@ and, unless atOnly is set, ${VAR}
// references in s, as configure_file and string(CONFIGURE) do. Lines with
// #cmakedefine VAR become a #define or an #undef comment depending on VAR;
// lines with #cmakedefine01 VAR always define VAR to 0 or 1.
func (d *Directory) ConfigureString(s string, atOnly, escape bool) (string, error) {
	var sb strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		body := strings.TrimSuffix(line, "\n")
		eol := line[len(body):]
		if m := cmakedefineRegexp.FindStringSubmatchIndex(body); m != nil {
			name := body[m[4]:m[5]]
			if v, _ := d.GetDefinition(name); !IsOff(v) {
				sb.WriteString(body[:m[0]] + "#" + body[m[2]:m[3]] + "define " + body[m[4]:])
			} else {
				sb.WriteString(body[:m[0]] + "/* #undef " + name + " */")
			}
		} else if m := cmakedefine01Regexp.FindStringSubmatchIndex(body); m != nil {
			name := body[m[4]:m[5]]
			v, _ := d.GetDefinition(name)
			sb.WriteString(body[:m[0]] + "#" + body[m[2]:m[3]] + "define " + name + " " + boolString(!IsOff(v)))
		} else {
			sb.WriteString(body)
		}
		sb.WriteString(eol)
	}
	return d.expandVariables(sb.String(), expandOptions{
		escapeQuotes: escape, noEscapes: true, atOnly: atOnly, replaceAt: true})
}
