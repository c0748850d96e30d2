package parse

import (
	"strings"
)

// QuoteArgument returns the source text of an argument.
func QuoteArgument(arg Argument) string {
	switch arg.Delim {
	case Quoted:
		return `"` + arg.Value + `"`
	case Bracket:
		return QuoteBracket(arg.Value)
	default:
		return arg.Value
	}
}

// Quote returns a quoted argument that evaluates to s.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '"', '$':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// QuoteBracket returns a bracket argument containing s, using the smallest
// number of equal signs that keeps the closing bracket out of s.
func QuoteBracket(s string) string {
	level := 0
	for strings.Contains(s+"]", "]"+strings.Repeat("=", level)+"]") {
		level++
	}
	eq := strings.Repeat("=", level)
	open := "[" + eq + "["
	if strings.HasPrefix(s, "\n") {
		open += "\n"
	}
	return open + s + "]" + eq + "]"
}
