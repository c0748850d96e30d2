package eval

import (
	"strconv"
	"strings"
)

// ExpandList splits a list on unescaped semicolons that are not inside
// square brackets. "\;" becomes ";"; any other escaped byte is kept with its
// backslash and neither splits nor nests. Empty elements are dropped unless
// keepEmpty is set.
func ExpandList(s string, keepEmpty bool) []string {
	if s == "" {
		if keepEmpty {
			return []string{""}
		}
		return nil
	}
	if !strings.Contains(s, ";") {
		return []string{s}
	}
	var (
		elems   []string
		elem    strings.Builder
		nesting int
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			// A backslash always takes the next byte with it.
			if i+1 < len(s) && s[i+1] == ';' {
				elem.WriteByte(';')
			} else {
				elem.WriteByte(c)
				if i+1 < len(s) {
					elem.WriteByte(s[i+1])
				}
			}
			i++
		case '[':
			nesting++
			elem.WriteByte(c)
		case ']':
			nesting--
			elem.WriteByte(c)
		case ';':
			if nesting != 0 {
				elem.WriteByte(c)
				continue
			}
			if elem.Len() > 0 || keepEmpty {
				elems = append(elems, elem.String())
			}
			elem.Reset()
		default:
			elem.WriteByte(c)
		}
	}
	if elem.Len() > 0 || keepEmpty {
		elems = append(elems, elem.String())
	}
	return elems
}

// JoinList joins list elements with semicolons.
func JoinList(elems []string) string { return strings.Join(elems, ";") }

// IsOn returns whether s is a true constant: 1, ON, YES, TRUE or Y, in
// any case.
func IsOn(s string) bool {
	switch strings.ToUpper(s) {
	case "1", "ON", "YES", "TRUE", "Y":
		return true
	}
	return false
}

// IsOff returns whether s is a false constant: empty, 0, OFF, NO, FALSE, N,
// IGNORE, NOTFOUND or ending in -NOTFOUND, in any case.
func IsOff(s string) bool {
	switch strings.ToUpper(s) {
	case "", "0", "OFF", "NO", "FALSE", "N", "IGNORE":
		return true
	}
	return isNotFound(s)
}

func isNotFound(s string) bool {
	upper := strings.ToUpper(s)
	return upper == "NOTFOUND" || strings.HasSuffix(upper, "-NOTFOUND")
}

func itoa(i int) string { return strconv.Itoa(i) }

func parseInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n, err == nil
}

// Escapes double quotes with backslashes.
func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
