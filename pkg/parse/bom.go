package parse

import "strings"

// BOM is a byte order mark at the start of a file.
type BOM int

// Byte order marks.
const (
	BOMNone BOM = iota
	BOMUTF8
	BOMUTF16BE
	BOMUTF16LE
	BOMUTF32BE
	BOMUTF32LE
)

// DetectBOM returns the byte order mark that the code starts with, and the
// number of bytes it occupies.
func DetectBOM(code string) (BOM, int) {
	switch {
	case strings.HasPrefix(code, "\xEF\xBB\xBF"):
		return BOMUTF8, 3
	case strings.HasPrefix(code, "\x00\x00\xFE\xFF"):
		return BOMUTF32BE, 4
	case strings.HasPrefix(code, "\xFF\xFE\x00\x00"):
		return BOMUTF32LE, 4
	case strings.HasPrefix(code, "\xFE\xFF"):
		return BOMUTF16BE, 2
	case strings.HasPrefix(code, "\xFF\xFE"):
		return BOMUTF16LE, 2
	}
	return BOMNone, 0
}
