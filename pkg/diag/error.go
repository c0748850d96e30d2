package diag

import (
	"fmt"
	"strconv"
)

// Position is a location in a list file. Line and Column are 1-based.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	s := p.File
	if p.Line > 0 {
		s += ":" + strconv.Itoa(p.Line)
		if p.Column > 0 {
			s += ":" + strconv.Itoa(p.Column)
		}
	}
	return s
}

// Error represents an error with a position that can be showed.
type Error struct {
	Type    string
	Message string
	Position
	Ranging
}

// Error returns a plain text representation of the error.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Position, e.Message)
}

// Range returns the byte range of the error in the source.
func (e *Error) Range() Ranging {
	return e.Ranging
}

// Show shows the error.
func (e *Error) Show(indent string) string {
	return fmt.Sprintf("%s%s: %s\n%s  at %s", indent, e.Type, errorColor+e.Message+resetColor, indent, e.Position)
}
