package eval

import (
	"errors"
	"fmt"
	"strconv"
)

// Evaluation of math(EXPR) expressions: 64-bit integer arithmetic with the
// operators of C, except the logical and comparison ones.

var errDivideByZero = errors.New("divide by zero")

type exprParser struct {
	src string
	pos int
}

// Evaluates an integer expression. The error message has the form used by
// math(EXPR).
func evalExpr(src string) (int64, error) {
	p := &exprParser{src: src}
	v, err := p.parseBinary(0)
	if err == nil {
		p.skipSpace()
		if p.pos < len(p.src) {
			err = fmt.Errorf("syntax error, unexpected %q", p.src[p.pos:p.pos+1])
		}
	}
	if err == errDivideByZero {
		return 0, fmt.Errorf("cannot evaluate the expression: \"%s\": %v.", src, err)
	} else if err != nil {
		return 0, fmt.Errorf("cannot parse the expression: \"%s\": %v.", src, err)
	}
	return v, nil
}

// Binary operators by increasing precedence.
var exprLevels = [][]string{
	{"|"}, {"^"}, {"&"}, {"<<", ">>"}, {"+", "-"}, {"*", "/", "%"},
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *exprParser) peekOp(ops []string) string {
	p.skipSpace()
	for _, op := range ops {
		if len(p.src)-p.pos >= len(op) && p.src[p.pos:p.pos+len(op)] == op {
			return op
		}
	}
	return ""
}

func (p *exprParser) parseBinary(level int) (int64, error) {
	if level == len(exprLevels) {
		return p.parseUnary()
	}
	lhs, err := p.parseBinary(level + 1)
	if err != nil {
		return 0, err
	}
	for {
		op := p.peekOp(exprLevels[level])
		if op == "" {
			return lhs, nil
		}
		p.pos += len(op)
		rhs, err := p.parseBinary(level + 1)
		if err != nil {
			return 0, err
		}
		if lhs, err = applyOp(op, lhs, rhs); err != nil {
			return 0, err
		}
	}
}

func applyOp(op string, a, b int64) (int64, error) {
	switch op {
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "&":
		return a & b, nil
	case "<<":
		return a << uint64(b), nil
	case ">>":
		return a >> uint64(b), nil
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, errDivideByZero
		}
		return a / b, nil
	default:
		if b == 0 {
			return 0, errDivideByZero
		}
		return a % b, nil
	}
}

func (p *exprParser) parseUnary() (int64, error) {
	switch op := p.peekOp([]string{"+", "-", "~"}); op {
	case "+", "-", "~":
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch op {
		case "-":
			return -v, nil
		case "~":
			return ^v, nil
		}
		return v, nil
	}
	return p.parseTerm()
}

func (p *exprParser) parseTerm() (int64, error) {
	p.skipSpace()
	if p.pos == len(p.src) {
		return 0, errors.New("syntax error, unexpected end of file")
	}
	if p.src[p.pos] == '(' {
		p.pos++
		v, err := p.parseBinary(0)
		if err != nil {
			return 0, err
		}
		if p.peekOp([]string{")"}) == "" {
			return 0, errors.New("syntax error, expected ')'")
		}
		p.pos++
		return v, nil
	}
	start := p.pos
	base := 10
	if p.pos+1 < len(p.src) && p.src[p.pos] == '0' && (p.src[p.pos+1] == 'x' || p.src[p.pos+1] == 'X') {
		base = 16
		p.pos += 2
		start = p.pos
	}
	for p.pos < len(p.src) && isDigit(p.src[p.pos], base) {
		p.pos++
	}
	if p.pos == start {
		if p.pos == len(p.src) {
			return 0, errors.New("syntax error, unexpected end of file")
		}
		return 0, fmt.Errorf("syntax error, unexpected %q", p.src[p.pos:p.pos+1])
	}
	// Like strtoll, out of range values saturate.
	v, _ := strconv.ParseInt(p.src[start:p.pos], base, 64)
	return v, nil
}

func isDigit(c byte, base int) bool {
	switch {
	case '0' <= c && c <= '9':
		return true
	case base == 16 && ('a' <= c && c <= 'f' || 'A' <= c && c <= 'F'):
		return true
	}
	return false
}
