package parse

import (
	"strings"

	"src.cmk.sh/pkg/diag"
)

// lexer splits list file code into tokens. Line comments are dropped; all
// other text, including whitespace, is returned as tokens.
type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

// Lex returns all the tokens of the code.
func Lex(code string) []Token {
	lx := newLexer(code)
	var tokens []Token
	for {
		token, ok := lx.next()
		if !ok {
			return tokens
		}
		tokens = append(tokens, token)
	}
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n; i++ {
		if lx.src[lx.pos] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
		lx.pos++
	}
}

func (lx *lexer) emit(typ TokenType, text string, n int) Token {
	token := Token{Type: typ, Text: text, Line: lx.line, Column: lx.col,
		Ranging: diag.Ranging{From: lx.pos, To: lx.pos + n}}
	lx.advance(n)
	return token
}

// next returns the next token. It returns false at the end of input.
func (lx *lexer) next() (Token, bool) {
	for lx.pos < len(lx.src) {
		rest := lx.src[lx.pos:]
		switch c := rest[0]; {
		case c == '\n':
			return lx.emit(Newline, "\n", 1), true
		case c == ' ' || c == '\t' || c == '\r':
			n := len(rest) - len(strings.TrimLeft(rest, " \t\r"))
			return lx.emit(Space, rest[:n], n), true
		case c == '(':
			return lx.emit(ParenLeft, "(", 1), true
		case c == ')':
			return lx.emit(ParenRight, ")", 1), true
		case c == '#':
			if level, ok := bracketOpen(rest[1:]); ok {
				return lx.bracket(CommentBracket, 1, level), true
			}
			n := strings.IndexByte(rest, '\n')
			if n == -1 {
				n = len(rest)
			}
			lx.advance(n)
		case c == '"':
			return lx.quoted(), true
		case c == '[':
			if level, ok := bracketOpen(rest); ok {
				return lx.bracket(ArgumentBracket, 0, level), true
			}
			return lx.unquoted(), true
		default:
			return lx.unquoted(), true
		}
	}
	return Token{}, false
}

// bracketOpen checks whether s starts with an opening bracket "[=*[" and
// returns the number of equal signs in it.
func bracketOpen(s string) (int, bool) {
	if !strings.HasPrefix(s, "[") {
		return 0, false
	}
	level := 0
	for 1+level < len(s) && s[1+level] == '=' {
		level++
	}
	if 1+level < len(s) && s[1+level] == '[' {
		return level, true
	}
	return 0, false
}

// bracket scans a bracket argument or comment that has skip bytes before the
// opening bracket.
func (lx *lexer) bracket(typ TokenType, skip, level int) Token {
	rest := lx.src[lx.pos:]
	start := skip + level + 2
	closing := "]" + strings.Repeat("=", level) + "]"
	end := strings.Index(rest[start:], closing)
	if end == -1 {
		return lx.emit(BadBracket, rest, len(rest))
	}
	content := rest[start : start+end]
	if strings.HasPrefix(content, "\r\n") {
		content = content[2:]
	} else if strings.HasPrefix(content, "\n") {
		content = content[1:]
	}
	return lx.emit(typ, content, start+end+len(closing))
}

func (lx *lexer) quoted() Token {
	rest := lx.src[lx.pos:]
	var sb strings.Builder
	for i := 1; i < len(rest); i++ {
		switch rest[i] {
		case '\\':
			if i+1 >= len(rest) {
				return lx.emit(BadString, rest, len(rest))
			}
			if rest[i+1] == '\n' {
				i++
			} else if strings.HasPrefix(rest[i+1:], "\r\n") {
				i += 2
			} else {
				sb.WriteString(rest[i : i+2])
				i++
			}
		case '"':
			return lx.emit(ArgumentQuoted, sb.String(), i+1)
		default:
			sb.WriteByte(rest[i])
		}
	}
	return lx.emit(BadString, rest, len(rest))
}

func (lx *lexer) unquoted() Token {
	rest := lx.src[lx.pos:]
	i := 0
scan:
	for i < len(rest) {
		switch rest[i] {
		case ' ', '\t', '\r', '\n', '(', ')', '#':
			break scan
		case '\\':
			if i+1 >= len(rest) {
				break scan
			}
			i += 2
		case '"':
			// A quoted section inside an unquoted argument, like a="b c".
			if i == 0 {
				break scan
			}
			end := closingQuote(rest[i+1:])
			if end == -1 {
				break scan
			}
			i += end + 2
		default:
			i++
		}
	}
	if i == 0 {
		return lx.emit(BadCharacter, rest[:1], 1)
	}
	typ := ArgumentUnquoted
	if isIdentifier(rest[:i]) {
		typ = Identifier
	}
	return lx.emit(typ, rest[:i], i)
}

// closingQuote returns the index of the first unescaped '"' in s, or -1.
func closingQuote(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func isIdentifier(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || i > 0 && '0' <= c && c <= '9' {
			continue
		}
		return false
	}
	return s != ""
}
