package parse

import "src.cmk.sh/pkg/diag"

// TokenType is the type of a Token.
type TokenType int

// Token types.
const (
	Nothing TokenType = iota
	Space
	Newline
	Identifier
	ParenLeft
	ParenRight
	ArgumentUnquoted
	ArgumentQuoted
	ArgumentBracket
	CommentBracket
	BadCharacter
	BadBracket
	BadString
)

var tokenTypeNames = [...]string{
	Nothing:          "nothing",
	Space:            "space",
	Newline:          "newline",
	Identifier:       "identifier",
	ParenLeft:        "left paren",
	ParenRight:       "right paren",
	ArgumentUnquoted: "unquoted argument",
	ArgumentQuoted:   "quoted argument",
	ArgumentBracket:  "bracket argument",
	CommentBracket:   "bracket comment",
	BadCharacter:     "bad character",
	BadBracket:       "unterminated bracket",
	BadString:        "unterminated string",
}

func (t TokenType) String() string {
	if t < 0 || int(t) >= len(tokenTypeNames) {
		return "unknown token"
	}
	return tokenTypeNames[t]
}

// Token is a lexical unit of a list file.
//
// For quoted arguments, Text is the content between the quotes with line
// continuations removed. For bracket arguments and comments, Text is the
// content between the brackets, without a newline immediately following the
// opening bracket.
type Token struct {
	Type   TokenType
	Text   string
	Line   int
	Column int
	diag.Ranging
}
