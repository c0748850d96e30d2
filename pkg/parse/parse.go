// Package parse implements the lexer and parser of list files.
//
// A list file is a flat sequence of command invocations. Parsing produces a
// ListFile; control flow is only checked for proper nesting, and is
// otherwise left to the interpreter.
package parse

import (
	"fmt"
	"strings"

	"src.cmk.sh/pkg/diag"
)

// Delimiter describes how an argument was written.
type Delimiter int

// Argument delimiters.
const (
	Unquoted Delimiter = iota
	Quoted
	Bracket
)

func (d Delimiter) String() string {
	switch d {
	case Quoted:
		return "quoted"
	case Bracket:
		return "bracket"
	default:
		return "unquoted"
	}
}

// Argument is an argument of a command invocation, as written in the source.
type Argument struct {
	Value string
	Delim Delimiter
	Line  int
}

// Function is a command invocation.
type Function struct {
	// OriginalName is the command name as written.
	OriginalName string
	// LowerName is the lower-cased command name, used for dispatching.
	LowerName string
	Line      int
	LineEnd   int
	Args      []Argument
}

// NewFunction returns a Function with the given name and arguments.
func NewFunction(name string, line int, args []Argument) Function {
	return Function{OriginalName: name, LowerName: strings.ToLower(name),
		Line: line, LineEnd: line, Args: args}
}

// String returns the invocation in list file syntax.
func (fn Function) String() string {
	var sb strings.Builder
	sb.WriteString(fn.OriginalName)
	sb.WriteByte('(')
	for i, arg := range fn.Args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(QuoteArgument(arg))
	}
	sb.WriteByte(')')
	return sb.String()
}

// ListFile is the result of parsing a list file or a string of code.
type ListFile struct {
	Functions []Function
}

// Source describes a piece of source code.
type Source struct {
	Name string
	Code string
}

// Config keeps configuration options when parsing.
type Config struct {
	// Callback for syntax warnings, which do not stop parsing. If nil,
	// warnings are dropped.
	WarningHandler func(*diag.Error)
}

const errorType = "parse error"

// Parse parses the given source. The returned error always has type
// *diag.Error.
func Parse(src Source, cfg Config) (*ListFile, error) {
	code := src.Code
	offset := 0
	switch bom, n := DetectBOM(code); bom {
	case BOMNone:
	case BOMUTF8:
		code, offset = code[n:], n
	default:
		return nil, &diag.Error{Type: errorType,
			Message:  "File starts with a Byte-Order-Mark that is not UTF-8:\n  " + src.Name,
			Position: diag.Position{File: src.Name}}
	}
	ps := &parser{name: src.Name, lx: newLexer(code), offset: offset, cfg: cfg}
	lf, err := ps.parse()
	if err != nil {
		return nil, err
	}
	if err := CheckNesting(src.Name, lf.Functions); err != nil {
		return nil, err
	}
	return lf, nil
}

type separation int

const (
	separationOkay separation = iota
	separationWarning
	separationError
)

// parser maintains the state of parsing one source.
type parser struct {
	name   string
	lx     *lexer
	offset int
	cfg    Config

	function   Function
	separation separation
}

func (ps *parser) parse() (*ListFile, error) {
	lf := &ListFile{}
	haveNewline := true
	for {
		token, ok := ps.lx.next()
		if !ok {
			return lf, nil
		}
		switch token.Type {
		case Space:
		case Newline:
			haveNewline = true
		case CommentBracket:
			haveNewline = false
		case Identifier:
			if !haveNewline {
				return nil, ps.errorf(token, "Parse error.  Expected a newline, got %s with text \"%s\".",
					token.Type, token.Text)
			}
			haveNewline = false
			if err := ps.parseFunction(token); err != nil {
				return nil, err
			}
			lf.Functions = append(lf.Functions, ps.function)
		default:
			return nil, ps.errorf(token, "Parse error.  Expected a command name, got %s with text \"%s\".",
				token.Type, token.Text)
		}
	}
}

func (ps *parser) parseFunction(name Token) error {
	ps.function = NewFunction(name.Text, name.Line, nil)

	// Read the left paren.
	token, ok := ps.nextNonSpace()
	if !ok {
		return ps.errorAtEOF("Unexpected end of file.\nParse error.  Function missing opening \"(\".")
	}
	if token.Type != ParenLeft {
		return ps.errorf(token, "Parse error.  Expected \"(\", got %s with text \"%s\".",
			token.Type, token.Text)
	}

	// Arguments.
	parenDepth := 0
	ps.separation = separationOkay
	for {
		token, ok := ps.lx.next()
		if !ok {
			break
		}
		switch token.Type {
		case Space, Newline:
			ps.separation = separationOkay
		case ParenLeft:
			parenDepth++
			ps.separation = separationOkay
			if err := ps.addArgument(token, Unquoted); err != nil {
				return err
			}
		case ParenRight:
			if parenDepth == 0 {
				ps.function.LineEnd = token.Line
				return nil
			}
			parenDepth--
			ps.separation = separationOkay
			if err := ps.addArgument(token, Unquoted); err != nil {
				return err
			}
			ps.separation = separationWarning
		case Identifier, ArgumentUnquoted:
			if err := ps.addArgument(token, Unquoted); err != nil {
				return err
			}
			ps.separation = separationWarning
		case ArgumentQuoted:
			if err := ps.addArgument(token, Quoted); err != nil {
				return err
			}
			ps.separation = separationWarning
		case ArgumentBracket:
			if err := ps.addArgument(token, Bracket); err != nil {
				return err
			}
			ps.separation = separationError
		case CommentBracket:
			ps.separation = separationError
		default:
			return ps.errorf(token, "Parse error.  Function missing ending \")\".  Instead found %s with text \"%s\".",
				token.Type, token.Text)
		}
	}
	return ps.errorAtEOF("Parse error.  Function missing ending \")\".  End of file reached.")
}

func (ps *parser) nextNonSpace() (Token, bool) {
	for {
		token, ok := ps.lx.next()
		if !ok || token.Type != Space {
			return token, ok
		}
	}
}

func (ps *parser) addArgument(token Token, delim Delimiter) error {
	ps.function.Args = append(ps.function.Args,
		Argument{Value: token.Text, Delim: delim, Line: token.Line})
	if ps.separation == separationOkay {
		return nil
	}
	isError := ps.separation == separationError || delim == Bracket
	kind := "Warning"
	if isError {
		kind = "Error"
	}
	err := ps.newError(token, fmt.Sprintf(
		"Syntax %s in cmake code at column %d\nArgument not separated from preceding token by whitespace.",
		kind, token.Column))
	if isError {
		return err
	}
	err.Type = "syntax warning"
	if ps.cfg.WarningHandler != nil {
		ps.cfg.WarningHandler(err)
	}
	return nil
}

func (ps *parser) newError(token Token, msg string) *diag.Error {
	return &diag.Error{Type: errorType, Message: msg,
		Position: diag.Position{File: ps.name, Line: token.Line, Column: token.Column},
		Ranging:  diag.Ranging{From: token.From + ps.offset, To: token.To + ps.offset}}
}

func (ps *parser) errorf(token Token, format string, args ...any) error {
	return ps.newError(token, fmt.Sprintf(format, args...))
}

func (ps *parser) errorAtEOF(msg string) error {
	end := len(ps.lx.src) + ps.offset
	return &diag.Error{Type: errorType, Message: msg,
		Position: diag.Position{File: ps.name, Line: ps.lx.line, Column: ps.lx.col},
		Ranging:  diag.PointRanging(end)}
}
