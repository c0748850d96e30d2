package parse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"src.cmk.sh/pkg/diag"
)

type tok struct {
	Type TokenType
	Text string
	Line int
}

var lexTests = []struct {
	name string
	code string
	want []tok
}{
	{
		name: "command with unquoted arguments",
		code: "set(X a.b)\n",
		want: []tok{
			{Identifier, "set", 1}, {ParenLeft, "(", 1}, {Identifier, "X", 1},
			{Space, " ", 1}, {ArgumentUnquoted, "a.b", 1}, {ParenRight, ")", 1},
			{Newline, "\n", 1},
		},
	},
	{
		name: "line comments are dropped",
		code: "# comment\nx",
		want: []tok{{Newline, "\n", 1}, {Identifier, "x", 2}},
	},
	{
		name: "quoted argument with escapes and continuation",
		code: "\"a\\\"b\\\nc\"",
		want: []tok{{ArgumentQuoted, "a\\\"bc", 1}},
	},
	{
		name: "bracket argument drops first newline",
		code: "[==[\nx]]y]==]",
		want: []tok{{ArgumentBracket, "x]]y", 1}},
	},
	{
		name: "bracket comment",
		code: "#[[multi\nline]]x",
		want: []tok{{CommentBracket, "multi\nline", 1}, {Identifier, "x", 2}},
	},
	{
		name: "bracket without matching equal signs is unquoted",
		code: "[=x",
		want: []tok{{ArgumentUnquoted, "[=x", 1}},
	},
	{
		name: "legacy quoted section in unquoted argument",
		code: `-Da="b c"`,
		want: []tok{{ArgumentUnquoted, `-Da="b c"`, 1}},
	},
	{
		name: "escaped characters in unquoted argument",
		code: `a\;b\ c`,
		want: []tok{{ArgumentUnquoted, `a\;b\ c`, 1}},
	},
	{
		name: "unterminated string",
		code: `"abc`,
		want: []tok{{BadString, `"abc`, 1}},
	},
	{
		name: "unterminated bracket",
		code: `[[abc`,
		want: []tok{{BadBracket, `[[abc`, 1}},
	},
	{
		name: "trailing backslash",
		code: `\`,
		want: []tok{{BadCharacter, `\`, 1}},
	},
}

func TestLex(t *testing.T) {
	for _, test := range lexTests {
		t.Run(test.name, func(t *testing.T) {
			var got []tok
			for _, token := range Lex(test.code) {
				got = append(got, tok{token.Type, token.Text, token.Line})
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Lex(%q) (-want +got):\n%s", test.code, diff)
			}
		})
	}
}

func TestLex_Columns(t *testing.T) {
	tokens := Lex("f(\n  a \"b\")")
	want := []Token{
		{Type: Identifier, Text: "f", Line: 1, Column: 1, Ranging: diag.Ranging{From: 0, To: 1}},
		{Type: ParenLeft, Text: "(", Line: 1, Column: 2, Ranging: diag.Ranging{From: 1, To: 2}},
		{Type: Newline, Text: "\n", Line: 1, Column: 3, Ranging: diag.Ranging{From: 2, To: 3}},
		{Type: Space, Text: "  ", Line: 2, Column: 1, Ranging: diag.Ranging{From: 3, To: 5}},
		{Type: Identifier, Text: "a", Line: 2, Column: 3, Ranging: diag.Ranging{From: 5, To: 6}},
		{Type: Space, Text: " ", Line: 2, Column: 4, Ranging: diag.Ranging{From: 6, To: 7}},
		{Type: ArgumentQuoted, Text: "b", Line: 2, Column: 5, Ranging: diag.Ranging{From: 7, To: 10}},
		{Type: ParenRight, Text: ")", Line: 2, Column: 8, Ranging: diag.Ranging{From: 10, To: 11}},
	}
	if diff := cmp.Diff(want, tokens, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
