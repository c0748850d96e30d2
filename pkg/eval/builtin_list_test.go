package eval_test

import (
	"testing"

	. "src.cmk.sh/pkg/eval/evaltest"
)

func TestList(t *testing.T) {
	Test(t,
		That("set(L a b c)", "list(LENGTH L n)", "message(${n})").Prints("3\n"),
		That("list(LENGTH NOPE n)", "message(${n})").Prints("0\n"),
		That("set(L a b c)", "list(GET L 0 -1 x)", `message("${x}")`).Prints("a;c\n"),
		That("list(GET NOPE 0 x)", "message(${x})").Prints("NOTFOUND\n"),
		That("set(L a b c)", "list(GET L 3 x)").FailsWith("index: 3 out of range (-3, 2)"),
		That("set(L a b c)", "list(GET L z x)").FailsWith("index: z is not a valid index"),
		That("set(L)", "list(APPEND L a b)", "list(APPEND L c)", `message("${L}")`).Prints("a;b;c\n"),
		That("set(L c)", "list(PREPEND L a b)", `message("${L}")`).Prints("a;b;c\n"),
		That("set(L a c)", "list(INSERT L 1 b)", "list(INSERT L 3 d)", `message("${L}")`).Prints("a;b;c;d\n"),
		That("set(L a b)", "list(INSERT L 3 x)").FailsWith("index: 3 out of range (-2, 2)"),
		That("set(L a b a c)", "list(REMOVE_ITEM L a)", `message("${L}")`).Prints("b;c\n"),
		That("set(L a b c)", "list(REMOVE_AT L 0 -1)", `message("${L}")`).Prints("b\n"),
		That("set(L a b a c b)", "list(REMOVE_DUPLICATES L)", `message("${L}")`).Prints("a;b;c\n"),
		That("set(L a b c)", "list(REVERSE L)", `message("${L}")`).Prints("c;b;a\n"),
		That("set(L a b c)", "list(FIND L b i)", "list(FIND L z j)", "message(${i}${j})").Prints("1-1\n"),
		That("set(L a b c)", "list(JOIN L - s)", "message(${s})").Prints("a-b-c\n"),
		That("set(L a b c d)", "list(SUBLIST L 1 2 s)", `message("${s}")`).Prints("b;c\n"),
		That("set(L a b c d)", "list(SUBLIST L 2 -1 s)", `message("${s}")`).Prints("c;d\n"),
		That("set(L a b)", "list(SUBLIST L 5 1 s)").FailsWith("begin index: 5 is out of range 0 - 1"),
		That(
			"set(L a b c d)",
			"list(POP_FRONT L x)",
			"list(POP_BACK L y z)",
			`message("${x} ${y} ${z} [${L}]")`).Prints("a d c [b]\n"),
		// Empty elements are kept.
		That(`set(L "a;;b")`, "list(LENGTH L n)", "message(${n})").Prints("3\n"),
		That("list(FOO L)").FailsWith("does not recognize sub-command FOO"),
		That("list(LENGTH)").FailsWith("must be called with at least two arguments."),
	)
}

func TestListSort(t *testing.T) {
	Test(t,
		That("set(L b C a)", "list(SORT L)", `message("${L}")`).Prints("C;a;b\n"),
		That("set(L b C a)", "list(SORT L CASE INSENSITIVE)", `message("${L}")`).Prints("a;b;C\n"),
		That("set(L a c b)", "list(SORT L ORDER DESCENDING)", `message("${L}")`).Prints("c;b;a\n"),
		That("set(L x10 x9 x1)", "list(SORT L COMPARE NATURAL)", `message("${L}")`).Prints("x1;x9;x10\n"),
		That("set(L /b/2 /a/3 /c/1)", "list(SORT L COMPARE FILE_BASENAME)", `message("${L}")`).
			Prints("/c/1;/b/2;/a/3\n"),
		That("set(L a)", "list(SORT L ORDER UP)").
			FailsWith(`sub-command SORT value "UP" for option "ORDER" is invalid.`),
		That("set(L a)", "list(SORT L FOO BAR)").FailsWith(`sub-command SORT option "FOO" is unknown.`),
		That("set(L a)", "list(SORT L ORDER)").FailsWith(`sub-command SORT missing argument for option "ORDER".`),
	)
}
