package eval_test

import (
	"testing"

	. "src.cmk.sh/pkg/eval/evaltest"
)

func TestCmakeLanguage_Call(t *testing.T) {
	Test(t,
		That("cmake_language(CALL message hi)").Prints("hi\n"),
		That("cmake_language(CALL set X 2)", "message(${X})").Prints("2\n"),
		That("set(CMD message)", "cmake_language(CALL ${CMD} from-var)").Prints("from-var\n"),
		That("cmake_language(CALL if 1)").FailsWith("invalid command specified: if"),
		That("cmake_language(CALL)").FailsWith("CALL missing command name"),
		That("cmake_language(FOO)").FailsWith("called with unknown meta-operation"),
		That("cmake_language()").FailsWith("called with incorrect number of arguments"),
	)
}

func TestCmakeLanguage_Eval(t *testing.T) {
	Test(t,
		That(
			"cmake_language(EVAL CODE [[",
			"set(X 1)",
			"message(${X})",
			"]])",
			"message(after-${X})").Prints("1\nafter-1\n"),
		That("cmake_language(EVAL)").FailsWith("called without CODE argument"),
		That(`cmake_language(EVAL CODE "message(")`).Fails(),
	)
}

func TestCmakeLanguage_Defer(t *testing.T) {
	Test(t,
		That(
			"cmake_language(DEFER ID a CALL message a)",
			"cmake_language(DEFER ID b CALL message b)",
			"cmake_language(DEFER ID c CALL message c)",
			"cmake_language(DEFER CANCEL_CALL b)",
			"message(first)").Prints("first\na\nc\n"),
		// Calls deferred by deferred calls run after the pending ones.
		That(
			"cmake_language(DEFER ID a CALL cmake_language DEFER ID d CALL message d)",
			"cmake_language(DEFER ID b CALL message b)").Prints("b\nd\n"),
		That(
			"cmake_language(DEFER ID x CALL message x)",
			"cmake_language(DEFER CALL message y)",
			"cmake_language(DEFER GET_CALL_IDS ids)",
			`message("${ids}")`).Prints("x;__1\nx\ny\n"),
		That(
			"cmake_language(DEFER ID x CALL message hello world)",
			"cmake_language(DEFER GET_CALL x c)",
			`message("${c}")`).Prints("message;hello;world\nhelloworld\n"),
		That(
			"cmake_language(DEFER ID_VAR v CALL message z)",
			"message(${v})").Prints("__0\nz\n"),
		// Arguments are expanded when the call runs.
		That(
			"set(X early)",
			"cmake_language(DEFER CALL message ${X})",
			"set(X late)").Prints("late\n"),
		That("cmake_language(DEFER ID A CALL message a)").FailsWith("DEFER ID may not start in A-Z."),
		That("cmake_language(DEFER ID a)").FailsWith("DEFER must be followed by a CALL argument"),
		That("cmake_language(DEFER FOO CALL message)").FailsWith("DEFER unknown option:\n  FOO"),
		That("cmake_language(DEFER ID a GET_CALL_IDS ids)").FailsWith(`"GET_CALL_IDS" does not accept ID or ID_VAR.`),
	)
}

func TestCmakeLanguage_Exit(t *testing.T) {
	Test(t,
		That("cmake_language(EXIT 3)", "message(after)").Exits(3),
		// Deferred calls don't run after an exit.
		That("cmake_language(DEFER CALL message deferred)", "cmake_language(EXIT 2)").Exits(2),
		That(
			"function(f)",
			"  cmake_language(EXIT 1)",
			"endfunction()",
			"f()",
			"message(after)").Exits(1),
		That("cmake_language(EXIT x)").FailsWith("EXIT requires one argument of type integer"),
		That("cmake_language(EXIT)").FailsWith("EXIT requires one argument"),
	)
}

func TestCmakeLanguage_GetMessageLogLevel(t *testing.T) {
	Test(t,
		That("cmake_language(GET_MESSAGE_LOG_LEVEL l)", "message(${l})").Prints("STATUS\n"),
		That(
			"set(CMAKE_MESSAGE_LOG_LEVEL debug)",
			"cmake_language(GET_MESSAGE_LOG_LEVEL l)",
			"message(${l})").Prints("DEBUG\n"),
		That("cmake_language(GET_MESSAGE_LOG_LEVEL)").FailsWith("called with incorrect number of arguments"),
	)
}
