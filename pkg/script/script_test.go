package script_test

import (
	"testing"

	. "src.cmk.sh/pkg/prog/progtest"
	"src.cmk.sh/pkg/script"
	"src.cmk.sh/pkg/testutil"
)

func TestScript(t *testing.T) {
	testutil.InTempDir(t)
	testutil.ApplyDir(testutil.Dir{
		"hello.cmake": `message("hello ${CMAKE_ARGC} ${CMAKE_ARGV4}")` + "\n",
		"status.cmake": "message(STATUS working)\n",
		"exit.cmake":   "message(before)\ncmake_language(EXIT 7)\nmessage(after)\n",
		"fail.cmake":   "message(SEND_ERROR bad)\nmessage(still-running)\n",
		"fatal.cmake":  "message(FATAL_ERROR stop)\nmessage(unreachable)\n",
		"define.cmake": "message(${V})\n",
		"syntax.cmake": "message(\n",
	})

	Test(t, &script.Program{},
		ThatCmk("-P", "hello.cmake").WritesStderr("hello 3 \n"),
		ThatCmk("-P", "hello.cmake", "--", "a", "b").WritesStderr("hello 6 a\n"),
		ThatCmk("-P", "status.cmake").WritesStdout("-- working\n"),
		ThatCmk("-P", "exit.cmake").ExitsWith(7).WritesStderr("before\n"),
		ThatCmk("-DV=defined", "-P", "define.cmake").WritesStderr("defined\n"),
		ThatCmk("-P", "fail.cmake").ExitsWith(1).WritesStderrContaining("CMake Error at "),
		ThatCmk("-P", "fatal.cmake").ExitsWith(1).WritesStderrContaining("stop"),
		ThatCmk("-P", "syntax.cmake").ExitsWith(1).WritesStderrContaining("syntax.cmake"),
		ThatCmk("-P", "missing.cmake").ExitsWith(1).WritesStderrContaining("missing.cmake"),
		ThatCmk("-C", "missing.yaml", "-P", "hello.cmake").
			ExitsWith(2).
			WritesStderrContaining("\033[31;1mopen missing.yaml: "),
		ThatCmk().ExitsWith(2).WritesStderr("internal error: no suitable subprogram\n"),
	)
}
