package eval_test

import (
	"testing"

	"src.cmk.sh/pkg/eval"
	. "src.cmk.sh/pkg/eval/evaltest"
	"src.cmk.sh/pkg/state"
)

func TestSet(t *testing.T) {
	Test(t,
		That("set(L a b c)", `message("${L}")`).Prints("a;b;c\n"),
		That("set(X 1)", "set(X)", `message("[${X}]")`).Prints("[]\n"),
		That("set(X 1)", "unset(X)", `message("[${X}]")`).Prints("[]\n"),
		That(
			"function(f)",
			"  set(X from-f PARENT_SCOPE)",
			`  message("[${X}]")`,
			"endfunction()",
			"f()",
			"message(${X})").Prints("[]\nfrom-f\n"),
		That(
			"set(X outer)",
			"function(f)",
			"  unset(X PARENT_SCOPE)",
			"endfunction()",
			"f()",
			`message("[${X}]")`).Prints("[]\n"),
		// The top scope has no parent to raise to.
		That("set(X 1 PARENT_SCOPE)", `message("[${X}]")`).
			Prints("[]\n").
			PrintsStderrWith(`Cannot set "X": current scope has no parent.`),
		That("unset(X PARENT_SCOPE)").PrintsStderrWith("current scope has no parent"),
		That("set()").FailsWith("called with incorrect number of arguments"),
		That("unset(X Y)").FailsWith("called with an invalid second argument"),
	)
}

func TestSetEnv(t *testing.T) {
	Test(t,
		That("set(ENV{FOO} bar)", "message($ENV{FOO})").
			Prints("bar\n").
			Passes(func(t *testing.T, ev *eval.Evaler) {
				if v, ok := ev.Getenv("FOO"); !ok || v != "bar" {
					t.Errorf("FOO = %q, %v, want bar", v, ok)
				}
			}),
		That("unset(ENV{CMK_TEST})", `message("[$ENV{CMK_TEST}]")`).Prints("[]\n"),
		That("set(ENV{CMK_TEST})", `message("[$ENV{CMK_TEST}]")`).Prints("[]\n"),
		That("set(ENV{FOO} a b)").PrintsStderrWith("Only the first value argument is used"),
	)
}

func TestSetCache(t *testing.T) {
	Test(t,
		That(`set(C v CACHE STRING "the doc")`, "message(${C})").
			Prints("v\n").
			Passes(func(t *testing.T, ev *eval.Evaler) {
				e, ok := ev.State().Cache.Get("C")
				if !ok || e.Value != "v" || e.Type != state.CacheString || e.Help != "the doc" {
					t.Errorf("got entry %+v, %v", e, ok)
				}
			}),
		// Existing entries are only replaced with FORCE.
		That(
			"set(C v CACHE STRING doc)",
			"set(C w CACHE STRING doc)",
			"message($CACHE{C})",
			"set(C w CACHE STRING doc FORCE)",
			"message($CACHE{C})").Prints("v\nw\n"),
		// INTERNAL entries always replace.
		That(
			"set(C v CACHE INTERNAL doc)",
			"set(C w CACHE INTERNAL doc)",
			"message($CACHE{C})").Prints("w\n"),
		// Setting a cache entry removes the normal variable of the same name.
		That(
			"set(X normal)",
			"set(X cached CACHE STRING doc)",
			"message(${X})").Prints("cached\n"),
		That(
			"cmake_policy(SET CMP0126 NEW)",
			"set(X normal)",
			"set(X cached CACHE STRING doc)",
			"message(${X})").Prints("normal\n"),
		That("set(C v CACHE STRING doc)", "unset(C CACHE)", `message("[${C}]")`).Prints("[]\n"),
		That("set(C v CACHE)").FailsWith("given invalid arguments for CACHE mode."),
		That("set(C v CACHE NOTATYPE doc)").PrintsStderrWith("implicitly converting 'NOTATYPE' to 'STRING' type."),
	)
}

func TestOption(t *testing.T) {
	Test(t,
		That("option(O doc)", "message(${O})").Prints("Off\n"),
		That("option(O doc ON)", "message(${O})").
			Prints("ON\n").
			Passes(func(t *testing.T, ev *eval.Evaler) {
				if e, _ := ev.State().Cache.Get("O"); e.Type != state.CacheBool {
					t.Errorf("got type %v, want BOOL", e.Type)
				}
			}),
		// An existing entry is kept.
		That("option(O doc ON)", "option(O doc OFF)", "message(${O})").Prints("ON\n"),
		That(
			"cmake_policy(SET CMP0077 NEW)",
			"set(O keep)",
			"option(O doc ON)",
			"message(${O})").
			Prints("keep\n").
			Passes(func(t *testing.T, ev *eval.Evaler) {
				if _, ok := ev.State().Cache.Get("O"); ok {
					t.Errorf("option created a cache entry for a normal variable")
				}
			}),
		That("option(O)").FailsWith("called with incorrect number of arguments"),
	)
}

func TestMath(t *testing.T) {
	Test(t,
		That(`math(EXPR x "1 + 2 * 3")`, "message(${x})").Prints("7\n"),
		That(`math(EXPR x "(1 + 2) * 3")`, "message(${x})").Prints("9\n"),
		That(`math(EXPR x "7 % 3 << 2")`, "message(${x})").Prints("4\n"),
		That(`math(EXPR x "-5 / 2")`, "message(${x})").Prints("-2\n"),
		That(`math(EXPR x "0x10 | 1")`, "message(${x})").Prints("17\n"),
		That(`math(EXPR x "255" OUTPUT_FORMAT HEXADECIMAL)`, "message(${x})").Prints("0xff\n"),
		That(`math(EXPR x "10 / 0")`).
			FailsWith(`cannot evaluate the expression: "10 / 0": divide by zero.`),
		That(`math(EXPR x "1 +")`).
			FailsWith(`cannot parse the expression: "1 +": syntax error, unexpected end of file.`),
		That(`math(EXPR x "1" OUTPUT_FORMAT OCTAL)`).
			FailsWith(`sub-command EXPR value "OCTAL" for option "OUTPUT_FORMAT" is invalid.`),
		That("math(FOO x 1)").FailsWith("does not recognize sub-command FOO"),
	)
}

func TestVariableWatch(t *testing.T) {
	Test(t,
		That(
			"function(w var access value)",
			`  message("${var} ${access} ${value}")`,
			"endfunction()",
			"variable_watch(X w)",
			"set(X 1)",
			"message(${X})",
			"set(X 2)",
			"unset(X)").Prints("X UNKNOWN_MODIFIED_ACCESS 1\nX READ_ACCESS 1\n1\nX MODIFIED_ACCESS 2\nX REMOVED_ACCESS \n"),
		That("variable_watch(CMAKE_CURRENT_LIST_FILE)").
			FailsWith("cannot be set on the variable: CMAKE_CURRENT_LIST_FILE"),
	)
}
