package eval_test

import (
	"testing"

	"src.cmk.sh/pkg/eval"
	. "src.cmk.sh/pkg/eval/evaltest"
	"src.cmk.sh/pkg/state"
)

// Returns code that prints "yes" if the condition holds and "no" otherwise.
func cond(condition string, setup ...string) Case {
	lines := append(setup, "if("+condition+")", "  message(yes)", "else()", "  message(no)", "endif()")
	return That(lines...)
}

func TestCondition_Constants(t *testing.T) {
	Test(t,
		cond("1").Prints("yes\n"),
		cond("ON").Prints("yes\n"),
		cond("y").Prints("yes\n"),
		cond("0.5").Prints("yes\n"),
		cond("0").Prints("no\n"),
		cond("FALSE").Prints("no\n"),
		cond("IGNORE").Prints("no\n"),
		cond("foo-NOTFOUND").Prints("no\n"),
		cond(`""`).Prints("no\n"),
	)
}

func TestCondition_Variables(t *testing.T) {
	Test(t,
		cond("V", "set(V ON)").Prints("yes\n"),
		cond("V", "set(V OFF)").Prints("no\n"),
		cond("V", "set(V lib-NOTFOUND)").Prints("no\n"),
		cond("V", "set(V anything)").Prints("yes\n"),
		cond("UNDEFINED").Prints("no\n"),
		cond("DEFINED V", "set(V \"\")").Prints("yes\n"),
		cond("DEFINED V").Prints("no\n"),
		cond("DEFINED ENV{CMK_TEST}").Prints("yes\n"),
		cond("DEFINED ENV{NO_SUCH_VAR}").Prints("no\n"),
		cond("DEFINED CACHE{C}", "set(C x CACHE STRING doc)").Prints("yes\n"),
		cond("DEFINED CACHE{C}", "set(C x)").Prints("no\n"),
	)
}

func TestCondition_Logic(t *testing.T) {
	Test(t,
		cond("NOT 0").Prints("yes\n"),
		cond("NOT NOT 1").Prints("yes\n"),
		cond("1 AND 0").Prints("no\n"),
		cond("0 OR 1").Prints("yes\n"),
		// AND and OR are evaluated from left to right.
		cond("1 AND 0 OR 1").Prints("yes\n"),
		cond("0 OR 1 AND 0").Prints("no\n"),
		cond("(1 OR 0) AND 0").Prints("no\n"),
		cond("NOT (0 OR 0)").Prints("yes\n"),
		cond("((1))").Prints("yes\n"),
		That("if((1)", "endif()").FailsWith("mismatched parenthesis in condition"),
		That("if(1 2)", "endif()").FailsWith("Unknown arguments specified"),
	)
}

func TestCondition_Comparisons(t *testing.T) {
	Test(t,
		cond("2 LESS 10").Prints("yes\n"),
		cond("1.5 GREATER 1").Prints("yes\n"),
		cond("3 LESS_EQUAL 3").Prints("yes\n"),
		cond("abc EQUAL 1").Prints("no\n"),
		cond("N EQUAL 4", "set(N 4)").Prints("yes\n"),
		cond("10 STRLESS 2").Prints("yes\n"),
		cond("S STREQUAL abc", "set(S abc)").Prints("yes\n"),
		cond("b STRGREATER_EQUAL a").Prints("yes\n"),
		cond("1.2.3 VERSION_LESS 1.10").Prints("yes\n"),
		cond("1.0 VERSION_EQUAL 1").Prints("yes\n"),
		cond("2.0.1 VERSION_GREATER_EQUAL 2.0.1").Prints("yes\n"),
		cond("/a//b PATH_EQUAL /a/b").Prints("yes\n"),
	)
}

func TestCondition_Matches(t *testing.T) {
	Test(t,
		That(
			`if(abc123 MATCHES "([0-9]+)")`,
			"  message(${CMAKE_MATCH_1})",
			"endif()").Prints("123\n"),
		cond(`V MATCHES "^x"`, "set(V xyz)").Prints("yes\n"),
		cond(`MATCHES "x"`).Prints("no\n"),
		That(`if(a MATCHES "(")`, "endif()").FailsWith(`Regular expression "(" cannot compile`),
	)
}

func TestCondition_Predicates(t *testing.T) {
	Test(t,
		cond("COMMAND message").Prints("yes\n"),
		cond("COMMAND no_such_command").Prints("no\n"),
		cond("COMMAND f", "function(f)", "endfunction()").Prints("yes\n"),
		cond("POLICY CMP0054").Prints("yes\n"),
		cond("POLICY CMP9999").Prints("no\n"),
		cond("TARGET anything").Prints("no\n"),
		cond("IS_ABSOLUTE /x").Prints("yes\n"),
		cond("IS_ABSOLUTE x").Prints("no\n"),
		cond("EXISTS ${CMAKE_CURRENT_SOURCE_DIR}").Prints("yes\n"),
		cond("IS_DIRECTORY ${CMAKE_CURRENT_SOURCE_DIR}").Prints("yes\n"),
		cond("EXISTS ${CMAKE_CURRENT_SOURCE_DIR}/no/such/file").Prints("no\n"),
	)
}

func TestCondition_InList(t *testing.T) {
	Test(t,
		cond("a IN_LIST L", "cmake_policy(SET CMP0057 NEW)", "set(L x;a)").Prints("yes\n"),
		cond("z IN_LIST L", "cmake_policy(SET CMP0057 NEW)", "set(L x;a)").Prints("no\n"),
		cond("z IN_LIST NOPE", "cmake_policy(SET CMP0057 NEW)").Prints("no\n"),
		That("set(L a)", "if(a IN_LIST L)", "endif()").FailsWith("Policy CMP0057 is not set"),
	)
}

func TestCondition_QuotedArguments(t *testing.T) {
	Test(t,
		// Without the policy, quoted variable names are dereferenced with a
		// warning.
		cond(`"X" STREQUAL "1"`, "set(X 1)").
			Prints("yes\n").
			PrintsStderrWith("Policy CMP0054 is not set"),
		cond(`"X" STREQUAL "1"`, "cmake_policy(SET CMP0054 NEW)", "set(X 1)").Prints("no\n"),
		cond(`"X" STREQUAL "1"`, "cmake_policy(SET CMP0054 OLD)", "set(X 1)").Prints("yes\n"),
		// Quoted keywords are not keywords.
		cond(`"NOT" 1`, "cmake_policy(SET CMP0054 NEW)").FailsWith("Unknown arguments specified"),
	)
}

func TestCondition_WhileUsesCondition(t *testing.T) {
	Test(t,
		That(
			"set(L a b c)",
			"while(L)",
			"  list(POP_FRONT L x)",
			"  message(${x})",
			"endwhile()").Prints("a\nb\nc\n"),
	)
}

func TestCondition_CacheLookup(t *testing.T) {
	cache := state.NewMemCache()
	cache.Set("FROM_CACHE", state.CacheEntry{Value: "ON", Type: state.CacheBool})
	Test(t,
		cond("FROM_CACHE").
			WithConfig(func(cfg *eval.Config) { cfg.Cache = cache }).
			Prints("yes\n"),
	)
}
