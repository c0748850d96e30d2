package eval_test

import (
	"testing"

	. "src.cmk.sh/pkg/eval/evaltest"
)

func TestProperties(t *testing.T) {
	Test(t,
		That("set_property(GLOBAL PROPERTY P a)", "get_property(v GLOBAL PROPERTY P)", "message(${v})").
			Prints("a\n"),
		That(
			"set_property(GLOBAL PROPERTY P a)",
			"set_property(GLOBAL APPEND PROPERTY P b c)",
			"get_property(v GLOBAL PROPERTY P)",
			`message("${v}")`).Prints("a;b;c\n"),
		That(
			"set_property(GLOBAL PROPERTY P a)",
			"set_property(GLOBAL APPEND_STRING PROPERTY P b)",
			"get_property(v GLOBAL PROPERTY P)",
			"message(${v})").Prints("ab\n"),
		That(
			"get_property(before GLOBAL PROPERTY P SET)",
			"set_property(GLOBAL PROPERTY P x)",
			"get_property(after GLOBAL PROPERTY P SET)",
			"set_property(GLOBAL PROPERTY P)",
			"get_property(removed GLOBAL PROPERTY P SET)",
			"message(${before}${after}${removed})").Prints("010\n"),
		That("get_property(v GLOBAL PROPERTY P DEFINED)", "message(${v})").Prints("0\n"),
		// A missing property unsets the variable.
		That("set(v x)", "get_property(v GLOBAL PROPERTY NOPE)", `message("[${v}]")`).Prints("[]\n"),
		That("set_property(DIRECTORY PROPERTY D x)", "get_property(v DIRECTORY PROPERTY D)", "message(${v})").
			Prints("x\n"),
		// Global and directory properties are separate.
		That("set_property(DIRECTORY PROPERTY D x)", "get_property(v GLOBAL PROPERTY D SET)", "message(${v})").
			Prints("0\n"),
	)
}

func TestProperties_ComputedDirectory(t *testing.T) {
	Test(t,
		That(
			"get_property(v DIRECTORY PROPERTY SOURCE_DIR)",
			"if(v STREQUAL CMAKE_CURRENT_SOURCE_DIR)",
			"  message(same)",
			"endif()").Prints("same\n"),
		That(
			"get_property(v DIRECTORY PROPERTY PARENT_DIRECTORY)",
			`message("[${v}]")`).Prints("[]\n"),
		That(
			"set(MY_VAR 1)",
			"get_property(v DIRECTORY PROPERTY VARIABLES)",
			"list(FIND v MY_VAR i)",
			"if(i GREATER -1)",
			"  message(listed)",
			"endif()").Prints("listed\n"),
	)
}

func TestProperties_Errors(t *testing.T) {
	Test(t,
		That("set_property(GLOBAL)").FailsWith("called with incorrect number of arguments"),
		That("set_property(GLOBAL foo PROPERTY P)").FailsWith("given names for GLOBAL scope."),
		That("set_property(TARGET t PROPERTY P x)").
			FailsWith("given invalid scope TARGET.  Valid scopes are GLOBAL, DIRECTORY."),
		That("set_property(GLOBAL P x)").FailsWith("not given a PROPERTY <name> argument."),
		That("set_property(DIRECTORY a b PROPERTY P x)").FailsWith("allows at most one name for DIRECTORY scope."),
		That("set_property(DIRECTORY nowhere PROPERTY P x)").
			FailsWith("DIRECTORY scope provided but requested directory was not found."),
		That("get_property(v GLOBAL)").FailsWith("called with incorrect number of arguments"),
		That("get_property(v GLOBAL PROPERTY)").FailsWith("not given name for PROPERTY argument."),
		That("get_property(v GLOBAL PROPERTY P EXTRA)").FailsWith(`given invalid argument "EXTRA".`),
	)
}
