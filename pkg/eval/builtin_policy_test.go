package eval_test

import (
	"testing"

	. "src.cmk.sh/pkg/eval/evaltest"
)

func TestCmakePolicy(t *testing.T) {
	Test(t,
		That("cmake_policy(GET CMP0054 p)", `message("[${p}]")`).Prints("[]\n"),
		That("cmake_policy(SET CMP0054 NEW)", "cmake_policy(GET CMP0054 p)", "message(${p})").Prints("NEW\n"),
		That("cmake_policy(SET CMP0054 OLD)", "cmake_policy(GET CMP0054 p)", "message(${p})").Prints("OLD\n"),
		That(
			"cmake_policy(SET CMP0054 OLD)",
			"cmake_policy(PUSH)",
			"cmake_policy(SET CMP0054 NEW)",
			"cmake_policy(POP)",
			"cmake_policy(GET CMP0054 p)",
			"message(${p})").Prints("OLD\n"),
		// Policies set in a function are visible to its caller.
		That(
			"function(f)",
			"  cmake_policy(SET CMP0057 NEW)",
			"endfunction()",
			"f()",
			"cmake_policy(GET CMP0057 p)",
			"message(${p})").Prints("NEW\n"),
		That("cmake_policy(SET CMP9999 NEW)").
			FailsWith(`Policy "CMP9999" is not known to this version of CMake.`),
		That("cmake_policy(SET CMP0054 MAYBE)").FailsWith(`SET given unrecognized policy status "MAYBE"`),
		That("cmake_policy(GET CMP9999 p)").FailsWith(`GET given policy "CMP9999" which is not known`),
		That("cmake_policy(POP)").FailsWith("cmake_policy POP without matching PUSH"),
		That("cmake_policy(PUSH)").FailsWith("cmake_policy PUSH without matching POP"),
		That("cmake_policy(FOO)").FailsWith(`given unknown first argument "FOO"`),
		That(
			"cmake_policy(VERSION 3.10)",
			"cmake_policy(GET CMP0054 a)",
			"cmake_policy(GET CMP0124 b)",
			`message("${a} [${b}]")`).Prints("NEW []\n"),
		That("cmake_policy(VERSION 3.10...3.1)").FailsWith("specifies a larger minimum than maximum."),
		That("cmake_policy(VERSION 99.0)").FailsWith(`Policy version "99.0" is greater than this version of CMake`),
	)
}

func TestCmakeMinimumRequired(t *testing.T) {
	Test(t,
		That("cmake_minimum_required(VERSION 3.10)", "message(${CMAKE_MINIMUM_REQUIRED_VERSION})").Prints("3.10\n"),
		That(
			"cmake_minimum_required(VERSION 3.10...3.25)",
			"cmake_policy(GET CMP0140 p)",
			"message(${p})").Prints("NEW\n"),
		That(
			"set(CMAKE_POLICY_DEFAULT_CMP0140 OLD)",
			"cmake_minimum_required(VERSION 3.10)",
			"cmake_policy(GET CMP0140 p)",
			"message(${p})").Prints("OLD\n"),
		That("cmake_minimum_required(VERSION 99.0)").
			FailsWith("CMake 99.0 or higher is required.  You are running version 3.28.0"),
		That("cmake_minimum_required(VERSION 3.1 FOO)").FailsWith(`called with unknown argument "FOO".`),
		That("cmake_minimum_required(VERSION)").FailsWith("called with no value for VERSION."),
		That("cmake_minimum_required(VERSION 3)").FailsWith(`could not parse VERSION "3".`),
		That("cmake_minimum_required(VERSION ...3.1)").FailsWith(`does not have a version on both sides of "..."`),
	)
}
