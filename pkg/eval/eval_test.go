package eval_test

import (
	"testing"

	"src.cmk.sh/pkg/eval"
	. "src.cmk.sh/pkg/eval/evaltest"
	"src.cmk.sh/pkg/state"
)

func TestFunctionScopeIsolation(t *testing.T) {
	Test(t,
		That(
			"set(X 1)",
			"function(f)",
			"  set(X 2)",
			"endfunction()",
			"f()",
			"message(${X})").Prints("1\n"),
		// Variables set inside a function are not visible in a function
		// called afterwards.
		That(
			"function(a)",
			"  set(Y inner)",
			"endfunction()",
			"function(b)",
			"  message(\"[${Y}]\")",
			"endfunction()",
			"a()",
			"b()").Prints("[]\n"),
		// Functions see the variables of their caller.
		That(
			"function(f)",
			"  message(${X})",
			"endfunction()",
			"set(X outer)",
			"f()").Prints("outer\n"),
	)
}

func TestArgumentExpansion(t *testing.T) {
	Test(t,
		// Unquoted arguments are split into list elements.
		That(
			"set(L a;b;c)",
			"function(count)",
			"  message(${ARGC})",
			"endfunction()",
			"count(${L})",
			`count("${L}")`).Prints("3\n1\n"),
		// Splitting an element again gives the element.
		That(
			"set(L a;b;c)",
			"foreach(x ${L})",
			"  set(y ${x})",
			"  message(${y})",
			"endforeach()").Prints("a\nb\nc\n"),
		// Bracket arguments are never expanded.
		That("set(X 1)", "message([=[${X}]=])").Prints("${X}\n"),
		That("message([[a;b]])").Prints("a;b\n"),
		// Escaped semicolons don't separate elements.
		That(`set(L "a\;b")`,
			"function(count)",
			"  message(${ARGC})",
			"endfunction()",
			"count(${L})").Prints("1\n"),
		// Nested references are expanded from the inside out.
		That("set(N X)", "set(X value)", "message(${${N}})").Prints("value\n"),
		That("message($ENV{CMK_TEST})").Prints("1\n"),
		// Escape sequences in quoted arguments.
		That(`message("a\tb\\c")`).Prints("a\tb\\c\n"),
		That(`message("${X")`).FailsWith("There is an unterminated variable reference"),
	)
}

func TestCacheFallback(t *testing.T) {
	cache := state.NewMemCache()
	cache.Set("C", state.CacheEntry{Value: "cached", Type: state.CacheString})
	Test(t,
		That("message(${C})").
			WithConfig(func(cfg *eval.Config) { cfg.Cache = cache }).
			Prints("cached\n"),
		That("set(C local)", "message(${C})", "message($CACHE{C})").
			WithConfig(func(cfg *eval.Config) { cfg.Cache = cache }).
			Prints("local\ncached\n"),
	)
	if e, _ := cache.Get("C"); e.Value != "cached" {
		t.Errorf("cache entry changed to %q", e.Value)
	}
}

func TestRecursionLimit(t *testing.T) {
	Test(t,
		That(
			"function(f)",
			"  f()",
			"endfunction()",
			"f()").
			WithConfig(func(cfg *eval.Config) { cfg.MaxRecursionDepth = 20 }).
			FailsWith("Maximum recursion depth of 20 exceeded"),
		That(
			"set(CMAKE_MAXIMUM_RECURSION_DEPTH 10)",
			"macro(m)",
			"  m()",
			"endmacro()",
			"m()").FailsWith("Maximum recursion depth of 10 exceeded"),
	)
}

func TestRecursiveInclude(t *testing.T) {
	Test(t,
		That("include(self.cmake)").
			InDir(map[string]any{"self.cmake": "include(self.cmake)\n"}).
			WithConfig(func(cfg *eval.Config) { cfg.MaxRecursionDepth = 50 }).
			FailsWith("Maximum recursion depth of 50 exceeded"),
	)
}

func TestUnknownCommand(t *testing.T) {
	Test(t,
		That("no_such_command()", "message(after)").
			FailsWith(`Unknown CMake command "no_such_command".`),
	)
}

func TestSyntaxErrors(t *testing.T) {
	Test(t,
		That(`message("unterminated)`).FailsWith("unterminated"),
		That("if(X)").FailsWith("Flow control statements are not properly nested."),
		That("message(a) message(b)").FailsWith("Parse error.  Expected a newline"),
	)
}

func TestFatalErrorStopsExecution(t *testing.T) {
	Test(t,
		That(
			"message(before)",
			"message(FATAL_ERROR boom)",
			"message(after)").Prints("before\n").FailsWith("CMake Error at "),
		// SEND_ERROR reports an error without stopping.
		That(
			"message(SEND_ERROR bad)",
			"message(after)").Prints("after\n").FailsWith("bad"),
	)
}

func TestCallStackInDiagnostics(t *testing.T) {
	Test(t,
		That(
			"function(inner)",
			"  message(WARNING deep)",
			"endfunction()",
			"function(outer)",
			"  inner()",
			"endfunction()",
			"outer()").PrintsStderrWith("  deep\nCalled from:\n"),
	)
}

func TestEvalScriptSharesState(t *testing.T) {
	Test(t,
		That("set(X 1)", "function(show)", "  message(${X})", "endfunction()").
			Then("show()").Prints("1\n"),
	)
}
