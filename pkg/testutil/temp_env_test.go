package testutil

import (
	"os"
	"testing"
)

func TestSetenv_RestoresAfterCleanup(t *testing.T) {
	os.Setenv("CMK_TESTUTIL_VAR", "old")
	defer os.Unsetenv("CMK_TESTUTIL_VAR")

	c := &cleanuper{}
	Setenv(c, "CMK_TESTUTIL_VAR", "new")
	if got := os.Getenv("CMK_TESTUTIL_VAR"); got != "new" {
		t.Errorf("after Setenv, got %q", got)
	}
	c.runCleanups()
	if got := os.Getenv("CMK_TESTUTIL_VAR"); got != "old" {
		t.Errorf("after cleanup, got %q, want old", got)
	}
}

func TestUnsetenv_RestoresAfterCleanup(t *testing.T) {
	os.Unsetenv("CMK_TESTUTIL_VAR")
	c := &cleanuper{}
	Setenv(c, "CMK_TESTUTIL_VAR", "x")
	Unsetenv(c, "CMK_TESTUTIL_VAR")
	if _, ok := os.LookupEnv("CMK_TESTUTIL_VAR"); ok {
		t.Errorf("variable still set after Unsetenv")
	}
	c.runCleanups()
	if _, ok := os.LookupEnv("CMK_TESTUTIL_VAR"); ok {
		t.Errorf("variable set after cleanup, want unset")
	}
}
