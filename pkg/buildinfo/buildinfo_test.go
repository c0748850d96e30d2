package buildinfo

import (
	"fmt"
	"testing"

	. "src.cmk.sh/pkg/prog/progtest"
)

func TestProgram(t *testing.T) {
	info := Value()
	Test(t, &Program{},
		ThatCmk("--version").WritesStdout("cmk version " + info.Version + "\n"),
		ThatCmk("--version", "--json").WritesStdout(mustToJSON(info.Version)+"\n"),

		ThatCmk("--buildinfo").WritesStdout(
			fmt.Sprintf(
				"Version: %v\nGo version: %v\nReproducible build: %v\n",
				info.Version, info.GoVersion, info.Reproducible)),
		ThatCmk("--buildinfo", "--json").WritesStdout(mustToJSON(info)+"\n"),

		ThatCmk().ExitsWith(2).WritesStderr("internal error: no suitable subprogram\n"),
	)
}

func TestVersion(t *testing.T) {
	if Version != "3.28.0" {
		t.Errorf("got version %q, want 3.28.0", Version)
	}
}
