package pprof_test

import (
	"os"
	"testing"

	"src.cmk.sh/pkg/pprof"
	"src.cmk.sh/pkg/prog"
	"src.cmk.sh/pkg/prog/progtest"
	"src.cmk.sh/pkg/testutil"
)

var (
	Test    = progtest.Test
	ThatCmk = progtest.ThatCmk
)

func TestProgram(t *testing.T) {
	testutil.InTempDir(t)

	Test(t, prog.Composite(&pprof.Program{}, noopProgram{}),
		ThatCmk("--cpuprofile", "cpuprof").DoesNothing(),
		ThatCmk("--allocsprofile", "allocs").DoesNothing(),
		ThatCmk("--cpuprofile", "/a/bad/path").
			WritesStderrContaining("Warning: cannot create CPU profile:"),
	)

	// Check for the effect of the flags. There isn't much to test beyond a
	// sanity check that the profile files now exist.
	for _, name := range []string{"cpuprof", "allocs"} {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("profile file %s does not exist: %v", name, err)
		}
	}
}

type noopProgram struct{}

func (noopProgram) RegisterFlags(*prog.FlagSet)     {}
func (noopProgram) Run([3]*os.File, []string) error { return nil }
