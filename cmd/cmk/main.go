// Cmk interprets CMake list files. It configures a project by running the
// CMakeLists.txt of its source directory and recording the cache in the
// binary directory, runs scripts with -P, and serves list files over the
// language server protocol with --lsp.
package main

import (
	"os"

	"src.cmk.sh/pkg/buildinfo"
	"src.cmk.sh/pkg/configure"
	"src.cmk.sh/pkg/lsp"
	"src.cmk.sh/pkg/pprof"
	"src.cmk.sh/pkg/prog"
	"src.cmk.sh/pkg/script"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(
			&pprof.Program{}, &buildinfo.Program{}, &lsp.Program{}, &script.Program{},
			&configure.Program{})))
}
