// Package buildinfo contains build information.
//
// Build information should be set during compilation by passing
// -ldflags "-X src.cmk.sh/pkg/buildinfo.Var=value" to "go build".
package buildinfo

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"src.cmk.sh/pkg/prog"
	"src.cmk.sh/pkg/state"
)

// Version identifies the version of cmk. It is the version of the language
// the interpreter implements.
var Version = state.EngineVersion.String()

// VersionSuffix is appended to Version in the output of "cmk --version" and
// "cmk --buildinfo" to build the full version string.
var VersionSuffix = ""

// Reproducible identifies whether the build is reproducible.
var Reproducible = "false"

// Info describes the build.
type Info struct {
	Version      string `json:"version"`
	GoVersion    string `json:"goversion"`
	Reproducible bool   `json:"reproducible"`
}

// Value returns the build information of the running binary.
func Value() Info {
	return Info{Version + VersionSuffix, runtime.Version(), Reproducible == "true"}
}

// Program is the buildinfo subprogram.
type Program struct {
	version, buildinfo, json bool
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.BoolVar(&p.version, "version", false, "Show version and quit")
	fs.BoolVar(&p.buildinfo, "buildinfo", false, "Show build info and quit")
	fs.BoolVar(&p.json, "json", false, "Show the output of --version or --buildinfo in JSON")
}

func (p *Program) Run(fds [3]*os.File, _ []string) error {
	info := Value()
	switch {
	case p.buildinfo:
		if p.json {
			fmt.Fprintln(fds[1], mustToJSON(info))
		} else {
			fmt.Fprintln(fds[1], "Version:", info.Version)
			fmt.Fprintln(fds[1], "Go version:", info.GoVersion)
			fmt.Fprintln(fds[1], "Reproducible build:", info.Reproducible)
		}
	case p.version:
		if p.json {
			fmt.Fprintln(fds[1], mustToJSON(info.Version))
		} else {
			fmt.Fprintln(fds[1], "cmk version", info.Version)
		}
	default:
		return prog.ErrNotSuitable
	}
	return nil
}

func mustToJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
