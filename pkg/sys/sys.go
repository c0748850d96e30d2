// Package sys provides system utilities with the same API across OSes.
package sys

import (
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
)

// IsATTY determines whether the given file is a terminal.
func IsATTY(file *os.File) bool {
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// HostInfo describes the system cmk runs on.
type HostInfo struct {
	// Name is the system name in the form of CMAKE_HOST_SYSTEM_NAME, such as
	// "Linux", "Darwin" or "Windows".
	Name string
	// Processor is the machine hardware name, such as "x86_64".
	Processor string
	// Version is the kernel release.
	Version string
}

var goosNames = map[string]string{
	"linux": "Linux", "darwin": "Darwin", "windows": "Windows",
	"freebsd": "FreeBSD", "netbsd": "NetBSD", "openbsd": "OpenBSD",
	"dragonfly": "DragonFly", "solaris": "SunOS", "illumos": "SunOS",
	"aix": "AIX", "android": "Android",
}

// Host returns facts about the host system. Fields that can't be determined
// are derived from the Go runtime, or left empty.
func Host() HostInfo {
	info := host()
	if info.Name == "" {
		info.Name = goosNames[runtime.GOOS]
		if info.Name == "" {
			info.Name = runtime.GOOS
		}
	}
	if info.Processor == "" {
		info.Processor = goarchProcessors[runtime.GOARCH]
		if info.Processor == "" {
			info.Processor = runtime.GOARCH
		}
	}
	return info
}

var goarchProcessors = map[string]string{
	"amd64": "x86_64", "386": "i686", "arm64": "aarch64", "arm": "arm",
	"ppc64le": "ppc64le", "s390x": "s390x", "riscv64": "riscv64",
}
