//go:build unix

package sys

import (
	"os"

	"golang.org/x/sys/unix"
)

var stopSignals = []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGHUP}
