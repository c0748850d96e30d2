//go:build !unix

package sys

import "os"

var stopSignals = []os.Signal{os.Interrupt}
