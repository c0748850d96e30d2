//go:build !unix

package sys

import "os"

func host() HostInfo {
	return HostInfo{Processor: os.Getenv("PROCESSOR_ARCHITECTURE")}
}
