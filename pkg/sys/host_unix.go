//go:build unix

package sys

import "golang.org/x/sys/unix"

func host() HostInfo {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return HostInfo{}
	}
	return HostInfo{
		Name:      unix.ByteSliceToString(u.Sysname[:]),
		Processor: unix.ByteSliceToString(u.Machine[:]),
		Version:   unix.ByteSliceToString(u.Release[:]),
	}
}
