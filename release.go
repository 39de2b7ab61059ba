//go:build darwin || linux

package kextinfo

import "golang.org/x/sys/unix"

// KernelRelease returns the kernel release string (e.g., "20.6.0" on macOS 11.5).
func KernelRelease() (string, error) {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uname.Release[:]), nil
}
