//go:build !darwin && !linux

package kextinfo

// KernelRelease returns the kernel release string.
// On this platform it always returns [ErrUnsupportedPlatform].
func KernelRelease() (string, error) {
	return "", ErrUnsupportedPlatform
}
