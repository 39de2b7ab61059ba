//go:build darwin

package kextinfo

// defaultCommand is the kextstat binary shipped with macOS. On recent
// releases it forwards to kmutil and prints a notice on stderr, which is
// ignored.
const defaultCommand = "/usr/sbin/kextstat"
