//go:build !darwin

package kextinfo

// defaultCommand is empty on platforms without kernel extensions; only
// [WithCommand] makes [StatWith] usable there.
const defaultCommand = ""
