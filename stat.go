package kextinfo

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
)

// statConfig holds the configuration for a stat operation.
type statConfig struct {
	command string
	args    []string
}

// StatOption configures how [StatWith] obtains the extension table.
type StatOption func(*statConfig)

// WithCommand replaces the default kextstat invocation.
// The command must write kextstat-formatted output to stdout.
func WithCommand(name string, args ...string) StatOption {
	return func(c *statConfig) {
		c.command = name
		c.args = args
	}
}

// Stat runs kextstat and returns the loaded extensions.
func Stat() ([]Extension, error) {
	return StatWith()
}

// StatWith runs kextstat, or the command set by [WithCommand], and parses
// its standard output.
//
// A command that cannot be started or exits non-zero yields an
// *[InvocationError]. Without [WithCommand], platforms other than macOS
// return [ErrUnsupportedPlatform].
func StatWith(opts ...StatOption) ([]Extension, error) {
	cfg := &statConfig{command: defaultCommand}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.command == "" {
		return nil, ErrUnsupportedPlatform
	}

	out, err := run(cfg.command, cfg.args...)
	if err != nil {
		return nil, err
	}
	return ParseBytes(out)
}

// run executes name and returns its standard output.
func run(name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		ie := &InvocationError{
			Command:  name,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ie.ExitCode = exitErr.ExitCode()
		}
		return nil, ie
	}

	return stdout.Bytes(), nil
}
