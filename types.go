package kextinfo

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// HeaderFields is the number of positional columns kextstat prints.
const HeaderFields = 9

// ErrUnsupportedPlatform is returned when the running platform has no kextstat.
var ErrUnsupportedPlatform = errors.New("kextinfo: unsupported platform")

// ErrInvalidUTF8 is returned when a line of command output is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// Extension is one row of the loaded kernel extension table.
type Extension struct {
	// Index identifies the extension within one snapshot.
	Index int
	// Refs is the number of references held on the extension.
	Refs int
	// Address is the kernel load address.
	Address uint64
	// Size is the size in bytes of the loaded image.
	Size uint64
	// Wired is the amount of wired memory in bytes.
	Wired uint64
	// Name is the bundle identifier (e.g. "com.apple.iokit.IOPCIFamily").
	Name string
	// Version is the bundle version without its surrounding parentheses.
	Version string
	UUID    uuid.UUID
	// LinkedAgainst lists the indices this extension links against, in
	// the order kextstat printed them.
	LinkedAgainst []int
}

func (e Extension) String() string {
	return fmt.Sprintf("%d: %s (%s)", e.Index, e.Name, e.Version)
}

// InvocationError is returned when the kextstat command cannot be run or
// exits with a non-zero status.
type InvocationError struct {
	Command string
	// ExitCode is -1 when the process never started.
	ExitCode int
	// Stderr holds whatever the command wrote to its standard error.
	Stderr string
	Err    error
}

func (e *InvocationError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("run %s: exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("run %s: %v", e.Command, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// FormatError is returned when the header row does not have the expected
// number of columns. It usually means the host tool changed its output.
type FormatError struct {
	Fields int
	Want   int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("kextstat format invalid: header has %d fields, want %d", e.Fields, e.Want)
}

// RecordParseError is returned when a data row cannot be parsed.
type RecordParseError struct {
	// Line is the 1-based line number in the command output.
	Line  int
	Field string
	Value string
	Err   error
}

func (e *RecordParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: field %s %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *RecordParseError) Unwrap() error {
	return e.Err
}

// DanglingReferenceError describes a dependency index with no matching row
// in the same snapshot.
type DanglingReferenceError struct {
	// From is the extension that lists the dependency.
	From int
	// To is the index that could not be resolved.
	To int
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("extension %d links against %d, which is not loaded", e.From, e.To)
}

// DuplicateIndexError is returned by [NewIndex] when two rows share an index.
type DuplicateIndexError struct {
	Index int
	// First and Second are the positions of the clashing rows.
	First  int
	Second int
}

func (e *DuplicateIndexError) Error() string {
	return fmt.Sprintf("duplicate extension index %d (rows %d and %d)", e.Index, e.First, e.Second)
}
