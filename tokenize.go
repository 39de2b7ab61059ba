package kextinfo

import (
	"strings"
	"unicode/utf8"
)

// DecodeLine returns line as a string, or [ErrInvalidUTF8] if it is not
// valid UTF-8.
func DecodeLine(line []byte) (string, error) {
	if !utf8.Valid(line) {
		return "", ErrInvalidUTF8
	}
	return string(line), nil
}

// Tokenize splits one line of kextstat output into fields.
//
// Fields are separated by single spaces, except inside bracketed spans:
// the version is printed as "(1.2.3)" and the dependency list as "<1 2 3>",
// and spaces within those belong to the field. Angle brackets and
// parentheses share one depth counter, so ">" also closes a "(" span.
// Unbalanced closers drive the depth negative; spaces are then kept as
// content until the depth returns to zero.
//
// A span still open at the end of the line is discarded along with its
// field, which leaves the row short and lets the arity check reject it.
func Tokenize(line string) []string {
	var (
		fields []string
		buf    strings.Builder
		depth  int
	)

	flush := func() {
		if buf.Len() > 0 {
			fields = append(fields, buf.String())
		}
		buf.Reset()
	}

	for _, r := range line {
		switch r {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		}
		if r == ' ' && depth == 0 {
			flush()
			continue
		}
		buf.WriteRune(r)
	}

	// End of line acts as a trailing separator.
	if depth == 0 {
		flush()
	}

	return fields
}
