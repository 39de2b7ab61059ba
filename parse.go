package kextinfo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxLineSize bounds a single line of kextstat output.
const maxLineSize = 1 << 20

// Column names used in [RecordParseError].
const (
	fieldIndex         = "index"
	fieldRefs          = "refs"
	fieldAddress       = "address"
	fieldSize          = "size"
	fieldWired         = "wired"
	fieldUUID          = "uuid"
	fieldLinkedAgainst = "linked against"
)

var errNegative = errors.New("negative value")

// ParseBytes parses the raw output of kextstat.
func ParseBytes(data []byte) ([]Extension, error) {
	return Parse(bytes.NewReader(data))
}

// Parse reads kextstat output from r and returns one [Extension] per row,
// in output order.
//
// The first non-blank line is the header and must have exactly
// [HeaderFields] columns; otherwise a *[FormatError] is returned and no row
// is parsed. Any malformed row aborts the parse with a *[RecordParseError].
func Parse(r io.Reader) ([]Extension, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		exts   []Extension
		lineNo int
		header bool
	)

	for scanner.Scan() {
		lineNo++

		line, err := DecodeLine(scanner.Bytes())
		if err != nil {
			return nil, &RecordParseError{Line: lineNo, Err: err}
		}

		// Only empty or all-space lines are skipped. A line made of a single
		// unterminated span tokenizes to nothing and must still fail below.
		if strings.Trim(line, " ") == "" {
			continue
		}
		fields := Tokenize(line)

		if !header {
			if len(fields) != HeaderFields {
				return nil, &FormatError{Fields: len(fields), Want: HeaderFields}
			}
			header = true
			continue
		}

		ext, err := parseRow(fields)
		if err != nil {
			var rpe *RecordParseError
			if errors.As(err, &rpe) {
				rpe.Line = lineNo
			}
			return nil, err
		}
		exts = append(exts, ext)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read kextstat output: %w", err)
	}

	if !header {
		return nil, &FormatError{Fields: 0, Want: HeaderFields}
	}

	return exts, nil
}

// parseRow maps one tokenized data row to an Extension.
// The returned *RecordParseError has no line number set.
func parseRow(fields []string) (Extension, error) {
	if len(fields) != HeaderFields {
		return Extension{}, &RecordParseError{
			Err: fmt.Errorf("row has %d fields, want %d", len(fields), HeaderFields),
		}
	}

	var (
		ext Extension
		err error
	)

	if ext.Index, err = parseDecimal(fieldIndex, fields[0]); err != nil {
		return Extension{}, err
	}
	if ext.Refs, err = parseDecimal(fieldRefs, fields[1]); err != nil {
		return Extension{}, err
	}
	if ext.Address, err = parseHex(fieldAddress, fields[2]); err != nil {
		return Extension{}, err
	}
	if ext.Size, err = parseHex(fieldSize, fields[3]); err != nil {
		return Extension{}, err
	}
	if ext.Wired, err = parseHex(fieldWired, fields[4]); err != nil {
		return Extension{}, err
	}

	ext.Name = fields[5]
	ext.Version = stripDelimiters(fields[6])

	ext.UUID, err = uuid.Parse(fields[7])
	if err != nil {
		return Extension{}, &RecordParseError{Field: fieldUUID, Value: fields[7], Err: err}
	}

	for _, dep := range strings.Split(stripDelimiters(fields[8]), " ") {
		if dep == "" {
			continue
		}
		n, err := parseDecimal(fieldLinkedAgainst, dep)
		if err != nil {
			return Extension{}, err
		}
		ext.LinkedAgainst = append(ext.LinkedAgainst, n)
	}

	return ext, nil
}

func parseDecimal(field, s string) (int, error) {
	n, err := strconv.ParseInt(s, 10, 0)
	if err != nil {
		return 0, &RecordParseError{Field: field, Value: s, Err: err}
	}
	if n < 0 {
		return 0, &RecordParseError{Field: field, Value: s, Err: errNegative}
	}
	return int(n), nil
}

// parseHex accepts an optional 0x or 0X prefix; kextstat prints addresses
// with one and sizes with or without depending on the OS release.
func parseHex(field, s string) (uint64, error) {
	digits := s
	if len(digits) > 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		digits = digits[2:]
	}
	n, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, &RecordParseError{Field: field, Value: s, Err: err}
	}
	return n, nil
}

// stripDelimiters removes the first and last rune of s, the brackets the
// tokenizer kept around a field. Fields shorter than two runes become empty.
func stripDelimiters(s string) string {
	_, first := utf8.DecodeRuneInString(s)
	_, last := utf8.DecodeLastRuneInString(s)
	if first+last > len(s) {
		return ""
	}
	return s[first : len(s)-last]
}
