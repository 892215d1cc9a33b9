// Package parse turns schedule payloads into candidate weeks. Two wire
// formats are supported: the line-oriented text format and a keyed document
// (JSON, or the same document in YAML).
package parse

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match with errors.Is.
var (
	ErrBadDigit          = errors.New("bad digit")
	ErrOutOfRange        = errors.New("value out of range")
	ErrMissingSeparator  = errors.New("missing separator")
	ErrShortSchedule     = errors.New("incomplete schedule")
	ErrTrailingData      = errors.New("unexpected data after schedule")
	ErrMissingField      = errors.New("missing field")
	ErrWrongType         = errors.New("wrong field type")
	ErrUnexpectedField   = errors.New("unexpected field")
	ErrMalformedDocument = errors.New("malformed document")
	ErrUnknownKind       = errors.New("unknown payload kind")
)

// Error describes why a payload was rejected. Line and Column are 1-based and
// only set by the text parser; Field is only set by the document parser.
type Error struct {
	Kind   error
	Line   int
	Column int
	Field  string
	Detail string
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	switch {
	case e.Field != "":
		fmt.Fprintf(&sb, " at %s", e.Field)
	case e.Line > 0:
		fmt.Fprintf(&sb, " at line %d, column %d", e.Line, e.Column)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Kind
}
