package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures raised by the ingestion components.
type ErrorKind string

const (
	KindFetch          ErrorKind = "fetch"
	KindNotFound       ErrorKind = "not_found"
	KindCorruptArchive ErrorKind = "corrupt_archive"
	KindParse          ErrorKind = "parse"
	KindSchema         ErrorKind = "schema"
	KindEmptyInput     ErrorKind = "empty_input"
	KindPersistence    ErrorKind = "persistence"
	KindIO             ErrorKind = "io"
)

// Error is a typed component error. Err carries the underlying cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error

	// StatusCode is set for fetch errors caused by an HTTP status.
	StatusCode int
	// Missing lists absent columns for schema errors.
	Missing []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if len(e.Missing) > 0 {
		b.WriteString(": missing required columns: ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrFetch          = &Error{Kind: KindFetch}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrCorruptArchive = &Error{Kind: KindCorruptArchive}
	ErrParse          = &Error{Kind: KindParse}
	ErrSchema         = &Error{Kind: KindSchema}
	ErrEmptyInput     = &Error{Kind: KindEmptyInput}
	ErrPersistence    = &Error{Kind: KindPersistence}
	ErrIO             = &Error{Kind: KindIO}
)

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FetchError reports a network or HTTP failure. status is 0 for transport errors.
func FetchError(op string, status int, err error) *Error {
	if err == nil && status != 0 {
		err = fmt.Errorf("unexpected status %d", status)
	}
	return &Error{Kind: KindFetch, Op: op, Err: err, StatusCode: status}
}

func NotFoundError(op string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

func CorruptArchiveError(op string, err error) *Error {
	return &Error{Kind: KindCorruptArchive, Op: op, Err: err}
}

func ParseError(op string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// SchemaError names the required columns that are missing.
func SchemaError(op string, missing []string) *Error {
	return &Error{Kind: KindSchema, Op: op, Missing: missing}
}

// DuplicateColumnsError reports column names that occur more than once.
func DuplicateColumnsError(op string, names []string) *Error {
	return &Error{Kind: KindSchema, Op: op, Err: fmt.Errorf("duplicate column names: %s", strings.Join(names, ", "))}
}

func EmptyInputError(op string) *Error {
	return &Error{Kind: KindEmptyInput, Op: op}
}

func PersistenceError(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

func IOError(op string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}
