package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrSyntax      = errors.New("stomp: syntax error")
	ErrEncoding    = errors.New("stomp: invalid encoding")
	ErrHeaderValue = errors.New("stomp: invalid header value")
	ErrInvalidUTF8 = errors.New("invalid utf-8 sequence")
)

// Error kinds reported by Kind.
const (
	KindSyntax   = "syntax"
	KindEncoding = "encoding"
	KindHeader   = "header"
)

const maxFragmentLen = 64

// SyntaxError reports a grammar violation. Fragment holds the offending
// token, header text or unconsumed remainder of the input.
type SyntaxError struct {
	Reason   string
	Fragment string
}

func (e *SyntaxError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("%v: %s", ErrSyntax, e.Reason)
	}
	return fmt.Sprintf("%v: %s at %q", ErrSyntax, e.Reason, truncate(e.Fragment))
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

// EncodingError reports header bytes that are not well-formed UTF-8.
// Offset is the index of the first invalid byte within the key or value.
type EncodingError struct {
	Offset int
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%v: %v from index %d", ErrEncoding, e.Err, e.Offset)
}

func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// HeaderValueError reports a header whose value fails its expected format.
type HeaderValueError struct {
	Name  string
	Value string
	Err   error
}

func (e *HeaderValueError) Error() string {
	return fmt.Sprintf("%v: %s=%q", ErrHeaderValue, e.Name, truncate(e.Value))
}

func (e *HeaderValueError) Is(target error) bool {
	return target == ErrHeaderValue
}

func (e *HeaderValueError) Unwrap() error {
	return e.Err
}

// Kind classifies a codec error for logs and metrics. It returns the empty
// string for errors that did not come from the codec.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSyntax):
		return KindSyntax
	case errors.Is(err, ErrEncoding):
		return KindEncoding
	case errors.Is(err, ErrHeaderValue):
		return KindHeader
	default:
		return ""
	}
}

func syntaxError(reason string, fragment []byte) *SyntaxError {
	return &SyntaxError{Reason: reason, Fragment: lossy(fragment)}
}

func truncate(s string) string {
	if len(s) <= maxFragmentLen {
		return s
	}
	return s[:maxFragmentLen] + "..."
}
