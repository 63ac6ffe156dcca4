package gopher

import (
	"errors"
	"fmt"
)

var (
	// ErrNotGopherPlus is returned when a Gopher+ only operation is attempted
	// with a client configured for RFC1436.
	ErrNotGopherPlus = errors.New("gopher: operation requires a Gopher+ client")

	// ErrMissingQuery is returned by Search when the request carries no query.
	ErrMissingQuery = errors.New("gopher: search requires a query")

	// ErrMissingHost is returned when a request has no hostname.
	ErrMissingHost = errors.New("gopher: missing hostname")

	// ErrNotNavigable is returned when an item has no target to connect to.
	ErrNotNavigable = errors.New("gopher: item has no target")

	// ErrInvalidURL is returned by ParseURL for strings that are not gopher URLs.
	ErrInvalidURL = errors.New("gopher: invalid url")

	// ErrPlusFailure is returned when a Gopher+ server answers an attribute
	// request with an error status.
	ErrPlusFailure = errors.New("gopher: server reported failure")

	// ErrRequestTooLong is returned by the server for request lines over 1024 bytes.
	ErrRequestTooLong = errors.New("gopher: request exceeds 1024 length")
)

// ConnectionError reports a failure to establish, write to or read from a connection.
type ConnectionError struct {
	Op    string // "dial", "write" or "read"
	Addr  string
	TLS   bool
	Cause error
}

func (e *ConnectionError) Error() string {
	transport := "tcp"
	if e.TLS {
		transport = "tls"
	}
	return fmt.Sprintf("gopher: %s %s %s: %v", e.Op, transport, e.Addr, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// LineError describes a menu line that could only be parsed partially.
// It is informational: the item built from the line is still returned.
type LineError struct {
	Line   int // 1-based position in the menu, 0 when parsed on its own
	Text   string
	Reason string
}

func (e *LineError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("gopher: menu line %d: %s: %q", e.Line, e.Reason, e.Text)
	}
	return fmt.Sprintf("gopher: menu line: %s: %q", e.Reason, e.Text)
}
