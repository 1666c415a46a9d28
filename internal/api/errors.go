package api

import (
	"errors"
	"fmt"
)

// ErrorKind discriminates transport failures. Every error the client
// returns is an *Error carrying exactly one of these kinds; nothing else
// crosses the gateway boundary.
type ErrorKind string

const (
	// ErrorKindNetwork covers unreachable servers, timeouts and broken
	// connections.
	ErrorKindNetwork ErrorKind = "network_error"

	// ErrorKindHTTP covers non-success status codes, with the status and
	// the server's detail message attached.
	ErrorKindHTTP ErrorKind = "http_error"

	// ErrorKindDecode covers responses that cannot be decoded.
	ErrorKindDecode ErrorKind = "decode_error"
)

// Error is the uniform failure shape for every gateway operation.
type Error struct {
	Kind   ErrorKind
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrorKindHTTP:
		if e.Detail != "" {
			return fmt.Sprintf("%s: server rejected request (%d): %s", e.Op, e.Status, e.Detail)
		}
		return fmt.Sprintf("%s: server rejected request (%d)", e.Op, e.Status)
	case ErrorKindDecode:
		return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status of an *Error, or 0 for non-HTTP
// failures and foreign errors.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == ErrorKindHTTP {
		return apiErr.Status
	}
	return 0
}

// IsStatus reports whether err is an HTTP rejection with the given status.
func IsStatus(err error, status int) bool {
	return StatusCode(err) == status
}
