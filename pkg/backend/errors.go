package backend

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is wrapped by EmptyResponseError.
var ErrEmptyResponse = errors.New("empty response body")

// TransportError reports a request that never reached the server or came
// back with a non-2xx status. Status is 0 when no response arrived.
type TransportError struct {
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d", e.Op, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// EmptyResponseError reports a 2xx response without the body the caller needs.
type EmptyResponseError struct {
	Op  string
	URL string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, ErrEmptyResponse)
}

func (e *EmptyResponseError) Unwrap() error { return ErrEmptyResponse }

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
