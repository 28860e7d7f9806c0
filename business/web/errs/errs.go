// Package errs carries the failures a monitor handler is willing to show to
// a client, along with the status to report them under.
package errs

import (
	"errors"
	"net/http"
)

// Response is the body written for a failed monitor request.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Error is a failure whose message is safe to return to a client.
type Error struct {
	Err    error
	Status int
}

// New marks err as safe to return to a client under status.
func New(err error, status int) error {
	return &Error{Err: err, Status: status}
}

// NewNotFound marks err as a missing resource, such as an experiment that
// was never started or an address with no recorded contract.
func NewNotFound(err error) error {
	return New(err, http.StatusNotFound)
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Response returns the body to write for the error.
func (e *Error) Response() Response {
	return Response{Error: e.Err.Error()}
}

// As finds the first client safe error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return nil, false
	}
	return e, true
}
