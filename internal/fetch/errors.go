package fetch

import (
	"fmt"
	"net/http"
)

// Error describes a request whose response could not be used.
type Error struct {
	Service string
	Code    int
	URL     string
	Err     error
}

func (e *Error) Error() string {
	status := http.StatusText(e.Code)
	if e.Code == CodeTransport {
		status = "transport failure"
	}
	msg := fmt.Sprintf("%s request returned %d (%s)", e.Service, e.Code, status)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind classifies the error for logging and outcome mapping.
func (e *Error) ErrorKind() string {
	return "transport"
}

// AsError converts an unusable response into an *Error. It returns nil for a
// response that failed neither at the transport nor the status level.
func (r Response) AsError(service string) error {
	if !r.Failed() {
		return nil
	}
	return &Error{Service: service, Code: r.Code, URL: r.URL, Err: r.Err}
}
