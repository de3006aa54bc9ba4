// Package workflow processes one customer message per pass:
// validate, classify, route on confidence, handle, format, and log.
package workflow

import (
	"errors"
	"net/http"
)

// Sentinel errors for workflow operations. Only ErrTicketAllocation
// escapes Run; the others are absorbed into an escalation response
// and recorded as stage errors.
var (
	ErrValidation        = errors.New("message validation failed")
	ErrClassification    = errors.New("classification failed")
	ErrRouting           = errors.New("no route for classification")
	ErrCapabilityTimeout = errors.New("capability call timed out")
	ErrCapabilityFailed  = errors.New("capability call failed")
	ErrTicketAllocation  = errors.New("ticket allocation failed")
)

// MapHTTPStatus maps workflow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrCapabilityTimeout) {
		return http.StatusGatewayTimeout
	}
	if errors.Is(err, ErrCapabilityFailed) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// StageFailure attaches a stage error kind to an underlying error.
type StageFailure struct {
	Kind ErrorKind
	Err  error
}

func (f *StageFailure) Error() string {
	return string(f.Kind) + ": " + f.Err.Error()
}

func (f *StageFailure) Unwrap() error {
	return f.Err
}

func fail(kind ErrorKind, err error) error {
	return &StageFailure{Kind: kind, Err: err}
}
