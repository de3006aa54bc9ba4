package messages

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/concierge/internal/workflow"
)

// ErrBusy indicates no workflow slot became free before the request ended.
var ErrBusy = errors.New("workflow capacity exhausted")

// MapHTTPStatus maps message processing errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrBusy) {
		return http.StatusServiceUnavailable
	}
	return workflow.MapHTTPStatus(err)
}
