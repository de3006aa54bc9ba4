package tickets

import (
	"errors"
	"net/http"
)

// Domain errors for ticket operations.
var (
	ErrNotFound            = errors.New("ticket not found")
	ErrInvalidID           = errors.New("ticket id must be six digits between 100000 and 999999")
	ErrInvalidStatus       = errors.New("status must be unresolved, in_progress, or resolved")
	ErrInvalidTransition   = errors.New("ticket status may only move forward")
	ErrAllocationExhausted = errors.New("ticket id allocation exhausted")
	ErrInvalidCommand      = errors.New("customer id, customer name, and message are required")

	errCollision = errors.New("ticket id collision")
)

// MapHTTPStatus maps ticket domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidTransition) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidStatus) || errors.Is(err, ErrInvalidID) || errors.Is(err, ErrInvalidCommand) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
