package interactions

import (
	"errors"
	"net/http"
)

// Domain errors for interaction log operations.
var (
	ErrNotFound        = errors.New("interaction not found")
	ErrLogWrite        = errors.New("interaction log write failed")
	ErrArchive         = errors.New("interaction archive failed")
	ErrArchiveDisabled = errors.New("interaction archive disabled")
	ErrInvalidFilter   = errors.New("invalid interaction filter")
)

// MapHTTPStatus maps interaction domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrArchiveDisabled) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidFilter) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
