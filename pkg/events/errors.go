package events

import "errors"

// ErrPublish indicates an event could not be encoded or written.
var ErrPublish = errors.New("publish event")
