package tracer

import "errors"

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrConnected    = errors.New("session already connected")
	ErrNotConnected = errors.New("session not connected")
	ErrBadPayload   = errors.New("transmit payload must be 1..8 bytes")
	ErrBadInterval  = errors.New("transmit interval must be positive")
)
