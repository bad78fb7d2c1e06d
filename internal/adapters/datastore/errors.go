package datastore

import "errors"

// Sentinel kinds for data store errors.
var (
	ErrNotFound       = errors.New("record not found")
	ErrInvalidRecord  = errors.New("invalid record")
	ErrUnavailable    = errors.New("data store unavailable")
	ErrUnknownBackend = errors.New("unknown data store backend")
)
