package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrReadOnly     = errors.New("data store is read-only")
	ErrInvalidInput = errors.New("invalid input")
)
