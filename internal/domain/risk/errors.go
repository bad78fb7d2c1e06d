package risk

import "errors"

// Sentinel errors returned by the engine.
var (
	ErrUnknownVariant     = errors.New("unknown risk variant")
	ErrUnknownInputPolicy = errors.New("unknown input policy")
	ErrInputOutOfRange    = errors.New("input out of range")
)
