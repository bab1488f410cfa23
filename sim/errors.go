package sim

import "errors"

// Configuration errors. Every constructor failure wraps one of these so callers
// can classify it with errors.Is.
var (
	ErrInvalidSchedule = errors.New("invalid probability schedule")
	ErrInvalidCatalog  = errors.New("invalid storm catalog")
	ErrInvalidConfig   = errors.New("invalid lifecycle configuration")
)
