package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrOrderNotFound      = errors.New("order_not_found")
	ErrStrategyNotFound   = errors.New("strategy_not_found")
	ErrInstrumentNotFound = errors.New("instrument_not_found")
	ErrOrderNotFillable   = errors.New("order_not_fillable")
	ErrInvalidFill        = errors.New("invalid_fill")
)

// ValidationError represents an input validation failure. It is raised
// synchronously at construction time and is not recoverable inline.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
