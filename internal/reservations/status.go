package reservations

import "errors"

var (
	// ErrCapacityExceeded carries the message signature clients match on
	ErrCapacityExceeded = errors.New("posti non disponibili")
	ErrEventInactive    = errors.New("event is not open for reservations")
	ErrTotalMismatch    = errors.New("total does not match the package price")
	ErrInvalidTables    = errors.New("tables must be at least 1")
	ErrMissingContact   = errors.New("name and phone are required")
)
