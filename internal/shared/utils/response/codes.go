package response

// Error codes shared with API clients
const (
	CodeInvalidRequest   = "invalid_request"
	CodeValidation       = "validation_failed"
	CodeNotFound         = "not_found"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeCapacityExceeded = "capacity_exceeded"
	CodeEventInactive    = "event_inactive"
	CodeTotalMismatch    = "total_mismatch"
	CodeTotalBelowBooked = "total_below_booked"
	CodeConflict         = "conflict"
	CodeRateLimited      = "rate_limited"
	CodeInternal         = "internal_error"
)
