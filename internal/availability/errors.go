package availability

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTotalBelowBooked = errors.New("total below booked tables")
	ErrInvalidTotals    = errors.New("invalid totals")
)

// BelowBookedError lists every package that would drop under its sold tables
type BelowBookedError struct {
	Violations []FloorViolation
}

func (e *BelowBookedError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %d < %d", v.Package, v.Proposed, v.Booked))
	}
	return "total below booked tables (" + strings.Join(parts, ", ") + ")"
}

func (e *BelowBookedError) Is(target error) bool {
	return target == ErrTotalBelowBooked
}
