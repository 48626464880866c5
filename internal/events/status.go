package events

import "errors"

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidDate   = errors.New("date must be YYYY-MM-DD")
	ErrTitleRequired = errors.New("title is required")
)
