package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	CodeCapacityExceeded = "capacity_exceeded"
	CodeUnauthorized     = "unauthorized"
	CodeNetwork          = "network_error"
	CodeDecode           = "decode_error"
	CodeInternal         = "client_panic"
)

// capacitySignature is the backend's message when a package has no tables left
const capacitySignature = "posti non disponibili"

// Error is a failed backend call. Status is 0 when the request never got an answer.
type Error struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CapacityExceeded reports whether the backend refused for lack of tables
func (e *Error) CapacityExceeded() bool {
	if e == nil {
		return false
	}
	return e.Code == CodeCapacityExceeded ||
		strings.Contains(strings.ToLower(e.Message), capacitySignature)
}

// Unauthorized reports a missing, expired or revoked session
func (e *Error) Unauthorized() bool {
	return e != nil && (e.Status == http.StatusUnauthorized || e.Code == CodeUnauthorized)
}

// Result is what every client call returns: either Data or Err, never a panic
type Result[T any] struct {
	OK   bool
	Data T
	Err  *Error
}

// Unwrap returns the data and the error as a plain Go pair
func (r Result[T]) Unwrap() (T, error) {
	if r.OK {
		return r.Data, nil
	}
	return r.Data, r.Err
}

func success[T any](v T) Result[T] {
	return Result[T]{OK: true, Data: v}
}

func failure[T any](err *Error) Result[T] {
	return Result[T]{Err: err}
}
