package syncerror

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrTransient     ErrorCode = "TRANSIENT"
	ErrMalformed     ErrorCode = "MALFORMED"
	ErrInvalidRecord ErrorCode = "INVALID_RECORD"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrConflict      ErrorCode = "CONFLICT"
	ErrInternal      ErrorCode = "INTERNAL"
)

// SyncError carries a pipeline error code alongside the message surfaced
// to the operator. Details holds the underlying cause.
type SyncError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e SyncError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e SyncError) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

func NewSyncError(code ErrorCode, message string, details interface{}) SyncError {
	logrus.Error(details)
	return SyncError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Retryable reports whether an error should be retried by the fetch client.
// Only transient transport failures qualify; everything else propagates.
func Retryable(err error) bool {
	var syncErr SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Code == ErrTransient
	}
	return false
}
