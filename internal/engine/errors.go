package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/brutalist/internal/domain"
)

// ErrorCode categorizes intent failures.
type ErrorCode string

const (
	// ErrCodeRemoteWrite means the remote write failed and nothing was applied.
	ErrCodeRemoteWrite ErrorCode = "REMOTE_WRITE_FAILED"

	// ErrCodeNotFound means the intent referenced an unknown entity.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInvalid means the intent's payload was rejected before any write.
	ErrCodeInvalid ErrorCode = "INVALID_INTENT"
)

// Error is returned by intents that were not applied.
type Error struct {
	Code   ErrorCode
	Op     string
	Entity string
	ID     string
	Err    error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s %s %s: %v", e.Code, e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Code, e.Op, e.Entity, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRemoteWriteError reports whether err is a failed remote write.
func IsRemoteWriteError(err error) bool {
	return hasCode(err, ErrCodeRemoteWrite)
}

// IsNotFound reports whether err refers to an unknown entity.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound) || errors.Is(err, domain.ErrNotFound)
}

// IsInvalid reports whether err is a rejected payload.
func IsInvalid(err error) bool {
	return hasCode(err, ErrCodeInvalid) || domain.IsValidation(err)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func newRemoteWriteError(op, entity, id string, err error) *Error {
	return &Error{Code: ErrCodeRemoteWrite, Op: op, Entity: entity, ID: id, Err: err}
}

func newNotFoundError(op, entity, id string) *Error {
	return &Error{Code: ErrCodeNotFound, Op: op, Entity: entity, ID: id, Err: domain.ErrNotFound}
}

func newInvalidError(op, entity, id string, err error) *Error {
	return &Error{Code: ErrCodeInvalid, Op: op, Entity: entity, ID: id, Err: err}
}
