package repository

import (
	"errors"
	"fmt"
)

// Error kinds returned across the UserRepository boundary.
// Backends translate their native failures into exactly one of these before returning.
var (
	ErrAlreadyExists = errors.New("user already exists")
	ErrDoesNotExist  = errors.New("user does not exist")
	ErrInvalidID     = errors.New("invalid user id")
	ErrLock          = errors.New("repository lock failure")
	ErrStorage       = errors.New("repository storage failure")
)

// Kind labels used in logs and metrics.
const (
	KindOK            = "ok"
	KindAlreadyExists = "already_exists"
	KindDoesNotExist  = "does_not_exist"
	KindInvalidID     = "invalid_id"
	KindLock          = "lock_error"
	KindStorage       = "storage_error"
	KindUnknown       = "unknown"
)

// Kind returns the label of the taxonomy kind err belongs to.
func Kind(err error) string {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrDoesNotExist):
		return KindDoesNotExist
	case errors.Is(err, ErrInvalidID):
		return KindInvalidID
	case errors.Is(err, ErrLock):
		return KindLock
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindUnknown
	}
}

// IsFault reports whether err signals an infrastructure failure rather than a data-consistency fact.
func IsFault(err error) bool {
	return errors.Is(err, ErrLock) || errors.Is(err, ErrStorage)
}

// NilUserError reports a nil *model.User handed to a write operation. It is classified as
// ErrStorage since the taxonomy has no caller-error kind.
func NilUserError(op string) error {
	return fmt.Errorf("%w: %s: nil user", ErrStorage, op)
}
