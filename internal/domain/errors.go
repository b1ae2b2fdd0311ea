package domain

import (
	"context"
	"errors"
)

var (
	// Account errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountLimitReached = errors.New("account limit reached for this user")

	// Posting errors
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidKind       = errors.New("transaction kind must be CREDIT or DEBIT")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrLockTimeout       = errors.New("timed out waiting for account lock")

	// Query errors
	ErrInvalidDateRange = errors.New("from must not be after to")
)

// Kind classifies an error for transport mapping and metric labels.
type Kind string

const (
	KindInvalidArgument   Kind = "invalid_argument"
	KindNotFound          Kind = "not_found"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindBusy              Kind = "busy"
	KindLimitReached      Kind = "limit_reached"
	KindStoreFailure      Kind = "store_failure"
)

// ErrorKind returns the Kind of err. Unknown errors are store failures.
func ErrorKind(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidKind),
		errors.Is(err, ErrInvalidDateRange):
		return KindInvalidArgument
	case errors.Is(err, ErrAccountNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindBusy
	case errors.Is(err, ErrAccountLimitReached):
		return KindLimitReached
	default:
		return KindStoreFailure
	}
}
