package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Pagination defaults for transaction listing.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MaxAccountsPerUser bounds how many accounts one user may open.
const MaxAccountsPerUser = 5

// ValidateAmount validates a posting amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateDateRange checks that an inclusive [from, to] range is well formed.
func ValidateDateRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return fmt.Errorf("%w: from=%s to=%s", ErrInvalidDateRange, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return nil
}

// ValidatePagination normalizes pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
