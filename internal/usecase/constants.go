package usecase

import "time"

const (
	// DefaultLockTimeout bounds how long a posting may wait for the account lock
	// and hold its database transaction open.
	DefaultLockTimeout = 5 * time.Second

	// SummaryCacheTTL is how long an account summary stays cached.
	SummaryCacheTTL = 30 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// InvalidateTimeout bounds the post-commit summary eviction.
	InvalidateTimeout = time.Second

	// PublishTimeout bounds the post-commit event hand-off.
	PublishTimeout = 3 * time.Second
)
