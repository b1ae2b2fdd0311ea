package eventpublisher

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iho/moneyledger/internal/domain"
)

// LogPublisher is a simple publisher that logs events.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event *domain.TransactionPostedEvent) error {
	p.logger.Info().
		Str("event_type", event.EventType).
		Str("transaction_id", event.TransactionID).
		Str("account_id", event.AccountID).
		Str("kind", event.Kind).
		Str("amount", event.Amount).
		Str("balance", event.Balance).
		Time("event_at", event.EventAt).
		Msg("event published")

	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
