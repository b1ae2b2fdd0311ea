package eventpublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/iho/moneyledger/internal/domain"
)

// DefaultTopic receives posting events when no topic is configured.
const DefaultTopic = "ledger.transactions.posted"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes posting events to a Kafka topic keyed by account ID,
// so every account's events land on one partition in posting order.
type KafkaPublisher struct {
	writer  messageWriter
	retrier *Retrier
	logger  zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 2 * time.Second,
		BatchTimeout: 10 * time.Millisecond,
	}

	return newKafkaPublisher(writer, NewRetrier(logger), logger)
}

func newKafkaPublisher(writer messageWriter, retrier *Retrier, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  writer,
		retrier: retrier,
		logger:  logger.With().Str("component", "kafka_publisher").Logger(),
	}
}

// Publish writes one event, retrying transient broker errors.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.TransactionPostedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AccountID),
		Value: payload,
		Time:  event.EventAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	err = p.retrier.Retry(ctx, func() error {
		return p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s for account %s: %w", event.EventType, event.AccountID, err)
	}

	p.logger.Debug().
		Str("transaction_id", event.TransactionID).
		Str("account_id", event.AccountID).
		Msg("event published")

	return nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
