package eventpublisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/moneyledger/internal/domain"
)

type stubWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	failures []error
	closed   bool
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.failures) > 0 {
		err := w.failures[0]
		w.failures = w.failures[1:]
		return err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.closed = true
	return nil
}

func testEvent() *domain.TransactionPostedEvent {
	desc := "salary"
	tx := &domain.Transaction{
		ID:          "tx-1",
		AccountID:   "acc-1",
		Kind:        domain.TransactionKindCredit,
		Amount:      decimal.RequireFromString("100.50"),
		Description: &desc,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	return domain.NewTransactionPostedEvent(tx, decimal.RequireFromString("250.50"))
}

func TestKafkaPublisherWritesKeyedMessage(t *testing.T) {
	writer := &stubWriter{}
	pub := newKafkaPublisher(writer, fastRetrier(), zerolog.Nop())

	require.NoError(t, pub.Publish(context.Background(), testEvent()))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "acc-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, domain.EventTypeTransactionPosted, string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "100.5", decoded["amount"])
	assert.Equal(t, "250.5", decoded["balance"])
	assert.Equal(t, "CREDIT", decoded["kind"])
	assert.Equal(t, "salary", decoded["description"])
}

func TestKafkaPublisherRetriesTransientFailure(t *testing.T) {
	writer := &stubWriter{failures: []error{kafka.LeaderNotAvailable}}
	pub := newKafkaPublisher(writer, fastRetrier(), zerolog.Nop())

	require.NoError(t, pub.Publish(context.Background(), testEvent()))
	assert.Len(t, writer.messages, 1)
}

func TestKafkaPublisherReturnsPermanentFailure(t *testing.T) {
	writer := &stubWriter{failures: []error{kafka.TopicAuthorizationFailed}}
	pub := newKafkaPublisher(writer, fastRetrier(), zerolog.Nop())

	err := pub.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.True(t, errors.Is(err, kafka.TopicAuthorizationFailed))
	assert.Empty(t, writer.messages)
}

func TestKafkaPublisherClose(t *testing.T) {
	writer := &stubWriter{}
	pub := newKafkaPublisher(writer, fastRetrier(), zerolog.Nop())

	require.NoError(t, pub.Close())
	assert.True(t, writer.closed)
}

func TestLogPublisherLogsEvent(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogPublisher(zerolog.New(&buf))

	require.NoError(t, pub.Publish(context.Background(), testEvent()))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "event published", line["message"])
	assert.Equal(t, "tx-1", line["transaction_id"])
	assert.Equal(t, "acc-1", line["account_id"])
	assert.Equal(t, "100.5", line["amount"])
}
