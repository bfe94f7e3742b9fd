package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	"github.com/lucasbravon/swapstay-backend/pkg/logger"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox/idempotency"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox/payloads"
)

type memoryStore struct {
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	str, _ := value.(string)
	m.data[key] = str
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	m.data[key] = str
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("test:%s:%s", scope, id)
}

func newTestConsumer(t *testing.T, handler Handler) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(newMemoryStore(), time.Hour)
	if err != nil {
		t.Fatalf("build idempotency manager: %v", err)
	}
	return &Consumer{
		decoders:    newDecoders(),
		idempotency: manager,
		handler:     handler,
		logg:        logger.New(logger.Options{ServiceName: "consumer-test", Output: io.Discard}),
	}
}

func encodeEvent(t *testing.T, eventID uuid.UUID, event payloads.CompletionStatusChangedEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

func completionAttributes() map[string]string {
	return map[string]string{"event_type": string(enums.EventCompletionStatusChanged)}
}

func TestConsumerProcessesEventOnce(t *testing.T) {
	var handled []payloads.CompletionStatusChangedEvent
	consumer := newTestConsumer(t, func(_ context.Context, event payloads.CompletionStatusChangedEvent) error {
		handled = append(handled, event)
		return nil
	})

	eventID := uuid.New()
	event := payloads.CompletionStatusChangedEvent{
		AuditID:    uuid.New(),
		ProposalID: uuid.New(),
		Kind:       enums.CompletionKindExchange,
		Status:     enums.CompletionAuditCompleted,
		SwapIDs:    []uuid.UUID{uuid.New(), uuid.New()},
	}
	payload := encodeEvent(t, eventID, event)

	result := consumer.process(context.Background(), completionAttributes(), "msg-1", payload)
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(handled) != 1 {
		t.Fatalf("expected one handled event, got %d", len(handled))
	}
	if handled[0].AuditID != event.AuditID {
		t.Fatalf("handler saw wrong audit %s", handled[0].AuditID)
	}
	if len(handled[0].SwapIDs) != 2 {
		t.Fatalf("swap ids lost in decode: %v", handled[0].SwapIDs)
	}

	// Redelivery of the same event id is acked without re-invoking the handler.
	result = consumer.process(context.Background(), completionAttributes(), "msg-1-redelivery", payload)
	if !result.ack {
		t.Fatalf("expected redelivery ack, got %+v", result)
	}
	if len(handled) != 1 {
		t.Fatalf("handler ran on redelivery")
	}
}

func TestConsumerSkipsUnrelatedEvents(t *testing.T) {
	consumer := newTestConsumer(t, func(context.Context, payloads.CompletionStatusChangedEvent) error {
		t.Fatal("handler should not run")
		return nil
	})

	result := consumer.process(context.Background(), map[string]string{"event_type": "booking.updated"}, "msg-2", []byte(`{}`))
	if !result.ack {
		t.Fatalf("unrelated events must be acked, got %+v", result)
	}
}

func TestConsumerAcksMalformedEnvelope(t *testing.T) {
	consumer := newTestConsumer(t, func(context.Context, payloads.CompletionStatusChangedEvent) error {
		t.Fatal("handler should not run")
		return nil
	})

	result := consumer.process(context.Background(), completionAttributes(), "msg-3", []byte(`not-json`))
	if !result.ack {
		t.Fatalf("malformed envelopes must be acked, got %+v", result)
	}
}

func TestConsumerNacksAndRetriesOnHandlerError(t *testing.T) {
	calls := 0
	consumer := newTestConsumer(t, func(context.Context, payloads.CompletionStatusChangedEvent) error {
		calls++
		if calls == 1 {
			return errors.New("downstream unavailable")
		}
		return nil
	})

	eventID := uuid.New()
	payload := encodeEvent(t, eventID, payloads.CompletionStatusChangedEvent{
		AuditID: uuid.New(),
		Status:  enums.CompletionAuditRolledBack,
	})

	result := consumer.process(context.Background(), completionAttributes(), "msg-4", payload)
	if !result.nack {
		t.Fatalf("handler failure must nack, got %+v", result)
	}

	// The idempotency mark was released, so redelivery reaches the handler.
	result = consumer.process(context.Background(), completionAttributes(), "msg-4-redelivery", payload)
	if !result.ack {
		t.Fatalf("expected ack on retry, got %+v", result)
	}
	if calls != 2 {
		t.Fatalf("expected handler retried once, got %d calls", calls)
	}
}

func TestConsumerNacksUnknownPayloadVersion(t *testing.T) {
	consumer := newTestConsumer(t, func(context.Context, payloads.CompletionStatusChangedEvent) error {
		t.Fatal("handler should not run")
		return nil
	})

	envelope := outbox.PayloadEnvelope{
		Version:    99,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	result := consumer.process(context.Background(), completionAttributes(), "msg-5", payload)
	if !result.nack {
		t.Fatalf("unknown versions must nack for operator attention, got %+v", result)
	}
}
