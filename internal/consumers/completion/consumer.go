package completion

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	"github.com/lucasbravon/swapstay-backend/pkg/logger"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox/idempotency"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox/payloads"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox/registry"
)

const completionConsumer = "completion-status"

// Handler reacts to a deduplicated completion status change. Returning an
// error nacks the message so Pub/Sub redelivers it.
type Handler func(ctx context.Context, event payloads.CompletionStatusChangedEvent) error

// Consumer drains completion status events from Pub/Sub. Delivery is
// at-least-once; the idempotency manager collapses redeliveries so the
// handler sees each event id once.
type Consumer struct {
	subscription *pubsub.Subscriber
	decoders     *registry.DecoderRegistry
	idempotency  *idempotency.Manager
	handler      Handler
	logg         *logger.Logger
}

func NewConsumer(subscription *pubsub.Subscriber, manager *idempotency.Manager, handler Handler, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("completion subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if handler == nil {
		handler = func(context.Context, payloads.CompletionStatusChangedEvent) error { return nil }
	}

	return &Consumer{
		subscription: subscription,
		decoders:     newDecoders(),
		idempotency:  manager,
		handler:      handler,
		logg:         logg,
	}, nil
}

func newDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventCompletionStatusChanged, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.CompletionStatusChangedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.Attributes, msg.ID, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, attributes map[string]string, messageID string, data []byte) processResult {
	eventType := attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventCompletionStatusChanged) {
		c.logg.Info(logCtx, "skipping unrelated event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, completionConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	decoded, err := c.decoders.Decode(enums.EventCompletionStatusChanged, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		_ = c.idempotency.Delete(ctx, completionConsumer, eventID)
		return processResult{nack: true}
	}
	event, ok := decoded.(*payloads.CompletionStatusChangedEvent)
	if !ok {
		c.logg.Error(logCtx, "unexpected payload type", fmt.Errorf("got %T", decoded))
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"audit_id":    event.AuditID.String(),
		"proposal_id": event.ProposalID.String(),
		"status":      event.Status,
	})
	if event.RequiresManualIntervention {
		c.logg.Warn(logCtx, "completion flagged for manual intervention")
	}

	if err := c.handler(ctx, *event); err != nil {
		c.logg.Error(logCtx, "completion event handling failed", err)
		_ = c.idempotency.Delete(ctx, completionConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "completion status change consumed")
	return processResult{ack: true}
}
