package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kasuwahq/kasuwa-backend/pkg/config"
	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	if cfg.PaymentsTopic == "" {
		return nil, fmt.Errorf("payments topic is required")
	}
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("notification topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventOrderCreated,
			AggregateType:  enums.AggregateOrder,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.OrderCreatedEvent{} },
		},
		{
			EventType:      enums.EventOrderTrackingAdvanced,
			AggregateType:  enums.AggregateOrderItem,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.TrackingAdvancedEvent{} },
		},
		{
			EventType:      enums.EventReturnLogged,
			AggregateType:  enums.AggregateReturn,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.ReturnLoggedEvent{} },
		},
		{
			EventType:      enums.EventReturnDecided,
			AggregateType:  enums.AggregateReturn,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.ReturnDecidedEvent{} },
		},
		{
			EventType:      enums.EventReturnTrackingAdvanced,
			AggregateType:  enums.AggregateReturn,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.TrackingAdvancedEvent{} },
		},
	} {
		reg.register(desc)
	}

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventPayoutRequested,
			AggregateType:  enums.AggregatePayment,
			Topic:          cfg.PaymentsTopic,
			PayloadFactory: func() interface{} { return &payloads.PaymentRequestedEvent{} },
		},
		{
			EventType:      enums.EventRefundRequested,
			AggregateType:  enums.AggregatePayment,
			Topic:          cfg.PaymentsTopic,
			PayloadFactory: func() interface{} { return &payloads.PaymentRequestedEvent{} },
		},
		{
			EventType:      enums.EventPaymentApproved,
			AggregateType:  enums.AggregatePayment,
			Topic:          cfg.PaymentsTopic,
			PayloadFactory: func() interface{} { return &payloads.PaymentDecidedEvent{} },
		},
		{
			EventType:      enums.EventPaymentDeclined,
			AggregateType:  enums.AggregatePayment,
			Topic:          cfg.PaymentsTopic,
			PayloadFactory: func() interface{} { return &payloads.PaymentDecidedEvent{} },
		},
		{
			EventType:      enums.EventWalletCredited,
			AggregateType:  enums.AggregateWallet,
			Topic:          cfg.PaymentsTopic,
			PayloadFactory: func() interface{} { return &payloads.WalletMovementEvent{} },
		},
		{
			EventType:      enums.EventWalletDebited,
			AggregateType:  enums.AggregateWallet,
			Topic:          cfg.PaymentsTopic,
			PayloadFactory: func() interface{} { return &payloads.WalletMovementEvent{} },
		},
	} {
		reg.register(desc)
	}

	reg.register(EventDescriptor{
		EventType:      enums.EventOrderEscalationNudge,
		AggregateType:  enums.AggregateOrderItem,
		Topic:          cfg.NotificationTopic,
		PayloadFactory: func() interface{} { return &payloads.EscalationNudgeEvent{} },
	})

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
