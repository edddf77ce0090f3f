package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox/idempotency"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and fans them out as in-app notifications.
// Escalation nudges are written transactionally by the cron sweep and are
// skipped here.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the notification fan-out consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
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

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !handledEventTypes[eventType] {
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventType, envelope.Data); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

var handledEventTypes = map[enums.OutboxEventType]bool{
	enums.EventOrderCreated:           true,
	enums.EventOrderTrackingAdvanced:  true,
	enums.EventReturnTrackingAdvanced: true,
	enums.EventReturnLogged:           true,
	enums.EventReturnDecided:          true,
	enums.EventPayoutRequested:        true,
	enums.EventRefundRequested:        true,
	enums.EventPaymentApproved:        true,
	enums.EventPaymentDeclined:        true,
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) error {
	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.notifySellersOfOrder(ctx, payload)
	case enums.EventOrderTrackingAdvanced, enums.EventReturnTrackingAdvanced:
		var payload payloads.TrackingAdvancedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.notifyTrackingAdvance(ctx, payload)
	case enums.EventReturnLogged:
		var payload payloads.ReturnLoggedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.create(ctx, payload.SellerID, enums.NotificationTypeReturnAlert,
			"Return requested",
			fmt.Sprintf("A buyer logged a return: %s", payload.Reason),
			fmt.Sprintf("/orders/%s/items/%s/return", payload.OrderID, payload.OrderItemID))
	case enums.EventReturnDecided:
		var payload payloads.ReturnDecidedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.notifyReturnDecision(ctx, payload)
	case enums.EventPayoutRequested, enums.EventRefundRequested:
		var payload payloads.PaymentRequestedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.create(ctx, payload.PayeeID, enums.NotificationTypePaymentAlert,
			"Payment requested",
			fmt.Sprintf("A payment of %s %s has been submitted for review.", payload.Currency, payload.Amount),
			fmt.Sprintf("/payments/%s", payload.PaymentID))
	case enums.EventPaymentApproved, enums.EventPaymentDeclined:
		var payload payloads.PaymentDecidedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.notifyPaymentDecision(ctx, payload)
	default:
		return nil
	}
}

func (c *Consumer) notifySellersOfOrder(ctx context.Context, payload payloads.OrderCreatedEvent) error {
	seen := map[uuid.UUID]bool{}
	for _, sellerID := range payload.SellerIDs {
		if sellerID == uuid.Nil || seen[sellerID] {
			continue
		}
		seen[sellerID] = true
		err := c.create(ctx, sellerID, enums.NotificationTypeOrderAlert,
			"New order received",
			"You have items in a new order awaiting dispatch.",
			fmt.Sprintf("/orders/%s", payload.OrderID))
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) notifyTrackingAdvance(ctx context.Context, payload payloads.TrackingAdvancedEvent) error {
	if payload.NotifyUserID == uuid.Nil {
		return nil
	}
	notificationType := enums.NotificationTypeOrderAlert
	if payload.NewStatus.IsReturnBranch() {
		notificationType = enums.NotificationTypeReturnAlert
	}
	return c.create(ctx, payload.NotifyUserID, notificationType,
		"Delivery status updated",
		fmt.Sprintf("An order item moved from %q to %q.", payload.PreviousStatus, payload.NewStatus),
		fmt.Sprintf("/orders/%s/items/%s", payload.OrderID, payload.OrderItemID))
}

func (c *Consumer) notifyReturnDecision(ctx context.Context, payload payloads.ReturnDecidedEvent) error {
	title := "Return approved"
	message := "Your return was approved. Dispatch the item back to the seller."
	if payload.Decision == enums.ReturnStatusDeclined {
		title = "Return declined"
		message = "Your return request was declined."
		if payload.AdminReason != nil && *payload.AdminReason != "" {
			message = fmt.Sprintf("Your return request was declined: %s", *payload.AdminReason)
		}
	}
	link := fmt.Sprintf("/orders/%s/items/%s/return", payload.OrderID, payload.OrderItemID)
	if err := c.create(ctx, payload.BuyerID, enums.NotificationTypeReturnAlert, title, message, link); err != nil {
		return err
	}
	sellerMessage := fmt.Sprintf("A return on one of your items was %s.", payload.Decision)
	return c.create(ctx, payload.SellerID, enums.NotificationTypeReturnAlert, "Return decision", sellerMessage, link)
}

func (c *Consumer) notifyPaymentDecision(ctx context.Context, payload payloads.PaymentDecidedEvent) error {
	title := "Payment approved"
	message := fmt.Sprintf("Your payment of %s %s was approved.", payload.Currency, payload.Amount)
	if payload.Status == enums.PaymentStatusDeclined {
		title = "Payment declined"
		message = fmt.Sprintf("Your payment of %s %s was declined.", payload.Currency, payload.Amount)
	}
	return c.create(ctx, payload.PayeeID, enums.NotificationTypePaymentAlert, title, message,
		fmt.Sprintf("/payments/%s", payload.PaymentID))
}

func (c *Consumer) create(ctx context.Context, userID uuid.UUID, notificationType enums.NotificationType, title, message, link string) error {
	return c.repo.Create(ctx, &models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    notificationType,
		Title:   title,
		Message: message,
		Link:    &link,
	})
}
