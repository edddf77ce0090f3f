package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/kasuwahq/kasuwa-backend/internal/notifications"
	"github.com/kasuwahq/kasuwa-backend/internal/orders"
	"github.com/kasuwahq/kasuwa-backend/internal/tracking"
	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// EscalationJobParams configure the stuck-delivery sweep.
type EscalationJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Orders        orders.Repository
	Notifications notifications.Repository
	Outbox        outboxEmitter
}

// NewEscalationJob builds the cron job that nudges the responsible party when
// an order item overstays the deadline of its current delivery status.
func NewEscalationJob(params EscalationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &escalationJob{
		logg:          params.Logger,
		db:            params.DB,
		orders:        params.Orders,
		notifications: params.Notifications,
		outbox:        params.Outbox,
		now:           time.Now,
	}, nil
}

type escalationJob struct {
	logg          *logger.Logger
	db            txRunner
	orders        orders.Repository
	notifications notifications.Repository
	outbox        outboxEmitter
	now           func() time.Time
}

func (j *escalationJob) Name() string { return "tracking-escalation" }

func (j *escalationJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs error
	nudged := 0
	for _, status := range tracking.EscalatableStatuses() {
		rule, ok := tracking.RuleFor(status)
		if !ok || rule.SLADays <= 0 {
			continue
		}
		cutoff := now.Add(-time.Duration(rule.SLADays) * 24 * time.Hour)
		items, err := j.orders.FindStuckItems(ctx, status, cutoff)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("find stuck %s items: %w", status, err))
			continue
		}
		for _, item := range items {
			sent, err := j.nudge(ctx, item, rule, now)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("nudge item %s: %w", item.ID, err))
				continue
			}
			if sent {
				nudged++
			}
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"items_nudged": nudged,
	})
	j.logg.Info(logCtx, "tracking escalation sweep complete")
	return errs
}

// nudge stamps the item, records the notification, and emits the outbox event
// in one transaction. A lost stamp race means another sweep already nudged, so
// the item is skipped without error.
func (j *escalationJob) nudge(ctx context.Context, item models.OrderItem, rule tracking.Rule, now time.Time) (bool, error) {
	notifyUserID := item.SellerID
	if rule.NotifyRole == enums.ActorRoleBuyer {
		notifyUserID = item.BuyerID
	}
	deadline := item.CurrentStatusAt.Add(time.Duration(rule.SLADays) * 24 * time.Hour)

	sent := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		stamped, err := j.orders.WithTx(tx).StampLastNotification(ctx, item.ID, item.CurrentStatus, now)
		if err != nil {
			return err
		}
		if !stamped {
			return nil
		}
		notification := &models.Notification{
			ID:     uuid.New(),
			UserID: notifyUserID,
			Type:   enums.NotificationTypeEscalation,
			Title:  "Order item needs attention",
			Message: fmt.Sprintf("%s has been in status %q since %s",
				item.Name, item.CurrentStatus, item.CurrentStatusAt.Format(time.RFC3339)),
		}
		if err := j.notifications.WithTx(tx).Create(ctx, notification); err != nil {
			return err
		}
		if err := j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderEscalationNudge,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Actor:         &outbox.ActorRef{Role: string(enums.ActorRoleSystem)},
			Data: payloads.EscalationNudgeEvent{
				OrderID:       item.OrderID,
				OrderItemID:   item.ID,
				CurrentStatus: item.CurrentStatus,
				StatusSince:   item.CurrentStatusAt,
				Deadline:      deadline,
				NotifyUserID:  notifyUserID,
				NotifyRole:    rule.NotifyRole,
			},
			OccurredAt: now,
		}); err != nil {
			return err
		}
		sent = true
		return nil
	})
	return sent, err
}
