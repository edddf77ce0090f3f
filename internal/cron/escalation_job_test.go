package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kasuwahq/kasuwa-backend/internal/notifications"
	"github.com/kasuwahq/kasuwa-backend/internal/orders"
	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox"
)

type escalationFixture struct {
	db  *gorm.DB
	job *escalationJob
}

type escalationTxRunner struct {
	db *gorm.DB
}

func (r escalationTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newEscalationFixture(t *testing.T) *escalationFixture {
	t.Helper()
	dsn := "file:cron_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Order{}, &models.OrderItem{}, &models.TrackingEntry{},
		&models.Notification{}, &models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test"})
	jobIface, err := NewEscalationJob(EscalationJobParams{
		Logger:        logg,
		DB:            escalationTxRunner{db: db},
		Orders:        orders.NewRepository(db),
		Notifications: notifications.NewRepository(db),
		Outbox:        outbox.NewService(outbox.NewRepository(db), logg),
	})
	if err != nil {
		t.Fatalf("NewEscalationJob: %v", err)
	}
	job, ok := jobIface.(*escalationJob)
	if !ok {
		t.Fatalf("expected escalationJob, got %T", jobIface)
	}
	return &escalationFixture{db: db, job: job}
}

func (f *escalationFixture) seedDispatchedItem(t *testing.T, statusAt time.Time) models.OrderItem {
	t.Helper()
	order := models.Order{
		ID:            uuid.New(),
		BuyerID:       uuid.New(),
		TotalAmount:   decimal.NewFromInt(1000),
		Currency:      enums.CurrencyNGN,
		PaymentMethod: enums.PaymentMethodWallet,
	}
	item := models.OrderItem{
		ID:              uuid.New(),
		OrderID:         order.ID,
		ProductID:       uuid.New(),
		SellerID:        uuid.New(),
		BuyerID:         order.BuyerID,
		Name:            "Leather Satchel",
		SelectedSize:    "M",
		Price:           decimal.NewFromInt(1000),
		Qty:             1,
		DeliveryOption:  "standard",
		CurrentStatus:   enums.DeliveryStatusDispatched,
		CurrentStatusAt: statusAt,
	}
	if err := f.db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if err := f.db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

func (f *escalationFixture) runAt(t *testing.T, now time.Time) {
	t.Helper()
	f.job.now = func() time.Time { return now }
	if err := f.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func (f *escalationFixture) countNotifications(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&models.Notification{}).Count(&count).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return count
}

func TestEscalationJobNudgesOnceAfterDeadline(t *testing.T) {
	t.Parallel()
	f := newEscalationFixture(t)
	statusAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := f.seedDispatchedItem(t, statusAt)

	// Dispatched carries a seven day deadline; day six is still on time.
	f.runAt(t, statusAt.Add(6*24*time.Hour))
	if got := f.countNotifications(t); got != 0 {
		t.Fatalf("expected no notifications before the deadline, got %d", got)
	}

	f.runAt(t, statusAt.Add(8*24*time.Hour))
	if got := f.countNotifications(t); got != 1 {
		t.Fatalf("expected one notification after the deadline, got %d", got)
	}

	var notification models.Notification
	if err := f.db.First(&notification).Error; err != nil {
		t.Fatalf("load notification: %v", err)
	}
	if notification.UserID != item.SellerID {
		t.Fatalf("expected the seller to be nudged, got user %s", notification.UserID)
	}
	if notification.Type != enums.NotificationTypeEscalation {
		t.Fatalf("unexpected notification type %s", notification.Type)
	}

	var stamped models.OrderItem
	if err := f.db.First(&stamped, "id = ?", item.ID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if stamped.LastNotificationAt == nil {
		t.Fatal("expected last notification timestamp to be stamped")
	}

	var events int64
	if err := f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventOrderEscalationNudge).
		Count(&events).Error; err != nil {
		t.Fatalf("count outbox events: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected one escalation outbox event, got %d", events)
	}

	// A later sweep must not nudge again for the same status entry.
	f.runAt(t, statusAt.Add(9*24*time.Hour))
	if got := f.countNotifications(t); got != 1 {
		t.Fatalf("expected no repeat nudge, got %d notifications", got)
	}
}

func TestEscalationJobNudgesAgainAfterStatusChange(t *testing.T) {
	t.Parallel()
	f := newEscalationFixture(t)
	statusAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := f.seedDispatchedItem(t, statusAt)

	f.runAt(t, statusAt.Add(8*24*time.Hour))
	if got := f.countNotifications(t); got != 1 {
		t.Fatalf("expected one notification, got %d", got)
	}

	// The item moves on and then overstays the new status too.
	movedAt := statusAt.Add(9 * 24 * time.Hour)
	if err := f.db.Model(&models.OrderItem{}).Where("id = ?", item.ID).Updates(map[string]any{
		"current_status":    enums.DeliveryStatusInTransit,
		"current_status_at": movedAt,
	}).Error; err != nil {
		t.Fatalf("advance item: %v", err)
	}

	// In Transit allows fourteen days before escalation.
	f.runAt(t, movedAt.Add(15*24*time.Hour))
	if got := f.countNotifications(t); got != 2 {
		t.Fatalf("expected a fresh nudge for the new status, got %d notifications", got)
	}
}

func TestEscalationJobNotifiesBuyerForDeliveredItems(t *testing.T) {
	t.Parallel()
	f := newEscalationFixture(t)
	statusAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := f.seedDispatchedItem(t, statusAt)
	if err := f.db.Model(&models.OrderItem{}).Where("id = ?", item.ID).
		Update("current_status", enums.DeliveryStatusDelivered).Error; err != nil {
		t.Fatalf("mark delivered: %v", err)
	}

	f.runAt(t, statusAt.Add(8*24*time.Hour))

	var notification models.Notification
	if err := f.db.First(&notification).Error; err != nil {
		t.Fatalf("load notification: %v", err)
	}
	if notification.UserID != item.BuyerID {
		t.Fatalf("expected the buyer to be nudged, got user %s", notification.UserID)
	}
}
