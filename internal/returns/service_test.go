package returns

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kasuwahq/kasuwa-backend/internal/orders"
	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox"
)

type fixture struct {
	db  *gorm.DB
	svc Service
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:returns_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Order{}, &models.OrderItem{}, &models.TrackingEntry{},
		&models.Return{}, &models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test"})
	emitter := outbox.NewService(outbox.NewRepository(db), logg)
	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db), orders.NewRepository(db), emitter, logg)
	if err != nil {
		t.Fatalf("returns service: %v", err)
	}
	return &fixture{db: db, svc: svc}
}

// seedDeliveredItem creates an order item sitting in Delivered since the
// given moment.
func (f *fixture) seedDeliveredItem(t *testing.T, buyerID, sellerID uuid.UUID, deliveredAt time.Time) models.OrderItem {
	t.Helper()
	order := models.Order{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		TotalAmount:   decimal.NewFromInt(500),
		Currency:      enums.CurrencyNGN,
		PaymentMethod: enums.PaymentMethodWallet,
		Items: []models.OrderItem{
			{
				ID:              uuid.New(),
				ProductID:       uuid.New(),
				SellerID:        sellerID,
				BuyerID:         buyerID,
				Name:            "Returned Thing",
				SelectedSize:    "M",
				Price:           decimal.NewFromInt(500),
				Qty:             1,
				DeliveryOption:  "standard",
				CurrentStatus:   enums.DeliveryStatusDelivered,
				CurrentStatusAt: deliveredAt,
			},
		},
	}
	if err := f.db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order.Items[0]
}

func (f *fixture) logReturn(t *testing.T, item models.OrderItem) *models.Return {
	t.Helper()
	ret, err := f.svc.Create(context.Background(), CreateInput{
		OrderItemID: item.ID,
		BuyerID:     item.BuyerID,
		Reason:      "wrong size",
		Refund:      true,
	})
	if err != nil {
		t.Fatalf("create return: %v", err)
	}
	return ret
}

func (f *fixture) itemStatus(t *testing.T, itemID uuid.UUID) enums.DeliveryStatus {
	t.Helper()
	var item models.OrderItem
	if err := f.db.First(&item, "id = ?", itemID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	return item.CurrentStatus
}

func TestCreateMirrorsItemStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	item := f.seedDeliveredItem(t, uuid.New(), uuid.New(), time.Now().UTC().Add(-24*time.Hour))

	ret := f.logReturn(t, item)
	if ret.Status != enums.ReturnStatusPending {
		t.Fatalf("expected Pending, got %s", ret.Status)
	}
	if ret.CurrentStatus != enums.DeliveryStatusReturnLogged {
		t.Fatalf("expected Return Logged, got %s", ret.CurrentStatus)
	}
	if got := f.itemStatus(t, item.ID); got != enums.DeliveryStatusReturnLogged {
		t.Fatalf("item must mirror Return Logged, got %s", got)
	}

	var events int64
	f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventReturnLogged).
		Count(&events)
	if events != 1 {
		t.Fatalf("expected one return_logged event, got %d", events)
	}
}

func TestCreateRejectsUndeliveredItem(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	item := f.seedDeliveredItem(t, uuid.New(), uuid.New(), time.Now().UTC())
	f.db.Model(&models.OrderItem{}).Where("id = ?", item.ID).
		Update("current_status", enums.DeliveryStatusInTransit)

	_, err := f.svc.Create(context.Background(), CreateInput{
		OrderItemID: item.ID,
		BuyerID:     item.BuyerID,
		Reason:      "changed my mind",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateRejectsExpiredWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	item := f.seedDeliveredItem(t, uuid.New(), uuid.New(), time.Now().UTC().Add(-4*24*time.Hour))

	_, err := f.svc.Create(context.Background(), CreateInput{
		OrderItemID: item.ID,
		BuyerID:     item.BuyerID,
		Reason:      "too late",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeReturnWindowExpired {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.itemStatus(t, item.ID); got != enums.DeliveryStatusDelivered {
		t.Fatalf("item must stay Delivered, got %s", got)
	}
}

func TestCreateRejectsSecondActiveReturn(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	item := f.seedDeliveredItem(t, uuid.New(), uuid.New(), time.Now().UTC())
	f.logReturn(t, item)

	_, err := f.svc.Create(context.Background(), CreateInput{
		OrderItemID: item.ID,
		BuyerID:     item.BuyerID,
		Reason:      "again",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRefundedReturnStillHoldsSlot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	item := f.seedDeliveredItem(t, uuid.New(), uuid.New(), time.Now().UTC())
	ret := f.logReturn(t, item)

	updates := map[string]any{
		"status":         enums.ReturnStatusApproved,
		"current_status": enums.DeliveryStatusRefunded,
	}
	if err := f.db.Model(&models.Return{}).Where("id = ?", ret.ID).Updates(updates).Error; err != nil {
		t.Fatalf("close out return: %v", err)
	}

	_, err := f.svc.Create(context.Background(), CreateInput{
		OrderItemID: item.ID,
		BuyerID:     item.BuyerID,
		Reason:      "again",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("refunded return must keep the slot, got %v", err)
	}
}

func TestCreateRejectsStranger(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	item := f.seedDeliveredItem(t, uuid.New(), uuid.New(), time.Now().UTC())

	_, err := f.svc.Create(context.Background(), CreateInput{
		OrderItemID: item.ID,
		BuyerID:     uuid.New(),
		Reason:      "not mine",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDecideApprove(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	item := f.seedDeliveredItem(t, uuid.New(), uuid.New(), time.Now().UTC())
	ret := f.logReturn(t, item)

	decided, err := f.svc.Decide(context.Background(), DecideInput{
		ReturnID: ret.ID,
		Actor:    Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin},
		Approve:  true,
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != enums.ReturnStatusApproved {
		t.Fatalf("expected Approved, got %s", decided.Status)
	}
	if decided.CurrentStatus != enums.DeliveryStatusReturnApproved {
		t.Fatalf("expected Return Approved, got %s", decided.CurrentStatus)
	}
	if got := f.itemStatus(t, item.ID); got != enums.DeliveryStatusReturnApproved {
		t.Fatalf("item must mirror Return Approved, got %s", got)
	}
}

func TestDecideDeclineNeedsReason(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	item := f.seedDeliveredItem(t, uuid.New(), uuid.New(), time.Now().UTC())
	ret := f.logReturn(t, item)
	admin := Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}

	_, err := f.svc.Decide(context.Background(), DecideInput{ReturnID: ret.ID, Actor: admin, Approve: false})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}

	reason := "item was used"
	decided, err := f.svc.Decide(context.Background(), DecideInput{
		ReturnID:    ret.ID,
		Actor:       admin,
		Approve:     false,
		AdminReason: &reason,
	})
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if decided.Status != enums.ReturnStatusDeclined {
		t.Fatalf("expected Declined, got %s", decided.Status)
	}
	if got := f.itemStatus(t, item.ID); got != enums.DeliveryStatusReturnDeclined {
		t.Fatalf("item must mirror Return Declined, got %s", got)
	}
}

func TestDecideRejectsNonAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	item := f.seedDeliveredItem(t, uuid.New(), uuid.New(), time.Now().UTC())
	ret := f.logReturn(t, item)

	_, err := f.svc.Decide(context.Background(), DecideInput{
		ReturnID: ret.ID,
		Actor:    Actor{UserID: item.SellerID, Role: enums.ActorRoleSeller},
		Approve:  true,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDecideIsFinal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	item := f.seedDeliveredItem(t, uuid.New(), uuid.New(), time.Now().UTC())
	ret := f.logReturn(t, item)
	admin := Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}

	if _, err := f.svc.Decide(context.Background(), DecideInput{ReturnID: ret.ID, Actor: admin, Approve: true}); err != nil {
		t.Fatalf("decide: %v", err)
	}
	_, err := f.svc.Decide(context.Background(), DecideInput{ReturnID: ret.ID, Actor: admin, Approve: true})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReturnTrackingFullLeg(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyerID := uuid.New()
	sellerID := uuid.New()
	item := f.seedDeliveredItem(t, buyerID, sellerID, time.Now().UTC())
	ret := f.logReturn(t, item)
	admin := Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}

	if _, err := f.svc.Decide(context.Background(), DecideInput{ReturnID: ret.ID, Actor: admin, Approve: true}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	trackingNo := "RTN-778"
	updated, err := f.svc.AdvanceTracking(context.Background(), AdvanceTrackingInput{
		ReturnID:       ret.ID,
		Actor:          Actor{UserID: buyerID, Role: enums.ActorRoleBuyer},
		NewStatus:      enums.DeliveryStatusReturnDispatched,
		TrackingNumber: &trackingNo,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if updated.TrackingNumber == nil || *updated.TrackingNumber != trackingNo {
		t.Fatalf("tracking number not stored: %+v", updated.TrackingNumber)
	}

	if _, err := f.svc.AdvanceTracking(context.Background(), AdvanceTrackingInput{
		ReturnID:  ret.ID,
		Actor:     Actor{UserID: buyerID, Role: enums.ActorRoleBuyer},
		NewStatus: enums.DeliveryStatusReturnDelivered,
	}); err != nil {
		t.Fatalf("delivered: %v", err)
	}

	// Only the seller can confirm the goods came back.
	_, err = f.svc.AdvanceTracking(context.Background(), AdvanceTrackingInput{
		ReturnID:  ret.ID,
		Actor:     Actor{UserID: buyerID, Role: enums.ActorRoleBuyer},
		NewStatus: enums.DeliveryStatusReturnReceived,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}

	final, err := f.svc.AdvanceTracking(context.Background(), AdvanceTrackingInput{
		ReturnID:  ret.ID,
		Actor:     Actor{UserID: sellerID, Role: enums.ActorRoleSeller},
		NewStatus: enums.DeliveryStatusReturnReceived,
	})
	if err != nil {
		t.Fatalf("received: %v", err)
	}
	if final.CurrentStatus != enums.DeliveryStatusReturnReceived {
		t.Fatalf("expected Return Received, got %s", final.CurrentStatus)
	}
	if got := f.itemStatus(t, item.ID); got != enums.DeliveryStatusReturnReceived {
		t.Fatalf("item must mirror Return Received, got %s", got)
	}
}

func TestReturnTrackingRequiresApproval(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	item := f.seedDeliveredItem(t, uuid.New(), uuid.New(), time.Now().UTC())
	ret := f.logReturn(t, item)

	_, err := f.svc.AdvanceTracking(context.Background(), AdvanceTrackingInput{
		ReturnID:  ret.ID,
		Actor:     Actor{UserID: item.BuyerID, Role: enums.ActorRoleBuyer},
		NewStatus: enums.DeliveryStatusReturnDispatched,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}
