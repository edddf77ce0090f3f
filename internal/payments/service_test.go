package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kasuwahq/kasuwa-backend/internal/orders"
	"github.com/kasuwahq/kasuwa-backend/internal/returns"
	"github.com/kasuwahq/kasuwa-backend/internal/wallet"
	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox"
)

type fixture struct {
	db      *gorm.DB
	svc     Service
	wallets wallet.Service
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{}, &models.ProductSize{},
		&models.Order{}, &models.OrderItem{}, &models.TrackingEntry{},
		&models.Return{}, &models.Payment{},
		&models.Wallet{}, &models.WalletTransaction{}, &models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	walletSvc, err := wallet.NewService(wallet.NewRepository(db))
	if err != nil {
		t.Fatalf("wallet service: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test"})
	emitter := outbox.NewService(outbox.NewRepository(db), logg)
	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db),
		orders.NewRepository(db), returns.NewRepository(db), walletSvc, emitter, logg)
	if err != nil {
		t.Fatalf("payments service: %v", err)
	}
	return &fixture{db: db, svc: svc, wallets: walletSvc}
}

func (f *fixture) seedItem(t *testing.T, buyerID, sellerID uuid.UUID, status enums.DeliveryStatus, price int64) models.OrderItem {
	t.Helper()
	order := models.Order{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		TotalAmount:   decimal.NewFromInt(price),
		Currency:      enums.CurrencyNGN,
		PaymentMethod: enums.PaymentMethodWallet,
		Items: []models.OrderItem{
			{
				ID:              uuid.New(),
				ProductID:       uuid.New(),
				SellerID:        sellerID,
				BuyerID:         buyerID,
				Name:            "Settled Thing",
				SelectedSize:    "M",
				Price:           decimal.NewFromInt(price),
				Qty:             1,
				DeliveryOption:  "standard",
				CurrentStatus:   status,
				CurrentStatusAt: time.Now().UTC(),
			},
		},
	}
	if err := f.db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order.Items[0]
}

func (f *fixture) seedReceivedReturn(t *testing.T, item models.OrderItem) models.Return {
	t.Helper()
	ret := models.Return{
		ID:              uuid.New(),
		OrderID:         item.OrderID,
		OrderItemID:     item.ID,
		ProductID:       item.ProductID,
		BuyerID:         item.BuyerID,
		SellerID:        item.SellerID,
		Reason:          "faulty",
		Refund:          true,
		Status:          enums.ReturnStatusApproved,
		DeliveryOption:  "standard",
		CurrentStatus:   enums.DeliveryStatusReturnReceived,
		CurrentStatusAt: time.Now().UTC(),
	}
	if err := f.db.Create(&ret).Error; err != nil {
		t.Fatalf("seed return: %v", err)
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

func TestRequestSellerPayout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sellerID := uuid.New()
	item := f.seedItem(t, uuid.New(), sellerID, enums.DeliveryStatusReceived, 900)

	payment, err := f.svc.RequestSellerPayout(context.Background(), RequestPayoutInput{
		OrderItemID: item.ID,
		Actor:       Actor{UserID: sellerID, Role: enums.ActorRoleSeller},
	})
	if err != nil {
		t.Fatalf("request payout: %v", err)
	}
	if payment.Status != enums.PaymentStatusPending {
		t.Fatalf("expected Pending, got %s", payment.Status)
	}
	if !payment.Amount.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("expected amount 900, got %s", payment.Amount)
	}
	if got := f.itemStatus(t, item.ID); got != enums.DeliveryStatusSellerPayout {
		t.Fatalf("expected Payment to Seller Initiated, got %s", got)
	}

	// No funds move until approval.
	if _, err := f.wallets.GetByUser(context.Background(), sellerID); err == nil {
		t.Fatal("no wallet should exist before approval")
	}
}

func TestRequestSellerPayoutAfterDeclinedReturn(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sellerID := uuid.New()
	item := f.seedItem(t, uuid.New(), sellerID, enums.DeliveryStatusReturnDeclined, 400)

	if _, err := f.svc.RequestSellerPayout(context.Background(), RequestPayoutInput{
		OrderItemID: item.ID,
		Actor:       Actor{UserID: sellerID, Role: enums.ActorRoleSeller},
	}); err != nil {
		t.Fatalf("request payout: %v", err)
	}
	if got := f.itemStatus(t, item.ID); got != enums.DeliveryStatusSellerPayout {
		t.Fatalf("expected Payment to Seller Initiated, got %s", got)
	}
}

func TestRequestSellerPayoutRejectsEarly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sellerID := uuid.New()
	item := f.seedItem(t, uuid.New(), sellerID, enums.DeliveryStatusDelivered, 400)

	_, err := f.svc.RequestSellerPayout(context.Background(), RequestPayoutInput{
		OrderItemID: item.ID,
		Actor:       Actor{UserID: sellerID, Role: enums.ActorRoleSeller},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestSellerPayoutOncePerItem(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sellerID := uuid.New()
	item := f.seedItem(t, uuid.New(), sellerID, enums.DeliveryStatusReceived, 400)
	actor := Actor{UserID: sellerID, Role: enums.ActorRoleSeller}

	if _, err := f.svc.RequestSellerPayout(context.Background(), RequestPayoutInput{OrderItemID: item.ID, Actor: actor}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	_, err := f.svc.RequestSellerPayout(context.Background(), RequestPayoutInput{OrderItemID: item.ID, Actor: actor})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApprovePayoutCreditsWalletOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sellerID := uuid.New()
	item := f.seedItem(t, uuid.New(), sellerID, enums.DeliveryStatusReceived, 1500)
	admin := Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}

	payment, err := f.svc.RequestSellerPayout(context.Background(), RequestPayoutInput{
		OrderItemID: item.ID,
		Actor:       Actor{UserID: sellerID, Role: enums.ActorRoleSeller},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	approved, err := f.svc.Approve(context.Background(), DecideInput{PaymentID: payment.ID, Actor: admin})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != enums.PaymentStatusApproved || approved.ApprovedAt == nil {
		t.Fatalf("expected Approved with timestamp, got %+v", approved)
	}

	w, err := f.wallets.GetByUser(context.Background(), sellerID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if !w.Balance.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected balance 1500, got %s", w.Balance)
	}

	// A retried approval must not credit again.
	if _, err := f.svc.Approve(context.Background(), DecideInput{PaymentID: payment.ID, Actor: admin}); err != nil {
		t.Fatalf("repeat approve: %v", err)
	}
	w, _ = f.wallets.GetByUser(context.Background(), sellerID)
	if !w.Balance.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("repeat approval double credited, balance %s", w.Balance)
	}
}

func TestApproveRefundMarksRefunded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyerID := uuid.New()
	item := f.seedItem(t, buyerID, uuid.New(), enums.DeliveryStatusReturnReceived, 700)
	ret := f.seedReceivedReturn(t, item)
	admin := Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}

	payment, err := f.svc.RequestBuyerRefund(context.Background(), RequestRefundInput{
		ReturnID: ret.ID,
		Actor:    Actor{UserID: buyerID, Role: enums.ActorRoleBuyer},
	})
	if err != nil {
		t.Fatalf("request refund: %v", err)
	}

	if _, err := f.svc.Approve(context.Background(), DecideInput{PaymentID: payment.ID, Actor: admin}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if got := f.itemStatus(t, item.ID); got != enums.DeliveryStatusRefunded {
		t.Fatalf("item must be Refunded, got %s", got)
	}
	var stored models.Return
	if err := f.db.First(&stored, "id = ?", ret.ID).Error; err != nil {
		t.Fatalf("load return: %v", err)
	}
	if stored.CurrentStatus != enums.DeliveryStatusRefunded {
		t.Fatalf("return must be Refunded, got %s", stored.CurrentStatus)
	}

	w, err := f.wallets.GetByUser(context.Background(), buyerID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if !w.Balance.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("expected refund 700, got %s", w.Balance)
	}
}

func TestApproveRefundRestocksSizeBucket(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyerID := uuid.New()
	item := f.seedItem(t, buyerID, uuid.New(), enums.DeliveryStatusReturnReceived, 450)

	size := models.ProductSize{
		ID:        uuid.New(),
		ProductID: item.ProductID,
		Label:     item.SelectedSize,
		Quantity:  3,
	}
	if err := f.db.Create(&size).Error; err != nil {
		t.Fatalf("seed size: %v", err)
	}

	ret := f.seedReceivedReturn(t, item)
	payment, err := f.svc.RequestBuyerRefund(context.Background(), RequestRefundInput{
		ReturnID: ret.ID,
		Actor:    Actor{UserID: buyerID, Role: enums.ActorRoleBuyer},
	})
	if err != nil {
		t.Fatalf("request refund: %v", err)
	}
	admin := Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	if _, err := f.svc.Approve(context.Background(), DecideInput{PaymentID: payment.ID, Actor: admin}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	var stored models.ProductSize
	if err := f.db.First(&stored, "id = ?", size.ID).Error; err != nil {
		t.Fatalf("load size: %v", err)
	}
	if stored.Quantity != 4 {
		t.Fatalf("expected restocked quantity 4, got %d", stored.Quantity)
	}
}

func TestRefundRequiresReturnReceived(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyerID := uuid.New()
	item := f.seedItem(t, buyerID, uuid.New(), enums.DeliveryStatusReturnDelivered, 700)
	ret := f.seedReceivedReturn(t, item)
	f.db.Model(&models.Return{}).Where("id = ?", ret.ID).
		Update("current_status", enums.DeliveryStatusReturnDelivered)

	_, err := f.svc.RequestBuyerRefund(context.Background(), RequestRefundInput{
		ReturnID: ret.ID,
		Actor:    Actor{UserID: buyerID, Role: enums.ActorRoleBuyer},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeclineNeedsReason(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sellerID := uuid.New()
	item := f.seedItem(t, uuid.New(), sellerID, enums.DeliveryStatusReceived, 400)
	admin := Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}

	payment, err := f.svc.RequestSellerPayout(context.Background(), RequestPayoutInput{
		OrderItemID: item.ID,
		Actor:       Actor{UserID: sellerID, Role: enums.ActorRoleSeller},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	_, err = f.svc.Decline(context.Background(), DecideInput{PaymentID: payment.ID, Actor: admin})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}

	reason := "bank details unverified"
	declined, err := f.svc.Decline(context.Background(), DecideInput{PaymentID: payment.ID, Actor: admin, AdminReason: &reason})
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != enums.PaymentStatusDeclined {
		t.Fatalf("expected Declined, got %s", declined.Status)
	}

	// Declined payments move no money.
	if _, err := f.wallets.GetByUser(context.Background(), sellerID); err == nil {
		t.Fatal("no wallet should exist after decline")
	}
}

func TestPayoutActorChecks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	item := f.seedItem(t, uuid.New(), uuid.New(), enums.DeliveryStatusReceived, 400)

	_, err := f.svc.RequestSellerPayout(context.Background(), RequestPayoutInput{
		OrderItemID: item.ID,
		Actor:       Actor{UserID: uuid.New(), Role: enums.ActorRoleSeller},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}

	payment, err := f.svc.RequestSellerPayout(context.Background(), RequestPayoutInput{
		OrderItemID: item.ID,
		Actor:       Actor{UserID: item.SellerID, Role: enums.ActorRoleSeller},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	_, err = f.svc.Approve(context.Background(), DecideInput{
		PaymentID: payment.ID,
		Actor:     Actor{UserID: item.SellerID, Role: enums.ActorRoleSeller},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
}
