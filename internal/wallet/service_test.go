package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
)

func TestCreditCreatesWalletLazily(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Credit(ctx, tx, CreditInput{
			UserID:      userID,
			Amount:      decimal.NewFromInt(250),
			Description: "test credit",
		})
		return err
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	wallet, err := svc.GetByUser(ctx, userID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !wallet.Balance.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected balance 250, got %s", wallet.Balance)
	}

	txns, err := svc.ListTransactions(ctx, userID, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 1 || txns[0].Type != enums.TransactionTypeCredit {
		t.Fatalf("expected one credit row, got %+v", txns)
	}
}

func TestDebitGuardsBalance(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	if err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Credit(ctx, tx, CreditInput{UserID: userID, Amount: decimal.NewFromInt(100), Description: "seed"})
		return err
	}); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Debit(ctx, tx, DebitInput{UserID: userID, Amount: decimal.NewFromInt(150), Description: "too much"})
		return err
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("unexpected error: %v", err)
	}

	wallet, err := svc.GetByUser(ctx, userID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !wallet.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance must be untouched, got %s", wallet.Balance)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Debit(ctx, tx, DebitInput{UserID: userID, Amount: decimal.NewFromInt(80), Description: "ok"})
		return err
	}); err != nil {
		t.Fatalf("debit: %v", err)
	}
	wallet, _ = svc.GetByUser(ctx, userID)
	if !wallet.Balance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected balance 20, got %s", wallet.Balance)
	}
}

func TestDebitWithoutWallet(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Debit(context.Background(), tx, DebitInput{
			UserID:      uuid.New(),
			Amount:      decimal.NewFromInt(10),
			Description: "no wallet",
		})
		return err
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreditDuplicatePaymentRef(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	ref := "flw-" + uuid.NewString()

	credit := func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			_, err := svc.Credit(ctx, tx, CreditInput{
				UserID:                userID,
				Amount:                decimal.NewFromInt(40),
				Description:           "gateway top-up",
				PaymentTransactionRef: &ref,
			})
			return err
		})
	}

	if err := credit(); err != nil {
		t.Fatalf("first credit: %v", err)
	}
	err := credit()
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDuplicateTransaction {
		t.Fatalf("unexpected error: %v", err)
	}

	wallet, err := svc.GetByUser(ctx, userID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !wallet.Balance.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("duplicate must not double credit, balance %s", wallet.Balance)
	}
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:wallet_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Wallet{}, &models.WalletTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
