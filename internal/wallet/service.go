package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/kasuwahq/kasuwa-backend/pkg/db"
	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
)

// Service moves wallet funds. Every balance mutation is paired with exactly
// one WalletTransaction row written through the same *gorm.DB handle, so a
// caller-owned transaction covers both or neither.
type Service interface {
	Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, tx *gorm.DB, input DebitInput) (*models.WalletTransaction, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error)
}

// CreditInput adds funds to a user's wallet, creating the wallet lazily.
type CreditInput struct {
	UserID                uuid.UUID
	Amount                decimal.Decimal
	Currency              enums.Currency
	Description           string
	PaymentTransactionRef *string
	OrderID               *uuid.UUID
	PaymentID             *uuid.UUID
}

// DebitInput removes funds; fails without touching the balance if
// insufficient.
type DebitInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Currency    enums.Currency
	Description string
	OrderID     *uuid.UUID
}

type service struct {
	repo Repository
}

// NewService wires a wallet service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for wallet credit")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyNGN
	}

	repo := s.repo.WithTx(tx)
	wallet, err := s.ensureWallet(ctx, tx, repo, input.UserID, currency)
	if err != nil {
		return nil, err
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE wallets
		SET balance = balance + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, input.Amount, wallet.ID)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "apply wallet credit")
	}

	txn := &models.WalletTransaction{
		ID:                    uuid.New(),
		WalletID:              wallet.ID,
		UserID:                input.UserID,
		Amount:                input.Amount,
		Type:                  enums.TransactionTypeCredit,
		Status:                enums.TransactionStatusSuccessful,
		Description:           input.Description,
		Currency:              currency,
		PaymentTransactionRef: input.PaymentTransactionRef,
		OrderID:               input.OrderID,
		PaymentID:             input.PaymentID,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		if dbpkg.IsUniqueViolation(err, "payment_transaction_ref") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDuplicateTransaction, err, "payment reference already credited")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record credit transaction")
	}
	return txn, nil
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, input DebitInput) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for wallet debit")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyNGN
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.FindByUser(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet has no funds")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	// Conditional decrement: concurrent debits serialize on the row and the
	// balance guard rejects overdrafts without a read-then-write window.
	res := tx.WithContext(ctx).Exec(`
		UPDATE wallets
		SET balance = balance - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND balance >= ?
	`, input.Amount, wallet.ID, input.Amount)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "apply wallet debit")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance too low").
			WithDetails(map[string]any{
				"balance":   wallet.Balance.String(),
				"requested": input.Amount.String(),
			})
	}

	txn := &models.WalletTransaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		UserID:      input.UserID,
		Amount:      input.Amount,
		Type:        enums.TransactionTypeDebit,
		Status:      enums.TransactionStatusSuccessful,
		Description: input.Description,
		Currency:    currency,
		OrderID:     input.OrderID,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record debit transaction")
	}
	return txn, nil
}

func (s *service) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	wallet, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	txns, err := s.repo.ListTransactionsByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	return txns, nil
}

func (s *service) ensureWallet(ctx context.Context, tx *gorm.DB, repo Repository, userID uuid.UUID, currency enums.Currency) (*models.Wallet, error) {
	wallet, err := repo.FindByUser(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	created := &models.Wallet{
		ID:       uuid.New(),
		UserID:   userID,
		Balance:  decimal.Zero,
		Currency: currency,
	}
	if err := repo.Create(ctx, created); err != nil {
		// A concurrent first credit may have created it; re-read.
		if dbpkg.IsUniqueViolation(err, "ux_wallets_user") || dbpkg.IsUniqueViolation(err, "wallets.user_id") {
			return repo.FindByUser(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return created, nil
}
