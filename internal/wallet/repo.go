package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
)

// Repository manages wallet and wallet transaction persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Create(ctx context.Context, wallet *models.Wallet) error
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactionsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error)
	HasTransactionRef(ctx context.Context, ref string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) Create(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactionsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) HasTransactionRef(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("payment_transaction_ref = ?", ref).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
