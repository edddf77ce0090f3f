package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

// Wallet holds a user's platform balance. Created lazily on first credit or
// debit; the balance only moves together with a WalletTransaction row in the
// same database transaction.
type Wallet struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_wallets_user"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	Currency  enums.Currency  `gorm:"column:currency;type:text;not null;default:'NGN'"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
