package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

// WalletTransaction is the append-only ledger row paired with every balance
// mutation. PaymentTransactionRef is the idempotency key for gateway-funded
// credits; the unique index rejects replays of the same gateway callback.
type WalletTransaction struct {
	ID                    uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	WalletID              uuid.UUID               `gorm:"column:wallet_id;type:uuid;not null;index"`
	UserID                uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Amount                decimal.Decimal         `gorm:"column:amount;type:numeric(14,2);not null"`
	Type                  enums.TransactionType   `gorm:"column:type;type:text;not null"`
	Status                enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'successful'"`
	Description           string                  `gorm:"column:description;not null"`
	Currency              enums.Currency          `gorm:"column:currency;type:text;not null;default:'NGN'"`
	PaymentTransactionRef *string                 `gorm:"column:payment_transaction_ref;uniqueIndex:ux_wallet_transactions_payment_ref"`
	OrderID               *uuid.UUID              `gorm:"column:order_id;type:uuid"`
	PaymentID             *uuid.UUID              `gorm:"column:payment_id;type:uuid"`
	CreatedAt             time.Time               `gorm:"column:created_at;autoCreateTime"`
}
