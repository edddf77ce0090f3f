package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

// Payment is a pending outgoing settlement (seller payout or buyer refund)
// awaiting admin approval. Creating one moves no money; funds move exactly
// once, when the row transitions Pending to Approved.
type Payment struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID     uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	OrderItemID uuid.UUID               `gorm:"column:order_item_id;type:uuid;not null;index"`
	ReturnID    *uuid.UUID              `gorm:"column:return_id;type:uuid"`
	Amount      decimal.Decimal         `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency    enums.Currency          `gorm:"column:currency;type:text;not null;default:'NGN'"`
	Status      enums.PaymentStatus     `gorm:"column:status;type:text;not null;default:'Pending'"`
	Reason      string                  `gorm:"column:reason;not null"`
	Destination enums.PayoutDestination `gorm:"column:destination;type:text;not null;default:'Wallet'"`
	AdminReason *string                 `gorm:"column:admin_reason"`
	ApprovedAt  *time.Time              `gorm:"column:approved_at"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
