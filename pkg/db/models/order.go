package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

// Order is created once, atomically, by the order engine. Only item tracking
// state changes after creation; the order row itself is never deleted.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID        uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	TotalAmount    decimal.Decimal     `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Currency       enums.Currency      `gorm:"column:currency;type:text;not null;default:'NGN'"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	TransactionRef *string             `gorm:"column:transaction_ref;uniqueIndex:ux_orders_transaction_ref"`
	Items          []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
