package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

// OrderItem is owned exclusively by its parent order. Price is a snapshot of
// sellingPrice times quantity at order time and is never recomputed.
// CurrentStatus denormalizes the last tracking entry for fast reads;
// LastNotificationAt makes the escalation sweep idempotent per status entry.
type OrderItem struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID          uuid.UUID            `gorm:"column:product_id;type:uuid;not null;index"`
	SellerID           uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index"`
	BuyerID            uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null"`
	Name               string               `gorm:"column:name;not null"`
	SelectedSize       string               `gorm:"column:selected_size;not null"`
	SelectedColor      *string              `gorm:"column:selected_color"`
	Price              decimal.Decimal      `gorm:"column:price;type:numeric(14,2);not null"`
	Qty                int                  `gorm:"column:qty;not null"`
	DeliveryOption     string               `gorm:"column:delivery_option;not null"`
	CurrentStatus      enums.DeliveryStatus `gorm:"column:current_status;type:text;not null;default:'Processing'"`
	CurrentStatusAt    time.Time            `gorm:"column:current_status_at;not null"`
	LastNotificationAt *time.Time           `gorm:"column:last_notification_at"`
	TrackingNumber     *string              `gorm:"column:tracking_number"`
	IsHold             bool                 `gorm:"column:is_hold;not null;default:false"`
	History            []TrackingEntry      `gorm:"foreignKey:OrderItemID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
