package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

// Return forks a parallel tracking sub-state off a delivered order item.
// At most one non-declined return may exist per order item (enforced by a
// partial unique index in the migrations plus a service-level pre-check).
type Return struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	OrderItemID      uuid.UUID            `gorm:"column:order_item_id;type:uuid;not null;index"`
	ProductID        uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	BuyerID          uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID         uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index"`
	Reason           string               `gorm:"column:reason;not null"`
	Refund           bool                 `gorm:"column:refund;not null;default:true"`
	Region           string               `gorm:"column:region;not null"`
	Status           enums.ReturnStatus   `gorm:"column:status;type:text;not null;default:'Pending'"`
	DeliveryOption   string               `gorm:"column:delivery_option;not null"`
	DeliverySelected bool                 `gorm:"column:delivery_selected;not null;default:false"`
	CurrentStatus    enums.DeliveryStatus `gorm:"column:current_status;type:text;not null;default:'Return Logged'"`
	CurrentStatusAt  time.Time            `gorm:"column:current_status_at;not null"`
	TrackingNumber   *string              `gorm:"column:tracking_number"`
	AdminReason      *string              `gorm:"column:admin_reason"`
	History          []TrackingEntry      `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
