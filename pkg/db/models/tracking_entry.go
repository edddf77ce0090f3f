package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

// TrackingEntry is one state an order item or return occupied. Rows are
// append-only; exactly one of OrderItemID and ReturnID is set.
type TrackingEntry struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderItemID *uuid.UUID           `gorm:"column:order_item_id;type:uuid;index"`
	ReturnID    *uuid.UUID           `gorm:"column:return_id;type:uuid;index"`
	Status      enums.DeliveryStatus `gorm:"column:status;type:text;not null"`
	OccurredAt  time.Time            `gorm:"column:occurred_at;not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
