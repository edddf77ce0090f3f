package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductSale records the sold-to relation written when an order reserves
// stock for a product.
type ProductSale struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	SellerID  uuid.UUID `gorm:"column:seller_id;type:uuid;not null"`
	BuyerID   uuid.UUID `gorm:"column:buyer_id;type:uuid;not null"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	Qty       int       `gorm:"column:qty;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
