package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

// Product is the catalog entry an order item snapshots from.
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SellerID     uuid.UUID       `gorm:"column:seller_id;type:uuid;not null"`
	Title        string          `gorm:"column:title;not null"`
	Description  *string         `gorm:"column:description"`
	SellingPrice decimal.Decimal `gorm:"column:selling_price;type:numeric(14,2);not null"`
	Currency     enums.Currency  `gorm:"column:currency;type:text;not null;default:'NGN'"`
	Sizes        []ProductSize   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
