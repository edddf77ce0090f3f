package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductSize is a per-size stock bucket. Quantity is only ever changed via
// conditional atomic updates, never read-then-write.
type ProductSize struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_product_sizes_product_label,priority:1"`
	Label     string    `gorm:"column:label;not null;uniqueIndex:ux_product_sizes_product_label,priority:2"`
	Quantity  int       `gorm:"column:quantity;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
