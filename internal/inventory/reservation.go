package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
)

// ReservationRequest asks for qty units out of one size bucket.
type ReservationRequest struct {
	ProductID uuid.UUID
	SizeLabel string
	Qty       int
}

// Reserve decrements each requested size bucket with a conditional atomic
// update. Two concurrent orders can never oversell a bucket: the WHERE clause
// guards the decrement, there is no read-then-write window. Any shortfall
// fails the whole call; the caller's transaction rolls every decrement back.
func Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for reservation")
	}
	for _, req := range requests {
		if req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation qty must be positive").
				WithDetails(map[string]any{"product_id": req.ProductID.String()})
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE product_sizes
			SET quantity = quantity - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_id = ? AND label = ? AND quantity >= ?
		`, req.Qty, req.ProductID, req.SizeLabel, req.Qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
		}
		if res.RowsAffected == 0 {
			return shortfallError(ctx, tx, req)
		}
	}
	return nil
}

// Release returns units to a bucket, compensating a reservation that was
// committed in an earlier transaction.
func Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, sizeLabel string, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for release")
	}
	res := tx.WithContext(ctx).Exec(`
		UPDATE product_sizes
		SET quantity = quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND label = ?
	`, qty, productID, sizeLabel)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
	}
	return nil
}

func shortfallError(ctx context.Context, tx *gorm.DB, req ReservationRequest) error {
	var bucket models.ProductSize
	err := tx.WithContext(ctx).
		Where("product_id = ? AND label = ?", req.ProductID, req.SizeLabel).
		First(&bucket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "size not available for product").
				WithDetails(map[string]any{
					"product_id": req.ProductID.String(),
					"size":       req.SizeLabel,
				})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inspect stock bucket")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for size").
		WithDetails(map[string]any{
			"product_id": req.ProductID.String(),
			"size":       req.SizeLabel,
			"requested":  req.Qty,
			"available":  bucket.Quantity,
		})
}
