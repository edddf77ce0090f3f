package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) error
	CreateProductSales(ctx context.Context, sales []models.ProductSale) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderItem(ctx context.Context, id uuid.UUID) (*models.OrderItem, error)
	ListOrders(ctx context.Context, params ListParams) ([]models.Order, error)
	HasOrderWithTransactionRef(ctx context.Context, ref string) (bool, error)

	UpdateItemTracking(ctx context.Context, itemID uuid.UUID, status enums.DeliveryStatus, at time.Time, trackingNumber *string) error
	AppendTrackingEntry(ctx context.Context, entry *models.TrackingEntry) error
	ListTrackingEntries(ctx context.Context, itemID uuid.UUID) ([]models.TrackingEntry, error)

	FindStuckItems(ctx context.Context, status enums.DeliveryStatus, cutoff time.Time) ([]models.OrderItem, error)
	StampLastNotification(ctx context.Context, itemID uuid.UUID, status enums.DeliveryStatus, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return nil
}

func (r *repository) CreateProductSales(ctx context.Context, sales []models.ProductSale) error {
	if len(sales) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&sales).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record product sales")
	}
	return nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order")
	}
	return &order, nil
}

func (r *repository) FindOrderItem(ctx context.Context, id uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order item")
	}
	return &item, nil
}

func (r *repository) ListOrders(ctx context.Context, params ListParams) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items")
	if params.BuyerID != nil {
		q = q.Where("buyer_id = ?", *params.BuyerID)
	}
	if params.SellerID != nil {
		q = q.Where("id IN (?)", r.db.Model(&models.OrderItem{}).
			Select("order_id").Where("seller_id = ?", *params.SellerID))
	}
	if params.Limit > 0 {
		q = q.Limit(params.Limit)
	}
	if params.Offset > 0 {
		q = q.Offset(params.Offset)
	}

	var out []models.Order
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return out, nil
}

func (r *repository) HasOrderWithTransactionRef(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("transaction_ref = ?", ref).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check transaction reference")
	}
	return count > 0, nil
}

func (r *repository) UpdateItemTracking(ctx context.Context, itemID uuid.UUID, status enums.DeliveryStatus, at time.Time, trackingNumber *string) error {
	updates := map[string]any{
		"current_status":    status,
		"current_status_at": at,
	}
	if trackingNumber != nil {
		updates["tracking_number"] = *trackingNumber
	}
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Updates(updates).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item tracking")
	}
	return nil
}

func (r *repository) AppendTrackingEntry(ctx context.Context, entry *models.TrackingEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking entry")
	}
	return nil
}

func (r *repository) ListTrackingEntries(ctx context.Context, itemID uuid.UUID) ([]models.TrackingEntry, error) {
	var entries []models.TrackingEntry
	err := r.db.WithContext(ctx).
		Where("order_item_id = ?", itemID).
		Order("occurred_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tracking entries")
	}
	return entries, nil
}

// FindStuckItems returns items sitting in status since before cutoff that have
// not been notified since they entered it.
func (r *repository) FindStuckItems(ctx context.Context, status enums.DeliveryStatus, cutoff time.Time) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("current_status = ?", status).
		Where("current_status_at <= ?", cutoff).
		Where("last_notification_at IS NULL OR last_notification_at < current_status_at").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stuck items")
	}
	return items, nil
}

// StampLastNotification marks the item as nudged for its current status. The
// conditional update keeps concurrent sweeps from double-notifying.
func (r *repository) StampLastNotification(ctx context.Context, itemID uuid.UUID, status enums.DeliveryStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("id = ? AND current_status = ?", itemID, status).
		Where("last_notification_at IS NULL OR last_notification_at < current_status_at").
		Update("last_notification_at", at)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "stamp notification")
	}
	return res.RowsAffected > 0, nil
}
