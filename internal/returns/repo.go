package returns

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

	Create(ctx context.Context, ret *models.Return) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Return, error)
	FindActiveByItem(ctx context.Context, orderItemID uuid.UUID) (*models.Return, error)
	List(ctx context.Context, params ListParams) ([]models.Return, error)

	UpdateDecision(ctx context.Context, id uuid.UUID, status enums.ReturnStatus, currentStatus enums.DeliveryStatus, at time.Time, adminReason *string) error
	UpdateTracking(ctx context.Context, id uuid.UUID, status enums.DeliveryStatus, at time.Time, trackingNumber *string) error
	AppendTrackingEntry(ctx context.Context, entry *models.TrackingEntry) error
	ListTrackingEntries(ctx context.Context, returnID uuid.UUID) ([]models.TrackingEntry, error)
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

func (r *repository) Create(ctx context.Context, ret *models.Return) error {
	if err := r.db.WithContext(ctx).Create(ret).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).First(&ret, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find return")
	}
	return &ret, nil
}

// FindActiveByItem finds the return holding the item's return slot. Only a
// declined return frees the slot, matching ux_returns_active_item.
func (r *repository) FindActiveByItem(ctx context.Context, orderItemID uuid.UUID) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Where("status <> ?", enums.ReturnStatusDeclined).
		First(&ret).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find active return")
	}
	return &ret, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Return, error) {
	q := r.db.WithContext(ctx).Model(&models.Return{})
	if params.BuyerID != nil {
		q = q.Where("buyer_id = ?", *params.BuyerID)
	}
	if params.SellerID != nil {
		q = q.Where("seller_id = ?", *params.SellerID)
	}
	if params.Status != nil {
		q = q.Where("status = ?", *params.Status)
	}
	if params.Limit > 0 {
		q = q.Limit(params.Limit)
	}
	if params.Offset > 0 {
		q = q.Offset(params.Offset)
	}

	var out []models.Return
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}
	return out, nil
}

func (r *repository) UpdateDecision(ctx context.Context, id uuid.UUID, status enums.ReturnStatus, currentStatus enums.DeliveryStatus, at time.Time, adminReason *string) error {
	updates := map[string]any{
		"status":            status,
		"current_status":    currentStatus,
		"current_status_at": at,
	}
	if adminReason != nil {
		updates["admin_reason"] = *adminReason
	}
	err := r.db.WithContext(ctx).Model(&models.Return{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return decision")
	}
	return nil
}

func (r *repository) UpdateTracking(ctx context.Context, id uuid.UUID, status enums.DeliveryStatus, at time.Time, trackingNumber *string) error {
	updates := map[string]any{
		"current_status":    status,
		"current_status_at": at,
	}
	if trackingNumber != nil {
		updates["tracking_number"] = *trackingNumber
	}
	err := r.db.WithContext(ctx).Model(&models.Return{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return tracking")
	}
	return nil
}

func (r *repository) AppendTrackingEntry(ctx context.Context, entry *models.TrackingEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking entry")
	}
	return nil
}

func (r *repository) ListTrackingEntries(ctx context.Context, returnID uuid.UUID) ([]models.TrackingEntry, error) {
	var entries []models.TrackingEntry
	err := r.db.WithContext(ctx).
		Where("return_id = ?", returnID).
		Order("occurred_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tracking entries")
	}
	return entries, nil
}
