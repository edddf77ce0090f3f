package payments

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

	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindOpenByItem(ctx context.Context, orderItemID uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, params ListParams) ([]models.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, adminReason *string, approvedAt *time.Time) error
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

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find payment")
	}
	return &payment, nil
}

// FindOpenByItem returns a pending or approved payment for the item, if any.
// Declined payments do not block a new request.
func (r *repository) FindOpenByItem(ctx context.Context, orderItemID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Where("status <> ?", enums.PaymentStatusDeclined).
		First(&payment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find open payment")
	}
	return &payment, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Payment, error) {
	q := r.db.WithContext(ctx).Model(&models.Payment{})
	if params.UserID != nil {
		q = q.Where("user_id = ?", *params.UserID)
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

	var out []models.Payment
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return out, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, adminReason *string, approvedAt *time.Time) error {
	updates := map[string]any{"status": status}
	if adminReason != nil {
		updates["admin_reason"] = *adminReason
	}
	if approvedAt != nil {
		updates["approved_at"] = *approvedAt
	}
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
	}
	return nil
}
