package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
)

// Repository reads and writes catalog rows. The order engine only ever reads
// through it; stock mutation goes through the inventory package.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Product, error)
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

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Sizes").
		First(&product, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find product")
	}
	return &product, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []models.Product
	err := r.db.WithContext(ctx).
		Preload("Sizes").
		Where("id IN ?", ids).
		Find(&out).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find products")
	}
	return out, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Preload("Sizes").Where("seller_id = ?", sellerID)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var out []models.Product
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return out, nil
}
