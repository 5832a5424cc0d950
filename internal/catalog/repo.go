package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/sharecart-backend/pkg/db"
	"github.com/angelmondragon/sharecart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sharecart-backend/pkg/errors"
)

// Repository reads storefront products.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Product returns the product with id, or nil when it does not exist.
func (r *Repository) Product(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&product).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not load product")
	}
	return &product, nil
}

// Products loads several products keyed by id. Missing ids are absent from the map.
func (r *Repository) Products(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	out := make(map[int64]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not load products")
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}
