package sharelinks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/sharecart-backend/pkg/db/models"
)

// Repository exposes persistence helpers for share links.
type Repository interface {
	Create(ctx context.Context, link *models.ShareLink) error
	FindLiveByKey(ctx context.Context, key string, now time.Time) (*models.ShareLink, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a share link repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, link *models.ShareLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// FindLiveByKey returns gorm.ErrRecordNotFound for unknown and expired keys alike.
func (r *repositoryImpl) FindLiveByKey(ctx context.Context, key string, now time.Time) (*models.ShareLink, error) {
	var link models.ShareLink
	err := r.db.WithContext(ctx).
		Where("share_key = ?", key).
		Where("expires_at > ?", now).
		Take(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.ShareLink{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
