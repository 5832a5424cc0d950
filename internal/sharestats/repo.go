package sharestats

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/sharecart-backend/pkg/db"
	"github.com/angelmondragon/sharecart-backend/pkg/db/models"
)

// Repository exposes persistence helpers for share visit statistics.
type Repository interface {
	InsertVisit(ctx context.Context, visit *models.ShareVisit) error
	ClaimConversion(ctx context.Context, shareID, orderID int64, now time.Time) (bool, error)
	AggregateByShare(ctx context.Context) ([]ReferrerAggregate, error)
	InsertOrderReferral(ctx context.Context, referral *models.OrderReferral) (bool, error)
	FindOrderReferral(ctx context.Context, orderID int64) (*models.OrderReferral, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a stats repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertVisit(ctx context.Context, visit *models.ShareVisit) error {
	return r.db.WithContext(ctx).Create(visit).Error
}

// claimConversionSQL attributes an order to the newest unconverted visit of a
// share in one statement. The NOT EXISTS guard keeps a repeated order id from
// claiming a second visit. The %s slot takes the Postgres row lock clause.
const claimConversionSQL = `
UPDATE share_visits
SET order_id = ?, converted_at = ?
WHERE id = (
	SELECT id FROM share_visits
	WHERE share_id = ? AND order_id IS NULL
	ORDER BY visited_at DESC, id DESC
	LIMIT 1%s
)
AND order_id IS NULL
AND NOT EXISTS (
	SELECT 1 FROM share_visits
	WHERE share_id = ? AND order_id = ?
)`

const postgresDialect = "postgres"

// claimConversionQuery makes concurrent claims for different orders on Postgres
// skip a visit another transaction is already converting.
func claimConversionQuery(dialect string) string {
	if dialect == postgresDialect {
		return fmt.Sprintf(claimConversionSQL, "\n\tFOR UPDATE SKIP LOCKED")
	}
	return fmt.Sprintf(claimConversionSQL, "")
}

func (r *repositoryImpl) dialect() string {
	if r.db == nil || r.db.Dialector == nil {
		return ""
	}
	return r.db.Dialector.Name()
}

func (r *repositoryImpl) ClaimConversion(ctx context.Context, shareID, orderID int64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Exec(claimConversionQuery(r.dialect()), orderID, now, shareID, shareID, orderID)
	if result.Error != nil {
		if db.IsUniqueViolation(result.Error, "") {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

const aggregateSQL = `
SELECT
	l.id AS share_id,
	l.share_key AS share_key,
	l.referrer_name AS referrer_name,
	COUNT(v.id) AS total_visits,
	COUNT(v.order_id) AS total_conversions,
	COUNT(DISTINCT v.order_id) AS total_orders
FROM share_links l
LEFT JOIN share_visits v ON v.share_id = l.id
GROUP BY l.id, l.share_key, l.referrer_name
ORDER BY l.id`

func (r *repositoryImpl) AggregateByShare(ctx context.Context) ([]ReferrerAggregate, error) {
	var rows []ReferrerAggregate
	if err := r.db.WithContext(ctx).Raw(aggregateSQL).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) InsertOrderReferral(ctx context.Context, referral *models.OrderReferral) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_id"}}, DoNothing: true}).
		Create(referral)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) FindOrderReferral(ctx context.Context, orderID int64) (*models.OrderReferral, error) {
	var referral models.OrderReferral
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Take(&referral).Error; err != nil {
		return nil, err
	}
	return &referral, nil
}
