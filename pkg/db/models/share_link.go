package models

import (
	"time"

	"github.com/angelmondragon/sharecart-backend/pkg/types"
)

// ShareLink is a frozen copy of a shopper's cart reachable through ShareKey.
type ShareLink struct {
	ID             int64              `gorm:"column:id;primaryKey;autoIncrement"`
	ShareKey       string             `gorm:"column:share_key;type:varchar(36);uniqueIndex;not null"`
	CartSnapshot   types.CartSnapshot `gorm:"column:cart_snapshot;type:jsonb;not null"`
	ReferrerName   string             `gorm:"column:referrer_name;type:varchar(100);not null"`
	ReferrerUserID *string            `gorm:"column:referrer_user_id;type:varchar(64)"`
	Note           *string            `gorm:"column:note"`
	CreatedAt      time.Time          `gorm:"column:created_at;not null"`
	ExpiresAt      time.Time          `gorm:"column:expires_at;not null;index"`
}

// TableName pins the share link table name.
func (ShareLink) TableName() string {
	return "share_links"
}

// IsLive reports whether the link can still be resolved at now.
func (l ShareLink) IsLive(now time.Time) bool {
	return now.Before(l.ExpiresAt)
}
