package models

import "time"

// OrderReferral keeps the referral details attached to an order placed from a
// shared cart session.
type OrderReferral struct {
	OrderID      int64     `gorm:"column:order_id;primaryKey;autoIncrement:false"`
	ShareID      int64     `gorm:"column:share_id;not null;index"`
	ShareKey     string    `gorm:"column:share_key;type:varchar(36);not null"`
	ReferrerName string    `gorm:"column:referrer_name;type:varchar(100);not null"`
	Note         *string   `gorm:"column:note"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

// TableName pins the order referral table name.
func (OrderReferral) TableName() string {
	return "share_order_referrals"
}
