package models

import "time"

// ShareVisit records one resolution of a share link. ShareID intentionally has
// no foreign key: visits outlive the link for reporting.
type ShareVisit struct {
	ID             int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ShareID        int64      `gorm:"column:share_id;not null;index"`
	VisitorAddress *string    `gorm:"column:visitor_address;type:varchar(128)"`
	VisitedAt      time.Time  `gorm:"column:visited_at;not null"`
	OrderID        *int64     `gorm:"column:order_id"`
	ConvertedAt    *time.Time `gorm:"column:converted_at"`
}

// TableName pins the visit table name.
func (ShareVisit) TableName() string {
	return "share_visits"
}

// Converted reports whether an order has been attributed to the visit.
func (v ShareVisit) Converted() bool {
	return v.OrderID != nil
}
