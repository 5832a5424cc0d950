package models

import "time"

// Product is the storefront catalog row a shared cart line points at.
type Product struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `gorm:"column:name;not null"`
	PriceCents int       `gorm:"column:price_cents;not null"`
	StockQty   *int      `gorm:"column:stock_qty"`
	IsActive   bool      `gorm:"column:is_active;not null;default:true"`
	ImageURL   *string   `gorm:"column:image_url"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the catalog table name.
func (Product) TableName() string {
	return "products"
}
