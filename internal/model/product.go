package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one marketplace listing. ImageURL holds the media
// reference, not a resolved URL.
type Product struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	Name        string          `gorm:"size:255;not null"`
	Username    *string         `gorm:"size:100"`
	Description *string         `gorm:"type:text"`
	Category    *string         `gorm:"size:255;index:idx_products_category"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ImageURL    *string         `gorm:"column:image_url;size:512"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}
