package models

import "github.com/shopspring/decimal"

// CatalogItem is a priced material or unit held in stock.
type CatalogItem struct {
	Base
	Name          string          `json:"name" gorm:"not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Unit          string          `json:"unit" gorm:"size:32"`
	Category      string          `json:"category" gorm:"size:64;index"`
	StockQuantity int             `json:"stockQuantity" gorm:"not null"`
}
