package models

import "github.com/shopspring/decimal"

// TaxConfig holds the global tax name and rate; the latest updated row is active.
type TaxConfig struct {
	Base
	Name string          `json:"name" gorm:"size:32;not null"`
	Rate decimal.Decimal `json:"rate" gorm:"type:numeric(6,4);not null"`
}
