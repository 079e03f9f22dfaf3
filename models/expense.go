package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	Base
	Description string          `json:"description" gorm:"not null"`
	Category    string          `json:"category" gorm:"size:64;index"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Vendor      string          `json:"vendor"`
	IncurredOn  time.Time       `json:"incurredOn"`
	CreatedBy   string          `json:"createdBy" gorm:"size:36"`
}
