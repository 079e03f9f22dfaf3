package services

import (
	"context"
	"errors"

	"fencing-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const DefaultTaxName = "VAT"

var DefaultTaxRate = decimal.RequireFromString("0.15")

// TaxResult is the outcome of applying a rate to a base amount.
type TaxResult struct {
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Total     decimal.Decimal `json:"total"`
}

// CalculateTax returns the exact amount*rate and amount plus that tax.
// Callers that persist money round the result themselves.
func CalculateTax(amount, rate decimal.Decimal) TaxResult {
	tax := amount.Mul(rate)
	return TaxResult{TaxAmount: tax, Total: amount.Add(tax)}
}

type TaxService struct {
	db *gorm.DB
}

func NewTaxService(db *gorm.DB) *TaxService {
	return &TaxService{db: db}
}

// Current returns the latest updated tax configuration, or the built-in default.
func (s *TaxService) Current(ctx context.Context) (models.TaxConfig, error) {
	return currentTax(s.db.WithContext(ctx))
}

func currentTax(db *gorm.DB) (models.TaxConfig, error) {
	var cfg models.TaxConfig
	err := db.Order("updated_at DESC").First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.TaxConfig{Name: DefaultTaxName, Rate: DefaultTaxRate}, nil
	}
	if err != nil {
		return models.TaxConfig{}, err
	}
	return cfg, nil
}

// Update mutates the existing configuration row or creates the first one.
func (s *TaxService) Update(ctx context.Context, name string, rate decimal.Decimal) (models.TaxConfig, error) {
	if name == "" {
		return models.TaxConfig{}, invalid("name", "is required")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return models.TaxConfig{}, invalid("rate", "must be a fraction between 0 and 1")
	}

	var cfg models.TaxConfig
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Order("updated_at DESC").First(&cfg).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			cfg = models.TaxConfig{Name: name, Rate: rate}
			return tx.Create(&cfg).Error
		case err != nil:
			return err
		}
		cfg.Name = name
		cfg.Rate = rate
		return tx.Save(&cfg).Error
	})
	return cfg, err
}
