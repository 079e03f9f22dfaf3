package models

import "github.com/shopspring/decimal"

type QuoteStatus string

const (
	QuoteDraft     QuoteStatus = "DRAFT"
	QuoteSent      QuoteStatus = "SENT"
	QuoteApproved  QuoteStatus = "APPROVED"
	QuoteRejected  QuoteStatus = "REJECTED"
	QuoteConverted QuoteStatus = "CONVERTED"
)

type Terrain string

const (
	TerrainFlat   Terrain = "FLAT"
	TerrainSloped Terrain = "SLOPED"
	TerrainRocky  Terrain = "ROCKY"
)

type FenceQuote struct {
	Base
	CustomerID       string          `json:"customerId" gorm:"size:36;not null;index"`
	Customer         *Customer       `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	FencingServiceID string          `json:"fencingServiceId" gorm:"size:36;not null;index"`
	FencingService   *FencingService `json:"fencingService,omitempty" gorm:"foreignKey:FencingServiceID"`
	LengthMeters     decimal.Decimal `json:"lengthMeters" gorm:"type:numeric(10,2);not null"`
	HeightMeters     decimal.Decimal `json:"heightMeters" gorm:"type:numeric(6,2);not null"`
	Terrain          Terrain         `json:"terrain" gorm:"size:16;not null"`
	AddOns           []FencingAddon  `json:"addOns" gorm:"many2many:quote_addons"`
	Subtotal         decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	Vat              decimal.Decimal `json:"vat" gorm:"type:numeric(12,2);not null"`
	Total            decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	TaxName          string          `json:"taxName" gorm:"size:32"`
	TaxRate          decimal.Decimal `json:"taxRate" gorm:"type:numeric(6,4)"`
	Status           QuoteStatus     `json:"status" gorm:"size:16;not null;index"`
	Notes            string          `json:"notes"`
	CreatedBy        string          `json:"createdBy" gorm:"size:36"`
}

// AddOnIDs lists the ids of the selected add-ons.
func (q *FenceQuote) AddOnIDs() []string {
	ids := make([]string, 0, len(q.AddOns))
	for _, a := range q.AddOns {
		ids = append(ids, a.ID)
	}
	return ids
}
