package models

import "github.com/shopspring/decimal"

// FencingService is a labour offering priced per linear meter at its standard height.
type FencingService struct {
	Base
	Name           string            `json:"name" gorm:"not null"`
	Description    string            `json:"description"`
	PricePerMeter  decimal.Decimal   `json:"pricePerMeter" gorm:"type:numeric(12,2);not null"`
	StandardHeight decimal.Decimal   `json:"standardHeight" gorm:"type:numeric(6,2);not null"`
	Active         bool              `json:"active"`
	Materials      []ServiceMaterial `json:"materials" gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE"`
}

// ServiceMaterial is one bill-of-materials line, consumed per meter of fence.
type ServiceMaterial struct {
	Base
	ServiceID        string          `json:"serviceId" gorm:"size:36;not null;index"`
	CatalogItemID    string          `json:"catalogItemId" gorm:"size:36;not null;index"`
	CatalogItem      *CatalogItem    `json:"catalogItem,omitempty" gorm:"foreignKey:CatalogItemID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	QuantityPerMeter decimal.Decimal `json:"quantityPerMeter" gorm:"type:numeric(10,3);not null"`
}

type FencingAddon struct {
	Base
	Name   string          `json:"name" gorm:"not null"`
	Price  decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Active bool            `json:"active"`
}
