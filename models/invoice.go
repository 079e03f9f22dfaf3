package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type InvoiceStatus string

const (
	InvoicePending       InvoiceStatus = "PENDING"
	InvoicePartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoicePaid          InvoiceStatus = "PAID"
	InvoiceCancelled     InvoiceStatus = "CANCELLED"
)

// Invoice is the binding document produced by converting an approved quote.
type Invoice struct {
	Base
	InvoiceNumber string          `json:"invoiceNumber" gorm:"size:32;uniqueIndex;not null"`
	QuoteID       string          `json:"quoteId" gorm:"size:36;uniqueIndex;not null"`
	Quote         *FenceQuote     `json:"quote,omitempty" gorm:"foreignKey:QuoteID"`
	CustomerID    string          `json:"customerId" gorm:"size:36;not null;index"`
	Customer      *Customer       `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Subtotal      decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	Vat           decimal.Decimal `json:"vat" gorm:"type:numeric(12,2);not null"`
	Total         decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	PaidTotal     decimal.Decimal `json:"paidTotal" gorm:"type:numeric(12,2);not null"`
	Status        InvoiceStatus   `json:"status" gorm:"size:20;not null;index"`
	DueDate       *time.Time      `json:"dueDate"`

	// Immutable copy of the quote as it was when converted
	QuoteSnapshot datatypes.JSON `json:"quoteSnapshot,omitempty"`

	Payments []Payment `json:"payments,omitempty" gorm:"foreignKey:InvoiceID"`
}

// Balance is what remains to be paid.
func (inv *Invoice) Balance() decimal.Decimal {
	return inv.Total.Sub(inv.PaidTotal)
}

// InvoiceSequence is the per-year counter behind invoice numbers.
type InvoiceSequence struct {
	Year      int       `json:"year" gorm:"primaryKey;autoIncrement:false"`
	LastValue int64     `json:"lastValue" gorm:"not null"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PaymentType string

const (
	PaymentDeposit PaymentType = "DEPOSIT"
	PaymentBalance PaymentType = "BALANCE"
	PaymentManual  PaymentType = "MANUAL"
)

// Payment is a recorded payment event against an invoice.
type Payment struct {
	Base
	InvoiceID  string          `json:"invoiceId" gorm:"size:36;not null;index:idx_payments_invoice_paid_at,priority:1"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Method     string          `json:"method" gorm:"size:32"`
	Reference  string          `json:"reference" gorm:"size:255;index"`
	Type       PaymentType     `json:"type" gorm:"size:16"`
	Note       string          `json:"note"`
	RecordedBy string          `json:"recordedBy" gorm:"size:36"`
	PaidAt     time.Time       `json:"paidAt" gorm:"index:idx_payments_invoice_paid_at,priority:2"`
}
