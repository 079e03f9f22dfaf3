package services

import (
	"context"
	"fmt"
	"time"

	"fencing-backend/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// nextInvoiceNumber allocates INV-{year}-{seq:04d} inside tx. The per-year row
// is created at count-of-existing+1 and incremented by upsert afterwards, so two
// converting transactions serialise on the row instead of reading the same count.
func nextInvoiceNumber(tx *gorm.DB, now time.Time) (string, error) {
	year := now.Year()
	prefix := fmt.Sprintf("INV-%d-", year)

	var existing int64
	if err := tx.Model(&models.Invoice{}).Where("invoice_number LIKE ?", prefix+"%").Count(&existing).Error; err != nil {
		return "", fmt.Errorf("count invoices: %w", err)
	}

	seq := models.InvoiceSequence{Year: year, LastValue: existing + 1}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "year"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_value": gorm.Expr("invoice_sequences.last_value + 1"),
			"updated_at": now,
		}),
	}).Create(&seq).Error
	if err != nil {
		return "", fmt.Errorf("advance invoice sequence: %w", err)
	}

	if err := tx.First(&seq, "year = ?", year).Error; err != nil {
		return "", fmt.Errorf("read invoice sequence: %w", err)
	}
	return fmt.Sprintf("%s%04d", prefix, seq.LastValue), nil
}

type InvoiceService struct {
	db     *gorm.DB
	audit  *AuditLogger
	logger *zap.Logger
}

func NewInvoiceService(db *gorm.DB, audit *AuditLogger, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{db: db, audit: audit, logger: logger}
}

type InvoiceFilter struct {
	Status     string
	CustomerID string
	Limit      int
	Offset     int
}

func (s *InvoiceService) List(ctx context.Context, f InvoiceFilter) ([]models.Invoice, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Invoice{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	var invoices []models.Invoice
	err := q.Preload("Customer").Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&invoices).Error
	return invoices, total, err
}

// Get loads an invoice with its customer, quote and payments.
func (s *InvoiceService) Get(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Quote").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC") }).
		First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, notFound("invoice", err)
	}
	return &inv, nil
}

// Cancel closes an unpaid invoice. Invoices with recorded payments stay open.
func (s *InvoiceService) Cancel(ctx context.Context, id string, actor Actor) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&inv, "id = ?", id).Error; err != nil {
			return notFound("invoice", err)
		}
		if inv.Status != models.InvoicePending || inv.PaidTotal.IsPositive() {
			return NewDomainError("only unpaid pending invoices can be cancelled")
		}
		inv.Status = models.InvoiceCancelled
		return tx.Model(&inv).Update("status", inv.Status).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:      ActionInvoiceStatus,
		EntityType:  "Invoice",
		EntityID:    inv.ID,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
		Metadata:    map[string]any{"status": inv.Status, "invoiceNumber": inv.InvoiceNumber},
	})
	return &inv, nil
}
