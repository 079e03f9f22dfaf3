package services

import (
	"context"
	"encoding/json"

	"fencing-backend/models"
	"fencing-backend/utils"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionLogin           = "LOGIN"
	ActionLoginFailed     = "LOGIN_FAILED"
	ActionUserCreated     = "USER_CREATED"
	ActionUserUpdated     = "USER_UPDATED"
	ActionCustomerDeleted = "CUSTOMER_DELETED"
	ActionQuoteCreated    = "QUOTE_CREATED"
	ActionQuoteStatus     = "QUOTE_STATUS_CHANGED"
	ActionQuoteDeleted    = "QUOTE_DELETED"
	ActionQuoteConverted  = "QUOTE_CONVERTED"
	ActionQuoteEmailed    = "QUOTE_EMAILED"
	ActionCheckoutCreated = "CHECKOUT_CREATED"
	ActionPaymentRecorded = "PAYMENT_RECORDED"
	ActionInvoiceStatus   = "INVOICE_STATUS_CHANGED"
	ActionJobCompleted    = "JOB_COMPLETED"
	ActionJobPhotoAdded   = "JOB_PHOTO_ADDED"
	ActionTaxUpdated      = "TAX_SETTINGS_UPDATED"
	ActionExpenseChanged  = "EXPENSE_CHANGED"
)

// AuditEntry describes one action to record. Empty optional fields are stored as NULL.
type AuditEntry struct {
	Action      string
	EntityType  string
	EntityID    string
	PerformedBy string
	UserID      string
	Metadata    map[string]any
}

// AuditPublisher forwards persisted audit rows to an event stream.
type AuditPublisher interface {
	PublishAudit(ctx context.Context, log models.AuditLog) error
}

// AuditLogger appends audit rows. It is best effort: a failed write is logged
// and dropped, never returned to the business operation that triggered it.
type AuditLogger struct {
	db        *gorm.DB
	publisher AuditPublisher
	logger    *zap.Logger
}

func NewAuditLogger(db *gorm.DB, logger *zap.Logger) *AuditLogger {
	return &AuditLogger{db: db, logger: logger}
}

// WithPublisher attaches an optional stream publisher.
func (a *AuditLogger) WithPublisher(p AuditPublisher) *AuditLogger {
	a.publisher = p
	return a
}

// Record writes the entry on the root handle, outside any caller transaction.
func (a *AuditLogger) Record(ctx context.Context, e AuditEntry) {
	row := models.AuditLog{
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    optional(e.EntityID),
		PerformedBy: optional(e.PerformedBy),
		UserID:      optional(e.UserID),
	}
	if len(e.Metadata) > 0 {
		if raw, err := json.Marshal(e.Metadata); err == nil {
			row.Metadata = datatypes.JSON(raw)
		}
	}

	if err := a.db.WithContext(ctx).Create(&row).Error; err != nil {
		utils.AuditWriteFailures.Inc()
		a.logger.Warn("audit log write failed",
			zap.String("action", e.Action),
			zap.String("entity_type", e.EntityType),
			zap.String("entity_id", e.EntityID),
			zap.Error(err))
		return
	}

	if a.publisher != nil {
		if err := a.publisher.PublishAudit(ctx, row); err != nil {
			a.logger.Warn("audit event publish failed", zap.String("action", e.Action), zap.Error(err))
		}
	}
}

type AuditFilter struct {
	EntityType string
	EntityID   string
	Action     string
	Limit      int
	Offset     int
}

// List returns audit rows, newest first, with the total count for paging.
func (a *AuditLogger) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, int64, error) {
	q := a.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	var logs []models.AuditLog
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&logs).Error
	return logs, total, err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
