package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"time"

	"fencing-backend/models"
	"fencing-backend/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var validate = utils.NewValidator()

// TerrainFactors scale the labour price for difficult ground.
var TerrainFactors = map[models.Terrain]decimal.Decimal{
	models.TerrainFlat:   decimal.NewFromInt(1),
	models.TerrainSloped: decimal.RequireFromString("1.15"),
	models.TerrainRocky:  decimal.RequireFromString("1.30"),
}

// quoteTransitions lists the statuses reachable from each status by a plain
// status update. CONVERTED is reachable only through ConvertToInvoice.
var quoteTransitions = map[models.QuoteStatus][]models.QuoteStatus{
	models.QuoteDraft: {models.QuoteSent, models.QuoteApproved, models.QuoteRejected},
	models.QuoteSent:  {models.QuoteApproved, models.QuoteRejected},
}

const invoiceDueDays = 30

type CreateQuoteInput struct {
	CustomerID       string   `json:"customerId" validate:"required,uuid"`
	FencingServiceID string   `json:"fencingServiceId" validate:"required,uuid"`
	LengthMeters     float64  `json:"lengthMeters" validate:"required,gt=0"`
	HeightMeters     float64  `json:"heightMeters" validate:"required,gt=0"`
	Terrain          string   `json:"terrain" validate:"required,oneof=FLAT SLOPED ROCKY"`
	AddOnIDs         []string `json:"addOnIds" validate:"omitempty,dive,uuid"`
	Status           string   `json:"status" validate:"omitempty,oneof=DRAFT SENT APPROVED"`
	Notes            string   `json:"notes" validate:"max=2000"`
}

// Mailer delivers a message to one recipient.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

type MailMessage struct {
	To       string
	Subject  string
	HTMLBody string
}

type QuoteService struct {
	db     *gorm.DB
	audit  *AuditLogger
	mailer Mailer
	logger *zap.Logger
	now    func() time.Time
}

func NewQuoteService(db *gorm.DB, audit *AuditLogger, mailer Mailer, logger *zap.Logger) *QuoteService {
	return &QuoteService{db: db, audit: audit, mailer: mailer, logger: logger, now: time.Now}
}

// PriceQuote computes the pre-tax subtotal:
// pricePerMeter × length × (height / standardHeight) × terrainFactor + Σ add-on prices.
func PriceQuote(svc models.FencingService, length, height decimal.Decimal, terrain models.Terrain, addOns []models.FencingAddon) decimal.Decimal {
	heightFactor := decimal.NewFromInt(1)
	if svc.StandardHeight.IsPositive() {
		heightFactor = height.Div(svc.StandardHeight)
	}
	factor, ok := TerrainFactors[terrain]
	if !ok {
		factor = decimal.NewFromInt(1)
	}

	subtotal := svc.PricePerMeter.Mul(length).Mul(heightFactor).Mul(factor)
	for _, a := range addOns {
		subtotal = subtotal.Add(a.Price)
	}
	return utils.Round2(subtotal)
}

// Create validates the selection, prices it with the current tax rate and stores the quote.
func (s *QuoteService) Create(ctx context.Context, in CreateQuoteInput, actor Actor) (*models.FenceQuote, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var customer models.Customer
	if err := db.First(&customer, "id = ?", in.CustomerID).Error; err != nil {
		return nil, notFound("customer", err)
	}
	var service models.FencingService
	if err := db.First(&service, "id = ?", in.FencingServiceID).Error; err != nil {
		return nil, notFound("fencing service", err)
	}
	if !service.Active {
		return nil, invalid("fencingServiceId", "fencing service is not active")
	}

	addOns, err := s.loadAddOns(db, in.AddOnIDs)
	if err != nil {
		return nil, err
	}

	tax, err := currentTax(db)
	if err != nil {
		return nil, err
	}

	length := utils.Round2(decimal.NewFromFloat(in.LengthMeters))
	if !length.IsPositive() {
		return nil, invalid("lengthMeters", "must be at least 0.01")
	}
	height := utils.Round2(decimal.NewFromFloat(in.HeightMeters))
	if !height.IsPositive() {
		return nil, invalid("heightMeters", "must be at least 0.01")
	}
	terrain := models.Terrain(in.Terrain)
	subtotal := PriceQuote(service, length, height, terrain, addOns)
	// stored amounts are cents; total stays subtotal + vat after rounding
	vat := utils.Round2(CalculateTax(subtotal, tax.Rate).TaxAmount)

	status := models.QuoteDraft
	if in.Status != "" {
		status = models.QuoteStatus(in.Status)
	}

	quote := models.FenceQuote{
		CustomerID:       customer.ID,
		FencingServiceID: service.ID,
		LengthMeters:     length,
		HeightMeters:     height,
		Terrain:          terrain,
		AddOns:           addOns,
		Subtotal:         subtotal,
		Vat:              vat,
		Total:            subtotal.Add(vat),
		TaxName:          tax.Name,
		TaxRate:          tax.Rate,
		Status:           status,
		Notes:            in.Notes,
		CreatedBy:        actor.UserID,
	}
	if err := db.Omit("AddOns.*").Create(&quote).Error; err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}

	utils.QuotesCreatedTotal.Inc()
	s.audit.Record(ctx, AuditEntry{
		Action:      ActionQuoteCreated,
		EntityType:  "FenceQuote",
		EntityID:    quote.ID,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
		Metadata:    map[string]any{"total": quote.Total.StringFixed(2), "status": quote.Status},
	})

	quote.Customer = &customer
	quote.FencingService = &service
	return &quote, nil
}

func (s *QuoteService) loadAddOns(db *gorm.DB, ids []string) ([]models.FencingAddon, error) {
	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	if len(unique) == 0 {
		return []models.FencingAddon{}, nil
	}
	keys := make([]string, 0, len(unique))
	for id := range unique {
		keys = append(keys, id)
	}

	var addOns []models.FencingAddon
	if err := db.Where("id IN ?", keys).Order("name").Find(&addOns).Error; err != nil {
		return nil, err
	}
	if len(addOns) != len(keys) {
		return nil, invalid("addOnIds", "references an unknown add-on")
	}
	return addOns, nil
}

type QuoteFilter struct {
	Status     string
	CustomerID string
	Limit      int
	Offset     int
}

func (s *QuoteService) List(ctx context.Context, f QuoteFilter) ([]models.FenceQuote, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.FenceQuote{})
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
	var quotes []models.FenceQuote
	err := q.Preload("Customer").Preload("FencingService").Preload("AddOns").
		Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&quotes).Error
	return quotes, total, err
}

func (s *QuoteService) Get(ctx context.Context, id string) (*models.FenceQuote, error) {
	var quote models.FenceQuote
	err := s.db.WithContext(ctx).
		Preload("Customer").Preload("FencingService").Preload("AddOns").
		First(&quote, "id = ?", id).Error
	if err != nil {
		return nil, notFound("quote", err)
	}
	return &quote, nil
}

// UpdateStatus moves a quote forward along quoteTransitions.
func (s *QuoteService) UpdateStatus(ctx context.Context, id string, next models.QuoteStatus, actor Actor) (*models.FenceQuote, error) {
	var quote models.FenceQuote
	if err := s.db.WithContext(ctx).First(&quote, "id = ?", id).Error; err != nil {
		return nil, notFound("quote", err)
	}
	if quote.Status == models.QuoteConverted {
		return nil, ErrQuoteConverted
	}
	if next == models.QuoteConverted {
		return nil, NewDomainError("use convert-to-invoice to convert a quote")
	}
	if !canTransition(quote.Status, next) {
		return nil, NewDomainError(fmt.Sprintf("cannot move quote from %s to %s", quote.Status, next))
	}

	res := s.db.WithContext(ctx).Model(&models.FenceQuote{}).
		Where("id = ? AND status = ?", quote.ID, quote.Status).
		Update("status", next)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, NewDomainError("quote status changed concurrently, reload and retry")
	}

	s.audit.Record(ctx, AuditEntry{
		Action:      ActionQuoteStatus,
		EntityType:  "FenceQuote",
		EntityID:    quote.ID,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
		Metadata:    map[string]any{"from": quote.Status, "to": next},
	})
	quote.Status = next
	return &quote, nil
}

func canTransition(from, to models.QuoteStatus) bool {
	for _, allowed := range quoteTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Delete removes a quote that has not been converted.
func (s *QuoteService) Delete(ctx context.Context, id string, actor Actor) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quote models.FenceQuote
		if err := tx.First(&quote, "id = ?", id).Error; err != nil {
			return notFound("quote", err)
		}
		if quote.Status == models.QuoteConverted {
			return ErrQuoteConverted
		}
		return tx.Select("AddOns").Delete(&quote).Error
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:      ActionQuoteDeleted,
		EntityType:  "FenceQuote",
		EntityID:    id,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
	})
	return nil
}

// ConvertToInvoice turns an approved quote into its invoice. Number allocation,
// invoice insert and the quote's move to CONVERTED share one transaction.
func (s *QuoteService) ConvertToInvoice(ctx context.Context, quoteID string, actor Actor) (*models.Invoice, error) {
	now := s.now()
	var invoice models.Invoice

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quote models.FenceQuote
		if err := tx.Preload("AddOns").First(&quote, "id = ?", quoteID).Error; err != nil {
			return notFound("quote", err)
		}
		if quote.Status != models.QuoteApproved {
			return ErrQuoteNotApproved
		}

		number, err := nextInvoiceNumber(tx, now)
		if err != nil {
			return err
		}

		snapshot, err := json.Marshal(quote)
		if err != nil {
			return fmt.Errorf("snapshot quote: %w", err)
		}

		due := now.AddDate(0, 0, invoiceDueDays)
		invoice = models.Invoice{
			InvoiceNumber: number,
			QuoteID:       quote.ID,
			CustomerID:    quote.CustomerID,
			Subtotal:      quote.Subtotal,
			Vat:           quote.Vat,
			Total:         quote.Total,
			PaidTotal:     decimal.Zero,
			Status:        models.InvoicePending,
			DueDate:       &due,
			QuoteSnapshot: snapshot,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		res := tx.Model(&models.FenceQuote{}).
			Where("id = ? AND status = ?", quote.ID, models.QuoteApproved).
			Update("status", models.QuoteConverted)
		if res.Error != nil {
			return fmt.Errorf("mark quote converted: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrQuoteNotApproved
		}
		return nil
	})
	if err != nil {
		utils.QuoteConversionsFailed.WithLabelValues(conversionFailureReason(err)).Inc()
		return nil, err
	}

	utils.QuotesConvertedTotal.Inc()
	s.logger.Info("quote converted",
		zap.String("quote_id", quoteID),
		zap.String("invoice_id", invoice.ID),
		zap.String("invoice_number", invoice.InvoiceNumber))
	s.audit.Record(ctx, AuditEntry{
		Action:      ActionQuoteConverted,
		EntityType:  "FenceQuote",
		EntityID:    quoteID,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
		Metadata:    map[string]any{"invoiceId": invoice.ID, "invoiceNumber": invoice.InvoiceNumber},
	})
	return &invoice, nil
}

func conversionFailureReason(err error) string {
	var de *DomainError
	switch {
	case errors.Is(err, ErrQuoteNotApproved):
		return "not_approved"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &de):
		return "domain"
	}
	return "error"
}

var quoteEmailTemplate = template.Must(template.New("quote").Parse(`<p>Dear {{.Customer.Name}},</p>
<p>Thank you for your enquiry. Please find your fencing quote below.</p>
<table>
<tr><td>Service</td><td>{{.FencingService.Name}}</td></tr>
<tr><td>Length</td><td>{{.LengthMeters.StringFixed 2}} m</td></tr>
<tr><td>Height</td><td>{{.HeightMeters.StringFixed 2}} m</td></tr>
<tr><td>Terrain</td><td>{{.Terrain}}</td></tr>
{{range .AddOns}}<tr><td>{{.Name}}</td><td>{{.Price.StringFixed 2}}</td></tr>
{{end}}<tr><td>Subtotal</td><td>{{.Subtotal.StringFixed 2}}</td></tr>
<tr><td>{{.TaxName}}</td><td>{{.Vat.StringFixed 2}}</td></tr>
<tr><td><strong>Total</strong></td><td><strong>{{.Total.StringFixed 2}}</strong></td></tr>
</table>
<p>Reference: {{.ID}}</p>`))

// EmailQuote sends the quote to its customer. A draft quote becomes SENT.
// The audit entry is written only when the mail was accepted.
func (s *QuoteService) EmailQuote(ctx context.Context, quoteID string, actor Actor) error {
	quote, err := s.Get(ctx, quoteID)
	if err != nil {
		return err
	}
	if quote.Customer == nil || quote.Customer.Email == "" {
		return ErrCustomerNoEmail
	}

	var body bytes.Buffer
	if err := quoteEmailTemplate.Execute(&body, quote); err != nil {
		return fmt.Errorf("render quote email: %w", err)
	}

	msg := MailMessage{
		To:       quote.Customer.Email,
		Subject:  fmt.Sprintf("Your fencing quote (%s)", quote.ID[:8]),
		HTMLBody: body.String(),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("quote email failed", zap.String("quote_id", quote.ID), zap.Error(err))
		return &CollaboratorError{Service: "mail", Err: err}
	}

	if quote.Status == models.QuoteDraft {
		if err := s.db.WithContext(ctx).Model(&models.FenceQuote{}).
			Where("id = ? AND status = ?", quote.ID, models.QuoteDraft).
			Update("status", models.QuoteSent).Error; err != nil {
			s.logger.Warn("could not mark emailed quote as sent", zap.String("quote_id", quote.ID), zap.Error(err))
		}
	}

	s.audit.Record(ctx, AuditEntry{
		Action:      ActionQuoteEmailed,
		EntityType:  "FenceQuote",
		EntityID:    quote.ID,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
		Metadata:    map[string]any{"to": quote.Customer.Email},
	})
	return nil
}
