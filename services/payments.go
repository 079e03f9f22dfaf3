package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fencing-backend/models"
	"fencing-backend/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var depositShare = decimal.RequireFromString("0.50")

// CheckoutRequest asks the payment processor for a hosted checkout page.
type CheckoutRequest struct {
	InvoiceID     string
	Description   string
	CustomerEmail string
	Currency      string
	AmountMinor   int64
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// CheckoutSession is the processor's answer; URL is where the payer is redirected.
type CheckoutSession struct {
	ID  string
	URL string
}

type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
}

// CheckoutCompletion is a verified "checkout paid" notification from the processor.
type CheckoutCompletion struct {
	SessionID   string
	InvoiceID   string
	AmountMinor int64
	Type        models.PaymentType
}

// WebhookVerifier authenticates a webhook body against its signature header.
// It returns nil, nil for authentic events that carry no payment.
type WebhookVerifier interface {
	VerifyCheckoutEvent(payload []byte, signature string) (*CheckoutCompletion, error)
}

// DepositCheckout is returned to the payment portal.
type DepositCheckout struct {
	InvoiceID   string             `json:"invoiceId"`
	SessionID   string             `json:"sessionId"`
	URL         string             `json:"url"`
	Deposit     decimal.Decimal    `json:"deposit"`
	Type        models.PaymentType `json:"type"`
	AmountMinor int64              `json:"amountMinor"`
	Currency    string             `json:"currency"`
}

type PaymentInput struct {
	InvoiceID string
	Amount    decimal.Decimal
	Method    string
	Reference string
	Type      models.PaymentType
	Note      string
	PaidAt    time.Time
}

type PaymentService struct {
	db       *gorm.DB
	audit    *AuditLogger
	gateway  CheckoutGateway
	logger   *zap.Logger
	currency string
	baseURL  string
}

func NewPaymentService(db *gorm.DB, audit *AuditLogger, gateway CheckoutGateway, logger *zap.Logger, currency, baseURL string) *PaymentService {
	return &PaymentService{
		db:       db,
		audit:    audit,
		gateway:  gateway,
		logger:   logger,
		currency: currency,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// DepositAmount is half of the invoice total, rounded to cents.
func DepositAmount(total decimal.Decimal) decimal.Decimal {
	return utils.Round2(total.Mul(depositShare))
}

// CreateDepositCheckout opens a hosted checkout for 50% of the invoice total,
// or for the outstanding balance once a deposit has been paid.
func (s *PaymentService) CreateDepositCheckout(ctx context.Context, invoiceID string) (*DepositCheckout, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Quote.FencingService").
		First(&inv, "id = ?", invoiceID).Error
	if err != nil {
		return nil, notFound("invoice", err)
	}
	if inv.Status == models.InvoicePaid || inv.Status == models.InvoiceCancelled {
		return nil, ErrInvoiceClosed
	}

	var deposits int64
	err = s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("invoice_id = ? AND type = ?", inv.ID, models.PaymentDeposit).
		Count(&deposits).Error
	if err != nil {
		return nil, err
	}

	// Once the deposit is in, the portal collects the remaining balance instead.
	typ, label := models.PaymentDeposit, "Deposit"
	deposit := DepositAmount(inv.Total)
	if balance := inv.Balance(); deposits > 0 || balance.LessThan(deposit) {
		deposit = balance
		if deposits > 0 {
			typ, label = models.PaymentBalance, "Balance"
		}
	}
	minor := utils.ToMinorUnits(deposit)
	if minor <= 0 {
		return nil, ErrInvoiceClosed
	}

	description := fmt.Sprintf("%s for invoice %s", label, inv.InvoiceNumber)
	if inv.Quote != nil && inv.Quote.FencingService != nil {
		description = fmt.Sprintf("%s for invoice %s (%s)", label, inv.InvoiceNumber, inv.Quote.FencingService.Name)
	}
	req := CheckoutRequest{
		InvoiceID:   inv.ID,
		Description: description,
		Currency:    s.currency,
		AmountMinor: minor,
		SuccessURL:  fmt.Sprintf("%s/invoices/%s?payment=success", s.baseURL, inv.ID),
		CancelURL:   fmt.Sprintf("%s/invoices/%s?payment=cancelled", s.baseURL, inv.ID),
		Metadata: map[string]string{
			"invoiceId": inv.ID,
			"type":      string(typ),
		},
	}
	if inv.Customer != nil {
		req.CustomerEmail = inv.Customer.Email
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		utils.CheckoutSessionsTotal.WithLabelValues("error").Inc()
		s.logger.Error("checkout session failed", zap.String("invoice_id", inv.ID), zap.Error(err))
		return nil, &CollaboratorError{Service: "payments", Err: err}
	}
	if session.URL == "" {
		utils.CheckoutSessionsTotal.WithLabelValues("no_url").Inc()
		return nil, ErrCheckoutUnavailable
	}
	utils.CheckoutSessionsTotal.WithLabelValues("created").Inc()

	s.audit.Record(ctx, AuditEntry{
		Action:     ActionCheckoutCreated,
		EntityType: "Invoice",
		EntityID:   inv.ID,
		Metadata:   map[string]any{"sessionId": session.ID, "amountMinor": minor, "type": typ},
	})

	return &DepositCheckout{
		InvoiceID:   inv.ID,
		SessionID:   session.ID,
		URL:         session.URL,
		Deposit:     deposit,
		Type:        typ,
		AmountMinor: minor,
		Currency:    s.currency,
	}, nil
}

// RecordPayment stores a payment and rolls it into the invoice's paid total
// and status. A payment whose reference was already recorded is returned as is
// with duplicate == true, which makes webhook redelivery harmless.
func (s *PaymentService) RecordPayment(ctx context.Context, in PaymentInput, actor Actor) (payment *models.Payment, duplicate bool, err error) {
	if !in.Amount.IsPositive() {
		return nil, false, invalid("amount", "must be greater than zero")
	}
	in.Amount = utils.Round2(in.Amount)
	if in.PaidAt.IsZero() {
		in.PaidAt = time.Now().UTC()
	}
	if in.Type == "" {
		in.Type = models.PaymentManual
	}

	var inv models.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.Reference != "" {
			var existing models.Payment
			err := tx.Where("reference = ?", in.Reference).First(&existing).Error
			if err == nil {
				payment, duplicate = &existing, true
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, "id = ?", in.InvoiceID).Error; err != nil {
			return notFound("invoice", err)
		}
		if inv.Status == models.InvoicePaid || inv.Status == models.InvoiceCancelled {
			return ErrInvoiceClosed
		}
		if in.Amount.GreaterThan(inv.Balance()) {
			return ErrOverpayment
		}

		p := models.Payment{
			InvoiceID:  inv.ID,
			Amount:     in.Amount,
			Method:     in.Method,
			Reference:  in.Reference,
			Type:       in.Type,
			Note:       in.Note,
			RecordedBy: actor.UserID,
			PaidAt:     in.PaidAt,
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		inv.PaidTotal = inv.PaidTotal.Add(in.Amount)
		inv.Status = models.InvoicePartiallyPaid
		if !inv.PaidTotal.LessThan(inv.Total) {
			inv.Status = models.InvoicePaid
		}
		if err := tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(map[string]any{
			"paid_total": inv.PaidTotal,
			"status":     inv.Status,
		}).Error; err != nil {
			return fmt.Errorf("update invoice totals: %w", err)
		}
		payment = &p
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if duplicate {
		return payment, true, nil
	}

	utils.PaymentsRecordedTotal.WithLabelValues(payment.Method).Inc()
	s.logger.Info("payment recorded",
		zap.String("invoice_id", inv.ID),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("invoice_status", string(inv.Status)))
	s.audit.Record(ctx, AuditEntry{
		Action:      ActionPaymentRecorded,
		EntityType:  "Invoice",
		EntityID:    inv.ID,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
		Metadata: map[string]any{
			"paymentId": payment.ID,
			"amount":    payment.Amount.StringFixed(2),
			"method":    payment.Method,
			"reference": payment.Reference,
			"status":    inv.Status,
		},
	})
	return payment, false, nil
}

// ConfirmCheckout records the payment carried by a verified checkout completion.
func (s *PaymentService) ConfirmCheckout(ctx context.Context, c CheckoutCompletion) (*models.Payment, bool, error) {
	if c.InvoiceID == "" {
		return nil, false, invalid("invoiceId", "missing from checkout metadata")
	}
	typ := c.Type
	if typ == "" {
		typ = models.PaymentDeposit
	}
	return s.RecordPayment(ctx, PaymentInput{
		InvoiceID: c.InvoiceID,
		Amount:    utils.FromMinorUnits(c.AmountMinor),
		Method:    "card",
		Reference: c.SessionID,
		Type:      typ,
	}, Actor{Email: "payment-webhook"})
}

func (s *PaymentService) ListPayments(ctx context.Context, invoiceID string) ([]models.Payment, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).Select("id").First(&inv, "id = ?", invoiceID).Error; err != nil {
		return nil, notFound("invoice", err)
	}
	var payments []models.Payment
	err := s.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("paid_at ASC").Find(&payments).Error
	return payments, err
}
