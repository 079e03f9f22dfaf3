package services

import (
	"context"
	"errors"
	"testing"

	"fencing-backend/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createQuote(t *testing.T, svc *QuoteService, f fixtures, status string) *models.FenceQuote {
	t.Helper()
	q, err := svc.Create(context.Background(), CreateQuoteInput{
		CustomerID:       f.customer.ID,
		FencingServiceID: f.service.ID,
		LengthMeters:     10,
		HeightMeters:     1.8,
		Terrain:          "FLAT",
		AddOnIDs:         []string{f.addon.ID},
		Status:           status,
	}, testActor)
	require.NoError(t, err)
	return q
}

func TestPriceQuote(t *testing.T) {
	svc := models.FencingService{
		PricePerMeter:  decimal.RequireFromString("100"),
		StandardHeight: decimal.RequireFromString("1.8"),
	}
	gate := models.FencingAddon{Price: decimal.RequireFromString("250")}

	flat := PriceQuote(svc, decimal.NewFromInt(10), decimal.RequireFromString("1.8"), models.TerrainFlat, []models.FencingAddon{gate})
	assert.Equal(t, "1250.00", flat.StringFixed(2))

	rocky := PriceQuote(svc, decimal.NewFromInt(10), decimal.RequireFromString("2.7"), models.TerrainRocky, nil)
	assert.Equal(t, "1950.00", rocky.StringFixed(2))

	sloped := PriceQuote(svc, decimal.RequireFromString("3.33"), decimal.RequireFromString("1.8"), models.TerrainSloped, nil)
	assert.Equal(t, "382.95", sloped.StringFixed(2))
}

func TestCreateQuoteAppliesCurrentTax(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newQuoteService(db, &fakeMailer{})

	q := createQuote(t, svc, f, "")

	assert.Equal(t, models.QuoteDraft, q.Status)
	assert.Equal(t, "1250.00", q.Subtotal.StringFixed(2))
	assert.Equal(t, "187.50", q.Vat.StringFixed(2))
	assert.Equal(t, "1437.50", q.Total.StringFixed(2))
	assert.Equal(t, "VAT", q.TaxName)
	assert.EqualValues(t, 1, countAudit(t, db, ActionQuoteCreated))

	stored, err := svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	require.Len(t, stored.AddOns, 1)
	assert.Equal(t, f.addon.ID, stored.AddOns[0].ID)
	assert.Equal(t, "1437.50", stored.Total.StringFixed(2))
}

func TestCreateQuoteRoundsVatToCents(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newQuoteService(db, &fakeMailer{})

	q, err := svc.Create(context.Background(), CreateQuoteInput{
		CustomerID:       f.customer.ID,
		FencingServiceID: f.service.ID,
		LengthMeters:     3.33,
		HeightMeters:     1.8,
		Terrain:          "SLOPED",
	}, testActor)
	require.NoError(t, err)

	// 382.95 * 0.15 = 57.4425
	assert.Equal(t, "382.95", q.Subtotal.StringFixed(2))
	assert.Equal(t, "57.44", q.Vat.String())
	assert.Equal(t, "440.39", q.Total.String())
	assert.True(t, q.Total.Equal(q.Subtotal.Add(q.Vat)))
}

func TestCreateQuoteValidation(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newQuoteService(db, &fakeMailer{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateQuoteInput{
		CustomerID:       f.customer.ID,
		FencingServiceID: f.service.ID,
		LengthMeters:     10,
		HeightMeters:     1.8,
		Terrain:          "SWAMP",
	}, testActor)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	_, err = svc.Create(ctx, CreateQuoteInput{
		CustomerID:       f.customer.ID,
		FencingServiceID: f.service.ID,
		LengthMeters:     10,
		HeightMeters:     1.8,
		Terrain:          "FLAT",
		AddOnIDs:         []string{"7d1c1b7e-95d1-4c3e-8a58-1f7f0a9c2b11"},
	}, testActor)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "addOnIds", ve.Field)

	_, err = svc.Create(ctx, CreateQuoteInput{
		CustomerID:       "7d1c1b7e-95d1-4c3e-8a58-1f7f0a9c2b11",
		FencingServiceID: f.service.ID,
		LengthMeters:     10,
		HeightMeters:     1.8,
		Terrain:          "FLAT",
	}, testActor)
	assert.ErrorIs(t, err, ErrNotFound)

	// positive before rounding, zero once stored in cents
	_, err = svc.Create(ctx, CreateQuoteInput{
		CustomerID:       f.customer.ID,
		FencingServiceID: f.service.ID,
		LengthMeters:     0.004,
		HeightMeters:     1.8,
		Terrain:          "FLAT",
	}, testActor)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "lengthMeters", ve.Field)

	_, err = svc.Create(ctx, CreateQuoteInput{
		CustomerID:       f.customer.ID,
		FencingServiceID: f.service.ID,
		LengthMeters:     10,
		HeightMeters:     0.001,
		Terrain:          "FLAT",
	}, testActor)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "heightMeters", ve.Field)

	var count int64
	require.NoError(t, db.Model(&models.FenceQuote{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConvertDraftQuoteFails(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newQuoteService(db, &fakeMailer{})
	q := createQuote(t, svc, f, "")

	_, err := svc.ConvertToInvoice(context.Background(), q.ID, testActor)
	require.ErrorIs(t, err, ErrQuoteNotApproved)
	assert.Equal(t, "quote must be approved before conversion", err.Error())

	var invoices int64
	require.NoError(t, db.Model(&models.Invoice{}).Count(&invoices).Error)
	assert.Zero(t, invoices)

	stored, err := svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteDraft, stored.Status)
}

func TestConvertApprovedQuoteOnce(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newQuoteService(db, &fakeMailer{})
	q := createQuote(t, svc, f, "APPROVED")
	ctx := context.Background()

	inv, err := svc.ConvertToInvoice(ctx, q.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0001", inv.InvoiceNumber)
	assert.Equal(t, models.InvoicePending, inv.Status)
	assert.True(t, inv.Total.Equal(q.Total))
	assert.True(t, inv.PaidTotal.IsZero())
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, fixedNow.AddDate(0, 0, 30), *inv.DueDate)
	assert.NotEmpty(t, inv.QuoteSnapshot)

	stored, err := svc.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteConverted, stored.Status)

	_, err = svc.ConvertToInvoice(ctx, q.ID, testActor)
	require.ErrorIs(t, err, ErrQuoteNotApproved)

	var invoices int64
	require.NoError(t, db.Model(&models.Invoice{}).Where("quote_id = ?", q.ID).Count(&invoices).Error)
	assert.EqualValues(t, 1, invoices)
	assert.EqualValues(t, 1, countAudit(t, db, ActionQuoteConverted))
}

func TestInvoiceNumbersIncrease(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newQuoteService(db, &fakeMailer{})
	ctx := context.Background()

	var numbers []string
	for i := 0; i < 3; i++ {
		q := createQuote(t, svc, f, "APPROVED")
		inv, err := svc.ConvertToInvoice(ctx, q.ID, testActor)
		require.NoError(t, err)
		numbers = append(numbers, inv.InvoiceNumber)
	}
	assert.Equal(t, []string{"INV-2026-0001", "INV-2026-0002", "INV-2026-0003"}, numbers)
}

func TestInvoiceSequenceSeedsFromExistingInvoices(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newQuoteService(db, &fakeMailer{})
	ctx := context.Background()

	legacy := createQuote(t, svc, f, "APPROVED")
	require.NoError(t, db.Create(&models.Invoice{
		InvoiceNumber: "INV-2026-0007",
		QuoteID:       legacy.ID,
		CustomerID:    f.customer.ID,
		Status:        models.InvoicePending,
	}).Error)
	require.NoError(t, db.Model(&models.FenceQuote{}).Where("id = ?", legacy.ID).Update("status", models.QuoteConverted).Error)

	q := createQuote(t, svc, f, "APPROVED")
	inv, err := svc.ConvertToInvoice(ctx, q.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0002", inv.InvoiceNumber)
}

func TestUpdateQuoteStatusTransitions(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newQuoteService(db, &fakeMailer{})
	ctx := context.Background()
	q := createQuote(t, svc, f, "")

	updated, err := svc.UpdateStatus(ctx, q.ID, models.QuoteSent, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteSent, updated.Status)

	_, err = svc.UpdateStatus(ctx, q.ID, models.QuoteDraft, testActor)
	var de *DomainError
	require.ErrorAs(t, err, &de)

	_, err = svc.UpdateStatus(ctx, q.ID, models.QuoteConverted, testActor)
	require.ErrorAs(t, err, &de)

	_, err = svc.UpdateStatus(ctx, q.ID, models.QuoteApproved, testActor)
	require.NoError(t, err)
	_, err = svc.ConvertToInvoice(ctx, q.ID, testActor)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, q.ID, models.QuoteRejected, testActor)
	assert.ErrorIs(t, err, ErrQuoteConverted)
	assert.EqualValues(t, 2, countAudit(t, db, ActionQuoteStatus))
}

func TestDeleteQuote(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newQuoteService(db, &fakeMailer{})
	ctx := context.Background()

	draft := createQuote(t, svc, f, "")
	require.NoError(t, svc.Delete(ctx, draft.ID, testActor))
	_, err := svc.Get(ctx, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	converted := createQuote(t, svc, f, "APPROVED")
	_, err = svc.ConvertToInvoice(ctx, converted.ID, testActor)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(ctx, converted.ID, testActor), ErrQuoteConverted)
}

func TestEmailQuote(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	mailer := &fakeMailer{}
	svc := newQuoteService(db, mailer)
	ctx := context.Background()
	q := createQuote(t, svc, f, "")

	require.NoError(t, svc.EmailQuote(ctx, q.ID, testActor))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "thandi@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].HTMLBody, "1437.50")
	assert.Contains(t, mailer.sent[0].HTMLBody, "Pedestrian gate")

	stored, err := svc.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteSent, stored.Status)
	assert.EqualValues(t, 1, countAudit(t, db, ActionQuoteEmailed))
}

func TestEmailQuoteWithoutCustomerEmail(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	mailer := &fakeMailer{}
	svc := newQuoteService(db, mailer)
	q := createQuote(t, svc, f, "")
	require.NoError(t, db.Model(&models.Customer{}).Where("id = ?", f.customer.ID).Update("email", "").Error)

	err := svc.EmailQuote(context.Background(), q.ID, testActor)

	assert.ErrorIs(t, err, ErrCustomerNoEmail)
	assert.Empty(t, mailer.sent)
	assert.Zero(t, countAudit(t, db, ActionQuoteEmailed))
}

func TestEmailQuoteMailerFailure(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	mailer := &fakeMailer{err: errors.New("smtp: connection refused")}
	svc := newQuoteService(db, mailer)
	q := createQuote(t, svc, f, "")

	err := svc.EmailQuote(context.Background(), q.ID, testActor)

	var ce *CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "mail", ce.Service)
	assert.Zero(t, countAudit(t, db, ActionQuoteEmailed))

	var stored models.FenceQuote
	require.NoError(t, db.Session(&gorm.Session{}).First(&stored, "id = ?", q.ID).Error)
	assert.Equal(t, models.QuoteDraft, stored.Status)
}
