package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"fencing-backend/auth"
	"fencing-backend/config"
	"fencing-backend/controllers"
	"fencing-backend/database"
	"fencing-backend/integrations"
	"fencing-backend/models"
	"fencing-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_routes_test"

type stubGateway struct {
	session services.CheckoutSession
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, _ services.CheckoutRequest) (services.CheckoutSession, error) {
	return g.session, nil
}

type nopMailer struct{}

func (nopMailer) Send(context.Context, services.MailMessage) error { return nil }

type testServer struct {
	app      *fiber.App
	db       *gorm.DB
	sessions *auth.SessionManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, logger)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	sessions, err := auth.NewSessionManager("routes-test-secret", time.Hour)
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Env:            "development",
			BodyLimitBytes: 8 * 1024 * 1024,
			AllowedOrigins: "http://localhost:3000",
		},
		Auth:    config.AuthConfig{CookieName: "session"},
		Storage: config.StorageConfig{LocalDir: t.TempDir(), PublicURL: "/uploads"},
	}

	audit := services.NewAuditLogger(db, logger)
	stripe := integrations.NewStripeGateway("", webhookSecret)
	h := &controllers.Handler{
		DB:       db,
		Sessions: sessions,
		Cookie:   controllers.CookieConfig{Name: cfg.Auth.CookieName},
		Logger:   logger,
		Audit:    audit,
		Users:    services.NewUserService(db, sessions, audit, logger),
		Tax:      services.NewTaxService(db),
		Quotes:   services.NewQuoteService(db, audit, nopMailer{}, logger),
		Invoices: services.NewInvoiceService(db, audit, logger),
		Payments: services.NewPaymentService(db, audit,
			&stubGateway{session: services.CheckoutSession{ID: "cs_1", URL: "https://checkout.test/cs_1"}},
			logger, "zar", "https://fence.test"),
		Jobs:     services.NewJobService(db, audit, integrations.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicURL), logger),
		Webhooks: stripe,
	}

	return &testServer{app: NewApp(cfg, h, db, nil), db: db, sessions: sessions}
}

func (s *testServer) token(t *testing.T, role models.Role) string {
	t.Helper()
	tok, err := s.sessions.Issue(uuid.NewString(), role, string(role)+"@fence.test")
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *testServer) seedQuote(t *testing.T, email string, status models.QuoteStatus) models.FenceQuote {
	t.Helper()
	customer := models.Customer{Name: "Sipho", Email: email, Address: "4 Kloof St"}
	require.NoError(t, s.db.Create(&customer).Error)
	svc := models.FencingService{
		Name:           "Clear-view",
		PricePerMeter:  decimal.RequireFromString("150"),
		StandardHeight: decimal.RequireFromString("2"),
		Active:         true,
	}
	require.NoError(t, s.db.Create(&svc).Error)
	q := models.FenceQuote{
		CustomerID:       customer.ID,
		FencingServiceID: svc.ID,
		LengthMeters:     decimal.NewFromInt(10),
		HeightMeters:     decimal.NewFromInt(2),
		Terrain:          models.TerrainFlat,
		Subtotal:         decimal.RequireFromString("1500"),
		Vat:              decimal.RequireFromString("225"),
		Total:            decimal.RequireFromString("1725"),
		TaxName:          "VAT",
		TaxRate:          decimal.RequireFromString("0.15"),
		Status:           status,
	}
	require.NoError(t, s.db.Create(&q).Error)
	return q
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/api/customers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/customers", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tampered := s.token(t, models.RoleStaff) + "x"
	resp = s.do(t, http.MethodGet, "/api/customers", tampered, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/customers", s.token(t, models.RoleStaff), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteCustomerIsAdminOnly(t *testing.T) {
	s := newTestServer(t)
	customer := models.Customer{Name: "Lerato"}
	require.NoError(t, s.db.Create(&customer).Error)

	for _, role := range []models.Role{models.RoleStaff, models.RoleManager, models.RoleFinance} {
		resp := s.do(t, http.MethodDelete, "/api/customers/"+customer.ID, s.token(t, role), nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, role)
	}

	var count int64
	require.NoError(t, s.db.Model(&models.Customer{}).Where("id = ?", customer.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	resp := s.do(t, http.MethodDelete, "/api/customers/"+customer.ID, s.token(t, models.RoleAdmin), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NoError(t, s.db.Model(&models.Customer{}).Where("id = ?", customer.ID).Count(&count).Error)
	assert.Zero(t, count)

	var audits int64
	require.NoError(t, s.db.Model(&models.AuditLog{}).Where("action = ?", services.ActionCustomerDeleted).Count(&audits).Error)
	assert.EqualValues(t, 1, audits)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	s := newTestServer(t)
	user := models.User{Name: "Owner", Email: "owner@fence.test", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, user.SetPassword("correct horse"))
	require.NoError(t, s.db.Create(&user).Error)

	resp := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "owner@fence.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid credentials", decode(t, resp)["message"])

	resp = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "owner@fence.test", "password": "correct horse"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "session" {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: cookie.Value})
	me, err := s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, me.StatusCode)
	assert.Equal(t, user.ID, decode(t, me)["userId"])
}

func TestValidationErrorsUseJSONFieldNames(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/api/customers", s.token(t, models.RoleStaff), map[string]string{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode(t, resp)
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "required", errs["name"])
	assert.Equal(t, "email", errs["email"])
}

func TestConvertDraftQuoteIsRejected(t *testing.T) {
	s := newTestServer(t)
	q := s.seedQuote(t, "sipho@example.com", models.QuoteDraft)

	resp := s.do(t, http.MethodPost, "/api/fencing-quotes/"+q.ID+"/convert-to-invoice", s.token(t, models.RoleStaff), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/fencing-quotes/"+q.ID+"/convert-to-invoice", s.token(t, models.RoleFinance), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "quote must be approved before conversion", decode(t, resp)["message"])

	var invoices int64
	require.NoError(t, s.db.Model(&models.Invoice{}).Count(&invoices).Error)
	assert.Zero(t, invoices)
}

func TestCheckoutAndWebhookFlow(t *testing.T) {
	s := newTestServer(t)
	q := s.seedQuote(t, "sipho@example.com", models.QuoteApproved)

	resp := s.do(t, http.MethodPost, "/api/fencing-quotes/"+q.ID+"/convert-to-invoice", s.token(t, models.RoleAdmin), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	invoiceID := decode(t, resp)["id"].(string)

	// public payment portal
	resp = s.do(t, http.MethodPost, "/api/invoices/"+invoiceID+"/checkout", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	checkout := decode(t, resp)
	assert.Equal(t, "https://checkout.test/cs_1", checkout["url"])
	assert.EqualValues(t, 86250, checkout["amountMinor"])

	event := `{"id":"evt_9","object":"event","type":"checkout.session.completed","data":{"object":{` +
		`"id":"cs_1","object":"checkout.session","amount_total":86250,"payment_status":"paid",` +
		`"metadata":{"invoiceId":"` + invoiceID + `","type":"DEPOSIT"}}}}`
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(event),
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})

	send := func(sig string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(signed.Payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Stripe-Signature", sig)
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	resp = send("t=1,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = send(signed.Header)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["applied"])

	resp = send(signed.Header)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["duplicate"])

	var inv models.Invoice
	require.NoError(t, s.db.First(&inv, "id = ?", invoiceID).Error)
	assert.Equal(t, models.InvoicePartiallyPaid, inv.Status)
	assert.Equal(t, "862.50", inv.PaidTotal.StringFixed(2))
}

func TestEmailQuoteWithoutAddressIsSoftFailure(t *testing.T) {
	s := newTestServer(t)
	q := s.seedQuote(t, "", models.QuoteDraft)

	resp := s.do(t, http.MethodPost, "/api/fencing-quotes/"+q.ID+"/email", s.token(t, models.RoleStaff), nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "customer has no email address", body["error"])
}

func TestIdempotencyKeyReplaysResponse(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, models.RoleStaff)

	post := func(name string) *http.Response {
		raw, _ := json.Marshal(map[string]string{"name": name})
		req := httptest.NewRequest(http.MethodPost, "/api/customers", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Idempotency-Key", "create-customer-1")
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	first := post("Naledi")
	require.Equal(t, http.StatusCreated, first.StatusCode)
	second := post("Naledi")
	require.Equal(t, http.StatusCreated, second.StatusCode)
	assert.Equal(t, "true", second.Header.Get("Idempotent-Replayed"))
	assert.Equal(t, decode(t, first)["id"], decode(t, second)["id"])

	conflict := post("Someone else")
	assert.Equal(t, http.StatusConflict, conflict.StatusCode)

	var count int64
	require.NoError(t, s.db.Model(&models.Customer{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestJobPhotoUpload(t *testing.T) {
	s := newTestServer(t)
	q := s.seedQuote(t, "sipho@example.com", models.QuoteConverted)
	job := models.Job{QuoteID: q.ID, Status: models.JobScheduled}
	require.NoError(t, s.db.Create(&job).Error)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="photo"; filename="post.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, mw.WriteField("caption", "corner post"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/field/jobs/"+job.ID+"/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token(t, models.RoleStaff))
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode(t, resp)
	assert.True(t, strings.HasPrefix(body["url"].(string), "/uploads/jobs/"+job.ID+"/"))
	assert.Equal(t, "corner post", body["caption"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	s := newTestServer(t)

	post := func(token, name string) *http.Response {
		raw, _ := json.Marshal(map[string]string{"name": name})
		req := httptest.NewRequest(http.MethodPost, "/api/customers", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "retry-1")
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	alice, bob := s.token(t, models.RoleStaff), s.token(t, models.RoleStaff)

	first := post(alice, "Ayanda")
	require.Equal(t, http.StatusCreated, first.StatusCode)
	second := post(bob, "Bongani")
	require.Equal(t, http.StatusCreated, second.StatusCode)
	assert.Empty(t, second.Header.Get("Idempotent-Replayed"))
	assert.NotEqual(t, decode(t, first)["id"], decode(t, second)["id"])

	// each user still gets their own replay
	again := post(bob, "Bongani")
	require.Equal(t, http.StatusCreated, again.StatusCode)
	assert.Equal(t, "true", again.Header.Get("Idempotent-Replayed"))
	assert.Equal(t, "Bongani", decode(t, again)["name"])

	var count int64
	require.NoError(t, s.db.Model(&models.Customer{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
	require.NoError(t, s.db.Model(&models.IdempotencyKey{}).Where("key = ?", "retry-1").Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
