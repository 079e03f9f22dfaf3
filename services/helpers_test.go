package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"fencing-backend/config"
	"fencing-backend/database"
	"fencing-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

type fixtures struct {
	customer models.Customer
	service  models.FencingService
	addon    models.FencingAddon
	post     models.CatalogItem
	wire     models.CatalogItem
}

func seedFixtures(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()
	var f fixtures

	f.customer = models.Customer{Name: "Thandi Mokoena", Email: "thandi@example.com", Phone: "082 555 0101", Address: "12 Acacia Rd"}
	require.NoError(t, db.Create(&f.customer).Error)

	f.post = models.CatalogItem{Name: "Steel post", Price: decimal.RequireFromString("85.00"), Unit: "each", Category: "posts", StockQuantity: 100}
	f.wire = models.CatalogItem{Name: "Razor wire", Price: decimal.RequireFromString("12.50"), Unit: "m", Category: "wire", StockQuantity: 5}
	require.NoError(t, db.Create(&f.post).Error)
	require.NoError(t, db.Create(&f.wire).Error)

	f.service = models.FencingService{
		Name:           "Palisade",
		PricePerMeter:  decimal.RequireFromString("100.00"),
		StandardHeight: decimal.RequireFromString("1.80"),
		Active:         true,
		Materials: []models.ServiceMaterial{
			{CatalogItemID: f.post.ID, QuantityPerMeter: decimal.RequireFromString("0.4")},
			{CatalogItemID: f.wire.ID, QuantityPerMeter: decimal.RequireFromString("1")},
		},
	}
	require.NoError(t, db.Omit("Materials.CatalogItem").Create(&f.service).Error)

	f.addon = models.FencingAddon{Name: "Pedestrian gate", Price: decimal.RequireFromString("250.00"), Active: true}
	require.NoError(t, db.Create(&f.addon).Error)
	return f
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []MailMessage
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeGateway struct {
	requests []CheckoutRequest
	session  CheckoutSession
	err      error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (CheckoutSession, error) {
	g.requests = append(g.requests, req)
	return g.session, g.err
}

type fakePhotoStore struct {
	saved map[string][]byte
	err   error
}

func (s *fakePhotoStore) Save(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[key] = buf.Bytes()
	return "https://cdn.test/" + key, nil
}

func newQuoteService(db *gorm.DB, mailer Mailer) *QuoteService {
	svc := NewQuoteService(db, NewAuditLogger(db, zap.NewNop()), mailer, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func countAudit(t *testing.T, db *gorm.DB, action string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("action = ?", action).Count(&n).Error)
	return n
}

// failAuditWrites makes every insert into audit_logs fail, as a database outage would.
func failAuditWrites(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_audit", func(tx *gorm.DB) {
		if tx.Statement.Table == "audit_logs" {
			_ = tx.AddError(errors.New("simulated audit outage"))
		}
	})
	require.NoError(t, err)
}

var testActor = Actor{UserID: "3f1f7a2e-1c55-4c7e-9a51-0f1f4d7b9e01", Email: "finance@fence.test"}
