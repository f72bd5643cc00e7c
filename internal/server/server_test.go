package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/202030481266/FengWenServer/internal/auth"
	"github.com/202030481266/FengWenServer/internal/config"
	"github.com/202030481266/FengWenServer/internal/domain"
)

const (
	testAdminUser     = "admin"
	testAdminPassword = "test-password-123"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

var healthyPinger = pingerFunc(func(ctx context.Context) error { return nil })

type mockRecords struct {
	createFn        func(ctx context.Context, record *domain.AstrologyRecord) (*domain.AstrologyRecord, error)
	getByIDFn       func(ctx context.Context, id int64) (*domain.AstrologyRecord, error)
	latestByEmailFn func(ctx context.Context, email string) (*domain.AstrologyRecord, error)
	saveResultsFn   func(ctx context.Context, id int64, previewZH, previewEN, fullZH, fullEN string) error
	markPurchasedFn func(ctx context.Context, id int64, shopifyOrderID string) error
}

func (m *mockRecords) Create(ctx context.Context, record *domain.AstrologyRecord) (*domain.AstrologyRecord, error) {
	return m.createFn(ctx, record)
}

func (m *mockRecords) GetByID(ctx context.Context, id int64) (*domain.AstrologyRecord, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockRecords) GetLatestByEmail(ctx context.Context, email string) (*domain.AstrologyRecord, error) {
	return m.latestByEmailFn(ctx, email)
}

func (m *mockRecords) SaveResults(ctx context.Context, id int64, previewZH, previewEN, fullZH, fullEN string) error {
	return m.saveResultsFn(ctx, id, previewZH, previewEN, fullZH, fullEN)
}

func (m *mockRecords) MarkPurchased(ctx context.Context, id int64, shopifyOrderID string) error {
	return m.markPurchasedFn(ctx, id, shopifyOrderID)
}

type mockProducts struct {
	listFn        func(ctx context.Context) ([]domain.Product, error)
	ensureThreeFn func(ctx context.Context) ([]domain.Product, error)
	getByIDFn     func(ctx context.Context, id int64) (*domain.Product, error)
	updateFn      func(ctx context.Context, id int64, name, imageURL, redirectURL *string) (*domain.Product, error)
}

func (m *mockProducts) List(ctx context.Context) ([]domain.Product, error) { return m.listFn(ctx) }

func (m *mockProducts) EnsureThree(ctx context.Context) ([]domain.Product, error) {
	return m.ensureThreeFn(ctx)
}

func (m *mockProducts) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockProducts) Update(ctx context.Context, id int64, name, imageURL, redirectURL *string) (*domain.Product, error) {
	return m.updateFn(ctx, id, name, imageURL, redirectURL)
}

type mockTranslations struct {
	listFn   func(ctx context.Context) ([]domain.TranslationPair, error)
	createFn func(ctx context.Context, chineseText, englishText string) (*domain.TranslationPair, error)
	updateFn func(ctx context.Context, id int64, chineseText, englishText string) (*domain.TranslationPair, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockTranslations) List(ctx context.Context) ([]domain.TranslationPair, error) {
	return m.listFn(ctx)
}

func (m *mockTranslations) Create(ctx context.Context, chineseText, englishText string) (*domain.TranslationPair, error) {
	return m.createFn(ctx, chineseText, englishText)
}

func (m *mockTranslations) Update(ctx context.Context, id int64, chineseText, englishText string) (*domain.TranslationPair, error) {
	return m.updateFn(ctx, id, chineseText, englishText)
}

func (m *mockTranslations) Delete(ctx context.Context, id int64) error { return m.deleteFn(ctx, id) }

type mockSiteConfig struct {
	getFn  func(ctx context.Context, key string) (*domain.SiteConfig, error)
	setFn  func(ctx context.Context, key, value string) (*domain.SiteConfig, error)
	listFn func(ctx context.Context) ([]domain.SiteConfig, error)
}

func (m *mockSiteConfig) Get(ctx context.Context, key string) (*domain.SiteConfig, error) {
	return m.getFn(ctx, key)
}

func (m *mockSiteConfig) Set(ctx context.Context, key, value string) (*domain.SiteConfig, error) {
	return m.setFn(ctx, key, value)
}

func (m *mockSiteConfig) List(ctx context.Context) ([]domain.SiteConfig, error) {
	return m.listFn(ctx)
}

type mockCache struct {
	getFn        func(ctx context.Context, key string, dest any) (bool, error)
	setFn        func(ctx context.Context, key string, value any, ttl time.Duration) error
	invalidateFn func(ctx context.Context, email string) error
}

func (m *mockCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if m.getFn == nil {
		return false, nil
	}
	return m.getFn(ctx, key, dest)
}

func (m *mockCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if m.setFn == nil {
		return nil
	}
	return m.setFn(ctx, key, value, ttl)
}

func (m *mockCache) InvalidateEmail(ctx context.Context, email string) error {
	if m.invalidateFn == nil {
		return nil
	}
	return m.invalidateFn(ctx, email)
}

type mockReadings struct {
	createFn  func(ctx context.Context, email, name, birthDate, birthTime, gender string) (*domain.AstrologyRecord, error)
	processFn func(ctx context.Context, record *domain.AstrologyRecord) map[string]any
}

func (m *mockReadings) CreateRecord(ctx context.Context, email, name, birthDate, birthTime, gender string) (*domain.AstrologyRecord, error) {
	return m.createFn(ctx, email, name, birthDate, birthTime, gender)
}

func (m *mockReadings) ProcessComplete(ctx context.Context, record *domain.AstrologyRecord) map[string]any {
	return m.processFn(ctx, record)
}

type mockVerifier struct {
	sendFn    func(ctx context.Context, email string) error
	verifyFn  func(ctx context.Context, email, code string) error
	recentFn  func(ctx context.Context, email string) (bool, error)
	pendingFn func(ctx context.Context, email string) (string, error)
}

func (m *mockVerifier) SendCode(ctx context.Context, email string) error { return m.sendFn(ctx, email) }

func (m *mockVerifier) VerifyCode(ctx context.Context, email, code string) error {
	return m.verifyFn(ctx, email, code)
}

func (m *mockVerifier) IsRecentlyVerified(ctx context.Context, email string) (bool, error) {
	return m.recentFn(ctx, email)
}

func (m *mockVerifier) PendingCode(ctx context.Context, email string) (string, error) {
	return m.pendingFn(ctx, email)
}

type mockMailer struct {
	sent []string
	err  error
}

func (m *mockMailer) SendReadingResult(ctx context.Context, address, name string, reading map[string]any) error {
	m.sent = append(m.sent, address)
	return m.err
}

type mockWebhookVerifier struct {
	valid bool
}

func (m *mockWebhookVerifier) VerifyWebhook(body []byte, signature string) bool { return m.valid }

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:              "test",
		Port:                "8000",
		ResultCacheTTL:      time.Hour,
		CheckoutFallbackURL: "https://fengculture.com/checkout",
	}
}

func newTestAuthManager(t *testing.T) *auth.Manager {
	t.Helper()
	manager, err := auth.NewManager("test-secret-key-at-least-32-chars!!", testAdminUser, testAdminPassword, clockwork.NewRealClock())
	require.NoError(t, err)
	return manager
}

// newTestServer builds a server with healthy defaults. Tests override the
// dependencies they exercise.
func newTestServer(t *testing.T, mutate func(deps *Dependencies)) *Server {
	t.Helper()

	deps := Dependencies{
		DB:           healthyPinger,
		Redis:        healthyPinger,
		Records:      &mockRecords{},
		Products:     &mockProducts{},
		Translations: &mockTranslations{},
		SiteConfig:   &mockSiteConfig{},
		Cache:        &mockCache{},
		Readings:     &mockReadings{},
		Verification: &mockVerifier{},
		Mailer:       &mockMailer{},
		Webhook:      &mockWebhookVerifier{valid: true},
		Auth:         newTestAuthManager(t),
	}
	if mutate != nil {
		mutate(&deps)
	}

	return NewServer(testConfig(), deps)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func adminToken(t *testing.T, srv *Server) string {
	t.Helper()
	token, err := srv.deps.Auth.Login(testAdminUser, testAdminPassword)
	require.NoError(t, err)
	return token
}
