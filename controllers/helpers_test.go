package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"

	"go-giftshop/cart"
	"go-giftshop/controllers"
	"go-giftshop/events"
	"go-giftshop/middleware"
	"go-giftshop/models"
	"go-giftshop/ordernumber"
	"go-giftshop/repository/memrepo"
	"go-giftshop/routes"
	"go-giftshop/services"
	"go-giftshop/utils"
)

var testNow = time.Date(2025, 5, 10, 18, 30, 0, 0, time.UTC)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "s3cret-pass"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []utils.Message
}

func (m *recordingMailer) Send(_ context.Context, msg utils.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) Sent() []utils.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]utils.Message(nil), m.sent...)
}

type testApp struct {
	store    *memrepo.Store
	carts    *cart.Store
	mailer   *recordingMailer
	emails   *utils.EmailService
	sessions *utils.SessionManager
	handler  http.Handler

	flowers models.Category
	rose    models.Product
	orchid  models.Product
	hidden  models.Product
}

type appOption func(*utils.AdminCredentials)

func withoutAdmin() appOption {
	return func(c *utils.AdminCredentials) { *c = utils.AdminCredentials{} }
}

func newTestApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()

	a := &testApp{
		store:    memrepo.New(),
		carts:    cart.NewStore(time.Hour),
		mailer:   &recordingMailer{},
		sessions: utils.NewSessionManager("test-session-secret", time.Hour),
	}
	a.emails = utils.NewEmailService(a.mailer, "tienda@example.com", currency.MXN)
	t.Cleanup(a.emails.Wait)

	credentials := utils.AdminCredentials{Email: adminEmail, Password: adminPassword}
	for _, opt := range opts {
		opt(&credentials)
	}

	clock := func() time.Time { return testNow }
	store := a.store.Port()
	allocator := ordernumber.New(a.store, ordernumber.WithClock(clock))
	service := services.NewOrderService(store, allocator, events.NopPublisher{}, a.emails, services.WithClock(clock))

	a.handler = routes.NewHandler(routes.Controllers{
		Auth:       controllers.NewAdminAuthController(credentials, a.sessions, true),
		Categories: controllers.NewCategoryController(store),
		Products:   controllers.NewProductController(store),
		Orders:     controllers.NewOrderController(service, store.Orders, a.carts, time.UTC),
		Cart:       controllers.NewCartController(a.carts, store.Products, false),
		Reviews:    controllers.NewReviewController(store),
		Coupons:    controllers.NewCouponController(store.Coupons, service),
		Countdowns: controllers.NewCountdownController(store.Countdowns),
		Newsletter: controllers.NewNewsletterController(store.Subscribers, a.emails),
	}, routes.Options{
		Sessions: a.sessions,
		Logger:   zerolog.Nop(),
	})

	ctx := t.Context()
	a.flowers = models.Category{Name: "Flores", Slug: "flores"}
	require.NoError(t, a.store.InsertCategory(ctx, &a.flowers))

	a.rose = a.seedProduct(t, "Ramo de rosas", "ramo-de-rosas", "450.50", true)
	a.orchid = a.seedProduct(t, "Orquídea blanca", "orquidea-blanca", "300", true)
	a.hidden = a.seedProduct(t, "Caja sorpresa", "caja-sorpresa", "199", false)

	return a
}

func (a *testApp) seedProduct(t *testing.T, name, slug, price string, active bool) models.Product {
	t.Helper()

	p := models.Product{
		Name:         name,
		Slug:         slug,
		Price:        decimal.RequireFromString(price),
		Images:       []string{slug + ".jpg"},
		CategoryID:   a.flowers.ID,
		CategorySlug: a.flowers.Slug,
		IsActive:     active,
		CreatedAt:    testNow,
	}
	require.NoError(t, a.store.InsertProduct(t.Context(), &p))
	return p
}

func (a *testApp) adminCookie(t *testing.T) *http.Cookie {
	t.Helper()

	token, _, err := a.sessions.Issue(adminEmail)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.AdminCookieName, Value: token}
}

func (a *testApp) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) admin(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, method, path, body, a.adminCookie(t))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type page[T any] struct {
	Items      []T   `json:"-"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func decodePage[T any](t *testing.T, rec *httptest.ResponseRecorder, key string) page[T] {
	t.Helper()

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())

	var p page[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.NoError(t, json.Unmarshal(raw[key], &p.Items))
	return p
}
