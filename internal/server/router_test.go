package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront-be/internal/auth"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/product"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

// stubProducts only answers ImagesEnabled; route registration needs nothing else.
type stubProducts struct {
	product.Service
}

func (stubProducts) ImagesEnabled() bool { return false }

const internalKey = "svc-key"

func newTestRouter(db Pinger, secret string) http.Handler {
	counters := &metrics.Checkout{}
	counters.OrdersPlaced.Inc()
	return NewRouter(Deps{
		DB:            db,
		Tokens:        auth.NewTokenManager("test-secret"),
		Limiter:       middleware.NewRateLimiter(internalKey),
		Counters:      counters,
		Products:      stubProducts{},
		WebhookSecret: secret,
		CORSOrigins:   []string{"http://localhost:5173"},
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Run("Up with counters for internal callers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Service-Auth", internalKey)

		rec := serve(newTestRouter(fakePinger{}, ""), req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "up", body["database"])
		checkout := body["checkout"].(map[string]any)
		assert.Equal(t, float64(1), checkout["orders_placed"])
	})

	t.Run("Public callers see no counters", func(t *testing.T) {
		rec := serve(newTestRouter(fakePinger{}, ""), httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "checkout")
	})

	t.Run("Database down", func(t *testing.T) {
		rec := serve(newTestRouter(fakePinger{err: errors.New("refused")}, ""), httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"database":"down"`)
	})
}

func TestRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(logger.RequestIDHeader, "req-123")

	rec := serve(newTestRouter(fakePinger{}, ""), req)

	assert.Equal(t, "req-123", rec.Header().Get(logger.RequestIDHeader))
}

func TestUnknownRoute(t *testing.T) {
	rec := serve(newTestRouter(fakePinger{}, ""), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders/my-orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	rec := serve(newTestRouter(fakePinger{}, ""), req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnonymousOrders(t *testing.T) {
	rec := serve(newTestRouter(fakePinger{}, ""), httptest.NewRequest(http.MethodGet, "/orders/my-orders", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookRoute(t *testing.T) {
	t.Run("Not mounted without secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", strings.NewReader(`{}`))

		rec := serve(newTestRouter(fakePinger{}, ""), req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Rejects unsigned body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", strings.NewReader(`{"event":"payment.captured"}`))
		req.Header.Set("X-Razorpay-Signature", "bad")

		rec := serve(newTestRouter(fakePinger{}, "whsec"), req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/orders/place-order", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(newTestRouter(fakePinger{}, ""), req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
