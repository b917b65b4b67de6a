package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-be/internal/auth"
	"storefront-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAuth(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret)

	t.Run("Missing Token", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetUserIDFromContext(r.Context())
			assert.False(t, ok, "Context should not contain user ID")
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest("GET", "/protected", nil)
		w := httptest.NewRecorder()

		AuthMiddleware(tokens)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		AuthMiddleware(tokens)(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid Token", func(t *testing.T) {
		tokenString, err := tokens.Generate(1, "shopper@example.com", auth.RoleShopper)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, uint(1), userID)
			assert.Equal(t, auth.RoleShopper, utils.GetUserRoleFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		})

		AuthMiddleware(tokens)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Cookie Token", func(t *testing.T) {
		tokenString, err := tokens.Generate(3, "seller@example.com", auth.RoleSeller)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: tokenString})
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := utils.GetUserIDFromContext(r.Context())
			assert.Equal(t, uint(3), userID)
			w.WriteHeader(http.StatusOK)
		})

		AuthMiddleware(tokens)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Expired Token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": 1,
			"role":    "shopper",
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})
		tokenString, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()

		AuthMiddleware(tokens)(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Malformed Header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Basic user:pass")
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetUserIDFromContext(r.Context())
			assert.False(t, ok)
			w.WriteHeader(http.StatusOK)
		})

		AuthMiddleware(tokens)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	run := func(ctx context.Context, mw echo.MiddlewareFunc) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		require.NoError(t, mw(ok)(c))
		return rec.Code
	}

	seller := utils.SetUserContext(context.Background(), 2, "s@example.com", auth.RoleSeller)
	shopper := utils.SetUserContext(context.Background(), 3, "u@example.com", auth.RoleShopper)

	assert.Equal(t, http.StatusUnauthorized, run(context.Background(), RequireRole(auth.RoleSeller)))
	assert.Equal(t, http.StatusForbidden, run(shopper, RequireRole(auth.RoleSeller, auth.RoleAdmin)))
	assert.Equal(t, http.StatusOK, run(seller, RequireRole(auth.RoleSeller, auth.RoleAdmin)))
	assert.Equal(t, http.StatusUnauthorized, run(context.Background(), RequireAuth()))
	assert.Equal(t, http.StatusOK, run(shopper, RequireAuth()))
}

func TestRateLimiter(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Strict tier on payment paths", func(t *testing.T) {
		l := NewRateLimiter("")
		h := l.Middleware(ok)

		codes := make([]int, 0, burstStrict+1)
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/orders/razorpay/verify-payment", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}

		assert.Equal(t, http.StatusOK, codes[0])
		assert.Equal(t, http.StatusTooManyRequests, codes[burstStrict])
	})

	t.Run("Tiers are resolved per path and header", func(t *testing.T) {
		l := NewRateLimiter("svc-key")

		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		_, _, tier := l.resolveRateTier(req)
		assert.Equal(t, "strict", tier)

		req = httptest.NewRequest(http.MethodGet, "/products", nil)
		_, _, tier = l.resolveRateTier(req)
		assert.Equal(t, "general", tier)

		req.Header.Set("X-Client-Type", "frontend-heavy")
		_, _, tier = l.resolveRateTier(req)
		assert.Equal(t, "frontend", tier)

		req.Header.Set("X-Service-Auth", "svc-key")
		_, _, tier = l.resolveRateTier(req)
		assert.Equal(t, "internal", tier)
	})

	t.Run("Internal requests are marked", func(t *testing.T) {
		l := NewRateLimiter("svc-key")
		var internal bool
		h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			internal = utils.IsInternalRequest(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("X-Service-Auth", "svc-key")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.True(t, internal)
	})

	t.Run("Cleanup evicts idle visitors", func(t *testing.T) {
		l := NewRateLimiter("")
		l.getVisitor("ip:1:general", limitGeneral, burstGeneral)
		require.Equal(t, 1, l.size())

		l.cleanup(time.Now().Add(visitorTTL + time.Second))
		assert.Equal(t, 0, l.size())
	})
}
