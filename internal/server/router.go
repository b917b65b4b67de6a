// Package server assembles the echo instance: shared middleware, the REST
// handlers and the payment webhook.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront-be/internal/address"
	"storefront-be/internal/auth"
	"storefront-be/internal/cart"
	"storefront-be/internal/handler"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/payment/webhook"
	"storefront-be/internal/product"
	"storefront-be/internal/user"
	"storefront-be/internal/utils"
	"storefront-be/internal/wishlist"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	DB       Pinger
	Tokens   *auth.TokenManager
	Limiter  *middleware.RateLimiter
	Counters *metrics.Checkout

	Users     user.Service
	Products  product.Service
	Cart      cart.Service
	Wishlist  wishlist.Service
	Addresses address.Service
	Orders    order.Service

	Webhooks      payment.Repository
	WebhookSecret string

	CORSOrigins  []string
	SecureCookie bool
}

func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(echo.WrapMiddleware(logger.RequestIDMiddleware))
	e.Use(echo.WrapMiddleware(logger.LoggingMiddleware))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}))
	e.Use(echo.WrapMiddleware(middleware.AuthMiddleware(d.Tokens)))
	if d.Limiter != nil {
		e.Use(echo.WrapMiddleware(d.Limiter.Middleware))
	}

	e.GET("/healthz", health(d.DB, d.Counters))

	handler.NewAuthHandler(d.Users, d.SecureCookie).RegisterRoutes(e)
	handler.NewAdminHandler(d.Users).RegisterRoutes(e)
	handler.NewProductHandler(d.Products).RegisterRoutes(e)
	handler.NewCartHandler(d.Cart, d.Wishlist).RegisterRoutes(e)
	handler.NewAddressHandler(d.Addresses).RegisterRoutes(e)
	handler.NewOrderHandler(d.Orders).RegisterRoutes(e)

	if d.WebhookSecret != "" {
		wh := webhook.NewHandler(d.WebhookSecret, d.Webhooks, d.Orders, d.Counters)
		e.POST("/webhooks/razorpay", echo.WrapHandler(wh))
	}

	return e
}

func health(db Pinger, counters *metrics.Checkout) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status, dbState := http.StatusOK, "up"
		if db == nil {
			status, dbState = http.StatusServiceUnavailable, "unconfigured"
		} else if err := db.PingContext(ctx); err != nil {
			status, dbState = http.StatusServiceUnavailable, "down"
		}

		body := map[string]any{"success": status == http.StatusOK, "database": dbState}
		// Counters are only shown to callers holding the internal service key.
		if counters != nil && utils.IsInternalRequest(c.Request().Context()) {
			body["checkout"] = counters.Snapshot()
		}
		return c.JSON(status, body)
	}
}

// errorHandler renders router-level failures (unknown route, wrong method,
// oversized body) in the same envelope the handlers use.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = strings.ToLower(m)
		}
	} else {
		logger.FromCtx(c.Request().Context()).Error("unhandled error",
			zap.String("layer", "server"),
			zap.Error(err),
		)
	}

	_ = c.JSON(status, handler.ErrorResponse{
		Success: false,
		Status:  status,
		Message: message,
	})
}
