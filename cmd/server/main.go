package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"storefront-be/internal/address"
	"storefront-be/internal/auth"
	"storefront-be/internal/cart"
	"storefront-be/internal/config"
	"storefront-be/internal/db"
	"storefront-be/internal/logger"
	"storefront-be/internal/mailer"
	"storefront-be/internal/media"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"
	"storefront-be/internal/server"
	"storefront-be/internal/user"
	"storefront-be/internal/wishlist"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer database.Close()

	counters := &metrics.Checkout{}
	tokens := auth.NewTokenManager(cfg.JWTSecret)

	var images product.ImageStore
	if cfg.S3Bucket != "" {
		store, err := media.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			log.Warn("image uploads disabled", zap.Error(err))
		} else {
			images = store
		}
	}

	var mail mailer.Sender = mailer.LogSender{}
	if cfg.MailEnabled() {
		mail = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword,
			cfg.FromEmail, int(user.OTPTTL/time.Minute))
	} else if cfg.IsProduction() {
		return errors.New("SMTP_HOST and FROM_EMAIL are required in production")
	} else {
		log.Warn("SMTP not configured, verification codes will be logged")
	}

	productRepo := product.NewRepository(database)
	productSvc := product.NewService(productRepo, images)

	userSvc := user.NewService(user.NewRepository(database), tokens, mail)
	cartSvc := cart.NewService(cart.NewRepository(database), productRepo)
	wishlistSvc := wishlist.NewService(wishlist.NewRepository(database), productRepo)
	addressSvc := address.NewService(address.NewRepository(database))

	gateway := payment.NewRazorpayGateway(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.GatewayTimeout, &counters.GatewayLatency)
	orderSvc := order.NewService(order.NewRepository(database), gateway, addressSvc, counters, cfg.Currency)

	if cfg.RazorpayWebhookSecret == "" {
		log.Warn("RAZORPAY_WEBHOOK_SECRET not set, webhook endpoint disabled")
	}

	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey)
	go limiter.Run(ctx)

	e := server.NewRouter(server.Deps{
		DB:            database,
		Tokens:        tokens,
		Limiter:       limiter,
		Counters:      counters,
		Users:         userSvc,
		Products:      productSvc,
		Cart:          cartSvc,
		Wishlist:      wishlistSvc,
		Addresses:     addressSvc,
		Orders:        orderSvc,
		Webhooks:      payment.NewRepository(database),
		WebhookSecret: cfg.RazorpayWebhookSecret,
		CORSOrigins:   splitOrigins(cfg.CORSOrigin),
		SecureCookie:  cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GatewayTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server started", zap.String("address", srv.Addr), zap.String("env", cfg.AppEnv))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		log.Info("shutdown signal received, starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shutdown server gracefully", zap.Error(err))
			_ = srv.Close()
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("server shutdown completed")
	}

	return nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
