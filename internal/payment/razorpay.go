package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

type razorpayGateway struct {
	keyID     string
	keySecret string
	client    *resty.Client
	latency   *metrics.Latency
}

// NewRazorpayGateway talks to the Orders API. latency may be nil.
func NewRazorpayGateway(baseURL, keyID, keySecret string, timeout time.Duration, latency *metrics.Latency) Gateway {
	if keyID == "" || keySecret == "" {
		logger.L().Warn("razorpay credentials are empty")
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(keyID, keySecret).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &razorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		client:    client,
		latency:   latency,
	}
}

func (g *razorpayGateway) KeyID() string {
	return g.keyID
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (g *razorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*RemoteOrder, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "gateway"),
		zap.String("method", "CreateOrder"),
		zap.String("receipt", receipt),
		zap.Int64("amount", amountMinor),
	)

	start := time.Now()
	var out RemoteOrder
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"amount":   amountMinor,
			"currency": currency,
			"receipt":  receipt,
		}).
		SetResult(&out).
		Post("/v1/orders")
	elapsed := g.latency.Since(start)
	if err != nil {
		log = log.With(zap.Duration("elapsed", elapsed))
		if isTimeout(err) {
			log.Error("razorpay request timed out", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
		}
		log.Error("razorpay request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if resp.IsError() {
		var rzpErr razorpayError
		_ = json.Unmarshal(resp.Body(), &rzpErr)
		log.Error("razorpay returned non-success status",
			zap.Int("status", resp.StatusCode()),
			zap.Duration("elapsed", elapsed),
			zap.String("code", rzpErr.Error.Code),
			zap.String("description", rzpErr.Error.Description),
		)
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode())
		}
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, rzpErr.Error.Description)
	}

	if out.ID == "" {
		log.Error("razorpay response missing order id", zap.ByteString("response", resp.Body()))
		return nil, fmt.Errorf("%w: empty order id", ErrGatewayUnavailable)
	}

	log.Info("razorpay order created",
		zap.String("remote_order_id", out.ID),
		zap.Duration("elapsed", elapsed),
	)
	return &out, nil
}

func (g *razorpayGateway) VerifyPaymentSignature(remoteOrderID, remotePaymentID, signature string) bool {
	return VerifySignature(g.keySecret, PaymentSignatureMessage(remoteOrderID, remotePaymentID), signature)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
