package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/payment"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

const (
	SignatureHeader = "X-Razorpay-Signature"
	EventIDHeader   = "X-Razorpay-Event-Id"

	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"

	maxBodySize = 1 << 20
)

// Settler applies payment outcomes to local orders.
type Settler interface {
	ConfirmFromWebhook(ctx context.Context, remoteOrderID, remotePaymentID string) error
	FailFromWebhook(ctx context.Context, remoteOrderID string) error
}

type event struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type Handler struct {
	secret   string
	repo     payment.Repository
	settler  Settler
	counters *metrics.Checkout
}

func NewHandler(secret string, repo payment.Repository, settler Settler, counters *metrics.Checkout) *Handler {
	if counters == nil {
		counters = &metrics.Checkout{}
	}
	return &Handler{
		secret:   secret,
		repo:     repo,
		settler:  settler,
		counters: counters,
	}
}

// ServeHTTP verifies the signature over the raw body before anything is
// stored. Events are deduplicated on their id; a processing failure is kept
// on the stored event for reconciliation and still acknowledged.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "webhook"),
		zap.String("provider", payment.ProviderRazorpay),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		utils.WriteJSONError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxBodySize {
		utils.WriteJSONError(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	if !payment.VerifySignature(h.secret, body, r.Header.Get(SignatureHeader)) {
		h.counters.SignatureRejected.Inc()
		log.Warn("webhook signature rejected", zap.String("ip", r.RemoteAddr))
		utils.WriteJSONError(w, "invalid webhook signature", http.StatusBadRequest)
		return
	}

	var ev event
	if err := json.Unmarshal(body, &ev); err != nil {
		log.Warn("invalid webhook payload", zap.Error(err))
		utils.WriteJSONError(w, "invalid payload", http.StatusBadRequest)
		return
	}

	entity := ev.Payload.Payment.Entity
	eventID := r.Header.Get(EventIDHeader)
	if eventID == "" && entity.ID != "" {
		eventID = entity.ID + ":" + ev.Event
	}
	if eventID == "" || ev.Event == "" {
		utils.WriteJSONError(w, "missing event id", http.StatusBadRequest)
		return
	}

	log = log.With(
		zap.String("event_id", eventID),
		zap.String("event", ev.Event),
		zap.String("remote_order_id", entity.OrderID),
	)
	h.counters.WebhooksReceived.Inc()

	webhookID, dup, err := h.repo.SavePaymentWebhook(ctx, payment.WebhookRecord{
		Provider:       payment.ProviderRazorpay,
		EventID:        eventID,
		EventType:      ev.Event,
		RemoteOrderID:  entity.OrderID,
		SignatureValid: true,
		Payload:        json.RawMessage(body),
	})
	if err != nil {
		log.Error("failed to save webhook", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if dup {
		h.counters.WebhookDuplicates.Inc()
		log.Info("duplicate webhook ignored")
		writeAck(w, true)
		return
	}

	if err := h.dispatch(ctx, ev); err != nil {
		log.Error("webhook processing failed", zap.Error(err))
		if merr := h.repo.MarkWebhookFailed(ctx, webhookID, err.Error()); merr != nil {
			log.Error("failed to mark webhook failed", zap.Error(merr))
		}
		writeAck(w, false)
		return
	}

	if err := h.repo.MarkWebhookProcessed(ctx, webhookID); err != nil {
		log.Error("failed to mark webhook processed", zap.Error(err))
	}
	log.Info("webhook processed")
	writeAck(w, false)
}

func (h *Handler) dispatch(ctx context.Context, ev event) error {
	entity := ev.Payload.Payment.Entity
	switch ev.Event {
	case EventPaymentCaptured:
		return h.settler.ConfirmFromWebhook(ctx, entity.OrderID, entity.ID)
	case EventPaymentFailed:
		return h.settler.FailFromWebhook(ctx, entity.OrderID)
	}
	return nil
}

func writeAck(w http.ResponseWriter, duplicate bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"success":   true,
		"duplicate": duplicate,
	})
}
