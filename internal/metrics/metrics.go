package metrics

import (
	"sync/atomic"
	"time"
)

// Counter is a monotonic event count, safe for concurrent use.
type Counter struct {
	n atomic.Uint64
}

func (c *Counter) Inc() { c.n.Add(1) }

func (c *Counter) Add(n uint64) { c.n.Add(n) }

func (c *Counter) Load() uint64 { return c.n.Load() }

// Latency accumulates call durations. A nil Latency measures without
// recording.
type Latency struct {
	calls atomic.Uint64
	total atomic.Int64
	max   atomic.Int64
}

// Since records the time elapsed from start and returns it.
func (l *Latency) Since(start time.Time) time.Duration {
	d := time.Since(start)
	if l == nil {
		return d
	}
	l.calls.Add(1)
	l.total.Add(int64(d))
	for {
		cur := l.max.Load()
		if int64(d) <= cur || l.max.CompareAndSwap(cur, int64(d)) {
			break
		}
	}
	return d
}

func (l *Latency) Calls() uint64 { return l.calls.Load() }

func (l *Latency) Average() time.Duration {
	n := l.calls.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(l.total.Load() / int64(n))
}

func (l *Latency) Max() time.Duration { return time.Duration(l.max.Load()) }

// Checkout counts order and payment outcomes for the health endpoint.
type Checkout struct {
	OrdersPlaced       Counter
	PaymentsVerified   Counter
	PaymentsFailed     Counter
	SignatureRejected  Counter
	GatewayErrors      Counter
	StockCancellations Counter
	RefundsRequired    Counter
	WebhooksReceived   Counter
	WebhookDuplicates  Counter
	GatewayLatency     Latency
}

func (c *Checkout) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"orders_placed":       c.OrdersPlaced.Load(),
		"payments_verified":   c.PaymentsVerified.Load(),
		"payments_failed":     c.PaymentsFailed.Load(),
		"signature_rejected":  c.SignatureRejected.Load(),
		"gateway_errors":      c.GatewayErrors.Load(),
		"stock_cancellations": c.StockCancellations.Load(),
		"refunds_required":    c.RefundsRequired.Load(),
		"webhooks_received":   c.WebhooksReceived.Load(),
		"webhook_duplicates":  c.WebhookDuplicates.Load(),
		"gateway_calls":       c.GatewayLatency.Calls(),
		"gateway_avg_ms":      uint64(c.GatewayLatency.Average().Milliseconds()),
		"gateway_max_ms":      uint64(c.GatewayLatency.Max().Milliseconds()),
	}
}
