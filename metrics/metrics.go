// Package metrics records counters and latencies for quotes and payments.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

const (
	QuoteRequested  = "quote_requested"
	QuoteResolved   = "quote_resolved"
	QuoteFailed     = "quote_failed"
	QuoteStale      = "quote_stale"
	QuoteLatency    = "quote"
	PaymentOutcome  = "payment"
	PaymentLatency  = "payment"
	QueryClassified = "query_classified"
)
