package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker-level counters for the alert evaluation loop. Registered on the
// default registry and exposed through the /metrics endpoint.
var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricewatch_cycles_total",
		Help: "Completed evaluation cycles, including ones skipped on lock contention.",
	})

	LockContentionTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricewatch_lock_contention_total",
		Help: "Cycles skipped because another worker instance held the evaluation lock.",
	})

	AlertsEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricewatch_alerts_evaluated_total",
		Help: "Alerts evaluated against a fresh quote.",
	})

	AlertsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricewatch_alerts_triggered_total",
		Help: "Alerts whose condition fired and were marked triggered.",
	})

	AlertsDebounced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricewatch_alerts_debounced_total",
		Help: "Alerts whose condition fired inside the debounce window.",
	})

	QuoteFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricewatch_quote_fetch_failures_total",
		Help: "Per-user quote batch fetches that failed.",
	})

	NotifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricewatch_notify_failures_total",
		Help: "Notification deliveries that failed after the alert was marked triggered.",
	})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricewatch_cycle_duration_seconds",
		Help:    "Wall-clock duration of evaluation cycles that acquired the lock.",
		Buckets: prometheus.DefBuckets,
	})
)
