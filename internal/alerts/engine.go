package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sawpanic/pricewatch/internal/domain"
	"github.com/sawpanic/pricewatch/internal/metrics"
)

// DefaultLockKey is the cluster-wide key under which evaluation cycles
// are serialized.
const DefaultLockKey = "alerts:tick"

// Options is the externally configurable surface of the evaluation engine.
type Options struct {
	// PollInterval is the sleep between evaluation cycles.
	PollInterval time.Duration

	// LockTTL bounds how long a crashed holder can block other instances.
	// There is no mid-cycle renewal, so it must exceed the worst-case
	// cycle duration; keep cycles fast (batched quote fetches) rather
	// than raising it.
	LockTTL time.Duration

	// DebounceWindow is the minimum gap between two firings of one alert.
	DebounceWindow time.Duration

	LockKey string
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 10 * time.Second
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 30 * time.Second
	}
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = 5 * time.Minute
	}
	if o.LockKey == "" {
		o.LockKey = DefaultLockKey
	}
	return o
}

// CycleStats summarizes one evaluation cycle.
type CycleStats struct {
	Evaluated int
	Triggered int
}

// Engine orchestrates the recurring evaluation of active price alerts:
// acquire the cluster lock, load alerts, fetch quotes per user, evaluate
// conditions against current and previous midpoints, debounce, persist and
// notify. All collaborators are consumed through interfaces.
type Engine struct {
	store    AlertStore
	quotes   QuoteSource
	lock     Locker
	notifier Notifier
	tracker  Tracker
	opts     Options

	now func() time.Time
}

// NewEngine wires an evaluation engine from its collaborators.
func NewEngine(store AlertStore, quotes QuoteSource, lock Locker, notifier Notifier, tracker Tracker, opts Options) *Engine {
	return &Engine{
		store:    store,
		quotes:   quotes,
		lock:     lock,
		notifier: notifier,
		tracker:  tracker,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled, performing one evaluation cycle per
// poll interval. Cycle errors are logged and never stop the loop. An
// in-flight cycle always finishes so the distributed lock is released
// cleanly; cancellation is only observed between cycles.
func (e *Engine) Run(ctx context.Context) {
	log.Info().
		Dur("poll_interval", e.opts.PollInterval).
		Dur("lock_ttl", e.opts.LockTTL).
		Dur("debounce_window", e.opts.DebounceWindow).
		Msg("alert evaluation loop starting")

	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("alert evaluation loop stopped")
			return
		case <-ticker.C:
			stats, err := e.safeEvaluate(ctx)
			if err != nil {
				log.Error().Err(err).Msg("evaluation cycle failed")
				continue
			}
			if stats.Evaluated > 0 {
				log.Info().
					Int("evaluated", stats.Evaluated).
					Int("triggered", stats.Triggered).
					Msg("evaluation cycle complete")
			}
		}
	}
}

// safeEvaluate shields the loop from panics escaping a cycle.
func (e *Engine) safeEvaluate(ctx context.Context) (stats CycleStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation cycle panicked: %v", r)
		}
	}()
	return e.EvaluateOnce(ctx)
}

// EvaluateOnce performs exactly one evaluation cycle. Losing the lock to
// another instance is expected steady-state behavior under multi-instance
// deployment and returns zero stats with a nil error.
func (e *Engine) EvaluateOnce(ctx context.Context) (CycleStats, error) {
	metrics.CyclesTotal.Inc()

	token := uuid.NewString()
	acquired, err := e.lock.TryAcquire(ctx, e.opts.LockKey, token, e.opts.LockTTL)
	if err != nil {
		return CycleStats{}, fmt.Errorf("acquire evaluation lock: %w", err)
	}
	if !acquired {
		metrics.LockContentionTotal.Inc()
		log.Debug().Str("key", e.opts.LockKey).Msg("evaluation lock held elsewhere, skipping cycle")
		return CycleStats{}, nil
	}
	defer func() {
		// Release must run even when ctx was cancelled mid-cycle; only
		// the acquiring token can release the key.
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := e.lock.Release(relCtx, e.opts.LockKey, token); err != nil {
			log.Warn().Err(err).Str("key", e.opts.LockKey).Msg("failed to release evaluation lock")
		}
	}()

	started := e.now()
	defer func() {
		metrics.CycleDuration.Observe(time.Since(started).Seconds())
	}()

	active, err := e.store.GetActiveAlerts(ctx)
	if err != nil {
		return CycleStats{}, fmt.Errorf("load active alerts: %w", err)
	}
	if len(active) == 0 {
		return CycleStats{}, nil
	}

	var stats CycleStats
	for userID, group := range groupByUser(active) {
		quotes, err := e.quotes.GetLatestQuotes(ctx, distinctSymbols(group))
		if err != nil {
			// One user's quote failure must not abort the others.
			metrics.QuoteFetchFailures.Inc()
			log.Warn().Err(err).Str("user_id", userID).Int("alerts", len(group)).
				Msg("quote fetch failed, skipping user this cycle")
			continue
		}
		for _, alert := range group {
			quote, ok := quotes[alert.Symbol]
			if !ok {
				continue
			}
			e.evaluateAlert(ctx, alert, quote, &stats)
		}
	}

	e.tracker.Prune(ctx, activePairs(active))
	return stats, nil
}

// evaluateAlert applies the condition table, updates tracker state and fires
// the store+notifier pair when due. Errors are logged and contained here so
// one alert can never prevent evaluation of the rest.
func (e *Engine) evaluateAlert(ctx context.Context, alert domain.Alert, quote domain.Quote, stats *CycleStats) {
	mid := quote.Mid()

	var prev *decimal.Decimal
	if p, ok := e.tracker.Get(ctx, alert.UserID, alert.Symbol); ok {
		prev = &p
	}

	triggered := EvaluateCondition(alert.Operator, mid, alert.Threshold, prev)

	// The tracker is updated unconditionally so the next tick always has
	// correct history, trigger or not.
	e.tracker.Set(ctx, alert.UserID, alert.Symbol, mid)

	stats.Evaluated++
	metrics.AlertsEvaluated.Inc()

	if !triggered {
		return
	}

	if alert.LastTriggeredAt != nil && e.now().Sub(*alert.LastTriggeredAt) < e.opts.DebounceWindow {
		metrics.AlertsDebounced.Inc()
		log.Debug().Str("alert_id", alert.ID).Time("last_triggered", *alert.LastTriggeredAt).
			Msg("alert condition met inside debounce window")
		return
	}

	// Store-then-notify: a crash between the two steps loses a notification
	// rather than duplicating one. At-least-once intent, not exactly-once.
	if err := e.store.MarkTriggered(ctx, alert.ID); err != nil {
		log.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to mark alert triggered")
		return
	}

	stats.Triggered++
	metrics.AlertsTriggered.Inc()
	log.Info().
		Str("alert_id", alert.ID).
		Str("user_id", alert.UserID).
		Str("symbol", alert.Symbol).
		Str("operator", string(alert.Operator)).
		Str("threshold", alert.Threshold.String()).
		Str("price", mid.String()).
		Msg("alert triggered")

	if err := e.notifier.SendAlertTriggered(ctx, alert.UserID, alert.Symbol, alert.Operator, alert.Threshold, mid); err != nil {
		metrics.NotifyFailures.Inc()
		log.Warn().Err(err).Str("alert_id", alert.ID).
			Msg("notification delivery failed for triggered alert")
	}
}

func groupByUser(alerts []domain.Alert) map[string][]domain.Alert {
	groups := make(map[string][]domain.Alert)
	for _, a := range alerts {
		groups[a.UserID] = append(groups[a.UserID], a)
	}
	return groups
}

func distinctSymbols(alerts []domain.Alert) []string {
	seen := make(map[string]struct{}, len(alerts))
	symbols := make([]string, 0, len(alerts))
	for _, a := range alerts {
		if _, ok := seen[a.Symbol]; ok {
			continue
		}
		seen[a.Symbol] = struct{}{}
		symbols = append(symbols, a.Symbol)
	}
	return symbols
}

func activePairs(alerts []domain.Alert) map[string]struct{} {
	pairs := make(map[string]struct{}, len(alerts))
	for _, a := range alerts {
		pairs[PairKey(a.UserID, a.Symbol)] = struct{}{}
	}
	return pairs
}
