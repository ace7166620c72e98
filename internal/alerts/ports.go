package alerts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/pricewatch/internal/domain"
)

// QuoteSource returns the current best bid/ask for a batch of symbols.
// A failed fetch is isolated to the requesting user group, never the cycle.
type QuoteSource interface {
	GetLatestQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error)
}

// AlertStore persists alert definitions and trigger state.
type AlertStore interface {
	GetActiveAlerts(ctx context.Context) ([]domain.Alert, error)
	MarkTriggered(ctx context.Context, alertID string) error
}

// Locker is the cluster-wide mutual exclusion primitive. TryAcquire returns
// false without error when another instance holds the key; Release is a no-op
// unless the owner token matches the current holder.
type Locker interface {
	TryAcquire(ctx context.Context, key, ownerToken string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, ownerToken string) error
}

// Notifier delivers a triggered-alert message to a user. Delivery failures
// must not abort the cycle; the triggered mark is never rolled back.
type Notifier interface {
	SendAlertTriggered(ctx context.Context, userID, symbol string, op domain.Operator, threshold, price decimal.Decimal) error
}

// Tracker holds the last observed midpoint per (user, symbol) pair, the only
// state needed to detect crossing transitions between ticks.
type Tracker interface {
	Get(ctx context.Context, userID, symbol string) (decimal.Decimal, bool)
	Set(ctx context.Context, userID, symbol string, price decimal.Decimal)
	// Prune drops pairs absent from the active set so the tracker does not
	// grow without bound as alerts are deactivated. Implementations backed
	// by an expiring store may treat this as a no-op.
	Prune(ctx context.Context, active map[string]struct{})
}

// PairKey builds the tracker key for a (user, symbol) pair.
func PairKey(userID, symbol string) string {
	return userID + "|" + symbol
}
