package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Operator identifies the condition an alert evaluates against the midpoint price.
type Operator string

const (
	OpGreaterThan    Operator = "gt"
	OpLessThan       Operator = "lt"
	OpGreaterOrEqual Operator = "gte"
	OpLessOrEqual    Operator = "lte"
	OpCrossesUp      Operator = "crosses_up"
	OpCrossesDown    Operator = "crosses_down"
)

// ParseOperator converts a stored operator string into an Operator.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual, OpCrossesUp, OpCrossesDown:
		return op, nil
	default:
		return "", fmt.Errorf("unknown alert operator: %q", s)
	}
}

// Crossing reports whether the operator is edge-triggered and needs a prior price sample.
func (o Operator) Crossing() bool {
	return o == OpCrossesUp || o == OpCrossesDown
}

// Alert is a user's standing instruction to be notified when a symbol's
// midpoint price satisfies the operator against the threshold.
type Alert struct {
	ID              string          `json:"id" db:"id"`
	UserID          string          `json:"user_id" db:"user_id"`
	Symbol          string          `json:"symbol" db:"symbol"`
	Operator        Operator        `json:"operator" db:"operator"`
	Threshold       decimal.Decimal `json:"threshold" db:"threshold"`
	Active          bool            `json:"active" db:"active"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at,omitempty" db:"last_triggered_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// Validate enforces the alert invariants: non-empty uppercase symbol,
// known operator, strictly positive threshold.
func (a Alert) Validate() error {
	if a.UserID == "" {
		return fmt.Errorf("alert %s: missing user id", a.ID)
	}
	if a.Symbol == "" {
		return fmt.Errorf("alert %s: missing symbol", a.ID)
	}
	if a.Symbol != strings.ToUpper(a.Symbol) {
		return fmt.Errorf("alert %s: symbol %q must be uppercase", a.ID, a.Symbol)
	}
	if _, err := ParseOperator(string(a.Operator)); err != nil {
		return fmt.Errorf("alert %s: %w", a.ID, err)
	}
	if !a.Threshold.IsPositive() {
		return fmt.Errorf("alert %s: threshold %s must be positive", a.ID, a.Threshold)
	}
	return nil
}

// Quote is the best bid/ask pair returned by the quote source for one symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
}

// Mid returns the midpoint price (bid+ask)/2 used for all threshold comparisons.
func (q Quote) Mid() decimal.Decimal {
	return q.Bid.Add(q.Ask).Div(decimal.NewFromInt(2))
}

// TriggerDecision is the per-alert outcome of one evaluation pass.
// It is derived state and never persisted.
type TriggerDecision struct {
	Triggered bool
	Price     decimal.Decimal
}
