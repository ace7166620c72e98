package alerts

import (
	"github.com/shopspring/decimal"

	"github.com/sawpanic/pricewatch/internal/domain"
)

// EvaluateCondition applies the operator rule table to the current midpoint.
// prev is the last observed midpoint for the (user, symbol) pair, nil when no
// prior observation exists. Crossing operators never fire without a prior
// sample: a fresh alert created with price already past the threshold will
// not fire on its first tick, there is nothing to cross from.
func EvaluateCondition(op domain.Operator, current, threshold decimal.Decimal, prev *decimal.Decimal) bool {
	switch op {
	case domain.OpGreaterThan:
		return current.GreaterThan(threshold)
	case domain.OpLessThan:
		return current.LessThan(threshold)
	case domain.OpGreaterOrEqual:
		return current.GreaterThanOrEqual(threshold)
	case domain.OpLessOrEqual:
		return current.LessThanOrEqual(threshold)
	case domain.OpCrossesUp:
		return prev != nil && prev.LessThanOrEqual(threshold) && current.GreaterThan(threshold)
	case domain.OpCrossesDown:
		return prev != nil && prev.GreaterThanOrEqual(threshold) && current.LessThan(threshold)
	default:
		return false
	}
}
