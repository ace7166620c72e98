package alerts

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/pricewatch/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestEvaluateCondition_LevelOperators(t *testing.T) {
	threshold := dec("150.00")

	cases := []struct {
		name    string
		op      domain.Operator
		current string
		want    bool
	}{
		{"gt above", domain.OpGreaterThan, "150.55", true},
		{"gt equal", domain.OpGreaterThan, "150.00", false},
		{"gt below", domain.OpGreaterThan, "149.99", false},
		{"lt below", domain.OpLessThan, "149.99", true},
		{"lt equal", domain.OpLessThan, "150.00", false},
		{"gte equal", domain.OpGreaterOrEqual, "150.00", true},
		{"gte below", domain.OpGreaterOrEqual, "149.99", false},
		{"lte equal", domain.OpLessOrEqual, "150.00", true},
		{"lte above", domain.OpLessOrEqual, "150.01", false},
	}

	for _, tc := range cases {
		// Level operators must be independent of price history: the
		// result has to be identical with and without a prior sample.
		for _, prev := range []*decimal.Decimal{nil, decPtr("100.00"), decPtr("200.00")} {
			got := EvaluateCondition(tc.op, dec(tc.current), threshold, prev)
			if got != tc.want {
				t.Errorf("%s (prev=%v): got %v, want %v", tc.name, prev, got, tc.want)
			}
		}
	}
}

func TestEvaluateCondition_CrossesUp(t *testing.T) {
	threshold := dec("200.00")

	// No prior observation: never fires, regardless of current price.
	if EvaluateCondition(domain.OpCrossesUp, dec("205.00"), threshold, nil) {
		t.Error("crosses_up must not fire without a prior observation")
	}

	// Prior below or at threshold, current above: fires.
	if !EvaluateCondition(domain.OpCrossesUp, dec("205.00"), threshold, decPtr("195.00")) {
		t.Error("crosses_up should fire on upward crossing")
	}
	if !EvaluateCondition(domain.OpCrossesUp, dec("200.01"), threshold, decPtr("200.00")) {
		t.Error("crosses_up should fire from exactly the threshold")
	}

	// Prior already above: staying above is not a crossing.
	if EvaluateCondition(domain.OpCrossesUp, dec("210.00"), threshold, decPtr("205.00")) {
		t.Error("crosses_up must not re-fire while price stays above threshold")
	}

	// Current at threshold is not "above".
	if EvaluateCondition(domain.OpCrossesUp, dec("200.00"), threshold, decPtr("195.00")) {
		t.Error("crosses_up requires current strictly above threshold")
	}
}

func TestEvaluateCondition_CrossesDown(t *testing.T) {
	threshold := dec("50.00")

	if EvaluateCondition(domain.OpCrossesDown, dec("45.00"), threshold, nil) {
		t.Error("crosses_down must not fire without a prior observation")
	}
	if !EvaluateCondition(domain.OpCrossesDown, dec("49.99"), threshold, decPtr("52.00")) {
		t.Error("crosses_down should fire on downward crossing")
	}
	if !EvaluateCondition(domain.OpCrossesDown, dec("49.00"), threshold, decPtr("50.00")) {
		t.Error("crosses_down should fire from exactly the threshold")
	}
	if EvaluateCondition(domain.OpCrossesDown, dec("40.00"), threshold, decPtr("45.00")) {
		t.Error("crosses_down must not re-fire while price stays below threshold")
	}
}

func TestEvaluateCondition_UnknownOperator(t *testing.T) {
	if EvaluateCondition(domain.Operator("bogus"), dec("1"), dec("1"), nil) {
		t.Error("unknown operator must never trigger")
	}
}
