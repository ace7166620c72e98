package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseOperator(t *testing.T) {
	valid := []string{"gt", "lt", "gte", "lte", "crosses_up", "crosses_down", " GT ", "Crosses_Up"}
	for _, s := range valid {
		if _, err := ParseOperator(s); err != nil {
			t.Errorf("ParseOperator(%q) should succeed: %v", s, err)
		}
	}

	invalid := []string{"", ">", "above", "cross"}
	for _, s := range invalid {
		if _, err := ParseOperator(s); err == nil {
			t.Errorf("ParseOperator(%q) should fail", s)
		}
	}
}

func TestOperatorCrossing(t *testing.T) {
	if !OpCrossesUp.Crossing() || !OpCrossesDown.Crossing() {
		t.Error("crosses operators should report Crossing")
	}
	for _, op := range []Operator{OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual} {
		if op.Crossing() {
			t.Errorf("%s should not report Crossing", op)
		}
	}
}

func TestAlertValidate(t *testing.T) {
	base := Alert{
		ID:        "a1",
		UserID:    "u1",
		Symbol:    "AAPL",
		Operator:  OpGreaterThan,
		Threshold: decimal.NewFromInt(150),
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid alert rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Alert)
	}{
		{"missing user", func(a *Alert) { a.UserID = "" }},
		{"missing symbol", func(a *Alert) { a.Symbol = "" }},
		{"lowercase symbol", func(a *Alert) { a.Symbol = "aapl" }},
		{"unknown operator", func(a *Alert) { a.Operator = "above" }},
		{"zero threshold", func(a *Alert) { a.Threshold = decimal.Zero }},
		{"negative threshold", func(a *Alert) { a.Threshold = decimal.NewFromInt(-5) }},
	}
	for _, tc := range cases {
		a := base
		tc.mutate(&a)
		if err := a.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestQuoteMid(t *testing.T) {
	q := Quote{
		Symbol: "AAPL",
		Bid:    decimal.RequireFromString("150.50"),
		Ask:    decimal.RequireFromString("150.60"),
	}
	want := decimal.RequireFromString("150.55")
	if !q.Mid().Equal(want) {
		t.Errorf("Mid() = %s, want %s", q.Mid(), want)
	}
}
