package quoting

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/liamcoop/cabinetquote/presets"
	"github.com/liamcoop/cabinetquote/rules"
	"github.com/shopspring/decimal"
)

// stubPricer doubles the base price and counts calls
type stubPricer struct {
	calls atomic.Int32
	err   error
}

func (p *stubPricer) CalculateDisplayedPrice(basePrice, width, height, depth float64) (float64, error) {
	p.calls.Add(1)
	if p.err != nil {
		return 0, p.err
	}
	return basePrice * 2, nil
}

func testSpaces() []Space {
	return []Space{
		{ID: "s1", Name: "Kitchen", Items: []Item{
			{ID: "i1", UnitCost: 100.10, Width: 24, Height: 30, Depth: 24},
			{ID: "i2", UnitCost: 50.05},
		}},
		{ID: "s2", Name: "Bath", Items: []Item{
			{ID: "i3", UnitCost: 10},
		}},
	}
}

func TestPriceSpaces(t *testing.T) {
	pricer := &stubPricer{}
	in := testSpaces()

	out, err := PriceSpaces(context.Background(), pricer, in, 2)
	if err != nil {
		t.Fatalf("PriceSpaces() failed: %v", err)
	}

	if pricer.calls.Load() != 3 {
		t.Errorf("expected 3 pricing calls, got %d", pricer.calls.Load())
	}
	if out[0].Items[0].Price != 200.20 || out[0].Items[1].Price != 100.10 || out[1].Items[0].Price != 20 {
		t.Errorf("unexpected prices: %+v", out)
	}
	if in[0].Items[0].Price != 0 {
		t.Error("PriceSpaces modified its input")
	}
}

func TestPriceSpacesError(t *testing.T) {
	pricer := &stubPricer{err: errors.New("store unavailable")}

	_, err := PriceSpaces(context.Background(), pricer, testSpaces(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, pricer.err) {
		t.Errorf("expected wrapped pricer error, got: %v", err)
	}
}

func TestPriceSpacesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := PriceSpaces(ctx, &stubPricer{}, testSpaces(), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestPriceSpacesWithEngine(t *testing.T) {
	final := rules.PricingRule{
		ID:     "final",
		Result: rules.FactorFinalPrice,
		Formula: []rules.FormulaStep{
			{LeftOperand: rules.FactorBasePrice, Operator: rules.OpMultiply, RightOperand: "material_markup", RightOperandType: rules.OperandFactor},
		},
	}
	engine := rules.NewEngine(rules.NewInMemoryRuleSetStore(final), presets.NewInMemoryStore())

	out, err := PriceSpaces(context.Background(), engine, testSpaces(), 4)
	if err != nil {
		t.Fatalf("PriceSpaces() failed: %v", err)
	}

	// 10 * 1.3
	if got := out[1].Items[0].Price; got < 12.999 || got > 13.001 {
		t.Errorf("expected 13, got %v", got)
	}
}

func TestQuoteTotals(t *testing.T) {
	spaces := []Space{
		{Items: []Item{{Price: 100.10}, {Price: 0.20}}},
		{Items: []Item{{Price: 99.70}}},
	}

	totals := QuoteTotals(spaces, 13)

	if !totals.Subtotal.Equal(decimal.RequireFromString("200")) {
		t.Errorf("Subtotal = %s, want 200", totals.Subtotal)
	}
	if !totals.Tax.Equal(decimal.RequireFromString("26")) {
		t.Errorf("Tax = %s, want 26", totals.Tax)
	}
	if !totals.Total.Equal(decimal.RequireFromString("226")) {
		t.Errorf("Total = %s, want 226", totals.Total)
	}
}

func TestQuoteTotalsRounding(t *testing.T) {
	spaces := []Space{{Items: []Item{{Price: 10.005}, {Price: 0.333}}}}

	totals := QuoteTotals(spaces, 13)

	// 10.338 rounds to 10.34; 10.34 * 0.13 = 1.3442 rounds to 1.34
	if !totals.Subtotal.Equal(decimal.RequireFromString("10.34")) {
		t.Errorf("Subtotal = %s, want 10.34", totals.Subtotal)
	}
	if !totals.Tax.Equal(decimal.RequireFromString("1.34")) {
		t.Errorf("Tax = %s, want 1.34", totals.Tax)
	}
}

func TestQuoteTotalsEmpty(t *testing.T) {
	totals := QuoteTotals(nil, 13)
	if !totals.Total.IsZero() {
		t.Errorf("Total = %s, want 0", totals.Total)
	}
}
