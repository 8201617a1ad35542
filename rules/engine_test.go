package rules

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/liamcoop/cabinetquote/presets"
)

func newTestEngine(initial ...PricingRule) *Engine {
	return NewEngine(NewInMemoryRuleSetStore(initial...), presets.NewInMemoryStore())
}

// failingStore fails every call
type failingStore struct{}

func (failingStore) Load() ([]PricingRule, error) { return nil, errors.New("connection refused") }
func (failingStore) Save([]PricingRule) error     { return errors.New("connection refused") }

func ids(rules []PricingRule) string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.ID
	}
	return strings.Join(out, ",")
}

func TestPrice(t *testing.T) {
	calc := Price(DefaultRules(), presets.Defaults(), Input{BasePrice: 100, Width: 10, Height: 20, Depth: 30})

	// default rules bind neither displayed_price nor final_price
	if calc.Price != 100 || calc.PriceFactor != FactorBasePrice {
		t.Errorf("Price = (%v, %s), want (100, base_price)", calc.Price, calc.PriceFactor)
	}
	if len(calc.Rules) != 2 {
		t.Fatalf("expected 2 rule results, got %d", len(calc.Rules))
	}
	if calc.Rules[0].Result != "unit_cost" || !nearlyEqual(calc.Rules[0].Value, 130) {
		t.Errorf("unexpected first rule result: %+v", calc.Rules[0])
	}
	if !nearlyEqual(calc.Namespace.Get("shipping_cost"), 6000) {
		t.Errorf("shipping_cost = %v, want 6000", calc.Namespace.Get("shipping_cost"))
	}
}

func TestCalculateDisplayedPriceFallback(t *testing.T) {
	final := PricingRule{
		ID:      "final",
		Result:  "final_price",
		Formula: []FormulaStep{valueStep("base_price", OpAdd, "25")},
	}
	engine := newTestEngine(final)

	got, err := engine.CalculateDisplayedPrice(50, 0, 0, 0)
	if err != nil {
		t.Fatalf("CalculateDisplayedPrice() failed: %v", err)
	}
	if got != 75 {
		t.Errorf("expected final_price 75, got %v", got)
	}

	displayed := PricingRule{
		ID:      "displayed",
		Result:  "displayed_price",
		Formula: []FormulaStep{factorStep("final_price", OpMultiply, "exchange_rate")},
	}
	if _, err := engine.AddRule(displayed); err != nil {
		t.Fatalf("AddRule() failed: %v", err)
	}

	got, _ = engine.CalculateDisplayedPrice(50, 0, 0, 0)
	if got != 75 {
		t.Errorf("expected displayed_price 75, got %v", got)
	}

	empty := newTestEngine()
	got, _ = empty.CalculateDisplayedPrice(42, 1, 1, 1)
	if got != 42 {
		t.Errorf("expected base price 42 for an empty rule set, got %v", got)
	}
}

// TestCalculateIdempotent verifies no state carries over between calculations
func TestCalculateIdempotent(t *testing.T) {
	counter := PricingRule{
		ID:      "self",
		Result:  "final_price",
		Formula: []FormulaStep{factorStep("final_price", OpAdd, "base_price")},
	}
	engine := newTestEngine(counter)

	first, _ := engine.CalculateDisplayedPrice(10, 1, 2, 3)
	second, _ := engine.CalculateDisplayedPrice(10, 1, 2, 3)
	if first != second || first != 10 {
		t.Errorf("expected 10 twice, got %v then %v", first, second)
	}
}

func TestCalculateUsesPresets(t *testing.T) {
	engine := newTestEngine(DefaultRules()...)

	p := presets.Defaults()
	p.MaterialMarkup = 100
	if err := engine.SavePresets(p); err != nil {
		t.Fatalf("SavePresets() failed: %v", err)
	}

	calc, err := engine.Calculate(Input{BasePrice: 10})
	if err != nil {
		t.Fatalf("Calculate() failed: %v", err)
	}
	if got := calc.Namespace.Get("unit_cost"); !nearlyEqual(got, 20) {
		t.Errorf("unit_cost = %v, want 20", got)
	}
}

func TestEngineStoreFailure(t *testing.T) {
	engine := NewEngine(failingStore{}, presets.NewInMemoryStore())

	if _, err := engine.CalculateDisplayedPrice(1, 1, 1, 1); err == nil {
		t.Error("expected error from failing store")
	}
	if _, err := engine.SaveRules(DefaultRules()); err == nil {
		t.Error("expected error saving to failing store")
	}
}

func TestEngineSaveRulesAssignsIDs(t *testing.T) {
	engine := newTestEngine()
	rule := validRule("")

	saved, err := engine.SaveRules([]PricingRule{rule})
	if err != nil {
		t.Fatalf("SaveRules() failed: %v", err)
	}
	if saved[0].ID == "" || saved[0].Formula[0].ID == "" {
		t.Errorf("expected generated ids, got %+v", saved[0])
	}
}

func TestEngineSaveRulesRejectsInvalid(t *testing.T) {
	engine := newTestEngine(DefaultRules()...)
	bad := validRule("bad")
	bad.Formula[0] = valueStep("base_price", OpAdd, "12abc")

	_, err := engine.SaveRules([]PricingRule{bad})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}

	current, _ := engine.Rules()
	if ids(current) != "1,2" {
		t.Errorf("rejected save changed the rule set: %s", ids(current))
	}
}

func TestEngineSaveRulesAllowsSelfReference(t *testing.T) {
	engine := newTestEngine()
	rule := PricingRule{
		ID:      "self",
		Result:  "total",
		Formula: []FormulaStep{factorStep("total", OpAdd, "base_price")},
	}

	if _, err := engine.SaveRules([]PricingRule{rule}); err != nil {
		t.Errorf("self-referencing rule should be saved, got: %v", err)
	}
}

func TestEngineAddRule(t *testing.T) {
	engine := newTestEngine(DefaultRules()...)

	added, err := engine.AddRule(validRule("3"))
	if err != nil {
		t.Fatalf("AddRule() failed: %v", err)
	}
	if added.ID != "3" {
		t.Errorf("expected id 3, got %q", added.ID)
	}

	current, _ := engine.Rules()
	if ids(current) != "1,2,3" {
		t.Errorf("expected rule appended, got %s", ids(current))
	}

	if _, err := engine.AddRule(validRule("3")); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected duplicate error, got: %v", err)
	}
}

func TestEngineUpdateRule(t *testing.T) {
	engine := newTestEngine(DefaultRules()...)

	update := validRule("1")
	update.Name = "Updated"
	if _, err := engine.UpdateRule(update); err != nil {
		t.Fatalf("UpdateRule() failed: %v", err)
	}

	current, _ := engine.Rules()
	if current[0].Name != "Updated" || ids(current) != "1,2" {
		t.Errorf("unexpected rule set after update: %+v", current)
	}

	if _, err := engine.UpdateRule(validRule("missing")); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("expected ErrRuleNotFound, got: %v", err)
	}
}

func TestEngineDeleteRule(t *testing.T) {
	engine := newTestEngine(DefaultRules()...)

	if err := engine.DeleteRule("1"); err != nil {
		t.Fatalf("DeleteRule() failed: %v", err)
	}
	current, _ := engine.Rules()
	if ids(current) != "2" {
		t.Errorf("expected only rule 2, got %s", ids(current))
	}

	if err := engine.DeleteRule("1"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("expected ErrRuleNotFound, got: %v", err)
	}
}

func TestEngineMoveRule(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		position int
		want     string
	}{
		{"to front", "c", 0, "c,a,b"},
		{"to end", "a", 2, "b,c,a"},
		{"past end", "a", 10, "b,c,a"},
		{"same place", "b", 1, "a,b,c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(validRule("a"), validRule("b"), validRule("c"))

			reordered, err := engine.MoveRule(tt.id, tt.position)
			if err != nil {
				t.Fatalf("MoveRule() failed: %v", err)
			}
			if ids(reordered) != tt.want {
				t.Errorf("got %s, want %s", ids(reordered), tt.want)
			}
			current, _ := engine.Rules()
			if ids(current) != tt.want {
				t.Errorf("stored order %s, want %s", ids(current), tt.want)
			}
		})
	}

	engine := newTestEngine(validRule("a"))
	if _, err := engine.MoveRule("a", -1); err == nil {
		t.Error("expected error for negative position")
	}
	if _, err := engine.MoveRule("zzz", 0); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("expected ErrRuleNotFound, got: %v", err)
	}
}

// TestEngineMoveRuleChangesResult verifies reordering changes what later
// rules see
func TestEngineMoveRuleChangesResult(t *testing.T) {
	a := PricingRule{ID: "a", Result: "unit_cost", Formula: []FormulaStep{valueStep("base_price", OpMultiply, "2")}}
	b := PricingRule{ID: "b", Result: "final_price", Formula: []FormulaStep{factorStep("unit_cost", OpAdd, "base_price")}}
	engine := newTestEngine(a, b)

	before, _ := engine.CalculateDisplayedPrice(10, 0, 0, 0)
	if _, err := engine.MoveRule("b", 0); err != nil {
		t.Fatalf("MoveRule() failed: %v", err)
	}
	after, _ := engine.CalculateDisplayedPrice(10, 0, 0, 0)

	if before != 30 || after != 10 {
		t.Errorf("expected 30 then 10, got %v then %v", before, after)
	}
}

func TestEngineSeedDefaults(t *testing.T) {
	engine := newTestEngine()

	seeded, err := engine.SeedDefaults()
	if err != nil || !seeded {
		t.Fatalf("SeedDefaults() = %v, %v; want true, nil", seeded, err)
	}
	seeded, err = engine.SeedDefaults()
	if err != nil || seeded {
		t.Errorf("second SeedDefaults() = %v, %v; want false, nil", seeded, err)
	}

	current, _ := engine.Rules()
	if ids(current) != "1,2" {
		t.Errorf("expected default rules, got %s", ids(current))
	}
}

// TestEngineSnapshotIsolation verifies callers can't change the rule set by
// mutating a returned snapshot
func TestEngineSnapshotIsolation(t *testing.T) {
	engine := newTestEngine(DefaultRules()...)

	snapshot, _ := engine.Rules()
	snapshot[0].Formula[0].RightOperand = "labor_rate"
	snapshot[1].ID = "changed"

	current, _ := engine.Rules()
	if ids(current) != "1,2" || current[0].Formula[0].RightOperand != "material_markup" {
		t.Errorf("snapshot mutation leaked into engine: %+v", current)
	}
}

func TestEngineConcurrentCalculateAndEdit(t *testing.T) {
	engine := newTestEngine(DefaultRules()...)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := engine.CalculateDisplayedPrice(100, 10, 20, 30); err != nil {
				t.Errorf("CalculateDisplayedPrice() failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := engine.AddRule(validRule("")); err != nil {
				t.Errorf("AddRule() failed: %v", err)
			}
		}()
	}

	wg.Wait()

	current, _ := engine.Rules()
	if len(current) != 22 {
		t.Errorf("expected 22 rules, got %d", len(current))
	}
}

// blockingStore pauses the first armed Load after it has read the stored
// rules, until release is closed
type blockingStore struct {
	*InMemoryRuleSetStore
	armed   atomic.Bool
	loaded  chan struct{}
	release chan struct{}
}

func (s *blockingStore) Load() ([]PricingRule, error) {
	rules, err := s.InMemoryRuleSetStore.Load()
	if s.armed.CompareAndSwap(true, false) {
		close(s.loaded)
		<-s.release
	}
	return rules, err
}

// TestEngineRulesLoadRacingEdit verifies a load that started before an edit
// can't put the old rule list back into the cache
func TestEngineRulesLoadRacingEdit(t *testing.T) {
	double := PricingRule{ID: "p", Result: "displayed_price", Formula: []FormulaStep{valueStep("base_price", OpMultiply, "2")}}
	triple := PricingRule{ID: "p", Result: "displayed_price", Formula: []FormulaStep{valueStep("base_price", OpMultiply, "3")}}

	store := &blockingStore{
		InMemoryRuleSetStore: NewInMemoryRuleSetStore(double),
		loaded:               make(chan struct{}),
		release:              make(chan struct{}),
	}
	store.armed.Store(true)
	engine := NewEngine(store, presets.NewInMemoryStore())

	done := make(chan []PricingRule)
	go func() {
		rules, err := engine.Rules()
		if err != nil {
			t.Errorf("Rules() failed: %v", err)
		}
		done <- rules
	}()

	<-store.loaded
	if _, err := engine.SaveRules([]PricingRule{triple}); err != nil {
		t.Fatalf("SaveRules() failed: %v", err)
	}
	close(store.release)

	// the racing reader still gets the list it loaded
	if stale := <-done; stale[0].Formula[0].RightOperand != "2" {
		t.Errorf("expected the racing reader to see the old rule, got %+v", stale)
	}

	price, err := engine.CalculateDisplayedPrice(10, 1, 1, 1)
	if err != nil {
		t.Fatalf("CalculateDisplayedPrice() failed: %v", err)
	}
	if price != 30 {
		t.Errorf("price after saving the x3 rule = %v, want 30", price)
	}
}

func TestEngineAddRuleDuplicateIsErrRuleExists(t *testing.T) {
	engine := newTestEngine(DefaultRules()...)

	if _, err := engine.AddRule(validRule("1")); !errors.Is(err, ErrRuleExists) {
		t.Errorf("expected ErrRuleExists, got: %v", err)
	}
}

func TestEngineMoveRuleNegativePositionIsValidationError(t *testing.T) {
	engine := newTestEngine(validRule("a"), validRule("b"))

	_, err := engine.MoveRule("a", -1)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if !strings.Contains(verr.Problems[0], "-1") {
		t.Errorf("expected problem to name the position, got %q", verr.Problems[0])
	}
}

func TestCalculationNonFiniteResults(t *testing.T) {
	overflow := PricingRule{
		ID:      "big",
		Name:    "Overflow",
		Result:  "final_price",
		Formula: []FormulaStep{valueStep("base_price", OpMultiply, "1e300")},
	}

	calc := Price([]PricingRule{overflow}, presets.Defaults(), Input{BasePrice: 1e200})
	problems := calc.NonFiniteResults()
	if len(problems) != 1 || !strings.Contains(problems[0], `"Overflow"`) {
		t.Errorf("expected one problem naming the rule, got %v", problems)
	}
	// the displayed price falls back to the finite base price
	if calc.Price != 1e200 {
		t.Errorf("Price = %v, want 1e200", calc.Price)
	}

	if problems := Price(DefaultRules(), presets.Defaults(), Input{BasePrice: 10}).NonFiniteResults(); len(problems) != 0 {
		t.Errorf("expected no problems, got %v", problems)
	}
}
