package rules

import (
	"errors"
	"sync"
)

// ErrRuleNotFound is returned by admin operations that address a missing rule
var ErrRuleNotFound = errors.New("rule not found")

// ErrRuleExists is returned when adding a rule whose ID is already taken
var ErrRuleExists = errors.New("rule already exists")

// RuleSetStore persists the ordered rule list.
// The order returned by Load is the evaluation order and must match the
// order last passed to Save.
type RuleSetStore interface {
	// Load returns the full ordered rule list (possibly empty)
	Load() ([]PricingRule, error)

	// Save replaces the full rule list
	Save(rules []PricingRule) error
}

// InMemoryRuleSetStore implements RuleSetStore with a guarded slice
type InMemoryRuleSetStore struct {
	rules []PricingRule
	mu    sync.RWMutex
}

// NewInMemoryRuleSetStore creates a store holding a copy of initial
func NewInMemoryRuleSetStore(initial ...PricingRule) *InMemoryRuleSetStore {
	return &InMemoryRuleSetStore{
		rules: cloneRules(initial),
	}
}

// Load returns a copy of the stored list
func (s *InMemoryRuleSetStore) Load() ([]PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := cloneRules(s.rules)
	if out == nil {
		out = []PricingRule{}
	}
	return out, nil
}

// Save stores a copy of rules
func (s *InMemoryRuleSetStore) Save(rules []PricingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules = cloneRules(rules)
	return nil
}

// DefaultRules returns the rule set a fresh installation starts with
func DefaultRules() []PricingRule {
	return []PricingRule{
		{
			ID:   "1",
			Name: "Base Cost Calculation",
			Formula: []FormulaStep{
				{LeftOperand: FactorBasePrice, Operator: OpMultiply, RightOperand: "material_markup", RightOperandType: OperandFactor},
			},
			Result: "unit_cost",
		},
		{
			ID:   "2",
			Name: "Shipping Cost Calculation",
			Formula: []FormulaStep{
				{LeftOperand: FactorWidth, Operator: OpMultiply, RightOperand: FactorHeight, RightOperandType: OperandFactor},
				{LeftOperand: "shipping_rate", Operator: OpMultiply, RightOperand: FactorDepth, RightOperandType: OperandFactor},
			},
			Result: "shipping_cost",
		},
	}
}
