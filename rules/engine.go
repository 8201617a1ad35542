package rules

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/liamcoop/cabinetquote/internal/logger"
	"github.com/liamcoop/cabinetquote/presets"
)

// Calculation is the full outcome of pricing one line item
type Calculation struct {
	Input       Input        `json:"input"`
	Price       float64      `json:"price"`
	PriceFactor string       `json:"priceFactor"` // displayed_price, final_price or base_price
	Rules       []RuleResult `json:"rules"`
	Namespace   Namespace    `json:"namespace"`
}

// Price evaluates rules for one input without any storage.
// The namespace is created per call, so concurrent calls never share state.
func Price(rules []PricingRule, p presets.Values, in Input) *Calculation {
	ns := BuildNamespaceWithPresets(in, p)
	trace := make([]RuleResult, 0, len(rules))
	evaluateRuleSet(rules, ns, &trace)

	price, factor := displayedPrice(ns, in.BasePrice)
	return &Calculation{
		Input:       in,
		Price:       price,
		PriceFactor: factor,
		Rules:       trace,
		Namespace:   ns,
	}
}

// NonFiniteResults lists the rules whose value overflowed to ±Inf or became
// NaN. Such a breakdown can't be encoded as JSON.
func (c *Calculation) NonFiniteResults() []string {
	var problems []string
	for _, r := range c.Rules {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			problems = append(problems, fmt.Sprintf("rule %q (%s) produced %v for %s", r.RuleName, r.RuleID, r.Value, r.Result))
		}
	}
	return problems
}

// Engine prices line items with the stored rule set and preset values.
// Calculations read a snapshot of the rule list; admin edits go through the
// engine so the snapshot cache is invalidated on every change.
type Engine struct {
	store   RuleSetStore
	presets presets.Store
	cache   RulesCache
	writeMu sync.Mutex // serialises read-modify-write admin operations
}

// NewEngine creates an engine with the default snapshot cache
func NewEngine(store RuleSetStore, presetStore presets.Store) *Engine {
	return NewEngineWithCache(store, presetStore, NewInMemoryRulesCache(DefaultCacheConfig()))
}

// NewEngineWithCache creates an engine with a custom snapshot cache
func NewEngineWithCache(store RuleSetStore, presetStore presets.Store, cache RulesCache) *Engine {
	return &Engine{
		store:   store,
		presets: presetStore,
		cache:   cache,
	}
}

// Rules returns a snapshot of the ordered rule list.
// A load that races with an edit is returned to its caller but not cached.
func (en *Engine) Rules() ([]PricingRule, error) {
	gen := en.cache.Generation()
	if rules := en.cache.Get(); rules != nil {
		return rules, nil
	}

	rules, err := en.store.Load()
	if err != nil {
		logger.ErrorStore()
		return nil, fmt.Errorf("failed to load pricing rules: %w", err)
	}
	if rules == nil {
		rules = []PricingRule{}
	}
	en.cache.SetIfGeneration(rules, gen)

	return rules, nil
}

// Presets returns the current preset values
func (en *Engine) Presets() (presets.Values, error) {
	v, err := en.presets.Load()
	if err != nil {
		return presets.Values{}, fmt.Errorf("failed to load preset values: %w", err)
	}
	return v, nil
}

// SavePresets replaces the preset values used by later calculations
func (en *Engine) SavePresets(v presets.Values) error {
	if err := en.presets.Save(v); err != nil {
		return fmt.Errorf("failed to save preset values: %w", err)
	}
	return nil
}

// Calculate prices one line item and returns the full breakdown.
// Errors only come from loading rules or presets; evaluation itself can't fail.
func (en *Engine) Calculate(in Input) (*Calculation, error) {
	rules, err := en.Rules()
	if err != nil {
		return nil, err
	}
	p, err := en.Presets()
	if err != nil {
		return nil, err
	}

	return Price(rules, p, in), nil
}

// CalculateDisplayedPrice returns the price shown for a line item
func (en *Engine) CalculateDisplayedPrice(basePrice, width, height, depth float64) (float64, error) {
	calc, err := en.Calculate(Input{
		BasePrice: basePrice,
		Width:     width,
		Height:    height,
		Depth:     depth,
	})
	if err != nil {
		return 0, err
	}
	return calc.Price, nil
}

// SaveRules validates and stores a complete rule set, replacing the current one.
// Blank rule and step ids are filled with generated UUIDs.
func (en *Engine) SaveRules(rules []PricingRule) ([]PricingRule, error) {
	en.writeMu.Lock()
	defer en.writeMu.Unlock()

	return en.saveLocked(rules)
}

func (en *Engine) saveLocked(rules []PricingRule) ([]PricingRule, error) {
	rules = assignIDs(cloneRules(rules))
	if rules == nil {
		rules = []PricingRule{}
	}

	if err := ValidateRuleSet(rules); err != nil {
		logger.WarnValidation()
		return nil, err
	}

	for _, r := range rules {
		if refs := SelfReferences(r); len(refs) > 0 {
			logger.Warn("pricing rule reads its own result",
				"rule_id", r.ID,
				"rule_name", r.Name,
				"result", r.Result,
			)
		}
	}

	if err := en.store.Save(rules); err != nil {
		logger.ErrorStore()
		return nil, fmt.Errorf("failed to save pricing rules: %w", err)
	}

	en.cache.Invalidate()
	logger.Info("pricing rules saved", "count", len(rules))

	return rules, nil
}

// loadForWrite reads the current list straight from the store, bypassing
// the cache, to use as the base of an edit
func (en *Engine) loadForWrite() ([]PricingRule, error) {
	rules, err := en.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing rules: %w", err)
	}
	return rules, nil
}

// AddRule appends a rule to the end of the rule set
func (en *Engine) AddRule(rule PricingRule) (PricingRule, error) {
	en.writeMu.Lock()
	defer en.writeMu.Unlock()

	current, err := en.loadForWrite()
	if err != nil {
		return PricingRule{}, err
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	for _, r := range current {
		if r.ID == rule.ID {
			return PricingRule{}, fmt.Errorf("rule with ID %s: %w", rule.ID, ErrRuleExists)
		}
	}

	saved, err := en.saveLocked(append(current, rule))
	if err != nil {
		return PricingRule{}, err
	}
	return saved[len(saved)-1], nil
}

// UpdateRule replaces the rule with the same ID, keeping its position
func (en *Engine) UpdateRule(rule PricingRule) (PricingRule, error) {
	en.writeMu.Lock()
	defer en.writeMu.Unlock()

	current, err := en.loadForWrite()
	if err != nil {
		return PricingRule{}, err
	}

	idx := indexOf(current, rule.ID)
	if idx < 0 {
		return PricingRule{}, fmt.Errorf("rule with ID %s: %w", rule.ID, ErrRuleNotFound)
	}
	current[idx] = rule

	saved, err := en.saveLocked(current)
	if err != nil {
		return PricingRule{}, err
	}
	return saved[idx], nil
}

// DeleteRule removes a rule from the rule set
func (en *Engine) DeleteRule(ruleID string) error {
	en.writeMu.Lock()
	defer en.writeMu.Unlock()

	current, err := en.loadForWrite()
	if err != nil {
		return err
	}

	idx := indexOf(current, ruleID)
	if idx < 0 {
		return fmt.Errorf("rule with ID %s: %w", ruleID, ErrRuleNotFound)
	}

	_, err = en.saveLocked(append(current[:idx], current[idx+1:]...))
	return err
}

// MoveRule moves a rule to position (0-based), shifting the rules in between.
// Positions past the end move the rule to the end.
func (en *Engine) MoveRule(ruleID string, position int) ([]PricingRule, error) {
	en.writeMu.Lock()
	defer en.writeMu.Unlock()

	current, err := en.loadForWrite()
	if err != nil {
		return nil, err
	}

	idx := indexOf(current, ruleID)
	if idx < 0 {
		return nil, fmt.Errorf("rule with ID %s: %w", ruleID, ErrRuleNotFound)
	}
	if position < 0 {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("position %d must not be negative", position)}}
	}

	rule := current[idx]
	rest := append(current[:idx:idx], current[idx+1:]...)
	if position > len(rest) {
		position = len(rest)
	}

	reordered := make([]PricingRule, 0, len(current))
	reordered = append(reordered, rest[:position]...)
	reordered = append(reordered, rule)
	reordered = append(reordered, rest[position:]...)

	return en.saveLocked(reordered)
}

// SeedDefaults stores DefaultRules if the store holds no rules yet.
// It reports whether anything was written.
func (en *Engine) SeedDefaults() (bool, error) {
	en.writeMu.Lock()
	defer en.writeMu.Unlock()

	current, err := en.loadForWrite()
	if err != nil {
		return false, err
	}
	if len(current) > 0 {
		return false, nil
	}

	if _, err := en.saveLocked(DefaultRules()); err != nil {
		return false, err
	}
	return true, nil
}

func indexOf(rules []PricingRule, id string) int {
	for i, r := range rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func assignIDs(rules []PricingRule) []PricingRule {
	for i := range rules {
		if rules[i].ID == "" {
			rules[i].ID = uuid.NewString()
		}
		for j := range rules[i].Formula {
			if rules[i].Formula[j].ID == "" {
				rules[i].Formula[j].ID = uuid.NewString()
			}
		}
	}
	return rules
}
