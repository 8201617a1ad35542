package rules

import (
	"math"
	"strconv"
)

// EvaluateStep applies one step and returns the new accumulator.
// On the first step of a rule the left value is the step's LeftOperand looked
// up in ns; afterwards it is acc. Unknown factors resolve to 0 and a malformed
// literal resolves to NaN.
func EvaluateStep(step FormulaStep, ns Namespace, acc float64, isFirstStep bool) float64 {
	left := acc
	if isFirstStep {
		left = ns.Get(step.LeftOperand)
	}
	right := resolveRight(step, ns)

	switch step.Operator {
	case OpAdd:
		return left + right
	case OpSubtract:
		return left - right
	case OpMultiply:
		return left * right
	case OpDivide:
		if right == 0 {
			return 0
		}
		return left / right
	case OpPercent:
		return left * (right / 100)
	}

	// Unknown operators leave the running result untouched
	return acc
}

func resolveRight(step FormulaStep, ns Namespace) float64 {
	if step.RightOperandType == OperandFactor {
		return ns.Get(step.RightOperand)
	}
	return parseLiteral(step.RightOperand)
}

func parseLiteral(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// EvaluateRule folds the rule's formula left to right and returns the final
// accumulator. It does not bind the result; see EvaluateRuleSet.
func EvaluateRule(rule PricingRule, ns Namespace) float64 {
	acc := 0.0
	for i, step := range rule.Formula {
		acc = EvaluateStep(step, ns, acc, i == 0)
	}
	return acc
}

// EvaluateRuleSet runs rules in list order, binding each result into ns
// before the next rule runs. It mutates and returns ns.
func EvaluateRuleSet(rules []PricingRule, ns Namespace) Namespace {
	evaluateRuleSet(rules, ns, nil)
	return ns
}

func evaluateRuleSet(rules []PricingRule, ns Namespace, trace *[]RuleResult) {
	for _, rule := range rules {
		value := EvaluateRule(rule, ns)
		ns.Set(rule.Result, value)
		if trace != nil {
			*trace = append(*trace, RuleResult{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Result:   rule.Result,
				Value:    value,
			})
		}
	}
}

// DisplayedPrice picks the price shown for a line item: displayed_price,
// then final_price, then basePrice. A bound value that is NaN or infinite is
// skipped so the result is always usable.
func DisplayedPrice(ns Namespace, basePrice float64) float64 {
	price, _ := displayedPrice(ns, basePrice)
	return price
}

func displayedPrice(ns Namespace, basePrice float64) (float64, string) {
	for _, name := range []string{FactorDisplayedPrice, FactorFinalPrice} {
		if v, ok := ns.Lookup(name); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, name
		}
	}
	return basePrice, FactorBasePrice
}
