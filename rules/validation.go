package rules

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	maxRules        = 200
	maxStepsPerRule = 50
	maxFactorLength = 100
)

var factorPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidationError lists every problem found in a rule set
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid rule set: " + strings.Join(e.Problems, "; ")
}

// ValidateRuleSet checks a rule set before it is saved.
// Evaluation itself never fails, so this is where malformed literals,
// unknown operators and bad factor names are rejected.
func ValidateRuleSet(rules []PricingRule) error {
	var problems []string

	if len(rules) > maxRules {
		problems = append(problems, fmt.Sprintf("rule set contains %d rules, maximum allowed is %d", len(rules), maxRules))
	}

	seen := make(map[string]bool, len(rules))
	for i, rule := range rules {
		label := fmt.Sprintf("rule %d", i+1)
		if rule.Name != "" {
			label = fmt.Sprintf("rule %d (%q)", i+1, rule.Name)
		}

		if rule.ID == "" {
			problems = append(problems, label+": id cannot be empty")
		} else if seen[rule.ID] {
			problems = append(problems, fmt.Sprintf("%s: duplicate id %q", label, rule.ID))
		}
		seen[rule.ID] = true

		problems = append(problems, validateRule(label, rule)...)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ValidateRule checks a single rule in isolation
func ValidateRule(rule PricingRule) error {
	if problems := validateRule("rule", rule); len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validateRule(label string, rule PricingRule) []string {
	var problems []string

	if err := validateFactorName(rule.Result); err != nil {
		problems = append(problems, fmt.Sprintf("%s: invalid result %q: %v", label, rule.Result, err))
	}

	if len(rule.Formula) == 0 {
		problems = append(problems, label+": formula must contain at least one step")
	}
	if len(rule.Formula) > maxStepsPerRule {
		problems = append(problems, fmt.Sprintf("%s: formula contains %d steps, maximum allowed is %d", label, len(rule.Formula), maxStepsPerRule))
	}

	for i, step := range rule.Formula {
		stepLabel := fmt.Sprintf("%s step %d", label, i+1)

		// Only the first step reads its left operand
		if i == 0 {
			if err := validateFactorName(step.LeftOperand); err != nil {
				problems = append(problems, fmt.Sprintf("%s: invalid left operand %q: %v", stepLabel, step.LeftOperand, err))
			}
		}

		if !step.Operator.Valid() {
			problems = append(problems, fmt.Sprintf("%s: unknown operator %q (must be one of: + - * / %%)", stepLabel, step.Operator))
		}

		switch step.RightOperandType {
		case OperandFactor:
			if err := validateFactorName(step.RightOperand); err != nil {
				problems = append(problems, fmt.Sprintf("%s: invalid right operand %q: %v", stepLabel, step.RightOperand, err))
			}
		case OperandValue:
			if err := validateLiteral(step.RightOperand); err != nil {
				problems = append(problems, fmt.Sprintf("%s: invalid value %q: %v", stepLabel, step.RightOperand, err))
			}
		default:
			problems = append(problems, fmt.Sprintf("%s: unknown operand type %q (must be factor or value)", stepLabel, step.RightOperandType))
		}
	}

	return problems
}

// validateFactorName applies the identifier rules shared by results and operands
func validateFactorName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("factor name cannot be empty")
	}
	if len(name) > maxFactorLength {
		return fmt.Errorf("factor name length %d exceeds maximum of %d characters", len(name), maxFactorLength)
	}
	if !factorPattern.MatchString(name) {
		return fmt.Errorf("must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$")
	}
	return nil
}

func validateLiteral(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("must be finite")
	}
	return nil
}

// SelfReferences returns the factor names a rule reads that are also its own
// result. Those reads see the value bound before the rule runs.
func SelfReferences(rule PricingRule) []string {
	var refs []string
	for i, step := range rule.Formula {
		if i == 0 && step.LeftOperand == rule.Result {
			refs = append(refs, step.LeftOperand)
		}
		if step.RightOperandType == OperandFactor && step.RightOperand == rule.Result {
			refs = append(refs, step.RightOperand)
		}
	}
	return refs
}
