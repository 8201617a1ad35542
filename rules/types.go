package rules

// Operator is the arithmetic operation applied by a formula step
type Operator string

const (
	OpAdd      Operator = "+"
	OpSubtract Operator = "-"
	OpMultiply Operator = "*"
	OpDivide   Operator = "/"
	// OpPercent computes left * (right / 100), a percentage of the left value, not a modulo
	OpPercent Operator = "%"
)

// Valid reports whether op is one of the supported operators
func (op Operator) Valid() bool {
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpPercent:
		return true
	}
	return false
}

// OperandType selects how a step's right operand is resolved
type OperandType string

const (
	// OperandFactor resolves the right operand as a factor name in the namespace
	OperandFactor OperandType = "factor"
	// OperandValue parses the right operand as a numeric literal
	OperandValue OperandType = "value"
)

// FormulaStep is one binary arithmetic operation of a rule.
// LeftOperand is only read on the first step of a rule; later steps use the
// running result of the previous steps instead.
type FormulaStep struct {
	ID               string      `json:"id,omitempty"`
	LeftOperand      string      `json:"leftOperand"`
	Operator         Operator    `json:"operator"`
	RightOperand     string      `json:"rightOperand"`
	RightOperandType OperandType `json:"rightOperandType"`
}

// PricingRule folds its formula into one value bound to Result
type PricingRule struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Formula []FormulaStep `json:"formula"`
	Result  string        `json:"result"`
}

// RuleResult records the value a rule bound during a calculation
type RuleResult struct {
	RuleID   string  `json:"ruleId"`
	RuleName string  `json:"ruleName"`
	Result   string  `json:"result"`
	Value    float64 `json:"value"`
}

// Input is the per line item input of a price calculation
type Input struct {
	BasePrice float64 `json:"basePrice"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Depth     float64 `json:"depth"`
}

// cloneRules copies the rule list and each formula so callers can't mutate
// stored definitions through the returned slice
func cloneRules(in []PricingRule) []PricingRule {
	if in == nil {
		return nil
	}
	out := make([]PricingRule, len(in))
	for i, r := range in {
		out[i] = r
		if r.Formula != nil {
			out[i].Formula = make([]FormulaStep, len(r.Formula))
			copy(out[i].Formula, r.Formula)
		}
	}
	return out
}
