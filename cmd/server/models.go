package main

import (
	"github.com/liamcoop/cabinetquote/quoting"
	"github.com/liamcoop/cabinetquote/rules"
	"github.com/shopspring/decimal"
)

// API request and response models

// RuleRequest is the body for creating or updating a rule
type RuleRequest struct {
	ID      string              `json:"id,omitempty" example:"unit-cost"`
	Name    string              `json:"name" example:"Base Cost Calculation"`
	Formula []rules.FormulaStep `json:"formula"`
	Result  string              `json:"result" example:"unit_cost"`
}

func (r RuleRequest) toRule() rules.PricingRule {
	return rules.PricingRule{
		ID:      r.ID,
		Name:    r.Name,
		Formula: r.Formula,
		Result:  r.Result,
	}
}

// RulesListResponse is the ordered rule set
type RulesListResponse struct {
	Rules []rules.PricingRule `json:"rules"`
}

// ReplaceRulesRequest replaces the whole rule set in the given order
type ReplaceRulesRequest struct {
	Rules []rules.PricingRule `json:"rules"`
}

// MoveRuleRequest moves a rule to a 0-based position
type MoveRuleRequest struct {
	Position int `json:"position" example:"0"`
}

// PreviewRequest asks for the CEL rendering of a rule, optionally evaluated
// against an input
type PreviewRequest struct {
	Rule  RuleRequest  `json:"rule"`
	Input *rules.Input `json:"input,omitempty"`
}

// PreviewResponse is the CEL rendering of a rule and, when an input was
// given, the folded value
type PreviewResponse struct {
	Expression string   `json:"expression" example:"(factor(f, \"base_price\") * factor(f, \"material_markup\"))"`
	Value      *float64 `json:"value,omitempty"`
}

// FactorsResponse lists the well-known factors
type FactorsResponse struct {
	Factors []rules.FactorInfo `json:"factors"`
}

// PriceQuoteRequest prices every item of a quote
type PriceQuoteRequest struct {
	Spaces []quoting.Space `json:"spaces"`
	// TaxRate overrides the preset tax rate (percent) when set
	TaxRate *float64 `json:"taxRate,omitempty" example:"13"`
}

// PriceQuoteResponse carries the priced spaces and quote totals
type PriceQuoteResponse struct {
	Spaces []quoting.Space `json:"spaces"`
	Totals quoting.Totals  `json:"totals"`
}

// AdjustOrderRequest applies a discount or surcharge to an order total
type AdjustOrderRequest struct {
	Total      decimal.Decimal        `json:"total"`
	Type       quoting.AdjustmentType `json:"type" example:"discount"`
	Percentage decimal.Decimal        `json:"percentage"`
}

// CreateReceiptRequest asks for a partial payment receipt
type CreateReceiptRequest struct {
	OrderID           string          `json:"orderId"`
	Total             decimal.Decimal `json:"total"`
	AdjustedTotal     decimal.Decimal `json:"adjustedTotal"`
	PaymentPercentage decimal.Decimal `json:"paymentPercentage"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Issues  []string `json:"issues,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status           string `json:"status" example:"healthy"`
	Storage          string `json:"storage" example:"postgres"`
	Rules            int    `json:"rules"`
	RejectedRuleSets int64  `json:"rejectedRuleSets"`
	StoreFailures    int64  `json:"storeFailures"`
	Error            string `json:"error,omitempty"`
}
