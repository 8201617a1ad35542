package quoting

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentType is the direction of an order total adjustment
type AdjustmentType string

const (
	Discount  AdjustmentType = "discount"
	Surcharge AdjustmentType = "surcharge"
)

// OrderItem is a quote item carried into an order with its space name
type OrderItem struct {
	Item
	SpaceName string `json:"spaceName"`
}

// Adjustment is the outcome of applying a discount or surcharge
type Adjustment struct {
	Type          AdjustmentType  `json:"type"`
	Percentage    decimal.Decimal `json:"percentage"`
	Total         decimal.Decimal `json:"total"`
	AdjustedTotal decimal.Decimal `json:"adjustedTotal"`
	Amount        decimal.Decimal `json:"amount"` // absolute difference between the two totals
}

// Receipt is a partial payment request against an order total
type Receipt struct {
	ID                string          `json:"id"`
	OrderID           string          `json:"orderId"`
	PaymentPercentage decimal.Decimal `json:"paymentPercentage"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// OrderItemsFromQuote flattens the spaces of a quote into order items
func OrderItemsFromQuote(spaces []Space) []OrderItem {
	var items []OrderItem
	for _, s := range spaces {
		for _, it := range s.Items {
			items = append(items, OrderItem{Item: it, SpaceName: s.Name})
		}
	}
	return items
}

// ApplyAdjustment scales total by (100-p)/100 for a discount or (100+p)/100
// for a surcharge
func ApplyAdjustment(total decimal.Decimal, kind AdjustmentType, percentage decimal.Decimal) (Adjustment, error) {
	if percentage.IsNegative() {
		return Adjustment{}, fmt.Errorf("adjustment percentage %s must not be negative", percentage)
	}

	hundred := decimal.NewFromInt(100)
	var multiplier decimal.Decimal
	switch kind {
	case Discount:
		multiplier = hundred.Sub(percentage).Div(hundred)
	case Surcharge:
		multiplier = hundred.Add(percentage).Div(hundred)
	default:
		return Adjustment{}, fmt.Errorf("unknown adjustment type %q (must be discount or surcharge)", kind)
	}

	adjusted := total.Mul(multiplier).Round(2)
	return Adjustment{
		Type:          kind,
		Percentage:    percentage,
		Total:         total,
		AdjustedTotal: adjusted,
		Amount:        adjusted.Sub(total).Abs(),
	}, nil
}

// ReceiptAmount is the share of the order total requested by a receipt.
// A non-zero adjusted total takes precedence over the plain total.
func ReceiptAmount(total, adjustedTotal, paymentPercentage decimal.Decimal) decimal.Decimal {
	base := total
	if !adjustedTotal.IsZero() {
		base = adjustedTotal
	}
	return base.Mul(paymentPercentage).Div(decimal.NewFromInt(100)).Round(2)
}

// NewReceipt creates a draft receipt for orderID
func NewReceipt(orderID string, total, adjustedTotal, paymentPercentage decimal.Decimal) (Receipt, error) {
	if paymentPercentage.IsNegative() || paymentPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return Receipt{}, fmt.Errorf("payment percentage %s must be between 0 and 100", paymentPercentage)
	}

	return Receipt{
		ID:                uuid.NewString(),
		OrderID:           orderID,
		PaymentPercentage: paymentPercentage,
		Amount:            ReceiptAmount(total, adjustedTotal, paymentPercentage),
		Status:            "draft",
		CreatedAt:         time.Now().UTC(),
	}, nil
}
