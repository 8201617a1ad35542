package quoting

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Pricer returns the displayed price of one line item
type Pricer interface {
	CalculateDisplayedPrice(basePrice, width, height, depth float64) (float64, error)
}

// Item is a cabinet line item. UnitCost is the catalog base price the rules
// start from; Price is the displayed price after pricing.
type Item struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId,omitempty"`
	Material  string  `json:"material,omitempty"`
	UnitCost  float64 `json:"unitCost"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Depth     float64 `json:"depth"`
	Price     float64 `json:"price"`
}

// Space groups the items of one room or area of a project
type Space struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Totals are the money totals of a quote, rounded to cents
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	TaxRate  decimal.Decimal `json:"taxRate"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// PriceSpaces returns a copy of spaces with every item priced by p.
// Items are priced concurrently, at most workers at a time; each calculation
// is independent so ordering of the returned items matches the input.
func PriceSpaces(ctx context.Context, p Pricer, spaces []Space, workers int) ([]Space, error) {
	out := make([]Space, len(spaces))
	for i, s := range spaces {
		out[i] = s
		out[i].Items = append([]Item(nil), s.Items...)
	}

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for si := range out {
		for ii := range out[si].Items {
			item := &out[si].Items[ii]
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				price, err := p.CalculateDisplayedPrice(item.UnitCost, item.Width, item.Height, item.Depth)
				if err != nil {
					return fmt.Errorf("failed to price item %s: %w", item.ID, err)
				}
				item.Price = price
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Subtotal sums the prices of all items
func Subtotal(spaces []Space) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range spaces {
		for _, it := range s.Items {
			sum = sum.Add(decimal.NewFromFloat(it.Price))
		}
	}
	return sum.Round(2)
}

// QuoteTotals applies taxRatePercent (13 means 13%) to the subtotal
func QuoteTotals(spaces []Space, taxRatePercent float64) Totals {
	subtotal := Subtotal(spaces)
	rate := decimal.NewFromFloat(taxRatePercent)
	tax := subtotal.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)

	return Totals{
		Subtotal: subtotal,
		TaxRate:  rate,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
