// Package pricing computes cart totals: subtotal, flat-rate shipping and tax.
package pricing

import "github.com/shopspring/decimal"

const (
	FreeShippingThreshold = 1000
	FlatShipping          = 200
	TaxRate               = 0.18
)

type Line struct {
	Price    float64
	Quantity int
}

type Breakdown struct {
	ItemsPrice    float64 `json:"itemsPrice"`
	ShippingPrice float64 `json:"shippingPrice"`
	TaxPrice      float64 `json:"taxPrice"`
	TotalPrice    float64 `json:"totalPrice"`
}

// Quote prices a list of lines. Shipping is free strictly above the threshold.
func Quote(lines []Line) Breakdown {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	shipping := decimal.NewFromInt(FlatShipping)
	if subtotal.GreaterThan(decimal.NewFromInt(FreeShippingThreshold)) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(decimal.NewFromFloat(TaxRate))
	total := subtotal.Add(shipping).Add(tax)

	return Breakdown{
		ItemsPrice:    toFloat(subtotal),
		ShippingPrice: toFloat(shipping),
		TaxPrice:      toFloat(tax),
		TotalPrice:    toFloat(total),
	}
}

// MinorUnits converts an amount to the payment processor's smallest currency unit.
func MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Matches compares two amounts at cent precision.
func Matches(a, b float64) bool {
	return MinorUnits(a) == MinorUnits(b)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
