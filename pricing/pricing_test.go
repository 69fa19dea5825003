package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		want  Breakdown
	}{
		{
			name:  "below threshold pays shipping",
			lines: []Line{{Price: 250, Quantity: 2}},
			want:  Breakdown{ItemsPrice: 500, ShippingPrice: 200, TaxPrice: 90, TotalPrice: 790},
		},
		{
			name:  "above threshold ships free",
			lines: []Line{{Price: 400, Quantity: 2}, {Price: 200, Quantity: 2}},
			want:  Breakdown{ItemsPrice: 1200, ShippingPrice: 0, TaxPrice: 216, TotalPrice: 1416},
		},
		{
			name:  "exactly at threshold still pays shipping",
			lines: []Line{{Price: 1000, Quantity: 1}},
			want:  Breakdown{ItemsPrice: 1000, ShippingPrice: 200, TaxPrice: 180, TotalPrice: 1380},
		},
		{
			name:  "fractional prices",
			lines: []Line{{Price: 19.99, Quantity: 3}},
			want:  Breakdown{ItemsPrice: 59.97, ShippingPrice: 200, TaxPrice: 10.79, TotalPrice: 270.76},
		},
		{
			name:  "empty cart",
			lines: nil,
			want:  Breakdown{ItemsPrice: 0, ShippingPrice: 200, TaxPrice: 0, TotalPrice: 200},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Quote(tc.lines))
		})
	}
}

func TestQuoteTotalIsSumOfParts(t *testing.T) {
	for subtotal := 0; subtotal <= 3000; subtotal += 37 {
		b := Quote([]Line{{Price: float64(subtotal), Quantity: 1}})
		assert.InDelta(t, b.ItemsPrice+b.ShippingPrice+b.TaxPrice, b.TotalPrice, 0.01, "subtotal %d", subtotal)
		if subtotal > FreeShippingThreshold {
			assert.Equal(t, 0.0, b.ShippingPrice)
		} else {
			assert.Equal(t, float64(FlatShipping), b.ShippingPrice)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(79000), MinorUnits(790))
	assert.Equal(t, int64(27076), MinorUnits(270.76))
	assert.Equal(t, int64(1), MinorUnits(0.005))
	assert.True(t, Matches(1416, 1416.001))
	assert.False(t, Matches(1416, 1416.02))
}
