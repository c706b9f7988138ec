package tab

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidAmount(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{"0", true},
		{"1500", true},
		{"1500.00", true},
		{"9999999999999999", true},
		{"100.5", false},
		{"0.01", false},
		{"-1", false},
		{"10000000000000000", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidAmount(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestNormalizeLines(t *testing.T) {
	catalog := map[string]Product{
		"beer":  {ID: "beer", Name: "Beer", Price: decimal.NewFromInt(800), Active: true},
		"latte": {ID: "latte", Name: "Latte", Price: decimal.RequireFromString("450.5"), Active: true},
	}
	name := func(s string) *string { return &s }
	price := func(s string) *decimal.Decimal { d := decimal.RequireFromString(s); return &d }
	qty := func(n int) *int { return &n }

	tests := []struct {
		name     string
		in       OrderLineInput
		wantOK   bool
		wantQty  int
		wantName string
	}{
		{"catalog product", OrderLineInput{ProductID: name("beer"), Quantity: qty(2)}, true, 2, "Beer"},
		{"fractional catalog price", OrderLineInput{ProductID: name("latte")}, false, 0, ""},
		{"fractional catalog price with explicit fallback", OrderLineInput{ProductID: name("latte"), Name: name("Latte"), Price: price("450")}, true, 1, "Latte"},
		{"custom whole price", OrderLineInput{Name: name(" Tea "), Price: price("300")}, true, 1, "Tea"},
		{"custom fractional price", OrderLineInput{Name: name("Coffee"), Price: price("100.5")}, false, 0, ""},
		{"quantity at limit", OrderLineInput{Name: name("Towel"), Price: price("300"), Quantity: qty(MaxLineQuantity)}, true, MaxLineQuantity, "Towel"},
		{"quantity over limit", OrderLineInput{Name: name("Wine"), Price: price("100000"), Quantity: qty(MaxLineQuantity + 1)}, false, 0, ""},
		{"subtotal over limit", OrderLineInput{Name: name("Wine"), Price: price("9000000000000000"), Quantity: qty(2)}, false, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := NormalizeLines([]OrderLineInput{tt.in}, catalog)
			if !tt.wantOK {
				assert.Empty(t, lines)
				return
			}
			require.Len(t, lines, 1)
			assert.Equal(t, tt.wantQty, lines[0].Quantity)
			assert.Equal(t, tt.wantName, lines[0].Name)
			assert.True(t, ValidAmount(lines[0].Subtotal()))
		})
	}
}
