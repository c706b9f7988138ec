package tab

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity is the largest quantity a single order line may carry
const MaxLineQuantity = 999

// MaxAmount is the largest amount the ledger's DECIMAL(18,2) columns and the
// POS's int64 minor units can both hold in whole currency units.
var MaxAmount = decimal.RequireFromString("9999999999999999")

// ValidAmount reports whether d is a non-negative whole amount within MaxAmount.
// The POS currency has no minor unit, so fractional amounts cannot be mirrored.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsInteger() && !d.IsNegative() && d.LessThanOrEqual(MaxAmount)
}

// OrderLineInput is one requested order line as decoded at the API boundary.
// A line either references a catalog product or carries an explicit name and price.
type OrderLineInput struct {
	ProductID *string          `json:"product_id,omitempty"`
	Name      *string          `json:"name,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Quantity  *int             `json:"quantity,omitempty"`
	Note      string           `json:"note,omitempty"`
}

// NormalizedLine is an input line resolved to a concrete name, price and quantity
type NormalizedLine struct {
	ProductID *string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Note      string
}

// Subtotal returns UnitPrice * Quantity
func (l NormalizedLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ProductIDs returns the distinct product references in inputs
func ProductIDs(inputs []OrderLineInput) []string {
	seen := make(map[string]struct{}, len(inputs))
	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if in.ProductID == nil {
			continue
		}
		id := strings.TrimSpace(*in.ProductID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// NormalizeLines resolves each input against the catalog.
// A known active product supplies name and price; otherwise an explicit
// non-empty name with a whole, non-negative price is accepted. Anything else
// is dropped. Missing or non-positive quantities default to 1; quantities
// above MaxLineQuantity drop the line, as does a line subtotal beyond MaxAmount.
func NormalizeLines(inputs []OrderLineInput, catalog map[string]Product) []NormalizedLine {
	out := make([]NormalizedLine, 0, len(inputs))
	for _, in := range inputs {
		line, ok := normalizeLine(in, catalog)
		if ok {
			out = append(out, line)
		}
	}
	return out
}

func normalizeLine(in OrderLineInput, catalog map[string]Product) (NormalizedLine, bool) {
	qty := 1
	if in.Quantity != nil && *in.Quantity > 0 {
		qty = *in.Quantity
	}
	if qty > MaxLineQuantity {
		return NormalizedLine{}, false
	}
	line := NormalizedLine{Quantity: qty, Note: strings.TrimSpace(in.Note)}

	if in.ProductID != nil {
		id := strings.TrimSpace(*in.ProductID)
		if p, ok := catalog[id]; ok && p.Active && ValidAmount(p.Price) {
			line.ProductID = &id
			line.Name = p.Name
			line.UnitPrice = p.Price
			return line, ValidAmount(line.Subtotal())
		}
	}

	if in.Name == nil || in.Price == nil {
		return NormalizedLine{}, false
	}
	name := strings.TrimSpace(*in.Name)
	if name == "" || !ValidAmount(*in.Price) {
		return NormalizedLine{}, false
	}
	line.Name = name
	line.UnitPrice = *in.Price
	return line, ValidAmount(line.Subtotal())
}
