package discount

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one priced line in the cart being evaluated.
type CartItem struct {
	ProductID uuid.UUID
	Name      string
	Category  string
	UnitPrice decimal.Decimal
	Qty       int
}

// LineTotal returns unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// Cart is the priced input the discount engine evaluates against. The engine
// never mutates it.
type Cart struct {
	Items       []CartItem
	ShippingFee decimal.Decimal
}

// Subtotal sums every line total.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}
