package engine

import (
	"encoding/json"

	"github.com/abgdnv/orderbot/internal/catalog"
	"github.com/shopspring/decimal"
)

// CartItem is one product line. Its subtotal is always derived from price and quantity.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns UnitPrice × Quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// MarshalJSON includes the derived subtotal for readers of stored sessions and orders.
func (i CartItem) MarshalJSON() ([]byte, error) {
	type plain CartItem
	return json.Marshal(struct {
		plain
		Subtotal decimal.Decimal `json:"subtotal"`
	}{plain(i), i.Subtotal()})
}

// Cart is the in-progress purchase. Total always equals the sum of item subtotals.
type Cart struct {
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// Add appends a new line for the product; identical products are not merged.
func (c *Cart) Add(p catalog.Product, quantity int) CartItem {
	item := CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
	}
	c.Items = append(c.Items, item)
	c.Recompute()
	return item
}

// Sum returns the sum of item subtotals without trusting the stored Total.
func (c Cart) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Recompute derives Total from the items.
func (c *Cart) Recompute() {
	c.Total = c.Sum()
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
	c.Total = decimal.Zero
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy.
func (c Cart) Clone() Cart {
	out := Cart{Total: c.Total}
	if c.Items != nil {
		out.Items = make([]CartItem, len(c.Items))
		copy(out.Items, c.Items)
	}
	return out
}
