// Package catalog holds the read-only product catalog the conversation sells from.
package catalog

import (
	"fmt"
	"reflect"
	"strings"

	boterrors "github.com/abgdnv/orderbot/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Product is a sellable item. Stock is informational: quantities are checked against it but never decremented.
type Product struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Description string          `json:"description"`
}

// Label is the quick-reply option shown for the product.
func (p Product) Label() string {
	return fmt.Sprintf("%s - $%s", p.Name, p.Price.StringFixed(2))
}

// Catalog is an immutable, ordered set of products.
type Catalog struct {
	products []Product
	byID     map[string]int
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// New validates the products and builds a catalog preserving their order.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("%w %q: %v", boterrors.ErrInvalidProduct, p.ID, err)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", boterrors.ErrInvalidProduct, p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Products returns a copy of the products in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// FindByID looks a product up by its identifier.
func (c *Catalog) FindByID(id string) (Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Match finds the product whose name appears in text, ignoring case.
// When several names match, the longest wins.
func (c *Catalog) Match(text string) (Product, bool) {
	lower := strings.ToLower(text)
	best := -1
	for i, p := range c.products {
		if !strings.Contains(lower, strings.ToLower(p.Name)) {
			continue
		}
		if best < 0 || len(p.Name) > len(c.products[best].Name) {
			best = i
		}
	}
	if best < 0 {
		return Product{}, false
	}
	return c.products[best], true
}
