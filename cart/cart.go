// Package cart holds shopping carts for browsing sessions. Carts live in
// process memory only and disappear when the session goes idle.
package cart

import (
	"errors"
	"fmt"
	"slices"

	"go-giftshop/models"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrQuantityLimit   = fmt.Errorf("quantity cannot exceed %d", models.MaxQuantity)
)

// Cart keeps at most one line per product, in the order products were first
// added. The zero value is an empty cart.
type Cart struct {
	items []models.CartItem
}

// Add puts quantity units of item in the cart, merging with an existing line
// for the same product.
func (c *Cart) Add(item models.CartItem, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > models.MaxQuantity {
		return ErrQuantityLimit
	}

	if i := c.index(item.ProductID); i >= 0 {
		if c.items[i].Quantity > models.MaxQuantity-quantity {
			return ErrQuantityLimit
		}
		c.items[i].Quantity += quantity
		return nil
	}

	item.Quantity = quantity
	c.items = append(c.items, item)
	return nil
}

// UpdateQuantity sets the quantity of a line, capped at models.MaxQuantity.
// A quantity of zero or less removes it. It reports whether the product was
// in the cart.
func (c *Cart) UpdateQuantity(productID string, quantity int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}

	if quantity <= 0 {
		c.items = slices.Delete(c.items, i, i+1)
		return true
	}

	c.items[i].Quantity = min(quantity, models.MaxQuantity)
	return true
}

func (c *Cart) Remove(productID string) {
	if i := c.index(productID); i >= 0 {
		c.items = slices.Delete(c.items, i, i+1)
	}
}

func (c *Cart) Clear() {
	c.items = nil
}

func (c *Cart) Items() []models.CartItem {
	return slices.Clone(c.items)
}

func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Snapshot is the JSON view of a cart.
type Snapshot struct {
	Items       []models.CartItem `json:"items"`
	TotalItems  int               `json:"totalItems"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
}

func (c *Cart) Snapshot() Snapshot {
	items := c.Items()
	if items == nil {
		items = []models.CartItem{}
	}
	return Snapshot{
		Items:       items,
		TotalItems:  c.TotalItems(),
		TotalAmount: c.TotalAmount(),
	}
}

func (c *Cart) index(productID string) int {
	return slices.IndexFunc(c.items, func(item models.CartItem) bool {
		return item.ProductID == productID
	})
}
