package models

import (
	"github.com/shopspring/decimal"
)

// MaxQuantity bounds the units of a single product in a cart or order.
const MaxQuantity = 999

// CartItem is one line of a shopping cart. It lives only for the browsing
// session and is never persisted.
type CartItem struct {
	ProductID string          `json:"productId"`
	Slug      string          `json:"slug"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns quantity x unit price.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
