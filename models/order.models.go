package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order is a placed order. Items keep a snapshot of the product at checkout
// time so later catalog edits never change what was sold.
type Order struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrderNumber string             `bson:"order_number" json:"orderNumber"`
	Status      OrderStatus        `bson:"status" json:"status"`
	Branch      string             `bson:"branch,omitempty" json:"branch,omitempty"`
	Customer    Customer           `bson:"customer" json:"customer"`
	Delivery    Delivery           `bson:"delivery" json:"delivery"`
	Items       []OrderItem        `bson:"items" json:"items"`
	Subtotal    decimal.Decimal    `bson:"subtotal" json:"subtotal"`
	CouponCode  string             `bson:"coupon_code,omitempty" json:"couponCode,omitempty"`
	Discount    decimal.Decimal    `bson:"discount" json:"discount"`
	Total       decimal.Decimal    `bson:"total" json:"total"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal    `bson:"unit_price" json:"unitPrice"`
	LineTotal decimal.Decimal    `bson:"line_total" json:"lineTotal"`
}

// Totals recomputes subtotal and total from the items, capping the discount at
// the subtotal.
func (o *Order) Totals() {
	subtotal := decimal.Zero
	for i := range o.Items {
		o.Items[i].LineTotal = o.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(o.Items[i].Quantity)))
		subtotal = subtotal.Add(o.Items[i].LineTotal)
	}

	o.Subtotal = subtotal
	if o.Discount.GreaterThan(subtotal) {
		o.Discount = subtotal
	}
	o.Total = subtotal.Sub(o.Discount)
}

// OrderFilter has AND semantics across the set fields
type OrderFilter struct {
	Status   OrderStatus
	Branch   string
	Search   string
	DateFrom *time.Time // inclusive
	DateTo   *time.Time // exclusive
}

// WithoutStatus returns the filter used for per-status aggregate counts.
func (f OrderFilter) WithoutStatus() OrderFilter {
	f.Status = ""
	return f
}

// Sale is one order line for a product, used by the sales report.
type Sale struct {
	OrderNumber string          `bson:"order_number" json:"orderNumber"`
	Status      OrderStatus     `bson:"status" json:"status"`
	Quantity    int             `bson:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `bson:"unit_price" json:"unitPrice"`
	LineTotal   decimal.Decimal `bson:"line_total" json:"lineTotal"`
	SoldAt      time.Time       `bson:"sold_at" json:"soldAt"`
}

type SalesReport struct {
	Sales         []Sale          `json:"sales"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}
