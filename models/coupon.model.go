package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

var (
	ErrCouponInactive   = errors.New("coupon is not active")
	ErrCouponNotStarted = errors.New("coupon is not valid yet")
	ErrCouponExpired    = errors.New("coupon has expired")
	ErrCouponExhausted  = errors.New("coupon usage limit reached")
	ErrCouponMinimum    = errors.New("order subtotal is below the coupon minimum")
)

var hundred = decimal.NewFromInt(100)

type Coupon struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Code         string             `bson:"code" json:"code"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	DiscountType DiscountType       `bson:"discount_type" json:"discountType"`
	Value        decimal.Decimal    `bson:"value" json:"value"`
	MinSubtotal  decimal.Decimal    `bson:"min_subtotal" json:"minSubtotal"`
	IsActive     bool               `bson:"is_active" json:"isActive"`
	StartsAt     *time.Time         `bson:"starts_at,omitempty" json:"startsAt,omitempty"`
	ExpiresAt    *time.Time         `bson:"expires_at,omitempty" json:"expiresAt,omitempty"`
	MaxUses      int                `bson:"max_uses" json:"maxUses"` // 0 means unlimited
	UsedCount    int                `bson:"used_count" json:"usedCount"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Validate checks the admin-editable fields.
func (c Coupon) Validate() error {
	if c.Code == "" {
		return errors.New("code is required")
	}

	switch c.DiscountType {
	case DiscountPercentage:
		if !c.Value.IsPositive() || c.Value.GreaterThan(hundred) {
			return errors.New("percentage value must be between 0 and 100")
		}
	case DiscountFixed:
		if !c.Value.IsPositive() {
			return errors.New("fixed value must be positive")
		}
	default:
		return fmt.Errorf("discountType must be %q or %q", DiscountPercentage, DiscountFixed)
	}

	if c.MaxUses < 0 {
		return errors.New("maxUses must not be negative")
	}
	if c.MinSubtotal.IsNegative() {
		return errors.New("minSubtotal must not be negative")
	}
	if c.StartsAt != nil && c.ExpiresAt != nil && c.ExpiresAt.Before(*c.StartsAt) {
		return errors.New("expiresAt is before startsAt")
	}

	return nil
}

// Usable reports whether the coupon may be redeemed at now.
func (c Coupon) Usable(now time.Time) error {
	if !c.IsActive {
		return ErrCouponInactive
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return ErrCouponNotStarted
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return ErrCouponExpired
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return ErrCouponExhausted
	}
	return nil
}

// Discount returns the amount taken off subtotal, never more than subtotal.
func (c Coupon) Discount(subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if err := c.Usable(now); err != nil {
		return decimal.Zero, err
	}
	if subtotal.LessThan(c.MinSubtotal) {
		return decimal.Zero, ErrCouponMinimum
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		discount = subtotal.Mul(c.Value).Div(hundred).Round(2)
	default:
		discount = c.Value
	}

	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount, nil
}
