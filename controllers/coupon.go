package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go-giftshop/models"
	"go-giftshop/port"
	"go-giftshop/services"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CouponController handles discount coupons
type CouponController struct {
	Coupons port.CouponRepository
	Service *services.OrderService
}

// NewCouponController creates a new CouponController
func NewCouponController(coupons port.CouponRepository, service *services.OrderService) *CouponController {
	return &CouponController{
		Coupons: coupons,
		Service: service,
	}
}

type validateCouponRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ValidateCoupon previews the discount a code gives on a subtotal
func (cc *CouponController) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	if req.Subtotal.IsNegative() {
		writeError(w, http.StatusBadRequest, "subtotal must not be negative")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	coupon, discount, err := cc.Service.CheckCoupon(ctx, req.Code, req.Subtotal)
	if err != nil {
		handleError(w, r, err, "coupon not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":        true,
		"couponId":     coupon.ID,
		"code":         coupon.Code,
		"discountType": coupon.DiscountType,
		"value":        coupon.Value,
		"discount":     discount,
		"total":        req.Subtotal.Sub(discount),
	})
}

type useCouponRequest struct {
	CouponID string `json:"couponId"`
}

// UseCoupon counts one redemption of a coupon
func (cc *CouponController) UseCoupon(w http.ResponseWriter, r *http.Request) {
	var req useCouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CouponID == "" {
		writeError(w, http.StatusBadRequest, "couponId is required")
		return
	}
	id, err := primitive.ObjectIDFromHex(req.CouponID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid couponId")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	coupon, err := cc.Coupons.RedeemCoupon(ctx, id)
	if errors.Is(err, models.ErrCouponExhausted) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		handleError(w, r, err, "coupon not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"usedCount": coupon.UsedCount,
	})
}

// GetCoupons lists every coupon (Admin only)
func (cc *CouponController) GetCoupons(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	coupons, err := cc.Coupons.ListCoupons(ctx)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, coupons)
}

type couponRequest struct {
	Code         string              `json:"code"`
	Description  string              `json:"description"`
	DiscountType models.DiscountType `json:"discountType"`
	Value        decimal.Decimal     `json:"value"`
	MinSubtotal  decimal.Decimal     `json:"minSubtotal"`
	IsActive     *bool               `json:"isActive"`
	StartsAt     *time.Time          `json:"startsAt"`
	ExpiresAt    *time.Time          `json:"expiresAt"`
	MaxUses      int                 `json:"maxUses"`
}

func (req couponRequest) apply(coupon *models.Coupon) error {
	coupon.Code = services.NormalizeCouponCode(req.Code)
	coupon.Description = strings.TrimSpace(req.Description)
	coupon.DiscountType = req.DiscountType
	coupon.Value = req.Value
	coupon.MinSubtotal = req.MinSubtotal
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}
	coupon.StartsAt = req.StartsAt
	coupon.ExpiresAt = req.ExpiresAt
	coupon.MaxUses = req.MaxUses
	return coupon.Validate()
}

// CreateCoupon adds a coupon (Admin only)
func (cc *CouponController) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	coupon := models.Coupon{IsActive: true}
	if err := req.apply(&coupon); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := time.Now().UTC()
	coupon.CreatedAt = now
	coupon.UpdatedAt = now

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := cc.Coupons.InsertCoupon(ctx, &coupon); err != nil {
		handleError(w, r, err, "coupon not found")
		return
	}

	writeJSON(w, http.StatusCreated, coupon)
}

// UpdateCoupon edits a coupon; its usage count is left alone (Admin only)
func (cc *CouponController) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDVar(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid coupon id")
		return
	}

	var req couponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	coupon, err := cc.Coupons.GetCoupon(ctx, id)
	if err != nil {
		handleError(w, r, err, "coupon not found")
		return
	}

	if err := req.apply(&coupon); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	coupon.UpdatedAt = time.Now().UTC()

	if err := cc.Coupons.UpdateCoupon(ctx, coupon); err != nil {
		handleError(w, r, err, "coupon not found")
		return
	}

	writeJSON(w, http.StatusOK, coupon)
}

// DeleteCoupon removes a coupon (Admin only)
func (cc *CouponController) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDVar(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid coupon id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := cc.Coupons.DeleteCoupon(ctx, id); err != nil {
		handleError(w, r, err, "coupon not found")
		return
	}

	writeOK(w)
}
