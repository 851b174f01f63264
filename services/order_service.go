package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go-giftshop/events"
	"go-giftshop/models"
	"go-giftshop/ordernumber"
	"go-giftshop/port"
	"go-giftshop/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// LineInput is one requested order line
type LineInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type PlaceOrderInput struct {
	Customer   models.Customer `json:"customer"`
	Delivery   models.Delivery `json:"delivery"`
	Items      []LineInput     `json:"items"`
	CouponCode string          `json:"couponCode"`
	Branch     string          `json:"branch"`
	Notes      string          `json:"notes"`
}

// OrderPage is one page of the admin order listing
type OrderPage struct {
	Orders       []models.Order               `json:"orders"`
	Page         int                          `json:"page"`
	PageSize     int                          `json:"pageSize"`
	Total        int64                        `json:"total"`
	TotalPages   int                          `json:"totalPages"`
	StatusCounts map[models.OrderStatus]int64 `json:"statusCounts"`
}

type OrderService struct {
	orders    port.OrderRepository
	products  port.ProductRepository
	coupons   port.CouponRepository
	allocator *ordernumber.Allocator
	publisher events.Publisher
	emails    *utils.EmailService
	placed    prometheus.Counter
	now       func() time.Time
}

type OrderServiceOption func(*OrderService)

func WithPlacedCounter(c prometheus.Counter) OrderServiceOption {
	return func(s *OrderService) { s.placed = c }
}

func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) { s.now = now }
}

func NewOrderService(
	store port.Store,
	allocator *ordernumber.Allocator,
	publisher events.Publisher,
	emails *utils.EmailService,
	opts ...OrderServiceOption,
) *OrderService {
	s := &OrderService{
		orders:    store.Orders,
		products:  store.Products,
		coupons:   store.Coupons,
		allocator: allocator,
		publisher: publisher,
		emails:    emails,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder prices the requested lines from the catalog, applies the coupon,
// stores the order under a freshly allocated number and redeems the coupon.
// Notifications go out in the background.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (models.Order, error) {
	if err := validateCheckout(in); err != nil {
		return models.Order{}, err
	}

	items, err := s.priceLines(ctx, in.Items, nil)
	if err != nil {
		return models.Order{}, err
	}

	now := s.now().UTC()
	order := models.Order{
		Status:    models.OrderStatusReceived,
		Branch:    strings.TrimSpace(in.Branch),
		Customer:  in.Customer,
		Delivery:  in.Delivery,
		Items:     items,
		Notes:     strings.TrimSpace(in.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	order.Customer.Email = utils.NormalizeEmail(order.Customer.Email)
	order.Totals()

	var coupon *models.Coupon
	if code := NormalizeCouponCode(in.CouponCode); code != "" {
		c, discount, err := s.CheckCoupon(ctx, code, order.Subtotal)
		if err != nil {
			return models.Order{}, err
		}
		coupon = &c
		order.CouponCode = c.Code
		order.Discount = discount
		order.Totals()
	}

	_, err = s.allocator.Allocate(ctx, func(ctx context.Context, number string) error {
		order.OrderNumber = number
		return s.orders.InsertOrder(ctx, &order)
	})
	if err != nil {
		return models.Order{}, err
	}

	logger := zerolog.Ctx(ctx).With().Str("order_number", order.OrderNumber).Logger()

	if coupon != nil {
		// the order stands even if the redemption fails
		if _, err := s.coupons.RedeemCoupon(ctx, coupon.ID); err != nil {
			logger.Warn().Err(err).Str("coupon", coupon.Code).Msg("failed to redeem coupon for placed order")
		}
	}

	if err := s.publisher.Publish(ctx, events.OrderCreated(order, now)); err != nil {
		logger.Error().Err(err).Msg("failed to publish order created event")
	}

	if s.emails != nil {
		placed := order
		s.emails.Go(ctx, "order_confirmation", func(ctx context.Context) error {
			return s.emails.SendOrderConfirmationEmail(ctx, placed)
		})
		s.emails.Go(ctx, "new_order_alert", func(ctx context.Context) error {
			return s.emails.SendNewOrderAlert(ctx, placed)
		})
	}

	if s.placed != nil {
		s.placed.Inc()
	}

	logger.Info().Str("total", order.Total.String()).Int("items", len(order.Items)).Msg("order placed")

	return order, nil
}

// CheckCoupon looks a coupon up by code and computes its discount for
// subtotal. Unknown or unusable coupons are validation errors.
func (s *OrderService) CheckCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (models.Coupon, decimal.Decimal, error) {
	coupon, err := s.coupons.GetCouponByCode(ctx, NormalizeCouponCode(code))
	if errors.Is(err, port.ErrNotFound) {
		return models.Coupon{}, decimal.Zero, Invalid("coupon %q does not exist", code)
	}
	if err != nil {
		return models.Coupon{}, decimal.Zero, err
	}

	discount, err := coupon.Discount(subtotal, s.now())
	if err != nil {
		return models.Coupon{}, decimal.Zero, Invalid("%s", err.Error())
	}
	return coupon, discount, nil
}

// UpdateStatus moves an order to status. Setting the current status again is
// a no-op and publishes nothing.
func (s *OrderService) UpdateStatus(ctx context.Context, orderNumber, status string) (models.Order, error) {
	next, err := models.ToOrderStatus(status)
	if err != nil {
		return models.Order{}, Invalid("status must be one of %v", models.OrderStatuses())
	}

	order, err := s.orders.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return models.Order{}, err
	}
	if order.Status == next {
		return order, nil
	}

	previous := order.Status
	now := s.now().UTC()

	if err := s.orders.UpdateOrderStatus(ctx, orderNumber, next, now); err != nil {
		return models.Order{}, err
	}
	order.Status = next
	order.UpdatedAt = now

	if err := s.publisher.Publish(ctx, events.OrderStatusChanged(order, previous, now)); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("order_number", orderNumber).Msg("failed to publish status change")
	}

	return order, nil
}

// UpdateItems replaces the lines of an open order. Lines are re-priced from
// the catalog; products since removed from it keep their snapshot. The stored
// discount is kept but never exceeds the new subtotal.
func (s *OrderService) UpdateItems(ctx context.Context, orderNumber string, lines []LineInput) (models.Order, error) {
	if err := validateLines(lines); err != nil {
		return models.Order{}, err
	}

	order, err := s.orders.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return models.Order{}, err
	}
	if order.Status == models.OrderStatusDelivered || order.Status == models.OrderStatusCancelled {
		return models.Order{}, Invalid("items of a %s order cannot be changed", order.Status)
	}

	items, err := s.priceLines(ctx, lines, order.Items)
	if err != nil {
		return models.Order{}, err
	}

	order.Items = items
	order.UpdatedAt = s.now().UTC()
	order.Totals()

	if err := s.orders.UpdateOrderItems(ctx, order); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// ListOrders returns one page of orders matching filter and, for every
// status, how many orders match the filter with that status. The counting
// queries run concurrently.
func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter, page int) (OrderPage, error) {
	page = models.ClampPage(page)

	var (
		orders   []models.Order
		total    int64
		statuses = models.OrderStatuses()
		counts   = make([]int64, len(statuses))
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		orders, total, err = s.orders.ListOrders(gctx, filter, page)
		return err
	})

	base := filter.WithoutStatus()
	for i, status := range statuses {
		g.Go(func() error {
			f := base
			f.Status = status
			n, err := s.orders.CountOrders(gctx, f)
			counts[i] = n
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return OrderPage{}, err
	}

	result := OrderPage{
		Orders:       orders,
		Page:         page,
		PageSize:     models.PageSize,
		Total:        total,
		TotalPages:   int(math.Ceil(float64(total) / float64(models.PageSize))),
		StatusCounts: make(map[models.OrderStatus]int64, len(statuses)),
	}
	for i, status := range statuses {
		result.StatusCounts[status] = counts[i]
	}
	return result, nil
}

// priceLines turns requested lines into order items. Repeated products are
// merged. previous supplies snapshots for products no longer in the catalog.
func (s *OrderService) priceLines(ctx context.Context, lines []LineInput, previous []models.OrderItem) ([]models.OrderItem, error) {
	snapshots := make(map[primitive.ObjectID]models.OrderItem, len(previous))
	for _, item := range previous {
		snapshots[item.ProductID] = item
	}

	var (
		items []models.OrderItem
		index = make(map[primitive.ObjectID]int)
	)

	for _, line := range lines {
		id, err := primitive.ObjectIDFromHex(line.ProductID)
		if err != nil {
			return nil, Invalid("invalid product id %q", line.ProductID)
		}

		if i, ok := index[id]; ok {
			if items[i].Quantity > models.MaxQuantity-line.Quantity {
				return nil, Invalid("quantity of product %s cannot exceed %d", id.Hex(), models.MaxQuantity)
			}
			items[i].Quantity += line.Quantity
			continue
		}

		item, err := s.snapshot(ctx, id, snapshots)
		if err != nil {
			return nil, err
		}
		item.Quantity = line.Quantity

		index[id] = len(items)
		items = append(items, item)
	}

	return items, nil
}

func (s *OrderService) snapshot(ctx context.Context, id primitive.ObjectID, previous map[primitive.ObjectID]models.OrderItem) (models.OrderItem, error) {
	product, err := s.products.GetProduct(ctx, id)
	switch {
	case err == nil && product.IsActive:
		return models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.MainImage(),
			UnitPrice: product.Price,
		}, nil
	case err == nil, errors.Is(err, port.ErrNotFound):
		if item, ok := previous[id]; ok {
			return item, nil
		}
		return models.OrderItem{}, Invalid("product %s is not available", id.Hex())
	default:
		return models.OrderItem{}, err
	}
}

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateCheckout(in PlaceOrderInput) error {
	switch {
	case strings.TrimSpace(in.Customer.Name) == "":
		return Invalid("customer name is required")
	case !utils.ValidEmail(strings.TrimSpace(in.Customer.Email)):
		return Invalid("a valid customer email is required")
	case strings.TrimSpace(in.Customer.Phone) == "":
		return Invalid("customer phone is required")
	case strings.TrimSpace(in.Delivery.RecipientName) == "":
		return Invalid("recipient name is required")
	case strings.TrimSpace(in.Delivery.Address) == "":
		return Invalid("delivery address is required")
	}
	return validateLines(in.Items)
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return Invalid("at least one item is required")
	}
	for _, line := range lines {
		if line.ProductID == "" {
			return Invalid("productId is required")
		}
		if line.Quantity <= 0 {
			return Invalid("quantity must be a positive integer")
		}
		if line.Quantity > models.MaxQuantity {
			return Invalid("quantity cannot exceed %d", models.MaxQuantity)
		}
	}
	return nil
}
