// Package memrepo keeps every repository in process memory. It backs the
// memory storage driver and the handler tests, and mirrors the Mongo
// repositories' uniqueness, ordering and filtering rules.
package memrepo

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go-giftshop/models"
	"go-giftshop/port"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu sync.RWMutex

	categories  map[primitive.ObjectID]models.Category
	products    map[primitive.ObjectID]models.Product
	orders      map[string]models.Order
	reviews     map[primitive.ObjectID]models.Review
	coupons     map[primitive.ObjectID]models.Coupon
	countdowns  map[primitive.ObjectID]models.Countdown
	subscribers map[primitive.ObjectID]models.EmailSubscriber
}

func New() *Store {
	return &Store{
		categories:  make(map[primitive.ObjectID]models.Category),
		products:    make(map[primitive.ObjectID]models.Product),
		orders:      make(map[string]models.Order),
		reviews:     make(map[primitive.ObjectID]models.Review),
		coupons:     make(map[primitive.ObjectID]models.Coupon),
		countdowns:  make(map[primitive.ObjectID]models.Countdown),
		subscribers: make(map[primitive.ObjectID]models.EmailSubscriber),
	}
}

// Port exposes s through the repository interfaces.
func (s *Store) Port() port.Store {
	return port.Store{
		Categories:  s,
		Products:    s,
		Orders:      s,
		Reviews:     s,
		Coupons:     s,
		Countdowns:  s,
		Subscribers: s,
	}
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, port.ErrNotFound)
}

func conflict(op string) error {
	return fmt.Errorf("%s: %w", op, port.ErrConflict)
}

func paginate[T any](items []T, page int) []T {
	start := (models.ClampPage(page) - 1) * models.PageSize
	if start >= len(items) {
		return []T{}
	}
	end := min(start+models.PageSize, len(items))
	return items[start:end]
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func ensureID(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

// categories

func (s *Store) ListCategories(_ context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := lo.Values(s.categories)
	slices.SortFunc(result, func(a, b models.Category) int { return cmp.Compare(a.Name, b.Name) })
	return result, nil
}

func (s *Store) GetCategory(_ context.Context, id primitive.ObjectID) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return models.Category{}, notFound("get category")
	}
	return c, nil
}

func (s *Store) GetCategoryBySlug(_ context.Context, slug string) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := lo.Find(lo.Values(s.categories), func(c models.Category) bool { return c.Slug == slug })
	if !ok {
		return models.Category{}, notFound("get category by slug")
	}
	return c, nil
}

func (s *Store) InsertCategory(_ context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.categorySlugTaken(category.Slug, category.ID) {
		return conflict("insert category")
	}
	ensureID(&category.ID)
	s.categories[category.ID] = *category
	return nil
}

func (s *Store) UpdateCategory(_ context.Context, category models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[category.ID]
	if !ok {
		return notFound("update category")
	}
	if s.categorySlugTaken(category.Slug, category.ID) {
		return conflict("update category")
	}

	category.CreatedAt = existing.CreatedAt
	s.categories[category.ID] = category

	for id, p := range s.products {
		if p.CategoryID == category.ID {
			p.CategorySlug = category.Slug
			s.products[id] = p
		}
	}
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return notFound("delete category")
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) categorySlugTaken(slug string, self primitive.ObjectID) bool {
	for id, c := range s.categories {
		if c.Slug == slug && id != self {
			return true
		}
	}
	return false
}

// products

func (s *Store) ListProducts(_ context.Context, filter models.ProductFilter, page int) ([]models.Product, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := lo.Filter(lo.Values(s.products), func(p models.Product, _ int) bool {
		if filter.OnlyActive && !p.IsActive {
			return false
		}
		if filter.CategorySlug != "" && p.CategorySlug != filter.CategorySlug {
			return false
		}
		if filter.Search != "" && !containsFold(p.Name, filter.Search) && !containsFold(p.Description, filter.Search) {
			return false
		}
		return true
	})

	slices.SortFunc(matched, func(a, b models.Product) int {
		if a.IsFeatured != b.IsFeatured {
			if a.IsFeatured {
				return -1
			}
			return 1
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return lo.Map(paginate(matched, page), func(p models.Product, _ int) models.Product {
		p.Images = slices.Clone(p.Images)
		return p
	}), int64(len(matched)), nil
}

func (s *Store) GetProduct(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return models.Product{}, notFound("get product")
	}
	p.Images = slices.Clone(p.Images)
	return p, nil
}

func (s *Store) GetProductBySlug(_ context.Context, slug string) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := lo.Find(lo.Values(s.products), func(p models.Product) bool { return p.Slug == slug })
	if !ok {
		return models.Product{}, notFound("get product by slug")
	}
	p.Images = slices.Clone(p.Images)
	return p, nil
}

func (s *Store) CountProductsInCategory(_ context.Context, categoryID primitive.ObjectID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := lo.CountBy(lo.Values(s.products), func(p models.Product) bool { return p.CategoryID == categoryID })
	return int64(n), nil
}

func (s *Store) InsertProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.productSlugTaken(product.Slug, product.ID) {
		return conflict("insert product")
	}
	ensureID(&product.ID)

	stored := *product
	stored.Images = slices.Clone(product.Images)
	s.products[product.ID] = stored
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, product models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return notFound("update product")
	}
	if s.productSlugTaken(product.Slug, product.ID) {
		return conflict("update product")
	}

	product.CreatedAt = existing.CreatedAt
	product.Images = slices.Clone(product.Images)
	s.products[product.ID] = product
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return notFound("delete product")
	}
	delete(s.products, id)
	return nil
}

func (s *Store) productSlugTaken(slug string, self primitive.ObjectID) bool {
	for id, p := range s.products {
		if p.Slug == slug && id != self {
			return true
		}
	}
	return false
}

// orders

func cloneOrder(o models.Order) models.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

func orderMatches(o models.Order, filter models.OrderFilter) bool {
	if filter.Status != "" && o.Status != filter.Status {
		return false
	}
	if filter.Branch != "" && o.Branch != filter.Branch {
		return false
	}
	if filter.DateFrom != nil && o.CreatedAt.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && !o.CreatedAt.Before(*filter.DateTo) {
		return false
	}
	if filter.Search != "" {
		fields := []string{
			o.OrderNumber,
			o.Customer.Name,
			o.Customer.Email,
			o.Customer.Phone,
			o.Delivery.RecipientName,
		}
		if !lo.SomeBy(fields, func(f string) bool { return containsFold(f, filter.Search) }) {
			return false
		}
	}
	return true
}

func (s *Store) LatestOrderNumber(_ context.Context, prefix string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := ""
	for number := range s.orders {
		if strings.HasPrefix(number, prefix) && number > latest {
			latest = number
		}
	}
	return latest, nil
}

func (s *Store) InsertOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.OrderNumber]; ok {
		return conflict("insert order")
	}
	ensureID(&order.ID)
	s.orders[order.OrderNumber] = cloneOrder(*order)
	return nil
}

func (s *Store) GetOrderByNumber(_ context.Context, orderNumber string) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderNumber]
	if !ok {
		return models.Order{}, notFound("get order")
	}
	return cloneOrder(o), nil
}

func (s *Store) ListOrders(_ context.Context, filter models.OrderFilter, page int) ([]models.Order, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := lo.Filter(lo.Values(s.orders), func(o models.Order, _ int) bool { return orderMatches(o, filter) })
	slices.SortFunc(matched, func(a, b models.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })

	return lo.Map(paginate(matched, page), func(o models.Order, _ int) models.Order {
		return cloneOrder(o)
	}), int64(len(matched)), nil
}

func (s *Store) CountOrders(_ context.Context, filter models.OrderFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := lo.CountBy(lo.Values(s.orders), func(o models.Order) bool { return orderMatches(o, filter) })
	return int64(n), nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, orderNumber string, status models.OrderStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderNumber]
	if !ok {
		return notFound("update order status")
	}
	o.Status = status
	o.UpdatedAt = at
	s.orders[orderNumber] = o
	return nil
}

func (s *Store) UpdateOrderItems(_ context.Context, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[order.OrderNumber]
	if !ok {
		return notFound("update order items")
	}
	o.Items = slices.Clone(order.Items)
	o.Subtotal = order.Subtotal
	o.Discount = order.Discount
	o.Total = order.Total
	o.UpdatedAt = order.UpdatedAt
	s.orders[order.OrderNumber] = o
	return nil
}

func (s *Store) ProductSales(_ context.Context, productID primitive.ObjectID, limit int) (models.SalesReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sales []models.Sale
	for _, o := range s.orders {
		if o.Status == models.OrderStatusCancelled {
			continue
		}
		for _, item := range o.Items {
			if item.ProductID != productID {
				continue
			}
			sales = append(sales, models.Sale{
				OrderNumber: o.OrderNumber,
				Status:      o.Status,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				LineTotal:   item.LineTotal,
				SoldAt:      o.CreatedAt,
			})
		}
	}

	slices.SortFunc(sales, func(a, b models.Sale) int { return b.SoldAt.Compare(a.SoldAt) })

	report := models.SalesReport{Sales: []models.Sale{}, TotalAmount: decimal.Zero}
	for _, sale := range sales {
		report.TotalQuantity += sale.Quantity
		report.TotalAmount = report.TotalAmount.Add(sale.LineTotal)
	}
	if len(sales) > limit {
		sales = sales[:limit]
	}
	report.Sales = append(report.Sales, sales...)
	return report, nil
}

// reviews

func (s *Store) ListReviews(_ context.Context, filter models.ReviewFilter, page int) ([]models.Review, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := lo.Filter(lo.Values(s.reviews), func(r models.Review, _ int) bool {
		if filter.ProductID != nil && r.ProductID != *filter.ProductID {
			return false
		}
		if filter.IsApproved != nil && r.IsApproved != *filter.IsApproved {
			return false
		}
		return true
	})
	slices.SortFunc(matched, func(a, b models.Review) int { return b.CreatedAt.Compare(a.CreatedAt) })

	return paginate(matched, page), int64(len(matched)), nil
}

func (s *Store) InsertReview(_ context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ensureID(&review.ID)
	s.reviews[review.ID] = *review
	return nil
}

func (s *Store) SetReviewApproval(_ context.Context, id primitive.ObjectID, approved bool) (models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reviews[id]
	if !ok {
		return models.Review{}, notFound("set review approval")
	}
	r.IsApproved = approved
	s.reviews[id] = r
	return r, nil
}

func (s *Store) DeleteReview(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reviews[id]; !ok {
		return notFound("delete review")
	}
	delete(s.reviews, id)
	return nil
}

// coupons

func (s *Store) ListCoupons(_ context.Context) ([]models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := lo.Values(s.coupons)
	slices.SortFunc(result, func(a, b models.Coupon) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return result, nil
}

func (s *Store) GetCoupon(_ context.Context, id primitive.ObjectID) (models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.coupons[id]
	if !ok {
		return models.Coupon{}, notFound("get coupon")
	}
	return c, nil
}

func (s *Store) GetCouponByCode(_ context.Context, code string) (models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := lo.Find(lo.Values(s.coupons), func(c models.Coupon) bool { return c.Code == code })
	if !ok {
		return models.Coupon{}, notFound("get coupon by code")
	}
	return c, nil
}

func (s *Store) InsertCoupon(_ context.Context, coupon *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.couponCodeTaken(coupon.Code, coupon.ID) {
		return conflict("insert coupon")
	}
	ensureID(&coupon.ID)
	s.coupons[coupon.ID] = *coupon
	return nil
}

func (s *Store) UpdateCoupon(_ context.Context, coupon models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.coupons[coupon.ID]
	if !ok {
		return notFound("update coupon")
	}
	if s.couponCodeTaken(coupon.Code, coupon.ID) {
		return conflict("update coupon")
	}

	coupon.UsedCount = existing.UsedCount
	coupon.CreatedAt = existing.CreatedAt
	s.coupons[coupon.ID] = coupon
	return nil
}

func (s *Store) DeleteCoupon(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.coupons[id]; !ok {
		return notFound("delete coupon")
	}
	delete(s.coupons, id)
	return nil
}

func (s *Store) RedeemCoupon(_ context.Context, id primitive.ObjectID) (models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[id]
	if !ok {
		return models.Coupon{}, notFound("redeem coupon")
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return models.Coupon{}, models.ErrCouponExhausted
	}

	c.UsedCount++
	c.UpdatedAt = time.Now().UTC()
	s.coupons[id] = c
	return c, nil
}

func (s *Store) couponCodeTaken(code string, self primitive.ObjectID) bool {
	for id, c := range s.coupons {
		if c.Code == code && id != self {
			return true
		}
	}
	return false
}

// countdowns

func (s *Store) ListCountdowns(_ context.Context) ([]models.Countdown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := lo.Values(s.countdowns)
	slices.SortFunc(result, func(a, b models.Countdown) int { return a.TargetDate.Compare(b.TargetDate) })
	return result, nil
}

func (s *Store) ActiveCountdowns(_ context.Context, now time.Time) ([]models.Countdown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := lo.Filter(lo.Values(s.countdowns), func(c models.Countdown, _ int) bool {
		return c.IsActive && c.TargetDate.After(now)
	})
	slices.SortFunc(result, func(a, b models.Countdown) int { return a.TargetDate.Compare(b.TargetDate) })
	return result, nil
}

func (s *Store) InsertCountdown(_ context.Context, countdown *models.Countdown) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ensureID(&countdown.ID)
	s.countdowns[countdown.ID] = *countdown
	return nil
}

func (s *Store) UpdateCountdown(_ context.Context, countdown models.Countdown) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.countdowns[countdown.ID]
	if !ok {
		return notFound("update countdown")
	}
	countdown.CreatedAt = existing.CreatedAt
	s.countdowns[countdown.ID] = countdown
	return nil
}

func (s *Store) DeleteCountdown(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.countdowns[id]; !ok {
		return notFound("delete countdown")
	}
	delete(s.countdowns, id)
	return nil
}

// subscribers

func (s *Store) GetSubscriberByEmail(_ context.Context, email string) (models.EmailSubscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := lo.Find(lo.Values(s.subscribers), func(sub models.EmailSubscriber) bool { return sub.Email == email })
	if !ok {
		return models.EmailSubscriber{}, notFound("get subscriber")
	}
	return sub, nil
}

func (s *Store) InsertSubscriber(_ context.Context, subscriber *models.EmailSubscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lo.SomeBy(lo.Values(s.subscribers), func(sub models.EmailSubscriber) bool { return sub.Email == subscriber.Email }) {
		return conflict("insert subscriber")
	}
	ensureID(&subscriber.ID)
	s.subscribers[subscriber.ID] = *subscriber
	return nil
}

func (s *Store) SetSubscriberActive(_ context.Context, id primitive.ObjectID, active bool, name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscribers[id]
	if !ok {
		return notFound("set subscriber active")
	}

	sub.IsActive = active
	if active {
		sub.SubscribedAt = at
		sub.UnsubscribedAt = nil
		if name != "" {
			sub.Name = name
		}
	} else {
		sub.UnsubscribedAt = &at
	}
	s.subscribers[id] = sub
	return nil
}

func (s *Store) ListSubscribers(_ context.Context, active *bool, page int) ([]models.EmailSubscriber, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := lo.Filter(lo.Values(s.subscribers), func(sub models.EmailSubscriber, _ int) bool {
		return active == nil || sub.IsActive == *active
	})
	slices.SortFunc(matched, func(a, b models.EmailSubscriber) int { return b.SubscribedAt.Compare(a.SubscribedAt) })

	return paginate(matched, page), int64(len(matched)), nil
}
