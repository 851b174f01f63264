package port

import (
	"context"
	"errors"
	"time"

	"go-giftshop/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id primitive.ObjectID) (models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (models.Category, error)
	InsertCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category models.Category) error
	DeleteCategory(ctx context.Context, id primitive.ObjectID) error
}

type ProductRepository interface {
	ListProducts(ctx context.Context, filter models.ProductFilter, page int) ([]models.Product, int64, error)
	GetProduct(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (models.Product, error)
	CountProductsInCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error)
	InsertProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product models.Product) error
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error
}

type OrderRepository interface {
	// LatestOrderNumber returns the greatest order number starting with prefix,
	// or "" when there is none.
	LatestOrderNumber(ctx context.Context, prefix string) (string, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	GetOrderByNumber(ctx context.Context, orderNumber string) (models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter, page int) ([]models.Order, int64, error)
	CountOrders(ctx context.Context, filter models.OrderFilter) (int64, error)
	UpdateOrderStatus(ctx context.Context, orderNumber string, status models.OrderStatus, at time.Time) error
	UpdateOrderItems(ctx context.Context, order models.Order) error
	ProductSales(ctx context.Context, productID primitive.ObjectID, limit int) (models.SalesReport, error)
}

type ReviewRepository interface {
	ListReviews(ctx context.Context, filter models.ReviewFilter, page int) ([]models.Review, int64, error)
	InsertReview(ctx context.Context, review *models.Review) error
	SetReviewApproval(ctx context.Context, id primitive.ObjectID, approved bool) (models.Review, error)
	DeleteReview(ctx context.Context, id primitive.ObjectID) error
}

type CouponRepository interface {
	ListCoupons(ctx context.Context) ([]models.Coupon, error)
	GetCoupon(ctx context.Context, id primitive.ObjectID) (models.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (models.Coupon, error)
	InsertCoupon(ctx context.Context, coupon *models.Coupon) error
	UpdateCoupon(ctx context.Context, coupon models.Coupon) error
	DeleteCoupon(ctx context.Context, id primitive.ObjectID) error
	// RedeemCoupon increments the usage counter unless the usage limit has been
	// reached, in which case it returns models.ErrCouponExhausted.
	RedeemCoupon(ctx context.Context, id primitive.ObjectID) (models.Coupon, error)
}

type CountdownRepository interface {
	ListCountdowns(ctx context.Context) ([]models.Countdown, error)
	// ActiveCountdowns returns active countdowns with a target after now,
	// ascending by target date.
	ActiveCountdowns(ctx context.Context, now time.Time) ([]models.Countdown, error)
	InsertCountdown(ctx context.Context, countdown *models.Countdown) error
	UpdateCountdown(ctx context.Context, countdown models.Countdown) error
	DeleteCountdown(ctx context.Context, id primitive.ObjectID) error
}

type SubscriberRepository interface {
	GetSubscriberByEmail(ctx context.Context, email string) (models.EmailSubscriber, error)
	InsertSubscriber(ctx context.Context, subscriber *models.EmailSubscriber) error
	SetSubscriberActive(ctx context.Context, id primitive.ObjectID, active bool, name string, at time.Time) error
	ListSubscribers(ctx context.Context, active *bool, page int) ([]models.EmailSubscriber, int64, error)
}

// Store groups every repository the service needs.
type Store struct {
	Categories  CategoryRepository
	Products    ProductRepository
	Orders      OrderRepository
	Reviews     ReviewRepository
	Coupons     CouponRepository
	Countdowns  CountdownRepository
	Subscribers SubscriberRepository
}
