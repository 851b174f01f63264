package routes

import (
	"net/http"
	"net/netip"

	"go-giftshop/controllers"
	"go-giftshop/middleware"
	"go-giftshop/utils"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Controllers bundles the handlers the router dispatches to
type Controllers struct {
	Auth       *controllers.AdminAuthController
	Categories *controllers.CategoryController
	Products   *controllers.ProductController
	Orders     *controllers.OrderController
	Cart       *controllers.CartController
	Reviews    *controllers.ReviewController
	Coupons    *controllers.CouponController
	Countdowns *controllers.CountdownController
	Newsletter *controllers.NewsletterController
}

// Options carries the cross-cutting pieces of the HTTP stack. Nil fields are skipped.
type Options struct {
	Sessions       *utils.SessionManager
	LoginLimiter   *middleware.IPRateLimiter
	TrustedProxies []netip.Prefix
	Metrics        *middleware.Metrics
	Health         controllers.Pinger
	AdminStaticDir string
	Logger         zerolog.Logger
}

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, c Controllers, opts Options) {
	requireAdmin := middleware.RequireAdmin(opts.Sessions)

	router.HandleFunc("/health", controllers.Health(opts.Health)).Methods(http.MethodGet)
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()

	// Catalog
	api.HandleFunc("/categories", c.Categories.GetCategories).Methods(http.MethodGet)
	api.HandleFunc("/products", c.Products.GetProducts).Methods(http.MethodGet)
	api.Handle("/products", requireAdmin(http.HandlerFunc(c.Products.CreateProduct))).Methods(http.MethodPost)
	api.HandleFunc("/products/by-slug", c.Products.GetProductBySlug).Methods(http.MethodGet)
	api.HandleFunc("/products/sales", c.Products.GetProductSales).Methods(http.MethodGet)

	// Reviews
	api.HandleFunc("/reviews", c.Reviews.GetReviews).Methods(http.MethodGet)
	api.HandleFunc("/reviews", c.Reviews.CreateReview).Methods(http.MethodPost)

	// Cart
	api.HandleFunc("/cart", c.Cart.GetCart).Methods(http.MethodGet)
	api.HandleFunc("/cart", c.Cart.ClearCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart/items", c.Cart.AddToCart).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{productId}", c.Cart.UpdateCartItem).Methods(http.MethodPut)
	api.HandleFunc("/cart/items/{productId}", c.Cart.RemoveFromCart).Methods(http.MethodDelete)

	// Orders
	api.HandleFunc("/orders", c.Orders.CreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{orderNumber}", c.Orders.GetOrder).Methods(http.MethodGet)

	// Coupons, countdowns and newsletter
	api.HandleFunc("/coupons/validate", c.Coupons.ValidateCoupon).Methods(http.MethodPost)
	api.HandleFunc("/coupons/use", c.Coupons.UseCoupon).Methods(http.MethodPost)
	api.HandleFunc("/countdowns", c.Countdowns.GetActiveCountdowns).Methods(http.MethodGet)
	api.HandleFunc("/newsletter/subscribe", c.Newsletter.Subscribe).Methods(http.MethodPost)
	api.HandleFunc("/newsletter/unsubscribe", c.Newsletter.Unsubscribe).Methods(http.MethodPost)

	// Admin sign in, registered before the guarded subrouter so it stays open
	var login http.Handler = http.HandlerFunc(c.Auth.Login)
	if opts.LoginLimiter != nil {
		login = opts.LoginLimiter.Limit(login)
	}
	api.Handle("/admin/login", login).Methods(http.MethodPost)
	api.HandleFunc("/admin/logout", c.Auth.Logout).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(requireAdmin)
	admin.HandleFunc("/session", c.Auth.Session).Methods(http.MethodGet)

	admin.HandleFunc("/categories", c.Categories.GetCategories).Methods(http.MethodGet)
	admin.HandleFunc("/categories", c.Categories.CreateCategory).Methods(http.MethodPost)
	admin.HandleFunc("/categories/{id}", c.Categories.UpdateCategory).Methods(http.MethodPut)
	admin.HandleFunc("/categories/{id}", c.Categories.DeleteCategory).Methods(http.MethodDelete)

	admin.HandleFunc("/products", c.Products.GetAllProducts).Methods(http.MethodGet)
	admin.HandleFunc("/products", c.Products.CreateProduct).Methods(http.MethodPost)
	admin.HandleFunc("/products/{id}", c.Products.UpdateProduct).Methods(http.MethodPut)
	admin.HandleFunc("/products/{id}", c.Products.DeleteProduct).Methods(http.MethodDelete)

	admin.HandleFunc("/orders", c.Orders.GetOrders).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{orderNumber}", c.Orders.GetOrder).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{orderNumber}/status", c.Orders.UpdateOrderStatus).Methods(http.MethodPut)
	admin.HandleFunc("/orders/{orderNumber}/items", c.Orders.UpdateOrderItems).Methods(http.MethodPut)

	admin.HandleFunc("/reviews", c.Reviews.GetAllReviews).Methods(http.MethodGet)
	admin.HandleFunc("/reviews/{id}", c.Reviews.UpdateReview).Methods(http.MethodPut)
	admin.HandleFunc("/reviews/{id}", c.Reviews.DeleteReview).Methods(http.MethodDelete)

	admin.HandleFunc("/coupons", c.Coupons.GetCoupons).Methods(http.MethodGet)
	admin.HandleFunc("/coupons", c.Coupons.CreateCoupon).Methods(http.MethodPost)
	admin.HandleFunc("/coupons/{id}", c.Coupons.UpdateCoupon).Methods(http.MethodPut)
	admin.HandleFunc("/coupons/{id}", c.Coupons.DeleteCoupon).Methods(http.MethodDelete)

	admin.HandleFunc("/countdowns", c.Countdowns.GetCountdowns).Methods(http.MethodGet)
	admin.HandleFunc("/countdowns", c.Countdowns.CreateCountdown).Methods(http.MethodPost)
	admin.HandleFunc("/countdowns/{id}", c.Countdowns.UpdateCountdown).Methods(http.MethodPut)
	admin.HandleFunc("/countdowns/{id}", c.Countdowns.DeleteCountdown).Methods(http.MethodDelete)

	admin.HandleFunc("/subscribers", c.Newsletter.GetSubscribers).Methods(http.MethodGet)

	// Back-office pages, guarded by AdminGate in NewHandler
	pages := controllers.AdminPages(opts.AdminStaticDir)
	router.Handle(middleware.AdminPrefix, pages)
	router.PathPrefix(middleware.AdminPrefix + "/").Handler(pages)
}

// NewHandler builds the router and wraps it in the request pipeline
func NewHandler(c Controllers, opts Options) http.Handler {
	router := mux.NewRouter()
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Instrument)
	}
	RegisterRoutes(router, c, opts)

	var h http.Handler = middleware.AdminGate(opts.Sessions)(router)
	h = middleware.Recover(h)
	h = middleware.AccessLog(h)
	h = middleware.RealIP(opts.TrustedProxies)(h)
	return middleware.RequestID(opts.Logger)(h)
}
