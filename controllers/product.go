package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-giftshop/models"
	"go-giftshop/port"
	"go-giftshop/utils"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultSalesLimit = 10
	maxSalesLimit     = 100
)

// ProductController handles product-related requests
type ProductController struct {
	Products   port.ProductRepository
	Categories port.CategoryRepository
	Orders     port.OrderRepository
}

// NewProductController creates a new ProductController
func NewProductController(store port.Store) *ProductController {
	return &ProductController{
		Products:   store.Products,
		Categories: store.Categories,
		Orders:     store.Orders,
	}
}

type productRequest struct {
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Images       []string        `json:"images"`
	CategorySlug string          `json:"categorySlug"`
	IsActive     *bool           `json:"isActive"`
	IsFeatured   bool            `json:"isFeatured"`
}

func (req productRequest) validate() string {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return "name is required"
	case !req.Price.IsPositive():
		return "price must be positive"
	case strings.TrimSpace(req.CategorySlug) == "":
		return "categorySlug is required"
	}
	return ""
}

// apply copies the request onto product. The category must already be resolved.
func (req productRequest) apply(product *models.Product, category models.Category) {
	product.Name = strings.TrimSpace(req.Name)
	product.Slug = utils.Slugify(req.Slug)
	if product.Slug == "" {
		product.Slug = utils.Slugify(product.Name)
	}
	product.Description = strings.TrimSpace(req.Description)
	product.Price = req.Price
	product.Images = req.Images
	product.CategoryID = category.ID
	product.CategorySlug = category.Slug
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	product.IsFeatured = req.IsFeatured
}

// decodeProduct reads and validates a product body and resolves its category.
// It writes the error response itself and reports whether to go on.
func (pc *ProductController) decodeProduct(w http.ResponseWriter, r *http.Request) (productRequest, models.Category, bool) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, models.Category{}, false
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return req, models.Category{}, false
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	category, err := pc.Categories.GetCategoryBySlug(ctx, utils.Slugify(req.CategorySlug))
	if errors.Is(err, port.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "category does not exist")
		return req, models.Category{}, false
	}
	if err != nil {
		internalError(w, r, err)
		return req, models.Category{}, false
	}
	return req, category, true
}

func productFilter(r *http.Request, onlyActive bool) models.ProductFilter {
	q := r.URL.Query()
	return models.ProductFilter{
		CategorySlug: strings.TrimSpace(q.Get("category")),
		Search:       strings.TrimSpace(q.Get("search")),
		OnlyActive:   onlyActive,
	}
}

func (pc *ProductController) listProducts(w http.ResponseWriter, r *http.Request, onlyActive bool) {
	ctx, cancel := requestContext(r)
	defer cancel()

	page := pageParam(r)
	products, total, err := pc.Products.ListProducts(ctx, productFilter(r, onlyActive), page)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, paged("products", products, page, total))
}

// GetProducts lists the active catalog, featured first
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	pc.listProducts(w, r, true)
}

// GetAllProducts lists every product, inactive ones included (Admin only)
func (pc *ProductController) GetAllProducts(w http.ResponseWriter, r *http.Request) {
	pc.listProducts(w, r, false)
}

// GetProductBySlug retrieves one active product
func (pc *ProductController) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.URL.Query().Get("slug"))
	if slug == "" {
		writeError(w, http.StatusBadRequest, "slug is required")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	product, err := pc.Products.GetProductBySlug(ctx, slug)
	if err == nil && !product.IsActive {
		err = port.ErrNotFound
	}
	if err != nil {
		handleError(w, r, err, "product not found")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// CreateProduct handles adding a new product (Admin only)
func (pc *ProductController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, category, ok := pc.decodeProduct(w, r)
	if !ok {
		return
	}

	product := models.Product{IsActive: true}
	req.apply(&product, category)
	if product.Slug == "" {
		writeError(w, http.StatusBadRequest, "name must contain letters or digits")
		return
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := pc.Products.InsertProduct(ctx, &product); err != nil {
		handleError(w, r, err, "product not found")
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// UpdateProduct replaces the editable fields of a product (Admin only)
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDVar(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	req, category, ok := pc.decodeProduct(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	product, err := pc.Products.GetProduct(ctx, id)
	if err != nil {
		handleError(w, r, err, "product not found")
		return
	}

	req.apply(&product, category)
	if product.Slug == "" {
		writeError(w, http.StatusBadRequest, "name must contain letters or digits")
		return
	}
	product.UpdatedAt = time.Now().UTC()

	if err := pc.Products.UpdateProduct(ctx, product); err != nil {
		handleError(w, r, err, "product not found")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct removes a product (Admin only). Placed orders keep their snapshot.
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDVar(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := pc.Products.DeleteProduct(ctx, id); err != nil {
		handleError(w, r, err, "product not found")
		return
	}

	writeOK(w)
}

// GetProductSales reports the recent non-cancelled sales of a product
func (pc *ProductController) GetProductSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := primitive.ObjectIDFromHex(q.Get("productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid productId")
		return
	}

	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil {
		limit = defaultSalesLimit
	}
	limit = max(1, min(limit, maxSalesLimit))

	ctx, cancel := requestContext(r)
	defer cancel()

	report, err := pc.Orders.ProductSales(ctx, id, limit)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
