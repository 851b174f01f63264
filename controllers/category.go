package controllers

import (
	"net/http"
	"strings"
	"time"

	"go-giftshop/models"
	"go-giftshop/port"
	"go-giftshop/utils"
)

// CategoryController handles category-related requests
type CategoryController struct {
	Categories port.CategoryRepository
	Products   port.ProductRepository
}

// NewCategoryController creates a new CategoryController
func NewCategoryController(store port.Store) *CategoryController {
	return &CategoryController{
		Categories: store.Categories,
		Products:   store.Products,
	}
}

type categoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// apply validates the request and copies it onto category
func (req categoryRequest) apply(category *models.Category) string {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "name is required"
	}

	slug := utils.Slugify(req.Slug)
	if slug == "" {
		slug = utils.Slugify(name)
	}
	if slug == "" {
		return "name must contain letters or digits"
	}

	category.Name = name
	category.Slug = slug
	category.Description = strings.TrimSpace(req.Description)
	return ""
}

// GetCategories lists every category by name
func (cc *CategoryController) GetCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	categories, err := cc.Categories.ListCategories(ctx)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

// CreateCategory handles adding a new category (Admin only)
func (cc *CategoryController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var category models.Category
	if msg := req.apply(&category); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := cc.Categories.InsertCategory(ctx, &category); err != nil {
		handleError(w, r, err, "category not found")
		return
	}

	writeJSON(w, http.StatusCreated, category)
}

// UpdateCategory renames a category. Products of the category follow its new slug.
func (cc *CategoryController) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDVar(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	category, err := cc.Categories.GetCategory(ctx, id)
	if err != nil {
		handleError(w, r, err, "category not found")
		return
	}

	if msg := req.apply(&category); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	category.UpdatedAt = time.Now().UTC()

	if err := cc.Categories.UpdateCategory(ctx, category); err != nil {
		handleError(w, r, err, "category not found")
		return
	}

	writeJSON(w, http.StatusOK, category)
}

// DeleteCategory removes a category nothing references
func (cc *CategoryController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDVar(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	inUse, err := cc.Products.CountProductsInCategory(ctx, id)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if inUse > 0 {
		writeError(w, http.StatusConflict, "category still has products")
		return
	}

	if err := cc.Categories.DeleteCategory(ctx, id); err != nil {
		handleError(w, r, err, "category not found")
		return
	}

	writeOK(w)
}
