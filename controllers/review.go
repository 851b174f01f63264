package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go-giftshop/models"
	"go-giftshop/port"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReviewController handles product reviews
type ReviewController struct {
	Reviews  port.ReviewRepository
	Products port.ProductRepository
}

// NewReviewController creates a new ReviewController
func NewReviewController(store port.Store) *ReviewController {
	return &ReviewController{
		Reviews:  store.Reviews,
		Products: store.Products,
	}
}

func (rc *ReviewController) listReviews(w http.ResponseWriter, r *http.Request, filter models.ReviewFilter) {
	if raw := r.URL.Query().Get("productId"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid productId")
			return
		}
		filter.ProductID = &id
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	page := pageParam(r)
	reviews, total, err := rc.Reviews.ListReviews(ctx, filter, page)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, paged("reviews", reviews, page, total))
}

// GetReviews lists approved reviews, optionally for one product
func (rc *ReviewController) GetReviews(w http.ResponseWriter, r *http.Request) {
	approved := true
	rc.listReviews(w, r, models.ReviewFilter{IsApproved: &approved})
}

// GetAllReviews lists reviews for moderation (Admin only)
func (rc *ReviewController) GetAllReviews(w http.ResponseWriter, r *http.Request) {
	approved, err := boolParam(r, "approved")
	if err != nil {
		writeError(w, http.StatusBadRequest, "approved must be true or false")
		return
	}
	rc.listReviews(w, r, models.ReviewFilter{IsApproved: approved})
}

type reviewRequest struct {
	ProductID  string `json:"productId"`
	AuthorName string `json:"authorName"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
}

// CreateReview stores a review awaiting moderation
func (rc *ReviewController) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid productId")
		return
	}
	review := models.Review{
		ProductID:  productID,
		AuthorName: strings.TrimSpace(req.AuthorName),
		Rating:     req.Rating,
		Comment:    strings.TrimSpace(req.Comment),
		CreatedAt:  time.Now().UTC(),
	}
	switch {
	case review.AuthorName == "":
		writeError(w, http.StatusBadRequest, "authorName is required")
		return
	case review.Rating < 1 || review.Rating > 5:
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	case review.Comment == "":
		writeError(w, http.StatusBadRequest, "comment is required")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if _, err := rc.Products.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "product does not exist")
			return
		}
		internalError(w, r, err)
		return
	}

	if err := rc.Reviews.InsertReview(ctx, &review); err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, review)
}

// UpdateReview approves or hides a review (Admin only)
func (rc *ReviewController) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDVar(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return
	}

	var body map[string]json.RawMessage
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var approved *bool
	if err := json.Unmarshal(body["isApproved"], &approved); err != nil || approved == nil {
		writeError(w, http.StatusBadRequest, "isApproved must be a boolean")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	review, err := rc.Reviews.SetReviewApproval(ctx, id, *approved)
	if err != nil {
		handleError(w, r, err, "review not found")
		return
	}

	writeJSON(w, http.StatusOK, review)
}

// DeleteReview removes a review (Admin only)
func (rc *ReviewController) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDVar(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := rc.Reviews.DeleteReview(ctx, id); err != nil {
		handleError(w, r, err, "review not found")
		return
	}

	writeOK(w)
}
