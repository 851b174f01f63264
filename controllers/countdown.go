package controllers

import (
	"net/http"
	"strings"
	"time"

	"go-giftshop/models"
	"go-giftshop/port"
)

// CountdownController handles storefront promotion timers
type CountdownController struct {
	Countdowns port.CountdownRepository
	now        func() time.Time
}

// NewCountdownController creates a new CountdownController
func NewCountdownController(countdowns port.CountdownRepository) *CountdownController {
	return &CountdownController{
		Countdowns: countdowns,
		now:        time.Now,
	}
}

type countdownRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TargetDate  time.Time `json:"targetDate"`
	LinkURL     string    `json:"linkUrl"`
	IsActive    *bool     `json:"isActive"`
}

func (req countdownRequest) apply(countdown *models.Countdown) string {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return "title is required"
	}
	if req.TargetDate.IsZero() {
		return "targetDate is required"
	}

	countdown.Title = title
	countdown.Description = strings.TrimSpace(req.Description)
	countdown.TargetDate = req.TargetDate.UTC()
	countdown.LinkURL = strings.TrimSpace(req.LinkURL)
	if req.IsActive != nil {
		countdown.IsActive = *req.IsActive
	}
	return ""
}

// GetActiveCountdowns lists the running countdowns, soonest first
func (cc *CountdownController) GetActiveCountdowns(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	countdowns, err := cc.Countdowns.ActiveCountdowns(ctx, cc.now())
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, countdowns)
}

// GetCountdowns lists every countdown (Admin only)
func (cc *CountdownController) GetCountdowns(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	countdowns, err := cc.Countdowns.ListCountdowns(ctx)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, countdowns)
}

// CreateCountdown adds a countdown (Admin only)
func (cc *CountdownController) CreateCountdown(w http.ResponseWriter, r *http.Request) {
	var req countdownRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	countdown := models.Countdown{IsActive: true}
	if msg := req.apply(&countdown); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	now := cc.now().UTC()
	countdown.CreatedAt = now
	countdown.UpdatedAt = now

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := cc.Countdowns.InsertCountdown(ctx, &countdown); err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, countdown)
}

// UpdateCountdown replaces a countdown (Admin only)
func (cc *CountdownController) UpdateCountdown(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDVar(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid countdown id")
		return
	}

	var req countdownRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	countdown := models.Countdown{ID: id, IsActive: true}
	if msg := req.apply(&countdown); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	countdown.UpdatedAt = cc.now().UTC()

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := cc.Countdowns.UpdateCountdown(ctx, countdown); err != nil {
		handleError(w, r, err, "countdown not found")
		return
	}

	writeJSON(w, http.StatusOK, countdown)
}

// DeleteCountdown removes a countdown (Admin only)
func (cc *CountdownController) DeleteCountdown(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDVar(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid countdown id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := cc.Countdowns.DeleteCountdown(ctx, id); err != nil {
		handleError(w, r, err, "countdown not found")
		return
	}

	writeOK(w)
}
