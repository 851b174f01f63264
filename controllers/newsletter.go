package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go-giftshop/models"
	"go-giftshop/port"
	"go-giftshop/utils"
)

// NewsletterController handles email subscriptions
type NewsletterController struct {
	Subscribers port.SubscriberRepository
	Emails      *utils.EmailService
}

// NewNewsletterController creates a new NewsletterController. emails may be nil.
func NewNewsletterController(subscribers port.SubscriberRepository, emails *utils.EmailService) *NewsletterController {
	return &NewsletterController{
		Subscribers: subscribers,
		Emails:      emails,
	}
}

type subscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Subscribe adds an email to the newsletter, reactivating it if it had left
func (nc *NewsletterController) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := utils.NormalizeEmail(req.Email)
	if !utils.ValidEmail(email) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	name := strings.TrimSpace(req.Name)
	now := time.Now().UTC()

	ctx, cancel := requestContext(r)
	defer cancel()

	existing, err := nc.Subscribers.GetSubscriberByEmail(ctx, email)
	switch {
	case err == nil && existing.IsActive:
		writeError(w, http.StatusConflict, "email is already subscribed")
		return
	case err == nil:
		if err := nc.Subscribers.SetSubscriberActive(ctx, existing.ID, true, name, now); err != nil {
			internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "reactivated": true})
		return
	case !errors.Is(err, port.ErrNotFound):
		internalError(w, r, err)
		return
	}

	subscriber := models.EmailSubscriber{
		Email:        email,
		Name:         name,
		IsActive:     true,
		SubscribedAt: now,
	}
	if err := nc.Subscribers.InsertSubscriber(ctx, &subscriber); err != nil {
		if errors.Is(err, port.ErrConflict) {
			writeError(w, http.StatusConflict, "email is already subscribed")
			return
		}
		internalError(w, r, err)
		return
	}

	if nc.Emails != nil {
		nc.Emails.Go(r.Context(), "welcome", func(ctx context.Context) error {
			return nc.Emails.SendWelcomeEmail(ctx, subscriber)
		})
	}

	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "reactivated": false})
}

type unsubscribeRequest struct {
	Email string `json:"email"`
}

// Unsubscribe marks an email as no longer subscribed
func (nc *NewsletterController) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := utils.NormalizeEmail(req.Email)
	if !utils.ValidEmail(email) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	subscriber, err := nc.Subscribers.GetSubscriberByEmail(ctx, email)
	if err != nil {
		handleError(w, r, err, "email is not subscribed")
		return
	}

	if subscriber.IsActive {
		if err := nc.Subscribers.SetSubscriberActive(ctx, subscriber.ID, false, "", time.Now().UTC()); err != nil {
			internalError(w, r, err)
			return
		}
	}

	writeOK(w)
}

// GetSubscribers lists subscribers, optionally only active or inactive ones (Admin only)
func (nc *NewsletterController) GetSubscribers(w http.ResponseWriter, r *http.Request) {
	active, err := boolParam(r, "active")
	if err != nil {
		writeError(w, http.StatusBadRequest, "active must be true or false")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	page := pageParam(r)
	subscribers, total, err := nc.Subscribers.ListSubscribers(ctx, active, page)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, paged("subscribers", subscribers, page, total))
}
