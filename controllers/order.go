package controllers

import (
	"net/http"
	"strings"
	"time"

	"go-giftshop/cart"
	"go-giftshop/models"
	"go-giftshop/port"
	"go-giftshop/services"

	"github.com/gorilla/mux"
)

const dateLayout = "2006-01-02"

// OrderController handles order-related requests
type OrderController struct {
	Service  *services.OrderService
	Orders   port.OrderRepository
	Carts    *cart.Store
	Location *time.Location
}

// NewOrderController creates a new OrderController. Date filters are read in loc.
func NewOrderController(service *services.OrderService, orders port.OrderRepository, carts *cart.Store, loc *time.Location) *OrderController {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderController{
		Service:  service,
		Orders:   orders,
		Carts:    carts,
		Location: loc,
	}
}

// CreateOrder places an order from the request items or, when there are none,
// from the session's cart. The cart is emptied once the order stands.
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in services.PlaceOrderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID, hasCart := cartSessionID(r)
	if len(in.Items) == 0 && hasCart {
		for _, item := range oc.Carts.Get(sessionID).Items {
			in.Items = append(in.Items, services.LineInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	order, err := oc.Service.PlaceOrder(ctx, in)
	if err != nil {
		handleError(w, r, err, "product not found")
		return
	}

	if hasCart {
		oc.Carts.Delete(sessionID)
	}

	writeJSON(w, http.StatusCreated, order)
}

// GetOrder retrieves an order by its number
func (oc *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	order, err := oc.Orders.GetOrderByNumber(ctx, mux.Vars(r)["orderNumber"])
	if err != nil {
		handleError(w, r, err, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// orderFilter reads the listing filters. dateTo names the last day included.
func (oc *OrderController) orderFilter(r *http.Request) (models.OrderFilter, string) {
	q := r.URL.Query()
	filter := models.OrderFilter{
		Branch: strings.TrimSpace(q.Get("branch")),
		Search: strings.TrimSpace(q.Get("search")),
	}

	if raw := q.Get("status"); raw != "" {
		status, err := models.ToOrderStatus(raw)
		if err != nil {
			return filter, "invalid status"
		}
		filter.Status = status
	}

	if raw := q.Get("dateFrom"); raw != "" {
		from, err := time.ParseInLocation(dateLayout, raw, oc.Location)
		if err != nil {
			return filter, "dateFrom must be YYYY-MM-DD"
		}
		filter.DateFrom = &from
	}
	if raw := q.Get("dateTo"); raw != "" {
		to, err := time.ParseInLocation(dateLayout, raw, oc.Location)
		if err != nil {
			return filter, "dateTo must be YYYY-MM-DD"
		}
		to = to.AddDate(0, 0, 1)
		filter.DateTo = &to
	}

	return filter, ""
}

// GetOrders lists orders with per-status counts (Admin only)
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	filter, msg := oc.orderFilter(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	page, err := oc.Service.ListOrders(ctx, filter, pageParam(r))
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus moves an order through its lifecycle (Admin only)
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	order, err := oc.Service.UpdateStatus(ctx, mux.Vars(r)["orderNumber"], req.Status)
	if err != nil {
		handleError(w, r, err, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

type orderItemsRequest struct {
	Items []services.LineInput `json:"items"`
}

// UpdateOrderItems replaces the lines of an open order (Admin only)
func (oc *OrderController) UpdateOrderItems(w http.ResponseWriter, r *http.Request) {
	var req orderItemsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	order, err := oc.Service.UpdateItems(ctx, mux.Vars(r)["orderNumber"], req.Items)
	if err != nil {
		handleError(w, r, err, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, order)
}
