package controllers

import (
	"errors"
	"net/http"

	"go-giftshop/cart"
	"go-giftshop/models"
	"go-giftshop/port"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartCookieName holds the browsing session the cart belongs to
const CartCookieName = "cart_session"

var errNotInCart = errors.New("product is not in the cart")

// CartController handles cart-related requests
type CartController struct {
	Carts        *cart.Store
	Products     port.ProductRepository
	SecureCookie bool
}

// NewCartController creates a new CartController
func NewCartController(carts *cart.Store, products port.ProductRepository, secureCookie bool) *CartController {
	return &CartController{
		Carts:        carts,
		Products:     products,
		SecureCookie: secureCookie,
	}
}

// cartSessionID returns the session id carried by the request, if any
func cartSessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CartCookieName)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return "", false
	}
	return cookie.Value, true
}

// session returns the request's cart session, starting one when missing
func (cc *CartController) session(w http.ResponseWriter, r *http.Request) string {
	if id, ok := cartSessionID(r); ok {
		return id
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   cc.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// GetCart returns the cart of the current session
func (cc *CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := cartSessionID(r)
	if !ok {
		writeJSON(w, http.StatusOK, (&cart.Cart{}).Snapshot())
		return
	}

	writeJSON(w, http.StatusOK, cc.Carts.Get(id))
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

// AddToCart adds a product to the session's cart at its current price
func (cc *CartController) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid productId")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if quantity > models.MaxQuantity {
		writeError(w, http.StatusBadRequest, cart.ErrQuantityLimit.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	product, err := cc.Products.GetProduct(ctx, productID)
	if err == nil && !product.IsActive {
		err = port.ErrNotFound
	}
	if err != nil {
		handleError(w, r, err, "product not found")
		return
	}

	item := models.CartItem{
		ProductID: product.ID.Hex(),
		Slug:      product.Slug,
		Name:      product.Name,
		UnitPrice: product.Price,
		Image:     product.MainImage(),
	}

	snapshot, err := cc.Carts.Update(cc.session(w, r), func(c *cart.Cart) error {
		return c.Add(item, quantity)
	})
	if errors.Is(err, cart.ErrQuantityLimit) || errors.Is(err, cart.ErrInvalidQuantity) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

type updateCartRequest struct {
	Quantity *int `json:"quantity"`
}

// UpdateCartItem sets the quantity of a cart line. Zero or less removes it.
func (cc *CartController) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}
	if *req.Quantity > models.MaxQuantity {
		writeError(w, http.StatusBadRequest, cart.ErrQuantityLimit.Error())
		return
	}

	productID := mux.Vars(r)["productId"]
	id, ok := cartSessionID(r)
	if !ok {
		writeError(w, http.StatusNotFound, errNotInCart.Error())
		return
	}

	snapshot, err := cc.Carts.Edit(id, func(c *cart.Cart) error {
		if !c.UpdateQuantity(productID, *req.Quantity) {
			return errNotInCart
		}
		return nil
	})
	if errors.Is(err, errNotInCart) || errors.Is(err, cart.ErrNoCart) {
		writeError(w, http.StatusNotFound, errNotInCart.Error())
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// RemoveFromCart drops a product from the cart
func (cc *CartController) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := cartSessionID(r)
	if !ok {
		writeJSON(w, http.StatusOK, (&cart.Cart{}).Snapshot())
		return
	}

	productID := mux.Vars(r)["productId"]
	snapshot, err := cc.Carts.Edit(id, func(c *cart.Cart) error {
		c.Remove(productID)
		return nil
	})
	if err != nil && !errors.Is(err, cart.ErrNoCart) {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// ClearCart empties the cart
func (cc *CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	if id, ok := cartSessionID(r); ok {
		cc.Carts.Delete(id)
	}

	writeJSON(w, http.StatusOK, (&cart.Cart{}).Snapshot())
}
