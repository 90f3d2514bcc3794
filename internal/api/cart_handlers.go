package api

import (
	"errors"
	"log"
	"net/http"

	"commerce-backend/internal/domain"
	"commerce-backend/internal/service/cart"
)

// --- Cart Handlers ---

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}

	c, err := h.carts.GetCart(r.Context(), clientID)
	if err != nil {
		log.Printf("ERROR: GetCart failed for client %d: %v", clientID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve cart")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

// AddCartItemInput defines the expected input for adding a cart line.
type AddCartItemInput struct {
	VariantID int64 `json:"variant_id" validate:"required,gt=0"`
	Quantity  int32 `json:"quantity" validate:"required,gt=0"`
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}
	var input AddCartItemInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	c, err := h.carts.AddItem(r.Context(), clientID, input.VariantID, input.Quantity)
	if err != nil {
		h.respondCartError(w, clientID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

// UpdateCartItemInput sets a line's quantity; zero removes the line.
type UpdateCartItemInput struct {
	Quantity int32 `json:"quantity" validate:"gte=0"`
}

func (h *HTTPHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(r, "itemId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid cart item ID format")
		return
	}
	var input UpdateCartItemInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	c, err := h.carts.UpdateItemQuantity(r.Context(), clientID, itemID, input.Quantity)
	if err != nil {
		h.respondCartError(w, clientID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(r, "itemId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid cart item ID format")
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), clientID, itemID)
	if err != nil {
		h.respondCartError(w, clientID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}

	c, err := h.carts.Clear(r.Context(), clientID)
	if err != nil {
		log.Printf("ERROR: ClearCart failed for client %d: %v", clientID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to clear cart")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *HTTPHandler) respondCartError(w http.ResponseWriter, clientID int64, err error) {
	switch {
	case errors.Is(err, cart.ErrVariantNotFound):
		respondWithError(w, http.StatusNotFound, cart.ErrVariantNotFound.Error())
	case errors.Is(err, cart.ErrProductUnavailable):
		respondWithError(w, http.StatusConflict, cart.ErrProductUnavailable.Error())
	case errors.Is(err, cart.ErrInsufficientStock):
		respondWithError(w, http.StatusConflict, cart.ErrInsufficientStock.Error())
	case errors.Is(err, domain.ErrCartItemNotFound):
		respondWithError(w, http.StatusNotFound, domain.ErrCartItemNotFound.Error())
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrNegativeQuantity):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("ERROR: cart operation failed for client %d: %v", clientID, err)
		respondWithError(w, http.StatusInternalServerError, "Cart operation failed")
	}
}
