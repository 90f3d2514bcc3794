package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"commerce-backend/internal/domain"
	"commerce-backend/internal/service/checkout"
	"commerce-backend/internal/store"
)

// --- Order Handlers ---

// PlaceOrderInput defines the expected input for placing an order.
type PlaceOrderInput struct {
	ShippingAddressID int64   `json:"shipping_address_id" validate:"required,gt=0"`
	BillingAddressID  int64   `json:"billing_address_id" validate:"required,gt=0"`
	CouponCode        *string `json:"coupon_code" validate:"omitempty,max=50"`
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}
	var input PlaceOrderInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	order, err := h.checkouts.PlaceOrder(r.Context(), clientID, checkout.PlaceOrderInput{
		ShippingAddressID: input.ShippingAddressID,
		BillingAddressID:  input.BillingAddressID,
		CouponCode:        input.CouponCode,
	})
	if err != nil {
		h.respondCheckoutError(w, clientID, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, order)
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}
	page, limit, offset := parsePagination(r)

	orders, totalCount, err := h.checkouts.ListOrders(r.Context(), clientID, store.ListParams{Limit: limit, Offset: offset})
	if err != nil {
		log.Printf("ERROR: ListOrders failed for client %d: %v", clientID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}

	respondWithJSON(w, http.StatusOK, newPagedResponse(orders, page, limit, totalCount))
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(r, "orderId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	order, err := h.checkouts.GetOrder(r.Context(), clientID, orderID)
	if err != nil {
		h.respondCheckoutError(w, clientID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, order)
}

// ApplyCouponInput carries the coupon code for an existing order.
type ApplyCouponInput struct {
	Code string `json:"code" validate:"required,max=50"`
}

func (h *HTTPHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(r, "orderId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID format")
		return
	}
	var input ApplyCouponInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	order, err := h.checkouts.ApplyCoupon(r.Context(), clientID, orderID, input.Code)
	if err != nil {
		h.respondCheckoutError(w, clientID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, order)
}

// PayOrderInput selects the payment method for an order.
type PayOrderInput struct {
	Method string `json:"method" validate:"required,oneof=credit_card debit_card pix boleto"`
}

func (h *HTTPHandler) PayOrder(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(r, "orderId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID format")
		return
	}
	var input PayOrderInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	order, err := h.checkouts.Pay(r.Context(), clientID, orderID, input.Method)
	if err != nil {
		var declined *checkout.DeclinedError
		if errors.As(err, &declined) {
			respondWithError(w, http.StatusUnprocessableEntity, declined.Error())
			return
		}
		h.respondCheckoutError(w, clientID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(r, "orderId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	order, err := h.checkouts.CancelOrder(r.Context(), clientID, orderID)
	if err != nil {
		h.respondCheckoutError(w, clientID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, order)
}

// --- Coupon Handlers ---

// CouponInput defines the expected input for creating a coupon. Exactly one
// of percentage and amount must be set.
type CouponInput struct {
	Code       string    `json:"code" validate:"required,max=50"`
	Percentage *float64  `json:"percentage" validate:"omitempty,gt=0,lte=100"`
	Amount     *float64  `json:"amount" validate:"omitempty,gt=0"`
	ValidFrom  time.Time `json:"valid_from" validate:"required"`
	ValidUntil time.Time `json:"valid_until" validate:"required"`
	MaxUsage   *int      `json:"max_usage" validate:"omitempty,gt=0"`
	IsActive   *bool     `json:"is_active"`
}

func (h *HTTPHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var input CouponInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	coupon := &domain.Coupon{
		Code:       input.Code,
		Percentage: input.Percentage,
		Amount:     input.Amount,
		ValidFrom:  input.ValidFrom,
		ValidUntil: input.ValidUntil,
		MaxUsage:   input.MaxUsage,
		IsActive:   isActive,
	}

	created, err := h.checkouts.CreateCoupon(r.Context(), coupon)
	if err != nil {
		if errors.Is(err, checkout.ErrCouponCodeTaken) {
			respondWithError(w, http.StatusConflict, checkout.ErrCouponCodeTaken.Error())
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) respondCheckoutError(w http.ResponseWriter, clientID int64, err error) {
	switch {
	case errors.Is(err, checkout.ErrOrderNotFound):
		respondWithError(w, http.StatusNotFound, checkout.ErrOrderNotFound.Error())
	case errors.Is(err, checkout.ErrAddressNotFound):
		respondWithError(w, http.StatusBadRequest, checkout.ErrAddressNotFound.Error())
	case errors.Is(err, checkout.ErrCartEmpty):
		respondWithError(w, http.StatusUnprocessableEntity, checkout.ErrCartEmpty.Error())
	case errors.Is(err, checkout.ErrCouponNotFound):
		respondWithError(w, http.StatusNotFound, checkout.ErrCouponNotFound.Error())
	case errors.Is(err, checkout.ErrAlreadyPaid):
		respondWithError(w, http.StatusConflict, checkout.ErrAlreadyPaid.Error())
	case errors.Is(err, checkout.ErrOrderNotPayable):
		respondWithError(w, http.StatusConflict, checkout.ErrOrderNotPayable.Error())
	case errors.Is(err, checkout.ErrCannotCancel):
		respondWithError(w, http.StatusConflict, checkout.ErrCannotCancel.Error())
	case errors.Is(err, domain.ErrOrderNotPending):
		respondWithError(w, http.StatusConflict, domain.ErrOrderNotPending.Error())
	case errors.Is(err, domain.ErrCouponInactive),
		errors.Is(err, domain.ErrCouponNotYetValid),
		errors.Is(err, domain.ErrCouponExpired),
		errors.Is(err, domain.ErrCouponExhausted),
		errors.Is(err, domain.ErrCouponMisconfigured):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("ERROR: checkout operation failed for client %d: %v", clientID, err)
		respondWithError(w, http.StatusInternalServerError, "Checkout operation failed")
	}
}
