package domain

import "errors"

// Hard rule violations raised by aggregate mutators. Field-level validation
// goes through a Notification instead.
var (
	ErrInvalidQuantity          = errors.New("domain: quantity must be greater than zero")
	ErrNegativeQuantity         = errors.New("domain: quantity cannot be negative")
	ErrCartItemNotFound         = errors.New("domain: cart item not found")
	ErrEmptyCart                = errors.New("domain: cannot create an order from an empty cart")
	ErrPaymentNotFound          = errors.New("domain: payment not found")
	ErrInvalidPaymentTransition = errors.New("domain: invalid payment status transition")
	ErrInvalidOrderTransition   = errors.New("domain: invalid order status transition")
	ErrCouponInactive           = errors.New("domain: coupon is not active")
	ErrCouponNotYetValid        = errors.New("domain: coupon is not valid yet")
	ErrCouponExpired            = errors.New("domain: coupon has expired")
	ErrCouponExhausted          = errors.New("domain: coupon usage limit reached")
	ErrCouponMisconfigured      = errors.New("domain: coupon must define exactly one discount type")
	ErrOrderNotPending          = errors.New("domain: order is no longer pending")

	// Kept verbatim from the review rules; the message is part of the API
	// contract for review creation.
	ErrRatingOutOfRange = errors.New("A avaliação deve ser entre 1 e 5 estrelas.")
)
