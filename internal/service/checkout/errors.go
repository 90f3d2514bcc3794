package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrCartEmpty       = errors.New("checkout: cart is empty")
	ErrAddressNotFound = errors.New("checkout: address not found")
	ErrOrderNotFound   = errors.New("checkout: order not found")
	ErrCouponNotFound  = errors.New("checkout: coupon not found")
	ErrAlreadyPaid     = errors.New("checkout: order already has an approved payment")
	ErrOrderNotPayable = errors.New("checkout: order cannot be paid in its current state")
	ErrCannotCancel    = errors.New("checkout: order cannot be canceled in its current state")
	ErrCouponCodeTaken = errors.New("checkout: coupon code already exists")
)

// DeclinedError reports a gateway decline together with its reason.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("checkout: payment declined: %s", e.Reason)
}
