package cart

import "errors"

var (
	ErrVariantNotFound    = errors.New("cart: product variant not found")
	ErrProductUnavailable = errors.New("cart: product is not available")
	ErrInsufficientStock  = errors.New("cart: not enough stock for the requested quantity")
)
