package domain

import (
	"errors"
	"math"
	"time"
)

// Coupon grants either a percentage or a fixed-amount discount, never both,
// within a validity window.
type Coupon struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Percentage *float64  `json:"percentage,omitempty"`
	Amount     *float64  `json:"amount,omitempty"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`
	UsageCount int       `json:"usage_count"`
	MaxUsage   *int      `json:"max_usage,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate appends every field violation to the notification. A coupon must
// define exactly one discount type.
func (c *Coupon) Validate(n *Notification) {
	if c.Code == "" {
		n.Append(errors.New("coupon code is required"))
	}
	if len(c.Code) > 50 {
		n.Append(errors.New("coupon code must be at most 50 characters"))
	}
	if (c.Percentage == nil) == (c.Amount == nil) {
		n.Append(ErrCouponMisconfigured)
	}
	if c.Percentage != nil && (*c.Percentage <= 0 || *c.Percentage > 100) {
		n.Append(errors.New("coupon percentage must be between 0 and 100"))
	}
	if c.Amount != nil && *c.Amount <= 0 {
		n.Append(errors.New("coupon amount must be positive"))
	}
	if !c.ValidUntil.IsZero() && !c.ValidFrom.IsZero() && c.ValidUntil.Before(c.ValidFrom) {
		n.Append(errors.New("coupon validity window is inverted"))
	}
}

// DiscountFor computes the discount this coupon grants over the given items
// total at the given instant. The discount never exceeds the items total.
func (c *Coupon) DiscountFor(itemsTotal float64, now time.Time) (float64, error) {
	if !c.IsActive {
		return 0, ErrCouponInactive
	}
	if now.Before(c.ValidFrom) {
		return 0, ErrCouponNotYetValid
	}
	if now.After(c.ValidUntil) {
		return 0, ErrCouponExpired
	}
	if c.MaxUsage != nil && c.UsageCount >= *c.MaxUsage {
		return 0, ErrCouponExhausted
	}

	var discount float64
	switch {
	case c.Percentage != nil:
		discount = itemsTotal * (*c.Percentage / 100)
	case c.Amount != nil:
		discount = *c.Amount
	default:
		return 0, ErrCouponMisconfigured
	}
	if discount > itemsTotal {
		discount = itemsTotal
	}
	return math.Round(discount*100) / 100, nil
}

// IncrementUsage bumps the usage counter after a successful application.
func (c *Coupon) IncrementUsage() {
	c.UsageCount++
	c.UpdatedAt = time.Now().UTC()
}
