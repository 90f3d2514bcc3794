package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWindow(now time.Time) (time.Time, time.Time) {
	return now.Add(-time.Hour), now.Add(time.Hour)
}

func TestCoupon_Validate_ExactlyOneDiscountType(t *testing.T) {
	now := time.Now()
	from, until := validWindow(now)

	both := &Coupon{Code: "BOTH", Percentage: ptrTo(10.0), Amount: ptrTo(5.0), ValidFrom: from, ValidUntil: until}
	n := NewNotification()
	both.Validate(n)
	assert.True(t, n.HasErrors(), "a coupon with both discount types must be rejected")

	neither := &Coupon{Code: "NONE", ValidFrom: from, ValidUntil: until}
	n = NewNotification()
	neither.Validate(n)
	assert.True(t, n.HasErrors(), "a coupon with neither discount type must be rejected")

	percent := &Coupon{Code: "PCT", Percentage: ptrTo(10.0), ValidFrom: from, ValidUntil: until}
	n = NewNotification()
	percent.Validate(n)
	assert.False(t, n.HasErrors(), "%v", n.Errors())

	fixed := &Coupon{Code: "FIX", Amount: ptrTo(5.0), ValidFrom: from, ValidUntil: until}
	n = NewNotification()
	fixed.Validate(n)
	assert.False(t, n.HasErrors(), "%v", n.Errors())
}

func TestCoupon_DiscountFor_Window(t *testing.T) {
	now := time.Now()

	early := &Coupon{Code: "SOON", Amount: ptrTo(5.0), IsActive: true,
		ValidFrom: now.Add(time.Hour), ValidUntil: now.Add(2 * time.Hour)}
	_, err := early.DiscountFor(100, now)
	assert.ErrorIs(t, err, ErrCouponNotYetValid)

	late := &Coupon{Code: "GONE", Amount: ptrTo(5.0), IsActive: true,
		ValidFrom: now.Add(-2 * time.Hour), ValidUntil: now.Add(-time.Hour)}
	_, err = late.DiscountFor(100, now)
	assert.ErrorIs(t, err, ErrCouponExpired)

	inactive := &Coupon{Code: "OFF", Amount: ptrTo(5.0),
		ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour)}
	_, err = inactive.DiscountFor(100, now)
	assert.ErrorIs(t, err, ErrCouponInactive)
}

func TestCoupon_DiscountFor_Amounts(t *testing.T) {
	now := time.Now()
	from, until := validWindow(now)

	percent := &Coupon{Code: "PCT", Percentage: ptrTo(25.0), IsActive: true, ValidFrom: from, ValidUntil: until}
	d, err := percent.DiscountFor(200, now)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, d, 1e-9)

	fixed := &Coupon{Code: "FIX", Amount: ptrTo(30.0), IsActive: true, ValidFrom: from, ValidUntil: until}
	d, err = fixed.DiscountFor(200, now)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, d, 1e-9)

	// Fixed discounts are capped at the items total.
	d, err = fixed.DiscountFor(10, now)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, d, 1e-9)
}

func TestCoupon_DiscountFor_UsageLimit(t *testing.T) {
	now := time.Now()
	from, until := validWindow(now)

	c := &Coupon{Code: "LIM", Amount: ptrTo(5.0), IsActive: true,
		ValidFrom: from, ValidUntil: until, MaxUsage: ptrTo(2), UsageCount: 2}
	_, err := c.DiscountFor(100, now)
	assert.ErrorIs(t, err, ErrCouponExhausted)

	c.UsageCount = 1
	_, err = c.DiscountFor(100, now)
	assert.NoError(t, err)

	c.IncrementUsage()
	assert.Equal(t, 2, c.UsageCount)
}
