package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrTo[T any](v T) *T { return &v }

func testAddresses() (*Address, *Address) {
	shipping := &Address{ID: 1, ClientID: 10, Street: "Rua A", Number: "10", District: "Centro",
		City: "Sao Paulo", State: "SP", PostalCode: "01000-000", Country: "BR", Status: AddressActive}
	billing := &Address{ID: 2, ClientID: 10, Street: "Rua B", Number: "20", District: "Centro",
		City: "Sao Paulo", State: "SP", PostalCode: "01000-001", Country: "BR", Status: AddressActive}
	return shipping, billing
}

func testCartWithItems() *Cart {
	cart := &Cart{ID: 1, ClientID: 10}
	_ = cart.AddItem(100, "Blue Shirt", "SHIRT-BL-M", 2, 49.90)
	_ = cart.AddItem(200, "Black Jeans", "JEANS-BK-42", 1, 120.00)
	return cart
}

func TestNewOrderFromCart_SnapshotsAndTotals(t *testing.T) {
	client := &Client{ID: 10, FirstName: "Ana", LastName: "Silva", Email: "ana@example.com"}
	cart := testCartWithItems()
	shipping, billing := testAddresses()

	order, err := NewOrderFromCart(client, cart, 15.00, shipping, billing)
	require.NoError(t, err)

	assert.Equal(t, OrderPending, order.Status)
	assert.NotEmpty(t, order.Number)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "SHIRT-BL-M", order.Items[0].SKU)
	assert.Equal(t, "Blue Shirt", order.Items[0].ProductName)
	assert.Equal(t, int32(2), order.Items[0].Quantity)

	// Items total must equal the sum of line totals.
	var sum float64
	for _, item := range order.Items {
		sum += item.LineTotal()
	}
	assert.InDelta(t, sum, order.ItemsTotal, 1e-9)
	assert.InDelta(t, order.ItemsTotal+15.00, order.GrandTotal, 1e-9)

	// Address snapshots are copies, decoupled from the client address rows.
	assert.Equal(t, ShippingAddress, order.Shipping.Kind)
	assert.Equal(t, BillingAddress, order.Billing.Kind)
	shipping.Street = "Edited later"
	assert.Equal(t, "Rua A", order.Shipping.Street)

	n := NewNotification()
	order.Validate(n)
	assert.False(t, n.HasErrors(), "freshly created order must reconcile: %v", n.Errors())
}

func TestNewOrderFromCart_EmptyCart(t *testing.T) {
	client := &Client{ID: 10}
	shipping, billing := testAddresses()

	_, err := NewOrderFromCart(client, &Cart{ID: 1, ClientID: 10}, 15.00, shipping, billing)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestNewOrderFromCart_DeletedAddressRejected(t *testing.T) {
	client := &Client{ID: 10}
	cart := testCartWithItems()
	shipping, billing := testAddresses()
	billing.MarkDeleted()

	_, err := NewOrderFromCart(client, cart, 0, shipping, billing)
	assert.Error(t, err)
}

func TestOrder_ApplyCoupon_Percentage(t *testing.T) {
	client := &Client{ID: 10}
	cart := testCartWithItems()
	shipping, billing := testAddresses()
	order, err := NewOrderFromCart(client, cart, 10.00, shipping, billing)
	require.NoError(t, err)

	now := time.Now()
	coupon := &Coupon{
		ID: 5, Code: "TEN", Percentage: ptrTo(10.0),
		ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour), IsActive: true,
	}

	require.NoError(t, order.ApplyCoupon(coupon, now))

	assert.InDelta(t, 21.98, order.Discount, 1e-9) // 10% of 219.80
	assert.InDelta(t, order.ItemsTotal+10.00-21.98, order.GrandTotal, 1e-9)
	require.NotNil(t, order.CouponID)
	assert.Equal(t, int64(5), *order.CouponID)
}

func TestOrder_ApplyCoupon_ExpiredWindow(t *testing.T) {
	client := &Client{ID: 10}
	cart := testCartWithItems()
	shipping, billing := testAddresses()
	order, err := NewOrderFromCart(client, cart, 0, shipping, billing)
	require.NoError(t, err)

	now := time.Now()
	coupon := &Coupon{
		ID: 5, Code: "OLD", Amount: ptrTo(20.0),
		ValidFrom: now.Add(-48 * time.Hour), ValidUntil: now.Add(-24 * time.Hour), IsActive: true,
	}

	assert.ErrorIs(t, order.ApplyCoupon(coupon, now), ErrCouponExpired)
	assert.Zero(t, order.Discount)
	assert.Nil(t, order.CouponID)
}

func TestOrder_ApplyCoupon_OnlyWhilePending(t *testing.T) {
	client := &Client{ID: 10}
	cart := testCartWithItems()
	shipping, billing := testAddresses()
	order, err := NewOrderFromCart(client, cart, 0, shipping, billing)
	require.NoError(t, err)
	require.NoError(t, order.TransitionTo(OrderProcessing))

	now := time.Now()
	coupon := &Coupon{ID: 5, Code: "TEN", Percentage: ptrTo(10.0),
		ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour), IsActive: true}

	assert.ErrorIs(t, order.ApplyCoupon(coupon, now), ErrOrderNotPending)
}

func TestOrder_PaymentWorkflow(t *testing.T) {
	client := &Client{ID: 10}
	cart := testCartWithItems()
	shipping, billing := testAddresses()
	order, err := NewOrderFromCart(client, cart, 10.00, shipping, billing)
	require.NoError(t, err)

	now := time.Now()
	p := order.AddPayment("credit_card", now)
	p.ID = 77

	assert.Equal(t, PaymentPending, p.Status)
	assert.InDelta(t, order.GrandTotal, p.Amount, 1e-9)
	assert.False(t, order.HasApprovedPayment())

	require.NoError(t, order.ConfirmPayment(77, "tx-abc-123", now))
	assert.Equal(t, PaymentApproved, order.Payments[0].Status)
	require.NotNil(t, order.Payments[0].TransactionID)
	assert.Equal(t, "tx-abc-123", *order.Payments[0].TransactionID)
	assert.True(t, order.HasApprovedPayment())

	// A second confirmation of the same payment is an invalid transition.
	assert.ErrorIs(t, order.ConfirmPayment(77, "tx-other", now), ErrInvalidPaymentTransition)
	assert.ErrorIs(t, order.ConfirmPayment(999, "tx", now), ErrPaymentNotFound)
}

func TestOrder_DeclinePayment(t *testing.T) {
	client := &Client{ID: 10}
	cart := testCartWithItems()
	shipping, billing := testAddresses()
	order, err := NewOrderFromCart(client, cart, 0, shipping, billing)
	require.NoError(t, err)

	now := time.Now()
	p := order.AddPayment("boleto", now)
	p.ID = 1

	require.NoError(t, order.DeclinePayment(1, now))
	assert.Equal(t, PaymentDeclined, order.Payments[0].Status)
	assert.Nil(t, order.Payments[0].TransactionID)
	assert.ErrorIs(t, order.DeclinePayment(1, now), ErrInvalidPaymentTransition)
}

func TestOrderStatus_Transitions(t *testing.T) {
	assert.True(t, OrderPending.CanTransitionTo(OrderProcessing))
	assert.True(t, OrderPending.CanTransitionTo(OrderCanceled))
	assert.True(t, OrderProcessing.CanTransitionTo(OrderShipped))
	assert.True(t, OrderShipped.CanTransitionTo(OrderDelivered))
	assert.True(t, OrderDelivered.CanTransitionTo(OrderReturned))

	assert.False(t, OrderPending.CanTransitionTo(OrderShipped))
	assert.False(t, OrderShipped.CanTransitionTo(OrderCanceled))
	assert.False(t, OrderCanceled.CanTransitionTo(OrderProcessing))
}

func TestOrder_Validate_DetectsBrokenReconciliation(t *testing.T) {
	client := &Client{ID: 10}
	cart := testCartWithItems()
	shipping, billing := testAddresses()
	order, err := NewOrderFromCart(client, cart, 0, shipping, billing)
	require.NoError(t, err)

	order.ItemsTotal += 1 // corrupt the stored total

	n := NewNotification()
	order.Validate(n)
	assert.True(t, n.HasErrors())
}
