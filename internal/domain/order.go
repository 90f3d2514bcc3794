package domain

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCanceled   OrderStatus = "canceled"
	OrderReturned   OrderStatus = "returned"
)

// orderTransitions lists the allowed next states for each status.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCanceled},
	OrderProcessing: {OrderShipped, OrderCanceled},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {OrderReturned},
}

// CanTransitionTo reports whether the status may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentDeclined PaymentStatus = "declined"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment belongs to one order. TransactionID is stamped once the gateway
// approves the payment.
type Payment struct {
	ID            int64         `json:"id"`
	OrderID       int64         `json:"order_id"`
	Method        string        `json:"method"`
	Status        PaymentStatus `json:"status"`
	Amount        float64       `json:"amount"`
	TransactionID *string       `json:"transaction_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// OrderItem is an immutable snapshot of a cart line taken at order time.
type OrderItem struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"order_id"`
	VariantID   int64   `json:"variant_id"`
	ProductName string  `json:"product_name"`
	SKU         string  `json:"sku"`
	Quantity    int32   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// LineTotal returns the price of the line.
func (i OrderItem) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// OrderAddressKind distinguishes the two address snapshots on an order.
type OrderAddressKind string

const (
	ShippingAddress OrderAddressKind = "shipping"
	BillingAddress  OrderAddressKind = "billing"
)

// OrderAddress is a copy of a client address taken at order time, so later
// edits to the client's address book do not rewrite history.
type OrderAddress struct {
	ID         int64            `json:"id"`
	OrderID    int64            `json:"order_id"`
	Kind       OrderAddressKind `json:"kind"`
	Street     string           `json:"street"`
	Number     string           `json:"number"`
	Complement *string          `json:"complement,omitempty"`
	District   string           `json:"district"`
	City       string           `json:"city"`
	State      string           `json:"state"`
	PostalCode string           `json:"postal_code"`
	Country    string           `json:"country"`
}

func snapshotAddress(kind OrderAddressKind, a *Address) OrderAddress {
	return OrderAddress{
		Kind:       kind,
		Street:     a.Street,
		Number:     a.Number,
		Complement: a.Complement,
		District:   a.District,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// Order is created from a cart snapshot and owns its items, payments and
// address snapshots.
type Order struct {
	ID          int64        `json:"id"`
	Number      string       `json:"number"`
	ClientID    int64        `json:"client_id"`
	Status      OrderStatus  `json:"status"`
	ItemsTotal  float64      `json:"items_total"`
	ShippingFee float64      `json:"shipping_fee"`
	Discount    float64      `json:"discount"`
	GrandTotal  float64      `json:"grand_total"`
	CouponID    *int64       `json:"coupon_id,omitempty"`
	Shipping    OrderAddress `json:"shipping_address"`
	Billing     OrderAddress `json:"billing_address"`
	Items       []OrderItem  `json:"items"`
	Payments    []Payment    `json:"payments"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewOrderFromCart snapshots the cart lines into immutable order items,
// copies both addresses, and computes the totals. The cart must not be
// empty and both addresses must be usable.
func NewOrderFromCart(client *Client, cart *Cart, shippingFee float64, shipping, billing *Address) (*Order, error) {
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if shippingFee < 0 {
		return nil, errors.New("domain: shipping fee cannot be negative")
	}
	if !shipping.IsActive() || !billing.IsActive() {
		return nil, errors.New("domain: order addresses must be active")
	}

	o := &Order{
		Number:      uuid.NewString(),
		ClientID:    client.ID,
		Status:      OrderPending,
		ShippingFee: shippingFee,
		Shipping:    snapshotAddress(ShippingAddress, shipping),
		Billing:     snapshotAddress(BillingAddress, billing),
	}
	for _, line := range cart.Items {
		o.Items = append(o.Items, OrderItem{
			VariantID:   line.VariantID,
			ProductName: line.ProductName,
			SKU:         line.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	o.recalcTotals()
	return o, nil
}

// recalcTotals recomputes ItemsTotal and GrandTotal from the current lines,
// shipping fee and discount.
func (o *Order) recalcTotals() {
	var items float64
	for _, i := range o.Items {
		items += i.LineTotal()
	}
	o.ItemsTotal = roundCents(items)
	o.GrandTotal = roundCents(o.ItemsTotal + o.ShippingFee - o.Discount)
}

// ApplyCoupon validates the coupon against the current instant, recomputes
// the discount and grand total, and records the coupon. The caller is
// responsible for bumping the coupon's usage counter and persisting both
// aggregates in one transaction.
func (o *Order) ApplyCoupon(c *Coupon, now time.Time) error {
	if o.Status != OrderPending {
		return ErrOrderNotPending
	}
	discount, err := c.DiscountFor(o.ItemsTotal, now)
	if err != nil {
		return err
	}
	o.Discount = discount
	o.CouponID = &c.ID
	o.recalcTotals()
	o.UpdatedAt = now
	return nil
}

// AddPayment appends a pending payment for the full grand total and returns
// it for the caller to persist and forward to the gateway.
func (o *Order) AddPayment(method string, now time.Time) *Payment {
	p := Payment{
		OrderID:   o.ID,
		Method:    method,
		Status:    PaymentPending,
		Amount:    o.GrandTotal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.Payments = append(o.Payments, p)
	return &o.Payments[len(o.Payments)-1]
}

// ConfirmPayment transitions a pending payment to approved and stamps the
// gateway transaction id.
func (o *Order) ConfirmPayment(paymentID int64, transactionID string, now time.Time) error {
	p := o.paymentByID(paymentID)
	if p == nil {
		return ErrPaymentNotFound
	}
	if p.Status != PaymentPending {
		return ErrInvalidPaymentTransition
	}
	p.Status = PaymentApproved
	p.TransactionID = &transactionID
	p.UpdatedAt = now
	return nil
}

// DeclinePayment transitions a pending payment to declined.
func (o *Order) DeclinePayment(paymentID int64, now time.Time) error {
	p := o.paymentByID(paymentID)
	if p == nil {
		return ErrPaymentNotFound
	}
	if p.Status != PaymentPending {
		return ErrInvalidPaymentTransition
	}
	p.Status = PaymentDeclined
	p.UpdatedAt = now
	return nil
}

// HasApprovedPayment reports whether the order has been paid.
func (o *Order) HasApprovedPayment() bool {
	for _, p := range o.Payments {
		if p.Status == PaymentApproved {
			return true
		}
	}
	return false
}

// TransitionTo moves the order to the given status when the transition is
// allowed.
func (o *Order) TransitionTo(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return ErrInvalidOrderTransition
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Validate appends every violation to the notification, including the totals
// reconciliation invariant: the sum of line totals must equal ItemsTotal.
func (o *Order) Validate(n *Notification) {
	if o.ClientID <= 0 {
		n.Append(errors.New("order client is required"))
	}
	if len(o.Items) == 0 {
		n.Append(ErrEmptyCart)
	}
	var items float64
	for _, i := range o.Items {
		if i.Quantity <= 0 {
			n.Append(ErrInvalidQuantity)
		}
		items += i.LineTotal()
	}
	if roundCents(items) != roundCents(o.ItemsTotal) {
		n.Append(errors.New("order items total does not match the sum of line totals"))
	}
	if roundCents(o.ItemsTotal+o.ShippingFee-o.Discount) != roundCents(o.GrandTotal) {
		n.Append(errors.New("order grand total does not reconcile"))
	}
	if o.Discount < 0 || o.ShippingFee < 0 {
		n.Append(errors.New("order monetary fields cannot be negative"))
	}
}

func (o *Order) paymentByID(id int64) *Payment {
	for i := range o.Payments {
		if o.Payments[i].ID == id {
			return &o.Payments[i]
		}
	}
	return nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
