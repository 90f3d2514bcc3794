package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-backend/internal/domain"
	"commerce-backend/internal/events"
	"commerce-backend/internal/gateway"
	"commerce-backend/internal/service/checkout"
	"commerce-backend/internal/store"
)

// fakeRepo is an in-memory checkout.Repository. Methods the checkout service
// never calls stay on the embedded nil interfaces.
type fakeRepo struct {
	store.ClientStorer
	store.AddressStorer
	store.CartStorer

	clients   map[int64]*domain.Client
	addresses map[int64]*domain.Address
	carts     map[int64]*domain.Cart // keyed by client id
	orders    map[int64]*domain.Order
	payments  map[int64]*domain.Payment
	coupons   map[string]*domain.Coupon
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		clients:   make(map[int64]*domain.Client),
		addresses: make(map[int64]*domain.Address),
		carts:     make(map[int64]*domain.Cart),
		orders:    make(map[int64]*domain.Order),
		payments:  make(map[int64]*domain.Payment),
		coupons:   make(map[string]*domain.Coupon),
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) GetClientByID(_ context.Context, id int64) (*domain.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, store.ErrClientNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) GetAddressByID(_ context.Context, id int64) (*domain.Address, error) {
	a, ok := f.addresses[id]
	if !ok {
		return nil, store.ErrAddressNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) GetCartByClientID(_ context.Context, clientID int64) (*domain.Cart, error) {
	c, ok := f.carts[clientID]
	if !ok {
		return nil, store.ErrCartNotFound
	}
	cp := *c
	cp.Items = append([]domain.CartItem(nil), c.Items...)
	return &cp, nil
}

func (f *fakeRepo) ReplaceCartItems(_ context.Context, cartID int64, items []domain.CartItem) error {
	for _, c := range f.carts {
		if c.ID == cartID {
			c.Items = append([]domain.CartItem(nil), items...)
			return nil
		}
	}
	return store.ErrCartNotFound
}

func (f *fakeRepo) CreateOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	o := copyOrder(order)
	o.ID = f.id()
	for i := range o.Items {
		o.Items[i].ID = f.id()
		o.Items[i].OrderID = o.ID
	}
	o.Shipping.OrderID = o.ID
	o.Billing.OrderID = o.ID
	f.orders[o.ID] = o
	return copyOrder(o), nil
}

func (f *fakeRepo) GetOrderByID(_ context.Context, id int64) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	// Reassemble payments the way the SQL store loads children.
	o.Payments = nil
	for _, p := range f.payments {
		if p.OrderID == o.ID {
			o.Payments = append(o.Payments, *p)
		}
	}
	return copyOrder(o), nil
}

func (f *fakeRepo) ListOrdersByClient(_ context.Context, clientID int64, _ store.ListParams) ([]domain.Order, int, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.ClientID == clientID {
			out = append(out, *copyOrder(o))
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) UpdateOrderStatus(_ context.Context, orderID int64, status domain.OrderStatus) error {
	o, ok := f.orders[orderID]
	if !ok {
		return store.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (f *fakeRepo) UpdateOrderTotals(_ context.Context, order *domain.Order) error {
	o, ok := f.orders[order.ID]
	if !ok {
		return store.ErrOrderNotFound
	}
	o.ItemsTotal = order.ItemsTotal
	o.ShippingFee = order.ShippingFee
	o.Discount = order.Discount
	o.GrandTotal = order.GrandTotal
	o.CouponID = order.CouponID
	return nil
}

func (f *fakeRepo) CreatePayment(_ context.Context, payment *domain.Payment) (*domain.Payment, error) {
	p := *payment
	p.ID = f.id()
	f.payments[p.ID] = &p
	cp := p
	return &cp, nil
}

func (f *fakeRepo) UpdatePayment(_ context.Context, payment *domain.Payment) error {
	p, ok := f.payments[payment.ID]
	if !ok {
		return store.ErrPaymentNotFound
	}
	p.Status = payment.Status
	p.TransactionID = payment.TransactionID
	return nil
}

func (f *fakeRepo) CreateCoupon(_ context.Context, coupon *domain.Coupon) (*domain.Coupon, error) {
	if _, ok := f.coupons[coupon.Code]; ok {
		return nil, store.ErrCouponCodeExists
	}
	c := *coupon
	c.ID = f.id()
	f.coupons[c.Code] = &c
	cp := c
	return &cp, nil
}

func (f *fakeRepo) GetCouponByCode(_ context.Context, code string) (*domain.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok {
		return nil, store.ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) UpdateCouponUsage(_ context.Context, couponID int64, usageCount int) error {
	for _, c := range f.coupons {
		if c.ID == couponID {
			c.UsageCount = usageCount
			return nil
		}
	}
	return store.ErrCouponNotFound
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	cp.Payments = append([]domain.Payment(nil), o.Payments...)
	return &cp
}

type fakeTx struct {
	store.Tx
	repo *fakeRepo
	done bool
}

func (f *fakeRepo) Begin(_ context.Context) (store.Tx, error) {
	return &fakeTx{repo: f}, nil
}

func (t *fakeTx) CreateOrder(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	return t.repo.CreateOrder(ctx, o)
}

func (t *fakeTx) GetOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	return t.repo.GetOrderByID(ctx, id)
}

func (t *fakeTx) UpdateOrderTotals(ctx context.Context, o *domain.Order) error {
	return t.repo.UpdateOrderTotals(ctx, o)
}

func (t *fakeTx) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	return t.repo.UpdateOrderStatus(ctx, id, status)
}

func (t *fakeTx) UpdatePayment(ctx context.Context, p *domain.Payment) error {
	return t.repo.UpdatePayment(ctx, p)
}

func (t *fakeTx) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return t.repo.GetCouponByCode(ctx, code)
}

func (t *fakeTx) UpdateCouponUsage(ctx context.Context, id int64, usage int) error {
	return t.repo.UpdateCouponUsage(ctx, id, usage)
}

func (t *fakeTx) ReplaceCartItems(ctx context.Context, cartID int64, items []domain.CartItem) error {
	return t.repo.ReplaceCartItems(ctx, cartID, items)
}

func (t *fakeTx) Commit() error   { t.done = true; return nil }
func (t *fakeTx) Rollback() error { t.done = true; return nil }

func (t *fakeTx) HasActiveTransaction() bool { return !t.done }

const clientID = int64(1)

func newTestEnv() (*checkout.Service, *fakeRepo, *gateway.MockGateway, *events.Publisher) {
	repo := newFakeRepo()
	repo.clients[clientID] = &domain.Client{ID: clientID, FirstName: "Maria", Email: "maria@example.com"}
	repo.addresses[10] = &domain.Address{
		ID: 10, ClientID: clientID, Street: "Rua A", Number: "100",
		City: "São Paulo", State: "SP", PostalCode: "01000-000", Country: "BR",
		Status: domain.AddressActive,
	}
	repo.addresses[11] = &domain.Address{
		ID: 11, ClientID: 999, Street: "Rua B", Number: "200",
		City: "Rio", State: "RJ", PostalCode: "20000-000", Country: "BR",
		Status: domain.AddressActive,
	}
	repo.carts[clientID] = &domain.Cart{
		ID: 5, ClientID: clientID,
		Items: []domain.CartItem{
			{ID: 1, CartID: 5, VariantID: 10, ProductName: "Basic T-Shirt", SKU: "TSHIRT-M", Quantity: 2, UnitPrice: 100.00},
			{ID: 2, CartID: 5, VariantID: 11, ProductName: "Coffee Mug", SKU: "MUG-01", Quantity: 1, UnitPrice: 19.80},
		},
	}

	gw := gateway.NewMockGateway()
	publisher := events.NewPublisher()
	svc := checkout.NewService(repo, gw, publisher, 9.90)
	return svc, repo, gw, publisher
}

func placeInput() checkout.PlaceOrderInput {
	return checkout.PlaceOrderInput{ShippingAddressID: 10, BillingAddressID: 10}
}

func TestPlaceOrder(t *testing.T) {
	svc, repo, _, publisher := newTestEnv()
	ctx := context.Background()

	var placed *domain.Order
	publisher.Register("order.placed", func(_ context.Context, e events.Event) {
		placed = e.(events.OrderPlaced).Order
	})

	order, err := svc.PlaceOrder(ctx, clientID, placeInput())
	require.NoError(t, err)

	assert.Equal(t, domain.OrderPending, order.Status)
	assert.NotEmpty(t, order.Number)
	assert.InDelta(t, 219.80, order.ItemsTotal, 0.001)
	assert.InDelta(t, 229.70, order.GrandTotal, 0.001)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Rua A", order.Shipping.Street)
	assert.Equal(t, "Rua A", order.Billing.Street)

	// The cart was cleared in the same transaction.
	cart, err := repo.GetCartByClientID(ctx, clientID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	require.NotNil(t, placed)
	assert.Equal(t, order.ID, placed.ID)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	svc, repo, _, _ := newTestEnv()
	repo.carts[clientID].Items = nil

	_, err := svc.PlaceOrder(context.Background(), clientID, placeInput())
	assert.ErrorIs(t, err, checkout.ErrCartEmpty)
}

func TestPlaceOrder_ForeignAddress(t *testing.T) {
	svc, _, _, _ := newTestEnv()

	input := placeInput()
	input.ShippingAddressID = 11
	_, err := svc.PlaceOrder(context.Background(), clientID, input)
	assert.ErrorIs(t, err, checkout.ErrAddressNotFound)
}

func TestPlaceOrder_WithCoupon(t *testing.T) {
	svc, repo, _, _ := newTestEnv()
	ctx := context.Background()

	pct := 10.0
	_, err := svc.CreateCoupon(ctx, &domain.Coupon{
		Code:       "DEZ",
		Percentage: &pct,
		ValidFrom:  time.Now().Add(-time.Hour),
		ValidUntil: time.Now().Add(time.Hour),
		IsActive:   true,
	})
	require.NoError(t, err)

	code := "DEZ"
	input := placeInput()
	input.CouponCode = &code
	order, err := svc.PlaceOrder(ctx, clientID, input)
	require.NoError(t, err)

	assert.InDelta(t, 21.98, order.Discount, 0.001)
	assert.InDelta(t, 219.80+9.90-21.98, order.GrandTotal, 0.001)
	assert.Equal(t, 1, repo.coupons["DEZ"].UsageCount)
}

func TestPlaceOrder_UnknownCoupon(t *testing.T) {
	svc, _, _, _ := newTestEnv()

	code := "NOPE"
	input := placeInput()
	input.CouponCode = &code
	_, err := svc.PlaceOrder(context.Background(), clientID, input)
	assert.ErrorIs(t, err, checkout.ErrCouponNotFound)
}

func TestApplyCoupon_ToExistingOrder(t *testing.T) {
	svc, repo, _, _ := newTestEnv()
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, clientID, placeInput())
	require.NoError(t, err)

	amount := 50.0
	_, err = svc.CreateCoupon(ctx, &domain.Coupon{
		Code:       "VALE50",
		Amount:     &amount,
		ValidFrom:  time.Now().Add(-time.Hour),
		ValidUntil: time.Now().Add(time.Hour),
		IsActive:   true,
	})
	require.NoError(t, err)

	updated, err := svc.ApplyCoupon(ctx, clientID, order.ID, "VALE50")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, updated.Discount, 0.001)
	assert.InDelta(t, 219.80+9.90-50.0, updated.GrandTotal, 0.001)
	assert.Equal(t, 1, repo.coupons["VALE50"].UsageCount)

	stored, err := svc.GetOrder(ctx, clientID, order.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, stored.Discount, 0.001)
}

func TestApplyCoupon_OrderNotPending(t *testing.T) {
	svc, repo, _, _ := newTestEnv()
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, clientID, placeInput())
	require.NoError(t, err)
	repo.orders[order.ID].Status = domain.OrderProcessing

	amount := 50.0
	_, err = svc.CreateCoupon(ctx, &domain.Coupon{
		Code:       "VALE50",
		Amount:     &amount,
		ValidFrom:  time.Now().Add(-time.Hour),
		ValidUntil: time.Now().Add(time.Hour),
		IsActive:   true,
	})
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(ctx, clientID, order.ID, "VALE50")
	assert.ErrorIs(t, err, domain.ErrOrderNotPending)
}

func TestPay_Approved(t *testing.T) {
	svc, repo, _, _ := newTestEnv()
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, clientID, placeInput())
	require.NoError(t, err)

	paid, err := svc.Pay(ctx, clientID, order.ID, "credit_card")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderProcessing, paid.Status)
	require.Len(t, paid.Payments, 1)
	assert.Equal(t, domain.PaymentApproved, paid.Payments[0].Status)
	require.NotNil(t, paid.Payments[0].TransactionID)
	assert.InDelta(t, paid.GrandTotal, paid.Payments[0].Amount, 0.001)

	stored := repo.payments[paid.Payments[0].ID]
	assert.Equal(t, domain.PaymentApproved, stored.Status)

	// Paying again is rejected.
	_, err = svc.Pay(ctx, clientID, order.ID, "credit_card")
	assert.ErrorIs(t, err, checkout.ErrAlreadyPaid)
}

func TestPay_Declined(t *testing.T) {
	svc, _, gw, _ := newTestEnv()
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, clientID, placeInput())
	require.NoError(t, err)

	gw.DeclineReason = "insufficient funds"
	_, err = svc.Pay(ctx, clientID, order.ID, "credit_card")

	var declined *checkout.DeclinedError
	require.ErrorAs(t, err, &declined)
	assert.Equal(t, "insufficient funds", declined.Reason)

	// The order stays pending and payable.
	stored, err := svc.GetOrder(ctx, clientID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, stored.Status)

	gw.DeclineReason = ""
	paid, err := svc.Pay(ctx, clientID, order.ID, "credit_card")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderProcessing, paid.Status)
}

func TestCancelOrder(t *testing.T) {
	svc, repo, _, _ := newTestEnv()
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, clientID, placeInput())
	require.NoError(t, err)

	canceled, err := svc.CancelOrder(ctx, clientID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCanceled, canceled.Status)

	// A shipped order cannot be canceled.
	repo.orders[order.ID].Status = domain.OrderShipped
	_, err = svc.CancelOrder(ctx, clientID, order.ID)
	assert.ErrorIs(t, err, checkout.ErrCannotCancel)
}

func TestGetOrder_Ownership(t *testing.T) {
	svc, _, _, _ := newTestEnv()
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, clientID, placeInput())
	require.NoError(t, err)

	_, err = svc.GetOrder(ctx, clientID+1, order.ID)
	assert.ErrorIs(t, err, checkout.ErrOrderNotFound)

	_, err = svc.GetOrder(ctx, clientID, 9999)
	assert.ErrorIs(t, err, checkout.ErrOrderNotFound)
}
