package checkout

import (
	"context"
	"errors"
	"log"
	"time"

	"commerce-backend/internal/domain"
	"commerce-backend/internal/events"
	"commerce-backend/internal/gateway"
	"commerce-backend/internal/store"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	store.ClientStorer
	store.AddressStorer
	store.CartStorer
	store.OrderStorer
	store.CouponStorer
	store.UnitOfWork
}

// Service implements the checkout use-cases.
type Service struct {
	repo        Repository
	payments    gateway.PaymentGateway
	publisher   *events.Publisher
	shippingFee float64
}

// NewService wires the checkout service.
func NewService(repo Repository, payments gateway.PaymentGateway, publisher *events.Publisher, shippingFee float64) *Service {
	return &Service{
		repo:        repo,
		payments:    payments,
		publisher:   publisher,
		shippingFee: shippingFee,
	}
}

// PlaceOrderInput selects the addresses and an optional coupon for a new
// order.
type PlaceOrderInput struct {
	ShippingAddressID int64
	BillingAddressID  int64
	CouponCode        *string
}

// PlaceOrder snapshots the client's cart into a pending order and clears the
// cart, all in one transaction. The optional coupon is validated and its
// usage counter bumped in the same transaction.
func (s *Service) PlaceOrder(ctx context.Context, clientID int64, input PlaceOrderInput) (*domain.Order, error) {
	client, err := s.repo.GetClientByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	cart, err := s.repo.GetCartByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrCartNotFound) {
			return nil, ErrCartEmpty
		}
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrCartEmpty
	}

	shipping, err := s.ownedActiveAddress(ctx, clientID, input.ShippingAddressID)
	if err != nil {
		return nil, err
	}
	billing := shipping
	if input.BillingAddressID != input.ShippingAddressID {
		billing, err = s.ownedActiveAddress(ctx, clientID, input.BillingAddressID)
		if err != nil {
			return nil, err
		}
	}

	order, err := domain.NewOrderFromCart(client, cart, s.shippingFee, shipping, billing)
	if err != nil {
		return nil, err
	}

	var coupon *domain.Coupon
	if input.CouponCode != nil && *input.CouponCode != "" {
		coupon, err = s.repo.GetCouponByCode(ctx, *input.CouponCode)
		if err != nil {
			if errors.Is(err, store.ErrCouponNotFound) {
				return nil, ErrCouponNotFound
			}
			return nil, err
		}
		if err := order.ApplyCoupon(coupon, time.Now().UTC()); err != nil {
			return nil, err
		}
		coupon.IncrementUsage()
	}

	n := domain.NewNotification()
	order.Validate(n)
	if n.HasErrors() {
		return nil, n.ErrOrNil()
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	created, err := tx.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	if coupon != nil {
		if err := tx.UpdateCouponUsage(ctx, coupon.ID, coupon.UsageCount); err != nil {
			return nil, err
		}
	}
	if err := tx.ReplaceCartItems(ctx, cart.ID, nil); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.OrderPlaced{Order: created})
	log.Printf("INFO: order %s placed for client %d, grand total %.2f", created.Number, clientID, created.GrandTotal)
	return created, nil
}

// ApplyCoupon applies a coupon to an existing pending order. Order totals
// and the coupon's usage counter change together in one transaction.
func (s *Service) ApplyCoupon(ctx context.Context, clientID, orderID int64, code string) (*domain.Order, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order, err := s.ownedOrder(ctx, tx, clientID, orderID)
	if err != nil {
		return nil, err
	}
	coupon, err := tx.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}

	if err := order.ApplyCoupon(coupon, time.Now().UTC()); err != nil {
		return nil, err
	}
	coupon.IncrementUsage()

	if err := tx.UpdateOrderTotals(ctx, order); err != nil {
		return nil, err
	}
	if err := tx.UpdateCouponUsage(ctx, coupon.ID, coupon.UsageCount); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

// Pay records a pending payment for the order's grand total, forwards it to
// the gateway, and on approval confirms the payment and moves the order to
// processing in one transaction. A decline is reported with the gateway's
// reason and changes nothing beyond the recorded attempt.
func (s *Service) Pay(ctx context.Context, clientID, orderID int64, method string) (*domain.Order, error) {
	order, err := s.ownedOrder(ctx, s.repo, clientID, orderID)
	if err != nil {
		return nil, err
	}
	if order.HasApprovedPayment() {
		return nil, ErrAlreadyPaid
	}
	if order.Status != domain.OrderPending {
		return nil, ErrOrderNotPayable
	}

	now := time.Now().UTC()
	payment := order.AddPayment(method, now)
	created, err := s.repo.CreatePayment(ctx, payment)
	if err != nil {
		return nil, err
	}
	payment.ID = created.ID

	result, err := s.payments.ProcessPayment(ctx, order, method)
	if err != nil {
		return nil, err
	}
	if !result.Approved {
		return nil, &DeclinedError{Reason: result.Reason}
	}

	if err := order.ConfirmPayment(payment.ID, result.TransactionID, now); err != nil {
		return nil, err
	}
	if err := order.TransitionTo(domain.OrderProcessing); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.UpdatePayment(ctx, payment); err != nil {
		return nil, err
	}
	if err := tx.UpdateOrderStatus(ctx, order.ID, order.Status); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("INFO: order %s paid, transaction %s", order.Number, result.TransactionID)
	return order, nil
}

// CancelOrder cancels a pending or processing order.
func (s *Service) CancelOrder(ctx context.Context, clientID, orderID int64) (*domain.Order, error) {
	order, err := s.ownedOrder(ctx, s.repo, clientID, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.TransitionTo(domain.OrderCanceled); err != nil {
		return nil, ErrCannotCancel
	}
	if err := s.repo.UpdateOrderStatus(ctx, order.ID, order.Status); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder returns one of the client's orders with items, addresses and
// payments.
func (s *Service) GetOrder(ctx context.Context, clientID, orderID int64) (*domain.Order, error) {
	return s.ownedOrder(ctx, s.repo, clientID, orderID)
}

// ListOrders returns the client's order history, newest first.
func (s *Service) ListOrders(ctx context.Context, clientID int64, params store.ListParams) ([]domain.Order, int, error) {
	return s.repo.ListOrdersByClient(ctx, clientID, params)
}

// CreateCoupon registers a new coupon.
func (s *Service) CreateCoupon(ctx context.Context, coupon *domain.Coupon) (*domain.Coupon, error) {
	n := domain.NewNotification()
	coupon.Validate(n)
	if n.HasErrors() {
		return nil, n.ErrOrNil()
	}
	created, err := s.repo.CreateCoupon(ctx, coupon)
	if err != nil {
		if errors.Is(err, store.ErrCouponCodeExists) {
			return nil, ErrCouponCodeTaken
		}
		return nil, err
	}
	return created, nil
}

// orderReader is satisfied by both the plain repository and a transaction.
type orderReader interface {
	GetOrderByID(ctx context.Context, id int64) (*domain.Order, error)
}

func (s *Service) ownedOrder(ctx context.Context, r orderReader, clientID, orderID int64) (*domain.Order, error) {
	order, err := r.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.ClientID != clientID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) ownedActiveAddress(ctx context.Context, clientID, addressID int64) (*domain.Address, error) {
	address, err := s.repo.GetAddressByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, store.ErrAddressNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	if address.ClientID != clientID || !address.IsActive() {
		return nil, ErrAddressNotFound
	}
	return address, nil
}
