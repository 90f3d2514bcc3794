package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"commerce-backend/internal/domain"
)

// --- OrderStorer Implementation ---

// CreateOrder writes the order root plus its items, address snapshots and
// payments. Callers run this inside a Tx together with the cart clear.
func (s *PostgresStore) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	query := `
		INSERT INTO shop.orders (number, client_id, status, items_total, shipping_fee, discount, grand_total, coupon_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, number, client_id, status, items_total, shipping_fee, discount, grand_total, coupon_id, created_at, updated_at;
	`
	var created domain.Order
	err := s.q.QueryRowContext(ctx, query,
		order.Number, order.ClientID, order.Status, order.ItemsTotal,
		order.ShippingFee, order.Discount, order.GrandTotal, order.CouponID,
	).Scan(
		&created.ID, &created.Number, &created.ClientID, &created.Status,
		&created.ItemsTotal, &created.ShippingFee, &created.Discount, &created.GrandTotal,
		&created.CouponID, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // FK violation
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("store: CreateOrder failed to scan row: %w", err)
	}

	itemQuery := `
		INSERT INTO shop.order_items (order_id, variant_id, product_name, sku, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, order_id, variant_id, product_name, sku, quantity, unit_price;
	`
	for _, item := range order.Items {
		var ci domain.OrderItem
		err := s.q.QueryRowContext(ctx, itemQuery,
			created.ID, item.VariantID, item.ProductName, item.SKU, item.Quantity, item.UnitPrice,
		).Scan(&ci.ID, &ci.OrderID, &ci.VariantID, &ci.ProductName, &ci.SKU, &ci.Quantity, &ci.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("store: CreateOrder failed to insert order item: %w", err)
		}
		created.Items = append(created.Items, ci)
	}

	addressQuery := `
		INSERT INTO shop.order_addresses (order_id, kind, street, number, complement, district, city, state, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id;
	`
	for _, snapshot := range []*domain.OrderAddress{&order.Shipping, &order.Billing} {
		var id int64
		err := s.q.QueryRowContext(ctx, addressQuery,
			created.ID, snapshot.Kind, snapshot.Street, snapshot.Number, snapshot.Complement,
			snapshot.District, snapshot.City, snapshot.State, snapshot.PostalCode, snapshot.Country,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("store: CreateOrder failed to insert %s address: %w", snapshot.Kind, err)
		}
		saved := *snapshot
		saved.ID = id
		saved.OrderID = created.ID
		if saved.Kind == domain.ShippingAddress {
			created.Shipping = saved
		} else {
			created.Billing = saved
		}
	}

	return &created, nil
}

func (s *PostgresStore) GetOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `
		SELECT id, number, client_id, status, items_total, shipping_fee, discount, grand_total, coupon_id, created_at, updated_at
		FROM shop.orders
		WHERE id = $1;
	`
	var order domain.Order
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.Number, &order.ClientID, &order.Status,
		&order.ItemsTotal, &order.ShippingFee, &order.Discount, &order.GrandTotal,
		&order.CouponID, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("store: GetOrderByID failed to scan row: %w", err)
	}
	if err := s.loadOrderChildren(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *PostgresStore) loadOrderChildren(ctx context.Context, order *domain.Order) error {
	itemsQuery := `
		SELECT id, order_id, variant_id, product_name, sku, quantity, unit_price
		FROM shop.order_items
		WHERE order_id = $1
		ORDER BY id ASC;
	`
	rows, err := s.q.QueryContext(ctx, itemsQuery, order.ID)
	if err != nil {
		return fmt.Errorf("store: failed to query order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.VariantID, &item.ProductName,
			&item.SKU, &item.Quantity, &item.UnitPrice); err != nil {
			return fmt.Errorf("store: failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: order item iteration error: %w", err)
	}

	addressQuery := `
		SELECT id, order_id, kind, street, number, complement, district, city, state, postal_code, country
		FROM shop.order_addresses
		WHERE order_id = $1;
	`
	addrRows, err := s.q.QueryContext(ctx, addressQuery, order.ID)
	if err != nil {
		return fmt.Errorf("store: failed to query order addresses: %w", err)
	}
	defer addrRows.Close()
	for addrRows.Next() {
		var a domain.OrderAddress
		if err := addrRows.Scan(&a.ID, &a.OrderID, &a.Kind, &a.Street, &a.Number, &a.Complement,
			&a.District, &a.City, &a.State, &a.PostalCode, &a.Country); err != nil {
			return fmt.Errorf("store: failed to scan order address: %w", err)
		}
		if a.Kind == domain.ShippingAddress {
			order.Shipping = a
		} else {
			order.Billing = a
		}
	}
	if err := addrRows.Err(); err != nil {
		return fmt.Errorf("store: order address iteration error: %w", err)
	}

	paymentsQuery := `
		SELECT id, order_id, method, status, amount, transaction_id, created_at, updated_at
		FROM shop.payments
		WHERE order_id = $1
		ORDER BY id ASC;
	`
	payRows, err := s.q.QueryContext(ctx, paymentsQuery, order.ID)
	if err != nil {
		return fmt.Errorf("store: failed to query payments: %w", err)
	}
	defer payRows.Close()
	for payRows.Next() {
		var p domain.Payment
		if err := payRows.Scan(&p.ID, &p.OrderID, &p.Method, &p.Status, &p.Amount,
			&p.TransactionID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return fmt.Errorf("store: failed to scan payment: %w", err)
		}
		order.Payments = append(order.Payments, p)
	}
	return payRows.Err()
}

func (s *PostgresStore) ListOrdersByClient(ctx context.Context, clientID int64, params ListParams) ([]domain.Order, int, error) {
	countQuery := `SELECT COUNT(*) FROM shop.orders WHERE client_id = $1;`
	var totalCount int
	if err := s.q.QueryRowContext(ctx, countQuery, clientID).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListOrdersByClient failed to count orders: %w", err)
	}
	if totalCount == 0 {
		return []domain.Order{}, 0, nil
	}

	query := `
		SELECT id, number, client_id, status, items_total, shipping_fee, discount, grand_total, coupon_id, created_at, updated_at
		FROM shop.orders
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := s.q.QueryContext(ctx, query, clientID, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListOrdersByClient failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, params.Limit)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Number, &o.ClientID, &o.Status, &o.ItemsTotal,
			&o.ShippingFee, &o.Discount, &o.GrandTotal, &o.CouponID,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("store: ListOrdersByClient failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListOrdersByClient iteration error: %w", err)
	}

	// Listings return the order roots only; children are loaded on the
	// detail query.
	return orders, totalCount, nil
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	query := `
		UPDATE shop.orders
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2;
	`
	result, err := s.q.ExecContext(ctx, query, status, orderID)
	if err != nil {
		return fmt.Errorf("store: UpdateOrderStatus failed to execute update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: UpdateOrderStatus failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateOrderTotals(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE shop.orders
		SET items_total = $1, shipping_fee = $2, discount = $3, grand_total = $4, coupon_id = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6;
	`
	result, err := s.q.ExecContext(ctx, query,
		order.ItemsTotal, order.ShippingFee, order.Discount, order.GrandTotal, order.CouponID, order.ID,
	)
	if err != nil {
		return fmt.Errorf("store: UpdateOrderTotals failed to execute update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: UpdateOrderTotals failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *PostgresStore) CreatePayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	query := `
		INSERT INTO shop.payments (order_id, method, status, amount, transaction_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, order_id, method, status, amount, transaction_id, created_at, updated_at;
	`
	var created domain.Payment
	err := s.q.QueryRowContext(ctx, query,
		payment.OrderID, payment.Method, payment.Status, payment.Amount, payment.TransactionID,
	).Scan(
		&created.ID, &created.OrderID, &created.Method, &created.Status, &created.Amount,
		&created.TransactionID, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("store: CreatePayment failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) UpdatePayment(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE shop.payments
		SET status = $1, transaction_id = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3;
	`
	result, err := s.q.ExecContext(ctx, query, payment.Status, payment.TransactionID, payment.ID)
	if err != nil {
		return fmt.Errorf("store: UpdatePayment failed to execute update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: UpdatePayment failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// --- CouponStorer Implementation ---

func (s *PostgresStore) CreateCoupon(ctx context.Context, coupon *domain.Coupon) (*domain.Coupon, error) {
	query := `
		INSERT INTO shop.coupons (code, percentage, amount, valid_from, valid_until, usage_count, max_usage, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, code, percentage, amount, valid_from, valid_until, usage_count, max_usage, is_active, created_at, updated_at;
	`
	var created domain.Coupon
	err := s.q.QueryRowContext(ctx, query,
		coupon.Code, coupon.Percentage, coupon.Amount, coupon.ValidFrom, coupon.ValidUntil,
		coupon.UsageCount, coupon.MaxUsage, coupon.IsActive,
	).Scan(
		&created.ID, &created.Code, &created.Percentage, &created.Amount,
		&created.ValidFrom, &created.ValidUntil, &created.UsageCount, &created.MaxUsage,
		&created.IsActive, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrCouponCodeExists
		}
		return nil, fmt.Errorf("store: CreateCoupon failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT id, code, percentage, amount, valid_from, valid_until, usage_count, max_usage, is_active, created_at, updated_at
		FROM shop.coupons
		WHERE code = $1;
	`
	var coupon domain.Coupon
	err := s.q.QueryRowContext(ctx, query, code).Scan(
		&coupon.ID, &coupon.Code, &coupon.Percentage, &coupon.Amount,
		&coupon.ValidFrom, &coupon.ValidUntil, &coupon.UsageCount, &coupon.MaxUsage,
		&coupon.IsActive, &coupon.CreatedAt, &coupon.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("store: GetCouponByCode failed to scan row: %w", err)
	}
	return &coupon, nil
}

func (s *PostgresStore) UpdateCouponUsage(ctx context.Context, couponID int64, usageCount int) error {
	query := `
		UPDATE shop.coupons
		SET usage_count = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2;
	`
	result, err := s.q.ExecContext(ctx, query, usageCount, couponID)
	if err != nil {
		return fmt.Errorf("store: UpdateCouponUsage failed to execute update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: UpdateCouponUsage failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCouponNotFound
	}
	return nil
}
