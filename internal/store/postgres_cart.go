package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"commerce-backend/internal/domain"
)

// --- CartStorer Implementation ---

func (s *PostgresStore) GetCartByClientID(ctx context.Context, clientID int64) (*domain.Cart, error) {
	query := `
		SELECT id, client_id, created_at, updated_at
		FROM shop.carts
		WHERE client_id = $1;
	`
	var cart domain.Cart
	err := s.q.QueryRowContext(ctx, query, clientID).Scan(
		&cart.ID, &cart.ClientID, &cart.CreatedAt, &cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("store: GetCartByClientID failed to scan row: %w", err)
	}

	itemsQuery := `
		SELECT id, cart_id, variant_id, product_name, sku, quantity, unit_price
		FROM shop.cart_items
		WHERE cart_id = $1
		ORDER BY id ASC;
	`
	rows, err := s.q.QueryContext(ctx, itemsQuery, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("store: GetCartByClientID failed to query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.VariantID, &item.ProductName,
			&item.SKU, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("store: GetCartByClientID failed to scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: GetCartByClientID iteration error: %w", err)
	}
	return &cart, nil
}

func (s *PostgresStore) CreateCart(ctx context.Context, clientID int64) (*domain.Cart, error) {
	query := `
		INSERT INTO shop.carts (client_id)
		VALUES ($1)
		RETURNING id, client_id, created_at, updated_at;
	`
	var cart domain.Cart
	err := s.q.QueryRowContext(ctx, query, clientID).Scan(
		&cart.ID, &cart.ClientID, &cart.CreatedAt, &cart.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // FK violation
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("store: CreateCart failed to scan row: %w", err)
	}
	return &cart, nil
}

// ReplaceCartItems rewrites the cart's lines from the aggregate's state and
// bumps the cart's updated_at. Callers run this inside a Tx.
func (s *PostgresStore) ReplaceCartItems(ctx context.Context, cartID int64, items []domain.CartItem) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM shop.cart_items WHERE cart_id = $1;`, cartID); err != nil {
		return fmt.Errorf("store: ReplaceCartItems failed to clear items: %w", err)
	}

	insertQuery := `
		INSERT INTO shop.cart_items (cart_id, variant_id, product_name, sku, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	for _, item := range items {
		if _, err := s.q.ExecContext(ctx, insertQuery,
			cartID, item.VariantID, item.ProductName, item.SKU, item.Quantity, item.UnitPrice,
		); err != nil {
			return fmt.Errorf("store: ReplaceCartItems failed to insert item: %w", err)
		}
	}

	result, err := s.q.ExecContext(ctx, `UPDATE shop.carts SET updated_at = CURRENT_TIMESTAMP WHERE id = $1;`, cartID)
	if err != nil {
		return fmt.Errorf("store: ReplaceCartItems failed to touch cart: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: ReplaceCartItems failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCartNotFound
	}
	return nil
}
