package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
)

// Predefined errors for store operations
var (
	ErrCategoryNotFound   = errors.New("store: category not found")
	ErrCategorySlugExists = errors.New("store: category slug already exists")
	ErrBrandNotFound      = errors.New("store: brand not found")
	ErrBrandSlugExists    = errors.New("store: brand slug already exists")
	ErrProductNotFound    = errors.New("store: product not found")
	ErrProductSlugExists  = errors.New("store: product slug already exists")
	ErrVariantSKUExists   = errors.New("store: variant SKU already exists")
	ErrVariantNotFound    = errors.New("store: product variant not found")
	ErrClientNotFound     = errors.New("store: client not found")
	ErrEmailExists        = errors.New("store: email already registered")
	ErrAddressNotFound    = errors.New("store: address not found")
	ErrTokenNotFound      = errors.New("store: token not found")
	ErrCartNotFound       = errors.New("store: cart not found")
	ErrOrderNotFound      = errors.New("store: order not found")
	ErrPaymentNotFound    = errors.New("store: payment not found")
	ErrCouponNotFound     = errors.New("store: coupon not found")
	ErrCouponCodeExists   = errors.New("store: coupon code already exists")
	ErrReviewExists       = errors.New("store: client already reviewed this product")
	ErrUpdateFailed       = errors.New("store: update failed, 0 rows affected")
)

// queryer is satisfied by both *sql.DB and *sql.Tx, so every repository
// method works identically inside and outside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PostgresStore implements every storer interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	q  queryer
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

// TxStore is a PostgresStore bound to one SQL transaction. It inherits every
// repository method from PostgresStore, executed against the transaction.
type TxStore struct {
	PostgresStore
	tx   *sql.Tx
	done bool
}

// Begin opens a transaction and returns a transaction-bound store.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	return &TxStore{
		PostgresStore: PostgresStore{db: s.db, q: tx},
		tx:            tx,
	}, nil
}

// Commit finishes the transaction.
func (t *TxStore) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("store: commit failed: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. It is a no-op once the transaction has
// been committed or rolled back, so it is safe to defer unconditionally.
func (t *TxStore) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("store: rollback failed: %w", err)
	}
	return nil
}

// HasActiveTransaction reports whether the transaction is still open.
func (t *TxStore) HasActiveTransaction() bool {
	return !t.done
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		log.Println("INFO: Closing database connection pool...")
		if err := s.db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database connection pool: %v", err)
			return err
		}
		log.Println("INFO: Database connection pool closed successfully.")
	}
	return nil
}
