package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"commerce-backend/internal/domain"
)

// --- ClientStorer Implementation ---

func (s *PostgresStore) CreateClient(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	query := `
		INSERT INTO shop.clients (first_name, last_name, email, password_hash, phone, newsletter_opt_in)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, first_name, last_name, email, password_hash, phone, email_verified_at, newsletter_opt_in, created_at, updated_at;
	`
	var created domain.Client
	err := s.q.QueryRowContext(ctx, query,
		client.FirstName, client.LastName, client.Email, client.PasswordHash,
		client.Phone, client.NewsletterOptIn,
	).Scan(
		&created.ID, &created.FirstName, &created.LastName, &created.Email, &created.PasswordHash,
		&created.Phone, &created.EmailVerifiedAt, &created.NewsletterOptIn,
		&created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // Unique violation
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("store: CreateClient failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetClientByID(ctx context.Context, id int64) (*domain.Client, error) {
	query := `
		SELECT id, first_name, last_name, email, password_hash, phone, email_verified_at, newsletter_opt_in, created_at, updated_at
		FROM shop.clients
		WHERE id = $1;
	`
	return s.scanClient(s.q.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) GetClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	query := `
		SELECT id, first_name, last_name, email, password_hash, phone, email_verified_at, newsletter_opt_in, created_at, updated_at
		FROM shop.clients
		WHERE email = $1;
	`
	return s.scanClient(s.q.QueryRowContext(ctx, query, email))
}

func (s *PostgresStore) scanClient(row *sql.Row) (*domain.Client, error) {
	var client domain.Client
	err := row.Scan(
		&client.ID, &client.FirstName, &client.LastName, &client.Email, &client.PasswordHash,
		&client.Phone, &client.EmailVerifiedAt, &client.NewsletterOptIn,
		&client.CreatedAt, &client.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("store: failed to scan client row: %w", err)
	}
	return &client, nil
}

func (s *PostgresStore) MarkClientVerified(ctx context.Context, clientID int64, at time.Time) error {
	query := `
		UPDATE shop.clients
		SET email_verified_at = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2;
	`
	result, err := s.q.ExecContext(ctx, query, at, clientID)
	if err != nil {
		return fmt.Errorf("store: MarkClientVerified failed to execute update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: MarkClientVerified failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrClientNotFound
	}
	return nil
}

// --- AddressStorer Implementation ---

func (s *PostgresStore) CreateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error) {
	query := `
		INSERT INTO shop.addresses (client_id, label, street, number, complement, district, city, state, postal_code, country, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, client_id, label, street, number, complement, district, city, state, postal_code, country, status, created_at, updated_at;
	`
	var created domain.Address
	err := s.q.QueryRowContext(ctx, query,
		address.ClientID, address.Label, address.Street, address.Number, address.Complement,
		address.District, address.City, address.State, address.PostalCode, address.Country,
		address.Status,
	).Scan(
		&created.ID, &created.ClientID, &created.Label, &created.Street, &created.Number,
		&created.Complement, &created.District, &created.City, &created.State,
		&created.PostalCode, &created.Country, &created.Status,
		&created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // FK violation
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("store: CreateAddress failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetAddressByID(ctx context.Context, id int64) (*domain.Address, error) {
	query := `
		SELECT id, client_id, label, street, number, complement, district, city, state, postal_code, country, status, created_at, updated_at
		FROM shop.addresses
		WHERE id = $1;
	`
	var address domain.Address
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&address.ID, &address.ClientID, &address.Label, &address.Street, &address.Number,
		&address.Complement, &address.District, &address.City, &address.State,
		&address.PostalCode, &address.Country, &address.Status,
		&address.CreatedAt, &address.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("store: GetAddressByID failed to scan row: %w", err)
	}
	return &address, nil
}

func (s *PostgresStore) ListAddressesByClient(ctx context.Context, clientID int64) ([]domain.Address, error) {
	query := `
		SELECT id, client_id, label, street, number, complement, district, city, state, postal_code, country, status, created_at, updated_at
		FROM shop.addresses
		WHERE client_id = $1 AND status = $2
		ORDER BY created_at ASC;
	`
	rows, err := s.q.QueryContext(ctx, query, clientID, domain.AddressActive)
	if err != nil {
		return nil, fmt.Errorf("store: ListAddressesByClient failed to query addresses: %w", err)
	}
	defer rows.Close()

	addresses := []domain.Address{}
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(
			&a.ID, &a.ClientID, &a.Label, &a.Street, &a.Number, &a.Complement,
			&a.District, &a.City, &a.State, &a.PostalCode, &a.Country, &a.Status,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: ListAddressesByClient failed to scan address row: %w", err)
		}
		addresses = append(addresses, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListAddressesByClient iteration error: %w", err)
	}
	return addresses, nil
}

func (s *PostgresStore) UpdateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error) {
	query := `
		UPDATE shop.addresses
		SET label = $1, street = $2, number = $3, complement = $4, district = $5,
			city = $6, state = $7, postal_code = $8, country = $9, status = $10, updated_at = CURRENT_TIMESTAMP
		WHERE id = $11
		RETURNING id, client_id, label, street, number, complement, district, city, state, postal_code, country, status, created_at, updated_at;
	`
	var updated domain.Address
	err := s.q.QueryRowContext(ctx, query,
		address.Label, address.Street, address.Number, address.Complement, address.District,
		address.City, address.State, address.PostalCode, address.Country, address.Status,
		address.ID,
	).Scan(
		&updated.ID, &updated.ClientID, &updated.Label, &updated.Street, &updated.Number,
		&updated.Complement, &updated.District, &updated.City, &updated.State,
		&updated.PostalCode, &updated.Country, &updated.Status,
		&updated.CreatedAt, &updated.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("store: UpdateAddress failed to scan row: %w", err)
	}
	return &updated, nil
}

// --- TokenStorer Implementation ---

func (s *PostgresStore) CreateVerificationToken(ctx context.Context, token *domain.EmailVerificationToken) (*domain.EmailVerificationToken, error) {
	query := `
		INSERT INTO shop.email_verification_tokens (client_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, client_id, token_hash, expires_at, created_at;
	`
	var created domain.EmailVerificationToken
	err := s.q.QueryRowContext(ctx, query, token.ClientID, token.TokenHash, token.ExpiresAt).Scan(
		&created.ID, &created.ClientID, &created.TokenHash, &created.ExpiresAt, &created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: CreateVerificationToken failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetVerificationTokenByHash(ctx context.Context, hash string) (*domain.EmailVerificationToken, error) {
	query := `
		SELECT id, client_id, token_hash, expires_at, created_at
		FROM shop.email_verification_tokens
		WHERE token_hash = $1;
	`
	var token domain.EmailVerificationToken
	err := s.q.QueryRowContext(ctx, query, hash).Scan(
		&token.ID, &token.ClientID, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("store: GetVerificationTokenByHash failed to scan row: %w", err)
	}
	return &token, nil
}

func (s *PostgresStore) DeleteVerificationToken(ctx context.Context, id int64) error {
	query := `DELETE FROM shop.email_verification_tokens WHERE id = $1;`
	result, err := s.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteVerificationToken failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteVerificationToken failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (s *PostgresStore) CreateRefreshToken(ctx context.Context, token *domain.RefreshToken) (*domain.RefreshToken, error) {
	query := `
		INSERT INTO shop.refresh_tokens (client_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, client_id, token_hash, expires_at, revoked_at, created_at;
	`
	var created domain.RefreshToken
	err := s.q.QueryRowContext(ctx, query, token.ClientID, token.TokenHash, token.ExpiresAt).Scan(
		&created.ID, &created.ClientID, &created.TokenHash, &created.ExpiresAt,
		&created.RevokedAt, &created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: CreateRefreshToken failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, client_id, token_hash, expires_at, revoked_at, created_at
		FROM shop.refresh_tokens
		WHERE token_hash = $1;
	`
	var token domain.RefreshToken
	err := s.q.QueryRowContext(ctx, query, hash).Scan(
		&token.ID, &token.ClientID, &token.TokenHash, &token.ExpiresAt,
		&token.RevokedAt, &token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("store: GetRefreshTokenByHash failed to scan row: %w", err)
	}
	return &token, nil
}

func (s *PostgresStore) RevokeRefreshToken(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE shop.refresh_tokens
		SET revoked_at = $1
		WHERE id = $2 AND revoked_at IS NULL;
	`
	result, err := s.q.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("store: RevokeRefreshToken failed to execute update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: RevokeRefreshToken failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}
