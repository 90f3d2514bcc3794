package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"commerce-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_CreateClient_EmailExists(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	client := &domain.Client{
		FirstName:    "Maria",
		LastName:     "Silva",
		Email:        "maria@example.com",
		PasswordHash: "$2a$10$hash",
	}

	query := regexp.QuoteMeta(`
		INSERT INTO shop.clients (first_name, last_name, email, password_hash, phone, newsletter_opt_in)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, first_name, last_name, email, password_hash, phone, email_verified_at, newsletter_opt_in, created_at, updated_at;
	`)

	pqErr := &pq.Error{Code: "23505", Constraint: "clients_email_key"}
	mock.ExpectQuery(query).
		WithArgs(client.FirstName, client.LastName, client.Email, client.PasswordHash, client.Phone, client.NewsletterOptIn).
		WillReturnError(pqErr)

	created, err := store.CreateClient(context.Background(), client)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmailExists), "Error should be ErrEmailExists")
	assert.Nil(t, created)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetClientByEmail(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	verifiedAt := now.Add(-time.Hour)

	query := regexp.QuoteMeta(`
		SELECT id, first_name, last_name, email, password_hash, phone, email_verified_at, newsletter_opt_in, created_at, updated_at
		FROM shop.clients
		WHERE email = $1;
	`)

	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "password_hash", "phone", "email_verified_at", "newsletter_opt_in", "created_at", "updated_at"}).
		AddRow(int64(4), "Maria", "Silva", "maria@example.com", "$2a$10$hash", nil, verifiedAt, true, now, now)

	mock.ExpectQuery(query).WithArgs("maria@example.com").WillReturnRows(rows)

	client, err := store.GetClientByEmail(context.Background(), "maria@example.com")

	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, int64(4), client.ID)
	assert.True(t, client.IsVerified())
	assert.Equal(t, "Maria Silva", client.FullName())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetClientByEmail_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	query := regexp.QuoteMeta(`
		SELECT id, first_name, last_name, email, password_hash, phone, email_verified_at, newsletter_opt_in, created_at, updated_at
		FROM shop.clients
		WHERE email = $1;
	`)

	mock.ExpectQuery(query).WithArgs("nobody@example.com").WillReturnError(sql.ErrNoRows)

	client, err := store.GetClientByEmail(context.Background(), "nobody@example.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClientNotFound))
	assert.Nil(t, client)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAddressesByClient_SkipsDeleted(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)

	query := regexp.QuoteMeta(`
		SELECT id, client_id, label, street, number, complement, district, city, state, postal_code, country, status, created_at, updated_at
		FROM shop.addresses
		WHERE client_id = $1 AND status = $2
		ORDER BY created_at ASC;
	`)

	rows := sqlmock.NewRows([]string{"id", "client_id", "label", "street", "number", "complement", "district", "city", "state", "postal_code", "country", "status", "created_at", "updated_at"}).
		AddRow(int64(1), int64(4), "home", "Rua A", "100", nil, "Centro", "São Paulo", "SP", "01000-000", "BR", "active", now, now)

	mock.ExpectQuery(query).WithArgs(int64(4), domain.AddressActive).WillReturnRows(rows)

	addresses, err := store.ListAddressesByClient(context.Background(), 4)

	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.True(t, addresses[0].IsActive())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RevokeRefreshToken_AlreadyRevoked(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	at := time.Now()
	query := regexp.QuoteMeta(`
		UPDATE shop.refresh_tokens
		SET revoked_at = $1
		WHERE id = $2 AND revoked_at IS NULL;
	`)

	mock.ExpectExec(query).WithArgs(at, int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.RevokeRefreshToken(context.Background(), 9, at)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTokenNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}
