package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"commerce-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_CreateReview(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	reviewToCreate := &domain.Review{
		ProductID: 10,
		ClientID:  42,
		Rating:    5,
		Comment:   PtrTo("Excelente produto"),
	}

	query := regexp.QuoteMeta(`
		INSERT INTO shop.reviews (product_id, client_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, product_id, client_id, rating, comment, created_at;
	`)

	rows := sqlmock.NewRows([]string{"id", "product_id", "client_id", "rating", "comment", "created_at"}).
		AddRow(int64(1), reviewToCreate.ProductID, reviewToCreate.ClientID, reviewToCreate.Rating, reviewToCreate.Comment, now)

	mock.ExpectQuery(query).
		WithArgs(reviewToCreate.ProductID, reviewToCreate.ClientID, reviewToCreate.Rating, reviewToCreate.Comment).
		WillReturnRows(rows)

	created, err := store.CreateReview(context.Background(), reviewToCreate)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, reviewToCreate.Rating, created.Rating)
	assert.Equal(t, now, created.CreatedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateReview_Duplicate(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	query := regexp.QuoteMeta(`INSERT INTO shop.reviews`)
	mock.ExpectQuery(query).
		WithArgs(int64(10), int64(42), 4, nil).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "reviews_product_id_client_id_key"})

	created, err := store.CreateReview(context.Background(), &domain.Review{ProductID: 10, ClientID: 42, Rating: 4})
	assert.Nil(t, created)
	assert.ErrorIs(t, err, ErrReviewExists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateReview_UnknownProduct(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	query := regexp.QuoteMeta(`INSERT INTO shop.reviews`)
	mock.ExpectQuery(query).
		WithArgs(int64(999), int64(42), 3, nil).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "reviews_product_id_fkey"})

	created, err := store.CreateReview(context.Background(), &domain.Review{ProductID: 999, ClientID: 42, Rating: 3})
	assert.Nil(t, created)
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListReviewsByProduct(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	productID := int64(10)
	now := time.Now().Truncate(time.Millisecond)

	countQuery := regexp.QuoteMeta(`SELECT COUNT(*) FROM shop.reviews WHERE product_id = $1;`)
	mock.ExpectQuery(countQuery).WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	listQuery := regexp.QuoteMeta(`
		SELECT id, product_id, client_id, rating, comment, created_at
		FROM shop.reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;
	`)
	rows := sqlmock.NewRows([]string{"id", "product_id", "client_id", "rating", "comment", "created_at"}).
		AddRow(int64(2), productID, int64(43), 4, PtrTo("Bom custo-benefício"), now).
		AddRow(int64(1), productID, int64(42), 5, nil, now.Add(-time.Hour))
	mock.ExpectQuery(listQuery).WithArgs(productID, 10, 0).WillReturnRows(rows)

	reviews, totalCount, err := store.ListReviewsByProduct(context.Background(), productID, ListParams{Limit: 10, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 2, totalCount)
	require.Len(t, reviews, 2)
	assert.Equal(t, int64(2), reviews[0].ID, "newest review comes first")
	assert.Nil(t, reviews[1].Comment)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListReviewsByProduct_Empty(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	countQuery := regexp.QuoteMeta(`SELECT COUNT(*) FROM shop.reviews WHERE product_id = $1;`)
	mock.ExpectQuery(countQuery).WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	reviews, totalCount, err := store.ListReviewsByProduct(context.Background(), int64(77), ListParams{Limit: 10, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, totalCount)
	assert.Empty(t, reviews)

	assert.NoError(t, mock.ExpectationsWereMet())
}
