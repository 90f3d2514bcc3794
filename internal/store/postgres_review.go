package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"commerce-backend/internal/domain"
)

// --- ReviewStorer Implementation ---

func (s *PostgresStore) CreateReview(ctx context.Context, review *domain.Review) (*domain.Review, error) {
	query := `
		INSERT INTO shop.reviews (product_id, client_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, product_id, client_id, rating, comment, created_at;
	`
	var created domain.Review
	err := s.q.QueryRowContext(ctx, query,
		review.ProductID, review.ClientID, review.Rating, review.Comment,
	).Scan(
		&created.ID, &created.ProductID, &created.ClientID, &created.Rating,
		&created.Comment, &created.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			if pqErr.Code == "23505" { // One review per client/product pair
				return nil, ErrReviewExists
			}
			if pqErr.Code == "23503" {
				return nil, ErrProductNotFound
			}
		}
		return nil, fmt.Errorf("store: CreateReview failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) ListReviewsByProduct(ctx context.Context, productID int64, params ListParams) ([]domain.Review, int, error) {
	countQuery := `SELECT COUNT(*) FROM shop.reviews WHERE product_id = $1;`
	var totalCount int
	if err := s.q.QueryRowContext(ctx, countQuery, productID).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListReviewsByProduct failed to count reviews: %w", err)
	}
	if totalCount == 0 {
		return []domain.Review{}, 0, nil
	}

	query := `
		SELECT id, product_id, client_id, rating, comment, created_at
		FROM shop.reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := s.q.QueryContext(ctx, query, productID, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListReviewsByProduct failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0, params.Limit)
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.ClientID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("store: ListReviewsByProduct failed to scan review row: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListReviewsByProduct iteration error: %w", err)
	}
	return reviews, totalCount, nil
}
