package domain

import "time"

// Review is a client's rating of a product, one per client/product pair.
type Review struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	ClientID  int64     `json:"client_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewReview builds a review, rejecting ratings outside 1..5.
func NewReview(productID, clientID int64, rating int, comment *string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrRatingOutOfRange
	}
	return &Review{
		ProductID: productID,
		ClientID:  clientID,
		Rating:    rating,
		Comment:   comment,
	}, nil
}
