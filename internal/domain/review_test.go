package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReview_RatingBounds(t *testing.T) {
	for _, rating := range []int{1, 5} {
		r, err := NewReview(1, 2, rating, nil)
		require.NoError(t, err, "rating %d must be accepted", rating)
		assert.Equal(t, rating, r.Rating)
	}

	for _, rating := range []int{0, 6, -1, 100} {
		_, err := NewReview(1, 2, rating, nil)
		require.Error(t, err, "rating %d must be rejected", rating)
		assert.ErrorIs(t, err, ErrRatingOutOfRange)
		assert.Equal(t, "A avaliação deve ser entre 1 e 5 estrelas.", err.Error())
	}
}

func TestNewReview_KeepsComment(t *testing.T) {
	comment := "Muito bom!"
	r, err := NewReview(1, 2, 4, &comment)
	require.NoError(t, err)
	require.NotNil(t, r.Comment)
	assert.Equal(t, comment, *r.Comment)
}
