package api

import (
	"errors"
	"log"
	"net/http"

	"commerce-backend/internal/domain"
	"commerce-backend/internal/store"
)

// --- Review Handlers ---

// ReviewInput defines the expected input for creating a review. The rating
// bound is enforced by the domain so the exact message reaches the client.
type ReviewInput struct {
	Rating  int     `json:"rating" validate:"required"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

func (h *HTTPHandler) CreateProductReview(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}
	productID, ok := parseIDParam(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	var input ReviewInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	review, err := domain.NewReview(productID, clientID, input.Rating, input.Comment)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.reviewStore.CreateReview(r.Context(), review)
	if err != nil {
		log.Printf("ERROR: CreateReview store operation failed: %v", err)
		switch {
		case errors.Is(err, store.ErrReviewExists):
			respondWithError(w, http.StatusConflict, store.ErrReviewExists.Error())
		case errors.Is(err, store.ErrProductNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to create review")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	page, limit, offset := parsePagination(r)

	reviews, totalCount, err := h.reviewStore.ListReviewsByProduct(r.Context(), productID, store.ListParams{Limit: limit, Offset: offset})
	if err != nil {
		log.Printf("ERROR: ListReviewsByProduct store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}

	respondWithJSON(w, http.StatusOK, newPagedResponse(reviews, page, limit, totalCount))
}
