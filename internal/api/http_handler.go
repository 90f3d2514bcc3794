package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"commerce-backend/internal/auth"
	"commerce-backend/internal/service/account"
	"commerce-backend/internal/service/cart"
	"commerce-backend/internal/service/checkout"
	"commerce-backend/internal/store"
)

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	categoryStore store.CategoryStorer
	brandStore    store.BrandStorer
	productStore  store.ProductStorer
	reviewStore   store.ReviewStorer
	uow           store.UnitOfWork
	accounts      *account.Service
	carts         *cart.Service
	checkouts     *checkout.Service
	tokens        *auth.Manager
	requireAuth   func(http.Handler) http.Handler
	validate      *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(
	cs store.CategoryStorer,
	bs store.BrandStorer,
	ps store.ProductStorer,
	rs store.ReviewStorer,
	uow store.UnitOfWork,
	accounts *account.Service,
	carts *cart.Service,
	checkouts *checkout.Service,
	tokens *auth.Manager,
	revocations *auth.RevocationStore,
) *HTTPHandler {
	return &HTTPHandler{
		categoryStore: cs,
		brandStore:    bs,
		productStore:  ps,
		reviewStore:   rs,
		uow:           uow,
		accounts:      accounts,
		carts:         carts,
		checkouts:     checkouts,
		tokens:        tokens,
		requireAuth:   auth.Middleware(tokens, revocations),
		validate:      validator.New(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil { // Avoid writing empty body for 204 No Content
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("ERROR: Failed to encode JSON response: %v", err)
			http.Error(w, `{"error": "Internal server error during JSON encoding"}`, http.StatusInternalServerError)
		}
	}
}

// PaginationInfo mirrors the pagination block of every list response.
type PaginationInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

type pagedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationInfo `json:"pagination"`
}

func newPagedResponse(data interface{}, page, limit, totalCount int) pagedResponse {
	totalPages := 0
	if totalCount > 0 {
		totalPages = (totalCount + limit - 1) / limit
	}
	return pagedResponse{
		Data: data,
		Pagination: PaginationInfo{
			Page:       page,
			Limit:      limit,
			TotalItems: totalCount,
			TotalPages: totalPages,
		},
	}
}

// parsePagination reads page/limit query parameters with the usual clamps.
func parsePagination(r *http.Request) (page, limit, offset int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10 // Default limit
	}
	if limit > 100 { // Max limit
		limit = 100
	}
	page, err = strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}
	return page, limit, (page - 1) * limit
}

// parseIDParam reads a positive int64 URL parameter.
func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// clientIDFromRequest returns the authenticated client id. The auth
// middleware guarantees it is present on guarded routes.
func clientIDFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := auth.ClientIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "invalid or missing credentials")
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, input interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Post("/", h.CreateCategory)
		r.Get("/", h.ListCategories)
		r.Route("/{categoryId}", func(r chi.Router) {
			r.Get("/", h.GetCategoryByID)
			r.Put("/", h.UpdateCategory)
			r.Delete("/", h.DeleteCategory)
		})
	})

	r.Route("/api/v1/brands", func(r chi.Router) {
		r.Post("/", h.CreateBrand)
		r.Get("/", h.ListBrands)
		r.Route("/{brandId}", func(r chi.Router) {
			r.Get("/", h.GetBrandByID)
			r.Put("/", h.UpdateBrand)
			r.Delete("/", h.DeleteBrand)
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)
		r.Route("/{productId}", func(r chi.Router) {
			r.Get("/", h.GetProductByID)
			r.Put("/", h.UpdateProduct)
			r.Delete("/", h.DeleteProduct)
			r.Get("/reviews", h.ListProductReviews)
			r.With(h.requireAuth).Post("/reviews", h.CreateProductReview)
		})
	})

	r.Route("/api/v1/clients", func(r chi.Router) {
		r.Post("/", h.RegisterClient)
		r.Get("/verify-email", h.VerifyEmail)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.RefreshToken)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/me", h.GetProfile)
			r.Route("/me/addresses", func(r chi.Router) {
				r.Post("/", h.CreateAddress)
				r.Get("/", h.ListAddresses)
				r.Put("/{addressId}", h.UpdateAddress)
				r.Delete("/{addressId}", h.DeleteAddress)
			})
		})
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/", h.GetCart)
		r.Post("/items", h.AddCartItem)
		r.Put("/items/{itemId}", h.UpdateCartItem)
		r.Delete("/items/{itemId}", h.RemoveCartItem)
		r.Delete("/", h.ClearCart)
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/", h.PlaceOrder)
		r.Get("/", h.ListOrders)
		r.Route("/{orderId}", func(r chi.Router) {
			r.Get("/", h.GetOrder)
			r.Post("/coupon", h.ApplyCoupon)
			r.Post("/payments", h.PayOrder)
			r.Post("/cancel", h.CancelOrder)
		})
	})

	r.Post("/api/v1/coupons", h.CreateCoupon)
}
