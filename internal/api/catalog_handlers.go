package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"commerce-backend/internal/domain"
	"commerce-backend/internal/store"
)

// --- Category Handlers ---

// CategoryInput defines the expected input for creating or updating a
// category.
type CategoryInput struct {
	Name             string  `json:"name" validate:"required,max=255"`
	Slug             string  `json:"slug" validate:"required,max=255"`
	Description      *string `json:"description" validate:"omitempty"`
	ParentCategoryID *int64  `json:"parent_category_id" validate:"omitempty,gt=0"`
	SortOrder        int     `json:"sort_order" validate:"gte=0"`
	IsActive         *bool   `json:"is_active"`
}

func (in CategoryInput) toDomain(id int64) *domain.Category {
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	return &domain.Category{
		ID:               id,
		Name:             in.Name,
		Slug:             in.Slug,
		Description:      in.Description,
		ParentCategoryID: in.ParentCategoryID,
		SortOrder:        in.SortOrder,
		IsActive:         isActive,
	}
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	created, err := h.categoryStore.CreateCategory(r.Context(), input.toDomain(0))
	if err != nil {
		log.Printf("ERROR: CreateCategory store operation failed: %v", err)
		if errors.Is(err, store.ErrCategorySlugExists) {
			respondWithError(w, http.StatusConflict, store.ErrCategorySlugExists.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to create category")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := parsePagination(r)

	categories, totalCount, err := h.categoryStore.ListCategories(r.Context(), store.ListParams{Limit: limit, Offset: offset})
	if err != nil {
		log.Printf("ERROR: ListCategories store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve categories")
		return
	}

	respondWithJSON(w, http.StatusOK, newPagedResponse(categories, page, limit, totalCount))
}

func (h *HTTPHandler) GetCategoryByID(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseIDParam(r, "categoryId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	category, err := h.categoryStore.GetCategoryByID(r.Context(), categoryID)
	if err != nil {
		log.Printf("ERROR: GetCategoryByID store operation for ID %d failed: %v", categoryID, err)
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve category")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, category)
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseIDParam(r, "categoryId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	var input CategoryInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	// Business rule: A category cannot be its own parent.
	if input.ParentCategoryID != nil && *input.ParentCategoryID == categoryID {
		respondWithError(w, http.StatusBadRequest, "Category cannot be its own parent")
		return
	}

	updated, err := h.categoryStore.UpdateCategory(r.Context(), input.toDomain(categoryID))
	if err != nil {
		log.Printf("ERROR: UpdateCategory store operation for ID %d failed: %v", categoryID, err)
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
		} else if errors.Is(err, store.ErrCategorySlugExists) {
			respondWithError(w, http.StatusConflict, store.ErrCategorySlugExists.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to update category")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseIDParam(r, "categoryId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	if err := h.categoryStore.DeleteCategory(r.Context(), categoryID); err != nil {
		log.Printf("ERROR: DeleteCategory store operation for ID %d failed: %v", categoryID, err)
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to delete category")
		}
		return
	}

	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Brand Handlers ---

// BrandInput defines the expected input for creating or updating a brand.
type BrandInput struct {
	Name     string  `json:"name" validate:"required,max=255"`
	Slug     string  `json:"slug" validate:"required,max=255"`
	LogoURL  *string `json:"logo_url" validate:"omitempty,url,max=2048"`
	IsActive *bool   `json:"is_active"`
}

func (in BrandInput) toDomain(id int64) *domain.Brand {
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	return &domain.Brand{
		ID:       id,
		Name:     in.Name,
		Slug:     in.Slug,
		LogoURL:  in.LogoURL,
		IsActive: isActive,
	}
}

func (h *HTTPHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	var input BrandInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	created, err := h.brandStore.CreateBrand(r.Context(), input.toDomain(0))
	if err != nil {
		log.Printf("ERROR: CreateBrand store operation failed: %v", err)
		if errors.Is(err, store.ErrBrandSlugExists) {
			respondWithError(w, http.StatusConflict, store.ErrBrandSlugExists.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to create brand")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := parsePagination(r)

	brands, totalCount, err := h.brandStore.ListBrands(r.Context(), store.ListParams{Limit: limit, Offset: offset})
	if err != nil {
		log.Printf("ERROR: ListBrands store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve brands")
		return
	}

	respondWithJSON(w, http.StatusOK, newPagedResponse(brands, page, limit, totalCount))
}

func (h *HTTPHandler) GetBrandByID(w http.ResponseWriter, r *http.Request) {
	brandID, ok := parseIDParam(r, "brandId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid brand ID format")
		return
	}

	brand, err := h.brandStore.GetBrandByID(r.Context(), brandID)
	if err != nil {
		log.Printf("ERROR: GetBrandByID store operation for ID %d failed: %v", brandID, err)
		if errors.Is(err, store.ErrBrandNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrBrandNotFound.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve brand")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, brand)
}

func (h *HTTPHandler) UpdateBrand(w http.ResponseWriter, r *http.Request) {
	brandID, ok := parseIDParam(r, "brandId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid brand ID format")
		return
	}

	var input BrandInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	updated, err := h.brandStore.UpdateBrand(r.Context(), input.toDomain(brandID))
	if err != nil {
		log.Printf("ERROR: UpdateBrand store operation for ID %d failed: %v", brandID, err)
		if errors.Is(err, store.ErrBrandNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrBrandNotFound.Error())
		} else if errors.Is(err, store.ErrBrandSlugExists) {
			respondWithError(w, http.StatusConflict, store.ErrBrandSlugExists.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to update brand")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	brandID, ok := parseIDParam(r, "brandId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid brand ID format")
		return
	}

	if err := h.brandStore.DeleteBrand(r.Context(), brandID); err != nil {
		log.Printf("ERROR: DeleteBrand store operation for ID %d failed: %v", brandID, err)
		if errors.Is(err, store.ErrBrandNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrBrandNotFound.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to delete brand")
		}
		return
	}

	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Product Handlers ---

// ProductVariantInput is one sellable variant of a product.
type ProductVariantInput struct {
	SKU             string  `json:"sku" validate:"required,max=100"`
	StockQuantity   int32   `json:"stock_quantity" validate:"gte=0"`
	AdditionalPrice float64 `json:"additional_price" validate:"gte=0"`
}

// ProductImageInput is one product image.
type ProductImageInput struct {
	URL       string `json:"url" validate:"required,url,max=2048"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
}

// ProductInput defines the expected input for creating or updating a
// product. Variants and images are replaced together with the root.
type ProductInput struct {
	CategoryID  int64                 `json:"category_id" validate:"required,gt=0"`
	BrandID     *int64                `json:"brand_id" validate:"omitempty,gt=0"`
	Name        string                `json:"name" validate:"required,max=255"`
	Slug        string                `json:"slug" validate:"required,max=255"`
	Description *string               `json:"description" validate:"omitempty"`
	BasePrice   float64               `json:"base_price" validate:"required,gte=0"`
	SalePrice   *float64              `json:"sale_price" validate:"omitempty,gte=0"`
	IsActive    *bool                 `json:"is_active"`
	Variants    []ProductVariantInput `json:"variants" validate:"required,min=1,dive"`
	Images      []ProductImageInput   `json:"images" validate:"omitempty,dive"`
}

func (in ProductInput) toDomain(id int64) *domain.Product {
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	p := &domain.Product{
		ID:          id,
		CategoryID:  in.CategoryID,
		BrandID:     in.BrandID,
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		BasePrice:   in.BasePrice,
		SalePrice:   in.SalePrice,
		IsActive:    isActive,
	}
	for _, v := range in.Variants {
		p.Variants = append(p.Variants, domain.ProductVariant{
			SKU:             v.SKU,
			StockQuantity:   v.StockQuantity,
			AdditionalPrice: v.AdditionalPrice,
		})
	}
	for _, img := range in.Images {
		p.Images = append(p.Images, domain.ProductImage{URL: img.URL, SortOrder: img.SortOrder})
	}
	return p
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	product := input.toDomain(0)
	n := domain.NewNotification()
	product.Validate(n)
	if n.HasErrors() {
		respondWithError(w, http.StatusBadRequest, n.Error())
		return
	}

	// Root, variants and images are written in one transaction.
	tx, err := h.uow.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: CreateProduct failed to begin transaction: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}
	defer tx.Rollback()

	created, err := tx.CreateProduct(r.Context(), product)
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		log.Printf("ERROR: CreateProduct store operation failed: %v", err)
		switch {
		case errors.Is(err, store.ErrProductSlugExists):
			respondWithError(w, http.StatusConflict, store.ErrProductSlugExists.Error())
		case errors.Is(err, store.ErrVariantSKUExists):
			respondWithError(w, http.StatusConflict, store.ErrVariantSKUExists.Error())
		case errors.Is(err, store.ErrCategoryNotFound):
			respondWithError(w, http.StatusBadRequest, "Invalid category_id: category does not exist.")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to create product")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	qParams := r.URL.Query()
	page, limit, offset := parsePagination(r)

	params := store.ListProductsParams{Limit: limit, Offset: offset}

	if q := qParams.Get("q"); q != "" {
		params.SearchQuery = &q
	}
	if idStr := qParams.Get("category_id"); idStr != "" {
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil && id > 0 {
			params.CategoryID = &id
		} else {
			respondWithError(w, http.StatusBadRequest, "Invalid category_id format")
			return
		}
	}
	if idStr := qParams.Get("brand_id"); idStr != "" {
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil && id > 0 {
			params.BrandID = &id
		} else {
			respondWithError(w, http.StatusBadRequest, "Invalid brand_id format")
			return
		}
	}
	if priceStr := qParams.Get("min_price"); priceStr != "" {
		if price, err := strconv.ParseFloat(priceStr, 64); err == nil && price >= 0 {
			params.MinPrice = &price
		} else {
			respondWithError(w, http.StatusBadRequest, "Invalid min_price format")
			return
		}
	}
	if priceStr := qParams.Get("max_price"); priceStr != "" {
		if price, err := strconv.ParseFloat(priceStr, 64); err == nil && price >= 0 {
			params.MaxPrice = &price
		} else {
			respondWithError(w, http.StatusBadRequest, "Invalid max_price format")
			return
		}
	}
	if params.MinPrice != nil && params.MaxPrice != nil && *params.MinPrice > *params.MaxPrice {
		respondWithError(w, http.StatusBadRequest, "min_price cannot exceed max_price")
		return
	}
	if activeStr := qParams.Get("is_active"); activeStr != "" {
		if b, err := strconv.ParseBool(activeStr); err == nil {
			params.IsActive = &b
		} else {
			respondWithError(w, http.StatusBadRequest, "Invalid is_active value: must be true or false")
			return
		}
	}

	params.SortBy = qParams.Get("sort_by")
	params.SortOrder = qParams.Get("sort_order")

	allowedSortFields := map[string]bool{"name": true, "base_price": true, "created_at": true, "updated_at": true, "": true}
	if !allowedSortFields[params.SortBy] {
		respondWithError(w, http.StatusBadRequest, "Invalid sort_by field. Allowed: name, base_price, created_at, updated_at")
		return
	}
	if params.SortOrder != "" && strings.ToLower(params.SortOrder) != "asc" && strings.ToLower(params.SortOrder) != "desc" {
		respondWithError(w, http.StatusBadRequest, "Invalid sort_order value. Allowed: asc, desc")
		return
	}

	products, totalCount, err := h.productStore.ListProducts(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: ListProducts store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	respondWithJSON(w, http.StatusOK, newPagedResponse(products, page, limit, totalCount))
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.productStore.GetProductByID(r.Context(), productID)
	if err != nil {
		log.Printf("ERROR: GetProductByID store operation for ID %d failed: %v", productID, err)
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve product")
		}
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var input ProductInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	product := input.toDomain(productID)
	n := domain.NewNotification()
	product.Validate(n)
	if n.HasErrors() {
		respondWithError(w, http.StatusBadRequest, n.Error())
		return
	}

	tx, err := h.uow.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: UpdateProduct failed to begin transaction: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}
	defer tx.Rollback()

	updated, err := tx.UpdateProduct(r.Context(), product)
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		log.Printf("ERROR: UpdateProduct store operation for ID %d failed: %v", productID, err)
		switch {
		case errors.Is(err, store.ErrProductNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		case errors.Is(err, store.ErrProductSlugExists):
			respondWithError(w, http.StatusConflict, store.ErrProductSlugExists.Error())
		case errors.Is(err, store.ErrVariantSKUExists):
			respondWithError(w, http.StatusConflict, store.ErrVariantSKUExists.Error())
		case errors.Is(err, store.ErrCategoryNotFound):
			respondWithError(w, http.StatusBadRequest, "Invalid category_id: category does not exist.")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to update product")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	if err := h.productStore.DeleteProduct(r.Context(), productID); err != nil {
		log.Printf("ERROR: DeleteProduct store operation for ID %d failed: %v", productID, err)
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to delete product")
		}
		return
	}

	respondWithJSON(w, http.StatusNoContent, nil)
}
