package domain

import (
	"errors"
	"time"
)

// Product represents a catalog product. A product belongs to one category,
// optionally to a brand, and owns its variants and images; children are only
// mutated through the product and persisted with it.
type Product struct {
	ID          int64            `json:"id"`
	CategoryID  int64            `json:"category_id"`
	BrandID     *int64           `json:"brand_id,omitempty"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description *string          `json:"description,omitempty"`
	BasePrice   float64          `json:"base_price"` // For currency, a dedicated decimal type would be preferable in production
	SalePrice   *float64         `json:"sale_price,omitempty"`
	IsActive    bool             `json:"is_active"`
	Variants    []ProductVariant `json:"variants"`
	Images      []ProductImage   `json:"images"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ProductVariant is a sellable variation of a product identified by SKU.
type ProductVariant struct {
	ID              int64   `json:"id"`
	ProductID       int64   `json:"product_id"`
	SKU             string  `json:"sku"`
	StockQuantity   int32   `json:"stock_quantity"`
	AdditionalPrice float64 `json:"additional_price"`
}

// ProductImage is an image attached to a product.
type ProductImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	URL       string `json:"url"`
	SortOrder int    `json:"sort_order"`
}

// CurrentPrice returns the sale price when one is set, the base price
// otherwise.
func (p *Product) CurrentPrice() float64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.BasePrice
}

// VariantByID returns the owned variant with the given id, or nil.
func (p *Product) VariantByID(id int64) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

// Validate appends every field violation to the notification, including
// violations on owned variants and images.
func (p *Product) Validate(n *Notification) {
	if p.Name == "" {
		n.Append(errors.New("product name is required"))
	}
	if len(p.Name) > 255 {
		n.Append(errors.New("product name must be at most 255 characters"))
	}
	if p.Slug == "" {
		n.Append(errors.New("product slug is required"))
	}
	if p.CategoryID <= 0 {
		n.Append(errors.New("product category is required"))
	}
	if p.BasePrice < 0 {
		n.Append(errors.New("product base price cannot be negative"))
	}
	if p.SalePrice != nil && *p.SalePrice < 0 {
		n.Append(errors.New("product sale price cannot be negative"))
	}
	if p.SalePrice != nil && *p.SalePrice > p.BasePrice {
		n.Append(errors.New("product sale price cannot exceed base price"))
	}
	seen := make(map[string]bool, len(p.Variants))
	for _, v := range p.Variants {
		if v.SKU == "" {
			n.Append(errors.New("variant SKU is required"))
		}
		if len(v.SKU) > 100 {
			n.Append(errors.New("variant SKU must be at most 100 characters"))
		}
		if seen[v.SKU] {
			n.Append(errors.New("variant SKUs must be unique within a product"))
		}
		seen[v.SKU] = true
		if v.StockQuantity < 0 {
			n.Append(errors.New("variant stock cannot be negative"))
		}
	}
	for _, img := range p.Images {
		if img.URL == "" {
			n.Append(errors.New("image URL is required"))
		}
	}
}
