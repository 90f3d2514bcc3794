package domain

import (
	"errors"
	"time"
)

// Category represents a product category. Categories form a tree through the
// nullable parent id.
type Category struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	Description      *string   `json:"description,omitempty"`
	ParentCategoryID *int64    `json:"parent_category_id,omitempty"`
	SortOrder        int       `json:"sort_order"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate appends every field violation to the notification.
func (c *Category) Validate(n *Notification) {
	if c.Name == "" {
		n.Append(errors.New("category name is required"))
	}
	if len(c.Name) > 255 {
		n.Append(errors.New("category name must be at most 255 characters"))
	}
	if c.Slug == "" {
		n.Append(errors.New("category slug is required"))
	}
	if len(c.Slug) > 255 {
		n.Append(errors.New("category slug must be at most 255 characters"))
	}
	if c.ParentCategoryID != nil && *c.ParentCategoryID == c.ID && c.ID != 0 {
		n.Append(errors.New("category cannot be its own parent"))
	}
}
