package domain

import (
	"errors"
	"time"
)

// Brand represents a product brand.
type Brand struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	LogoURL   *string   `json:"logo_url,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate appends every field violation to the notification.
func (b *Brand) Validate(n *Notification) {
	if b.Name == "" {
		n.Append(errors.New("brand name is required"))
	}
	if len(b.Name) > 255 {
		n.Append(errors.New("brand name must be at most 255 characters"))
	}
	if b.Slug == "" {
		n.Append(errors.New("brand slug is required"))
	}
}
