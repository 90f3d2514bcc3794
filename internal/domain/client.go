package domain

import (
	"errors"
	"strings"
	"time"
)

// Client represents a customer account. A client starts unverified and is
// verified through an emailed token; only verified clients can log in.
type Client struct {
	ID              int64      `json:"id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Phone           *string    `json:"phone,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	NewsletterOptIn bool       `json:"newsletter_opt_in"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsVerified reports whether the client completed email verification.
func (c *Client) IsVerified() bool {
	return c.EmailVerifiedAt != nil
}

// MarkVerified stamps the verification time.
func (c *Client) MarkVerified(at time.Time) {
	c.EmailVerifiedAt = &at
}

// FullName returns the display name used in emails and token claims.
func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Validate appends every field violation to the notification.
func (c *Client) Validate(n *Notification) {
	if c.FirstName == "" {
		n.Append(errors.New("first name is required"))
	}
	if len(c.FirstName) > 100 {
		n.Append(errors.New("first name must be at most 100 characters"))
	}
	if c.LastName == "" {
		n.Append(errors.New("last name is required"))
	}
	if len(c.LastName) > 100 {
		n.Append(errors.New("last name must be at most 100 characters"))
	}
	if c.Email == "" {
		n.Append(errors.New("email is required"))
	} else if !strings.Contains(c.Email, "@") {
		n.Append(errors.New("email is invalid"))
	}
	if c.PasswordHash == "" {
		n.Append(errors.New("password is required"))
	}
}

// AddressStatus is the lifecycle state of an address. Deleted addresses are
// retained but excluded from listings.
type AddressStatus string

const (
	AddressActive  AddressStatus = "active"
	AddressDeleted AddressStatus = "deleted"
)

// Address belongs to exactly one client.
type Address struct {
	ID         int64         `json:"id"`
	ClientID   int64         `json:"client_id"`
	Label      string        `json:"label"`
	Street     string        `json:"street"`
	Number     string        `json:"number"`
	Complement *string       `json:"complement,omitempty"`
	District   string        `json:"district"`
	City       string        `json:"city"`
	State      string        `json:"state"`
	PostalCode string        `json:"postal_code"`
	Country    string        `json:"country"`
	Status     AddressStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// MarkDeleted flips the address into the deleted lifecycle state.
func (a *Address) MarkDeleted() {
	a.Status = AddressDeleted
}

// IsActive reports whether the address can be used for new orders.
func (a *Address) IsActive() bool {
	return a.Status == AddressActive
}

// Validate appends every field violation to the notification.
func (a *Address) Validate(n *Notification) {
	if a.Street == "" {
		n.Append(errors.New("street is required"))
	}
	if a.Number == "" {
		n.Append(errors.New("number is required"))
	}
	if a.City == "" {
		n.Append(errors.New("city is required"))
	}
	if a.State == "" {
		n.Append(errors.New("state is required"))
	}
	if a.PostalCode == "" {
		n.Append(errors.New("postal code is required"))
	}
	if a.Country == "" {
		n.Append(errors.New("country is required"))
	}
}
