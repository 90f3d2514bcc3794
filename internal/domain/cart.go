package domain

import "time"

// CartItem is one line in a cart. UnitPrice is a snapshot of the variant
// price at the moment the line was added.
type CartItem struct {
	ID          int64   `json:"id"`
	CartID      int64   `json:"cart_id"`
	VariantID   int64   `json:"variant_id"`
	ProductName string  `json:"product_name"`
	SKU         string  `json:"sku"`
	Quantity    int32   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// LineTotal returns the price of the line.
func (i CartItem) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// Cart is a client's shopping cart. Items are mutated only through the cart.
type Cart struct {
	ID        int64      `json:"id"`
	ClientID  int64      `json:"client_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// AddItem merges the quantity into an existing line for the same variant or
// appends a new line. Quantity must be positive.
func (c *Cart) AddItem(variantID int64, productName, sku string, quantity int32, unitPrice float64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			c.Items[i].Quantity += quantity
			c.touch()
			return nil
		}
	}
	c.Items = append(c.Items, CartItem{
		CartID:      c.ID,
		VariantID:   variantID,
		ProductName: productName,
		SKU:         sku,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	})
	c.touch()
	return nil
}

// UpdateItemQuantity sets a line's quantity. Zero removes the line; a
// negative quantity is rejected.
func (c *Cart) UpdateItemQuantity(itemID int64, quantity int32) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			if quantity == 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			} else {
				c.Items[i].Quantity = quantity
			}
			c.touch()
			return nil
		}
	}
	return ErrCartItemNotFound
}

// RemoveItem deletes a line from the cart.
func (c *Cart) RemoveItem(itemID int64) error {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.touch()
			return nil
		}
	}
	return ErrCartItemNotFound
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.Items = nil
	c.touch()
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// TotalPrice is the sum of all line totals.
func (c *Cart) TotalPrice() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.LineTotal()
	}
	return total
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
