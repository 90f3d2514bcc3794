package cart

import (
	"context"
	"errors"

	"commerce-backend/internal/domain"
	"commerce-backend/internal/store"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	store.CartStorer
	store.ProductStorer
	store.UnitOfWork
}

// Service implements the cart use-cases.
type Service struct {
	repo Repository
}

// NewService wires the cart service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetCart returns the client's cart, creating an empty one on first access.
func (s *Service) GetCart(ctx context.Context, clientID int64) (*domain.Cart, error) {
	cart, err := s.repo.GetCartByClientID(ctx, clientID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, store.ErrCartNotFound) {
		return nil, err
	}
	return s.repo.CreateCart(ctx, clientID)
}

// AddItem snapshots the variant's display name, sku and current price into a
// cart line. Adding the same variant again merges quantities.
func (s *Service) AddItem(ctx context.Context, clientID, variantID int64, quantity int32) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, clientID)
	if err != nil {
		return nil, err
	}

	detail, err := s.repo.GetVariantDetail(ctx, variantID)
	if err != nil {
		if errors.Is(err, store.ErrVariantNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	if !detail.ProductActive {
		return nil, ErrProductUnavailable
	}

	var inCart int32
	for _, line := range cart.Items {
		if line.VariantID == variantID {
			inCart = line.Quantity
		}
	}
	if quantity > 0 && inCart+quantity > detail.Variant.StockQuantity {
		return nil, ErrInsufficientStock
	}

	if err := cart.AddItem(variantID, detail.ProductName, detail.Variant.SKU, quantity, detail.UnitPrice); err != nil {
		return nil, err
	}
	return s.save(ctx, cart)
}

// UpdateItemQuantity sets a line's quantity; zero removes the line.
func (s *Service) UpdateItemQuantity(ctx context.Context, clientID, itemID int64, quantity int32) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := cart.UpdateItemQuantity(itemID, quantity); err != nil {
		return nil, err
	}
	return s.save(ctx, cart)
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, clientID, itemID int64) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := cart.RemoveItem(itemID); err != nil {
		return nil, err
	}
	return s.save(ctx, cart)
}

// Clear removes every line from the cart.
func (s *Service) Clear(ctx context.Context, clientID int64) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, clientID)
	if err != nil {
		return nil, err
	}
	cart.Clear()
	return s.save(ctx, cart)
}

// save rewrites the cart's lines in one transaction and re-reads the cart so
// fresh line ids are returned.
func (s *Service) save(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.ReplaceCartItems(ctx, cart.ID, cart.Items); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.repo.GetCartByClientID(ctx, cart.ClientID)
}
