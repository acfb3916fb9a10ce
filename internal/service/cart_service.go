package service

import (
	"context"
	"fmt"
	"time"

	"leaf-kart/internal/cart"
	"leaf-kart/internal/model"
	"leaf-kart/internal/repository"

	"github.com/rs/zerolog"
)

// cartService implements CartService on top of persisted cart items.
type cartService struct {
	cartRepo repository.CartRepository
	products ProductService
	logger   zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(cartRepo repository.CartRepository, products ProductService, logger zerolog.Logger) CartService {
	return &cartService{
		cartRepo: cartRepo,
		products: products,
		logger:   logger.With().Str("service", "cart").Logger(),
	}
}

func (s *cartService) Get(ctx context.Context, customerID string) (*model.CartView, error) {
	c, err := loadCart(ctx, s.cartRepo, s.products, customerID)
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to load cart")
		return nil, err
	}
	view := c.View()
	return &view, nil
}

func (s *cartService) SetItem(ctx context.Context, customerID, productID string, quantity int) (*model.CartView, error) {
	if productID == "" {
		return nil, model.NewValidationError("product ID is required")
	}

	if quantity <= 0 {
		return s.RemoveItem(ctx, customerID, productID)
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	item := &model.CartItem{
		CustomerID: customerID,
		ProductID:  productID,
		Quantity:   quantity,
		UpdatedAt:  time.Now(),
	}
	if err := s.cartRepo.UpsertItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}

	s.logger.Debug().
		Str("customer_id", customerID).
		Str("product_id", productID).
		Int("quantity", quantity).
		Msg("cart item set")

	return s.Get(ctx, customerID)
}

func (s *cartService) RemoveItem(ctx context.Context, customerID, productID string) (*model.CartView, error) {
	if err := s.cartRepo.RemoveItem(ctx, customerID, productID); err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}
	return s.Get(ctx, customerID)
}

func (s *cartService) Clear(ctx context.Context, customerID string) error {
	if err := s.cartRepo.Clear(ctx, customerID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// loadCart rebuilds a customer's cart at current prices. Lines whose product
// no longer exists are dropped.
func loadCart(ctx context.Context, cartRepo repository.CartRepository, products ProductService, customerID string) (*cart.Cart, error) {
	items, err := cartRepo.GetItems(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return products.PriceCart(ctx, items)
}
