package service

import (
	"context"
	"fmt"
	"strings"

	"leaf-kart/internal/cart"
	"leaf-kart/internal/model"
	"leaf-kart/internal/repository"

	"github.com/rs/zerolog"
)

// productService implements ProductService over the catalogue table. It is
// the only place current prices are read, so carts and order snapshots agree.
type productService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

func (s *productService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	limit, offset = clampPage(limit, offset)

	products, err := s.productRepo.GetAll(ctx, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to list catalogue")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	return products, nil
}

func (s *productService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		s.logger.Debug().Str("product_id", id).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

func (s *productService) PriceItems(ctx context.Context, items []model.OrderItemRequest) (*cart.Cart, error) {
	if len(items) == 0 {
		return nil, model.ErrEmptyCart
	}

	ids := make([]string, 0, len(items))
	for i, item := range items {
		if item.ProductID == "" {
			return nil, model.NewValidationError(fmt.Sprintf("item %d: product ID is required", i))
		}
		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return nil, model.ErrInvalidQuantity
		}
		ids = append(ids, item.ProductID)
	}

	if err := s.productRepo.ValidateProductsExist(ctx, ids); err != nil {
		return nil, err
	}

	byID, err := s.catalogue(ctx, ids)
	if err != nil {
		return nil, err
	}

	c := cart.New()
	for _, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			// Retired between the existence check and the read.
			return nil, model.ErrProductNotFound
		}
		if err := c.Add(p, item.Quantity); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (s *productService) PriceCart(ctx context.Context, items []model.CartItem) (*cart.Cart, error) {
	c := cart.New()
	if len(items) == 0 {
		return c, nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	byID, err := s.catalogue(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			s.logger.Debug().
				Str("customer_id", item.CustomerID).
				Str("product_id", item.ProductID).
				Msg("dropping retired product from cart")
			continue
		}
		c.Update(p, item.Quantity)
	}

	return c, nil
}

// catalogue reads the current rows for ids, keyed by product id.
func (s *productService) catalogue(ctx context.Context, ids []string) (map[string]model.Product, error) {
	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to get products by IDs")
		return nil, fmt.Errorf("failed to price items: %w", err)
	}

	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}
