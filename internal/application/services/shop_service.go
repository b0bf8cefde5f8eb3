package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fieldsales/core/internal/domain/entities"
	"github.com/fieldsales/core/internal/infrastructure/logger"
	"github.com/fieldsales/core/internal/ports"
)

// ShopService handles shop-related operations
type ShopService struct {
	shopRepo ports.ShopRepository
	taskRepo ports.TaskRepository
	logger   *logger.Logger
}

// NewShopService creates a new shop service
func NewShopService(shopRepo ports.ShopRepository, taskRepo ports.TaskRepository, logger *logger.Logger) *ShopService {
	return &ShopService{
		shopRepo: shopRepo,
		taskRepo: taskRepo,
		logger:   logger,
	}
}

// CreateShop creates a new shop record. When the request carries a non-blank
// initial note it becomes the shop's first visit update, so a freshly created
// shop already has its history started.
func (s *ShopService) CreateShop(ctx context.Context, req ports.CreateShopRequest) (*entities.Shop, error) {
	shop := &entities.Shop{
		Name:        strings.TrimSpace(req.Name),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Location:    strings.TrimSpace(req.Location),
		Status:      req.Status,
	}
	if req.OwnerName != nil {
		if owner := strings.TrimSpace(*req.OwnerName); owner != "" {
			shop.OwnerName = &owner
		}
	}

	if err := shop.Validate(); err != nil {
		return nil, err
	}

	if note := strings.TrimSpace(req.InitialNote); note != "" {
		shop.Updates = []entities.Update{entities.NewUpdate(note)}
	}

	if err := s.shopRepo.Create(ctx, shop); err != nil {
		return nil, fmt.Errorf("failed to create shop: %w", err)
	}

	s.logger.Infow("Shop created", "shop_id", shop.ID, "name", shop.Name)

	return shop, nil
}

// GetShop retrieves a shop by ID
func (s *ShopService) GetShop(ctx context.Context, id string) (*entities.Shop, error) {
	shop, err := s.shopRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return shop, nil
}

// UpdateShop merges the provided fields into an existing shop. Fields absent
// from the request keep their stored value.
func (s *ShopService) UpdateShop(ctx context.Context, id string, req ports.UpdateShopRequest) (*entities.Shop, error) {
	patch := ports.ShopPatch{
		Status: req.Status,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, entities.ErrEmptyShopName
		}
		patch.Name = &name
	}
	if req.OwnerName != nil {
		var owner *string
		if trimmed := strings.TrimSpace(*req.OwnerName); trimmed != "" {
			owner = &trimmed
		}
		patch.OwnerName = &owner
	}
	if req.PhoneNumber != nil {
		phone := strings.TrimSpace(*req.PhoneNumber)
		patch.PhoneNumber = &phone
	}
	if req.Location != nil {
		location := strings.TrimSpace(*req.Location)
		patch.Location = &location
	}
	if req.Status != nil && !req.Status.IsValid() {
		return nil, entities.ErrInvalidStatus
	}

	if err := s.shopRepo.Update(ctx, id, patch); err != nil {
		return nil, err
	}

	shop, err := s.shopRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload shop: %w", err)
	}

	s.logger.Infow("Shop updated", "shop_id", id)

	return shop, nil
}

// DeleteShop removes a shop and, by cascade, every task referencing it.
func (s *ShopService) DeleteShop(ctx context.Context, id string) error {
	if err := s.shopRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Infow("Shop deleted", "shop_id", id)

	return nil
}

// AddUpdate appends a visit note to a shop's history. Blank notes are
// rejected before anything reaches storage.
func (s *ShopService) AddUpdate(ctx context.Context, shopID, note string) (*entities.Shop, error) {
	trimmed := strings.TrimSpace(note)
	if trimmed == "" {
		return nil, entities.ErrEmptyNote
	}

	update := entities.NewUpdate(trimmed)
	if err := s.shopRepo.AppendUpdate(ctx, shopID, update); err != nil {
		return nil, err
	}

	shop, err := s.shopRepo.GetByID(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload shop: %w", err)
	}

	s.logger.Infow("Visit note added", "shop_id", shopID, "update_id", update.ID)

	return shop, nil
}

// ListShops returns the shops matching the filter, sorted by name.
func (s *ShopService) ListShops(ctx context.Context, filter ports.ShopFilter) ([]*entities.Shop, error) {
	shops, err := s.shopRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}

	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return FilterShops(shops, tasks, filter, entities.Today()), nil
}

// Locations returns the distinct non-empty locations across all shops,
// sorted, for filter suggestions.
func (s *ShopService) Locations(ctx context.Context) ([]string, error) {
	shops, err := s.shopRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, len(shops))
	for _, shop := range shops {
		if shop.Location == "" {
			continue
		}
		if _, ok := seen[shop.Location]; ok {
			continue
		}
		seen[shop.Location] = struct{}{}
		out = append(out, shop.Location)
	}
	sort.Strings(out)

	return out, nil
}
