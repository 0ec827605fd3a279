package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/splitpot/splitpot/internal/models"
	"github.com/splitpot/splitpot/internal/money"
	"github.com/splitpot/splitpot/internal/storage"
)

// CategoryInput is the caller-supplied description of a category.
type CategoryInput struct {
	Name        string
	Description string
	Budget      money.Cents
	Splits      []models.CategorySplit
}

// CategoryService manages per-group expense categories and their default
// share weights.
type CategoryService struct {
	store storage.Store
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(store storage.Store) *CategoryService {
	return &CategoryService{store: store}
}

// CreateCategory creates a category in the acting user's group. Names are
// unique per group; share weights, when present, must reference members.
func (s *CategoryService) CreateCategory(ctx context.Context, actorID, groupID string, in CategoryInput) (*models.Category, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err)
	}
	if !group.HasMember(actorID) {
		return nil, fmt.Errorf("%w: not a member of group %s", ErrPermission, groupID)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: category name required", ErrValidation)
	}
	if in.Budget < 0 {
		return nil, fmt.Errorf("%w: budget cannot be negative", ErrValidation)
	}
	for _, split := range in.Splits {
		if split.Share <= 0 {
			return nil, fmt.Errorf("%w: non-positive share for %s", ErrValidation, split.UserID)
		}
		if !group.HasMember(split.UserID) {
			return nil, fmt.Errorf("%w: split member %s is not in the group", ErrValidation, split.UserID)
		}
	}

	category := &models.Category{
		GroupID:     groupID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Budget:      in.Budget,
		Splits:      in.Splits,
	}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, storeError(err)
	}

	slog.Info("category created", "category_id", category.ID, "group_id", groupID, "name", category.Name)
	return category, nil
}

// ListCategories returns the group's categories for a member.
func (s *CategoryService) ListCategories(ctx context.Context, actorID, groupID string) ([]*models.Category, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err)
	}
	if !group.HasMember(actorID) {
		return nil, fmt.Errorf("%w: not a member of group %s", ErrPermission, groupID)
	}
	categories, err := s.store.ListCategoriesByGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err)
	}
	return categories, nil
}
