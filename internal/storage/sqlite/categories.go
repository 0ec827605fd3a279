package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/splitpot/splitpot/internal/models"
	"github.com/splitpot/splitpot/internal/money"
	"github.com/splitpot/splitpot/internal/storage"
)

// CreateCategory persists a category with its default share weights. A
// duplicate (group, name) pair returns storage.ErrConflict.
func (s *SQLiteStore) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	if category.CreatedAt == 0 {
		category.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO categories (id, group_id, name, description, budget, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		category.ID, category.GroupID, category.Name, category.Description, int64(category.Budget), category.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: category %q already exists in group", storage.ErrConflict, category.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}

	for _, split := range category.Splits {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO category_splits (category_id, user_id, share) VALUES (?, ?, ?)",
			category.ID, split.UserID, split.Share,
		)
		if err != nil {
			return fmt.Errorf("failed to insert category split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetCategory retrieves a category by ID, including its share weights.
func (s *SQLiteStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	category := &models.Category{}
	var budget int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, group_id, name, description, budget, created_at FROM categories WHERE id = ?",
		id,
	).Scan(&category.ID, &category.GroupID, &category.Name, &category.Description, &budget, &category.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	category.Budget = money.Cents(budget)

	splits, err := s.categorySplits(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Splits = splits

	return category, nil
}

// ListCategoriesByGroup retrieves all categories of a group.
func (s *SQLiteStore) ListCategoriesByGroup(ctx context.Context, groupID string) ([]*models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, name, description, budget, created_at
		 FROM categories WHERE group_id = ? ORDER BY name`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category := &models.Category{}
		var budget int64
		if err := rows.Scan(&category.ID, &category.GroupID, &category.Name, &category.Description, &budget, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		category.Budget = money.Cents(budget)
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	for _, category := range categories {
		splits, err := s.categorySplits(ctx, category.ID)
		if err != nil {
			return nil, err
		}
		category.Splits = splits
	}

	return categories, nil
}

func (s *SQLiteStore) categorySplits(ctx context.Context, categoryID string) ([]models.CategorySplit, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, share FROM category_splits WHERE category_id = ? ORDER BY user_id",
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get category splits: %w", err)
	}
	defer rows.Close()

	var splits []models.CategorySplit
	for rows.Next() {
		var split models.CategorySplit
		if err := rows.Scan(&split.UserID, &split.Share); err != nil {
			return nil, fmt.Errorf("failed to scan category split: %w", err)
		}
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category splits: %w", err)
	}

	return splits, nil
}
