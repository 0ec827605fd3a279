package models

import "github.com/splitpot/splitpot/internal/money"

// Category groups expenses under a per-group name with an optional budget.
// Its share weights act as the default allocation scheme for expenses tagged
// with the category. Names are unique per group.
type Category struct {
	// ID is the unique identifier for the category (UUID format).
	ID string

	// GroupID is the group this category belongs to.
	GroupID string

	// Name is the category name, unique within its group.
	Name string

	// Description is an optional free-text note.
	Description string

	// Budget is an optional spending budget in cents; 0 means unset.
	Budget money.Cents

	// Splits are the default share weights for expenses in this category.
	Splits []CategorySplit

	// CreatedAt is the Unix timestamp when the category was created.
	CreatedAt int64
}

// CategorySplit is a positive integer share weight for one member.
type CategorySplit struct {
	UserID string
	Share  int64
}
