package models

import "github.com/splitpot/splitpot/internal/money"

// Expense represents a shared cost paid by one member of a group.
//
// Invariant: the split amounts sum to Amount exactly, with no rounding
// residue. The expense exclusively owns its splits; replacing them replaces
// the whole list.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// CategoryID optionally references a group category. Empty when untagged.
	CategoryID string

	// Description is the human-readable label (e.g., "Groceries").
	Description string

	// Amount is the full expense amount in cents. Always > 0.
	Amount money.Cents

	// PaidByID is the member who paid the full amount.
	PaidByID string

	// Splits is the ordered per-member partition of Amount.
	Splits []Split

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// Split is one member's portion of an expense. Amounts are >= 0.
type Split struct {
	UserID string
	Amount money.Cents
}

// SplitTotal returns the sum of the expense's split amounts.
func (e *Expense) SplitTotal() money.Cents {
	var total money.Cents
	for _, s := range e.Splits {
		total += s.Amount
	}
	return total
}
