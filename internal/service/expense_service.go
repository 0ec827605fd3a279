package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/splitpot/splitpot/internal/calculator"
	"github.com/splitpot/splitpot/internal/models"
	"github.com/splitpot/splitpot/internal/money"
	"github.com/splitpot/splitpot/internal/notify"
	"github.com/splitpot/splitpot/internal/storage"
)

// SplitMode selects how an expense's amount is partitioned across members.
type SplitMode string

const (
	// SplitEqual divides the amount evenly across all current members.
	SplitEqual SplitMode = "equal"

	// SplitShares divides proportionally to caller-supplied share weights.
	SplitShares SplitMode = "shares"

	// SplitExact takes explicit per-member amounts that must sum to the
	// total to the cent.
	SplitExact SplitMode = "exact"

	// SplitCategory uses the default share weights of the expense's
	// category.
	SplitCategory SplitMode = "category"
)

// ExpenseInput is the caller-supplied description of an expense. Shares is
// read for SplitShares and SplitExact; for SplitExact the share values are
// exact amounts in cents rather than weights.
type ExpenseInput struct {
	Description string
	Amount      money.Cents
	PaidByID    string
	CategoryID  string
	Mode        SplitMode
	Shares      []calculator.Party
}

// ExpenseService records, edits and deletes expenses. All validation happens
// before any write, so a failed call never leaves a partial expense behind.
type ExpenseService struct {
	store storage.Store
	hub   *notify.Hub
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(store storage.Store, hub *notify.Hub) *ExpenseService {
	return &ExpenseService{store: store, hub: hub}
}

// CreateExpense validates and records an expense in the acting user's group.
func (s *ExpenseService) CreateExpense(ctx context.Context, actorID, groupID string, in ExpenseInput) (*models.Expense, error) {
	group, err := s.memberGroup(ctx, actorID, groupID)
	if err != nil {
		return nil, err
	}

	expense, err := s.buildExpense(ctx, group, in)
	if err != nil {
		return nil, err
	}
	expense.GroupID = groupID

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, storeError(err)
	}

	slog.Info("expense created", "expense_id", expense.ID, "group_id", groupID,
		"amount", expense.Amount, "paid_by", expense.PaidByID)
	s.hub.Publish(group.Members, notify.Event{Type: EventExpenseCreated, Data: map[string]any{
		"expense_id":  expense.ID,
		"group_id":    groupID,
		"description": expense.Description,
		"amount":      money.Format(group.Currency, expense.Amount),
	}})

	return expense, nil
}

// UpdateExpense replaces an existing expense's fields and splits wholesale.
// Any group member may edit any expense in the group.
func (s *ExpenseService) UpdateExpense(ctx context.Context, actorID, expenseID string, in ExpenseInput) (*models.Expense, error) {
	existing, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, storeError(err)
	}
	group, err := s.memberGroup(ctx, actorID, existing.GroupID)
	if err != nil {
		return nil, err
	}

	expense, err := s.buildExpense(ctx, group, in)
	if err != nil {
		return nil, err
	}
	expense.ID = existing.ID
	expense.GroupID = existing.GroupID
	expense.CreatedAt = existing.CreatedAt

	if err := s.store.UpdateExpense(ctx, expense); err != nil {
		return nil, storeError(err)
	}

	slog.Info("expense updated", "expense_id", expense.ID, "group_id", expense.GroupID, "actor_id", actorID)
	s.hub.Publish(group.Members, notify.Event{Type: EventExpenseUpdated, Data: map[string]any{
		"expense_id": expense.ID,
		"group_id":   expense.GroupID,
	}})

	return expense, nil
}

// DeleteExpense removes an expense and its splits.
func (s *ExpenseService) DeleteExpense(ctx context.Context, actorID, expenseID string) error {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return storeError(err)
	}
	group, err := s.memberGroup(ctx, actorID, expense.GroupID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		return storeError(err)
	}

	slog.Info("expense deleted", "expense_id", expenseID, "group_id", expense.GroupID, "actor_id", actorID)
	s.hub.Publish(group.Members, notify.Event{Type: EventExpenseDeleted, Data: map[string]any{
		"expense_id": expenseID,
		"group_id":   expense.GroupID,
	}})

	return nil
}

// ListExpenses returns the group's expenses, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, actorID, groupID string) ([]*models.Expense, error) {
	if _, err := s.memberGroup(ctx, actorID, groupID); err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpensesByGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err)
	}
	return expenses, nil
}

// GetExpense retrieves a single expense visible to the acting user.
func (s *ExpenseService) GetExpense(ctx context.Context, actorID, expenseID string) (*models.Expense, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, storeError(err)
	}
	if _, err := s.memberGroup(ctx, actorID, expense.GroupID); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *ExpenseService) memberGroup(ctx context.Context, actorID, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err)
	}
	if !group.HasMember(actorID) {
		return nil, fmt.Errorf("%w: not a member of group %s", ErrPermission, groupID)
	}
	return group, nil
}

// buildExpense validates the input against the group and computes the split
// list. It does not persist anything.
func (s *ExpenseService) buildExpense(ctx context.Context, group *models.Group, in ExpenseInput) (*models.Expense, error) {
	if strings.TrimSpace(in.Description) == "" {
		return nil, fmt.Errorf("%w: description required", ErrValidation)
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !group.HasMember(in.PaidByID) {
		return nil, fmt.Errorf("%w: payer %s is not a group member", ErrValidation, in.PaidByID)
	}
	if in.CategoryID != "" {
		category, err := s.store.GetCategory(ctx, in.CategoryID)
		if err != nil {
			return nil, storeError(err)
		}
		if category.GroupID != group.ID {
			return nil, fmt.Errorf("%w: category belongs to another group", ErrValidation)
		}
	}

	splits, err := s.computeSplits(ctx, group, in)
	if err != nil {
		return nil, err
	}

	return &models.Expense{
		CategoryID:  in.CategoryID,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		PaidByID:    in.PaidByID,
		Splits:      splits,
	}, nil
}

func (s *ExpenseService) computeSplits(ctx context.Context, group *models.Group, in ExpenseInput) ([]models.Split, error) {
	switch in.Mode {
	case SplitEqual, "":
		parties := make([]calculator.Party, 0, len(group.Members))
		for _, id := range group.Members {
			parties = append(parties, calculator.Party{MemberID: id, Share: 1})
		}
		return s.allocate(group, in, parties)

	case SplitShares:
		if len(in.Shares) == 0 {
			return nil, fmt.Errorf("%w: shares required for split mode %q", ErrValidation, in.Mode)
		}
		return s.allocate(group, in, in.Shares)

	case SplitCategory:
		if in.CategoryID == "" {
			return nil, fmt.Errorf("%w: category required for split mode %q", ErrValidation, in.Mode)
		}
		category, err := s.store.GetCategory(ctx, in.CategoryID)
		if err != nil {
			return nil, storeError(err)
		}
		if len(category.Splits) == 0 {
			return nil, fmt.Errorf("%w: category %s has no default shares", ErrValidation, category.Name)
		}
		parties := make([]calculator.Party, 0, len(category.Splits))
		for _, cs := range category.Splits {
			parties = append(parties, calculator.Party{MemberID: cs.UserID, Share: cs.Share})
		}
		return s.allocate(group, in, parties)

	case SplitExact:
		if len(in.Shares) == 0 {
			return nil, fmt.Errorf("%w: amounts required for split mode %q", ErrValidation, in.Mode)
		}
		allocations := make([]calculator.Allocation, 0, len(in.Shares))
		splits := make([]models.Split, 0, len(in.Shares))
		for _, p := range in.Shares {
			if !group.HasMember(p.MemberID) {
				return nil, fmt.Errorf("%w: split member %s is not a group member", ErrValidation, p.MemberID)
			}
			allocations = append(allocations, calculator.Allocation{MemberID: p.MemberID, Amount: money.Cents(p.Share)})
			splits = append(splits, models.Split{UserID: p.MemberID, Amount: money.Cents(p.Share)})
		}
		if err := calculator.ValidateExact(in.Amount, allocations); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return splits, nil
	}

	return nil, fmt.Errorf("%w: unknown split mode %q", ErrValidation, in.Mode)
}

func (s *ExpenseService) allocate(group *models.Group, in ExpenseInput, parties []calculator.Party) ([]models.Split, error) {
	for _, p := range parties {
		if !group.HasMember(p.MemberID) {
			return nil, fmt.Errorf("%w: split member %s is not a group member", ErrValidation, p.MemberID)
		}
	}
	allocations, err := calculator.Allocate(in.Amount, parties, in.PaidByID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	splits := make([]models.Split, 0, len(allocations))
	for _, a := range allocations {
		splits = append(splits, models.Split{UserID: a.MemberID, Amount: a.Amount})
	}
	return splits, nil
}
