package service

import (
	"context"
	"errors"
	"testing"

	"github.com/splitpot/splitpot/internal/calculator"
	"github.com/splitpot/splitpot/internal/models"
	"github.com/splitpot/splitpot/internal/money"
)

func TestCreateExpenseValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   ExpenseInput
	}{
		{
			name: "empty description",
			in:   ExpenseInput{Description: " ", Amount: 100, PaidByID: "alice"},
		},
		{
			name: "zero amount",
			in:   ExpenseInput{Description: "x", Amount: 0, PaidByID: "alice"},
		},
		{
			name: "negative amount",
			in:   ExpenseInput{Description: "x", Amount: -100, PaidByID: "alice"},
		},
		{
			name: "payer not a member",
			in:   ExpenseInput{Description: "x", Amount: 100, PaidByID: "stranger"},
		},
		{
			name: "unknown split mode",
			in:   ExpenseInput{Description: "x", Amount: 100, Mode: "fancy"},
		},
		{
			name: "exact amounts off by one",
			in: ExpenseInput{
				Description: "x", Amount: 1000, Mode: SplitExact,
				Shares: []calculator.Party{{MemberID: "alice", Share: 500}, {MemberID: "bob", Share: 499}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			if in.PaidByID == "alice" || in.PaidByID == "" {
				in.PaidByID = env.alice.ID
			}
			for i := range in.Shares {
				switch in.Shares[i].MemberID {
				case "alice":
					in.Shares[i].MemberID = env.alice.ID
				case "bob":
					in.Shares[i].MemberID = env.bob.ID
				}
			}
			if _, err := env.expenses.CreateExpense(ctx, env.alice.ID, env.group.ID, in); !errors.Is(err, ErrValidation) {
				t.Errorf("CreateExpense() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreateExpenseEqualSplitRemainderToPayer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 10.00 across three members leaves a 1-cent remainder for the payer.
	expense, err := env.expenses.CreateExpense(ctx, env.bob.ID, env.group.ID, ExpenseInput{
		Description: "Coffee",
		Amount:      1000,
		PaidByID:    env.bob.ID,
		Mode:        SplitEqual,
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	if expense.SplitTotal() != 1000 {
		t.Errorf("SplitTotal() = %d, want 1000", expense.SplitTotal())
	}
	var payerShare money.Cents
	for _, split := range expense.Splits {
		if split.UserID == env.bob.ID {
			payerShare = split.Amount
		} else if split.Amount != 333 {
			t.Errorf("non-payer share = %d, want 333", split.Amount)
		}
	}
	if payerShare != 334 {
		t.Errorf("payer share = %d, want 334 (floor plus remainder)", payerShare)
	}
}

func TestCreateExpenseExactMode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expense, err := env.expenses.CreateExpense(ctx, env.alice.ID, env.group.ID, ExpenseInput{
		Description: "Takeaway",
		Amount:      2599,
		PaidByID:    env.alice.ID,
		Mode:        SplitExact,
		Shares: []calculator.Party{
			{MemberID: env.alice.ID, Share: 599},
			{MemberID: env.bob.ID, Share: 2000},
		},
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if len(expense.Splits) != 2 || expense.SplitTotal() != 2599 {
		t.Errorf("got splits %+v, want 2 entries summing to 2599", expense.Splits)
	}
}

func TestCreateExpenseCategoryMode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	category, err := env.categories.CreateCategory(ctx, env.alice.ID, env.group.ID, CategoryInput{
		Name: "Rent",
		Splits: []models.CategorySplit{
			{UserID: env.alice.ID, Share: 2},
			{UserID: env.bob.ID, Share: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	expense, err := env.expenses.CreateExpense(ctx, env.alice.ID, env.group.ID, ExpenseInput{
		Description: "March rent",
		Amount:      90000,
		PaidByID:    env.alice.ID,
		CategoryID:  category.ID,
		Mode:        SplitCategory,
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	want := map[string]money.Cents{env.alice.ID: 60000, env.bob.ID: 30000}
	for _, split := range expense.Splits {
		if split.Amount != want[split.UserID] {
			t.Errorf("split[%s] = %d, want %d", split.UserID, split.Amount, want[split.UserID])
		}
	}
}

func TestUpdateExpenseReplacesSplits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expense, err := env.expenses.CreateExpense(ctx, env.alice.ID, env.group.ID, ExpenseInput{
		Description: "Groceries",
		Amount:      3000,
		PaidByID:    env.alice.ID,
		Mode:        SplitShares,
		Shares:      parties(env.alice.ID, env.bob.ID),
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	updated, err := env.expenses.UpdateExpense(ctx, env.bob.ID, expense.ID, ExpenseInput{
		Description: "Groceries and wine",
		Amount:      4500,
		PaidByID:    env.alice.ID,
		Mode:        SplitEqual,
	})
	if err != nil {
		t.Fatalf("UpdateExpense() error = %v", err)
	}
	if updated.Amount != 4500 || len(updated.Splits) != 3 || updated.SplitTotal() != 4500 {
		t.Errorf("updated expense %+v, want 4500 across 3 splits", updated)
	}

	if err := env.expenses.DeleteExpense(ctx, env.carol.ID, expense.ID); err != nil {
		t.Fatalf("DeleteExpense() error = %v", err)
	}
	if _, err := env.expenses.GetExpense(ctx, env.alice.ID, expense.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetExpense(deleted) error = %v, want ErrNotFound", err)
	}
}
