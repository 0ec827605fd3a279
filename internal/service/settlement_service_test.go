package service

import (
	"context"
	"errors"
	"testing"

	"github.com/splitpot/splitpot/internal/models"
)

func TestRecordSettlementValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.settlements.RecordSettlement(ctx, env.bob.ID, env.group.ID, env.alice.ID, 0); !errors.Is(err, ErrValidation) {
		t.Errorf("zero amount error = %v, want ErrValidation", err)
	}
	if _, err := env.settlements.RecordSettlement(ctx, env.bob.ID, env.group.ID, env.alice.ID, -100); !errors.Is(err, ErrValidation) {
		t.Errorf("negative amount error = %v, want ErrValidation", err)
	}
	if _, err := env.settlements.RecordSettlement(ctx, env.bob.ID, env.group.ID, env.bob.ID, 100); !errors.Is(err, ErrValidation) {
		t.Errorf("self-payment error = %v, want ErrValidation", err)
	}

	outsider := envUser(t, env.store, "mallory")
	if _, err := env.settlements.RecordSettlement(ctx, outsider.ID, env.group.ID, env.alice.ID, 100); !errors.Is(err, ErrPermission) {
		t.Errorf("non-member payer error = %v, want ErrPermission", err)
	}
	if _, err := env.settlements.RecordSettlement(ctx, env.bob.ID, env.group.ID, outsider.ID, 100); !errors.Is(err, ErrValidation) {
		t.Errorf("non-member receiver error = %v, want ErrValidation", err)
	}
}

func TestSettlementLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	settlement, err := env.settlements.RecordSettlement(ctx, env.bob.ID, env.group.ID, env.alice.ID, 1500)
	if err != nil {
		t.Fatalf("RecordSettlement() error = %v", err)
	}
	if settlement.Status != models.SettlementPayerConfirmed {
		t.Errorf("initial status = %q, want payer_confirmed", settlement.Status)
	}
	if settlement.PayerConfirmedAt == 0 {
		t.Error("PayerConfirmedAt is not set on creation")
	}
	if !settlement.Applied() {
		t.Error("payer_confirmed settlement should already apply to balances")
	}

	// Only the receiver may confirm.
	if _, err := env.settlements.ConfirmSettlement(ctx, env.bob.ID, settlement.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("payer confirm error = %v, want ErrPermission", err)
	}
	if _, err := env.settlements.ConfirmSettlement(ctx, env.carol.ID, settlement.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("third-party confirm error = %v, want ErrPermission", err)
	}

	confirmed, err := env.settlements.ConfirmSettlement(ctx, env.alice.ID, settlement.ID)
	if err != nil {
		t.Fatalf("ConfirmSettlement() error = %v", err)
	}
	if confirmed.Status != models.SettlementComplete || confirmed.ReceiverConfirmedAt == 0 {
		t.Errorf("confirmed settlement %+v, want complete with receiver timestamp", confirmed)
	}

	// Complete is terminal.
	if _, err := env.settlements.ConfirmSettlement(ctx, env.alice.ID, settlement.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("double confirm error = %v, want ErrConflict", err)
	}
	if _, err := env.settlements.ConfirmSettlement(ctx, env.alice.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("confirm missing error = %v, want ErrNotFound", err)
	}
}

func TestConfirmationDoesNotChangeBalances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.expenses.CreateExpense(ctx, env.alice.ID, env.group.ID, ExpenseInput{
		Description: "Dinner",
		Amount:      3000,
		PaidByID:    env.alice.ID,
		Mode:        SplitShares,
		Shares:      parties(env.alice.ID, env.bob.ID),
	}); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	settlement, err := env.settlements.RecordSettlement(ctx, env.bob.ID, env.group.ID, env.alice.ID, 1500)
	if err != nil {
		t.Fatalf("RecordSettlement() error = %v", err)
	}

	before, err := env.groups.GroupBalances(ctx, env.alice.ID, env.group.ID)
	if err != nil {
		t.Fatalf("GroupBalances() error = %v", err)
	}
	if _, err := env.settlements.ConfirmSettlement(ctx, env.alice.ID, settlement.ID); err != nil {
		t.Fatalf("ConfirmSettlement() error = %v", err)
	}
	after, err := env.groups.GroupBalances(ctx, env.alice.ID, env.group.ID)
	if err != nil {
		t.Fatalf("GroupBalances() error = %v", err)
	}

	for id, balance := range before {
		if after[id] != balance {
			t.Errorf("balance[%s] changed on confirmation: %d -> %d", id, balance, after[id])
		}
	}
}
