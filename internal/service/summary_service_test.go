package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/splitpot/splitpot/internal/rephrase"
)

func TestSummarizeFacts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Alice pays 30.00 split between alice and bob, then bob settles 5.00.
	if _, err := env.expenses.CreateExpense(ctx, env.alice.ID, env.group.ID, ExpenseInput{
		Description: "Dinner",
		Amount:      3000,
		PaidByID:    env.alice.ID,
		Mode:        SplitShares,
		Shares:      parties(env.alice.ID, env.bob.ID),
	}); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if _, err := env.settlements.RecordSettlement(ctx, env.bob.ID, env.group.ID, env.alice.ID, 500); err != nil {
		t.Fatalf("RecordSettlement() error = %v", err)
	}

	summaries := NewSummaryService(env.store, rephrase.NewClient("", time.Second))

	got, err := summaries.Summarize(ctx, env.bob.ID)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got.Mode != "template" {
		t.Errorf("mode = %q, want template (no sidecar configured)", got.Mode)
	}
	if got.Facts.OverallPaid != 0 {
		t.Errorf("OverallPaid = %v, want 0 (bob paid no expenses)", got.Facts.OverallPaid)
	}
	if got.Facts.OverallOwed != 15.00 {
		t.Errorf("OverallOwed = %v, want 15.00", got.Facts.OverallOwed)
	}
	// Net folds the applied settlement in: -15.00 owed + 5.00 settled.
	if got.Facts.OverallNet != -10.00 {
		t.Errorf("OverallNet = %v, want -10.00", got.Facts.OverallNet)
	}
	if len(got.Facts.Groups) != 1 || got.Facts.Groups[0].GroupName != "Flat 4B" {
		t.Fatalf("Groups = %+v, want one row for Flat 4B", got.Facts.Groups)
	}
	if !strings.Contains(got.Summary, "15.00") {
		t.Errorf("summary %q does not state the owed amount", got.Summary)
	}

	// A user with no groups gets the empty-activity sentence.
	loner := envUser(t, env.store, "loner")
	got, err = summaries.Summarize(ctx, loner.ID)
	if err != nil {
		t.Fatalf("Summarize(loner) error = %v", err)
	}
	if !strings.Contains(got.Summary, "no group activity") {
		t.Errorf("loner summary = %q, want the no-activity sentence", got.Summary)
	}
}
