package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/splitpot/splitpot/internal/models"
	"github.com/splitpot/splitpot/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestUser(t *testing.T, store *SQLiteStore, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) error = %v", username, err)
	}
	return user
}

func createTestGroup(t *testing.T, store *SQLiteStore, owner *models.User, members ...*models.User) *models.Group {
	t.Helper()
	memberIDs := make([]string, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.ID)
	}
	group := &models.Group{
		Name:     "Flat 4B",
		OwnerID:  owner.ID,
		Currency: "GBP",
		Members:  memberIDs,
	}
	if err := store.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	return group
}

func TestUserRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "alice")
	if user.ID == "" {
		t.Fatal("CreateUser did not assign an ID")
	}

	got, err := store.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if got.ID != user.ID || got.Email != "alice@example.com" {
		t.Errorf("got user %+v, want id %s", got, user.ID)
	}

	if _, err := store.GetUserByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetUserByID(missing) error = %v, want ErrNotFound", err)
	}

	dup := &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "h"}
	if err := store.CreateUser(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate username error = %v, want ErrConflict", err)
	}
}

func TestGroupMembership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")
	group := createTestGroup(t, store, alice, bob)

	got, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup() error = %v", err)
	}
	if len(got.Members) != 2 {
		t.Fatalf("got %d members, want 2 (owner is always included)", len(got.Members))
	}

	groups, err := store.ListGroupsForUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListGroupsForUser() error = %v", err)
	}
	if len(groups) != 1 || groups[0].ID != group.ID {
		t.Errorf("ListGroupsForUser(bob) = %v, want [%s]", groups, group.ID)
	}

	if err := store.RemoveGroupMember(ctx, group.ID, bob.ID); err != nil {
		t.Fatalf("RemoveGroupMember() error = %v", err)
	}
	got, err = store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup() error = %v", err)
	}
	if len(got.Members) != 1 || got.Members[0] != alice.ID {
		t.Errorf("after removal members = %v, want [%s]", got.Members, alice.ID)
	}

	if err := store.DeleteGroup(ctx, group.ID); err != nil {
		t.Fatalf("DeleteGroup() error = %v", err)
	}
	if _, err := store.GetGroup(ctx, group.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetGroup(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestInviteLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	carol := createTestUser(t, store, "carol")
	group := createTestGroup(t, store, alice)

	invite := &models.Invite{GroupID: group.ID, InviterID: alice.ID, InviteeID: carol.ID}
	if err := store.CreateInvite(ctx, invite); err != nil {
		t.Fatalf("CreateInvite() error = %v", err)
	}

	// A second pending invite for the same pair is a conflict.
	dup := &models.Invite{GroupID: group.ID, InviterID: alice.ID, InviteeID: carol.ID}
	if err := store.CreateInvite(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate pending invite error = %v, want ErrConflict", err)
	}

	pending, err := store.ListPendingInvitesForUser(ctx, carol.ID)
	if err != nil {
		t.Fatalf("ListPendingInvitesForUser() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending invites, want 1", len(pending))
	}

	if err := store.AcceptInvite(ctx, invite.ID); err != nil {
		t.Fatalf("AcceptInvite() error = %v", err)
	}
	group2, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup() error = %v", err)
	}
	if !group2.HasMember(carol.ID) {
		t.Error("accepting the invite did not add the member")
	}

	// Accept is not repeatable once the invite left pending.
	if err := store.AcceptInvite(ctx, invite.ID); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("second AcceptInvite error = %v, want ErrConflict", err)
	}

	// With the first invite resolved a new pending one is allowed again.
	again := &models.Invite{GroupID: group.ID, InviterID: alice.ID, InviteeID: carol.ID}
	if err := store.CreateInvite(ctx, again); err != nil {
		t.Errorf("CreateInvite after accept error = %v", err)
	}
	if err := store.DeclineInvite(ctx, again.ID); err != nil {
		t.Errorf("DeclineInvite() error = %v", err)
	}
}

func TestExpenseRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")
	group := createTestGroup(t, store, alice, bob)

	expense := &models.Expense{
		GroupID:     group.ID,
		Description: "Groceries",
		Amount:      3000,
		PaidByID:    alice.ID,
		Splits: []models.Split{
			{UserID: alice.ID, Amount: 1500},
			{UserID: bob.ID, Amount: 1500},
		},
	}
	if err := store.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	got, err := store.GetExpense(ctx, expense.ID)
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if got.Amount != 3000 || len(got.Splits) != 2 || got.SplitTotal() != 3000 {
		t.Errorf("got expense %+v, want amount 3000 with 2 splits summing to 3000", got)
	}

	got.Description = "Big shop"
	got.Splits = []models.Split{
		{UserID: alice.ID, Amount: 1000},
		{UserID: bob.ID, Amount: 2000},
	}
	if err := store.UpdateExpense(ctx, got); err != nil {
		t.Fatalf("UpdateExpense() error = %v", err)
	}
	got, err = store.GetExpense(ctx, expense.ID)
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if got.Description != "Big shop" || len(got.Splits) != 2 || got.Splits[0].Amount+got.Splits[1].Amount != 3000 {
		t.Errorf("update did not replace splits: %+v", got)
	}

	if err := store.DeleteExpense(ctx, expense.ID); err != nil {
		t.Fatalf("DeleteExpense() error = %v", err)
	}
	if _, err := store.GetExpense(ctx, expense.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetExpense(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestSettlementCompleteIsCAS(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")
	group := createTestGroup(t, store, alice, bob)

	settlement := &models.Settlement{
		GroupID:          group.ID,
		PayerID:          bob.ID,
		ReceiverID:       alice.ID,
		Amount:           1500,
		Status:           models.SettlementPayerConfirmed,
		PayerConfirmedAt: time.Now().Unix(),
	}
	if err := store.CreateSettlement(ctx, settlement); err != nil {
		t.Fatalf("CreateSettlement() error = %v", err)
	}

	if err := store.CompleteSettlement(ctx, settlement.ID, time.Now().Unix()); err != nil {
		t.Fatalf("CompleteSettlement() error = %v", err)
	}

	got, err := store.GetSettlement(ctx, settlement.ID)
	if err != nil {
		t.Fatalf("GetSettlement() error = %v", err)
	}
	if got.Status != models.SettlementComplete || got.ReceiverConfirmedAt == 0 {
		t.Errorf("got settlement %+v, want complete with receiver timestamp", got)
	}

	if err := store.CompleteSettlement(ctx, settlement.ID, time.Now().Unix()); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("second CompleteSettlement error = %v, want ErrConflict", err)
	}
	if err := store.CompleteSettlement(ctx, "missing", time.Now().Unix()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("CompleteSettlement(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSubscriptionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")
	group := createTestGroup(t, store, alice, bob)

	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sub := &models.Subscription{
		GroupID:     group.ID,
		Name:        "Netflix",
		Amount:      1799,
		Cadence:     models.CadenceMonthly,
		NextDueDate: due,
		CreatedByID: alice.ID,
		Members: []models.SubscriptionMember{
			{UserID: alice.ID, Share: 1},
			{UserID: bob.ID, Share: 1},
		},
	}
	if err := store.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("CreateSubscription() error = %v", err)
	}

	// (group, name) is unique.
	dup := &models.Subscription{
		GroupID: group.ID, Name: "Netflix", Amount: 1, Cadence: models.CadenceMonthly,
		NextDueDate: due, CreatedByID: alice.ID,
		Members: []models.SubscriptionMember{{UserID: alice.ID, Share: 1}},
	}
	if err := store.CreateSubscription(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate subscription name error = %v, want ErrConflict", err)
	}

	dueBy, err := store.ListSubscriptionsDueBy(ctx, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListSubscriptionsDueBy() error = %v", err)
	}
	if len(dueBy) != 1 || dueBy[0].ID != sub.ID {
		t.Fatalf("ListSubscriptionsDueBy() = %v, want [%s]", dueBy, sub.ID)
	}

	next := due.AddDate(0, 0, 30)
	if err := store.AdvanceSubscriptionDueDate(ctx, sub.ID, next, time.Now().Unix()); err != nil {
		t.Fatalf("AdvanceSubscriptionDueDate() error = %v", err)
	}
	got, err := store.GetSubscription(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetSubscription() error = %v", err)
	}
	if !got.NextDueDate.Equal(next) {
		t.Errorf("NextDueDate = %v, want %v", got.NextDueDate, next)
	}
	if len(got.Members) != 2 {
		t.Errorf("got %d subscription members, want 2", len(got.Members))
	}

	dueBy, err = store.ListSubscriptionsDueBy(ctx, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListSubscriptionsDueBy() error = %v", err)
	}
	if len(dueBy) != 0 {
		t.Errorf("after advance ListSubscriptionsDueBy() = %v, want empty", dueBy)
	}
}
