package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/splitpot/splitpot/internal/calculator"
	"github.com/splitpot/splitpot/internal/models"
	"github.com/splitpot/splitpot/internal/notify"
	"github.com/splitpot/splitpot/internal/storage"
	"github.com/splitpot/splitpot/internal/storage/sqlite"
)

// testEnv wires the full service stack over a throwaway SQLite database.
type testEnv struct {
	store         storage.Store
	hub           *notify.Hub
	groups        *GroupService
	expenses      *ExpenseService
	settlements   *SettlementService
	subscriptions *SubscriptionService
	categories    *CategoryService

	alice *models.User
	bob   *models.User
	carol *models.User
	group *models.Group
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hub := notify.NewHub()
	t.Cleanup(hub.Close)

	env := &testEnv{
		store:       store,
		hub:         hub,
		groups:      NewGroupService(store, hub),
		expenses:    NewExpenseService(store, hub),
		settlements: NewSettlementService(store, hub),
		categories:  NewCategoryService(store),
	}
	env.subscriptions = NewSubscriptionService(store, hub, env.expenses)

	ctx := context.Background()
	env.alice = envUser(t, store, "alice")
	env.bob = envUser(t, store, "bob")
	env.carol = envUser(t, store, "carol")

	group, err := env.groups.CreateGroup(ctx, env.alice.ID, "Flat 4B", "gbp", []string{env.bob.ID, env.carol.ID})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	env.group = group
	return env
}

// parties builds an equal-weight share list for the given members.
func parties(memberIDs ...string) []calculator.Party {
	out := make([]calculator.Party, 0, len(memberIDs))
	for _, id := range memberIDs {
		out = append(out, calculator.Party{MemberID: id, Share: 1})
	}
	return out
}

func envUser(t *testing.T, store storage.Store, username string) *models.User {
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
