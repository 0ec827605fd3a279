// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/splitpot/splitpot/internal/models"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness or
	// state precondition (duplicate name, already-completed settlement,
	// pending invite already present).
	ErrConflict = errors.New("conflict")
)

// Store defines the repository the ledger engine runs against. This
// abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the engine.
//
// Multi-row writes are transactional: either the whole entity with its
// owned rows is persisted, or nothing is.
type Store interface {
	// Users.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Groups and membership. DeleteGroup cascades to everything the group
	// owns; callers enforce the zero-balance precondition first.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)
	DeleteGroup(ctx context.Context, id string) error
	AddGroupMember(ctx context.Context, groupID, userID string) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) error

	// Invites. AcceptInvite flips the pending invite and adds the member in
	// a single transaction, so a duplicate accept cannot double-add.
	CreateInvite(ctx context.Context, invite *models.Invite) error
	GetInvite(ctx context.Context, id string) (*models.Invite, error)
	GetPendingInvite(ctx context.Context, groupID, inviteeID string) (*models.Invite, error)
	ListPendingInvitesForUser(ctx context.Context, userID string) ([]*models.Invite, error)
	AcceptInvite(ctx context.Context, id string) error
	DeclineInvite(ctx context.Context, id string) error

	// Categories.
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListCategoriesByGroup(ctx context.Context, groupID string) ([]*models.Category, error)

	// Expenses. Splits are exclusively owned: updates replace the full list.
	CreateExpense(ctx context.Context, expense *models.Expense) error
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	UpdateExpense(ctx context.Context, expense *models.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// Settlements. CompleteSettlement is a compare-and-swap on the
	// payer_confirmed status; a record that is already complete returns
	// ErrConflict.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error
	GetSettlement(ctx context.Context, id string) (*models.Settlement, error)
	CompleteSettlement(ctx context.Context, id string, confirmedAt int64) error
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// Subscriptions.
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error
	AdvanceSubscriptionDueDate(ctx context.Context, id string, next time.Time, updatedAt int64) error
	DeleteSubscription(ctx context.Context, id string) error
	ListSubscriptionsByGroup(ctx context.Context, groupID string) ([]*models.Subscription, error)
	ListSubscriptionsDueBy(ctx context.Context, day time.Time) ([]*models.Subscription, error)

	// Close releases any resources held by the store.
	Close() error
}
