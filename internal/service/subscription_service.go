package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/splitpot/splitpot/internal/calculator"
	"github.com/splitpot/splitpot/internal/models"
	"github.com/splitpot/splitpot/internal/money"
	"github.com/splitpot/splitpot/internal/notify"
	"github.com/splitpot/splitpot/internal/storage"
)

// SubscriptionInput is the caller-supplied description of a recurring cost.
type SubscriptionInput struct {
	Name        string
	Amount      money.Cents
	Cadence     models.Cadence
	NextDueDate time.Time
	Notes       string
	CategoryID  string
	Members     []models.SubscriptionMember
}

// SubscriptionStatus pairs a subscription with its due classification.
type SubscriptionStatus struct {
	Subscription *models.Subscription
	Status       models.DueStatus
}

// SubscriptionService manages recurring shared costs. Paying a subscription
// generates a regular expense split by the subscription's share weights and
// advances the due date from the previous due date, never from today, so a
// late payment does not silently shift the whole schedule.
type SubscriptionService struct {
	store    storage.Store
	hub      *notify.Hub
	expenses *ExpenseService
	now      func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService. The expense
// service is used to record the generated payments.
func NewSubscriptionService(store storage.Store, hub *notify.Hub, expenses *ExpenseService) *SubscriptionService {
	return &SubscriptionService{store: store, hub: hub, expenses: expenses, now: time.Now}
}

// CreateSubscription creates a recurring cost in the acting user's group.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, actorID, groupID string, in SubscriptionInput) (*models.Subscription, error) {
	group, err := s.memberGroup(ctx, actorID, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, group, in); err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		GroupID:     groupID,
		Name:        strings.TrimSpace(in.Name),
		Amount:      in.Amount,
		Cadence:     in.Cadence,
		NextDueDate: in.NextDueDate,
		Notes:       in.Notes,
		CategoryID:  in.CategoryID,
		CreatedByID: actorID,
		Members:     in.Members,
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return nil, storeError(err)
	}

	slog.Info("subscription created", "subscription_id", sub.ID, "group_id", groupID,
		"name", sub.Name, "cadence", sub.Cadence)
	return sub, nil
}

// UpdateSubscription replaces a subscription's fields and member list.
func (s *SubscriptionService) UpdateSubscription(ctx context.Context, actorID, subscriptionID string, in SubscriptionInput) (*models.Subscription, error) {
	existing, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, storeError(err)
	}
	group, err := s.memberGroup(ctx, actorID, existing.GroupID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, group, in); err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(in.Name)
	existing.Amount = in.Amount
	existing.Cadence = in.Cadence
	existing.NextDueDate = in.NextDueDate
	existing.Notes = in.Notes
	existing.CategoryID = in.CategoryID
	existing.Members = in.Members

	if err := s.store.UpdateSubscription(ctx, existing); err != nil {
		return nil, storeError(err)
	}

	slog.Info("subscription updated", "subscription_id", subscriptionID, "group_id", existing.GroupID)
	return existing, nil
}

// DeleteSubscription removes a subscription. Expenses it already generated
// are untouched.
func (s *SubscriptionService) DeleteSubscription(ctx context.Context, actorID, subscriptionID string) error {
	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return storeError(err)
	}
	if _, err := s.memberGroup(ctx, actorID, sub.GroupID); err != nil {
		return err
	}
	return storeError(s.store.DeleteSubscription(ctx, subscriptionID))
}

// ListSubscriptions returns the group's subscriptions, each classified
// against today's date.
func (s *SubscriptionService) ListSubscriptions(ctx context.Context, actorID, groupID string) ([]SubscriptionStatus, error) {
	if _, err := s.memberGroup(ctx, actorID, groupID); err != nil {
		return nil, err
	}
	subs, err := s.store.ListSubscriptionsByGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err)
	}

	today := s.now()
	out := make([]SubscriptionStatus, 0, len(subs))
	for _, sub := range subs {
		out = append(out, SubscriptionStatus{Subscription: sub, Status: sub.DueStatusOn(today)})
	}
	return out, nil
}

// PaySubscription records a payment of the subscription by the acting user.
// It creates an expense split by the subscription's share weights, with the
// rounding remainder going to the payer, then advances the due date by the
// cadence delta from the previous due date.
func (s *SubscriptionService) PaySubscription(ctx context.Context, actorID, subscriptionID string) (*models.Expense, error) {
	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, storeError(err)
	}
	group, err := s.memberGroup(ctx, actorID, sub.GroupID)
	if err != nil {
		return nil, err
	}

	parties := make([]calculator.Party, 0, len(sub.Members))
	for _, m := range sub.Members {
		parties = append(parties, calculator.Party{MemberID: m.UserID, Share: m.Share})
	}

	expense, err := s.expenses.CreateExpense(ctx, actorID, sub.GroupID, ExpenseInput{
		Description: sub.Name,
		Amount:      sub.Amount,
		PaidByID:    actorID,
		CategoryID:  sub.CategoryID,
		Mode:        SplitShares,
		Shares:      parties,
	})
	if err != nil {
		return nil, err
	}

	next := sub.NextDueDate.AddDate(0, 0, sub.Cadence.DeltaDays())
	if err := s.store.AdvanceSubscriptionDueDate(ctx, sub.ID, next, s.now().Unix()); err != nil {
		return nil, storeError(err)
	}

	slog.Info("subscription paid", "subscription_id", sub.ID, "group_id", sub.GroupID,
		"payer_id", actorID, "next_due", next.Format("2006-01-02"))
	s.hub.Publish(group.Members, notify.Event{Type: EventSubscriptionPaid, Data: map[string]any{
		"subscription_id": sub.ID,
		"group_id":        sub.GroupID,
		"name":            sub.Name,
		"next_due_date":   next.Format("2006-01-02"),
	}})

	return expense, nil
}

func (s *SubscriptionService) memberGroup(ctx context.Context, actorID, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err)
	}
	if !group.HasMember(actorID) {
		return nil, fmt.Errorf("%w: not a member of group %s", ErrPermission, groupID)
	}
	return group, nil
}

func (s *SubscriptionService) validate(ctx context.Context, group *models.Group, in SubscriptionInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: subscription name required", ErrValidation)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !in.Cadence.Valid() {
		return fmt.Errorf("%w: unknown cadence %q", ErrValidation, in.Cadence)
	}
	if in.NextDueDate.IsZero() {
		return fmt.Errorf("%w: next due date required", ErrValidation)
	}
	if len(in.Members) == 0 {
		return fmt.Errorf("%w: at least one member required", ErrValidation)
	}
	for _, m := range in.Members {
		if m.Share <= 0 {
			return fmt.Errorf("%w: non-positive share for %s", ErrValidation, m.UserID)
		}
		if !group.HasMember(m.UserID) {
			return fmt.Errorf("%w: member %s is not in the group", ErrValidation, m.UserID)
		}
	}
	if in.CategoryID != "" {
		category, err := s.store.GetCategory(ctx, in.CategoryID)
		if err != nil {
			return storeError(err)
		}
		if category.GroupID != group.ID {
			return fmt.Errorf("%w: category belongs to another group", ErrValidation)
		}
	}
	return nil
}
