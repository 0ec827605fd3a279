package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/splitpot/splitpot/internal/calculator"
	"github.com/splitpot/splitpot/internal/models"
	"github.com/splitpot/splitpot/internal/money"
	"github.com/splitpot/splitpot/internal/notify"
	"github.com/splitpot/splitpot/internal/storage"
)

// GroupService manages groups, membership, invites and the derived balance
// views. Membership mutations and group deletion are guarded by the
// zero-balance precondition, evaluated under a per-group lock so concurrent
// attempts cannot both observe stale balances.
type GroupService struct {
	store storage.Store
	hub   *notify.Hub
	locks *groupLocks
}

// NewGroupService creates a new GroupService with the given storage backend
// and notification hub.
func NewGroupService(store storage.Store, hub *notify.Hub) *GroupService {
	return &GroupService{store: store, hub: hub, locks: newGroupLocks()}
}

// storeError translates storage sentinel errors into the service taxonomy.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

// CreateGroup creates a group owned by the acting user. The currency label is
// uppercased but otherwise opaque; the owner is always added as a member.
func (s *GroupService) CreateGroup(ctx context.Context, ownerID, name, currency string, memberIDs []string) (*models.Group, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: group name required", ErrValidation)
	}
	currency = money.NormalizeCurrency(currency)
	if currency == "" {
		currency = "GBP"
	}

	group := &models.Group{
		Name:     strings.TrimSpace(name),
		OwnerID:  ownerID,
		Currency: currency,
		Members:  memberIDs,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, storeError(err)
	}

	slog.Info("group created", "group_id", group.ID, "owner_id", ownerID, "members", len(group.Members))
	s.hub.Publish(group.Members, notify.Event{Type: EventGroupCreated, Data: map[string]any{
		"group_id": group.ID,
		"name":     group.Name,
	}})

	return group, nil
}

// GetGroup retrieves a group the acting user belongs to.
func (s *GroupService) GetGroup(ctx context.Context, actorID, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err)
	}
	if !group.HasMember(actorID) {
		return nil, fmt.Errorf("%w: not a member of group %s", ErrPermission, groupID)
	}
	return group, nil
}

// ListGroups retrieves all groups the acting user belongs to.
func (s *GroupService) ListGroups(ctx context.Context, actorID string) ([]*models.Group, error) {
	groups, err := s.store.ListGroupsForUser(ctx, actorID)
	if err != nil {
		return nil, storeError(err)
	}
	return groups, nil
}

// DeleteGroup removes a group and everything it owns. Only the owner may
// delete, and only while every member's balance is exactly zero. The balance
// check and the delete run under the group's mutation lock.
func (s *GroupService) DeleteGroup(ctx context.Context, actorID, groupID string) error {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return storeError(err)
	}
	if group.OwnerID != actorID {
		return fmt.Errorf("%w: only the owner may delete the group", ErrPermission)
	}

	balances, err := s.balances(ctx, group)
	if err != nil {
		return err
	}
	for memberID, balance := range balances {
		if balance != 0 {
			return fmt.Errorf("%w: group has outstanding balances (%s: %s)",
				ErrConflict, memberID, money.Format(group.Currency, balance))
		}
	}

	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return storeError(err)
	}

	slog.Info("group deleted", "group_id", groupID, "actor_id", actorID)
	s.hub.Publish(group.Members, notify.Event{Type: EventGroupDeleted, Data: map[string]any{
		"group_id": groupID,
		"name":     group.Name,
	}})

	return nil
}

// RemoveMember removes a member from the group. The owner may remove anyone
// but themselves; any other member may only remove themselves (leave). The
// departing member's balance must be exactly zero, checked under the group's
// mutation lock.
func (s *GroupService) RemoveMember(ctx context.Context, actorID, groupID, memberID string) error {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return storeError(err)
	}
	if !group.HasMember(memberID) {
		return fmt.Errorf("%w: user %s is not a member of group %s", ErrNotFound, memberID, groupID)
	}
	if memberID == group.OwnerID {
		return fmt.Errorf("%w: the owner cannot leave the group", ErrValidation)
	}
	if actorID != memberID && actorID != group.OwnerID {
		return fmt.Errorf("%w: only the owner may remove other members", ErrPermission)
	}

	balances, err := s.balances(ctx, group)
	if err != nil {
		return err
	}
	if balance := balances[memberID]; balance != 0 {
		return fmt.Errorf("%w: member balance is %s, settle up first",
			ErrConflict, money.Format(group.Currency, balance))
	}

	if err := s.store.RemoveGroupMember(ctx, groupID, memberID); err != nil {
		return storeError(err)
	}

	slog.Info("member removed", "group_id", groupID, "member_id", memberID, "actor_id", actorID)
	s.hub.Publish(group.Members, notify.Event{Type: EventMemberRemoved, Data: map[string]any{
		"group_id": groupID,
		"user_id":  memberID,
	}})

	return nil
}

// InviteMember sends a pending invite to a user. Only members may invite, and
// at most one pending invite exists per (group, invitee).
func (s *GroupService) InviteMember(ctx context.Context, actorID, groupID, inviteeID string) (*models.Invite, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err)
	}
	if !group.HasMember(actorID) {
		return nil, fmt.Errorf("%w: not a member of group %s", ErrPermission, groupID)
	}
	if group.HasMember(inviteeID) {
		return nil, fmt.Errorf("%w: user is already a member", ErrConflict)
	}
	if _, err := s.store.GetUserByID(ctx, inviteeID); err != nil {
		return nil, storeError(err)
	}

	invite := &models.Invite{
		GroupID:   groupID,
		InviterID: actorID,
		InviteeID: inviteeID,
	}
	if err := s.store.CreateInvite(ctx, invite); err != nil {
		return nil, storeError(err)
	}

	slog.Info("invite sent", "group_id", groupID, "inviter_id", actorID, "invitee_id", inviteeID)
	s.hub.Publish([]string{inviteeID}, notify.Event{Type: EventInviteReceived, Data: map[string]any{
		"invite_id": invite.ID,
		"group_id":  groupID,
		"group":     group.Name,
	}})

	return invite, nil
}

// AcceptInvite accepts a pending invite addressed to the acting user, adding
// them to the group.
func (s *GroupService) AcceptInvite(ctx context.Context, actorID, inviteID string) error {
	invite, err := s.store.GetInvite(ctx, inviteID)
	if err != nil {
		return storeError(err)
	}
	if invite.InviteeID != actorID {
		return fmt.Errorf("%w: invite is not addressed to you", ErrPermission)
	}

	if err := s.store.AcceptInvite(ctx, inviteID); err != nil {
		return storeError(err)
	}

	group, err := s.store.GetGroup(ctx, invite.GroupID)
	if err != nil {
		return storeError(err)
	}

	slog.Info("invite accepted", "invite_id", inviteID, "group_id", invite.GroupID, "user_id", actorID)
	s.hub.Publish(group.Members, notify.Event{Type: EventMemberAdded, Data: map[string]any{
		"group_id": invite.GroupID,
		"user_id":  actorID,
	}})
	s.hub.Publish([]string{invite.InviterID}, notify.Event{Type: EventInviteAccepted, Data: map[string]any{
		"invite_id": inviteID,
		"group_id":  invite.GroupID,
		"user_id":   actorID,
	}})

	return nil
}

// DeclineInvite declines a pending invite addressed to the acting user.
func (s *GroupService) DeclineInvite(ctx context.Context, actorID, inviteID string) error {
	invite, err := s.store.GetInvite(ctx, inviteID)
	if err != nil {
		return storeError(err)
	}
	if invite.InviteeID != actorID {
		return fmt.Errorf("%w: invite is not addressed to you", ErrPermission)
	}
	return storeError(s.store.DeclineInvite(ctx, inviteID))
}

// ListInvites retrieves the acting user's pending invites.
func (s *GroupService) ListInvites(ctx context.Context, actorID string) ([]*models.Invite, error) {
	invites, err := s.store.ListPendingInvitesForUser(ctx, actorID)
	if err != nil {
		return nil, storeError(err)
	}
	return invites, nil
}

// GroupBalances computes the per-member net balance for a group the acting
// user belongs to. Positive means the group owes the member.
func (s *GroupService) GroupBalances(ctx context.Context, actorID, groupID string) (map[string]money.Cents, error) {
	group, err := s.GetGroup(ctx, actorID, groupID)
	if err != nil {
		return nil, err
	}
	return s.balances(ctx, group)
}

// PlanSettlements suggests the payments that would zero every balance in the
// group.
func (s *GroupService) PlanSettlements(ctx context.Context, actorID, groupID string) ([]calculator.Payment, error) {
	balances, err := s.GroupBalances(ctx, actorID, groupID)
	if err != nil {
		return nil, err
	}
	return calculator.PlanSettlements(balances), nil
}

// balances folds the group's expenses and applied settlements into net
// balances. Pure read; callers needing atomicity hold the group lock.
func (s *GroupService) balances(ctx context.Context, group *models.Group) (map[string]money.Cents, error) {
	expenses, err := s.store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		return nil, storeError(err)
	}
	settlements, err := s.store.ListSettlementsByGroup(ctx, group.ID)
	if err != nil {
		return nil, storeError(err)
	}

	forBalance := make([]calculator.ExpenseForBalance, 0, len(expenses))
	for _, e := range expenses {
		splits := make([]calculator.Allocation, 0, len(e.Splits))
		for _, split := range e.Splits {
			splits = append(splits, calculator.Allocation{MemberID: split.UserID, Amount: split.Amount})
		}
		forBalance = append(forBalance, calculator.ExpenseForBalance{
			PayerID: e.PaidByID,
			Amount:  e.Amount,
			Splits:  splits,
		})
	}

	var applied []calculator.SettlementForBalance
	for _, settlement := range settlements {
		if !settlement.Applied() {
			continue
		}
		applied = append(applied, calculator.SettlementForBalance{
			PayerID:    settlement.PayerID,
			ReceiverID: settlement.ReceiverID,
			Amount:     settlement.Amount,
		})
	}

	return calculator.ComputeBalances(group.Members, forBalance, applied), nil
}
