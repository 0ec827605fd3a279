package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/splitpot/splitpot/internal/models"
	"github.com/splitpot/splitpot/internal/money"
	"github.com/splitpot/splitpot/internal/notify"
	"github.com/splitpot/splitpot/internal/storage"
)

// SettlementService records and confirms real-money payments between members.
//
// A settlement is created by its payer and immediately counts toward
// balances; the receiver's confirmation is an audit step, not a balance
// change. Confirmation is a compare-and-swap in the store, so two racing
// confirmations yield exactly one success and one conflict.
type SettlementService struct {
	store storage.Store
	hub   *notify.Hub
	now   func() time.Time
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(store storage.Store, hub *notify.Hub) *SettlementService {
	return &SettlementService{store: store, hub: hub, now: time.Now}
}

// RecordSettlement records a payment the acting user made to another member.
// Only the payer may record; both parties must be group members.
func (s *SettlementService) RecordSettlement(ctx context.Context, actorID, groupID, receiverID string, amount money.Cents) (*models.Settlement, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if actorID == receiverID {
		return nil, fmt.Errorf("%w: payer and receiver must differ", ErrValidation)
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err)
	}
	if !group.HasMember(actorID) {
		return nil, fmt.Errorf("%w: not a member of group %s", ErrPermission, groupID)
	}
	if !group.HasMember(receiverID) {
		return nil, fmt.Errorf("%w: receiver %s is not a group member", ErrValidation, receiverID)
	}

	now := s.now().Unix()
	settlement := &models.Settlement{
		GroupID:          groupID,
		PayerID:          actorID,
		ReceiverID:       receiverID,
		Amount:           amount,
		Status:           models.SettlementPayerConfirmed,
		PayerConfirmedAt: now,
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		return nil, storeError(err)
	}

	slog.Info("settlement recorded", "settlement_id", settlement.ID, "group_id", groupID,
		"payer_id", actorID, "receiver_id", receiverID, "amount", amount)
	s.hub.Publish(group.Members, notify.Event{Type: EventSettlementRecorded, Data: map[string]any{
		"settlement_id": settlement.ID,
		"group_id":      groupID,
		"payer_id":      actorID,
		"receiver_id":   receiverID,
		"amount":        money.Format(group.Currency, amount),
	}})

	return settlement, nil
}

// ConfirmSettlement marks a settlement complete. Only the receiver may
// confirm; an already-complete settlement returns ErrConflict.
func (s *SettlementService) ConfirmSettlement(ctx context.Context, actorID, settlementID string) (*models.Settlement, error) {
	settlement, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, storeError(err)
	}
	if settlement.ReceiverID != actorID {
		return nil, fmt.Errorf("%w: only the receiver may confirm", ErrPermission)
	}

	confirmedAt := s.now().Unix()
	if err := s.store.CompleteSettlement(ctx, settlementID, confirmedAt); err != nil {
		return nil, storeError(err)
	}

	settlement.Status = models.SettlementComplete
	settlement.ReceiverConfirmedAt = confirmedAt

	group, err := s.store.GetGroup(ctx, settlement.GroupID)
	if err != nil {
		return nil, storeError(err)
	}

	slog.Info("settlement confirmed", "settlement_id", settlementID, "group_id", settlement.GroupID,
		"receiver_id", actorID)
	s.hub.Publish(group.Members, notify.Event{Type: EventSettlementConfirmed, Data: map[string]any{
		"settlement_id": settlementID,
		"group_id":      settlement.GroupID,
	}})

	return settlement, nil
}

// ListSettlements returns the group's settlements for a member.
func (s *SettlementService) ListSettlements(ctx context.Context, actorID, groupID string) ([]*models.Settlement, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err)
	}
	if !group.HasMember(actorID) {
		return nil, fmt.Errorf("%w: not a member of group %s", ErrPermission, groupID)
	}
	settlements, err := s.store.ListSettlementsByGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(err)
	}
	return settlements, nil
}
