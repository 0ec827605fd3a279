package service

import (
	"context"
	"log/slog"

	"github.com/splitpot/splitpot/internal/models"
	"github.com/splitpot/splitpot/internal/money"
	"github.com/splitpot/splitpot/internal/rephrase"
	"github.com/splitpot/splitpot/internal/storage"
)

// Summary is the user-facing digest: validated numeric facts plus the
// rendered sentence and which path produced it.
type Summary struct {
	Facts   rephrase.Facts `json:"facts"`
	Summary string         `json:"summary"`
	Mode    string         `json:"mode"`
}

// SummaryService folds a user's activity across all their groups into
// summary facts and renders them through the rephraser, falling back to the
// local template when the sidecar misbehaves.
type SummaryService struct {
	store     storage.Store
	rephraser *rephrase.Client
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(store storage.Store, rephraser *rephrase.Client) *SummaryService {
	return &SummaryService{store: store, rephraser: rephraser}
}

// Summarize computes the acting user's facts and returns the digest.
//
// Per group: paid is the total of expenses the user covered, owed is the
// total of the user's split shares, and net folds applied settlements in on
// top, so it equals the user's live balance in that group.
func (s *SummaryService) Summarize(ctx context.Context, actorID string) (*Summary, error) {
	groups, err := s.store.ListGroupsForUser(ctx, actorID)
	if err != nil {
		return nil, storeError(err)
	}

	facts := rephrase.Facts{Groups: []rephrase.GroupFacts{}}
	var overallNet money.Cents
	for _, group := range groups {
		row, err := s.groupFacts(ctx, actorID, group)
		if err != nil {
			return nil, err
		}
		facts.OverallPaid += row.Paid
		facts.OverallOwed += row.Owed
		overallNet += row.net
		facts.Groups = append(facts.Groups, row.GroupFacts)
	}
	facts.OverallNet = overallNet.Float64()

	summary, mode := s.rephraser.Summarize(ctx, facts)
	slog.Debug("summary rendered", "user_id", actorID, "groups", len(facts.Groups), "mode", mode)

	return &Summary{Facts: facts, Summary: summary, Mode: mode}, nil
}

type groupFactsRow struct {
	rephrase.GroupFacts
	net money.Cents
}

func (s *SummaryService) groupFacts(ctx context.Context, userID string, group *models.Group) (groupFactsRow, error) {
	expenses, err := s.store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		return groupFactsRow{}, storeError(err)
	}
	settlements, err := s.store.ListSettlementsByGroup(ctx, group.ID)
	if err != nil {
		return groupFactsRow{}, storeError(err)
	}

	var paid, owed money.Cents
	for _, e := range expenses {
		if e.PaidByID == userID {
			paid += e.Amount
		}
		for _, split := range e.Splits {
			if split.UserID == userID {
				owed += split.Amount
			}
		}
	}

	net := paid - owed
	for _, settlement := range settlements {
		if !settlement.Applied() {
			continue
		}
		if settlement.PayerID == userID {
			net += settlement.Amount
		}
		if settlement.ReceiverID == userID {
			net -= settlement.Amount
		}
	}

	return groupFactsRow{
		GroupFacts: rephrase.GroupFacts{
			GroupID:   group.ID,
			GroupName: group.Name,
			Currency:  group.Currency,
			Paid:      paid.Float64(),
			Owed:      owed.Float64(),
			Net:       net.Float64(),
		},
		net: net,
	}, nil
}
