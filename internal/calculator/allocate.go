// Package calculator holds the pure ledger arithmetic: split allocation,
// balance aggregation and settlement planning. Everything here is
// side-effect-free and safe for concurrent callers.
package calculator

import (
	"errors"
	"fmt"

	"github.com/splitpot/splitpot/internal/money"
)

var (
	// ErrInvalidAllocation means the share list cannot allocate anything:
	// empty list, non-positive share, or negative total.
	ErrInvalidAllocation = errors.New("invalid allocation")

	// ErrSplitMismatch means explicit split amounts do not partition the
	// total exactly.
	ErrSplitMismatch = errors.New("split amounts do not sum to total")
)

// Party is a member with a positive integer share weight.
type Party struct {
	MemberID string
	Share    int64
}

// Allocation is one member's allocated portion in cents.
type Allocation struct {
	MemberID string
	Amount   money.Cents
}

// Allocate partitions total across the parties proportionally to their
// shares. Each entry gets floor(total*share/sumShares); the remainder goes
// entirely to the payer's entry if the payer is among the parties, otherwise
// to the first entry. The result always sums to total exactly.
func Allocate(total money.Cents, parties []Party, payerID string) ([]Allocation, error) {
	if len(parties) == 0 {
		return nil, fmt.Errorf("%w: no parties", ErrInvalidAllocation)
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: negative total %d", ErrInvalidAllocation, total)
	}

	var sumShares int64
	for _, p := range parties {
		if p.Share <= 0 {
			return nil, fmt.Errorf("%w: non-positive share %d for %s", ErrInvalidAllocation, p.Share, p.MemberID)
		}
		sumShares += p.Share
	}
	if sumShares <= 0 {
		return nil, fmt.Errorf("%w: shares sum to %d", ErrInvalidAllocation, sumShares)
	}

	allocations := make([]Allocation, len(parties))
	remainderIdx := 0
	var allocated money.Cents
	for i, p := range parties {
		amount := money.Cents(int64(total) * p.Share / sumShares)
		allocations[i] = Allocation{MemberID: p.MemberID, Amount: amount}
		allocated += amount
		if p.MemberID == payerID {
			remainderIdx = i
		}
	}

	// The floor division leaves 0 <= remainder < len(parties) cents.
	allocations[remainderIdx].Amount += total - allocated

	return allocations, nil
}

// ValidateExact checks an explicit per-member partition: every amount must be
// non-negative and the amounts must sum to total exactly. No redistribution
// is attempted; the caller supplies an exact partition or gets ErrSplitMismatch.
func ValidateExact(total money.Cents, allocations []Allocation) error {
	if len(allocations) == 0 {
		return fmt.Errorf("%w: no parties", ErrInvalidAllocation)
	}
	var sum money.Cents
	for _, a := range allocations {
		if a.Amount < 0 {
			return fmt.Errorf("%w: negative amount %d for %s", ErrSplitMismatch, a.Amount, a.MemberID)
		}
		sum += a.Amount
	}
	if sum != total {
		return fmt.Errorf("%w: got %d, want %d", ErrSplitMismatch, sum, total)
	}
	return nil
}
