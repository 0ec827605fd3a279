package models

import "github.com/splitpot/splitpot/internal/money"

// SettlementStatus is the lifecycle state of a settlement record.
type SettlementStatus string

const (
	// SettlementPayerConfirmed is the initial state: the payer has recorded
	// the payment unilaterally. The amount already counts toward balances.
	SettlementPayerConfirmed SettlementStatus = "payer_confirmed"

	// SettlementComplete is terminal: the receiver has confirmed receipt.
	// Confirmation only adds an audit timestamp; the balance contribution
	// does not change.
	SettlementComplete SettlementStatus = "complete"
)

// Settlement records a real-money payment between two group members.
//
// Lifecycle: created in payer_confirmed by the payer; transitions to complete
// only via confirmation by the receiver; terminal once complete.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// PayerID is the member who paid. Never equal to ReceiverID.
	PayerID string

	// ReceiverID is the member who was paid.
	ReceiverID string

	// Amount is the payment amount in cents. Always > 0.
	Amount money.Cents

	// Status is the current lifecycle state.
	Status SettlementStatus

	// PayerConfirmedAt is the Unix timestamp of creation; always set.
	PayerConfirmedAt int64

	// ReceiverConfirmedAt is the Unix timestamp of the receiver's
	// confirmation; 0 until the record is complete.
	ReceiverConfirmedAt int64

	// CreatedAt and UpdatedAt are Unix bookkeeping timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// Applied reports whether the settlement counts toward balance computation.
// A payer's unilateral claim already reduces the displayed balance; this is
// deliberate, so outstanding amounts shrink as soon as the payer records them.
func (s *Settlement) Applied() bool {
	return s.Status == SettlementPayerConfirmed || s.Status == SettlementComplete
}
