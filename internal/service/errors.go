// Package service implements the ledger engine: group membership, expenses
// with split allocation, settlement records, recurring subscriptions and the
// change-notification fanout hooks. Services validate fully before issuing
// any persistence write, so no operation leaves a partial mutation behind.
package service

import "errors"

// Error taxonomy. Every failure a service returns wraps exactly one of these
// sentinels, so callers classify with errors.Is and map to their own surface
// (HTTP status, RPC code). All are caller-correctable; none are fatal.
var (
	// ErrValidation covers bad input shape: non-positive amounts, empty
	// split lists, mismatched sums, unknown cadences.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound covers references to absent groups, members, expenses,
	// subscriptions or settlements.
	ErrNotFound = errors.New("not found")

	// ErrPermission covers actors not authorized for an operation: a
	// non-owner editing a group, a non-member acting on it, a non-receiver
	// confirming a settlement.
	ErrPermission = errors.New("permission denied")

	// ErrConflict covers rejected preconditions: a balance that is not zero
	// when it must be, a settlement that is already confirmed, an invite
	// that is already pending.
	ErrConflict = errors.New("conflict")
)
