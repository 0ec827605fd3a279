// Package models defines the core domain models for Splitpot.
//
// All relationships are expressed through ID strings (UUID format) rather than
// pointers, so records can cross the storage boundary without live
// back-references. Amounts are integer cents (money.Cents); the engine never
// holds a floating-point amount.
//
// Ownership follows the ledger rules: a Group owns its members, categories,
// subscriptions and settlement records; an Expense exclusively owns its
// Splits. Balances are derived on demand, never persisted.
package models
