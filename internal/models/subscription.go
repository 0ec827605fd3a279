package models

import (
	"time"

	"github.com/splitpot/splitpot/internal/money"
)

// Cadence is how often a subscription recurs. Each cadence maps to a fixed
// day delta; calendar-month arithmetic is intentionally not used.
type Cadence string

const (
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceYearly    Cadence = "yearly"
)

// DeltaDays returns the fixed number of days between due dates, or 0 for an
// unknown cadence.
func (c Cadence) DeltaDays() int {
	switch c {
	case CadenceMonthly:
		return 30
	case CadenceQuarterly:
		return 90
	case CadenceYearly:
		return 365
	}
	return 0
}

// Valid reports whether the cadence is one of the known values.
func (c Cadence) Valid() bool {
	return c.DeltaDays() > 0
}

// DueStatus describes how close a subscription is to its due date.
type DueStatus string

const (
	DueStatusOK      DueStatus = "ok"
	DueStatusDueSoon DueStatus = "due_soon"
	DueStatusDue     DueStatus = "due"
)

// Subscription is a recurring shared cost. Paying it generates an Expense and
// advances NextDueDate by the cadence delta from the previous due date, so
// missed cycles compound rather than resetting to today.
type Subscription struct {
	// ID is the unique identifier for the subscription (UUID format).
	ID string

	// GroupID is the group this subscription belongs to.
	GroupID string

	// Name is the subscription name, unique within its group.
	Name string

	// Amount is the recurring amount in cents. Always > 0.
	Amount money.Cents

	// Cadence is the recurrence schedule.
	Cadence Cadence

	// NextDueDate is the date the next payment falls due (date precision).
	NextDueDate time.Time

	// Notes is an optional free-text note.
	Notes string

	// CategoryID optionally tags generated expenses. Empty when untagged.
	CategoryID string

	// CreatedByID references the member who created the subscription.
	CreatedByID string

	// Members are the share weights the amount is allocated across on pay.
	Members []SubscriptionMember

	// CreatedAt and UpdatedAt are Unix bookkeeping timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// SubscriptionMember is a positive integer share weight for one member.
type SubscriptionMember struct {
	UserID string
	Share  int64
}

// DueStatusOn classifies the subscription against the given day:
// due when the due date is on or before today, due_soon within seven days,
// ok otherwise.
func (s *Subscription) DueStatusOn(today time.Time) DueStatus {
	due := dateOnly(s.NextDueDate)
	today = dateOnly(today)
	if !due.After(today) {
		return DueStatusDue
	}
	days := int(due.Sub(today).Hours() / 24)
	if days <= 7 {
		return DueStatusDueSoon
	}
	return DueStatusOK
}

// HasMember reports whether the user participates in the subscription.
func (s *Subscription) HasMember(userID string) bool {
	for _, m := range s.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
