package models

// Group represents a set of people sharing expenses in a single currency.
//
// Invariants: the owner is always a member; a group cannot be deleted while
// any member carries a nonzero balance.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Flat 4B").
	Name string

	// OwnerID references the user who created and administers the group.
	OwnerID string

	// Currency is a free-text currency label, uppercased on the way in.
	// It is never converted; it only affects display.
	Currency string

	// Members is the list of member user IDs, owner included.
	Members []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether the user is a current member of the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// InviteStatus is the lifecycle state of a group invite.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

// Invite represents an invitation of a user into a group. At most one pending
// invite may exist per (group, invitee).
type Invite struct {
	ID        string
	GroupID   string
	InviterID string
	InviteeID string
	Status    InviteStatus

	// CreatedAt is the Unix timestamp when the invite was sent.
	CreatedAt int64
}
