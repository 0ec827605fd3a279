package service

// Event types delivered through the notification hub. Observers subscribe by
// type on the client side, so these names are part of the wire contract.
const (
	EventGroupCreated        = "group_created"
	EventGroupDeleted        = "group_deleted"
	EventMemberAdded         = "member_added"
	EventMemberRemoved       = "member_removed"
	EventInviteReceived      = "invite_received"
	EventInviteAccepted      = "invite_accepted"
	EventExpenseCreated      = "expense_created"
	EventExpenseUpdated      = "expense_updated"
	EventExpenseDeleted      = "expense_deleted"
	EventSettlementRecorded  = "settlement_recorded"
	EventSettlementConfirmed = "settlement_confirmed"
	EventSubscriptionPaid    = "subscription_paid"
	EventSubscriptionDue     = "subscription_due"
)
