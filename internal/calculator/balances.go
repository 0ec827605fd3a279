package calculator

import "github.com/splitpot/splitpot/internal/money"

// ExpenseForBalance carries the minimal expense information needed for
// balance aggregation.
type ExpenseForBalance struct {
	PayerID string
	Amount  money.Cents
	Splits  []Allocation
}

// SettlementForBalance carries the minimal settlement information needed for
// balance aggregation. Only settlements in an applied status belong here.
type SettlementForBalance struct {
	PayerID    string
	ReceiverID string
	Amount     money.Cents
}

// ComputeBalances folds expenses and applied settlements into a per-member
// net balance. Positive means the group collectively owes that member;
// negative means the member owes the group.
//
// Every listed member starts at zero. Splits or settlement parties that are
// not current members are ignored.
func ComputeBalances(memberIDs []string, expenses []ExpenseForBalance, settlements []SettlementForBalance) map[string]money.Cents {
	balances := make(map[string]money.Cents, len(memberIDs))
	for _, id := range memberIDs {
		balances[id] = 0
	}

	add := func(id string, delta money.Cents) {
		if _, ok := balances[id]; ok {
			balances[id] += delta
		}
	}

	for _, e := range expenses {
		add(e.PayerID, e.Amount)
		for _, s := range e.Splits {
			add(s.MemberID, -s.Amount)
		}
	}

	for _, s := range settlements {
		add(s.PayerID, s.Amount)
		add(s.ReceiverID, -s.Amount)
	}

	return balances
}
