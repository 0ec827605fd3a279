package calculator

import (
	"sort"

	"github.com/splitpot/splitpot/internal/money"
)

// Payment is a suggested transfer that reduces group debt.
type Payment struct {
	PayerID    string
	ReceiverID string
	Amount     money.Cents
}

type party struct {
	id     string
	amount money.Cents
}

// PlanSettlements produces an ordered list of payments that would drive every
// balance to exactly zero. Members with positive balance are creditors,
// negative are debtors; the largest remaining debtor is repeatedly matched
// against the largest remaining creditor.
//
// The greedy matching does not guarantee the theoretical minimum number of
// payments (optimal netting is NP-hard) but it terminates in O(n) matches and
// leaves no residual balance. Ordering is deterministic: magnitude descending
// with member ID as the tie-break, so the same balances always plan the same
// payments.
func PlanSettlements(balances map[string]money.Cents) []Payment {
	var creditors, debtors []party
	for id, amount := range balances {
		switch {
		case amount > 0:
			creditors = append(creditors, party{id: id, amount: amount})
		case amount < 0:
			debtors = append(debtors, party{id: id, amount: -amount})
		}
	}

	byMagnitude := func(parties []party) {
		sort.Slice(parties, func(i, j int) bool {
			if parties[i].amount != parties[j].amount {
				return parties[i].amount > parties[j].amount
			}
			return parties[i].id < parties[j].id
		})
	}
	byMagnitude(creditors)
	byMagnitude(debtors)

	var payments []Payment
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].amount
		if creditors[j].amount < amount {
			amount = creditors[j].amount
		}

		payments = append(payments, Payment{
			PayerID:    debtors[i].id,
			ReceiverID: creditors[j].id,
			Amount:     amount,
		})

		debtors[i].amount -= amount
		creditors[j].amount -= amount
		if debtors[i].amount == 0 {
			i++
		}
		if creditors[j].amount == 0 {
			j++
		}
	}

	return payments
}
