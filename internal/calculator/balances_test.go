package calculator

import (
	"math/rand"
	"testing"

	"github.com/splitpot/splitpot/internal/money"
)

func TestComputeBalances(t *testing.T) {
	tests := []struct {
		name        string
		members     []string
		expenses    []ExpenseForBalance
		settlements []SettlementForBalance
		want        map[string]money.Cents
	}{
		{
			name:    "no activity",
			members: []string{"a", "b"},
			want:    map[string]money.Cents{"a": 0, "b": 0},
		},
		{
			name:    "even two-person expense",
			members: []string{"a", "b"},
			expenses: []ExpenseForBalance{
				{PayerID: "b", Amount: 3000, Splits: []Allocation{{"a", 1500}, {"b", 1500}}},
			},
			want: map[string]money.Cents{"a": -1500, "b": 1500},
		},
		{
			name:    "settlement applied to both parties",
			members: []string{"a", "b"},
			expenses: []ExpenseForBalance{
				{PayerID: "b", Amount: 3000, Splits: []Allocation{{"a", 1500}, {"b", 1500}}},
			},
			settlements: []SettlementForBalance{
				{PayerID: "a", ReceiverID: "b", Amount: 1500},
			},
			want: map[string]money.Cents{"a": 0, "b": 0},
		},
		{
			name:    "split for a departed member is ignored",
			members: []string{"a", "b"},
			expenses: []ExpenseForBalance{
				{PayerID: "a", Amount: 900, Splits: []Allocation{{"a", 300}, {"b", 300}, {"ghost", 300}}},
			},
			// The ghost's 300 neither surfaces nor crashes; a keeps the credit.
			want: map[string]money.Cents{"a": 600, "b": -300},
		},
		{
			name:    "payer who left is ignored",
			members: []string{"a", "b"},
			expenses: []ExpenseForBalance{
				{PayerID: "ghost", Amount: 100, Splits: []Allocation{{"a", 50}, {"b", 50}}},
			},
			want: map[string]money.Cents{"a": -50, "b": -50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBalances(tt.members, tt.expenses, tt.settlements)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d balances, want %d", len(got), len(tt.want))
			}
			for id, want := range tt.want {
				if got[id] != want {
					t.Errorf("balance[%s] = %d, want %d", id, got[id], want)
				}
			}
		})
	}
}

// TestBalancesSumToZero checks that money is neither created nor destroyed:
// as long as every split and settlement references a member, the balances of
// any expense history sum to exactly zero.
func TestBalancesSumToZero(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	members := []string{"a", "b", "c", "d", "e"}

	for i := 0; i < 500; i++ {
		var expenses []ExpenseForBalance
		for e := 0; e < 1+rng.Intn(10); e++ {
			total := money.Cents(1 + rng.Int63n(100_000))
			parties := make([]Party, len(members))
			for j, id := range members {
				parties[j] = Party{MemberID: id, Share: 1 + rng.Int63n(5)}
			}
			payer := members[rng.Intn(len(members))]
			splits, err := Allocate(total, parties, payer)
			if err != nil {
				t.Fatalf("Allocate failed: %v", err)
			}
			expenses = append(expenses, ExpenseForBalance{PayerID: payer, Amount: total, Splits: splits})
		}

		var settlements []SettlementForBalance
		for s := 0; s < rng.Intn(4); s++ {
			payer := members[rng.Intn(len(members))]
			receiver := members[rng.Intn(len(members))]
			if payer == receiver {
				continue
			}
			settlements = append(settlements, SettlementForBalance{
				PayerID:    payer,
				ReceiverID: receiver,
				Amount:     money.Cents(1 + rng.Int63n(10_000)),
			})
		}

		balances := ComputeBalances(members, expenses, settlements)
		var sum money.Cents
		for _, b := range balances {
			sum += b
		}
		if sum != 0 {
			t.Fatalf("balances sum to %d, want 0: %v", sum, balances)
		}
	}
}
