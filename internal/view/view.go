// Package view renders read-only query results from a state snapshot.
package view

import (
	"slices"

	"github.com/lox/blackjack/internal/cards"
	"github.com/lox/blackjack/internal/engine"
	"github.com/lox/blackjack/internal/tx"
)

// Table is one identity's table as shown to clients.
type Table struct {
	Identity  tx.Identity `json:"identity"`
	User      []string    `json:"user"`
	UserScore uint32      `json:"user_score"`
	Bank      []string    `json:"bank"`
	BankScore uint32      `json:"bank_score"`
	Bet       uint32      `json:"bet"`
	Phase     string      `json:"phase"`
	// BankDrawsOnHit is the policy the game was started under.
	BankDrawsOnHit bool `json:"bank_draws_on_hit"`
}

// Balances maps token contract names to amounts, so the JSON form is
// {"oranj": 90, "vitamin": 10} for the default tokens.
type Balances map[tx.ContractName]uint32

// State is the whole contract state as shown to clients.
type State struct {
	Tables     []Table                  `json:"tables"`
	Balances   map[tx.Identity]Balances `json:"balances"`
	Commitment string                   `json:"commitment"`
}

// TableOf returns the table for id, or false if id has never played.
func TableOf(s *engine.State, id tx.Identity) (Table, bool) {
	t, ok := s.Table(id)
	if !ok {
		return Table{}, false
	}
	return Table{
		Identity:       id,
		User:           ranks(t.User),
		UserScore:      t.User.Score(),
		Bank:           ranks(t.Bank),
		BankScore:      t.Bank.Score(),
		Bet:            t.Bet,
		Phase:          t.Phase.String(),
		BankDrawsOnHit: t.BankDrawsOnHit,
	}, true
}

// BalancesOf returns both balances of id. Unknown identities have zero
// balances.
func BalancesOf(s *engine.State, id tx.Identity, rules engine.Rules) Balances {
	return Balances{
		rules.WagerToken:  s.Balance(id),
		rules.RewardToken: s.Reward(id),
	}
}

// StateOf renders every table and balance in identity order.
func StateOf(s *engine.State, rules engine.Rules) State {
	ids := make(map[tx.Identity]struct{})
	for id := range s.Tables {
		ids[id] = struct{}{}
	}
	for id := range s.Wager {
		ids[id] = struct{}{}
	}
	for id := range s.Rewards {
		ids[id] = struct{}{}
	}
	sorted := make([]tx.Identity, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	slices.Sort(sorted)

	out := State{
		Tables:     []Table{},
		Balances:   make(map[tx.Identity]Balances, len(sorted)),
		Commitment: engine.Commit(s).String(),
	}
	for _, id := range sorted {
		if t, ok := TableOf(s, id); ok {
			out.Tables = append(out.Tables, t)
		}
		out.Balances[id] = BalancesOf(s, id, rules)
	}
	return out
}

func ranks(h cards.Hand) []string {
	out := make([]string, len(h))
	for i, r := range h {
		out[i] = r.String()
	}
	return out
}
