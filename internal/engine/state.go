package engine

import (
	"maps"

	"github.com/lox/blackjack/internal/cards"
	"github.com/lox/blackjack/internal/tx"
)

// Phase is where a table is in its lifecycle. The numeric values are part of
// the state commitment.
type Phase uint8

const (
	PhaseLost Phase = iota
	PhaseOngoing
	PhaseWon
)

// String returns the string representation of a phase
func (p Phase) String() string {
	switch p {
	case PhaseLost:
		return "lost"
	case PhaseOngoing:
		return "ongoing"
	case PhaseWon:
		return "won"
	default:
		return "unknown"
	}
}

// Table is one identity's current or most recently finished game.
type Table struct {
	Bank  cards.Hand
	User  cards.Hand
	Bet   uint32
	Phase Phase
	// BankDrawsOnHit is the bank-draw policy captured when the game started.
	BankDrawsOnHit bool
}

// Ongoing reports whether the game is still being played.
func (t *Table) Ongoing() bool {
	return t != nil && t.Phase == PhaseOngoing
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := *t
	c.Bank = t.Bank.Clone()
	c.User = t.User.Clone()
	return &c
}

// State is the full contract state. It is treated as a value: the engine
// never mutates a State it was given.
type State struct {
	Tables  map[tx.Identity]*Table
	Wager   map[tx.Identity]uint32
	Rewards map[tx.Identity]uint32
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		Tables:  make(map[tx.Identity]*Table),
		Wager:   make(map[tx.Identity]uint32),
		Rewards: make(map[tx.Identity]uint32),
	}
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	if s == nil {
		return NewState()
	}
	c := &State{
		Tables:  make(map[tx.Identity]*Table, len(s.Tables)),
		Wager:   maps.Clone(s.Wager),
		Rewards: maps.Clone(s.Rewards),
	}
	if c.Wager == nil {
		c.Wager = make(map[tx.Identity]uint32)
	}
	if c.Rewards == nil {
		c.Rewards = make(map[tx.Identity]uint32)
	}
	for id, t := range s.Tables {
		c.Tables[id] = t.Clone()
	}
	return c
}

// Table returns the identity's table, if one exists.
func (s *State) Table(id tx.Identity) (*Table, bool) {
	t, ok := s.Tables[id]
	return t, ok
}

// Ongoing reports whether the identity has a game in progress.
func (s *State) Ongoing(id tx.Identity) bool {
	return s.Tables[id].Ongoing()
}

// Balance returns the wagering balance of id.
func (s *State) Balance(id tx.Identity) uint32 {
	return s.Wager[id]
}

// Reward returns the reward balance of id.
func (s *State) Reward(id tx.Identity) uint32 {
	return s.Rewards[id]
}
