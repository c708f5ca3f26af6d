// Package cards holds blackjack card ranks, hand scoring and the seeded shoe
// every draw comes from.
package cards

import (
	"fmt"
	"strconv"
	"strings"
)

// Rank is a card rank from Ace (1) to King (13). Suits play no part in
// blackjack so they are not modelled.
type Rank uint32

const (
	Ace   Rank = 1
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
)

// Ranks lists every rank in order.
var Ranks = [...]Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

// String returns the short rank symbol (e.g. "A", "7", "K").
func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	if r >= Two && r <= Nine {
		return strconv.Itoa(int(r))
	}
	return "?"
}

// Valid reports whether r is one of the thirteen ranks.
func (r Rank) Valid() bool {
	return r >= Ace && r <= King
}

// IsAce returns true if the card is an Ace
func (r Rank) IsAce() bool {
	return r == Ace
}

// Value returns the fixed blackjack value of a non-ace rank. Face cards
// count 10. An ace reports 1; Score handles its alternative value.
func (r Rank) Value() uint32 {
	if r > Ten {
		return 10
	}
	return uint32(r)
}

// Hand is an ordered sequence of ranks.
type Hand []Rank

// String renders the hand as space separated rank symbols.
func (h Hand) String() string {
	parts := make([]string, len(h))
	for i, r := range h {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}

// Score is shorthand for Score(h).
func (h Hand) Score() uint32 {
	return Score(h)
}

// Clone returns a copy that shares no backing array with h.
func (h Hand) Clone() Hand {
	if h == nil {
		return nil
	}
	out := make(Hand, len(h))
	copy(out, h)
	return out
}

// ParseRank parses a rank symbol: A, 2-9, T (or 10), J, Q, K, case
// insensitive. Numeric ranks 1 and 11-13 are accepted as well.
func ParseRank(s string) (Rank, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	switch sym {
	case "A":
		return Ace, nil
	case "T":
		return Ten, nil
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	}
	n, err := strconv.Atoi(sym)
	if err != nil || !Rank(n).Valid() {
		return 0, fmt.Errorf("invalid rank %q", s)
	}
	return Rank(n), nil
}

// ParseHand parses a list of rank symbols.
func ParseHand(symbols []string) (Hand, error) {
	h := make(Hand, 0, len(symbols))
	for i, s := range symbols {
		r, err := ParseRank(s)
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i+1, err)
		}
		h = append(h, r)
	}
	return h, nil
}
