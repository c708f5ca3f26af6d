package cards

import "slices"

// Bust is the lowest score that loses outright.
const Bust = 22

// Score returns the best blackjack total for the hand.
//
// Every total reachable through the ace choices is tracked, starting from
// {0}: an ace forks each total into t+1 and t+11, any other rank adds its
// value. The result is the largest total not above 21, or the smallest total
// when every branch busts.
func Score(hand []Rank) uint32 {
	totals := []uint32{0}
	for _, card := range hand {
		if card.IsAce() {
			forked := make([]uint32, 0, len(totals)*2)
			for _, t := range totals {
				forked = append(forked, t+1, t+11)
			}
			totals = forked
			continue
		}
		v := card.Value()
		for i := range totals {
			totals[i] += v
		}
	}

	slices.Sort(totals)
	for i := len(totals) - 1; i >= 0; i-- {
		if totals[i] <= 21 {
			return totals[i]
		}
	}
	return totals[0]
}

// IsBust reports whether the hand's best score exceeds 21.
func IsBust(hand []Rank) bool {
	return Score(hand) >= Bust
}
