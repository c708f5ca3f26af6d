package cards

import (
	rand "math/rand/v2"

	"github.com/lox/blackjack/internal/randutil"
)

// DecksPerShoe is the number of 13-rank packs per suit group in a shoe. A
// shoe holds four of each rank.
const DecksPerShoe = 4

// Drawer yields cards one at a time.
type Drawer interface {
	Draw() Rank
}

// DrawerFunc builds a Drawer for an action from its seed. The label
// distinguishes the streams of different actions sharing one seed.
type DrawerFunc func(label string, seed []byte) Drawer

// Shoe is a shuffled pack of ranks dealt without replacement.
type Shoe struct {
	cards [len(Ranks) * DecksPerShoe]Rank
	next  int
	rng   *rand.Rand
}

// NewShoe returns a shoe shuffled by a generator derived from label and
// seed. The same inputs always produce the same card order.
func NewShoe(label string, seed []byte) *Shoe {
	return newShoe(randutil.FromBytes(label, seed))
}

// SeededShoe is the production DrawerFunc.
func SeededShoe(label string, seed []byte) Drawer {
	return NewShoe(label, seed)
}

func newShoe(rng *rand.Rand) *Shoe {
	s := &Shoe{rng: rng}
	i := 0
	for range DecksPerShoe {
		for _, r := range Ranks {
			s.cards[i] = r
			i++
		}
	}
	s.Shuffle()
	return s
}

// Shuffle shuffles the shoe using Fisher-Yates
func (s *Shoe) Shuffle() {
	s.next = 0
	for i := len(s.cards) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	}
}

// Draw deals the next card. An exhausted shoe is reshuffled from the same
// generator, which keeps the sequence deterministic.
func (s *Shoe) Draw() Rank {
	if s.next >= len(s.cards) {
		s.Shuffle()
	}
	card := s.cards[s.next]
	s.next++
	return card
}

// Remaining returns the number of cards left before a reshuffle.
func (s *Shoe) Remaining() int {
	return len(s.cards) - s.next
}

// Sequence is a Drawer that replays a fixed list of ranks, cycling when
// exhausted. It is used to script deals.
type Sequence struct {
	cards []Rank
	next  int
}

// NewSequence returns a Drawer dealing the given ranks in order.
func NewSequence(ranks ...Rank) *Sequence {
	if len(ranks) == 0 {
		panic("cards: sequence needs at least one rank")
	}
	return &Sequence{cards: ranks}
}

// Draw returns the next scripted rank.
func (s *Sequence) Draw() Rank {
	card := s.cards[s.next%len(s.cards)]
	s.next++
	return card
}

// Drawn returns how many cards have been drawn so far.
func (s *Sequence) Drawn() int {
	return s.next
}
