package engine

import (
	"fmt"
	"math"

	"github.com/lox/blackjack/internal/cards"
)

// bankStandsAbove is the score above which the bank stops drawing.
const bankStandsAbove = 16

func (x *execution) startGame(a StartGame) (Outcome, error) {
	if x.state.Ongoing(x.user) {
		return "", fail(KindGameInProgress, "Game already started for user %s", x.user)
	}
	if a.Bet < x.rules.MinBet {
		return "", fail(KindBetTooLow, "Minimum bet is %d", x.rules.MinBet)
	}
	// A doubled win credits twice the bet as reward.
	if !fits(x.state.Reward(x.user), 2*uint64(a.Bet)) {
		return "", fail(KindBalanceOverflow, "Reward balance cannot pay out a bet of %d for user %s", a.Bet, x.user)
	}
	if err := x.debit(x.state.Wager, a.Bet, "balance"); err != nil {
		return "", err
	}
	d, err := x.drawerFor("deal", SeedBlock)
	if err != nil {
		return "", err
	}

	t := &Table{
		Bet:            a.Bet,
		Phase:          PhaseOngoing,
		BankDrawsOnHit: x.rules.BankDrawsOnHit,
	}
	t.User = append(t.User, d.Draw())
	t.Bank = append(t.Bank, d.Draw())
	t.User = append(t.User, d.Draw())
	t.Bank = append(t.Bank, d.Draw())
	x.state.Tables[x.user] = t

	if t.User.Score() == 21 {
		if err := x.win(t); err != nil {
			return "", err
		}
		return x.outcome("Initiated new game for user %s, BLACKJACK!", x.user), nil
	}
	if t.Bank.Score() == 21 {
		t.Phase = PhaseLost
		return x.outcome("Initiated new game for user %s, bank has blackjack, you lose", x.user), nil
	}
	return x.outcome("Initiated new game for user %s", x.user), nil
}

func (x *execution) hit() (Outcome, error) {
	t, err := x.ongoingTable("hit")
	if err != nil {
		return "", err
	}
	d, err := x.drawerFor("hit", SeedBlock)
	if err != nil {
		return "", err
	}

	t.User = append(t.User, d.Draw())
	bankDrew := false
	if t.BankDrawsOnHit && t.Bank.Score() <= bankStandsAbove {
		t.Bank = append(t.Bank, d.Draw())
		bankDrew = true
	}

	switch score := t.User.Score(); {
	case score == 21:
		if err := x.win(t); err != nil {
			return "", err
		}
		return x.outcome("Hit for user %s, BLACKJACK!", x.user), nil
	case score > 21:
		t.Phase = PhaseLost
		return x.outcome("Hit for user %s, BUST, you lose", x.user), nil
	}

	if bankDrew {
		switch score := t.Bank.Score(); {
		case score > 21:
			if err := x.win(t); err != nil {
				return "", err
			}
			return x.outcome("Hit for user %s, bank bust, you win", x.user), nil
		case score == 21:
			t.Phase = PhaseLost
			return x.outcome("Hit for user %s, bank made 21, you lose", x.user), nil
		}
	}
	return x.outcome("Hit for user %s, still ongoing", x.user), nil
}

func (x *execution) stand() (Outcome, error) {
	t, err := x.ongoingTable("stand")
	if err != nil {
		return "", err
	}
	d, err := x.drawerFor("stand", x.rules.ResolutionSeed)
	if err != nil {
		return "", err
	}
	bankPlays(t, d)
	return x.resolve(t, fmt.Sprintf("Stand for user %s", x.user))
}

func (x *execution) doubleDown() (Outcome, error) {
	t, err := x.ongoingTable("double down")
	if err != nil {
		return "", err
	}
	if x.state.Balance(x.user) < t.Bet {
		return "", fail(KindInsufficientFunds, "Insufficient balance for double down. You have %d but need %d",
			x.state.Balance(x.user), t.Bet)
	}
	if t.Bet > ^uint32(0)-t.Bet {
		return "", fail(KindBalanceOverflow, "Doubled bet overflows for user %s", x.user)
	}
	d, err := x.drawerFor("double", x.rules.ResolutionSeed)
	if err != nil {
		return "", err
	}
	if err := x.debit(x.state.Wager, t.Bet, "balance"); err != nil {
		return "", err
	}
	t.Bet *= 2

	t.User = append(t.User, d.Draw())
	prefix := fmt.Sprintf("DoubleDown for user %s, bet doubled to %d", x.user, t.Bet)
	if cards.IsBust(t.User) {
		t.Phase = PhaseLost
		return x.outcome("%s, BUST, you lose", prefix), nil
	}
	bankPlays(t, d)
	return x.resolve(t, prefix)
}

// bankPlays draws bank cards until the bank's score exceeds 16.
func bankPlays(t *Table, d cards.Drawer) {
	for t.Bank.Score() <= bankStandsAbove {
		t.Bank = append(t.Bank, d.Draw())
	}
}

// resolve settles a table once the bank has played.
func (x *execution) resolve(t *Table, prefix string) (Outcome, error) {
	user, bank := t.User.Score(), t.Bank.Score()
	switch {
	case bank > 21:
		if err := x.win(t); err != nil {
			return "", err
		}
		return x.outcome("%s, bank bust, you win", prefix), nil
	case user == bank:
		if err := x.push(t); err != nil {
			return "", err
		}
		return x.outcome("%s, tie, bet returned", prefix), nil
	case user > bank:
		if err := x.win(t); err != nil {
			return "", err
		}
		return x.outcome("%s, you win", prefix), nil
	default:
		t.Phase = PhaseLost
		return x.outcome("%s, you lose", prefix), nil
	}
}

func (x *execution) ongoingTable(action string) (*Table, error) {
	t, ok := x.state.Tables[x.user]
	if !ok {
		return nil, fail(KindNoActiveGame, "Table not setup. Start a new game first")
	}
	if !t.Ongoing() {
		return nil, fail(KindNoActiveGame, "Cannot %s on finished game", action)
	}
	return t, nil
}

// win refunds the bet and credits the same amount of reward.
func (x *execution) win(t *Table) error {
	t.Phase = PhaseWon
	if err := x.credit(x.state.Wager, t.Bet); err != nil {
		return err
	}
	return x.credit(x.state.Rewards, t.Bet)
}

// push settles a tie according to the push policy. The table counts as won
// either way.
func (x *execution) push(t *Table) error {
	if x.rules.Push == PushReward {
		return x.win(t)
	}
	t.Phase = PhaseWon
	return x.credit(x.state.Wager, t.Bet)
}

// fits reports whether amount can be added to balance without overflow.
func fits(balance uint32, amount uint64) bool {
	return uint64(balance)+amount <= math.MaxUint32
}

func (x *execution) outcome(format string, args ...any) Outcome {
	return Outcome(fmt.Sprintf(format, args...))
}
