package engine

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/cards"
	"github.com/lox/blackjack/internal/tx"
)

func transfer(token tx.ContractName, from, to tx.Identity, amount uint64) TokenTransfer {
	return TokenTransfer{Token: token, Transfer: tx.Transfer{Sender: from, Recipient: to, Amount: amount}}
}

func TestDeposit(t *testing.T) {
	t.Parallel()

	e := New(DefaultRules())
	good := transfer("oranj", alice, "blackjack", 50)

	t.Run("credits the wager balance", func(t *testing.T) {
		out, s, err := e.Execute(funded(10), Call{Identity: alice, Action: Deposit{Amount: 50}, Transfers: []TokenTransfer{good}})
		require.NoError(t, err)
		assert.Equal(t, uint32(60), s.Balance(alice))
		assert.Contains(t, string(out), "new balance is 60")
	})

	mismatches := []struct {
		name      string
		transfers []TokenTransfer
		reason    string
	}{
		{"no transfer", nil, "Missing oranj transfer blob"},
		{"wrong token", []TokenTransfer{transfer("vitamin", alice, "blackjack", 50)}, "Missing oranj transfer blob"},
		{"wrong amount", []TokenTransfer{transfer("oranj", alice, "blackjack", 49)}, "Transfer amount is not the same as the deposit amount"},
		{"wrong sender", []TokenTransfer{transfer("oranj", "bob", "blackjack", 50)}, "Transfer is not from the user"},
		{"wrong recipient", []TokenTransfer{transfer("oranj", alice, "casino", 50)}, "Transfer is not for the blackjack contract"},
	}
	for _, tt := range mismatches {
		t.Run(tt.name, func(t *testing.T) {
			s := funded(10)
			_, after, err := e.Execute(s, Call{Identity: alice, Action: Deposit{Amount: 50}, Transfers: tt.transfers})
			require.ErrorIs(t, err, ErrTransferMismatch)
			assert.EqualError(t, err, tt.reason)
			assert.Same(t, s, after)
		})
	}

	t.Run("overflow fails closed", func(t *testing.T) {
		s := funded(math.MaxUint32)
		_, after, err := e.Execute(s, Call{Identity: alice, Action: Deposit{Amount: 1},
			Transfers: []TokenTransfer{transfer("oranj", alice, "blackjack", 1)}})
		require.ErrorIs(t, err, ErrBalanceOverflow)
		assert.Equal(t, uint32(math.MaxUint32), after.Balance(alice))
	})
}

func TestWithdraw(t *testing.T) {
	t.Parallel()

	e := scripted(t, DefaultRules(), cards.Five, cards.Six, cards.Seven, cards.Eight)
	payout := transfer("oranj", "blackjack", alice, 40)

	t.Run("debits against the payout transfer", func(t *testing.T) {
		_, s, err := e.Execute(funded(100), Call{Identity: alice, Action: Withdraw{Amount: 40, Token: "oranj"},
			Transfers: []TokenTransfer{payout}})
		require.NoError(t, err)
		assert.Equal(t, uint32(60), s.Balance(alice))
	})

	t.Run("reward token", func(t *testing.T) {
		s := NewState()
		s.Rewards[alice] = 15
		_, s, err := e.Execute(s, Call{Identity: alice, Action: Withdraw{Amount: 15, Token: "vitamin"},
			Transfers: []TokenTransfer{transfer("vitamin", "blackjack", alice, 15)}})
		require.NoError(t, err)
		assert.Equal(t, uint32(0), s.Reward(alice))
	})

	t.Run("blocked mid-game", func(t *testing.T) {
		s := mustExecute(t, e, funded(100), StartGame{Bet: 10})
		_, _, err := e.Execute(s, Call{Identity: alice, Action: Withdraw{Amount: 40, Token: "oranj"},
			Transfers: []TokenTransfer{payout}})
		assert.ErrorIs(t, err, ErrGameInProgress)
	})

	failures := []struct {
		name      string
		state     *State
		action    Withdraw
		transfers []TokenTransfer
		want      error
	}{
		{"unknown token", funded(100), Withdraw{Amount: 40, Token: "gold"}, []TokenTransfer{payout}, ErrInvalidToken},
		{"unknown user", NewState(), Withdraw{Amount: 40, Token: "oranj"}, []TokenTransfer{payout}, ErrInsufficientFunds},
		{"more than balance", funded(39), Withdraw{Amount: 40, Token: "oranj"}, []TokenTransfer{payout}, ErrInsufficientFunds},
		{"no payout transfer", funded(100), Withdraw{Amount: 40, Token: "oranj"}, nil, ErrTransferMismatch},
		{"payout amount differs", funded(100), Withdraw{Amount: 40, Token: "oranj"},
			[]TokenTransfer{transfer("oranj", "blackjack", alice, 41)}, ErrTransferMismatch},
		{"payout on other token", funded(100), Withdraw{Amount: 40, Token: "oranj"},
			[]TokenTransfer{transfer("vitamin", "blackjack", alice, 40)}, ErrTransferMismatch},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			before := Encode(tt.state)
			_, after, err := e.Execute(tt.state, Call{Identity: alice, Action: tt.action, Transfers: tt.transfers})
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, Encode(after))
		})
	}
}

func TestCleanup(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.Tables["done"] = &Table{User: cards.Hand{cards.Ten, cards.Nine}, Bank: cards.Hand{cards.Ten, cards.Ten}, Bet: 10, Phase: PhaseLost}
	s.Tables["won"] = &Table{Bet: 10, Phase: PhaseWon}
	s.Tables["playing"] = &Table{User: cards.Hand{cards.Two, cards.Three}, Bank: cards.Hand{cards.Four, cards.Five}, Bet: 10, Phase: PhaseOngoing}
	s.Wager["done"] = 0
	s.Wager["playing"] = 5
	s.Rewards["won"] = 0
	s.Rewards["playing"] = 3

	e := New(DefaultRules())
	once := mustExecute(t, e, s, Cleanup{Nonce: uuid.New()})
	twice := mustExecute(t, e, once, Cleanup{Nonce: uuid.New()})

	assert.Equal(t, Encode(once), Encode(twice))
	assert.Len(t, once.Tables, 1)
	assert.True(t, once.Ongoing("playing"))
	assert.Equal(t, map[tx.Identity]uint32{"playing": 5}, once.Wager)
	assert.Equal(t, map[tx.Identity]uint32{"playing": 3}, once.Rewards)

	// Source state keeps everything.
	assert.Len(t, s.Tables, 3)
}

func TestBalancesNeverUnderflow(t *testing.T) {
	t.Parallel()

	e := New(DefaultRules())
	actions := []Action{
		StartGame{Bet: 10}, StartGame{Bet: 40}, Hit{}, Stand{}, DoubleDown{},
		Withdraw{Amount: 25, Token: "oranj"}, Deposit{Amount: 5},
	}

	s := funded(60)
	for i := 0; i < 200; i++ {
		a := actions[(i*7+i/3)%len(actions)]
		c := Call{
			Identity: alice,
			Action:   a,
			Seed:     []byte{byte(i), byte(i >> 8)},
			Transfers: []TokenTransfer{
				transfer("oranj", alice, "blackjack", 5),
				transfer("oranj", "blackjack", alice, 25),
			},
		}
		before := s.Balance(alice)
		_, next, err := e.Execute(s, c)
		if err != nil {
			assert.Same(t, s, next, "failed %s must not move state", a.Name())
			assert.Equal(t, before, next.Balance(alice))
			continue
		}
		s = next
		// Bookkeeping: wager balance plus any stake on an ongoing table
		// never exceeds what came in.
		assert.LessOrEqual(t, s.Balance(alice), uint32(60+5*200))
	}
}

func TestDepositKeepsRoomForOpenBet(t *testing.T) {
	t.Parallel()

	// user 5,7 and bank 6,8; the bank then busts on the king.
	e := scripted(t, DefaultRules(), cards.Five, cards.Six, cards.Seven, cards.Eight, cards.King)
	s := mustExecute(t, e, funded(100), StartGame{Bet: 10})
	require.Equal(t, uint32(90), s.Balance(alice))

	deposit := func(amount uint32) Call {
		return Call{Identity: alice, Action: Deposit{Amount: amount},
			Transfers: []TokenTransfer{transfer("oranj", alice, "blackjack", uint64(amount))}}
	}

	_, after, err := e.Execute(s, deposit(math.MaxUint32-100+1))
	require.ErrorIs(t, err, ErrBalanceOverflow)
	assert.Same(t, s, after)

	_, s, err = e.Execute(s, deposit(math.MaxUint32-100))
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32-10), s.Balance(alice))

	s = mustExecute(t, e, s, Stand{})
	table, _ := s.Table(alice)
	assert.Equal(t, PhaseWon, table.Phase)
	assert.Equal(t, uint32(math.MaxUint32), s.Balance(alice))
	assert.Equal(t, uint32(10), s.Reward(alice))
}

func TestStartGameNeedsRewardHeadroom(t *testing.T) {
	t.Parallel()

	e := scripted(t, DefaultRules(), cards.Five, cards.Six, cards.Seven, cards.Eight)

	s := funded(100)
	s.Rewards[alice] = math.MaxUint32 - 19
	_, after, err := e.Execute(s, call(StartGame{Bet: 10}))
	require.ErrorIs(t, err, ErrBalanceOverflow)
	assert.Same(t, s, after)

	s.Rewards[alice] = math.MaxUint32 - 20
	s = mustExecute(t, e, s, StartGame{Bet: 10})
	assert.True(t, s.Ongoing(alice))
}
