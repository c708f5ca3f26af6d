package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/cards"
	"github.com/lox/blackjack/internal/tx"
)

func sampleState() *State {
	s := NewState()
	s.Tables["bob"] = &Table{
		Bank:  cards.Hand{cards.Ten, cards.Seven},
		User:  cards.Hand{cards.Ace, cards.Nine},
		Bet:   25,
		Phase: PhaseWon,
	}
	s.Tables["alice"] = &Table{
		Bank:           cards.Hand{cards.Six, cards.Eight},
		User:           cards.Hand{cards.Five, cards.Seven},
		Bet:            10,
		Phase:          PhaseOngoing,
		BankDrawsOnHit: true,
	}
	s.Wager["alice"] = 90
	s.Wager["bob"] = 1
	s.Rewards["bob"] = 25
	return s
}

func TestEncodeIsCanonical(t *testing.T) {
	t.Parallel()

	a := sampleState()

	// Same content inserted in a different order.
	b := NewState()
	b.Rewards["bob"] = 25
	b.Wager["bob"] = 1
	b.Wager["alice"] = 90
	b.Tables["alice"] = a.Tables["alice"].Clone()
	b.Tables["bob"] = a.Tables["bob"].Clone()

	assert.Equal(t, Encode(a), Encode(b))
	assert.Equal(t, Commit(a), Commit(b))

	b.Wager["bob"] = 2
	assert.NotEqual(t, Commit(a), Commit(b))
}

func TestEncodeLayout(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.Wager["al"] = 0x01020304

	want := []byte{
		0, 0, 0, 0, // tables
		1, 0, 0, 0, // wager entries
		2, 0, 0, 0, 'a', 'l',
		4, 3, 2, 1,
		0, 0, 0, 0, // rewards
	}
	assert.Equal(t, want, Encode(s))
}

func TestDecodeInvertsEncode(t *testing.T) {
	t.Parallel()

	enc := Encode(sampleState())
	s, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, enc, Encode(s))
	assert.True(t, s.Tables["alice"].BankDrawsOnHit)
	assert.Equal(t, PhaseWon, s.Tables["bob"].Phase)
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	t.Parallel()

	enc := Encode(sampleState())

	tests := map[string][]byte{
		"truncated": enc[:len(enc)-1],
		"trailing":  append(append([]byte{}, enc...), 0),
		"huge hand": {1, 0, 0, 0, 1, 0, 0, 0, 'a', 0xff, 0xff, 0xff, 0xff},
		"bad phase": {1, 0, 0, 0, 1, 0, 0, 0, 'a', 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 9, 0, 0, 0, 0, 0, 0, 0, 0},
		"out of order": {
			0, 0, 0, 0,
			2, 0, 0, 0,
			1, 0, 0, 0, 'b', 1, 0, 0, 0,
			1, 0, 0, 0, 'a', 1, 0, 0, 0,
			0, 0, 0, 0,
		},
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			assert.ErrorIs(t, err, ErrCorruptState)
		})
	}
}

func TestActionCodec(t *testing.T) {
	t.Parallel()

	actions := []Action{
		StartGame{Bet: 10},
		Hit{},
		Stand{},
		DoubleDown{},
		Deposit{Amount: 1000},
		Withdraw{Amount: 7, Token: "vitamin"},
		Cleanup{Nonce: uuid.MustParse("0191b6a4-7c1e-7a00-8000-000000000001")},
	}
	for _, a := range actions {
		got, err := DecodeAction(EncodeAction(a))
		require.NoError(t, err, a.Name())
		assert.Equal(t, a, got)
	}

	_, err := DecodeAction([]byte{0x91, 0x63})
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = DecodeAction([]byte{0x91, 0x00})
	assert.ErrorIs(t, err, ErrInvalidAction, "start game without a bet")
	_, err = DecodeAction(nil)
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestApplyDecodesBlobAndTransfers(t *testing.T) {
	t.Parallel()

	e := New(DefaultRules())
	txn := tx.New(alice,
		tx.TransferBlob("oranj", tx.Transfer{Sender: alice, Recipient: "blackjack", Amount: 100}),
		ActionBlob("blackjack", Deposit{Amount: 100}),
		ActionBlob("blackjack", StartGame{Bet: 10}),
	)
	ctx := tx.Context{BlockHash: blockHash, BlockHeight: 1}

	_, s, err := e.Apply(NewState(), txn, 1, ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), s.Balance(alice))

	_, s, err = e.Apply(s, txn, 2, ctx)
	require.NoError(t, err)
	assert.True(t, s.Ongoing(alice))
	assert.Equal(t, uint32(90), s.Balance(alice))

	_, _, err = e.Apply(s, txn, 0, ctx)
	assert.ErrorIs(t, err, ErrInvalidAction, "transfer blob is not ours")
	_, _, err = e.Apply(s, txn, 9, ctx)
	assert.ErrorIs(t, err, ErrInvalidAction)
}
