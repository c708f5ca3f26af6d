package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tinylib/msgp/msgp"

	"github.com/lox/blackjack/internal/tx"
)

// Action is a requested state transition. The set is closed: only the types
// in this file implement it.
type Action interface {
	// Name returns the action's wire name.
	Name() string
	tag() uint8
}

// StartGame opens a table with the given bet.
type StartGame struct{ Bet uint32 }

// Hit draws one more card for the player.
type Hit struct{}

// Stand ends the player's turn and lets the bank play.
type Stand struct{}

// DoubleDown doubles the bet, draws exactly one card and stands.
type DoubleDown struct{}

// Deposit credits the wagering balance from an accompanying token transfer.
type Deposit struct{ Amount uint32 }

// Withdraw debits a balance against an outgoing token transfer.
type Withdraw struct {
	Amount uint32
	Token  tx.ContractName
}

// Cleanup compacts state. The nonce only makes each cleanup transaction
// unique.
type Cleanup struct{ Nonce uuid.UUID }

const (
	tagStartGame uint8 = iota
	tagHit
	tagStand
	tagDoubleDown
	tagDeposit
	tagWithdraw
	tagCleanup
)

func (StartGame) Name() string  { return "start_game" }
func (Hit) Name() string        { return "hit" }
func (Stand) Name() string      { return "stand" }
func (DoubleDown) Name() string { return "double_down" }
func (Deposit) Name() string    { return "deposit" }
func (Withdraw) Name() string   { return "withdraw" }
func (Cleanup) Name() string    { return "cleanup" }

func (StartGame) tag() uint8  { return tagStartGame }
func (Hit) tag() uint8        { return tagHit }
func (Stand) tag() uint8      { return tagStand }
func (DoubleDown) tag() uint8 { return tagDoubleDown }
func (Deposit) tag() uint8    { return tagDeposit }
func (Withdraw) tag() uint8   { return tagWithdraw }
func (Cleanup) tag() uint8    { return tagCleanup }

// EncodeAction returns the msgpack blob payload for a: an array holding the
// tag followed by the action's fields.
func EncodeAction(a Action) []byte {
	var b []byte
	switch a := a.(type) {
	case StartGame:
		b = msgp.AppendArrayHeader(b, 2)
		b = msgp.AppendUint8(b, a.tag())
		b = msgp.AppendUint32(b, a.Bet)
	case Deposit:
		b = msgp.AppendArrayHeader(b, 2)
		b = msgp.AppendUint8(b, a.tag())
		b = msgp.AppendUint32(b, a.Amount)
	case Withdraw:
		b = msgp.AppendArrayHeader(b, 3)
		b = msgp.AppendUint8(b, a.tag())
		b = msgp.AppendUint32(b, a.Amount)
		b = msgp.AppendString(b, string(a.Token))
	case Cleanup:
		b = msgp.AppendArrayHeader(b, 2)
		b = msgp.AppendUint8(b, a.tag())
		b = msgp.AppendBytes(b, a.Nonce[:])
	default:
		b = msgp.AppendArrayHeader(b, 1)
		b = msgp.AppendUint8(b, a.tag())
	}
	return b
}

// DecodeAction parses a blob payload produced by EncodeAction. Failures are
// reported as ErrInvalidAction.
func DecodeAction(data []byte) (Action, error) {
	a, err := decodeAction(data)
	if err != nil {
		return nil, fail(KindInvalidAction, "Invalid blackjack action: %v", err)
	}
	return a, nil
}

func decodeAction(b []byte) (Action, error) {
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, err
	}
	if sz == 0 {
		return nil, fmt.Errorf("empty action")
	}
	tag, b, err := msgp.ReadUint8Bytes(b)
	if err != nil {
		return nil, err
	}

	want := map[uint8]uint32{
		tagStartGame: 2, tagHit: 1, tagStand: 1, tagDoubleDown: 1,
		tagDeposit: 2, tagWithdraw: 3, tagCleanup: 2,
	}
	n, ok := want[tag]
	if !ok {
		return nil, fmt.Errorf("unknown action tag %d", tag)
	}
	if sz != n {
		return nil, fmt.Errorf("action tag %d: expected %d fields, got %d", tag, n, sz)
	}

	var a Action
	switch tag {
	case tagStartGame:
		var bet uint32
		bet, b, err = msgp.ReadUint32Bytes(b)
		a = StartGame{Bet: bet}
	case tagHit:
		a = Hit{}
	case tagStand:
		a = Stand{}
	case tagDoubleDown:
		a = DoubleDown{}
	case tagDeposit:
		var amount uint32
		amount, b, err = msgp.ReadUint32Bytes(b)
		a = Deposit{Amount: amount}
	case tagWithdraw:
		var amount uint32
		var token string
		if amount, b, err = msgp.ReadUint32Bytes(b); err == nil {
			token, b, err = msgp.ReadStringBytes(b)
		}
		a = Withdraw{Amount: amount, Token: tx.ContractName(token)}
	case tagCleanup:
		var raw []byte
		var nonce uuid.UUID
		if raw, b, err = msgp.ReadBytesBytes(b, nil); err == nil {
			nonce, err = uuid.FromBytes(raw)
		}
		a = Cleanup{Nonce: nonce}
	}
	if err != nil {
		return nil, err
	}
	if len(b) != 0 {
		return nil, tx.ErrTrailingBytes
	}
	return a, nil
}

// ActionBlob wraps a as a blob addressed to contract.
func ActionBlob(contract tx.ContractName, a Action) tx.Blob {
	return tx.Blob{Contract: contract, Data: EncodeAction(a)}
}
