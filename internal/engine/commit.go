package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/lox/blackjack/internal/cards"
	"github.com/lox/blackjack/internal/tx"
)

// Commitment is the SHA-256 of a state's canonical encoding.
type Commitment [sha256.Size]byte

// String returns the hex form of the commitment.
func (c Commitment) String() string {
	return tx.Hash(c).String()
}

// ErrCorruptState is returned by Decode for malformed input.
var ErrCorruptState = errors.New("engine: corrupt state encoding")

// Commit returns the commitment of s.
func Commit(s *State) Commitment {
	return sha256.Sum256(Encode(s))
}

// Encode returns the canonical byte encoding of s. Integers are fixed-width
// little endian, strings and sequences are prefixed with a u32 length, and
// maps are written in ascending key order, so equal states always encode to
// equal bytes.
//
//	state   = tables wager rewards
//	tables  = u32 n, n * (string id, table)
//	table   = hand bank, hand user, u32 bet, u8 phase, u8 bank_draws_on_hit
//	hand    = u32 n, n * u32 rank
//	wager   = u32 n, n * (string id, u32 amount)
//	rewards = u32 n, n * (string id, u32 amount)
func Encode(s *State) []byte {
	if s == nil {
		s = NewState()
	}
	var b []byte

	ids := sortedKeys(s.Tables)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(ids)))
	for _, id := range ids {
		t := s.Tables[id]
		b = appendString(b, string(id))
		b = appendHand(b, t.Bank)
		b = appendHand(b, t.User)
		b = binary.LittleEndian.AppendUint32(b, t.Bet)
		b = append(b, byte(t.Phase))
		if t.BankDrawsOnHit {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	}
	b = appendBalances(b, s.Wager)
	b = appendBalances(b, s.Rewards)
	return b
}

func sortedKeys[V any](m map[tx.Identity]V) []tx.Identity {
	ids := make([]tx.Identity, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func appendString(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func appendHand(b []byte, h cards.Hand) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(h)))
	for _, r := range h {
		b = binary.LittleEndian.AppendUint32(b, uint32(r))
	}
	return b
}

func appendBalances(b []byte, m map[tx.Identity]uint32) []byte {
	ids := sortedKeys(m)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(ids)))
	for _, id := range ids {
		b = appendString(b, string(id))
		b = binary.LittleEndian.AppendUint32(b, m[id])
	}
	return b
}

// Decode parses an encoding produced by Encode. Keys must be strictly
// ascending, so every state has exactly one accepted encoding.
func Decode(data []byte) (*State, error) {
	r := &reader{buf: data}
	s := NewState()

	n := r.u32()
	var prev string
	for i := uint32(0); i < n && r.err == nil; i++ {
		id := r.key(&prev, i)
		t := &Table{}
		t.Bank = r.hand()
		t.User = r.hand()
		t.Bet = r.u32()
		t.Phase = Phase(r.u8())
		if t.Phase > PhaseWon {
			r.fail("table %q: phase %d", id, t.Phase)
		}
		switch flag := r.u8(); flag {
		case 0:
		case 1:
			t.BankDrawsOnHit = true
		default:
			r.fail("table %q: policy flag %d", id, flag)
		}
		s.Tables[tx.Identity(id)] = t
	}
	r.balances(s.Wager)
	r.balances(s.Rewards)

	if r.err != nil {
		return nil, r.err
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptState, len(r.buf))
	}
	return s, nil
}

type reader struct {
	buf []byte
	err error
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s", ErrCorruptState, fmt.Sprintf(format, args...))
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.fail("need %d bytes, have %d", n, len(r.buf))
		return nil
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) str() string {
	n := r.u32()
	return string(r.take(int(n)))
}

func (r *reader) key(prev *string, i uint32) string {
	id := r.str()
	if i > 0 && id <= *prev {
		r.fail("key %q out of order", id)
	}
	*prev = id
	return id
}

func (r *reader) hand() cards.Hand {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	if uint64(n)*4 > uint64(len(r.buf)) {
		r.fail("hand of %d cards exceeds input", n)
		return nil
	}
	h := make(cards.Hand, 0, n)
	for i := uint32(0); i < n; i++ {
		rank := cards.Rank(r.u32())
		if !rank.Valid() {
			r.fail("invalid rank %d", rank)
			return nil
		}
		h = append(h, rank)
	}
	return h
}

func (r *reader) balances(m map[tx.Identity]uint32) {
	n := r.u32()
	var prev string
	for i := uint32(0); i < n && r.err == nil; i++ {
		id := r.key(&prev, i)
		m[tx.Identity(id)] = r.u32()
	}
}
