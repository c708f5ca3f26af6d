package settlement

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/overlay"
	"github.com/lox/blackjack/internal/tx"
)

// ErrUnknownTransaction is returned when settling a transaction the
// sequencer is not holding.
var ErrUnknownTransaction = errors.New("settlement: unknown transaction")

// Sequencer is an in-memory ordering service. Every submitted transaction
// gets its own block; the block hash is the SHA-256 of the height. Events
// are delivered in the order the calls were made.
type Sequencer struct {
	contract tx.ContractName
	clock    quartz.Clock
	events   chan Event

	mu       sync.Mutex
	height   uint64
	inflight map[tx.Hash][]overlay.Entry
	closed   bool
}

// NewSequencer creates a sequencer emitting events for blobs addressed to
// contract. buffer sizes the event channel.
func NewSequencer(contract tx.ContractName, clock quartz.Clock, buffer int) *Sequencer {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Sequencer{
		contract: contract,
		clock:    clock,
		events:   make(chan Event, buffer),
		inflight: make(map[tx.Hash][]overlay.Entry),
	}
}

// Events returns the event stream. It is closed by Close.
func (s *Sequencer) Events() <-chan Event {
	return s.events
}

// BlockHash returns the hash of the block at height.
func BlockHash(height uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], height)
	sum := sha256.Sum256(b[:])
	return sum[:]
}

// Submit orders t into the next block and emits Sequenced for each of its
// blobs addressed to the contract. It returns the resulting entries.
func (s *Sequencer) Submit(ctx context.Context, t tx.Transaction) ([]overlay.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("submit %s: sequencer closed", t.Hash().Short())
	}
	hash := t.Hash()
	if _, ok := s.inflight[hash]; ok {
		return nil, fmt.Errorf("submit %s: already sequenced", hash.Short())
	}

	s.height++
	block := tx.Context{
		BlockHash:   BlockHash(s.height),
		BlockHeight: s.height,
		Timestamp:   s.clock.Now().UnixMilli(),
	}

	var entries []overlay.Entry
	for _, index := range t.IndicesFor(s.contract) {
		entries = append(entries, overlay.Entry{Tx: t, Index: index, Context: block})
	}
	s.inflight[hash] = entries

	for _, e := range entries {
		if err := s.emit(ctx, Event{Kind: Sequenced, Entry: e}); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Settle finishes a sequenced transaction. ok emits Succeeded for each of
// its entries, otherwise Failed with reason.
func (s *Sequencer) Settle(ctx context.Context, hash tx.Hash, ok bool, reason string) error {
	kind := Failed
	if ok {
		kind = Succeeded
	}
	return s.finish(ctx, hash, kind, reason)
}

// Expire emits TimedOut for each entry of a sequenced transaction.
func (s *Sequencer) Expire(ctx context.Context, hash tx.Hash) error {
	return s.finish(ctx, hash, TimedOut, "")
}

// Inflight returns the number of transactions awaiting settlement.
func (s *Sequencer) Inflight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Close stops the sequencer and closes the event stream.
func (s *Sequencer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

func (s *Sequencer) finish(ctx context.Context, hash tx.Hash, kind Kind, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%s %s: sequencer closed", kind, hash.Short())
	}
	entries, ok := s.inflight[hash]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTransaction, hash.Short())
	}
	delete(s.inflight, hash)

	for _, e := range entries {
		if err := s.emit(ctx, Event{Kind: kind, Entry: e, Reason: reason}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) emit(ctx context.Context, ev Event) error {
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
