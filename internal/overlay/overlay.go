// Package overlay keeps an optimistic view of contract state: the confirmed
// state plus every sequenced entry that has not been settled yet.
//
// Entries arrive in submission order through RecordPending and are resolved
// in any order through Confirm, Reject and TimeOut. The confirmed state only
// ever advances over a fully resolved prefix of the log, so it always equals
// the fold of the confirmed entries in submission order no matter how
// settlement events interleave.
package overlay

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lox/blackjack/internal/engine"
)

var (
	// ErrUnknownEntry is returned when a resolution names an entry that is
	// not pending.
	ErrUnknownEntry = errors.New("overlay: unknown entry")
	// ErrDuplicateEntry is returned when an entry is recorded twice.
	ErrDuplicateEntry = errors.New("overlay: entry already pending")
)

// Overlay owns the confirmed state and the pending log. All methods are
// safe for concurrent use; mutations are serialised by one mutex.
type Overlay struct {
	engine    *engine.Engine
	logger    zerolog.Logger
	onApplied func(Applied)

	mu          sync.Mutex
	confirmed   *engine.State
	speculative *engine.State
	pending     []*pendingEntry
}

// Option configures an Overlay during creation.
type Option func(*Overlay)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Overlay) {
		o.logger = logger
	}
}

// WithState starts the overlay from a confirmed state other than the empty
// one.
func WithState(s *engine.State) Option {
	return func(o *Overlay) {
		o.confirmed = s.Clone()
	}
}

// WithApplied registers fn to be called, in order and under the overlay's
// lock, every time the confirmed state advances over an entry. fn must not
// call back into the overlay.
func WithApplied(fn func(Applied)) Option {
	return func(o *Overlay) {
		o.onApplied = fn
	}
}

// New creates an overlay executing entries with e.
func New(e *engine.Engine, opts ...Option) *Overlay {
	o := &Overlay{
		engine:    e,
		logger:    zerolog.Nop(),
		confirmed: engine.NewState(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With().Str("component", "overlay").Logger()
	o.speculative = o.confirmed.Clone()
	return o
}

// RecordPending executes entry on top of the current speculative state and
// appends it to the log. If the engine rejects the entry its error is
// returned unchanged and the log is left as it was.
func (o *Overlay) RecordPending(entry Entry) (*engine.State, error) {
	id := entry.ID()

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.find(id) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, id)
	}

	base := o.fold()
	out, next, err := o.engine.Apply(base, entry.Tx, entry.Index, entry.Context)
	if err != nil {
		o.logger.Debug().Err(err).Str("entry", id.String()).Msg("Pending entry rejected")
		return nil, err
	}

	o.pending = append(o.pending, &pendingEntry{Entry: entry, id: id})
	o.speculative = next
	o.logger.Debug().
		Str("entry", id.String()).
		Str("identity", string(entry.Tx.Identity)).
		Int("pending", len(o.pending)).
		Msg(string(out))
	return next.Clone(), nil
}

// Confirm marks entry as settled successfully. Confirmed entries are applied
// to the confirmed state in submission order once every earlier entry has
// been resolved. An entry that was never recorded is applied straight away.
//
// The result lists every entry the confirmed state advanced over during this
// call, in order, with the engine's verdict on each. It includes entry only
// if entry was applied now; a held entry shows up in the result of the call
// that resolves the last entry ahead of it.
func (o *Overlay) Confirm(entry Entry) []Applied {
	id := entry.ID()

	o.mu.Lock()
	defer o.mu.Unlock()

	var applied []Applied
	if i := o.find(id); i >= 0 {
		o.pending[i].confirmed = true
		applied = o.drain()
		if len(applied) == 0 {
			o.logger.Debug().Str("entry", id.String()).Msg("Confirmation held for earlier entries")
		}
	} else {
		o.logger.Debug().Str("entry", id.String()).Msg("Confirming unrecorded entry")
		applied = []Applied{o.apply(entry)}
	}
	o.speculative = o.fold()
	return applied
}

// Reject drops a pending entry that failed settlement. The result lists the
// held entries this released onto the confirmed state, as for Confirm.
func (o *Overlay) Reject(id EntryID) ([]Applied, error) {
	return o.remove(id, "rejected")
}

// TimeOut drops a pending entry whose settlement never arrived. The result
// is as for Reject.
func (o *Overlay) TimeOut(id EntryID) ([]Applied, error) {
	return o.remove(id, "timed out")
}

func (o *Overlay) remove(id EntryID, why string) ([]Applied, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	i := o.find(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	o.pending = append(o.pending[:i], o.pending[i+1:]...)
	o.logger.Debug().Str("entry", id.String()).Int("pending", len(o.pending)).Msgf("Pending entry %s", why)

	// Removing the head may expose a confirmed prefix.
	applied := o.drain()
	o.speculative = o.fold()
	return applied, nil
}

// Speculative returns a snapshot of the confirmed state with every pending
// entry applied.
func (o *Overlay) Speculative() *engine.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.speculative.Clone()
}

// Confirmed returns a snapshot of the confirmed state.
func (o *Overlay) Confirmed() *engine.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.confirmed.Clone()
}

// Pending returns the unsettled entries in submission order. Entries that
// are confirmed but still waiting on an earlier entry are included.
func (o *Overlay) Pending() []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Entry, len(o.pending))
	for i, p := range o.pending {
		out[i] = p.Entry
	}
	return out
}

func (o *Overlay) find(id EntryID) int {
	for i, p := range o.pending {
		if p.id == id {
			return i
		}
	}
	return -1
}

// fold replays the pending log on a copy of the confirmed state. Entries
// the engine now rejects are skipped.
func (o *Overlay) fold() *engine.State {
	s := o.confirmed.Clone()
	for _, p := range o.pending {
		_, next, err := o.engine.Apply(s, p.Tx, p.Index, p.Context)
		if err != nil {
			o.logger.Debug().Err(err).Str("entry", p.id.String()).Msg("Skipping pending entry")
			continue
		}
		s = next
	}
	return s
}

// drain applies the confirmed head of the log.
func (o *Overlay) drain() []Applied {
	var applied []Applied
	for _, p := range o.pending {
		if !p.confirmed {
			break
		}
		applied = append(applied, o.apply(p.Entry))
	}
	o.pending = o.pending[len(applied):]
	return applied
}

func (o *Overlay) apply(entry Entry) Applied {
	out, next, err := o.engine.Apply(o.confirmed, entry.Tx, entry.Index, entry.Context)
	if err != nil {
		o.logger.Error().Err(err).Str("entry", entry.ID().String()).Msg("Confirmed entry failed to execute")
	} else {
		o.confirmed = next
	}
	a := Applied{
		Entry:      entry,
		Outcome:    out,
		Err:        err,
		Commitment: engine.Commit(o.confirmed),
	}
	if o.onApplied != nil {
		o.onApplied(a)
	}
	return a
}
