// Package journal records the entries the confirmed state advanced over so
// that a run can be replayed and checked later.
//
// A journal holds the rules, the encoded pre-state, every applied entry with
// the engine's verdict and the commitment after it, and the final
// commitment. Verify re-executes the entries from the pre-state and fails on
// the first divergence.
package journal

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/lox/blackjack/internal/engine"
	"github.com/lox/blackjack/internal/overlay"
)

// Version is the journal format version written by this package.
const Version uint8 = 1

var (
	// ErrVersion is returned when reading a journal with an unknown version.
	ErrVersion = errors.New("journal: unsupported version")
	// ErrMismatch is returned by Verify when re-execution diverges.
	ErrMismatch = errors.New("journal: replay mismatch")
)

// Record is one applied entry.
type Record struct {
	Entry   overlay.Entry
	Outcome engine.Outcome
	// Err is the engine error message if the entry was rejected.
	Err        string
	Commitment engine.Commitment
}

// Journal is a complete replayable run.
type Journal struct {
	Rules   engine.Rules
	Initial []byte
	Records []Record
	Final   engine.Commitment
}

// Recorder collects overlay applications into a Journal. Pass Record to
// overlay.WithApplied.
type Recorder struct {
	mu      sync.Mutex
	rules   engine.Rules
	initial []byte
	final   engine.Commitment
	records []Record
}

// NewRecorder starts a journal for an overlay whose confirmed state begins
// at initial.
func NewRecorder(rules engine.Rules, initial *engine.State) *Recorder {
	return &Recorder{
		rules:   rules,
		initial: engine.Encode(initial),
		final:   engine.Commit(initial),
	}
}

// Record appends one application.
func (r *Recorder) Record(a overlay.Applied) {
	rec := Record{
		Entry:      a.Entry,
		Outcome:    a.Outcome,
		Commitment: a.Commitment,
	}
	if a.Err != nil {
		rec.Err = a.Err.Error()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	r.final = a.Commitment
}

// Len returns the number of records so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Journal returns a copy of everything recorded so far.
func (r *Recorder) Journal() Journal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Journal{
		Rules:   r.rules,
		Initial: bytes.Clone(r.initial),
		Records: append([]Record(nil), r.records...),
		Final:   r.final,
	}
}

// Verify replays j and returns the final commitment. opts are passed to the
// engine; the default seeded shoe is what production runs use.
func Verify(j Journal, opts ...engine.Option) (engine.Commitment, error) {
	state, err := Replay(j, opts...)
	if err != nil {
		return engine.Commitment{}, err
	}
	return engine.Commit(state), nil
}

// Replay re-executes j from its pre-state and returns the final state. It
// fails with ErrMismatch on the first record whose verdict, outcome or
// commitment differs from what was recorded.
func Replay(j Journal, opts ...engine.Option) (*engine.State, error) {
	if err := j.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("journal rules: %w", err)
	}
	state, err := engine.Decode(j.Initial)
	if err != nil {
		return nil, fmt.Errorf("journal pre-state: %w", err)
	}
	e := engine.New(j.Rules, opts...)

	for i, rec := range j.Records {
		id := rec.Entry.ID()
		out, next, err := e.Apply(state, rec.Entry.Tx, rec.Entry.Index, rec.Entry.Context)
		switch {
		case err != nil && rec.Err == "":
			return nil, fmt.Errorf("%w: record %d (%s) now fails: %v", ErrMismatch, i, id, err)
		case err == nil && rec.Err != "":
			return nil, fmt.Errorf("%w: record %d (%s) recorded as failing with %q but succeeds", ErrMismatch, i, id, rec.Err)
		case err != nil && err.Error() != rec.Err:
			return nil, fmt.Errorf("%w: record %d (%s) fails with %q, recorded %q", ErrMismatch, i, id, err, rec.Err)
		case err == nil && out != rec.Outcome:
			return nil, fmt.Errorf("%w: record %d (%s) outcome %q, recorded %q", ErrMismatch, i, id, out, rec.Outcome)
		}
		state = next

		if got := engine.Commit(state); got != rec.Commitment {
			return nil, fmt.Errorf("%w: record %d (%s) commitment %s, recorded %s", ErrMismatch, i, id, got, rec.Commitment)
		}
	}

	if final := engine.Commit(state); final != j.Final {
		return nil, fmt.Errorf("%w: final commitment %s, recorded %s", ErrMismatch, final, j.Final)
	}
	return state, nil
}
