// Package settlement connects the overlay to an ordering service: it turns
// sequencing and settlement events into overlay calls and lets callers wait
// for the outcome of one entry.
package settlement

import (
	"fmt"

	"github.com/lox/blackjack/internal/overlay"
)

// Kind is the type of an event from the ordering service.
type Kind uint8

const (
	// Sequenced means the entry was ordered into a block and should be
	// applied speculatively.
	Sequenced Kind = iota + 1
	// Succeeded means the entry settled and is final.
	Succeeded
	// Failed means settlement rejected the entry.
	Failed
	// TimedOut means the entry was never settled.
	TimedOut
)

// String returns the string representation of a kind
func (k Kind) String() string {
	switch k {
	case Sequenced:
		return "sequenced"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Event is one notification from the ordering service about one entry.
type Event struct {
	Kind  Kind
	Entry overlay.Entry
	// Reason is set on Failed events.
	Reason string
}

// Resolution is what a waiter learns about an entry. Every entry first
// resolves as Sequenced, then once more when it settles.
type Resolution struct {
	ID   overlay.EntryID
	Kind Kind
	// Reason is the settlement failure reason, for Failed.
	Reason string
	// Err is the engine error. For Sequenced it means the entry was turned
	// away speculatively. For Succeeded it is the verdict once the confirmed
	// state reached the entry, which can differ from the speculative one when
	// an earlier entry failed settlement.
	Err error
}
