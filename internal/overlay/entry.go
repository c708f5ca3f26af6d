package overlay

import (
	"fmt"

	"github.com/lox/blackjack/internal/engine"
	"github.com/lox/blackjack/internal/tx"
)

// EntryID identifies one contract call: a transaction and the position of
// the blob inside it.
type EntryID struct {
	Tx    tx.Hash
	Index tx.BlobIndex
}

// String returns a short form for logs.
func (id EntryID) String() string {
	return fmt.Sprintf("%s/%d", id.Tx.Short(), id.Index)
}

// Entry is a blob sequenced under a block context, waiting to be settled.
type Entry struct {
	Tx      tx.Transaction
	Index   tx.BlobIndex
	Context tx.Context
}

// ID returns the entry's identifier.
func (e Entry) ID() EntryID {
	return EntryID{Tx: e.Tx.Hash(), Index: e.Index}
}

// Applied describes an entry the confirmed state has advanced over.
type Applied struct {
	Entry   Entry
	Outcome engine.Outcome
	// Err is the engine error, if the action was rejected. The confirmed
	// state is unchanged in that case.
	Err error
	// Commitment is the confirmed state's commitment after the entry.
	Commitment engine.Commitment
}

type pendingEntry struct {
	Entry
	id        EntryID
	confirmed bool
}
