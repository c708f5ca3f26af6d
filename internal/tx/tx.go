// Package tx models what the ordering service hands us: transactions made of
// blobs addressed to contracts, plus the block context they were sequenced in.
package tx

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// Identity names an account.
type Identity string

// ContractName names the contract a blob is addressed to.
type ContractName string

// BlobIndex is the position of a blob inside its transaction.
type BlobIndex uint32

// Hash identifies a transaction by content.
type Hash [sha256.Size]byte

// String returns the hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first eight hex characters, for logs.
func (h Hash) Short() string {
	return h.String()[:8]
}

// Blob is one contract call inside a transaction.
type Blob struct {
	Contract ContractName
	Data     []byte
}

// Transaction is an ordered batch of blobs submitted by one identity as a
// single atomic unit.
type Transaction struct {
	Identity Identity
	Salt     uuid.UUID
	Blobs    []Blob
}

// New builds a transaction with a fresh random salt so that otherwise
// identical submissions hash differently.
func New(identity Identity, blobs ...Blob) Transaction {
	return Transaction{
		Identity: identity,
		Salt:     uuid.New(),
		Blobs:    blobs,
	}
}

// Hash returns the SHA-256 of the transaction encoding.
func (t Transaction) Hash() Hash {
	return sha256.Sum256(AppendTransaction(nil, t))
}

// Blob returns the blob at index, if present.
func (t Transaction) Blob(index BlobIndex) (Blob, bool) {
	if int(index) >= len(t.Blobs) {
		return Blob{}, false
	}
	return t.Blobs[index], true
}

// IndicesFor returns the positions of every blob addressed to contract.
func (t Transaction) IndicesFor(contract ContractName) []BlobIndex {
	var out []BlobIndex
	for i, b := range t.Blobs {
		if b.Contract == contract {
			out = append(out, BlobIndex(i))
		}
	}
	return out
}

// Context is the block-level execution context of a sequenced transaction.
// BlockHash is the entropy source for card draws.
type Context struct {
	BlockHash   []byte
	BlockHeight uint64
	Timestamp   int64
}

// Transfer is the token-contract call moving Amount from Sender to Recipient.
type Transfer struct {
	Sender    Identity
	Recipient Identity
	Amount    uint64
}

// TransferBlob wraps a transfer as a blob on the given token contract.
func TransferBlob(token ContractName, t Transfer) Blob {
	return Blob{Contract: token, Data: AppendTransfer(nil, t)}
}
