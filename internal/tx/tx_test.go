package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionHashDependsOnSalt(t *testing.T) {
	t.Parallel()

	blob := Blob{Contract: "blackjack", Data: []byte{0x01}}
	a := New("alice", blob)
	b := New("alice", blob)

	assert.Equal(t, a.Hash(), a.Hash())
	assert.NotEqual(t, a.Hash(), b.Hash(), "fresh salts must separate identical submissions")

	b.Salt = a.Salt
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestTransactionDecodeMatchesEncode(t *testing.T) {
	t.Parallel()

	orig := New("alice",
		TransferBlob("oranj", Transfer{Sender: "alice", Recipient: "blackjack", Amount: 100}),
		Blob{Contract: "blackjack", Data: []byte{0x92, 0x04, 0x64}},
	)
	buf := AppendTransaction(nil, orig)
	buf = AppendContext(buf, Context{BlockHash: []byte{1, 2, 3}, BlockHeight: 7, Timestamp: 1700000000})

	got, rest, err := ReadTransaction(buf)
	require.NoError(t, err)
	assert.Equal(t, orig.Hash(), got.Hash())
	assert.Equal(t, orig.Identity, got.Identity)
	require.Len(t, got.Blobs, 2)

	transfer, err := DecodeTransfer(got.Blobs[0].Data)
	require.NoError(t, err)
	assert.Equal(t, Transfer{Sender: "alice", Recipient: "blackjack", Amount: 100}, transfer)

	ctx, rest, err := ReadContext(rest)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, uint64(7), ctx.BlockHeight)
	assert.Equal(t, []byte{1, 2, 3}, ctx.BlockHash)
}

func TestDecodeTransferRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := DecodeTransfer([]byte{0xc1})
	assert.Error(t, err)

	good := AppendTransfer(nil, Transfer{Sender: "a", Recipient: "b", Amount: 1})
	_, err = DecodeTransfer(append(good, 0x00))
	assert.ErrorIs(t, err, ErrTrailingBytes)
}

func TestIndicesFor(t *testing.T) {
	t.Parallel()

	txn := New("alice",
		Blob{Contract: "oranj"},
		Blob{Contract: "blackjack"},
		Blob{Contract: "blackjack"},
	)
	assert.Equal(t, []BlobIndex{1, 2}, txn.IndicesFor("blackjack"))

	_, ok := txn.Blob(3)
	assert.False(t, ok)
}
