package tx

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tinylib/msgp/msgp"
)

// ErrTrailingBytes is returned when a decoder is handed more bytes than one
// value occupies.
var ErrTrailingBytes = errors.New("tx: trailing bytes after value")

// AppendTransfer appends the msgpack encoding of t to b.
func AppendTransfer(b []byte, t Transfer) []byte {
	b = msgp.AppendArrayHeader(b, 3)
	b = msgp.AppendString(b, string(t.Sender))
	b = msgp.AppendString(b, string(t.Recipient))
	return msgp.AppendUint64(b, t.Amount)
}

// DecodeTransfer decodes a transfer blob payload.
func DecodeTransfer(data []byte) (Transfer, error) {
	t, rest, err := ReadTransfer(data)
	if err != nil {
		return Transfer{}, err
	}
	if len(rest) != 0 {
		return Transfer{}, ErrTrailingBytes
	}
	return t, nil
}

// ReadTransfer reads one transfer from b and returns the remaining bytes.
func ReadTransfer(b []byte) (Transfer, []byte, error) {
	var t Transfer
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return t, b, fmt.Errorf("transfer header: %w", err)
	}
	if sz != 3 {
		return t, b, fmt.Errorf("transfer: expected 3 fields, got %d", sz)
	}
	sender, b, err := msgp.ReadStringBytes(b)
	if err != nil {
		return t, b, fmt.Errorf("transfer sender: %w", err)
	}
	recipient, b, err := msgp.ReadStringBytes(b)
	if err != nil {
		return t, b, fmt.Errorf("transfer recipient: %w", err)
	}
	amount, b, err := msgp.ReadUint64Bytes(b)
	if err != nil {
		return t, b, fmt.Errorf("transfer amount: %w", err)
	}
	t.Sender, t.Recipient, t.Amount = Identity(sender), Identity(recipient), amount
	return t, b, nil
}

// AppendTransaction appends the msgpack encoding of t to b.
func AppendTransaction(b []byte, t Transaction) []byte {
	b = msgp.AppendArrayHeader(b, 3)
	b = msgp.AppendString(b, string(t.Identity))
	b = msgp.AppendBytes(b, t.Salt[:])
	b = msgp.AppendArrayHeader(b, uint32(len(t.Blobs)))
	for _, blob := range t.Blobs {
		b = msgp.AppendArrayHeader(b, 2)
		b = msgp.AppendString(b, string(blob.Contract))
		b = msgp.AppendBytes(b, blob.Data)
	}
	return b
}

// ReadTransaction reads one transaction from b and returns the remaining bytes.
func ReadTransaction(b []byte) (Transaction, []byte, error) {
	var t Transaction
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return t, b, fmt.Errorf("transaction header: %w", err)
	}
	if sz != 3 {
		return t, b, fmt.Errorf("transaction: expected 3 fields, got %d", sz)
	}
	identity, b, err := msgp.ReadStringBytes(b)
	if err != nil {
		return t, b, fmt.Errorf("transaction identity: %w", err)
	}
	salt, b, err := msgp.ReadBytesBytes(b, nil)
	if err != nil {
		return t, b, fmt.Errorf("transaction salt: %w", err)
	}
	if t.Salt, err = uuid.FromBytes(salt); err != nil {
		return t, b, fmt.Errorf("transaction salt: %w", err)
	}
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return t, b, fmt.Errorf("transaction blobs: %w", err)
	}
	t.Identity = Identity(identity)
	t.Blobs = make([]Blob, 0, n)
	for i := uint32(0); i < n; i++ {
		var fields uint32
		fields, b, err = msgp.ReadArrayHeaderBytes(b)
		if err != nil {
			return t, b, fmt.Errorf("blob %d: %w", i, err)
		}
		if fields != 2 {
			return t, b, fmt.Errorf("blob %d: expected 2 fields, got %d", i, fields)
		}
		var contract string
		var data []byte
		if contract, b, err = msgp.ReadStringBytes(b); err != nil {
			return t, b, fmt.Errorf("blob %d contract: %w", i, err)
		}
		if data, b, err = msgp.ReadBytesBytes(b, nil); err != nil {
			return t, b, fmt.Errorf("blob %d data: %w", i, err)
		}
		t.Blobs = append(t.Blobs, Blob{Contract: ContractName(contract), Data: data})
	}
	return t, b, nil
}

// AppendContext appends the msgpack encoding of c to b.
func AppendContext(b []byte, c Context) []byte {
	b = msgp.AppendArrayHeader(b, 3)
	b = msgp.AppendBytes(b, c.BlockHash)
	b = msgp.AppendUint64(b, c.BlockHeight)
	return msgp.AppendInt64(b, c.Timestamp)
}

// ReadContext reads one context from b and returns the remaining bytes.
func ReadContext(b []byte) (Context, []byte, error) {
	var c Context
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return c, b, fmt.Errorf("context header: %w", err)
	}
	if sz != 3 {
		return c, b, fmt.Errorf("context: expected 3 fields, got %d", sz)
	}
	if c.BlockHash, b, err = msgp.ReadBytesBytes(b, nil); err != nil {
		return c, b, fmt.Errorf("context block hash: %w", err)
	}
	if c.BlockHeight, b, err = msgp.ReadUint64Bytes(b); err != nil {
		return c, b, fmt.Errorf("context block height: %w", err)
	}
	if c.Timestamp, b, err = msgp.ReadInt64Bytes(b); err != nil {
		return c, b, fmt.Errorf("context timestamp: %w", err)
	}
	return c, b, nil
}
