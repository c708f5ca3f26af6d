package journal

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/tinylib/msgp/msgp"

	"github.com/lox/blackjack/internal/engine"
	"github.com/lox/blackjack/internal/fileutil"
	"github.com/lox/blackjack/internal/overlay"
	"github.com/lox/blackjack/internal/tx"
)

// Write stores j at path atomically.
func Write(path string, j Journal) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, j)
	})
}

// Read loads a journal written by Write.
func Read(path string) (Journal, error) {
	f, err := os.Open(path)
	if err != nil {
		return Journal{}, err
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}

// Encode writes j as msgpack:
//
//	journal = [version, rules, initial, [record...], final]
//	rules   = [contract, min_bet, wager_token, reward_token, push, bank_draws_on_hit, resolution_seed]
//	record  = [transaction, index, context, outcome, error, commitment]
func Encode(w io.Writer, j Journal) error {
	mw := msgp.NewWriter(w)
	if err := encodeJournal(mw, j); err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	return mw.Flush()
}

func encodeJournal(mw *msgp.Writer, j Journal) error {
	if err := mw.WriteArrayHeader(5); err != nil {
		return err
	}
	if err := mw.WriteUint8(Version); err != nil {
		return err
	}
	if err := encodeRules(mw, j.Rules); err != nil {
		return err
	}
	if err := mw.WriteBytes(j.Initial); err != nil {
		return err
	}
	if err := mw.WriteArrayHeader(uint32(len(j.Records))); err != nil {
		return err
	}
	for _, rec := range j.Records {
		if err := encodeRecord(mw, rec); err != nil {
			return err
		}
	}
	return mw.WriteBytes(j.Final[:])
}

func encodeRules(mw *msgp.Writer, r engine.Rules) error {
	if err := mw.WriteArrayHeader(7); err != nil {
		return err
	}
	if err := mw.WriteString(string(r.Contract)); err != nil {
		return err
	}
	if err := mw.WriteUint32(r.MinBet); err != nil {
		return err
	}
	if err := mw.WriteString(string(r.WagerToken)); err != nil {
		return err
	}
	if err := mw.WriteString(string(r.RewardToken)); err != nil {
		return err
	}
	if err := mw.WriteString(string(r.Push)); err != nil {
		return err
	}
	if err := mw.WriteBool(r.BankDrawsOnHit); err != nil {
		return err
	}
	return mw.WriteString(string(r.ResolutionSeed))
}

func encodeRecord(mw *msgp.Writer, rec Record) error {
	if err := mw.WriteArrayHeader(6); err != nil {
		return err
	}
	if err := mw.WriteBytes(tx.AppendTransaction(nil, rec.Entry.Tx)); err != nil {
		return err
	}
	if err := mw.WriteUint32(uint32(rec.Entry.Index)); err != nil {
		return err
	}
	if err := mw.WriteBytes(tx.AppendContext(nil, rec.Entry.Context)); err != nil {
		return err
	}
	if err := mw.WriteString(string(rec.Outcome)); err != nil {
		return err
	}
	if err := mw.WriteString(rec.Err); err != nil {
		return err
	}
	return mw.WriteBytes(rec.Commitment[:])
}

// Decode reads a journal written by Encode.
func Decode(r io.Reader) (Journal, error) {
	j, err := decodeJournal(msgp.NewReader(r))
	if err != nil {
		return Journal{}, fmt.Errorf("decode journal: %w", err)
	}
	return j, nil
}

func decodeJournal(mr *msgp.Reader) (Journal, error) {
	var j Journal
	if err := expectArray(mr, 5, "journal"); err != nil {
		return j, err
	}
	version, err := mr.ReadUint8()
	if err != nil {
		return j, err
	}
	if version != Version {
		return j, fmt.Errorf("%w: %d", ErrVersion, version)
	}
	if j.Rules, err = decodeRules(mr); err != nil {
		return j, err
	}
	if j.Initial, err = mr.ReadBytes(nil); err != nil {
		return j, err
	}
	n, err := mr.ReadArrayHeader()
	if err != nil {
		return j, err
	}
	j.Records = make([]Record, 0, min(n, 1024))
	for i := uint32(0); i < n; i++ {
		rec, err := decodeRecord(mr)
		if err != nil {
			return j, fmt.Errorf("record %d: %w", i, err)
		}
		j.Records = append(j.Records, rec)
	}
	if err := readCommitment(mr, &j.Final); err != nil {
		return j, err
	}
	return j, nil
}

func decodeRules(mr *msgp.Reader) (engine.Rules, error) {
	var r engine.Rules
	if err := expectArray(mr, 7, "rules"); err != nil {
		return r, err
	}
	strs := make([]string, 0, 5)
	readString := func() error {
		s, err := mr.ReadString()
		strs = append(strs, s)
		return err
	}
	if err := readString(); err != nil {
		return r, err
	}
	minBet, err := mr.ReadUint32()
	if err != nil {
		return r, err
	}
	for i := 0; i < 3; i++ {
		if err := readString(); err != nil {
			return r, err
		}
	}
	bankDraws, err := mr.ReadBool()
	if err != nil {
		return r, err
	}
	if err := readString(); err != nil {
		return r, err
	}
	return engine.Rules{
		Contract:       tx.ContractName(strs[0]),
		MinBet:         minBet,
		WagerToken:     tx.ContractName(strs[1]),
		RewardToken:    tx.ContractName(strs[2]),
		Push:           engine.PushPolicy(strs[3]),
		BankDrawsOnHit: bankDraws,
		ResolutionSeed: engine.SeedPolicy(strs[4]),
	}, nil
}

func decodeRecord(mr *msgp.Reader) (Record, error) {
	var rec Record
	if err := expectArray(mr, 6, "record"); err != nil {
		return rec, err
	}
	raw, err := mr.ReadBytes(nil)
	if err != nil {
		return rec, err
	}
	t, rest, err := tx.ReadTransaction(raw)
	if err != nil {
		return rec, err
	}
	if len(rest) != 0 {
		return rec, tx.ErrTrailingBytes
	}
	index, err := mr.ReadUint32()
	if err != nil {
		return rec, err
	}
	if raw, err = mr.ReadBytes(nil); err != nil {
		return rec, err
	}
	ctx, rest, err := tx.ReadContext(raw)
	if err != nil {
		return rec, err
	}
	if len(rest) != 0 {
		return rec, tx.ErrTrailingBytes
	}
	outcome, err := mr.ReadString()
	if err != nil {
		return rec, err
	}
	if rec.Err, err = mr.ReadString(); err != nil {
		return rec, err
	}
	if err := readCommitment(mr, &rec.Commitment); err != nil {
		return rec, err
	}
	rec.Entry = overlay.Entry{Tx: t, Index: tx.BlobIndex(index), Context: ctx}
	rec.Outcome = engine.Outcome(outcome)
	return rec, nil
}

func readCommitment(mr *msgp.Reader, c *engine.Commitment) error {
	return mr.ReadExactBytes(c[:])
}

func expectArray(mr *msgp.Reader, want uint32, what string) error {
	n, err := mr.ReadArrayHeader()
	if err != nil {
		return err
	}
	if n != want {
		return fmt.Errorf("%s: expected %d fields, got %d", what, want, n)
	}
	return nil
}
