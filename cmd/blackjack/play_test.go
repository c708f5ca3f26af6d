package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/cards"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/engine"
	"github.com/lox/blackjack/internal/journal"
	"github.com/lox/blackjack/internal/tx"
	"github.com/lox/blackjack/internal/view"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Journal = filepath.Join(t.TempDir(), "session.msgp")
	return cfg
}

func TestSessionPlaysAndJournals(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	s := newSession(cfg, zerolog.Nop(), quartz.NewMock(t))
	p := strategy{Player: "alice", Deposit: 100, Bet: 10, Rounds: 3, StandOn: 17, DoubleOn: 11}

	require.NoError(t, s.run(context.Background(), p))
	assert.Len(t, s.rounds, 3)
	assert.Empty(t, s.overlay.Pending())
	assert.Equal(t, 0, s.seq.Inflight())

	j, err := journal.Read(cfg.Journal)
	require.NoError(t, err)
	final, err := journal.Verify(j)
	require.NoError(t, err)
	assert.Equal(t, engine.Commit(s.overlay.Confirmed()), final)

	var out bytes.Buffer
	require.NoError(t, replayJournal(&out, cfg.Journal, false))
	assert.Contains(t, out.String(), "verified")
	assert.Contains(t, out.String(), final.String())
}

func TestSessionCashesOut(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	s := newSession(cfg, zerolog.Nop(), quartz.NewMock(t))
	p := strategy{Player: "bob", Deposit: 50, Bet: 10, Rounds: 2, StandOn: 17, CashOut: true}

	require.NoError(t, s.run(context.Background(), p))

	confirmed := s.overlay.Confirmed()
	assert.Equal(t, uint32(0), confirmed.Balance("bob"))
	assert.Equal(t, uint32(0), confirmed.Reward("bob"))
	assert.False(t, confirmed.Ongoing("bob"))
}

func TestSessionStopsWhenBroke(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Journal = ""
	s := newSession(cfg, zerolog.Nop(), quartz.NewMock(t))
	p := strategy{Player: "carol", Rounds: 2, Bet: 10, StandOn: 17}

	require.NoError(t, s.run(context.Background(), p))
	assert.Empty(t, s.rounds)
	assert.Equal(t, 1, s.recorder.Len(), "only the cleanup is confirmed")
}

func TestReportJSON(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	s := newSession(cfg, zerolog.Nop(), quartz.NewMock(t))
	require.NoError(t, s.run(context.Background(), strategy{Player: "dave", Deposit: 30, Bet: 10, Rounds: 1, StandOn: 17}))

	var out bytes.Buffer
	require.NoError(t, s.report(&out, true))

	var got view.State
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, engine.Commit(s.overlay.Confirmed()).String(), got.Commitment)
	assert.Contains(t, got.Balances, tx.Identity("dave"))
}

func TestStrategyNext(t *testing.T) {
	t.Parallel()

	p := strategy{StandOn: 17, DoubleOn: 11}
	table := func(ranks ...cards.Rank) *engine.Table {
		return &engine.Table{User: cards.Hand(ranks), Bet: 10, Phase: engine.PhaseOngoing}
	}

	assert.Equal(t, engine.DoubleDown{}, p.next(table(5, 6), 10))
	assert.Equal(t, engine.Hit{}, p.next(table(5, 6), 9), "cannot cover the double")
	assert.Equal(t, engine.Hit{}, p.next(table(2, 3, 6), 100), "only the opening hand doubles")
	assert.Equal(t, engine.Hit{}, p.next(table(10, 6), 100))
	assert.Equal(t, engine.Stand{}, p.next(table(10, 7), 100))
	assert.Equal(t, engine.Stand{}, p.next(table(1, 6), 100), "soft seventeen")
}

func TestScoreHand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, scoreHand(&out, []string{"A", "7", "K"}))
	assert.Contains(t, out.String(), "= 18")

	out.Reset()
	require.NoError(t, scoreHand(&out, []string{"K", "Q", "5"}))
	assert.Contains(t, out.String(), "BUST")

	assert.Error(t, scoreHand(&out, []string{"Z"}))
}
