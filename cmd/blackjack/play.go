package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/engine"
	"github.com/lox/blackjack/internal/journal"
	"github.com/lox/blackjack/internal/logging"
	"github.com/lox/blackjack/internal/overlay"
	"github.com/lox/blackjack/internal/settlement"
	"github.com/lox/blackjack/internal/tx"
	"github.com/lox/blackjack/internal/view"
)

type PlayCmd struct {
	Player   string `default:"alice" help:"Identity to play as"`
	Deposit  uint32 `default:"100" help:"Wager tokens to deposit before the first round"`
	Bet      uint32 `default:"10" help:"Bet per round"`
	Rounds   int    `default:"3" help:"Number of rounds to play"`
	StandOn  uint32 `default:"17" help:"Stand once the hand scores at least this"`
	DoubleOn uint32 `default:"11" help:"Double down when the opening hand scores exactly this (0 disables)"`
	CashOut  bool   `help:"Withdraw every balance at the end of the session"`
	Journal  string `help:"Write the session journal here (overrides config)"`
	JSON     bool   `help:"Print the final state as JSON"`
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	if c.Journal != "" {
		cfg.Journal = c.Journal
	}

	ctx, cancel := logging.SignalContext(context.Background(), logger)
	defer cancel()

	s := newSession(cfg, logger, quartz.NewReal())
	if err := s.run(ctx, c.strategy()); err != nil {
		return err
	}
	return s.report(os.Stdout, c.JSON)
}

func (c *PlayCmd) strategy() strategy {
	return strategy{
		Player:   tx.Identity(c.Player),
		Deposit:  c.Deposit,
		Bet:      c.Bet,
		Rounds:   c.Rounds,
		StandOn:  c.StandOn,
		DoubleOn: c.DoubleOn,
		CashOut:  c.CashOut,
	}
}

// strategy is a fixed playing policy for one identity.
type strategy struct {
	Player   tx.Identity
	Deposit  uint32
	Bet      uint32
	Rounds   int
	StandOn  uint32
	DoubleOn uint32
	CashOut  bool
}

// next picks the action for an ongoing table.
func (p strategy) next(t *engine.Table, balance uint32) engine.Action {
	score := t.User.Score()
	switch {
	case p.DoubleOn != 0 && len(t.User) == 2 && score == p.DoubleOn && balance >= t.Bet:
		return engine.DoubleDown{}
	case score < p.StandOn:
		return engine.Hit{}
	default:
		return engine.Stand{}
	}
}

// session drives transactions through the sequencer and settles each one
// before submitting the next.
type session struct {
	cfg      *config.Config
	logger   zerolog.Logger
	engine   *engine.Engine
	seq      *settlement.Sequencer
	overlay  *overlay.Overlay
	waiters  *settlement.Waiters
	recorder *journal.Recorder

	mu       sync.Mutex
	outcomes map[overlay.EntryID]engine.Outcome
	rounds   []view.Table
}

func newSession(cfg *config.Config, logger zerolog.Logger, clock quartz.Clock) *session {
	initial := engine.NewState()
	s := &session{
		cfg:      cfg,
		logger:   logger.With().Str("component", "session").Logger(),
		engine:   engine.New(cfg.Rules),
		seq:      settlement.NewSequencer(cfg.Rules.Contract, clock, cfg.EventBuffer),
		waiters:  settlement.NewWaiters(clock, cfg.AwaitTimeout),
		recorder: journal.NewRecorder(cfg.Rules, initial),
		outcomes: make(map[overlay.EntryID]engine.Outcome),
	}
	s.overlay = overlay.New(s.engine,
		overlay.WithLogger(logger),
		overlay.WithState(initial),
		overlay.WithApplied(s.applied),
	)
	return s
}

func (s *session) applied(a overlay.Applied) {
	s.recorder.Record(a)
	if a.Err != nil {
		return
	}
	s.mu.Lock()
	s.outcomes[a.Entry.ID()] = a.Outcome
	s.mu.Unlock()
}

func (s *session) outcome(id overlay.EntryID) engine.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.outcomes[id]
	delete(s.outcomes, id)
	return out
}

// run plays p to completion and writes the journal if one is configured.
func (s *session) run(ctx context.Context, p strategy) error {
	g, ctx := errgroup.WithContext(ctx)

	pump := settlement.NewPump(s.overlay, s.waiters, s.logger)
	g.Go(func() error {
		return pump.Run(ctx, s.seq.Events())
	})
	g.Go(func() error {
		defer s.seq.Close()
		return s.play(ctx, p)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if s.cfg.Journal == "" {
		return nil
	}
	if err := journal.Write(s.cfg.Journal, s.recorder.Journal()); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	s.logger.Info().
		Str("path", s.cfg.Journal).
		Int("records", s.recorder.Len()).
		Msg("Journal written")
	return nil
}

func (s *session) play(ctx context.Context, p strategy) error {
	rules := s.cfg.Rules
	contract := tx.Identity(rules.Contract)

	if p.Deposit > 0 {
		_, err := s.submit(ctx, tx.New(p.Player,
			tx.TransferBlob(rules.WagerToken, tx.Transfer{Sender: p.Player, Recipient: contract, Amount: uint64(p.Deposit)}),
			engine.ActionBlob(rules.Contract, engine.Deposit{Amount: p.Deposit}),
		))
		if err != nil {
			return err
		}
	}

	for round := 1; round <= p.Rounds; round++ {
		_, err := s.act(ctx, p.Player, engine.StartGame{Bet: p.Bet})
		if engine.KindOf(err) != "" {
			s.logger.Warn().Err(err).Int("round", round).Msg("Stopping early")
			break
		}
		if err != nil {
			return err
		}

		for {
			state := s.overlay.Confirmed()
			t, ok := state.Table(p.Player)
			if !ok || !t.Ongoing() {
				break
			}
			if _, err := s.act(ctx, p.Player, p.next(t, state.Balance(p.Player))); err != nil {
				return err
			}
		}

		if t, ok := view.TableOf(s.overlay.Confirmed(), p.Player); ok {
			s.logger.Info().
				Int("round", round).
				Str("phase", t.Phase).
				Uint32("user_score", t.UserScore).
				Uint32("bank_score", t.BankScore).
				Msg("Round finished")
			s.rounds = append(s.rounds, t)
		}
	}

	if p.CashOut {
		state := s.overlay.Confirmed()
		withdrawals := []struct {
			token  tx.ContractName
			amount uint32
		}{
			{rules.WagerToken, state.Balance(p.Player)},
			{rules.RewardToken, state.Reward(p.Player)},
		}
		for _, w := range withdrawals {
			if w.amount == 0 {
				continue
			}
			_, err := s.submit(ctx, tx.New(p.Player,
				tx.TransferBlob(w.token, tx.Transfer{Sender: contract, Recipient: p.Player, Amount: uint64(w.amount)}),
				engine.ActionBlob(rules.Contract, engine.Withdraw{Amount: w.amount, Token: w.token}),
			))
			if err != nil {
				return err
			}
		}
	}

	_, err := s.act(ctx, p.Player, engine.Cleanup{Nonce: uuid.New()})
	return err
}

func (s *session) act(ctx context.Context, id tx.Identity, a engine.Action) (engine.Outcome, error) {
	return s.submit(ctx, tx.New(id, engine.ActionBlob(s.cfg.Rules.Contract, a)))
}

// submit sequences t, settles it according to the speculative verdict and
// waits for the confirmed result.
func (s *session) submit(ctx context.Context, t tx.Transaction) (engine.Outcome, error) {
	entries, err := s.seq.Submit(ctx, t)
	if err != nil {
		return "", err
	}
	if len(entries) != 1 {
		return "", fmt.Errorf("transaction %s has %d contract blobs, want 1", t.Hash().Short(), len(entries))
	}
	id := entries[0].ID()
	logger := s.logger.With().Str("entry", id.String()).Logger()

	r, err := s.await(ctx, t, id)
	if err != nil {
		return "", err
	}
	if r.Err != nil {
		logger.Debug().Err(r.Err).Msg("Rejected speculatively")
		if err := s.seq.Settle(ctx, t.Hash(), false, r.Err.Error()); err != nil {
			return "", err
		}
		if _, err := s.await(ctx, t, id); err != nil {
			return "", err
		}
		return "", r.Err
	}

	if err := s.seq.Settle(ctx, t.Hash(), true, ""); err != nil {
		return "", err
	}
	r, err = s.await(ctx, t, id)
	if err != nil {
		return "", err
	}
	if r.Err != nil {
		return "", r.Err
	}
	out := s.outcome(id)
	logger.Debug().Str("outcome", string(out)).Msg("Settled")
	return out, nil
}

// await waits for the next resolution of id, expiring t if none arrives in
// time.
func (s *session) await(ctx context.Context, t tx.Transaction, id overlay.EntryID) (settlement.Resolution, error) {
	r, err := s.waiters.Await(ctx, id)
	if errors.Is(err, settlement.ErrAwaitTimeout) {
		s.logger.Warn().Str("entry", id.String()).Msg("Settlement timed out, expiring")
		if expErr := s.seq.Expire(ctx, t.Hash()); expErr != nil && !errors.Is(expErr, settlement.ErrUnknownTransaction) {
			return r, expErr
		}
	}
	return r, err
}

// report prints every finished round and the confirmed state.
func (s *session) report(w io.Writer, asJSON bool) error {
	confirmed := s.overlay.Confirmed()
	if !asJSON {
		for i, t := range s.rounds {
			fmt.Fprintf(w, "Round %d\n%s\n", i+1, renderTable(t))
		}
	}
	summary := fmt.Sprintf("%d entries confirmed", s.recorder.Len())
	return printState(w, confirmed, s.cfg.Rules, asJSON, summary)
}
