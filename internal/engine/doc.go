// Package engine implements the deterministic blackjack state machine.
//
// The main entry point is Engine.Execute, a pure function from (state,
// call) to (outcome, new state) or an error. It never mutates the state it
// is given, holds no mutable fields and may be called concurrently.
//
// # Basic Usage
//
//	e := engine.New(engine.DefaultRules())
//	out, next, err := e.Execute(state, engine.Call{
//	    Identity: "alice",
//	    Action:   engine.StartGame{Bet: 10},
//	    Seed:     blockHash,
//	})
//
// Engine.Apply does the same for a sequenced transaction blob, decoding the
// action and collecting token transfers that Deposit and Withdraw verify.
//
// # Determinism
//
// Every card comes from a shoe shuffled by a generator derived from the
// action's seed (the block hash, or the caller's identity for bank draws
// under SeedIdentity). Nothing is carried between calls, so re-executing the
// same actions against the same pre-state reproduces the same post-state
// and therefore the same Commit.
//
// For scripted deals in tests inject a card source:
//
//	seq := cards.NewSequence(cards.Five, cards.Six, cards.Seven, cards.Eight)
//	e := engine.New(rules, engine.WithDrawer(func(string, []byte) cards.Drawer { return seq }))
package engine
