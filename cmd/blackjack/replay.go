package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/lox/blackjack/internal/engine"
	"github.com/lox/blackjack/internal/journal"
	"github.com/lox/blackjack/internal/tx"
	"github.com/lox/blackjack/internal/view"
)

type ReplayCmd struct {
	Journal string `arg:"" help:"Journal file written by play" type:"existingfile"`
	JSON    bool   `help:"Print the replayed state as JSON"`
}

func (c *ReplayCmd) Run(g *Globals) error {
	_, logger, err := g.load()
	if err != nil {
		return err
	}
	logger.Debug().Str("journal", c.Journal).Msg("Replaying journal")
	return replayJournal(os.Stdout, c.Journal, c.JSON)
}

// replayJournal re-executes a journal file and prints the verified state.
func replayJournal(w io.Writer, path string, asJSON bool) error {
	j, err := journal.Read(path)
	if err != nil {
		return err
	}
	state, err := journal.Replay(j)
	if err != nil {
		return err
	}
	return printState(w, state, j.Rules, asJSON, fmt.Sprintf("verified %d records", len(j.Records)))
}

func printState(w io.Writer, s *engine.State, rules engine.Rules, asJSON bool, summary string) error {
	snapshot := view.StateOf(s, rules)
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}

	for _, t := range snapshot.Tables {
		fmt.Fprintln(w, renderTable(t))
	}
	ids := make([]tx.Identity, 0, len(snapshot.Balances))
	for id := range snapshot.Balances {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fmt.Fprintln(w, renderBalances(id, snapshot.Balances[id]))
	}
	_, err := fmt.Fprintln(w, outcomeStyle.Render(summary), "commitment", snapshot.Commitment)
	return err
}
