package main

import (
	"fmt"
	"io"
	"os"

	"github.com/lox/blackjack/internal/cards"
)

type ScoreCmd struct {
	Cards []string `arg:"" help:"Card ranks: A, 2-10, T, J, Q, K"`
}

func (c *ScoreCmd) Run(*Globals) error {
	return scoreHand(os.Stdout, c.Cards)
}

func scoreHand(w io.Writer, symbols []string) error {
	hand, err := cards.ParseHand(symbols)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, renderScore(hand))
	return err
}
