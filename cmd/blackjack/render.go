package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/blackjack/internal/cards"
	"github.com/lox/blackjack/internal/tx"
	"github.com/lox/blackjack/internal/view"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)

	tableStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#626262")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Width(6)

	wonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	lostStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	ongoingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true)

	outcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#74B9FF"))
)

func phaseStyle(phase string) lipgloss.Style {
	switch phase {
	case "won":
		return wonStyle
	case "lost":
		return lostStyle
	default:
		return ongoingStyle
	}
}

func renderHand(label string, ranks []string, score uint32) string {
	total := fmt.Sprintf("(%d)", score)
	if score > 21 {
		total = lostStyle.Render(total)
	}
	return labelStyle.Render(label) + strings.Join(ranks, " ") + " " + total
}

// renderTable draws one table as a bordered box.
func renderTable(t view.Table) string {
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		headerStyle.Render(string(t.Identity)),
		" bet ", fmt.Sprint(t.Bet), " ",
		phaseStyle(t.Phase).Render(strings.ToUpper(t.Phase)),
	)
	return tableStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		renderHand("You", t.User, t.UserScore),
		renderHand("Bank", t.Bank, t.BankScore),
	))
}

// renderBalances lists balances in token order.
func renderBalances(id tx.Identity, b view.Balances) string {
	tokens := make([]string, 0, len(b))
	for token := range b {
		tokens = append(tokens, string(token))
	}
	slices.Sort(tokens)

	parts := make([]string, len(tokens))
	for i, token := range tokens {
		parts[i] = fmt.Sprintf("%s %d", token, b[tx.ContractName(token)])
	}
	return labelStyle.Render("") + headerStyle.Render(string(id)) + " " + strings.Join(parts, "  ")
}

// renderScore formats a scored hand for the score command.
func renderScore(h cards.Hand) string {
	score := h.Score()
	line := fmt.Sprintf("%s = %d", h, score)
	switch {
	case cards.IsBust(h):
		return lostStyle.Render(line + " BUST")
	case score == 21 && len(h) == 2:
		return wonStyle.Render(line + " BLACKJACK")
	default:
		return line
	}
}
