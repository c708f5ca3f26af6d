package engine

import (
	"github.com/lox/blackjack/internal/tx"
)

func (x *execution) deposit(a Deposit) (Outcome, error) {
	var found *TokenTransfer
	for i := range x.call.Transfers {
		if x.call.Transfers[i].Token == x.rules.WagerToken {
			found = &x.call.Transfers[i]
			break
		}
	}
	if found == nil {
		return "", fail(KindTransferMismatch, "Missing %s transfer blob", x.rules.WagerToken)
	}
	if found.Amount != uint64(a.Amount) {
		return "", fail(KindTransferMismatch, "Transfer amount is not the same as the deposit amount")
	}
	if found.Sender != x.user {
		return "", fail(KindTransferMismatch, "Transfer is not from the user")
	}
	if found.Recipient != tx.Identity(x.rules.Contract) {
		return "", fail(KindTransferMismatch, "Transfer is not for the %s contract", x.rules.Contract)
	}
	if t, ok := x.state.Table(x.user); ok && t.Ongoing() {
		// A win on the open table refunds its bet into the same balance.
		if !fits(x.state.Balance(x.user), uint64(a.Amount)+uint64(t.Bet)) {
			return "", fail(KindBalanceOverflow,
				"Deposit of %d leaves no room to pay out the open bet of %d for user %s", a.Amount, t.Bet, x.user)
		}
	}
	if err := x.credit(x.state.Wager, a.Amount); err != nil {
		return "", err
	}
	return x.outcome("Added %d to balance, new balance is %d for user %s",
		a.Amount, x.state.Balance(x.user), x.user), nil
}

func (x *execution) withdraw(a Withdraw) (Outcome, error) {
	if x.state.Ongoing(x.user) {
		return "", fail(KindGameInProgress, "Cannot withdraw while a game is in progress")
	}

	var balances map[tx.Identity]uint32
	switch a.Token {
	case x.rules.WagerToken:
		balances = x.state.Wager
	case x.rules.RewardToken:
		balances = x.state.Rewards
	default:
		return "", fail(KindInvalidToken, "Invalid token type. Use '%s' or '%s'", x.rules.WagerToken, x.rules.RewardToken)
	}

	current, ok := balances[x.user]
	if !ok {
		return "", fail(KindInsufficientFunds, "Unknown user, can't withdraw %s", a.Token)
	}
	if a.Amount > current {
		return "", fail(KindInsufficientFunds, "Insufficient %s balance to withdraw", a.Token)
	}

	want := tx.Transfer{
		Sender:    tx.Identity(x.rules.Contract),
		Recipient: x.user,
		Amount:    uint64(a.Amount),
	}
	matched := false
	for _, t := range x.call.Transfers {
		if t.Token == a.Token && t.Transfer == want {
			matched = true
			break
		}
	}
	if !matched {
		return "", fail(KindTransferMismatch, "Missing %s transfer of %d from %s to %s",
			a.Token, a.Amount, x.rules.Contract, x.user)
	}

	if err := x.debit(balances, a.Amount, string(a.Token)); err != nil {
		return "", err
	}
	return x.outcome("Withdrew %d %s tokens to %s's balance", a.Amount, a.Token, x.user), nil
}

// cleanup drops every finished table and every zero balance.
func (x *execution) cleanup() Outcome {
	for id, t := range x.state.Tables {
		if !t.Ongoing() {
			delete(x.state.Tables, id)
		}
	}
	for _, balances := range []map[tx.Identity]uint32{x.state.Wager, x.state.Rewards} {
		for id, v := range balances {
			if v == 0 {
				delete(balances, id)
			}
		}
	}
	return "Cleaned state"
}
