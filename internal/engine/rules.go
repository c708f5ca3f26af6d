package engine

import (
	"fmt"

	"github.com/lox/blackjack/internal/tx"
)

// PushPolicy decides what a tie pays.
type PushPolicy string

const (
	// PushRefund returns the bet only.
	PushRefund PushPolicy = "refund"
	// PushReward treats a tie like a win: bet back plus the reward credit.
	PushReward PushPolicy = "reward"
)

// SeedPolicy decides where bank-resolution draws (Stand, DoubleDown) take
// their entropy from.
type SeedPolicy string

const (
	// SeedBlock uses the block hash of the executing transaction.
	SeedBlock SeedPolicy = "block"
	// SeedIdentity uses the caller's identity bytes.
	SeedIdentity SeedPolicy = "identity"
)

// Rules is the table configuration shared by every game.
type Rules struct {
	// Contract is the name this engine executes as. Deposits must be sent
	// to it and withdrawals must come from it.
	Contract tx.ContractName
	// MinBet is the smallest accepted StartGame bet.
	MinBet uint32
	// WagerToken is the token contract backing bets.
	WagerToken tx.ContractName
	// RewardToken is the token contract credited on wins.
	RewardToken tx.ContractName
	Push        PushPolicy
	// BankDrawsOnHit makes the bank draw alongside the player on Hit while
	// its score is 16 or less. Captured per table at StartGame.
	BankDrawsOnHit bool
	ResolutionSeed SeedPolicy
}

// DefaultRules returns the rules used when nothing is configured.
func DefaultRules() Rules {
	return Rules{
		Contract:       "blackjack",
		MinBet:         10,
		WagerToken:     "oranj",
		RewardToken:    "vitamin",
		Push:           PushRefund,
		BankDrawsOnHit: false,
		ResolutionSeed: SeedBlock,
	}
}

// Validate checks the rules are internally consistent.
func (r Rules) Validate() error {
	if r.Contract == "" {
		return fmt.Errorf("rules: contract name is required")
	}
	if r.WagerToken == "" || r.RewardToken == "" {
		return fmt.Errorf("rules: wager and reward tokens are required")
	}
	if r.WagerToken == r.RewardToken {
		return fmt.Errorf("rules: wager and reward tokens must differ, both are %q", r.WagerToken)
	}
	switch r.Push {
	case PushRefund, PushReward:
	default:
		return fmt.Errorf("rules: unknown push policy %q", r.Push)
	}
	switch r.ResolutionSeed {
	case SeedBlock, SeedIdentity:
	default:
		return fmt.Errorf("rules: unknown resolution seed %q", r.ResolutionSeed)
	}
	return nil
}
