package engine

import (
	"fmt"

	"github.com/lox/blackjack/internal/cards"
	"github.com/lox/blackjack/internal/tx"
)

// Outcome is the human-readable result of a successful action.
type Outcome string

// Engine executes actions against a state. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	rules  Rules
	drawer cards.DrawerFunc
}

// Option configures an Engine during creation.
type Option func(*Engine)

// WithDrawer replaces the seeded shoe with another card source. Tests use it
// to script deals.
func WithDrawer(fn cards.DrawerFunc) Option {
	return func(e *Engine) {
		e.drawer = fn
	}
}

// New creates an engine. It panics on invalid rules; callers loading rules
// from configuration validate them first.
func New(rules Rules, opts ...Option) *Engine {
	if err := rules.Validate(); err != nil {
		panic(err)
	}
	e := &Engine{
		rules:  rules,
		drawer: cards.SeededShoe,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the engine's rules.
func (e *Engine) Rules() Rules {
	return e.rules
}

// TokenTransfer is a transfer found on a token contract blob alongside the
// action.
type TokenTransfer struct {
	Token tx.ContractName
	tx.Transfer
}

// Call is everything one action needs to execute.
type Call struct {
	Identity tx.Identity
	Action   Action
	// Seed is the block hash the action was sequenced under.
	Seed      []byte
	Transfers []TokenTransfer
}

// Execute applies call to state and returns the outcome and the new state.
// state is never modified. On error the returned state is state itself, so
// no partial effect of a failed action is ever observable.
func (e *Engine) Execute(state *State, call Call) (Outcome, *State, error) {
	if state == nil {
		state = NewState()
	}
	x := &execution{
		Engine: e,
		state:  state.Clone(),
		call:   call,
		user:   call.Identity,
	}

	var (
		out Outcome
		err error
	)
	switch a := call.Action.(type) {
	case StartGame:
		out, err = x.startGame(a)
	case Hit:
		out, err = x.hit()
	case Stand:
		out, err = x.stand()
	case DoubleDown:
		out, err = x.doubleDown()
	case Deposit:
		out, err = x.deposit(a)
	case Withdraw:
		out, err = x.withdraw(a)
	case Cleanup:
		out = x.cleanup()
	case nil:
		err = fail(KindInvalidAction, "Missing blackjack action")
	default:
		err = fail(KindInvalidAction, "Unsupported blackjack action %T", a)
	}
	if err != nil {
		return "", state, err
	}
	return out, x.state, nil
}

// Apply executes the blob at index of txn under the given block context. The
// blob must be addressed to the engine's contract. Transfers on the wager and
// reward token contracts in the same transaction are made available to
// Deposit and Withdraw.
func (e *Engine) Apply(state *State, txn tx.Transaction, index tx.BlobIndex, ctx tx.Context) (Outcome, *State, error) {
	call, err := e.CallFor(txn, index, ctx)
	if err != nil {
		return "", state, err
	}
	return e.Execute(state, call)
}

// CallFor decodes the blob at index into a Call.
func (e *Engine) CallFor(txn tx.Transaction, index tx.BlobIndex, ctx tx.Context) (Call, error) {
	blob, ok := txn.Blob(index)
	if !ok {
		return Call{}, fail(KindInvalidAction, "Blob index %d out of range", index)
	}
	if blob.Contract != e.rules.Contract {
		return Call{}, fail(KindInvalidAction, "Blob %d is addressed to %s, not %s", index, blob.Contract, e.rules.Contract)
	}
	action, err := DecodeAction(blob.Data)
	if err != nil {
		return Call{}, err
	}

	call := Call{
		Identity: txn.Identity,
		Action:   action,
		Seed:     ctx.BlockHash,
	}
	for _, b := range txn.Blobs {
		if b.Contract != e.rules.WagerToken && b.Contract != e.rules.RewardToken {
			continue
		}
		t, err := tx.DecodeTransfer(b.Data)
		if err != nil {
			continue
		}
		call.Transfers = append(call.Transfers, TokenTransfer{Token: b.Contract, Transfer: t})
	}
	return call, nil
}

// execution is the working set of one Execute call. Every mutation lands on
// state, a private clone.
type execution struct {
	*Engine
	state *State
	call  Call
	user  tx.Identity
}

func (x *execution) drawerFor(label string, policy SeedPolicy) (cards.Drawer, error) {
	if policy == SeedIdentity {
		return x.drawer(label, []byte(x.user)), nil
	}
	if len(x.call.Seed) == 0 {
		return nil, fail(KindMissingContext, "Missing tx context necessary for %s", label)
	}
	return x.drawer(fmt.Sprintf("%s:%s", label, x.user), x.call.Seed), nil
}

func (x *execution) credit(balances map[tx.Identity]uint32, amount uint32) error {
	if amount == 0 {
		return nil
	}
	current := balances[x.user]
	if amount > ^uint32(0)-current {
		return fail(KindBalanceOverflow, "Balance overflow for user %s", x.user)
	}
	balances[x.user] = current + amount
	return nil
}

func (x *execution) debit(balances map[tx.Identity]uint32, amount uint32, what string) error {
	if amount == 0 {
		return nil
	}
	current := balances[x.user]
	if current < amount {
		return fail(KindInsufficientFunds, "Insufficient %s. You have %d but need %d", what, current, amount)
	}
	balances[x.user] = current - amount
	return nil
}
