package engine

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure. Every kind is terminal: the caller has
// to change the request and submit a new action.
type Kind string

const (
	KindGameInProgress    Kind = "game_in_progress"
	KindNoActiveGame      Kind = "no_active_game"
	KindBetTooLow         Kind = "bet_too_low"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindTransferMismatch  Kind = "transfer_mismatch"
	KindBalanceOverflow   Kind = "balance_overflow"
	KindInvalidToken      Kind = "invalid_token"
	KindMissingContext    Kind = "missing_context"
	KindInvalidAction     Kind = "invalid_action"
)

// Error is a rejected action. Message is the reason shown to clients and is
// preserved verbatim by every layer above the engine.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is an *Error of the same kind, so sentinels
// below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrGameInProgress    = &Error{Kind: KindGameInProgress, Message: "game in progress"}
	ErrNoActiveGame      = &Error{Kind: KindNoActiveGame, Message: "no active game"}
	ErrBetTooLow         = &Error{Kind: KindBetTooLow, Message: "bet too low"}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Message: "insufficient funds"}
	ErrTransferMismatch  = &Error{Kind: KindTransferMismatch, Message: "transfer mismatch"}
	ErrBalanceOverflow   = &Error{Kind: KindBalanceOverflow, Message: "balance overflow"}
	ErrInvalidToken      = &Error{Kind: KindInvalidToken, Message: "invalid token"}
	ErrMissingContext    = &Error{Kind: KindMissingContext, Message: "missing execution context"}
	ErrInvalidAction     = &Error{Kind: KindInvalidAction, Message: "invalid action"}
)

func fail(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of an engine error anywhere in err's chain, or ""
// if err did not come from the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
