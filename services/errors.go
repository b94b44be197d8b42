package services

import "errors"

// Engine error taxonomy. All of these are returned as values and compared
// with errors.Is; none are used for control flow across goroutines.
var (
	// ErrMatchNotFound — the referenced match does not exist. Safe to surface
	// to the caller, never retried automatically.
	ErrMatchNotFound = errors.New("match not found")

	// ErrMatchNotActive — the match already reached a terminal status. From a
	// player's perspective this is "match already ended", not a failure.
	ErrMatchNotActive = errors.New("match is not active")

	// ErrAlreadySettled — a concurrent trigger settled the match first.
	// Treated as a successful no-op: the desired end state is already reached.
	ErrAlreadySettled = errors.New("match already settled")

	// ErrTurnConflict — the match state moved between the caller's read and
	// its conditional write. Re-read and retry a bounded number of times.
	ErrTurnConflict = errors.New("match state changed concurrently")

	// ErrStoreUnavailable — the database could not be reached. Must never be
	// interpreted as "no timeout" or "already settled".
	ErrStoreUnavailable = errors.New("match store unavailable")

	// ErrDuplicateClaim — the claim token was already consumed. Expected,
	// silently-successful outcome of the idempotency layer.
	ErrDuplicateClaim = errors.New("reward already claimed")

	// ErrNotYourTurn — the acting participant does not own the current turn.
	ErrNotYourTurn = errors.New("not your turn")
)
