package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// ErrAlreadyResolved means the attendance day or task already has a
	// terminal status; the transition may happen at most once.
	ErrAlreadyResolved = errors.New("already resolved")

	// ErrNotFound means the referenced task or week does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientBalance means a redemption asked for more points
	// than the user's current balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnknownUser means the identity is not one of the tracked pair.
	ErrUnknownUser = errors.New("unknown user")

	// ErrInvalidAmount means a redemption amount was zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrDuplicateEntry is the internal duplicate-idempotency-key
	// condition. The sweeper swallows it; it never reaches a caller.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")
)
