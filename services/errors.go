// Package services implements the accounting and membership engine: the
// point ledger with lazy period rollover, the daily check-in store, the
// leaderboard builder, and the group/invite state machine. All persistence
// goes through the store.Store boundary; every read-modify-write uses the
// store's atomic Update.
package services

import "errors"

// Error taxonomy surfaced to callers. Controllers map these onto HTTP status
// codes; services always wrap them with context via fmt.Errorf and %w.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("invalid input")
)
