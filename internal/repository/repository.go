package repository

import "errors"

// Sentinel errors shared by every implementation. The service layer translates
// these into its caller-facing taxonomy; repositories never leak driver errors
// for these two conditions.
var (
	// ErrNotFound entity absent. Scoped lookups return it for "exists but owned
	// by someone else" too, so callers cannot tell the cases apart.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate unique-constraint violation (username, email, session code).
	ErrDuplicate = errors.New("duplicate record")
)
