package service

import "errors"

// Error taxonomy for lifecycle operations. Callers classify with errors.Is;
// the HTTP layer maps each class to a status code. None of these are retried
// automatically — webhook settlements are safe to retry because "already
// processed" is a success outcome, not an error.
var (
	// ErrNotFound — a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden — the actor lacks ownership or role for the action.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState — the entity is not in the status the transition requires.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict — a uniqueness invariant would be violated.
	ErrConflict = errors.New("conflict")
	// ErrValidation — malformed input, rejected before any entity lookup.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidCredentials — login with unknown username or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
