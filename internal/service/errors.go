package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is the only signal callers get for a failed login,
	// a locked or inactive account, or an unusable refresh token.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrNoIndex         = errors.New("company index is not configured")

	ErrInvalidToken = fmt.Errorf("%w: invalid refresh token", ErrUnauthenticated)
	// ErrCorruptToken marks a ledger row whose owner cannot be resolved. It is
	// a server fault, never reported as a client error.
	ErrCorruptToken = errors.New("refresh token owner unresolvable")
)

func validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
