// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permit

import (
	"errors"
	"fmt"
)

var (
	// ErrSignerMismatch is wrapped by SigningError when the signer's
	// account is not the account for the signing role.
	ErrSignerMismatch = errors.New("permit: signer account does not match")

	// ErrMalformedSignature is wrapped by SigningError when a signer
	// returns something other than a 65-byte signature.
	ErrMalformedSignature = errors.New("permit: malformed signature")

	// ErrNoSealingPair is returned by operations that need the sealing
	// pair on a permit that has none.
	ErrNoSealingPair = errors.New("permit: no sealing pair")
)

// ValidationError reports a missing or malformed field during creation
// or deserialization.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("permit: invalid %s: %s", e.Field, e.Reason)
}

// SigningError reports a failed signature acquisition. The permit is
// unchanged when one is returned.
type SigningError struct {
	Role Role
	Err  error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("permit: signing as %s: %v", e.Role, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }
