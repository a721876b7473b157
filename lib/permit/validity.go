// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permit

import "time"

// Reason explains why a permit is not valid.
type Reason string

const (
	ReasonNotSigned Reason = "not-signed"
	ReasonExpired   Reason = "expired"
)

// Validity is the result of a validity check. Error is empty when
// Valid is true.
type Validity struct {
	Valid bool   `json:"valid"`
	Error Reason `json:"error,omitempty"`
}

// IsSigned reports whether every signature the permit's type requires
// is present.
func (p *Permit) IsSigned() bool {
	if len(p.IssuerSignature) == 0 {
		return false
	}
	if p.Type == TypeRecipient {
		return len(p.RecipientSignature) > 0
	}
	return true
}

// IsExpired reports whether the permit has expired now.
func (p *Permit) IsExpired() bool {
	return p.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether the permit has expired at now. A permit
// expires at the start of its expiration second.
func (p *Permit) IsExpiredAt(now time.Time) bool {
	return now.Unix() >= p.Expiration
}

// IsValid is IsValidAt for the current time.
func (p *Permit) IsValid() Validity {
	return p.IsValidAt(time.Now())
}

// IsValidAt checks signature completeness, then expiry at now, and
// reports the first failure.
func (p *Permit) IsValidAt(now time.Time) Validity {
	if !p.IsSigned() {
		return Validity{Error: ReasonNotSigned}
	}
	if p.IsExpiredAt(now) {
		return Validity{Error: ReasonExpired}
	}
	return Validity{Valid: true}
}
