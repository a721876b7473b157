// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permit

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/bureau-foundation/permit/lib/signer"
)

// Role is the party a signature belongs to.
type Role string

const (
	RoleIssuer    Role = "issuer"
	RoleRecipient Role = "recipient"
)

// SigningRole returns the role the next Sign call signs for. It is the
// recipient only for recipient permits that already carry the issuer's
// signature.
func (p *Permit) SigningRole() Role {
	if p.Type == TypeRecipient && len(p.IssuerSignature) > 0 {
		return RoleRecipient
	}
	return RoleIssuer
}

// Sign obtains a signature from s for the current signing role under
// the default domain for chainID. See SignWithDomain.
func (p *Permit) Sign(ctx context.Context, chainID uint64, s signer.Signer) error {
	return p.SignWithDomain(ctx, signer.DefaultDomain(chainID), s)
}

// SignWithDomain obtains a signature from s for the current signing
// role and stores it in that role's field, replacing any earlier one.
// The signer must sign for the role's account. On any failure the
// permit is unchanged and the error is a *SigningError.
func (p *Permit) SignWithDomain(ctx context.Context, domain signer.Domain, s signer.Signer) error {
	role := p.SigningRole()
	fail := func(err error) error { return &SigningError{Role: role, Err: err} }

	expected := p.Issuer
	if role == RoleRecipient {
		expected = p.Recipient
	}
	address, err := s.Address(ctx)
	if err != nil {
		return fail(fmt.Errorf("reading signer account: %w", err))
	}
	if address != expected {
		return fail(fmt.Errorf("%w: signer is %s, %s is %s", ErrSignerMismatch, address.Hex(), role, expected.Hex()))
	}

	data, err := p.TypedData(domain)
	if err != nil {
		return fail(err)
	}
	signature, err := s.SignTypedData(ctx, data)
	if err != nil {
		return fail(err)
	}
	if len(signature) != signer.SignatureSize {
		return fail(fmt.Errorf("%w: %d bytes, want %d", ErrMalformedSignature, len(signature), signer.SignatureSize))
	}

	if role == RoleRecipient {
		p.RecipientSignature = cloneBytes(signature)
	} else {
		p.IssuerSignature = cloneBytes(signature)
	}
	return nil
}

// TypedData returns the EIP-712 structure the current signing role
// signs under domain.
func (p *Permit) TypedData(domain signer.Domain) (apitypes.TypedData, error) {
	if p.SealingPair == nil {
		return apitypes.TypedData{}, ErrNoSealingPair
	}
	fields := signer.Fields{
		Issuer:            p.Issuer,
		Expiration:        p.Expiration,
		Recipient:         p.Recipient,
		ValidatorID:       p.ValidatorID,
		ValidatorContract: p.ValidatorContract,
		SealingKey:        p.SealingPair.PublicKey,
		IssuerSignature:   p.IssuerSignature,
	}
	return signer.PermitTypedData(domain, p.primaryType(), fields)
}

func (p *Permit) primaryType() string {
	switch {
	case p.SigningRole() == RoleRecipient:
		return signer.TypeRecipient
	case p.Type == TypeSelf:
		return signer.TypeIssuerSelf
	default:
		return signer.TypeIssuerShared
	}
}
