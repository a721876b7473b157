// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permit

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// PublicSealingPair is the shareable half of a sealing pair.
type PublicSealingPair struct {
	PublicKey string `json:"publicKey"`
}

// Interface is the public projection of a permit: every field except
// the sealing pair's private half.
type Interface struct {
	Name               string            `json:"name"`
	Type               Type              `json:"type"`
	Issuer             common.Address    `json:"issuer"`
	Expiration         int64             `json:"expiration"`
	Recipient          common.Address    `json:"recipient"`
	ValidatorID        uint64            `json:"validatorId"`
	ValidatorContract  common.Address    `json:"validatorContract"`
	SealingPair        PublicSealingPair `json:"sealingPair"`
	IssuerSignature    hexutil.Bytes     `json:"issuerSignature"`
	RecipientSignature hexutil.Bytes     `json:"recipientSignature"`
}

// Permission is what a verifying party needs: the Interface without
// name, type and sealing pair, plus the sealing public key as a single
// 0x-prefixed field.
type Permission struct {
	Issuer             common.Address `json:"issuer"`
	Expiration         int64          `json:"expiration"`
	Recipient          common.Address `json:"recipient"`
	ValidatorID        uint64         `json:"validatorId"`
	ValidatorContract  common.Address `json:"validatorContract"`
	SealingKey         string         `json:"sealingKey"`
	IssuerSignature    hexutil.Bytes  `json:"issuerSignature"`
	RecipientSignature hexutil.Bytes  `json:"recipientSignature"`
}

// Interface returns the public projection of p. Slices are copies.
func (p *Permit) Interface() Interface {
	view := Interface{
		Name:               p.Name,
		Type:               p.Type,
		Issuer:             p.Issuer,
		Expiration:         p.Expiration,
		Recipient:          p.Recipient,
		ValidatorID:        p.ValidatorID,
		ValidatorContract:  p.ValidatorContract,
		IssuerSignature:    cloneBytes(p.IssuerSignature),
		RecipientSignature: cloneBytes(p.RecipientSignature),
	}
	if p.SealingPair != nil {
		view.SealingPair.PublicKey = p.SealingPair.PublicKey
	}
	return view
}

// Permission returns the verifier's view of p.
func (p *Permit) Permission() Permission {
	return p.Interface().Permission()
}

// Permission projects an Interface to its Permission.
func (i Interface) Permission() Permission {
	return Permission{
		Issuer:             i.Issuer,
		Expiration:         i.Expiration,
		Recipient:          i.Recipient,
		ValidatorID:        i.ValidatorID,
		ValidatorContract:  i.ValidatorContract,
		SealingKey:         "0x" + i.SealingPair.PublicKey,
		IssuerSignature:    i.IssuerSignature,
		RecipientSignature: i.RecipientSignature,
	}
}
