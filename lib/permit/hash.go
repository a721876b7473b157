// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permit

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/bureau-foundation/permit/lib/codec"
)

// identity is the canonical hash input. Integer keys fix the field
// order under deterministic CBOR encoding.
type identity struct {
	Type              string `cbor:"1,keyasint"`
	Issuer            []byte `cbor:"2,keyasint"`
	Recipient         []byte `cbor:"3,keyasint"`
	Expiration        int64  `cbor:"4,keyasint"`
	ValidatorID       uint64 `cbor:"5,keyasint"`
	ValidatorContract []byte `cbor:"6,keyasint"`
}

// Hash returns the Keccak-256 identity of the permit's issuance fields:
// type, issuer, recipient, expiration, validator ID and validator
// contract. Name, sealing pair and signatures do not contribute.
func (p *Permit) Hash() common.Hash {
	encoded, err := codec.Marshal(identity{
		Type:              string(p.Type),
		Issuer:            p.Issuer.Bytes(),
		Recipient:         p.Recipient.Bytes(),
		Expiration:        p.Expiration,
		ValidatorID:       p.ValidatorID,
		ValidatorContract: p.ValidatorContract.Bytes(),
	})
	if err != nil {
		// Only fixed-size scalars and byte strings are encoded.
		panic(fmt.Sprintf("permit: encoding identity: %v", err))
	}
	return crypto.Keccak256Hash(encoded)
}

// HashHex returns Hash as 0x-prefixed lowercase hex.
func (p *Permit) HashHex() string {
	return p.Hash().Hex()
}
