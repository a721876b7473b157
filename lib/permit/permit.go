// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permit

import (
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/bureau-foundation/permit/lib/account"
	"github.com/bureau-foundation/permit/lib/sealing"
)

// Type governs which signatures a permit requires.
type Type string

const (
	TypeSelf      Type = "self"
	TypeSharing   Type = "sharing"
	TypeRecipient Type = "recipient"
)

// Known reports whether t is one of the defined permit types.
func (t Type) Known() bool {
	switch t {
	case TypeSelf, TypeSharing, TypeRecipient:
		return true
	}
	return false
}

// Defaults applied by Create.
const (
	DefaultName       = "Unnamed Permit"
	DefaultExpiration = int64(1000000000000)
)

// Permit is a signed grant to unseal values sealed to its SealingPair.
type Permit struct {
	Name              string
	Type              Type
	Issuer            common.Address
	Expiration        int64
	Recipient         common.Address
	ValidatorID       uint64
	ValidatorContract common.Address

	// SealingPair is generated at creation and belongs to this permit
	// alone.
	SealingPair *sealing.KeyPair

	// Empty until signed. Render as "0x" when empty.
	IssuerSignature    hexutil.Bytes
	RecipientSignature hexutil.Bytes
}

// Options are the inputs to Create. Account fields are hex account
// strings; an empty string selects the default. Signatures are
// 0x-prefixed hex and are only supplied when carried over from an
// earlier permit.
type Options struct {
	Type   Type
	Issuer string

	// Recipient is required for sharing and recipient permits.
	Recipient string

	// Name defaults to DefaultName.
	Name string

	// Expiration is a unix time in seconds. Zero selects
	// DefaultExpiration.
	Expiration int64

	ValidatorID       uint64
	ValidatorContract string

	// IssuerSignature is required for recipient permits.
	IssuerSignature    string
	RecipientSignature string
}

// KeyGenerator produces the sealing pair for a new permit.
type KeyGenerator func() (*sealing.KeyPair, error)

// Create validates options and returns a new permit with a freshly
// generated sealing pair.
func Create(options Options) (*Permit, error) {
	return CreateWith(options, sealing.GenerateKeyPair)
}

// CreateWith is Create with an explicit sealing key backend.
func CreateWith(options Options, generate KeyGenerator) (*Permit, error) {
	permit, err := options.build()
	if err != nil {
		return nil, err
	}
	keypair, err := generate()
	if err != nil {
		return nil, fmt.Errorf("permit: generating sealing pair: %w", err)
	}
	if keypair == nil {
		return nil, fmt.Errorf("permit: key generator returned no sealing pair")
	}
	permit.SealingPair = keypair
	return permit, nil
}

func (o Options) build() (*Permit, error) {
	if !o.Type.Known() {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown permit type %q", o.Type)}
	}

	issuer, err := parseAccount("issuer", o.Issuer)
	if err != nil {
		return nil, err
	}
	if account.IsZero(issuer) {
		return nil, &ValidationError{Field: "issuer", Reason: "required"}
	}

	recipient, err := parseAccount("recipient", o.Recipient)
	if err != nil {
		return nil, err
	}
	if o.Type != TypeSelf && account.IsZero(recipient) {
		return nil, &ValidationError{Field: "recipient", Reason: fmt.Sprintf("required for %s permits", o.Type)}
	}

	validatorContract, err := parseAccount("validatorContract", o.ValidatorContract)
	if err != nil {
		return nil, err
	}

	if o.Expiration < 0 {
		return nil, &ValidationError{Field: "expiration", Reason: "must not be negative"}
	}
	expiration := o.Expiration
	if expiration == 0 {
		expiration = DefaultExpiration
	}

	issuerSignature, err := parseSignature("issuerSignature", o.IssuerSignature)
	if err != nil {
		return nil, err
	}
	if o.Type == TypeRecipient && len(issuerSignature) == 0 {
		return nil, &ValidationError{Field: "issuerSignature", Reason: "required for recipient permits"}
	}
	recipientSignature, err := parseSignature("recipientSignature", o.RecipientSignature)
	if err != nil {
		return nil, err
	}

	name := o.Name
	if name == "" {
		name = DefaultName
	}

	return &Permit{
		Name:               name,
		Type:               o.Type,
		Issuer:             issuer,
		Expiration:         expiration,
		Recipient:          recipient,
		ValidatorID:        o.ValidatorID,
		ValidatorContract:  validatorContract,
		IssuerSignature:    issuerSignature,
		RecipientSignature: recipientSignature,
	}, nil
}

// Options returns the issuance fields and signatures of p, for
// creating a related permit by overriding some of them. The sealing
// pair is never included.
func (p *Permit) Options() Options {
	return Options{
		Type:               p.Type,
		Issuer:             p.Issuer.Hex(),
		Recipient:          p.Recipient.Hex(),
		Name:               p.Name,
		Expiration:         p.Expiration,
		ValidatorID:        p.ValidatorID,
		ValidatorContract:  p.ValidatorContract.Hex(),
		IssuerSignature:    signatureHex(p.IssuerSignature),
		RecipientSignature: signatureHex(p.RecipientSignature),
	}
}

// Holder returns the account a permit is used by: the recipient for
// recipient permits, the issuer otherwise.
func (p *Permit) Holder() common.Address {
	if p.Type == TypeRecipient {
		return p.Recipient
	}
	return p.Issuer
}

// Close releases the sealing pair's private key. Unsealing and
// serialization fail afterwards; everything else keeps working.
func (p *Permit) Close() error {
	if p.SealingPair == nil {
		return nil
	}
	return p.SealingPair.Close()
}

func parseAccount(field, value string) (common.Address, error) {
	if value == "" {
		return account.Zero, nil
	}
	address, err := account.Parse(value)
	if err != nil {
		return account.Zero, &ValidationError{Field: field, Reason: err.Error()}
	}
	return address, nil
}

func parseSignature(field, value string) (hexutil.Bytes, error) {
	if value == "" || value == "0x" {
		return nil, nil
	}
	decoded, err := hexutil.Decode(value)
	if err != nil {
		return nil, &ValidationError{Field: field, Reason: err.Error()}
	}
	return decoded, nil
}

func signatureHex(signature []byte) string {
	if len(signature) == 0 {
		return ""
	}
	return hexutil.Encode(signature)
}

func cloneBytes(value []byte) hexutil.Bytes {
	if len(value) == 0 {
		return nil
	}
	return slices.Clone(value)
}
