// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/bureau-foundation/permit/lib/sealing"
)

// Snapshot is the portable form of a permit, private key included.
// Accounts and signatures are lowercase 0x hex; sealing keys are
// unprefixed lowercase hex.
type Snapshot struct {
	Name               string          `json:"name"`
	Type               Type            `json:"type"`
	Issuer             string          `json:"issuer"`
	Recipient          string          `json:"recipient"`
	Expiration         int64           `json:"expiration"`
	ValidatorID        uint64          `json:"validatorId"`
	ValidatorContract  string          `json:"validatorContract"`
	IssuerSignature    string          `json:"issuerSignature"`
	RecipientSignature string          `json:"recipientSignature"`
	SealingPair        SnapshotKeyPair `json:"sealingPair"`
}

// SnapshotKeyPair holds both halves of a sealing pair.
type SnapshotKeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// Serialize returns the snapshot of p. It fails once the sealing pair
// has been closed.
func (p *Permit) Serialize() (Snapshot, error) {
	if p.SealingPair == nil {
		return Snapshot{}, ErrNoSealingPair
	}
	privateKey, err := p.SealingPair.PrivateKeyHex()
	if err != nil {
		return Snapshot{}, fmt.Errorf("permit: serializing sealing pair: %w", err)
	}
	return Snapshot{
		Name:               p.Name,
		Type:               p.Type,
		Issuer:             lowerHex(p.Issuer),
		Recipient:          lowerHex(p.Recipient),
		Expiration:         p.Expiration,
		ValidatorID:        p.ValidatorID,
		ValidatorContract:  lowerHex(p.ValidatorContract),
		IssuerSignature:    hexutil.Encode(p.IssuerSignature),
		RecipientSignature: hexutil.Encode(p.RecipientSignature),
		SealingPair: SnapshotKeyPair{
			PublicKey:  p.SealingPair.PublicKey,
			PrivateKey: privateKey,
		},
	}, nil
}

// MarshalSnapshot returns the JSON encoding of p's snapshot.
func (p *Permit) MarshalSnapshot() ([]byte, error) {
	snapshot, err := p.Serialize()
	if err != nil {
		return nil, err
	}
	return json.Marshal(snapshot)
}

// Deserialize rebuilds a permit from a snapshot. It checks structure
// only: type, issuer and both sealing key halves are required, present
// fields must be well formed, and the keys must form a pair.
// Signatures are not verified and the hash is not compared.
func Deserialize(snapshot Snapshot) (*Permit, error) {
	if snapshot.Type == "" {
		return nil, &ValidationError{Field: "type", Reason: "required"}
	}
	if !snapshot.Type.Known() {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown permit type %q", snapshot.Type)}
	}
	if snapshot.Issuer == "" {
		return nil, &ValidationError{Field: "issuer", Reason: "required"}
	}
	issuer, err := parseAccount("issuer", snapshot.Issuer)
	if err != nil {
		return nil, err
	}
	recipient, err := parseAccount("recipient", snapshot.Recipient)
	if err != nil {
		return nil, err
	}
	validatorContract, err := parseAccount("validatorContract", snapshot.ValidatorContract)
	if err != nil {
		return nil, err
	}
	if snapshot.Expiration < 0 {
		return nil, &ValidationError{Field: "expiration", Reason: "must not be negative"}
	}
	issuerSignature, err := parseSignature("issuerSignature", snapshot.IssuerSignature)
	if err != nil {
		return nil, err
	}
	recipientSignature, err := parseSignature("recipientSignature", snapshot.RecipientSignature)
	if err != nil {
		return nil, err
	}

	if snapshot.SealingPair.PublicKey == "" {
		return nil, &ValidationError{Field: "sealingPair.publicKey", Reason: "required"}
	}
	if snapshot.SealingPair.PrivateKey == "" {
		return nil, &ValidationError{Field: "sealingPair.privateKey", Reason: "required"}
	}
	keypair, err := sealing.NewKeyPair(snapshot.SealingPair.PrivateKey, snapshot.SealingPair.PublicKey)
	if err != nil {
		return nil, &ValidationError{Field: "sealingPair", Reason: err.Error()}
	}

	return &Permit{
		Name:               snapshot.Name,
		Type:               snapshot.Type,
		Issuer:             issuer,
		Expiration:         snapshot.Expiration,
		Recipient:          recipient,
		ValidatorID:        snapshot.ValidatorID,
		ValidatorContract:  validatorContract,
		SealingPair:        keypair,
		IssuerSignature:    issuerSignature,
		RecipientSignature: recipientSignature,
	}, nil
}

// ParseSnapshot decodes a JSON snapshot and deserializes it. Malformed
// JSON and values of the wrong JSON type are ValidationErrors.
func ParseSnapshot(data []byte) (*Permit, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ValidationError{
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("expected %s, got JSON %s", typeErr.Type, typeErr.Value),
			}
		}
		return nil, &ValidationError{Field: "snapshot", Reason: err.Error()}
	}
	return Deserialize(snapshot)
}

func lowerHex(address common.Address) string {
	return strings.ToLower(address.Hex())
}
