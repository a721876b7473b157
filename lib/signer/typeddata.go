// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Default domain identity of the access-control contract.
const (
	DefaultDomainName    = "ACL"
	DefaultDomainVersion = "1"
)

// Primary type names.
const (
	TypeIssuerSelf   = "PermissionedV2IssuerSelf"
	TypeIssuerShared = "PermissionedV2IssuerShared"
	TypeRecipient    = "PermissionedV2Recipient"
)

// Domain is the EIP-712 domain separator input. A zero
// VerifyingContract is left out of the domain type entirely.
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract common.Address
}

// DefaultDomain returns the ACL domain for chainID.
func DefaultDomain(chainID uint64) Domain {
	return Domain{Name: DefaultDomainName, Version: DefaultDomainVersion, ChainID: chainID}
}

// Fields are the values a permit signature may cover. Which of them a
// primary type uses is fixed by PermitTypedData.
type Fields struct {
	Issuer            common.Address
	Expiration        int64
	Recipient         common.Address
	ValidatorID       uint64
	ValidatorContract common.Address

	// SealingKey is the 32-byte sealing public key as unprefixed hex.
	SealingKey string

	// IssuerSignature is only covered by the recipient type.
	IssuerSignature []byte
}

var primaryFields = map[string][]apitypes.Type{
	TypeIssuerSelf: {
		{Name: "issuer", Type: "address"},
		{Name: "expiration", Type: "uint64"},
		{Name: "recipient", Type: "address"},
		{Name: "validatorId", Type: "uint256"},
		{Name: "validatorContract", Type: "address"},
		{Name: "sealingKey", Type: "bytes32"},
	},
	TypeIssuerShared: {
		{Name: "issuer", Type: "address"},
		{Name: "expiration", Type: "uint64"},
		{Name: "recipient", Type: "address"},
		{Name: "validatorId", Type: "uint256"},
		{Name: "validatorContract", Type: "address"},
	},
	TypeRecipient: {
		{Name: "sealingKey", Type: "bytes32"},
		{Name: "issuerSignature", Type: "bytes"},
	},
}

// PermitTypedData builds the typed data for primaryType over fields.
func PermitTypedData(domain Domain, primaryType string, fields Fields) (apitypes.TypedData, error) {
	types, ok := primaryFields[primaryType]
	if !ok {
		return apitypes.TypedData{}, fmt.Errorf("signer: unknown primary type %q", primaryType)
	}
	if fields.Expiration < 0 {
		return apitypes.TypedData{}, fmt.Errorf("signer: negative expiration %d", fields.Expiration)
	}

	all := apitypes.TypedDataMessage{
		"issuer":            fields.Issuer.Hex(),
		"expiration":        (*math.HexOrDecimal256)(big.NewInt(fields.Expiration)),
		"recipient":         fields.Recipient.Hex(),
		"validatorId":       (*math.HexOrDecimal256)(new(big.Int).SetUint64(fields.ValidatorID)),
		"validatorContract": fields.ValidatorContract.Hex(),
		"sealingKey":        "0x" + fields.SealingKey,
		"issuerSignature":   hexutil.Encode(fields.IssuerSignature),
	}
	message := make(apitypes.TypedDataMessage, len(types))
	for _, field := range types {
		message[field.Name] = all[field.Name]
	}

	domainTypes := []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
	}
	typedDomain := apitypes.TypedDataDomain{
		Name:    domain.Name,
		Version: domain.Version,
		ChainId: (*math.HexOrDecimal256)(new(big.Int).SetUint64(domain.ChainID)),
	}
	if domain.VerifyingContract != (common.Address{}) {
		domainTypes = append(domainTypes, apitypes.Type{Name: "verifyingContract", Type: "address"})
		typedDomain.VerifyingContract = domain.VerifyingContract.Hex()
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			primaryType:    types,
		},
		PrimaryType: primaryType,
		Domain:      typedDomain,
		Message:     message,
	}, nil
}

// Digest returns the EIP-712 signing hash of data.
func Digest(data apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, fmt.Errorf("signer: hashing typed data: %w", err)
	}
	return hash, nil
}
