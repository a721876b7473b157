// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package account parses and formats the 160-bit account identifiers
// that appear in permits (issuer, recipient, validator contract) and
// in unsealed address values.
//
// Identifiers are go-ethereum common.Address values. Parsing accepts
// all-lowercase or all-uppercase hex and, when the input is mixed
// case, requires it to carry a valid EIP-55 checksum.
package account

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Zero is the null account. It is the default recipient and validator
// contract of a permit.
var Zero = common.Address{}

// Errors returned by Parse.
var (
	ErrMalformed = errors.New("account: not a 20-byte hex address")
	ErrChecksum  = errors.New("account: mixed-case address has an invalid checksum")
)

// Parse validates and decodes a 0x-prefixed hex account identifier.
func Parse(value string) (common.Address, error) {
	if !strings.HasPrefix(value, "0x") && !strings.HasPrefix(value, "0X") {
		return common.Address{}, fmt.Errorf("%w: %q lacks 0x prefix", ErrMalformed, value)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrMalformed, value)
	}

	address := common.HexToAddress(value)
	digits := value[2:]
	if digits != strings.ToLower(digits) && digits != strings.ToUpper(digits) {
		if address.Hex()[2:] != digits {
			return common.Address{}, fmt.Errorf("%w: %q", ErrChecksum, value)
		}
	}
	return address, nil
}

// IsZero reports whether address is the null account.
func IsZero(address common.Address) bool {
	return address == Zero
}

// FromUint returns the account formed by the low 160 bits of value.
// The sign of value is ignored.
func FromUint(value *big.Int) common.Address {
	return common.BigToAddress(value)
}

// ToUint returns the account as an unsigned integer, the form in which
// addresses are sealed.
func ToUint(address common.Address) *big.Int {
	return new(big.Int).SetBytes(address.Bytes())
}
