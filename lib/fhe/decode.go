// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fhe

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/bureau-foundation/permit/lib/account"
)

// ErrUnknownUType is wrapped by DecodeError when the tag is not one
// this package knows.
var ErrUnknownUType = errors.New("unrecognized utype")

// DecodeError reports a sealed value that could not be turned into a
// cleartext: an unknown tag, a tag of the wrong kind for a typed
// decode, or a ciphertext the opening capability rejected.
type DecodeError struct {
	UType UType

	// Tag is the tag as it appeared in the input when it could not be
	// read as a UType at all. UType is meaningless when Tag is set.
	Tag string

	Err error
}

func (e *DecodeError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("fhe: decoding utype %s: %v", e.Tag, e.Err)
	}
	return fmt.Sprintf("fhe: decoding %s: %v", e.UType, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode converts an opened integer into the cleartext for utype:
// bool for Bool, checksummed address string for Uint160, *big.Int for
// the remaining unsigned types. The returned integer never aliases raw.
func Decode(raw *big.Int, utype UType) (any, error) {
	if !utype.Known() {
		return nil, &DecodeError{UType: utype, Err: ErrUnknownUType}
	}
	if raw == nil {
		return nil, &DecodeError{UType: utype, Err: errors.New("nil value")}
	}

	switch utype {
	case Bool:
		return raw.Sign() != 0, nil
	case Uint160:
		return account.FromUint(raw).Hex(), nil
	default:
		return new(big.Int).Set(raw), nil
	}
}

// DecodeBool is Decode restricted to the Bool tag.
func DecodeBool(raw *big.Int, utype UType) (bool, error) {
	if utype != Bool {
		return false, &DecodeError{UType: utype, Err: fmt.Errorf("want %s", Bool)}
	}
	value, err := Decode(raw, utype)
	if err != nil {
		return false, err
	}
	return value.(bool), nil
}

// DecodeUint is Decode restricted to integer tags.
func DecodeUint(raw *big.Int, utype UType) (*big.Int, error) {
	if !utype.IsUint() {
		return nil, &DecodeError{UType: utype, Err: errors.New("want an unsigned integer type")}
	}
	value, err := Decode(raw, utype)
	if err != nil {
		return nil, err
	}
	return value.(*big.Int), nil
}

// DecodeAddress is Decode restricted to the address tag.
func DecodeAddress(raw *big.Int, utype UType) (string, error) {
	if utype != Address {
		return "", &DecodeError{UType: utype, Err: fmt.Errorf("want %s", Address)}
	}
	value, err := Decode(raw, utype)
	if err != nil {
		return "", err
	}
	return value.(string), nil
}
