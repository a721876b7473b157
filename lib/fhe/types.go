// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fhe

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UType is the scalar type tag of a sealed value. The numeric values
// are part of the wire format shared with contracts and other clients.
type UType uint8

const (
	Bool    UType = 0
	Uint4   UType = 1
	Uint8   UType = 2
	Uint16  UType = 3
	Uint32  UType = 4
	Uint64  UType = 5
	Uint128 UType = 6
	Uint160 UType = 7
	Uint256 UType = 8

	// Address is the tag sealed account identifiers travel under.
	Address = Uint160
)

var utypeNames = map[UType]string{
	Bool:    "bool",
	Uint4:   "uint4",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Uint128: "uint128",
	Uint160: "uint160",
	Uint256: "uint256",
}

// Known reports whether t is a tag this package can decode.
func (t UType) Known() bool {
	_, ok := utypeNames[t]
	return ok
}

// IsUint reports whether t is an unsigned integer tag that decodes to
// an integer (Uint160 decodes to an address and is excluded).
func (t UType) IsUint() bool {
	return t.Known() && t != Bool && t != Uint160
}

// Bits returns the declared width of t, or 0 for unknown tags.
func (t UType) Bits() int {
	switch t {
	case Bool:
		return 1
	case Uint4:
		return 4
	case Uint8:
		return 8
	case Uint16:
		return 16
	case Uint32:
		return 32
	case Uint64:
		return 64
	case Uint128:
		return 128
	case Uint160:
		return 160
	case Uint256:
		return 256
	default:
		return 0
	}
}

func (t UType) String() string {
	if name, ok := utypeNames[t]; ok {
		return name
	}
	return "utype(" + strconv.Itoa(int(t)) + ")"
}

// ParseUType maps a tag name ("bool", "uint64", "address", ...) to its
// UType.
func ParseUType(name string) (UType, error) {
	if name == "address" {
		return Address, nil
	}
	for utype, candidate := range utypeNames {
		if candidate == name {
			return utype, nil
		}
	}
	return 0, fmt.Errorf("fhe: unknown type name %q", name)
}

// Item is a sealed value: ciphertext bytes produced against a permit's
// sealing public key, tagged with the scalar type of the cleartext.
type Item struct {
	Data  hexutil.Bytes `json:"data"`
	UType UType         `json:"utype"`
}

// SealedBool tags data as a sealed boolean.
func SealedBool(data []byte) Item { return Item{Data: data, UType: Bool} }

// SealedUint tags data as a sealed unsigned integer of the given width.
func SealedUint(data []byte, utype UType) Item { return Item{Data: data, UType: utype} }

// SealedAddress tags data as a sealed account identifier.
func SealedAddress(data []byte) Item { return Item{Data: data, UType: Address} }
