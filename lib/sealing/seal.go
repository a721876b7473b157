// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealing

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/nacl/box"

	"github.com/bureau-foundation/permit/lib/account"
	"github.com/bureau-foundation/permit/lib/codec"
)

// Version identifies the envelope construction.
const Version = "x25519-xsalsa20-poly1305"

const (
	nonceSize     = 24
	maxValueBits  = 256
	maxValueBytes = maxValueBits / 8
)

// ErrValueRange is returned when a value is negative or wider than 256
// bits.
var ErrValueRange = errors.New("sealing: value must be a non-negative integer of at most 256 bits")

type envelope struct {
	Version            string `cbor:"1,keyasint"`
	Nonce              []byte `cbor:"2,keyasint"`
	EphemeralPublicKey []byte `cbor:"3,keyasint"`
	Box                []byte `cbor:"4,keyasint"`
}

func (e *envelope) validate() error {
	if e.Version != Version {
		return fmt.Errorf("%w: unsupported version %q", ErrMalformed, e.Version)
	}
	if len(e.Nonce) != nonceSize {
		return fmt.Errorf("%w: nonce is %d bytes, want %d", ErrMalformed, len(e.Nonce), nonceSize)
	}
	if len(e.EphemeralPublicKey) != KeySize {
		return fmt.Errorf("%w: ephemeral key is %d bytes, want %d", ErrMalformed, len(e.EphemeralPublicKey), KeySize)
	}
	if len(e.Box) < box.Overhead {
		return fmt.Errorf("%w: box shorter than authenticator", ErrMalformed)
	}
	return nil
}

// Seal encrypts value to the holder of publicKeyHex.
func Seal(value *big.Int, publicKeyHex string) ([]byte, error) {
	return seal(rand.Reader, value, publicKeyHex)
}

// SealBool seals a boolean as 1 or 0.
func SealBool(value bool, publicKeyHex string) ([]byte, error) {
	integer := big.NewInt(0)
	if value {
		integer.SetInt64(1)
	}
	return Seal(integer, publicKeyHex)
}

// SealAddress seals an account identifier as its 160-bit integer.
func SealAddress(address common.Address, publicKeyHex string) ([]byte, error) {
	return Seal(account.ToUint(address), publicKeyHex)
}

func seal(random io.Reader, value *big.Int, publicKeyHex string) ([]byte, error) {
	if value == nil || value.Sign() < 0 || value.BitLen() > maxValueBits {
		return nil, ErrValueRange
	}
	recipient, err := decodeKey(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient key: %v", ErrInvalidKey, err)
	}

	ephemeralPublic, ephemeralPrivate, err := box.GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("sealing: generating ephemeral key: %w", err)
	}
	defer clear(ephemeralPrivate[:])

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(random, nonce[:]); err != nil {
		return nil, fmt.Errorf("sealing: generating nonce: %w", err)
	}

	var recipientKey [KeySize]byte
	copy(recipientKey[:], recipient)

	sealed := envelope{
		Version:            Version,
		Nonce:              nonce[:],
		EphemeralPublicKey: ephemeralPublic[:],
		Box:                box.Seal(nil, value.Bytes(), &nonce, &recipientKey, ephemeralPrivate),
	}
	ciphertext, err := codec.Marshal(sealed)
	if err != nil {
		return nil, fmt.Errorf("sealing: encoding envelope: %w", err)
	}
	return ciphertext, nil
}
