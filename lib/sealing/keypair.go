// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"github.com/bureau-foundation/permit/lib/codec"
	"github.com/bureau-foundation/permit/lib/secret"
)

// KeySize is the size in bytes of both halves of a sealing keypair.
const KeySize = 32

// Errors returned by keypair operations.
var (
	ErrClosed           = errors.New("sealing: keypair has been closed")
	ErrInvalidKey       = errors.New("sealing: invalid key")
	ErrMismatchedKeys   = errors.New("sealing: public key does not match private key")
	ErrMalformed        = errors.New("sealing: malformed ciphertext")
	ErrIntegrityFailure = errors.New("sealing: ciphertext failed authentication")
)

// KeyPair is a sealing keypair owned by exactly one permit.
type KeyPair struct {
	// PublicKey is the hex-encoded x25519 public key. Safe to share;
	// counterparties seal values to it.
	PublicKey string

	privateKey *secret.Buffer
}

// GenerateKeyPair creates a fresh keypair from crypto/rand. The caller
// must Close it when done.
func GenerateKeyPair() (*KeyPair, error) {
	return generateKeyPair(rand.Reader)
}

func generateKeyPair(random io.Reader) (*KeyPair, error) {
	publicKey, privateKey, err := box.GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("sealing: generating keypair: %w", err)
	}
	protected, err := secret.NewFromBytes(privateKey[:])
	if err != nil {
		return nil, fmt.Errorf("sealing: protecting private key: %w", err)
	}
	return &KeyPair{
		PublicKey:  hex.EncodeToString(publicKey[:]),
		privateKey: protected,
	}, nil
}

// NewKeyPair rebuilds a keypair from its hex encodings, as stored in a
// permit snapshot. The public key must be the one the private key
// derives.
func NewKeyPair(privateKeyHex, publicKeyHex string) (*KeyPair, error) {
	publicKey, err := decodeKey(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrInvalidKey, err)
	}
	privateKey, err := decodeKey(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %v", ErrInvalidKey, err)
	}

	derived, err := curve25519.X25519(privateKey, curve25519.Basepoint)
	if err != nil {
		secret.Zero(privateKey)
		return nil, fmt.Errorf("%w: private key: %v", ErrInvalidKey, err)
	}
	if subtle.ConstantTimeCompare(derived, publicKey) != 1 {
		secret.Zero(privateKey)
		return nil, ErrMismatchedKeys
	}

	protected, err := secret.NewFromBytes(privateKey)
	if err != nil {
		return nil, fmt.Errorf("sealing: protecting private key: %w", err)
	}
	return &KeyPair{
		PublicKey:  hex.EncodeToString(publicKey),
		privateKey: protected,
	}, nil
}

func decodeKey(value string) ([]byte, error) {
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, err
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("got %d bytes, want %d", len(key), KeySize)
	}
	return key, nil
}

// PrivateKeyHex returns the hex-encoded private key. Only snapshot
// serialization should call this.
func (k *KeyPair) PrivateKeyHex() (string, error) {
	var privateKey [KeySize]byte
	defer secret.Zero(privateKey[:])
	if !k.readPrivateKey(&privateKey) {
		return "", ErrClosed
	}
	return hex.EncodeToString(privateKey[:]), nil
}

// readPrivateKey copies the private key into dst, reporting false once
// the keypair is closed. Safe against a concurrent Close.
func (k *KeyPair) readPrivateKey(dst *[KeySize]byte) bool {
	if k.privateKey == nil {
		return false
	}
	n, ok := k.privateKey.CopyTo(dst[:])
	return ok && n == KeySize
}

// Open decrypts a ciphertext produced by Seal against this keypair's
// public key and returns the sealed integer.
func (k *KeyPair) Open(ciphertext []byte) (*big.Int, error) {
	var sealed envelope
	if err := codec.Unmarshal(ciphertext, &sealed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := sealed.validate(); err != nil {
		return nil, err
	}

	var (
		nonce        [nonceSize]byte
		senderKey    [KeySize]byte
		recipientKey [KeySize]byte
	)
	copy(nonce[:], sealed.Nonce)
	copy(senderKey[:], sealed.EphemeralPublicKey)
	defer secret.Zero(recipientKey[:])
	if !k.readPrivateKey(&recipientKey) {
		return nil, ErrClosed
	}

	plaintext, ok := box.Open(nil, sealed.Box, &nonce, &senderKey, &recipientKey)
	if !ok {
		return nil, ErrIntegrityFailure
	}
	if len(plaintext) > maxValueBytes {
		return nil, fmt.Errorf("%w: plaintext is %d bytes, limit %d", ErrMalformed, len(plaintext), maxValueBytes)
	}
	return new(big.Int).SetBytes(plaintext), nil
}

// Close releases the private key. The public key stays readable.
// Idempotent, and safe to call while other goroutines are opening
// ciphertexts: they get ErrClosed.
func (k *KeyPair) Close() error {
	if k.privateKey == nil {
		return nil
	}
	return k.privateKey.Close()
}

// Closed reports whether the private key has been released.
func (k *KeyPair) Closed() bool {
	return k.privateKey == nil || k.privateKey.Closed()
}
