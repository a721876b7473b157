// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/bureau-foundation/permit/lib/secret"
)

// ErrClosed is returned by a LocalSigner after Close.
var ErrClosed = errors.New("signer: closed")

// LocalSigner signs with an in-process secp256k1 key. The raw key lives
// in a secret.Buffer; the parsed form exists only for the duration of
// a signing call.
type LocalSigner struct {
	key     *secret.Buffer
	address common.Address
}

// NewLocalSigner takes ownership of key, a 32-byte secp256k1 private
// key. The caller must not use key afterwards.
func NewLocalSigner(key *secret.Buffer) (*LocalSigner, error) {
	private, err := crypto.ToECDSA(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("signer: parsing private key: %w", err)
	}
	return &LocalSigner{key: key, address: crypto.PubkeyToAddress(private.PublicKey)}, nil
}

// ParseLocalSigner builds a LocalSigner from hex text, with or without
// a 0x prefix. The decoded bytes are moved into locked memory.
func ParseLocalSigner(keyHex string) (*LocalSigner, error) {
	raw, err := hexutil.Decode("0x" + strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("signer: decoding private key: %w", err)
	}
	buffer, err := secret.NewFromBytes(raw)
	if err != nil {
		return nil, err
	}
	local, err := NewLocalSigner(buffer)
	if err != nil {
		buffer.Close()
		return nil, err
	}
	return local, nil
}

// GenerateLocalSigner returns a signer for a fresh random key.
func GenerateLocalSigner() (*LocalSigner, error) {
	private, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("signer: generating key: %w", err)
	}
	buffer, err := secret.NewFromBytes(crypto.FromECDSA(private))
	if err != nil {
		return nil, err
	}
	return NewLocalSigner(buffer)
}

// Address returns the account derived from the key.
func (s *LocalSigner) Address(context.Context) (common.Address, error) {
	return s.address, nil
}

// SignTypedData signs the EIP-712 digest of data. V is 27 or 28.
func (s *LocalSigner) SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	digest, err := Digest(data)
	if err != nil {
		return nil, err
	}
	var raw [32]byte
	defer secret.Zero(raw[:])
	if _, ok := s.key.CopyTo(raw[:]); !ok {
		return nil, ErrClosed
	}
	private, err := crypto.ToECDSA(raw[:])
	if err != nil {
		return nil, fmt.Errorf("signer: parsing private key: %w", err)
	}
	signature, err := crypto.Sign(digest, private)
	if err != nil {
		return nil, fmt.Errorf("signer: signing: %w", err)
	}
	signature[crypto.RecoveryIDOffset] += 27
	return signature, nil
}

// Close releases the key. Further signing fails with ErrClosed.
func (s *LocalSigner) Close() error {
	return s.key.Close()
}
