// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// SignatureSize is the length of an [R || S || V] signature.
const SignatureSize = 65

// Signer signs EIP-712 typed data on behalf of one account.
type Signer interface {
	// Address returns the account signatures are produced for.
	Address(ctx context.Context) (common.Address, error)

	// SignTypedData returns the signature over data. Implementations
	// may block on user interaction and should honor ctx.
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
}
