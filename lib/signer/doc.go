// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package signer defines the wallet capability that signs permits and
// builds the EIP-712 typed data a permit signature covers.
//
// A [Signer] reports the account it signs for and produces a 65-byte
// [R || S || V] signature over typed data. Browser wallets, hardware
// devices and remote keystores implement it outside this module;
// [LocalSigner] signs with a secp256k1 key held in locked memory and
// serves the CLI and tests.
//
// [PermitTypedData] is the single source of the signed structures.
// Three primary types exist:
//
//	PermissionedV2IssuerSelf   issuer, expiration, recipient, validatorId, validatorContract, sealingKey
//	PermissionedV2IssuerShared issuer, expiration, recipient, validatorId, validatorContract
//	PermissionedV2Recipient    sealingKey, issuerSignature
//
// all under the domain {name, version, chainId, verifyingContract?}.
package signer
