// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package permit implements access permits for sealed FHE values.
//
// A [Permit] authorizes its holder to decrypt values that an FHE
// coprocessor has re-encrypted ("sealed") to the permit's own sealing
// key. It binds an issuer, an optional recipient, an expiration and a
// validator reference, and carries EIP-712 signatures proving who
// granted it.
//
// Three permit types exist:
//
//   - self: the issuer grants access to itself. Only the issuer signs.
//   - sharing: the issuer signs a grant naming a recipient. The signed
//     permit is handed to the recipient out of band.
//   - recipient: the recipient's copy of a sharing permit. It carries
//     the issuer's signature and gains a second signature from the
//     recipient over its own fresh sealing key.
//
// Lifecycle: [Create] validates [Options] and generates a sealing pair.
// [Permit.Sign] fills the issuer or recipient signature. [Permit.IsValid]
// reports whether the required signatures exist and the permit has not
// expired. [Permit.Unseal] and friends decrypt sealed values with the
// permit's key. [Permit.Serialize] and [Deserialize] move a permit,
// private key included, through storage.
//
// A recipient permit is built from a sharing permit with explicit
// partial override:
//
//	options := shared.Options()
//	options.Type = permit.TypeRecipient
//	received, err := permit.Create(options)
//
// Options never carry a sealing pair, so every permit owns its key.
//
// The identity hash ([Permit.Hash]) covers only the issuance fields.
// Two permits created with the same issuance parameters hash equally
// regardless of name, sealing key or signature state.
//
// Permit fields other than the two signatures are not modified by this
// package after creation. Permits are not safe for concurrent mutation;
// concurrent Sign calls on one permit race, and the last one wins.
package permit
