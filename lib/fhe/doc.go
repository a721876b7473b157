// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fhe defines the scalar type tags carried by sealed values
// and the post-processing applied to a value once it has been opened.
//
// A sealed value ([Item]) is a ciphertext plus a [UType] tag. The tag
// alone decides how the opened integer is presented:
//
//   - [Bool]: nonzero is true
//   - [Uint4] through [Uint256], except [Uint160]: the integer itself
//   - [Uint160]: an account identifier, formatted as its checksummed
//     hex string from the low 160 bits
//
// [Decode] performs that step; any other tag is a [*DecodeError].
// Opening the ciphertext is not this package's concern; see
// lib/unseal and lib/sealing.
package fhe
