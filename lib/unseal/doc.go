// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package unseal converts trees of sealed values into cleartext while
// keeping their shape.
//
// An [Engine] wraps one [Opener], normally a permit's sealing keypair.
// It offers three views of the same walk:
//
//   - [Engine.Unseal] over [Node], a closed tree of [Leaf], [Array],
//     [Tuple], [Record] and [Scalar]. Leaves become scalars; every
//     container keeps its kind, length and keys.
//   - [Engine.UnsealAny] over JSON-shaped Go values ([]any,
//     map[string]any, scalars). [FromAny] classifies the input: a map is
//     a sealed leaf exactly when it carries a "utype" key. Nothing else
//     about a value's shape triggers decryption.
//   - [Engine.Into] from a typed source (structs, slices, arrays, maps
//     whose leaves are [fhe.Item]) into a destination of mirrored shape
//     whose leaves are bool, *big.Int, string, common.Address or an
//     integer kind. The destination type states the cleartext shape at
//     compile time.
//
// Leaf decoding is [fhe.Decode]. Every failure on a leaf is a
// [*fhe.DecodeError] wrapped with the path of the leaf in the tree.
package unseal
