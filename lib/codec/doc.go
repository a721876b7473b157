// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the single CBOR configuration shared by the
// permit packages.
//
// Two things depend on byte-exact output: the permit identity hash
// (Keccak-256 over the encoded issuance fields) and the sealed value
// envelope. Both use integer map keys (`cbor:"N,keyasint"`) and Core
// Deterministic Encoding, so the same logical value always produces
// the same bytes regardless of which process encoded it.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// JSON remains the format for anything a person or another program
// reads: snapshots, CLI output, unseal input trees.
package codec
