// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealing implements the per-permit sealing keypair: an x25519
// key whose public half values are sealed to and whose private half
// opens them.
//
// Sealing uses NaCl box (x25519-xsalsa20-poly1305) with a fresh
// ephemeral sender key and random nonce per value. The ciphertext is a
// deterministic-CBOR envelope:
//
//	{1: "x25519-xsalsa20-poly1305", 2: nonce[24], 3: ephemeral public key[32], 4: box}
//
// The boxed plaintext is the minimal big-endian encoding of a
// non-negative integer of at most 256 bits. Booleans seal as 0 or 1
// and account identifiers as their 160-bit integer value, so the
// opening side always gets an integer back and the scalar type tag
// (lib/fhe) decides what it means.
//
// Public keys are exchanged as 64 lowercase hex characters without a
// prefix. The private key lives in a [secret.Buffer] and is only read
// by [KeyPair.Open] and, for snapshots, [KeyPair.PrivateKeyHex].
package sealing
