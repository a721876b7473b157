// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps private key material out of the Go heap.
//
// A [Buffer] is an anonymous mmap region that is mlocked (never
// swapped) and marked MADV_DONTDUMP (never in a core dump). Close
// zeroes, unlocks and unmaps it; reads after Close panic.
//
// Permit sealing keys and the CLI's secp256k1 signing keys live in
// Buffers. [ReadFromPath] and [ReadLine] load a key file or a piped
// line straight into one, zeroing the intermediate heap copy.
package secret
