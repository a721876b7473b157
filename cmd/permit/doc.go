// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Permit manages access permits for sealed on-chain values. It creates
// and signs permits, keeps them age-encrypted under the configured
// state directory, tracks the active permit per account, and seals or
// unseals values against a stored permit's sealing pair.
// Subcommands: init, create, sign, show, list, activate, remove, prune,
// seal, unseal, export, import.
package main
