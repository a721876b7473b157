// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the current time so expiry decisions can be
// tested deterministically.
//
// Production code injects [Real]; tests inject [Fake] and move time
// with [FakeClock.Advance] or [FakeClock.Set]. Long-lived components
// (the permit store) hold a Clock; one-shot checks on a permit take an
// explicit time.Time instead (IsExpiredAt, IsValidAt).
package clock
