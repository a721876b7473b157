// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package permitstore keeps permits for the accounts a process acts
// for.
//
// [Store] is the in-memory registry. Permits are grouped by [Key], the
// pair (chain ID, holder account), and identified within a group by
// their identity hash. Each group has at most one active permit: the
// first permit added to an empty group becomes active, [Store.SetActive]
// moves the pointer, and [Store.Remove] refuses to drop the active
// permit unless forced. [Store.Prune] drops permits that have expired
// according to the store's clock.
//
// [FileStore] persists permits across processes. Each permit is one
// file, <directory>/<chain ID>/<hash>.permit, holding the permit's JSON
// snapshot encrypted with age. Snapshots contain the sealing private
// key, so plaintext never touches disk. Active pointers live in
// <directory>/<chain ID>/active.json as a map from account to hash;
// they are not secret and are stored in the clear. All writes are
// atomic (temporary file and rename) with mode 0600.
//
// Permits removed from a Store are closed, releasing their sealing
// keys.
package permitstore
