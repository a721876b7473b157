// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package unseal

import "github.com/bureau-foundation/permit/lib/fhe"

// Node is a value tree of sealed and clear values. The set of
// implementations is closed.
type Node interface {
	node()
}

// Leaf is a sealed value awaiting decryption.
type Leaf struct {
	Item fhe.Item
}

// Array is a homogeneous ordered sequence.
type Array []Node

// Tuple is a fixed-arity ordered sequence whose elements may differ in
// kind. It unseals exactly like Array; the distinction is kept so that
// callers that care can round-trip it.
type Tuple []Node

// Record is a string-keyed collection. Key order carries no meaning.
type Record map[string]Node

// Scalar is a value already in the clear: string, number, bool,
// *big.Int, nil, or anything else the walk does not descend into.
type Scalar struct {
	Value any
}

func (Leaf) node()   {}
func (Array) node()  {}
func (Tuple) node()  {}
func (Record) node() {}
func (Scalar) node() {}
