// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permit

import (
	"math/big"

	"github.com/bureau-foundation/permit/lib/fhe"
	"github.com/bureau-foundation/permit/lib/unseal"
)

// Engine returns an unseal engine bound to the permit's sealing key.
func (p *Permit) Engine() (*unseal.Engine, error) {
	if p.SealingPair == nil {
		return nil, ErrNoSealingPair
	}
	return unseal.New(p.SealingPair), nil
}

// UnsealCiphertext opens a ciphertext sealed to this permit and returns
// the raw integer.
func (p *Permit) UnsealCiphertext(ciphertext []byte) (*big.Int, error) {
	engine, err := p.Engine()
	if err != nil {
		return nil, err
	}
	return engine.UnsealCiphertext(ciphertext)
}

// UnsealItem opens and decodes a single sealed value.
func (p *Permit) UnsealItem(item fhe.Item) (any, error) {
	engine, err := p.Engine()
	if err != nil {
		return nil, err
	}
	return engine.UnsealItem(item)
}

// Unseal decrypts every sealed leaf of node, keeping its shape.
func (p *Permit) Unseal(node unseal.Node) (unseal.Node, error) {
	engine, err := p.Engine()
	if err != nil {
		return nil, err
	}
	return engine.Unseal(node)
}

// UnsealAny decrypts a JSON-shaped value. See unseal.FromAny for how
// sealed leaves are recognized.
func (p *Permit) UnsealAny(value any) (any, error) {
	engine, err := p.Engine()
	if err != nil {
		return nil, err
	}
	return engine.UnsealAny(value)
}

// UnsealInto decrypts src into the mirrored destination dst points to.
func (p *Permit) UnsealInto(dst, src any) error {
	engine, err := p.Engine()
	if err != nil {
		return err
	}
	return engine.Into(dst, src)
}
