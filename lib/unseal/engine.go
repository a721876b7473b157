// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package unseal

import (
	"errors"
	"fmt"
	"maps"
	"math/big"
	"slices"
	"strconv"

	"github.com/bureau-foundation/permit/lib/fhe"
)

// Opener opens a ciphertext sealed to its public key and returns the
// sealed integer. *sealing.KeyPair is the production implementation.
type Opener interface {
	Open(ciphertext []byte) (*big.Int, error)
}

// Engine unseals values with a single Opener. It holds no other state
// and is safe for concurrent use when its Opener is.
type Engine struct {
	opener Opener
}

// New returns an Engine that opens ciphertexts with opener.
func New(opener Opener) *Engine {
	return &Engine{opener: opener}
}

// UnsealCiphertext opens a ciphertext without any type post-processing.
func (e *Engine) UnsealCiphertext(ciphertext []byte) (*big.Int, error) {
	if e.opener == nil {
		return nil, errors.New("unseal: engine has no opener")
	}
	value, err := e.opener.Open(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("unseal: opening ciphertext: %w", err)
	}
	if value == nil {
		return nil, errors.New("unseal: opener returned no value")
	}
	return value, nil
}

// UnsealItem opens one sealed value and decodes it according to its
// tag. The tag is checked before the ciphertext is opened.
func (e *Engine) UnsealItem(item fhe.Item) (any, error) {
	if !item.UType.Known() {
		return nil, &fhe.DecodeError{UType: item.UType, Err: fhe.ErrUnknownUType}
	}
	raw, err := e.UnsealCiphertext(item.Data)
	if err != nil {
		return nil, &fhe.DecodeError{UType: item.UType, Err: err}
	}
	return fhe.Decode(raw, item.UType)
}

// Unseal replaces every Leaf in node with a Scalar holding its
// cleartext. Containers keep their kind, length and key set; scalars
// are returned unchanged. The input is not modified.
func (e *Engine) Unseal(node Node) (Node, error) {
	return e.unsealNode(node, "$")
}

func (e *Engine) unsealNode(node Node, path string) (Node, error) {
	switch typed := node.(type) {
	case nil:
		return nil, nil
	case Leaf:
		value, err := e.UnsealItem(typed.Item)
		if err != nil {
			return nil, fmt.Errorf("unseal %s: %w", path, err)
		}
		return Scalar{Value: value}, nil
	case *Leaf:
		if typed == nil {
			return nil, nil
		}
		return e.unsealNode(*typed, path)
	case Array:
		result, err := e.unsealSequence(typed, path)
		return Array(result), err
	case Tuple:
		result, err := e.unsealSequence(typed, path)
		return Tuple(result), err
	case Record:
		if typed == nil {
			return Record(nil), nil
		}
		result := make(Record, len(typed))
		for _, key := range slices.Sorted(maps.Keys(typed)) {
			value, err := e.unsealNode(typed[key], path+"."+key)
			if err != nil {
				return nil, err
			}
			result[key] = value
		}
		return result, nil
	case Scalar:
		return typed, nil
	default:
		return nil, fmt.Errorf("unseal %s: unsupported node %T", path, node)
	}
}

func (e *Engine) unsealSequence(elements []Node, path string) ([]Node, error) {
	if elements == nil {
		return nil, nil
	}
	result := make([]Node, len(elements))
	for index, element := range elements {
		value, err := e.unsealNode(element, path+"["+strconv.Itoa(index)+"]")
		if err != nil {
			return nil, err
		}
		result[index] = value
	}
	return result, nil
}

// UnsealAny unseals a JSON-shaped value: FromAny, Unseal, ToAny.
func (e *Engine) UnsealAny(value any) (any, error) {
	node, err := FromAny(value)
	if err != nil {
		return nil, err
	}
	revealed, err := e.Unseal(node)
	if err != nil {
		return nil, err
	}
	return ToAny(revealed), nil
}
