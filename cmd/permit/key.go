// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/term"

	"github.com/bureau-foundation/permit/lib/account"
	"github.com/bureau-foundation/permit/lib/secret"
	"github.com/bureau-foundation/permit/lib/signer"
)

// readSigner loads the secp256k1 signing key from keyFile ("-" for the
// first line of stdin), or prompts for it when keyFile is empty.
func (a *app) readSigner(keyFile string) (*signer.LocalSigner, error) {
	var (
		text *secret.Buffer
		err  error
	)
	switch keyFile {
	case "-":
		text, err = secret.ReadLine(a.env.stdin)
		if err != nil {
			return nil, fmt.Errorf("reading key from stdin: %w", err)
		}
	case "":
		if a.env.prompt == nil {
			return nil, usagef("no terminal available for key prompt (use --key-file)")
		}
		text, err = a.env.prompt("Signing key (hex): ")
		if err != nil {
			return nil, err
		}
	default:
		text, err = secret.ReadFromPath(keyFile)
		if err != nil {
			return nil, fmt.Errorf("reading key file: %w", err)
		}
	}
	defer text.Close()
	return parseSigningKey(text)
}

// parseSigningKey decodes 64 hex digits, optionally 0x-prefixed,
// straight into locked memory.
func parseSigningKey(text *secret.Buffer) (*signer.LocalSigner, error) {
	digits := bytes.TrimSpace(text.Bytes())
	if bytes.HasPrefix(digits, []byte("0x")) || bytes.HasPrefix(digits, []byte("0X")) {
		digits = digits[2:]
	}
	if len(digits) != 64 {
		return nil, fmt.Errorf("signing key must be 32 bytes of hex, got %d digits", len(digits))
	}

	key, err := secret.New(32)
	if err != nil {
		return nil, err
	}
	if _, err := hex.Decode(key.Bytes(), digits); err != nil {
		key.Close()
		return nil, fmt.Errorf("decoding signing key: %w", err)
	}
	local, err := signer.NewLocalSigner(key)
	if err != nil {
		key.Close()
		return nil, err
	}
	return local, nil
}

// promptTerminal reads a line from the terminal with echo disabled.
func promptTerminal(label string) (*secret.Buffer, error) {
	descriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(descriptor) {
		return nil, usagef("no terminal available for key prompt (use --key-file)")
	}

	fmt.Fprint(os.Stderr, label)
	raw, err := term.ReadPassword(descriptor)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading key: %w", err)
	}
	buffer, err := secret.NewFromBytes(raw)
	if err != nil {
		secret.Zero(raw)
		return nil, err
	}
	return buffer, nil
}

// parseAccountFlag parses an account given on the command line.
func parseAccountFlag(value string) (common.Address, error) {
	address, err := account.Parse(value)
	if err != nil {
		return common.Address{}, usagef("%v", err)
	}
	return address, nil
}
