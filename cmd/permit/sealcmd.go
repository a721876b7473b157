// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/permit/lib/codec"
	"github.com/bureau-foundation/permit/lib/fhe"
	"github.com/bureau-foundation/permit/lib/sealing"
	"github.com/bureau-foundation/permit/lib/secret"
)

func (a *app) sealCommand() *command {
	var (
		typeName  string
		value     string
		publicKey string
		holder    string
		diagnose  bool
	)
	return &command{
		Name:    "seal",
		Summary: "Seal a value to a permit's sealing key",
		Usage:   "permit seal [<hash>] --type <utype> --value <value> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("seal")
			flagSet.StringVar(&typeName, "type", "uint64", "value type: bool, uint4 ... uint256, or address")
			flagSet.StringVar(&value, "value", "", "cleartext value (required)")
			flagSet.StringVar(&publicKey, "public-key", "", "sealing public key as hex (skips the store)")
			flagSet.StringVar(&holder, "account", "", "seal to the active permit of this account instead of a hash")
			flagSet.BoolVar(&diagnose, "diagnose", false, "print the ciphertext envelope in CBOR diagnostic notation instead of JSON")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if value == "" {
				return usagef("--value is required")
			}
			utype, err := fhe.ParseUType(typeName)
			if err != nil {
				return usagef("%v", err)
			}

			if publicKey == "" {
				session, err := a.openSession()
				if err != nil {
					return err
				}
				defer session.Close()
				_, target, err := session.resolve(args, holder)
				if err != nil {
					return err
				}
				publicKey = target.SealingPair.PublicKey
			} else if len(args) > 0 {
				return usagef("a permit hash and --public-key are mutually exclusive")
			}

			item, err := sealValue(utype, value, publicKey)
			if err != nil {
				return err
			}
			if diagnose {
				notation, err := codec.Diagnose(item.Data)
				if err != nil {
					return fmt.Errorf("decoding envelope: %w", err)
				}
				fmt.Fprintln(a.env.stdout, notation)
				return nil
			}
			return writeJSON(a.env.stdout, item)
		},
	}
}

// sealValue parses text as a cleartext of utype and seals it.
func sealValue(utype fhe.UType, text, publicKey string) (fhe.Item, error) {
	switch {
	case utype == fhe.Bool:
		flag, err := strconv.ParseBool(text)
		if err != nil {
			return fhe.Item{}, usagef("bool value %q: %v", text, err)
		}
		data, err := sealing.SealBool(flag, publicKey)
		if err != nil {
			return fhe.Item{}, err
		}
		return fhe.SealedBool(data), nil

	case utype == fhe.Address:
		address, err := parseAccountFlag(text)
		if err != nil {
			return fhe.Item{}, err
		}
		data, err := sealing.SealAddress(address, publicKey)
		if err != nil {
			return fhe.Item{}, err
		}
		return fhe.SealedAddress(data), nil

	default:
		integer, ok := new(big.Int).SetString(text, 0)
		if !ok || integer.Sign() < 0 {
			return fhe.Item{}, usagef("%s value %q is not an unsigned integer", utype, text)
		}
		if integer.BitLen() > utype.Bits() {
			return fhe.Item{}, usagef("%s value %s needs %d bits", utype, integer, integer.BitLen())
		}
		data, err := sealing.Seal(integer, publicKey)
		if err != nil {
			return fhe.Item{}, err
		}
		return fhe.SealedUint(data, utype), nil
	}
}

func (a *app) unsealCommand() *command {
	var (
		input  string
		holder string
	)
	return &command{
		Name:    "unseal",
		Summary: "Unseal every sealed item in a JSON document",
		Usage:   "permit unseal [<hash>] [--input <file>] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("unseal")
			flagSet.StringVar(&input, "input", "-", "JSON (comments allowed) holding sealed items; \"-\" for stdin")
			flagSet.StringVar(&holder, "account", "", "unseal with the active permit of this account instead of a hash")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			document, err := a.readDocument(input)
			if err != nil {
				return err
			}

			session, err := a.openSession()
			if err != nil {
				return err
			}
			defer session.Close()
			_, target, err := session.resolve(args, holder)
			if err != nil {
				return err
			}

			decoder := json.NewDecoder(bytes.NewReader(document))
			decoder.UseNumber()
			var sealed any
			if err := decoder.Decode(&sealed); err != nil {
				return fmt.Errorf("parsing input: %w", err)
			}
			revealed, err := target.UnsealAny(sealed)
			if err != nil {
				return err
			}
			return writeJSON(a.env.stdout, revealed)
		},
	}
}

// readDocument reads path ("-" for stdin) and strips JSONC comments
// and trailing commas.
func (a *app) readDocument(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(a.env.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	stripped := jsonc.ToJSON(data)
	secret.Zero(data)
	return stripped, nil
}
