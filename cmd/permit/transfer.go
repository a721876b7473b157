// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/permit/lib/permit"
	"github.com/bureau-foundation/permit/lib/secret"
)

// sharedPermit is what the issuer of a sharing permit hands to its
// recipient. Importing it creates the recipient's own permit with a
// new sealing pair.
type sharedPermit struct {
	Name              string         `json:"name"`
	Issuer            common.Address `json:"issuer"`
	Recipient         common.Address `json:"recipient"`
	Expiration        int64          `json:"expiration"`
	ValidatorID       uint64         `json:"validatorId"`
	ValidatorContract common.Address `json:"validatorContract"`
	IssuerSignature   hexutil.Bytes  `json:"issuerSignature"`
}

func (a *app) exportCommand() *command {
	var (
		share  bool
		output string
		holder string
	)
	return &command{
		Name:    "export",
		Summary: "Write a permit snapshot, or the shareable part of a sharing permit",
		Usage:   "permit export [<hash>] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("export")
			flagSet.BoolVar(&share, "share", false, "export what the recipient of a signed sharing permit needs")
			flagSet.StringVar(&output, "output", "", "write to this file (mode 0600) instead of stdout")
			flagSet.StringVar(&holder, "account", "", "export the active permit of this account instead of a hash")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			session, err := a.openSession()
			if err != nil {
				return err
			}
			defer session.Close()
			_, target, err := session.resolve(args, holder)
			if err != nil {
				return err
			}

			var data []byte
			if share {
				if target.Type != permit.TypeSharing {
					return fmt.Errorf("only sharing permits can be shared, %s is %s", target.HashHex(), target.Type)
				}
				if !target.IsSigned() {
					return fmt.Errorf("sharing permit %s is not signed by its issuer", target.HashHex())
				}
				data, err = json.MarshalIndent(sharedPermit{
					Name:              target.Name,
					Issuer:            target.Issuer,
					Recipient:         target.Recipient,
					Expiration:        target.Expiration,
					ValidatorID:       target.ValidatorID,
					ValidatorContract: target.ValidatorContract,
					IssuerSignature:   target.IssuerSignature,
				}, "", "  ")
			} else {
				data, err = target.MarshalSnapshot()
			}
			if err != nil {
				return err
			}
			defer secret.Zero(data)

			if output == "" {
				if _, err := a.env.stdout.Write(data); err != nil {
					return err
				}
				_, err := fmt.Fprintln(a.env.stdout)
				return err
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			a.logger.Info("permit exported", "hash", target.HashHex(), "path", output, "share", share)
			return nil
		},
	}
}

func (a *app) importCommand() *command {
	var (
		name    string
		replace bool
	)
	return &command{
		Name:    "import",
		Summary: "Store a permit snapshot, or create a recipient permit from a share",
		Usage:   "permit import [<file>|-] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("import")
			flagSet.StringVar(&name, "name", "", "name for a permit created from a share")
			flagSet.BoolVar(&replace, "replace", false, "overwrite a stored permit with the same hash, destroying its sealing key")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 1 {
				return usagef("import takes at most one file")
			}
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			document, err := a.readDocument(path)
			if err != nil {
				return err
			}
			defer secret.Zero(document)

			imported, err := decodeImport(document, name)
			if err != nil {
				return err
			}

			session, err := a.openSession()
			if err != nil {
				imported.Close()
				return err
			}
			defer session.Close()

			key, hash, err := session.add(imported, replace)
			if err != nil {
				imported.Close()
				return err
			}
			a.logger.Info("permit imported", "hash", hash.Hex(), "type", string(imported.Type), "key", key.String())
			fmt.Fprintf(a.env.stdout, "%s\n", hash.Hex())
			return nil
		},
	}
}

// decodeImport turns a document into a permit. Documents carrying a
// sealing pair are snapshots; anything else is read as a share.
func decodeImport(document []byte, name string) (*permit.Permit, error) {
	var shape struct {
		SealingPair json.RawMessage `json:"sealingPair"`
	}
	if err := json.Unmarshal(document, &shape); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	if shape.SealingPair != nil {
		return permit.ParseSnapshot(document)
	}

	var shared sharedPermit
	if err := json.Unmarshal(document, &shared); err != nil {
		return nil, fmt.Errorf("parsing share: %w", err)
	}
	if name == "" {
		name = shared.Name
	}
	return permit.Create(permit.Options{
		Type:              permit.TypeRecipient,
		Name:              name,
		Issuer:            shared.Issuer.Hex(),
		Recipient:         shared.Recipient.Hex(),
		Expiration:        shared.Expiration,
		ValidatorID:       shared.ValidatorID,
		ValidatorContract: shared.ValidatorContract.Hex(),
		IssuerSignature:   hexutil.Encode(shared.IssuerSignature),
	})
}
