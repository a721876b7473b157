// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/permit/lib/permit"
	"github.com/bureau-foundation/permit/lib/permitstore"
)

// permitView is how show and list --json present a stored permit. It
// never includes the sealing private key.
type permitView struct {
	Hash     string           `json:"hash"`
	ChainID  uint64           `json:"chainId"`
	Holder   common.Address   `json:"holder"`
	Active   bool             `json:"active"`
	Validity permit.Validity  `json:"validity"`
	Permit   permit.Interface `json:"permit"`
}

func (s *session) view(key permitstore.Key, p *permit.Permit) permitView {
	active, _ := s.store.ActiveHash(key)
	hash := p.Hash()
	return permitView{
		Hash:     hash.Hex(),
		ChainID:  key.ChainID,
		Holder:   key.Account,
		Active:   active == hash,
		Validity: p.IsValidAt(s.now()),
		Permit:   p.Interface(),
	}
}

func (a *app) showCommand() *command {
	var (
		holder     string
		permission bool
	)
	return &command{
		Name:    "show",
		Summary: "Print a stored permit as JSON (never its private key)",
		Usage:   "permit show [<hash>] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("show")
			flagSet.StringVar(&holder, "account", "", "show the active permit of this account instead of a hash")
			flagSet.BoolVar(&permission, "permission", false, "print only the permission a verifier needs")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			session, err := a.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			key, target, err := session.resolve(args, holder)
			if err != nil {
				return err
			}
			if permission {
				return writeJSON(a.env.stdout, target.Permission())
			}
			return writeJSON(a.env.stdout, session.view(key, target))
		},
	}
}

func (a *app) listCommand() *command {
	var (
		holder   string
		jsonView bool
	)
	return &command{
		Name:    "list",
		Summary: "List stored permits on the chain",
		Usage:   "permit list [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("list")
			flagSet.StringVar(&holder, "account", "", "only list permits held by this account")
			flagSet.BoolVar(&jsonView, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return usagef("list takes no arguments")
			}
			session, err := a.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			keys := session.store.Keys()
			if holder != "" {
				address, err := parseAccountFlag(holder)
				if err != nil {
					return err
				}
				keys = []permitstore.Key{{ChainID: session.chainID, Account: address}}
			}

			views := []permitView{}
			for _, key := range keys {
				for _, stored := range session.store.List(key) {
					views = append(views, session.view(key, stored))
				}
			}
			if jsonView {
				return writeJSON(a.env.stdout, views)
			}

			writer := tabwriter.NewWriter(a.env.stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "HASH\tNAME\tTYPE\tHOLDER\tEXPIRATION\tSTATUS\tACTIVE")
			for _, view := range views {
				status := "valid"
				if !view.Validity.Valid {
					status = string(view.Validity.Error)
				}
				active := ""
				if view.Active {
					active = "*"
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					shortHash(view.Hash), view.Permit.Name, view.Permit.Type,
					view.Holder.Hex(), view.Permit.Expiration, status, active)
			}
			return writer.Flush()
		},
	}
}

// shortHash abbreviates a 0x hash to its first twelve digits, which is
// enough for lookup.
func shortHash(hash string) string {
	digits := strings.TrimPrefix(hash, "0x")
	if len(digits) <= 12 {
		return digits
	}
	return digits[:12]
}
