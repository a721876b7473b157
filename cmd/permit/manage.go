// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"filippo.io/age"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/permit/lib/permit"
	"github.com/bureau-foundation/permit/lib/signer"
)

func (a *app) initCommand() *command {
	var force bool
	return &command{
		Name:    "init",
		Summary: "Generate the age identity that encrypts stored permits",
		Usage:   "permit init [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("init")
			flagSet.BoolVar(&force, "force", false, "replace an existing identity file (stored permits become unreadable)")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return usagef("init takes no arguments")
			}
			if err := a.setup(); err != nil {
				return err
			}
			path := a.config.Storage.IdentityFile
			if path == "" {
				return usagef("storage.identity_file is not configured")
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("identity file %s already exists (use --force to replace it)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("checking identity file: %w", err)
			}

			identity, err := age.GenerateX25519Identity()
			if err != nil {
				return fmt.Errorf("generating identity: %w", err)
			}
			recipient := identity.Recipient().String()
			content := fmt.Sprintf("# created: %s\n# public key: %s\n%s\n",
				a.env.clock.Now().UTC().Format(time.RFC3339), recipient, identity)

			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
			}
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				return fmt.Errorf("writing identity file: %w", err)
			}
			a.logger.Info("identity created", "path", path, "recipient", recipient)
			fmt.Fprintln(a.env.stdout, recipient)
			return nil
		},
	}
}

func (a *app) createCommand() *command {
	var (
		options  permit.Options
		kind     string
		sign     bool
		keyFile  string
		jsonView bool
		replace  bool
	)
	return &command{
		Name:    "create",
		Summary: "Create a permit with a fresh sealing pair",
		Usage:   "permit create [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("create")
			flagSet.StringVar(&kind, "type", string(permit.TypeSelf), "permit type: self, sharing or recipient")
			flagSet.StringVar(&options.Name, "name", "", "display name (default \""+permit.DefaultName+"\")")
			flagSet.StringVar(&options.Issuer, "issuer", "", "issuing account (default: the signing key's account with --sign)")
			flagSet.StringVar(&options.Recipient, "recipient", "", "recipient account (sharing and recipient permits)")
			flagSet.Int64Var(&options.Expiration, "expiration", 0, "expiration as unix seconds (default: effectively never)")
			flagSet.Uint64Var(&options.ValidatorID, "validator-id", 0, "validator ID")
			flagSet.StringVar(&options.ValidatorContract, "validator-contract", "", "validator contract account")
			flagSet.StringVar(&options.IssuerSignature, "issuer-signature", "", "issuer signature carried into a recipient permit")
			flagSet.BoolVar(&sign, "sign", false, "sign the new permit immediately")
			flagSet.StringVar(&keyFile, "key-file", "", "file holding the hex signing key (\"-\" for stdin; default: prompt)")
			flagSet.BoolVar(&jsonView, "json", false, "print the created permit as JSON")
			flagSet.BoolVar(&replace, "replace", false, "overwrite a stored permit with the same hash, destroying its sealing key")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return usagef("create takes no arguments")
			}
			options.Type = permit.Type(kind)
			if !options.Type.Known() {
				return usagef("unknown permit type %q (want self, sharing or recipient)", kind)
			}

			session, err := a.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			var local signer.Signer
			if sign {
				signingKey, err := a.readSigner(keyFile)
				if err != nil {
					return err
				}
				defer signingKey.Close()
				local = signingKey

				address, err := signingKey.Address(ctx)
				if err != nil {
					return err
				}
				if options.Type == permit.TypeRecipient {
					if options.Recipient == "" {
						options.Recipient = address.Hex()
					}
				} else if options.Issuer == "" {
					options.Issuer = address.Hex()
				}
			}

			created, err := permit.Create(options)
			if err != nil {
				return err
			}
			if local != nil {
				if err := created.SignWithDomain(ctx, a.domain(), local); err != nil {
					created.Close()
					return err
				}
			}

			key, hash, err := session.add(created, replace)
			if err != nil {
				created.Close()
				return err
			}
			a.logger.Info("permit created", "hash", hash.Hex(), "type", string(created.Type), "key", key.String())
			if jsonView {
				return writeJSON(a.env.stdout, session.view(key, created))
			}
			fmt.Fprintf(a.env.stdout, "%s\n", hash.Hex())
			return nil
		},
	}
}

func (a *app) signCommand() *command {
	var (
		keyFile string
		holder  string
	)
	return &command{
		Name:    "sign",
		Summary: "Sign a stored permit as its issuer or recipient",
		Usage:   "permit sign [<hash>] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("sign")
			flagSet.StringVar(&keyFile, "key-file", "", "file holding the hex signing key (\"-\" for stdin; default: prompt)")
			flagSet.StringVar(&holder, "account", "", "sign the active permit of this account instead of a hash")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			session, err := a.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			_, target, err := session.resolve(args, holder)
			if err != nil {
				return err
			}
			signingKey, err := a.readSigner(keyFile)
			if err != nil {
				return err
			}
			defer signingKey.Close()

			if err := target.SignWithDomain(ctx, a.domain(), signingKey); err != nil {
				return err
			}
			if err := session.files.Save(session.chainID, target); err != nil {
				return err
			}
			a.logger.Info("permit signed", "hash", target.HashHex(), "role", string(target.SigningRole()))
			fmt.Fprintf(a.env.stdout, "signed %s as %s\n", target.HashHex(), target.SigningRole())
			return nil
		},
	}
}

func (a *app) activateCommand() *command {
	return &command{
		Name:    "activate",
		Summary: "Make a stored permit the active one for its holder",
		Usage:   "permit activate <hash> [flags]",
		Flags: func() *pflag.FlagSet {
			return a.newFlagSet("activate")
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return usagef("activate takes exactly one permit hash")
			}
			session, err := a.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			key, target, err := session.lookup(args[0])
			if err != nil {
				return err
			}
			hash := target.Hash()
			if err := session.store.SetActive(key, hash); err != nil {
				return err
			}
			if err := session.files.SetActive(session.chainID, key.Account, hash); err != nil {
				return err
			}
			a.logger.Info("permit activated", "key", key.String(), "hash", hash.Hex())
			fmt.Fprintf(a.env.stdout, "%s is now active for %s\n", hash.Hex(), key.Account.Hex())
			return nil
		},
	}
}

func (a *app) removeCommand() *command {
	var force bool
	return &command{
		Name:    "remove",
		Summary: "Delete a stored permit",
		Usage:   "permit remove <hash> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("remove")
			flagSet.BoolVar(&force, "force", false, "remove even if the permit is active")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return usagef("remove takes exactly one permit hash")
			}
			session, err := a.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			key, target, err := session.lookup(args[0])
			if err != nil {
				return err
			}
			hash := target.Hash()
			if err := session.store.Remove(key, hash, force); err != nil {
				return err
			}
			if err := session.files.Delete(session.chainID, hash); err != nil {
				return err
			}
			fmt.Fprintf(a.env.stdout, "removed %s\n", hash.Hex())
			return nil
		},
	}
}

func (a *app) pruneCommand() *command {
	return &command{
		Name:    "prune",
		Summary: "Delete every expired permit on the chain",
		Usage:   "permit prune [flags]",
		Flags: func() *pflag.FlagSet {
			return a.newFlagSet("prune")
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return usagef("prune takes no arguments")
			}
			session, err := a.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			removed := session.store.Prune()
			for _, hash := range removed {
				if err := session.files.Delete(session.chainID, hash); err != nil {
					return err
				}
				fmt.Fprintf(a.env.stdout, "pruned %s\n", hash.Hex())
			}
			a.logger.Info("prune finished", "chain_id", session.chainID, "removed", len(removed))
			return nil
		},
	}
}
