// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/permit/lib/clock"
	"github.com/bureau-foundation/permit/lib/config"
	"github.com/bureau-foundation/permit/lib/permit"
	"github.com/bureau-foundation/permit/lib/permitstore"
	"github.com/bureau-foundation/permit/lib/secret"
	"github.com/bureau-foundation/permit/lib/signer"
	"github.com/bureau-foundation/permit/lib/version"
)

// environment is everything an invocation touches outside its
// arguments. Tests substitute buffers and a scripted prompt.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	clock  clock.Clock

	// prompt reads a secret without echo. Nil when no terminal is
	// available.
	prompt func(label string) (*secret.Buffer, error)
}

func systemEnvironment() environment {
	return environment{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
		clock:  clock.Real(),
		prompt: promptTerminal,
	}
}

// app carries the global flags and the state derived from them.
type app struct {
	env environment

	configPath string
	chainID    uint64

	config *config.Config
	logger *slog.Logger
}

func newApp(env environment) *app {
	return &app{env: env, logger: slog.New(slog.DiscardHandler)}
}

func (a *app) root() *command {
	var showVersion bool
	root := &command{
		Name:    "permit",
		Summary: "Create, sign, store and use permits for sealed values.",
		Output:  a.env.stderr,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("permit", pflag.ContinueOnError)
			flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if showVersion {
				fmt.Fprintf(a.env.stdout, "permit %s\n", version.Info())
				return nil
			}
			return usagef("subcommand required")
		},
	}
	root.Subcommands = []*command{
		a.initCommand(),
		a.createCommand(),
		a.signCommand(),
		a.showCommand(),
		a.listCommand(),
		a.activateCommand(),
		a.removeCommand(),
		a.pruneCommand(),
		a.sealCommand(),
		a.unsealCommand(),
		a.exportCommand(),
		a.importCommand(),
	}
	return root
}

// newFlagSet returns a flag set carrying the flags every subcommand
// accepts.
func (a *app) newFlagSet(name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVar(&a.configPath, "config", "", "path to permit.yaml (default: $PERMIT_CONFIG)")
	flagSet.Uint64Var(&a.chainID, "chain", 0, "chain ID (default: chain_id from config)")
	return flagSet
}

// setup loads and validates configuration and installs the logger.
func (a *app) setup() error {
	var (
		loaded *config.Config
		err    error
	)
	if a.configPath != "" {
		loaded, err = config.LoadFile(a.configPath)
	} else if path := a.env.getenv("PERMIT_CONFIG"); path != "" {
		loaded, err = config.LoadFile(path)
	} else {
		return usagef("PERMIT_CONFIG environment variable not set; set it to the path of your permit.yaml config file, or use --config flag")
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.chainID != 0 {
		loaded.ChainID = a.chainID
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := loaded.EnsurePaths(); err != nil {
		return err
	}

	a.config = loaded
	a.logger = newLogger(loaded.Log, a.env.stderr, a.env.getenv("PERMIT_DEBUG") != "")
	return nil
}

// domain returns the EIP-712 domain permits are signed under.
func (a *app) domain() signer.Domain {
	domain := signer.Domain{
		Name:    a.config.Domain.Name,
		Version: a.config.Domain.Version,
		ChainID: a.config.ChainID,
	}
	if a.config.Domain.VerifyingContract != "" {
		domain.VerifyingContract = common.HexToAddress(a.config.Domain.VerifyingContract)
	}
	return domain
}

// session is an opened permit store for the configured chain: the
// encrypted files plus the in-memory registry restored from them.
type session struct {
	chainID  uint64
	files    *permitstore.FileStore
	store    *permitstore.Store
	identity *secret.Buffer
	clock    clock.Clock
	logger   *slog.Logger
}

// openSession runs setup and restores the configured chain's permits.
func (a *app) openSession() (*session, error) {
	if err := a.setup(); err != nil {
		return nil, err
	}

	identity, err := secret.ReadFromPath(a.config.Storage.IdentityFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("identity file %s does not exist (run 'permit init')", a.config.Storage.IdentityFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	files, err := permitstore.OpenFileStore(permitstore.FileStoreConfig{
		Directory:  a.config.Paths.State,
		Recipients: a.config.Storage.Recipients,
		Identity:   identity,
		Logger:     a.logger,
	})
	if err != nil {
		identity.Close()
		return nil, err
	}

	store := permitstore.NewStore(permitstore.Config{Clock: a.env.clock, Logger: a.logger})
	count, err := files.Restore(a.config.ChainID, store)
	if err != nil {
		store.Close()
		identity.Close()
		return nil, err
	}
	a.logger.Debug("permits restored", "chain_id", a.config.ChainID, "count", count)

	return &session{
		chainID:  a.config.ChainID,
		files:    files,
		store:    store,
		identity: identity,
		clock:    a.env.clock,
		logger:   a.logger,
	}, nil
}

func (s *session) now() time.Time { return s.clock.Now() }

func (s *session) Close() {
	s.store.Close()
	s.identity.Close()
}

// add stores p in memory and on disk. A permit that became active in
// memory has its pointer persisted too. Unless replace is set, a
// different permit already stored under p's hash is an error and
// nothing is written.
func (s *session) add(p *permit.Permit, replace bool) (permitstore.Key, common.Hash, error) {
	var (
		key  permitstore.Key
		hash common.Hash
	)
	if replace {
		key, hash = s.store.Replace(s.chainID, p)
	} else {
		var err error
		key, hash, err = s.store.Add(s.chainID, p)
		if errors.Is(err, permitstore.ErrExists) {
			return key, hash, fmt.Errorf("permit %s already exists for %s with its own sealing key (use --replace to overwrite it)", hash.Hex(), key.Account.Hex())
		}
		if err != nil {
			return key, hash, err
		}
	}
	if err := s.files.Save(s.chainID, p); err != nil {
		return key, hash, err
	}
	if active, ok := s.store.ActiveHash(key); ok && active == hash {
		if err := s.files.SetActive(s.chainID, key.Account, hash); err != nil {
			return key, hash, err
		}
	}
	return key, hash, nil
}

// lookup resolves a permit reference: a full hash or a unique prefix of
// at least four hex digits, with or without 0x.
func (s *session) lookup(reference string) (permitstore.Key, *permit.Permit, error) {
	prefix := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(reference, "0x"), "0X"))
	if len(prefix) < 4 {
		return permitstore.Key{}, nil, usagef("permit reference %q is too short (need at least 4 hex digits)", reference)
	}

	var (
		foundKey permitstore.Key
		found    *permit.Permit
		matches  int
	)
	for _, key := range s.store.Keys() {
		for _, candidate := range s.store.List(key) {
			if strings.HasPrefix(strings.TrimPrefix(candidate.HashHex(), "0x"), prefix) {
				foundKey, found = key, candidate
				matches++
			}
		}
	}
	switch matches {
	case 0:
		return permitstore.Key{}, nil, fmt.Errorf("%w: %s on chain %d", permitstore.ErrNotFound, reference, s.chainID)
	case 1:
		return foundKey, found, nil
	default:
		return permitstore.Key{}, nil, usagef("permit reference %q is ambiguous (%d matches)", reference, matches)
	}
}

// resolve returns the permit named by args[0], or the active permit of
// account when args is empty.
func (s *session) resolve(args []string, account string) (permitstore.Key, *permit.Permit, error) {
	if len(args) > 1 {
		return permitstore.Key{}, nil, usagef("expected at most one permit reference, got %d", len(args))
	}
	if len(args) == 1 {
		return s.lookup(args[0])
	}
	if account == "" {
		return permitstore.Key{}, nil, usagef("a permit hash or --account is required")
	}
	holder, err := parseAccountFlag(account)
	if err != nil {
		return permitstore.Key{}, nil, err
	}
	key := permitstore.Key{ChainID: s.chainID, Account: holder}
	active, ok := s.store.Active(key)
	if !ok {
		return key, nil, fmt.Errorf("%s has no active permit", key)
	}
	return key, active, nil
}

// writeJSON writes value as indented JSON to w.
func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
