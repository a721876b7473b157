// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permitstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"filippo.io/age"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bureau-foundation/permit/lib/account"
	"github.com/bureau-foundation/permit/lib/permit"
	"github.com/bureau-foundation/permit/lib/secret"
)

const (
	permitSuffix = ".permit"
	activeFile   = "active.json"
)

// ErrNoIdentity is returned by reads from a FileStore opened without
// an identity.
var ErrNoIdentity = errors.New("permitstore: no identity configured for decryption")

// FileStoreConfig configures a FileStore.
type FileStoreConfig struct {
	// Directory is the root of the store. It is created with mode
	// 0700 if missing.
	Directory string

	// Recipients are age public keys (age1...) that snapshots are
	// encrypted to. When empty, the recipients of Identity are used.
	Recipients []string

	// Identity holds age identities (an identity file's contents) used
	// to decrypt snapshots. It is borrowed, not closed. A FileStore
	// without one can only write.
	Identity *secret.Buffer

	// Logger receives write and skip events. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// FileStore keeps age-encrypted permit snapshots on disk.
type FileStore struct {
	directory  string
	recipients []age.Recipient
	identity   *secret.Buffer
	logger     *slog.Logger
}

// OpenFileStore validates config and prepares the store directory.
func OpenFileStore(config FileStoreConfig) (*FileStore, error) {
	if config.Directory == "" {
		return nil, fmt.Errorf("permitstore: Directory is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	recipients := make([]age.Recipient, 0, len(config.Recipients))
	for _, key := range config.Recipients {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("permitstore: parsing recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}
	if len(recipients) == 0 && config.Identity != nil {
		identities, err := parseIdentities(config.Identity)
		if err != nil {
			return nil, err
		}
		for _, identity := range identities {
			if x25519, ok := identity.(*age.X25519Identity); ok {
				recipients = append(recipients, x25519.Recipient())
			}
		}
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("permitstore: at least one recipient or an X25519 identity is required")
	}

	if err := os.MkdirAll(config.Directory, 0o700); err != nil {
		return nil, fmt.Errorf("permitstore: creating %s: %w", config.Directory, err)
	}
	return &FileStore{
		directory:  config.Directory,
		recipients: recipients,
		identity:   config.Identity,
		logger:     logger,
	}, nil
}

// Save encrypts p's snapshot and writes it for chainID, replacing any
// earlier file for the same hash.
func (f *FileStore) Save(chainID uint64, p *permit.Permit) error {
	plaintext, err := p.MarshalSnapshot()
	if err != nil {
		return fmt.Errorf("permitstore: encoding %s: %w", p.HashHex(), err)
	}
	defer secret.Zero(plaintext)

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, f.recipients...)
	if err != nil {
		return fmt.Errorf("permitstore: creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return fmt.Errorf("permitstore: encrypting %s: %w", p.HashHex(), err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("permitstore: finalizing encryption of %s: %w", p.HashHex(), err)
	}

	if err := f.writeFile(f.permitPath(chainID, p.Hash()), ciphertext.Bytes()); err != nil {
		return err
	}
	f.logger.Debug("permit saved", "chain_id", chainID, "hash", p.HashHex())
	return nil
}

// Load decrypts and parses the permit with hash on chainID.
func (f *FileStore) Load(chainID uint64, hash common.Hash) (*permit.Permit, error) {
	ciphertext, err := os.ReadFile(f.permitPath(chainID, hash))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s on chain %d", ErrNotFound, hash.Hex(), chainID)
	}
	if err != nil {
		return nil, fmt.Errorf("permitstore: reading %s: %w", hash.Hex(), err)
	}
	return f.decode(ciphertext)
}

// LoadAll returns every readable permit stored for chainID, ordered by
// file name. Files that fail to decrypt or parse are logged and
// skipped.
func (f *FileStore) LoadAll(chainID uint64) ([]*permit.Permit, error) {
	if f.identity == nil {
		return nil, ErrNoIdentity
	}
	entries, err := os.ReadDir(f.chainDirectory(chainID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("permitstore: listing chain %d: %w", chainID, err)
	}

	var permits []*permit.Permit
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), permitSuffix) {
			continue
		}
		path := filepath.Join(f.chainDirectory(chainID), entry.Name())
		ciphertext, err := os.ReadFile(path)
		if err != nil {
			f.logger.Warn("skipping unreadable permit file", "path", path, "error", err)
			continue
		}
		loaded, err := f.decode(ciphertext)
		if err != nil {
			f.logger.Warn("skipping undecodable permit file", "path", path, "error", err)
			continue
		}
		permits = append(permits, loaded)
	}
	return permits, nil
}

// Delete removes the file for hash on chainID and any active pointer
// to it.
func (f *FileStore) Delete(chainID uint64, hash common.Hash) error {
	err := os.Remove(f.permitPath(chainID, hash))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s on chain %d", ErrNotFound, hash.Hex(), chainID)
	}
	if err != nil {
		return fmt.Errorf("permitstore: deleting %s: %w", hash.Hex(), err)
	}

	pointers, err := f.readActive(chainID)
	if err != nil {
		return err
	}
	changed := false
	for holder, active := range pointers {
		if active == hash {
			delete(pointers, holder)
			changed = true
		}
	}
	if changed {
		return f.writeActive(chainID, pointers)
	}
	return nil
}

// SetActive records hash as the active permit of holder on chainID.
func (f *FileStore) SetActive(chainID uint64, holder common.Address, hash common.Hash) error {
	pointers, err := f.readActive(chainID)
	if err != nil {
		return err
	}
	pointers[holder] = hash
	return f.writeActive(chainID, pointers)
}

// ActivePointers returns the recorded active permit per holder on
// chainID.
func (f *FileStore) ActivePointers(chainID uint64) (map[common.Address]common.Hash, error) {
	return f.readActive(chainID)
}

// Restore loads every permit for chainID into store and applies the
// recorded active pointers. Pointers to permits that are not present
// are ignored, and a loaded permit whose hash store already holds for
// a different permit is closed and skipped. It returns the number of
// permits added.
func (f *FileStore) Restore(chainID uint64, store *Store) (int, error) {
	permits, err := f.LoadAll(chainID)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, loaded := range permits {
		if _, _, err := store.Add(chainID, loaded); err != nil {
			f.logger.Warn("keeping the permit already in memory", "chain_id", chainID, "hash", loaded.HashHex(), "error", err)
			loaded.Close()
			continue
		}
		restored++
	}
	pointers, err := f.readActive(chainID)
	if err != nil {
		return restored, err
	}
	for holder, hash := range pointers {
		key := Key{ChainID: chainID, Account: holder}
		if err := store.SetActive(key, hash); err != nil {
			f.logger.Warn("ignoring stale active pointer", "key", key.String(), "hash", hash.Hex())
		}
	}
	return restored, nil
}

func (f *FileStore) decode(ciphertext []byte) (*permit.Permit, error) {
	if f.identity == nil {
		return nil, ErrNoIdentity
	}
	identities, err := parseIdentities(f.identity)
	if err != nil {
		return nil, err
	}
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		return nil, fmt.Errorf("permitstore: decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("permitstore: reading decrypted snapshot: %w", err)
	}
	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		return nil, fmt.Errorf("permitstore: protecting snapshot: %w", err)
	}
	defer buffer.Close()
	return permit.ParseSnapshot(buffer.Bytes())
}

func parseIdentities(identity *secret.Buffer) ([]age.Identity, error) {
	identities, err := age.ParseIdentities(bytes.NewReader(identity.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("permitstore: parsing identity: %w", err)
	}
	return identities, nil
}

func (f *FileStore) readActive(chainID uint64) (map[common.Address]common.Hash, error) {
	data, err := os.ReadFile(filepath.Join(f.chainDirectory(chainID), activeFile))
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[common.Address]common.Hash), nil
	}
	if err != nil {
		return nil, fmt.Errorf("permitstore: reading active pointers: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("permitstore: parsing active pointers: %w", err)
	}
	pointers := make(map[common.Address]common.Hash, len(raw))
	for holder, hash := range raw {
		address, err := account.Parse(holder)
		if err != nil {
			return nil, fmt.Errorf("permitstore: active pointer account: %w", err)
		}
		pointers[address] = common.HexToHash(hash)
	}
	return pointers, nil
}

func (f *FileStore) writeActive(chainID uint64, pointers map[common.Address]common.Hash) error {
	raw := make(map[string]string, len(pointers))
	for holder, hash := range pointers {
		raw[strings.ToLower(holder.Hex())] = hash.Hex()
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("permitstore: encoding active pointers: %w", err)
	}
	return f.writeFile(filepath.Join(f.chainDirectory(chainID), activeFile), data)
}

// writeFile atomically replaces path with data, mode 0600.
func (f *FileStore) writeFile(path string, data []byte) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("permitstore: creating %s: %w", directory, err)
	}

	temporary, err := os.CreateTemp(directory, ".write-*.tmp")
	if err != nil {
		return fmt.Errorf("permitstore: creating temp file: %w", err)
	}
	temporaryPath := temporary.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(temporaryPath)
		}
	}()

	if err := temporary.Chmod(0o600); err != nil {
		temporary.Close()
		return fmt.Errorf("permitstore: setting permissions: %w", err)
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("permitstore: writing %s: %w", filepath.Base(path), err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return fmt.Errorf("permitstore: syncing %s: %w", filepath.Base(path), err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("permitstore: closing temp file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("permitstore: renaming to %s: %w", path, err)
	}

	success = true
	return nil
}

func (f *FileStore) chainDirectory(chainID uint64) string {
	return filepath.Join(f.directory, strconv.FormatUint(chainID, 10))
}

func (f *FileStore) permitPath(chainID uint64, hash common.Hash) string {
	return filepath.Join(f.chainDirectory(chainID), strings.TrimPrefix(hash.Hex(), "0x")+permitSuffix)
}

// Chains returns the chain IDs that have a directory in the store.
func (f *FileStore) Chains() ([]uint64, error) {
	entries, err := os.ReadDir(f.directory)
	if err != nil {
		return nil, fmt.Errorf("permitstore: listing %s: %w", f.directory, err)
	}
	var chains []uint64
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		chainID, err := strconv.ParseUint(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		chains = append(chains, chainID)
	}
	slices.Sort(chains)
	return chains, nil
}
