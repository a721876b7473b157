// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permitstore

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bureau-foundation/permit/lib/clock"
	"github.com/bureau-foundation/permit/lib/permit"
)

var (
	// ErrNotFound is returned when a key holds no permit with the
	// requested hash.
	ErrNotFound = errors.New("permitstore: permit not found")

	// ErrActivePermit is returned by Remove for the active permit when
	// force is not set.
	ErrActivePermit = errors.New("permitstore: permit is active")

	// ErrExists is returned by Add when a different permit with the
	// same hash is already stored under the key.
	ErrExists = errors.New("permitstore: a different permit with this hash is stored")
)

// Key identifies the permits one account holds on one chain.
type Key struct {
	ChainID uint64
	Account common.Address
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", k.ChainID, k.Account.Hex())
}

// Config configures a Store.
type Config struct {
	// Clock decides expiry for Prune. Defaults to the real clock.
	Clock clock.Clock

	// Logger receives add/remove/prune events. If nil, a no-op
	// logger is used.
	Logger *slog.Logger
}

// Store is an in-memory registry of permits. It is safe for concurrent
// use; the permits it returns are not.
type Store struct {
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	permits map[Key]map[common.Hash]*permit.Permit
	active  map[Key]common.Hash
}

// NewStore returns an empty Store.
func NewStore(config Config) *Store {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	source := config.Clock
	if source == nil {
		source = clock.Real()
	}
	return &Store{
		clock:   source,
		logger:  logger,
		permits: make(map[Key]map[common.Hash]*permit.Permit),
		active:  make(map[Key]common.Hash),
	}
}

// Add stores p under (chainID, p.Holder()) and returns its key and
// hash. The first permit in an empty group becomes active. Name and
// sealing pair are not part of the hash, so two distinct permits can
// share one; Add refuses the second with ErrExists and leaves the
// stored permit untouched. Adding the stored permit again is a no-op.
func (s *Store) Add(chainID uint64, p *permit.Permit) (Key, common.Hash, error) {
	key, hash := s.keyOf(chainID, p)

	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, exists := s.permits[key][hash]; exists && previous != p {
		return key, hash, fmt.Errorf("%w: %s under %s", ErrExists, hash.Hex(), key)
	}
	s.put(key, hash, p)
	return key, hash, nil
}

// Replace stores p like Add, but a different permit stored under the
// same hash is dropped and closed. Its sealing key is lost.
func (s *Store) Replace(chainID uint64, p *permit.Permit) (Key, common.Hash) {
	key, hash := s.keyOf(chainID, p)

	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, exists := s.permits[key][hash]; exists && previous != p {
		previous.Close()
		s.logger.Info("permit replaced", "key", key.String(), "hash", hash.Hex())
	}
	s.put(key, hash, p)
	return key, hash
}

func (s *Store) keyOf(chainID uint64, p *permit.Permit) (Key, common.Hash) {
	return Key{ChainID: chainID, Account: p.Holder()}, p.Hash()
}

// put stores p and makes it active if the group had no active permit.
// Caller holds mu.
func (s *Store) put(key Key, hash common.Hash, p *permit.Permit) {
	group := s.permits[key]
	if group == nil {
		group = make(map[common.Hash]*permit.Permit)
		s.permits[key] = group
	}
	group[hash] = p

	if _, hasActive := s.active[key]; !hasActive {
		s.active[key] = hash
	}
	s.logger.Debug("permit stored", "key", key.String(), "hash", hash.Hex(), "type", string(p.Type))
}

// Get returns the permit with hash under key.
func (s *Store) Get(key Key, hash common.Hash) (*permit.Permit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.permits[key][hash]
	return p, ok
}

// List returns the permits under key ordered by name, then hash.
func (s *Store) List(key Key) []*permit.Permit {
	s.mu.Lock()
	defer s.mu.Unlock()

	group := s.permits[key]
	result := make([]*permit.Permit, 0, len(group))
	for _, p := range group {
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b *permit.Permit) int {
		return cmp.Or(
			strings.Compare(a.Name, b.Name),
			strings.Compare(a.HashHex(), b.HashHex()),
		)
	})
	return result
}

// Keys returns every key holding at least one permit, ordered by chain
// ID and then account.
func (s *Store) Keys() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]Key, 0, len(s.permits))
	for key, group := range s.permits {
		if len(group) > 0 {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, func(a, b Key) int {
		return cmp.Or(cmp.Compare(a.ChainID, b.ChainID), a.Account.Cmp(b.Account))
	})
	return keys
}

// SetActive makes the permit with hash the active one under key.
func (s *Store) SetActive(key Key, hash common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permits[key][hash]; !ok {
		return fmt.Errorf("%w: %s under %s", ErrNotFound, hash.Hex(), key)
	}
	s.active[key] = hash
	s.logger.Info("active permit changed", "key", key.String(), "hash", hash.Hex())
	return nil
}

// Active returns the active permit under key.
func (s *Store) Active(key Key) (*permit.Permit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, ok := s.active[key]
	if !ok {
		return nil, false
	}
	p, ok := s.permits[key][hash]
	return p, ok
}

// ActiveHash returns the hash of the active permit under key.
func (s *Store) ActiveHash(key Key) (common.Hash, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.active[key]
	return hash, ok
}

// Remove drops and closes the permit with hash under key. The active
// permit is only removed when force is set, which leaves the key
// without an active permit.
func (s *Store) Remove(key Key, hash common.Hash, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.permits[key][hash]
	if !ok {
		return fmt.Errorf("%w: %s under %s", ErrNotFound, hash.Hex(), key)
	}
	isActive := s.active[key] == hash
	if isActive && !force {
		return fmt.Errorf("%w: %s under %s", ErrActivePermit, hash.Hex(), key)
	}
	s.drop(key, hash)
	p.Close()
	s.logger.Info("permit removed", "key", key.String(), "hash", hash.Hex(), "was_active", isActive)
	return nil
}

// Prune drops and closes every permit expired at the store clock's
// current time, clearing active pointers that referred to them. It
// returns the hashes removed, ordered.
func (s *Store) Prune() []common.Hash {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []common.Hash
	for key, group := range s.permits {
		for hash, p := range group {
			if !p.IsExpiredAt(now) {
				continue
			}
			s.drop(key, hash)
			p.Close()
			removed = append(removed, hash)
			s.logger.Info("expired permit pruned", "key", key.String(), "hash", hash.Hex(), "expiration", p.Expiration)
		}
	}
	slices.SortFunc(removed, func(a, b common.Hash) int { return a.Cmp(b) })
	return removed
}

// Close closes every stored permit and empties the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, group := range s.permits {
		for _, p := range group {
			if err := p.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	s.permits = make(map[Key]map[common.Hash]*permit.Permit)
	s.active = make(map[Key]common.Hash)
	return errors.Join(errs...)
}

// drop removes hash from key's group and clears the active pointer if
// it referred to hash. Caller holds mu.
func (s *Store) drop(key Key, hash common.Hash) {
	group := s.permits[key]
	delete(group, hash)
	if len(group) == 0 {
		delete(s.permits, key)
	}
	if s.active[key] == hash {
		delete(s.active, key)
	}
}
