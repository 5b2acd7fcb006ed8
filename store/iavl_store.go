package store

import (
	"fmt"
	"sync"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"
	ics23 "github.com/cosmos/ics23/go"
	"github.com/cosmos/iavl"
)

// IAVLStore is a BackingStore over an IAVL tree. Every Flush saves a version
// whose root hash commits to the whole journal.
type IAVLStore struct {
	mu      sync.RWMutex
	db      dbm.DB
	tree    *iavl.MutableTree
	version int64
	closed  bool
}

// NewIAVLStore opens a tree on db, resuming from its latest version.
// cacheSize is the IAVL node cache size; a nil logger discards tree logs.
func NewIAVLStore(db dbm.DB, cacheSize int, logger log.Logger) (*IAVLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	tree := iavl.NewMutableTree(db, cacheSize, false, logger)
	version, err := tree.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree: %w", err)
	}

	return &IAVLStore{
		db:      db,
		tree:    tree,
		version: version,
	}, nil
}

// NewMemIAVLStore is NewIAVLStore over a fresh in-memory database.
func NewMemIAVLStore(cacheSize int, logger log.Logger) (*IAVLStore, error) {
	return NewIAVLStore(dbm.NewMemDB(), cacheSize, logger)
}

// Get retrieves raw bytes by key from the working tree
func (s *IAVLStore) Get(key []byte) ([]byte, error) {
	if s == nil {
		return nil, ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	value, err := s.tree.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	if value == nil {
		return nil, ErrNotFound
	}
	return clone(value), nil
}

// Set stores raw bytes with the given key
func (s *IAVLStore) Set(key []byte, value []byte) error {
	if s == nil {
		return ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.tree.Set(clone(key), clone(value)); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Delete removes a key
func (s *IAVLStore) Delete(key []byte) error {
	if s == nil {
		return ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, _, err := s.tree.Remove(key); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// Has checks if a key exists
func (s *IAVLStore) Has(key []byte) (bool, error) {
	if s == nil {
		return false, ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrStoreClosed
	}
	has, err := s.tree.Has(key)
	if err != nil {
		return false, fmt.Errorf("failed to check key: %w", err)
	}
	return has, nil
}

// Iterator returns an ascending iterator over [start, end)
func (s *IAVLStore) Iterator(start, end []byte) (RawIterator, error) {
	if s == nil {
		return nil, ErrStoreNil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	iter, err := s.tree.Iterator(start, end, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	return &iavlIterator{iter: iter}, nil
}

// Flush saves the working tree as a new version.
func (s *IAVLStore) Flush() error {
	_, _, err := s.SaveVersion()
	return err
}

// Close marks the store closed and closes its database.
func (s *IAVLStore) Close() error {
	if s == nil {
		return ErrStoreNil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// SaveVersion saves the current state as a new version and returns its root
// hash and number.
func (s *IAVLStore) SaveVersion() ([]byte, int64, error) {
	if s == nil {
		return nil, 0, ErrStoreNil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, 0, ErrStoreClosed
	}
	hash, version, err := s.tree.SaveVersion()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to save version: %w", err)
	}
	s.version = version
	return clone(hash), version, nil
}

// Proof returns an ics23 commitment proof for key at the last saved version.
// Absent keys get a non-existence proof.
func (s *IAVLStore) Proof(key []byte) (*ics23.CommitmentProof, error) {
	if s == nil {
		return nil, ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	proof, err := s.tree.GetVersionedProof(key, s.version)
	if err != nil {
		return nil, fmt.Errorf("failed to get proof: %w", err)
	}
	return proof, nil
}

// Version returns the last saved version.
func (s *IAVLStore) Version() int64 {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Hash returns the root hash of the last saved version.
func (s *IAVLStore) Hash() []byte {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	return clone(s.tree.Hash())
}

// VerifyMembership checks an ics23 proof that key maps to value under root.
func VerifyMembership(root []byte, proof *ics23.CommitmentProof, key, value []byte) bool {
	if proof == nil {
		return false
	}
	return ics23.VerifyMembership(ics23.IavlSpec, root, proof, key, value)
}

// VerifyNonMembership checks an ics23 proof that key is absent under root.
func VerifyNonMembership(root []byte, proof *ics23.CommitmentProof, key []byte) bool {
	if proof == nil {
		return false
	}
	return ics23.VerifyNonMembership(ics23.IavlSpec, root, proof, key)
}

// iavlIterator adapts a dbm iterator to RawIterator.
type iavlIterator struct {
	iter   dbm.Iterator
	closed bool
}

func (it *iavlIterator) Valid() bool {
	return !it.closed && it.iter.Valid()
}

func (it *iavlIterator) Next() {
	if it.Valid() {
		it.iter.Next()
	}
}

func (it *iavlIterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return clone(it.iter.Key())
}

func (it *iavlIterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return clone(it.iter.Value())
}

func (it *iavlIterator) Error() error {
	if it.closed {
		return ErrIteratorClosed
	}
	return it.iter.Error()
}

func (it *iavlIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	if err := it.iter.Close(); err != nil {
		return fmt.Errorf("failed to close IAVL iterator: %w", err)
	}
	return nil
}
