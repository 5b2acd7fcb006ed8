// Package store persists signed commands under their transaction ids. A
// Journal sits on a BackingStore: MemoryStore for tests and short-lived
// clients, IAVLStore when the journal needs a merkle root and membership
// proofs.
package store

import (
	"errors"
)

var (
	// ErrNotFound reports an absent key or transaction id.
	ErrNotFound = errors.New("key not found")

	// ErrInvalidKey reports an empty key or a malformed transaction id.
	ErrInvalidKey = errors.New("invalid key")

	// ErrIteratorClosed is reported by Error after Close.
	ErrIteratorClosed = errors.New("iterator closed")

	// ErrStoreNil reports a nil store.
	ErrStoreNil = errors.New("store is nil")

	// ErrStoreClosed is returned by every operation after Close
	ErrStoreClosed = errors.New("store is closed")

	// ErrConflict is returned when a transaction id is recorded twice with
	// different contents
	ErrConflict = errors.New("conflicting record")

	// ErrProofUnsupported is returned when the backing store cannot prove
	// membership
	ErrProofUnsupported = errors.New("backing store does not produce proofs")
)

// BackingStore is the raw key-value layer under a Journal.
type BackingStore interface {
	// Get returns a copy of the value, or ErrNotFound.
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)

	// Iterator walks [start, end) in ascending key order. Nil bounds are open.
	Iterator(start, end []byte) (RawIterator, error)

	// Flush commits pending writes. IAVLStore saves a tree version.
	Flush() error
	Close() error
}

// RawIterator walks key-value pairs. Key and Value return copies.
type RawIterator interface {
	Valid() bool
	Next()
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// Serializer maps journal values to stored bytes.
type Serializer[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

func validateKey(key []byte) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
