package store

import (
	"bytes"
	"sort"
	"sync"
)

// MemoryStore is an in-memory BackingStore.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Get retrieves raw bytes by key
func (ms *MemoryStore) Get(key []byte) ([]byte, error) {
	if ms == nil {
		return nil, ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrStoreClosed
	}
	value, ok := ms.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(value), nil
}

// Set stores raw bytes with the given key
func (ms *MemoryStore) Set(key []byte, value []byte) error {
	if ms == nil {
		return ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrStoreClosed
	}
	ms.data[string(key)] = clone(value)
	return nil
}

// Delete removes a key
func (ms *MemoryStore) Delete(key []byte) error {
	if ms == nil {
		return ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrStoreClosed
	}
	delete(ms.data, string(key))
	return nil
}

// Has checks if a key exists
func (ms *MemoryStore) Has(key []byte) (bool, error) {
	if ms == nil {
		return false, ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return false, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return false, ErrStoreClosed
	}
	_, ok := ms.data[string(key)]
	return ok, nil
}

// Iterator returns a snapshot iterator over [start, end) in key order. A nil
// bound is open.
func (ms *MemoryStore) Iterator(start, end []byte) (RawIterator, error) {
	if ms == nil {
		return nil, ErrStoreNil
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrStoreClosed
	}

	keys := make([]string, 0, len(ms.data))
	for key := range ms.data {
		kb := []byte(key)
		if start != nil && bytes.Compare(kb, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(kb, end) >= 0 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]kvPair, len(keys))
	for i, key := range keys {
		items[i] = kvPair{key: []byte(key), value: ms.data[key]}
	}
	return &memoryIterator{items: items}, nil
}

// Flush is a no-op.
func (ms *MemoryStore) Flush() error {
	return nil
}

// Close drops the contents.
func (ms *MemoryStore) Close() error {
	if ms == nil {
		return nil
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.closed = true
	ms.data = nil
	return nil
}

type kvPair struct {
	key   []byte
	value []byte
}

// memoryIterator walks a snapshot taken under the store lock; it is not
// safe for concurrent use.
type memoryIterator struct {
	items  []kvPair
	index  int
	closed bool
}

func (mi *memoryIterator) Valid() bool {
	return !mi.closed && mi.index < len(mi.items)
}

func (mi *memoryIterator) Next() {
	if mi.Valid() {
		mi.index++
	}
}

func (mi *memoryIterator) Key() []byte {
	if !mi.Valid() {
		return nil
	}
	return clone(mi.items[mi.index].key)
}

func (mi *memoryIterator) Value() []byte {
	if !mi.Valid() {
		return nil
	}
	return clone(mi.items[mi.index].value)
}

func (mi *memoryIterator) Error() error {
	if mi.closed {
		return ErrIteratorClosed
	}
	return nil
}

func (mi *memoryIterator) Close() error {
	mi.closed = true
	mi.items = nil
	return nil
}
