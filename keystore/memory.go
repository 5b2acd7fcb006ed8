package keystore

import "sync"

// MemoryKeyStore implements KeyStore with in-memory storage.
// Thread-safe via RWMutex. Keys are held in plaintext, so this backend is
// meant for tests and ephemeral signers.
type MemoryKeyStore struct {
	mu     sync.RWMutex
	keys   map[string]Entry
	closed bool
}

// NewMemoryKeyStore creates an empty in-memory key store.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]Entry, 16)}
}

// Store saves a copy of e.
//
// Returns ErrInvalidKeyName, ErrKeyNameMismatch, ErrInvalidEncryptionParams,
// ErrClosed or ErrKeyExists.
func (m *MemoryKeyStore) Store(name string, e Entry) error {
	if err := ValidateKeyName(name); err != nil {
		return err
	}
	if name != e.Name {
		return ErrKeyNameMismatch
	}
	if err := e.ValidateEncryptionParams(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, exists := m.keys[name]; exists {
		return ErrKeyExists
	}
	m.keys[name] = e.clone()
	return nil
}

// Load returns a copy of the named entry. Callers should Wipe it when done.
func (m *MemoryKeyStore) Load(name string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Entry{}, ErrClosed
	}
	e, ok := m.keys[name]
	if !ok {
		return Entry{}, ErrKeyNotFound
	}
	return e.clone(), nil
}

// Delete wipes and removes the named entry.
func (m *MemoryKeyStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	e, ok := m.keys[name]
	if !ok {
		return ErrKeyNotFound
	}
	// e shares its backing arrays with the map value
	e.Wipe()
	delete(m.keys, name)
	return nil
}

// List returns all key names.
func (m *MemoryKeyStore) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	names := make([]string, 0, len(m.keys))
	for name := range m.keys {
		names = append(names, name)
	}
	return names, nil
}

// Len returns the number of keys, or 0 once closed.
func (m *MemoryKeyStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// Close wipes every entry. Safe to call multiple times.
func (m *MemoryKeyStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for _, e := range m.keys {
		e.Wipe()
	}
	m.keys = nil
	return nil
}

var _ KeyStore = (*MemoryKeyStore)(nil)
