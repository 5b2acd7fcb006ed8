package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	// keychainKeyPrefix namespaces key names within the service.
	keychainKeyPrefix = "key:"

	// keychainListKey holds the comma-separated index of key names. Keychain
	// APIs have no "list all" operation.
	keychainListKey = "_keylist"
)

// KeychainStore implements KeyStore on the OS keychain (macOS Keychain,
// Windows Credential Store, Linux Secret Service). The keychain encrypts at
// rest, so entries are stored as plain JSON. Thread-safe via RWMutex.
type KeychainStore struct {
	serviceName string
	mu          sync.RWMutex
	closed      bool
}

type keychainKeyData struct {
	Name       string `json:"name"`
	PublicKey  string `json:"public_key"`
	PrivateKey []byte `json:"private_key"`
}

// NewKeychainStore probes the keychain for serviceName. Returns
// ErrKeychainUnavailable when no keychain backend answers.
func NewKeychainStore(serviceName string) (*KeychainStore, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("%w: service name cannot be empty", ErrIO)
	}
	_, err := keyring.Get(serviceName, keychainListKey)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrKeychainUnavailable, err)
	}
	return &KeychainStore{serviceName: serviceName}, nil
}

// Store saves e and appends its name to the index.
func (ks *KeychainStore) Store(name string, e Entry) error {
	if err := ValidateKeyName(name); err != nil {
		return err
	}
	if name != e.Name {
		return ErrKeyNameMismatch
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.closed {
		return ErrClosed
	}

	account := keychainKeyPrefix + name
	_, err := keyring.Get(ks.serviceName, account)
	if err == nil {
		return ErrKeyExists
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: failed to check existing key: %v", ErrIO, err)
	}

	raw, err := json.Marshal(keychainKeyData{Name: name, PublicKey: e.PublicKey, PrivateKey: e.PrivateKey})
	if err != nil {
		return fmt.Errorf("%w: failed to marshal key data: %v", ErrIO, err)
	}
	if err := keyring.Set(ks.serviceName, account, string(raw)); err != nil {
		return fmt.Errorf("%w: failed to store key in keychain: %v", ErrIO, err)
	}
	if err := ks.addToKeyList(name); err != nil {
		_ = keyring.Delete(ks.serviceName, account)
		return err
	}
	return nil
}

// Load retrieves the named entry.
func (ks *KeychainStore) Load(name string) (Entry, error) {
	if err := ValidateKeyName(name); err != nil {
		return Entry{}, err
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()

	if ks.closed {
		return Entry{}, ErrClosed
	}

	s, err := keyring.Get(ks.serviceName, keychainKeyPrefix+name)
	if errors.Is(err, keyring.ErrNotFound) {
		return Entry{}, ErrKeyNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("%w: failed to load key from keychain: %v", ErrIO, err)
	}
	var data keychainKeyData
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return Entry{}, fmt.Errorf("%w: failed to parse key data: %v", ErrIO, err)
	}
	return Entry{Name: data.Name, PublicKey: data.PublicKey, PrivateKey: data.PrivateKey}, nil
}

// Delete removes the named entry and drops it from the index.
func (ks *KeychainStore) Delete(name string) error {
	if err := ValidateKeyName(name); err != nil {
		return err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.closed {
		return ErrClosed
	}

	account := keychainKeyPrefix + name
	if _, err := keyring.Get(ks.serviceName, account); errors.Is(err, keyring.ErrNotFound) {
		return ErrKeyNotFound
	} else if err != nil {
		return fmt.Errorf("%w: failed to check key existence: %v", ErrIO, err)
	}
	if err := keyring.Delete(ks.serviceName, account); err != nil {
		return fmt.Errorf("%w: failed to delete key from keychain: %v", ErrIO, err)
	}
	// the key itself is gone; a stale index entry is filtered by List
	_ = ks.removeFromKeyList(name)
	return nil
}

// List returns the names in the index that still have an entry.
func (ks *KeychainStore) List() ([]string, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	if ks.closed {
		return nil, ErrClosed
	}

	names, err := ks.readKeyList()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, err := keyring.Get(ks.serviceName, keychainKeyPrefix+n); err == nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// Close marks the store closed. Safe to call multiple times.
func (ks *KeychainStore) Close() error {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.closed = true
	return nil
}

func (ks *KeychainStore) readKeyList() ([]string, error) {
	s, err := keyring.Get(ks.serviceName, keychainListKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read key list: %v", ErrIO, err)
	}
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

// addToKeyList must be called with the write lock held.
func (ks *KeychainStore) addToKeyList(name string) error {
	names, err := ks.readKeyList()
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	names = append(names, name)
	if err := keyring.Set(ks.serviceName, keychainListKey, strings.Join(names, ",")); err != nil {
		return fmt.Errorf("%w: failed to update key list: %v", ErrIO, err)
	}
	return nil
}

// removeFromKeyList must be called with the write lock held.
func (ks *KeychainStore) removeFromKeyList(name string) error {
	names, err := ks.readKeyList()
	if err != nil {
		return err
	}
	kept := names[:0]
	for _, n := range names {
		if n != name {
			kept = append(kept, n)
		}
	}
	if err := keyring.Set(ks.serviceName, keychainListKey, strings.Join(kept, ",")); err != nil {
		return fmt.Errorf("%w: failed to update key list: %v", ErrIO, err)
	}
	return nil
}

var _ KeyStore = (*KeychainStore)(nil)
