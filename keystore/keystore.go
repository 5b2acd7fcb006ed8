// Package keystore persists named Mina keypairs. Backends share one
// interface: in-memory, encrypted files, the OS keychain, and an LRU cache
// that fronts any of them.
package keystore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blockberries/mina-signer-go/crypto"
	"github.com/blockberries/mina-signer-go/field"
)

// KeyStore errors
var (
	// ErrKeyNotFound is returned when a key is not found in the store.
	ErrKeyNotFound = errors.New("key not found in store")

	// ErrKeyExists is returned when attempting to store a key that already exists.
	ErrKeyExists = errors.New("key already exists in store")

	// ErrIO is returned when an I/O error occurs during store operations.
	ErrIO = errors.New("key store I/O error")

	// ErrInvalidKeyName is returned when a key name fails validation.
	ErrInvalidKeyName = errors.New("invalid key name")

	// ErrInvalidEncryptionParams is returned when salt or nonce have the wrong size.
	ErrInvalidEncryptionParams = errors.New("invalid encryption parameters")

	// ErrKeyNameMismatch is returned when the name parameter differs from Entry.Name.
	ErrKeyNameMismatch = errors.New("key name parameter does not match Entry.Name")

	// ErrInvalidPassword is returned when decryption fails due to wrong password.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrClosed is returned when operations are attempted on a closed store.
	ErrClosed = errors.New("key store is closed")

	// ErrKeychainUnavailable is returned when the OS keychain cannot be accessed.
	// Common causes:
	//   - Linux: D-Bus not running, or no secret service daemon
	//   - Headless environments: no session for authentication prompts
	ErrKeychainUnavailable = errors.New("keychain unavailable")
)

// MaxKeyNameLength bounds key names so they stay valid file names.
const MaxKeyNameLength = 255

// KeyStore stores entries by name. Implementations must be thread-safe and
// return copies so callers can Wipe what they load.
type KeyStore interface {
	// Store saves an entry. Returns ErrKeyExists if the name is taken.
	Store(name string, e Entry) error

	// Load retrieves an entry. Returns ErrKeyNotFound if absent.
	Load(name string) (Entry, error)

	// Delete removes an entry. Returns ErrKeyNotFound if absent.
	Delete(name string) error

	// List returns all names in no particular order.
	List() ([]string, error)

	// Close releases resources and wipes in-memory key material.
	Close() error
}

// Entry is a stored keypair.
type Entry struct {
	// Name is the unique identifier for this key.
	Name string `json:"name"`

	// PublicKey is the B62... address.
	PublicKey string `json:"public_key"`

	// PrivateKey is the 32-byte little-endian scalar. It is plaintext once
	// returned by Load; backends encrypt it at rest as they see fit.
	PrivateKey []byte `json:"private_key"`

	// Salt and Nonce are the encryption parameters of the file backend.
	Salt  []byte `json:"salt,omitempty"`
	Nonce []byte `json:"nonce,omitempty"`
}

// NewEntry builds an entry from a keypair.
func NewEntry(name string, kp *crypto.Keypair) Entry {
	le := field.BytesLE(kp.Private.Scalar())
	priv := make([]byte, 32)
	copy(priv, le[:])
	crypto.Zeroize(le[:])
	return Entry{Name: name, PublicKey: kp.Public.Address(), PrivateKey: priv}
}

// Keypair decodes the entry and checks that both halves agree.
func (e Entry) Keypair() (*crypto.Keypair, error) {
	d, err := field.Fq.FromBytesLE(e.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", e.Name, crypto.ErrInvalidKey)
	}
	sk, err := crypto.NewPrivateKey(d)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", e.Name, err)
	}
	kp := crypto.NewKeypair(sk)
	if kp.Public.Address() != e.PublicKey {
		return nil, fmt.Errorf("entry %q: %w: public key does not match private key", e.Name, crypto.ErrInvalidKey)
	}
	return kp, nil
}

// ValidateEncryptionParams checks that salt and nonce are either both absent
// or have the file backend's sizes.
func (e Entry) ValidateEncryptionParams() error {
	if e.Salt == nil && e.Nonce == nil {
		return nil
	}
	if len(e.Salt) != saltLen {
		return fmt.Errorf("%w: salt must be %d bytes, got %d", ErrInvalidEncryptionParams, saltLen, len(e.Salt))
	}
	if len(e.Nonce) != aesGCMNonceLen {
		return fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrInvalidEncryptionParams, aesGCMNonceLen, len(e.Nonce))
	}
	return nil
}

// Wipe zeroes the private key and encryption parameters in place.
func (e *Entry) Wipe() {
	crypto.Zeroize(e.PrivateKey)
	crypto.Zeroize(e.Salt)
	crypto.Zeroize(e.Nonce)
}

func (e Entry) clone() Entry {
	cp := Entry{Name: e.Name, PublicKey: e.PublicKey}
	if e.PrivateKey != nil {
		cp.PrivateKey = append([]byte(nil), e.PrivateKey...)
	}
	if e.Salt != nil {
		cp.Salt = append([]byte(nil), e.Salt...)
	}
	if e.Nonce != nil {
		cp.Nonce = append([]byte(nil), e.Nonce...)
	}
	return cp
}

// ValidateKeyName checks that a name is safe to use as a file name and a
// keychain account.
func ValidateKeyName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: key name cannot be empty", ErrInvalidKeyName)
	}
	if len(name) > MaxKeyNameLength {
		return fmt.Errorf("%w: key name too long (max %d characters)", ErrInvalidKeyName, MaxKeyNameLength)
	}
	if strings.ContainsAny(name, `/\,`) {
		return fmt.Errorf("%w: key name cannot contain path separators or commas", ErrInvalidKeyName)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: key name cannot contain '..'", ErrInvalidKeyName)
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return fmt.Errorf("%w: key name cannot start with '.' or '_'", ErrInvalidKeyName)
	}
	for _, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("%w: key name contains control characters", ErrInvalidKeyName)
		}
	}
	return nil
}
