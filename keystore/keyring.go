package keystore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/blockberries/mina-signer-go/crypto"
	"github.com/blockberries/mina-signer-go/hasher"
	"github.com/blockberries/mina-signer-go/types"
)

// ErrKeyringClosed is returned by every Keyring method after Close.
var ErrKeyringClosed = errors.New("keyring is closed")

// Keyring manages named signing keys on top of a KeyStore.
// All methods are thread-safe.
type Keyring struct {
	store   KeyStore
	schnorr *crypto.Schnorr

	mu     sync.RWMutex
	closed bool
}

// KeyringOption configures a Keyring.
type KeyringOption func(*Keyring)

// WithSchnorr sets the signing instance used by signers the keyring hands out.
func WithSchnorr(s *crypto.Schnorr) KeyringOption {
	return func(k *Keyring) {
		k.schnorr = s
	}
}

// NewKeyring creates a keyring over store.
func NewKeyring(store KeyStore, opts ...KeyringOption) *Keyring {
	kr := &Keyring{store: store}
	for _, opt := range opts {
		opt(kr)
	}
	if kr.schnorr == nil {
		kr.schnorr = crypto.NewSchnorr(nil)
	}
	return kr
}

func (kr *Keyring) checkClosed() error {
	kr.mu.RLock()
	defer kr.mu.RUnlock()
	if kr.closed {
		return ErrKeyringClosed
	}
	return nil
}

// NewKey generates and stores a fresh keypair.
// Returns ErrKeyExists if the name is taken.
func (kr *Keyring) NewKey(name string) (crypto.Signer, error) {
	if err := kr.checkClosed(); err != nil {
		return nil, err
	}
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	return kr.put(name, kp)
}

// ImportKey stores an existing private key given in base58 (EK...) or hex.
// Returns ErrKeyExists if the name is taken and crypto.ErrInvalidKey if the
// key does not decode.
func (kr *Keyring) ImportKey(name, privateKey string) (crypto.Signer, error) {
	if err := kr.checkClosed(); err != nil {
		return nil, err
	}
	sk, err := crypto.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return kr.put(name, crypto.NewKeypair(sk))
}

func (kr *Keyring) put(name string, kp *crypto.Keypair) (crypto.Signer, error) {
	if err := ValidateKeyName(name); err != nil {
		return nil, err
	}
	e := NewEntry(name, kp)
	defer e.Wipe()
	if err := kr.store.Store(name, e); err != nil {
		return nil, err
	}
	return crypto.NewSigner(kp.Private, kr.schnorr), nil
}

// ExportKey returns the named private key in base58.
func (kr *Keyring) ExportKey(name string) (string, error) {
	kp, err := kr.load(name)
	if err != nil {
		return "", err
	}
	defer kp.Private.Zeroize()
	return kp.Private.Base58(), nil
}

// GetKey returns a signer for the named key.
func (kr *Keyring) GetKey(name string) (crypto.Signer, error) {
	kp, err := kr.load(name)
	if err != nil {
		return nil, err
	}
	return crypto.NewSigner(kp.Private, kr.schnorr), nil
}

// PublicKey returns the named key's public half without building a signer.
func (kr *Keyring) PublicKey(name string) (*crypto.PublicKey, error) {
	kp, err := kr.load(name)
	if err != nil {
		return nil, err
	}
	kp.Private.Zeroize()
	return kp.Public, nil
}

func (kr *Keyring) load(name string) (*crypto.Keypair, error) {
	if err := kr.checkClosed(); err != nil {
		return nil, err
	}
	e, err := kr.store.Load(name)
	if err != nil {
		return nil, err
	}
	defer e.Wipe()
	return e.Keypair()
}

// List returns all key names.
func (kr *Keyring) List() ([]string, error) {
	if err := kr.checkClosed(); err != nil {
		return nil, err
	}
	return kr.store.List()
}

// Delete removes the named key.
func (kr *Keyring) Delete(name string) error {
	if err := kr.checkClosed(); err != nil {
		return err
	}
	return kr.store.Delete(name)
}

// Sign signs msg with the named key.
func (kr *Keyring) Sign(name string, msg hasher.Hashable, network types.NetworkID) (*crypto.Signature, error) {
	kp, err := kr.load(name)
	if err != nil {
		return nil, err
	}
	defer kp.Private.Zeroize()
	sig, err := kr.schnorr.Sign(msg, kp.Private, network)
	if err != nil {
		return nil, fmt.Errorf("sign with %q: %w", name, err)
	}
	return sig, nil
}

// Close closes the underlying store. Safe to call multiple times.
func (kr *Keyring) Close() error {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	if kr.closed {
		return nil
	}
	kr.closed = true
	return kr.store.Close()
}
