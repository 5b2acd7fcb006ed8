package crypto

import (
	"github.com/blockberries/mina-signer-go/hasher"
	"github.com/blockberries/mina-signer-go/types"
)

// Signer is the interface for signing operations.
// Implementations must never expose private key material.
type Signer interface {
	// PublicKey returns the public key.
	PublicKey() *PublicKey

	// Sign signs msg for the given network.
	Sign(msg hasher.Hashable, network types.NetworkID) (*Signature, error)
}

// BasicSigner wraps a PrivateKey to implement Signer.
// Thread-safe: signing operations are stateless.
type BasicSigner struct {
	privateKey *PrivateKey
	publicKey  *PublicKey
	schnorr    *Schnorr
}

// NewSigner creates a Signer from a PrivateKey. A nil schnorr selects the
// default hasher.
func NewSigner(privateKey *PrivateKey, schnorr *Schnorr) *BasicSigner {
	if schnorr == nil {
		schnorr = defaultSchnorr
	}
	return &BasicSigner{
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
		schnorr:    schnorr,
	}
}

// Sign signs msg.
func (s *BasicSigner) Sign(msg hasher.Hashable, network types.NetworkID) (*Signature, error) {
	return s.schnorr.Sign(msg, s.privateKey, network)
}

// PublicKey returns the signer's public key.
func (s *BasicSigner) PublicKey() *PublicKey {
	return s.publicKey
}
