package crypto

import (
	"fmt"

	"github.com/blockberries/mina-signer-go/curve"
	"github.com/blockberries/mina-signer-go/field"
	"github.com/blockberries/mina-signer-go/hasher"
	"github.com/blockberries/mina-signer-go/types"
)

// Schnorr signs and verifies random-oracle inputs over Pallas.
// Thread-safe: it holds only a Hasher, which is itself safe for concurrent use.
type Schnorr struct {
	h *hasher.Hasher
}

// NewSchnorr returns a Schnorr instance over h. A nil h selects hasher.Default.
func NewSchnorr(h *hasher.Hasher) *Schnorr {
	if h == nil {
		h = hasher.Default()
	}
	return &Schnorr{h: h}
}

var defaultSchnorr = NewSchnorr(nil)

// Sign signs msg under network with the default hasher.
func Sign(msg hasher.Hashable, key *PrivateKey, network types.NetworkID) (*Signature, error) {
	return defaultSchnorr.Sign(msg, key, network)
}

// Verify checks sig over msg under network with the default hasher.
func Verify(msg hasher.Hashable, sig *Signature, pub *PublicKey, network types.NetworkID) bool {
	return defaultSchnorr.Verify(msg, sig, pub, network)
}

// challenge computes e = H(input.fields ‖ px ‖ py ‖ rx ‖ input.bits) under the
// network's signature domain. The Fp output is below p < q, so it is already a
// valid scalar.
func (s *Schnorr) challenge(input *hasher.ROInput, pub curve.Point, rx field.Element, network types.NetworkID) (field.Element, error) {
	in := input.Clone().AddField(pub.X, pub.Y, rx)
	return s.h.Hash(network.SignatureDomain(), in)
}

// Sign produces (rx, s) with
//
//	k = nonce(msg, key, network), R = k·G, k = -k if R.y is odd,
//	e = challenge(msg, pub, R.x), s = k + e·d mod q.
func (s *Schnorr) Sign(msg hasher.Hashable, key *PrivateKey, network types.NetworkID) (*Signature, error) {
	if key == nil || key.d.IsZero() {
		return nil, fmt.Errorf("%w: missing private key", types.ErrInvalidKey)
	}
	if !network.IsValid() {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownNetwork, network)
	}
	fq := field.Fq
	input := msg.ToROInput()
	pub := key.PublicKey()

	k := deriveNonce(input, pub, key.d, network)
	r := curve.ScalarBaseMul(k)
	if field.IsOdd(r.Y) {
		k = fq.Neg(k)
	}

	e, err := s.challenge(input, pub.Point(), r.X, network)
	if err != nil {
		return nil, err
	}
	sc := fq.Add(k, fq.Mul(e, key.d))
	return &Signature{R: r.X, S: sc}, nil
}

// Verify recomputes R' = s·G - e·P and accepts iff R' is not the identity,
// R'.x == rx and R'.y is even. Malformed values simply fail verification.
func (s *Schnorr) Verify(msg hasher.Hashable, sig *Signature, pub *PublicKey, network types.NetworkID) bool {
	if sig == nil || pub == nil || !network.IsValid() {
		return false
	}
	if !field.Fp.IsCanonical(sig.R) || !field.Fq.IsCanonical(sig.S) {
		return false
	}
	p := pub.Point()
	if p.IsIdentity() || !p.IsOnCurve() {
		return false
	}

	e, err := s.challenge(msg.ToROInput(), p, sig.R, network)
	if err != nil {
		return false
	}
	sg := curve.ScalarBaseMul(sig.S)
	ep := curve.ScalarMul(field.Fq.Neg(e), p)
	r := curve.Add(sg, ep)
	if r.IsIdentity() {
		return false
	}
	return r.X == sig.R && !field.IsOdd(r.Y)
}
