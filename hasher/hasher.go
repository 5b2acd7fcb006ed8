package hasher

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blockberries/mina-signer-go/field"
	"github.com/blockberries/mina-signer-go/poseidon"
	"github.com/blockberries/mina-signer-go/types"
)

// MaxDomainLength is the longest domain string that fits one field element.
const MaxDomainLength = 20

// DomainField encodes a domain string: right-padded with '*' to 20 bytes and
// read as a little-endian integer.
func DomainField(domain string) (field.Element, error) {
	if len(domain) > MaxDomainLength {
		return field.Element{}, fmt.Errorf("%w: domain %q longer than %d bytes", types.ErrMalformedInput, domain, MaxDomainLength)
	}
	padded := domain + strings.Repeat("*", MaxDomainLength-len(domain))
	var x field.Element
	for i := MaxDomainLength - 1; i >= 0; i-- {
		x.Lsh(&x, 8)
		x[0] |= uint64(padded[i])
	}
	return x, nil
}

// Hasher hashes random-oracle inputs under domain separation. The initial
// sponge for each domain is computed once and forked on every call. A Hasher
// is safe for concurrent use.
type Hasher struct {
	params *poseidon.Params

	mu     sync.RWMutex
	states map[string]poseidon.Sponge
}

// New returns a Hasher over params. A nil params selects the legacy set.
func New(params *poseidon.Params) *Hasher {
	if params == nil {
		params = poseidon.Legacy()
	}
	return &Hasher{params: params, states: make(map[string]poseidon.Sponge)}
}

var defaultHasher = func() *Hasher {
	h := New(nil)
	for _, net := range []types.NetworkID{types.Mainnet, types.Testnet} {
		for _, d := range []string{net.SignatureDomain(), net.PaymentHashDomain(), net.StakeDelegationHashDomain()} {
			if _, err := h.initial(d); err != nil {
				panic(err)
			}
		}
	}
	return h
}()

// Default returns the shared legacy Hasher with every network domain warmed.
func Default() *Hasher {
	return defaultHasher
}

// Params returns the permutation constants in use.
func (h *Hasher) Params() *poseidon.Params {
	return h.params
}

// initial returns the forked sponge for domain. The empty domain is a raw
// sponge with no prefix.
func (h *Hasher) initial(domain string) (poseidon.Sponge, error) {
	h.mu.RLock()
	s, ok := h.states[domain]
	h.mu.RUnlock()
	if ok {
		return s, nil
	}

	s = poseidon.NewSponge(h.params)
	if domain != "" {
		d, err := DomainField(domain)
		if err != nil {
			return poseidon.Sponge{}, err
		}
		s.Absorb(d)
		s.Squeeze()
	}

	h.mu.Lock()
	h.states[domain] = s
	h.mu.Unlock()
	return s, nil
}

// HashFields absorbs xs after the domain prefix and squeezes one element.
func (h *Hasher) HashFields(domain string, xs ...field.Element) (field.Element, error) {
	s, err := h.initial(domain)
	if err != nil {
		return field.Element{}, err
	}
	s.Absorb(xs...)
	return s.Squeeze(), nil
}

// Hash hashes the packed fields of in under domain.
func (h *Hasher) Hash(domain string, in *ROInput) (field.Element, error) {
	return h.HashFields(domain, in.ToFields()...)
}
