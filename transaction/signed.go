package transaction

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blockberries/mina-signer-go/crypto"
	"github.com/blockberries/mina-signer-go/field"
	"github.com/blockberries/mina-signer-go/hasher"
	"github.com/blockberries/mina-signer-go/types"
)

// SignedPayment is a payment with its signature.
type SignedPayment struct {
	Signature *crypto.Signature `json:"signature"`
	Data      Payment           `json:"data"`
}

// UnmarshalJSON requires both members.
func (s *SignedPayment) UnmarshalJSON(data []byte) error {
	var raw struct {
		Signature *crypto.Signature `json:"signature"`
		Data      json.RawMessage   `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return wrapJSONError("signed payment", err)
	}
	if raw.Signature == nil || len(raw.Data) == 0 {
		return fmt.Errorf("%w: signed payment requires signature and data", types.ErrMalformedInput)
	}
	var p Payment
	if err := p.UnmarshalJSON(raw.Data); err != nil {
		return err
	}
	*s = SignedPayment{Signature: raw.Signature, Data: p}
	return nil
}

// SignedStakeDelegation is a stake delegation with its signature.
type SignedStakeDelegation struct {
	Signature *crypto.Signature `json:"signature"`
	Data      StakeDelegation   `json:"data"`
}

// UnmarshalJSON requires both members.
func (s *SignedStakeDelegation) UnmarshalJSON(data []byte) error {
	var raw struct {
		Signature *crypto.Signature `json:"signature"`
		Data      json.RawMessage   `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return wrapJSONError("signed stake delegation", err)
	}
	if raw.Signature == nil || len(raw.Data) == 0 {
		return fmt.Errorf("%w: signed stake delegation requires signature and data", types.ErrMalformedInput)
	}
	var d StakeDelegation
	if err := d.UnmarshalJSON(raw.Data); err != nil {
		return err
	}
	*s = SignedStakeDelegation{Signature: raw.Signature, Data: d}
	return nil
}

// ============================================================================
// Transaction ids
// ============================================================================

// These ids are a Poseidon digest of the unsigned payload under the local
// MinaTxPayment* and MinaTxStake* domains. They identify commands in the
// journal and are not the base58 transaction hash a Mina node reports.

// HashPayment returns the transaction id of p on network as 64 lowercase hex
// characters. The signature does not enter the id. A nil hasher uses
// hasher.Default().
func HashPayment(h *hasher.Hasher, p *Payment, network types.NetworkID) (string, error) {
	if !network.IsValid() {
		return "", fmt.Errorf("%w: %s", types.ErrUnknownNetwork, network)
	}
	return hashCommand(h, network.PaymentHashDomain(), p)
}

// HashStakeDelegation is HashPayment for delegations.
func HashStakeDelegation(h *hasher.Hasher, d *StakeDelegation, network types.NetworkID) (string, error) {
	if !network.IsValid() {
		return "", fmt.Errorf("%w: %s", types.ErrUnknownNetwork, network)
	}
	return hashCommand(h, network.StakeDelegationHashDomain(), d)
}

func hashCommand(h *hasher.Hasher, domain string, cmd hasher.Hashable) (string, error) {
	if h == nil {
		h = hasher.Default()
	}
	x, err := h.Hash(domain, cmd.ToROInput())
	if err != nil {
		return "", err
	}
	be := field.BytesBE(x)
	return hex.EncodeToString(be[:]), nil
}

func isTyped(err error) bool {
	for _, target := range []error{
		types.ErrInvalidKey,
		types.ErrInvalidAddress,
		types.ErrMalformedInput,
		types.ErrRange,
		types.ErrNotImplemented,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
