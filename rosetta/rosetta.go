// Package rosetta converts signed Rosetta transaction envelopes into the
// canonical signed-command JSON. Keys, numerics and the signature encoding
// are re-validated; nothing is re-signed.
package rosetta

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blockberries/mina-signer-go/crypto"
	"github.com/blockberries/mina-signer-go/transaction"
	"github.com/blockberries/mina-signer-go/types"
)

// Kind names the populated variant of an envelope.
type Kind string

const (
	KindPayment            Kind = "payment"
	KindStakeDelegation    Kind = "stake_delegation"
	KindCreateToken        Kind = "create_token"
	KindCreateTokenAccount Kind = "create_token_account"
	KindMintTokens         Kind = "mint_tokens"
)

// envelope is the wire shape. Variants stay raw until exactly one is known to
// be populated.
type envelope struct {
	Signature          *string         `json:"signature"`
	Payment            json.RawMessage `json:"payment"`
	StakeDelegation    json.RawMessage `json:"stake_delegation"`
	CreateToken        json.RawMessage `json:"create_token"`
	CreateTokenAccount json.RawMessage `json:"create_token_account"`
	MintTokens         json.RawMessage `json:"mint_tokens"`
}

type paymentJSON struct {
	To         string          `json:"to"`
	From       string          `json:"from"`
	Fee        *types.U64      `json:"fee"`
	Token      *types.U64      `json:"token"`
	Nonce      *types.U32      `json:"nonce"`
	Memo       *string         `json:"memo"`
	Amount     *types.U64      `json:"amount"`
	ValidUntil json.RawMessage `json:"valid_until"`
}

type stakeDelegationJSON struct {
	NewDelegate string          `json:"new_delegate"`
	Delegator   string          `json:"delegator"`
	Fee         *types.U64      `json:"fee"`
	Nonce       *types.U32      `json:"nonce"`
	Memo        *string         `json:"memo"`
	ValidUntil  json.RawMessage `json:"valid_until"`
}

// SignedTransaction is a validated envelope. Exactly one of Payment and
// StakeDelegation is set.
type SignedTransaction struct {
	// Signature is the envelope's signature text, kept verbatim.
	Signature       string
	Payment         *transaction.Payment
	StakeDelegation *transaction.StakeDelegation
}

// Kind reports the populated variant.
func (tx *SignedTransaction) Kind() Kind {
	if tx.Payment != nil {
		return KindPayment
	}
	return KindStakeDelegation
}

// DecodedSignature parses the carried signature.
func (tx *SignedTransaction) DecodedSignature() (*crypto.Signature, error) {
	return crypto.SignatureFromHex(tx.Signature)
}

func populated(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// Parse validates a signed Rosetta envelope.
func Parse(data []byte) (*SignedTransaction, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, decodeError("envelope", err)
	}

	var kinds []Kind
	for _, v := range []struct {
		kind Kind
		raw  json.RawMessage
	}{
		{KindPayment, env.Payment},
		{KindStakeDelegation, env.StakeDelegation},
		{KindCreateToken, env.CreateToken},
		{KindCreateTokenAccount, env.CreateTokenAccount},
		{KindMintTokens, env.MintTokens},
	} {
		if populated(v.raw) {
			kinds = append(kinds, v.kind)
		}
	}
	switch len(kinds) {
	case 0:
		return nil, fmt.Errorf("%w: no transaction variant is populated", types.ErrMalformedInput)
	case 1:
	default:
		return nil, fmt.Errorf("%w: expected one transaction variant, found %v", types.ErrMalformedInput, kinds)
	}

	switch kinds[0] {
	case KindPayment, KindStakeDelegation:
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrNotImplemented, kinds[0])
	}

	if env.Signature == nil {
		return nil, fmt.Errorf("%w: signature is required", types.ErrMalformedInput)
	}
	if _, err := crypto.SignatureFromHex(*env.Signature); err != nil {
		return nil, err
	}

	tx := &SignedTransaction{Signature: *env.Signature}
	var err error
	if kinds[0] == KindPayment {
		tx.Payment, err = parsePayment(env.Payment)
	} else {
		tx.StakeDelegation, err = parseStakeDelegation(env.StakeDelegation)
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func parsePayment(raw json.RawMessage) (*transaction.Payment, error) {
	var j paymentJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, decodeError("payment", err)
	}
	if j.Fee == nil || j.Nonce == nil || j.Amount == nil {
		return nil, fmt.Errorf("%w: payment requires fee, nonce and amount", types.ErrMalformedInput)
	}
	validUntil, err := parseValidUntil(j.ValidUntil)
	if err != nil {
		return nil, err
	}
	p, err := transaction.ParsePayment(j.From, j.To, uint64(*j.Fee), uint64(*j.Amount), uint32(*j.Nonce), validUntil, j.Memo)
	if err != nil {
		return nil, err
	}
	if j.Token != nil {
		p.TokenID = uint64(*j.Token)
	}
	return p, nil
}

func parseStakeDelegation(raw json.RawMessage) (*transaction.StakeDelegation, error) {
	var j stakeDelegationJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, decodeError("stake_delegation", err)
	}
	if j.Fee == nil || j.Nonce == nil {
		return nil, fmt.Errorf("%w: stake_delegation requires fee and nonce", types.ErrMalformedInput)
	}
	validUntil, err := parseValidUntil(j.ValidUntil)
	if err != nil {
		return nil, err
	}
	return transaction.ParseStakeDelegation(j.Delegator, j.NewDelegate, uint64(*j.Fee), uint32(*j.Nonce), validUntil, j.Memo)
}

// parseValidUntil maps absent, null and "" to the default bound.
func parseValidUntil(raw json.RawMessage) (uint32, error) {
	raw = bytes.TrimSpace(raw)
	if !populated(raw) || bytes.Equal(raw, []byte(`""`)) {
		return transaction.DefaultValidUntil, nil
	}
	var vu types.U32
	if err := vu.UnmarshalJSON(raw); err != nil {
		return 0, fmt.Errorf("valid_until: %w", err)
	}
	return uint32(vu), nil
}

// SignedCommand renders the canonical output: the signature, then the
// populated variant and null for the other.
func (tx *SignedTransaction) SignedCommand() []byte {
	w := types.NewObjectWriter().String("signature", tx.Signature)
	if tx.Payment != nil {
		w.Object("payment", paymentObject(tx.Payment))
	} else {
		w.Null("payment")
	}
	if tx.StakeDelegation != nil {
		w.Object("stake_delegation", stakeDelegationObject(tx.StakeDelegation))
	} else {
		w.Null("stake_delegation")
	}
	return w.Bytes()
}

func paymentObject(p *transaction.Payment) *types.ObjectWriter {
	return types.NewObjectWriter().
		String("to", p.To.Address()).
		String("from", p.From.Address()).
		Uint("fee", p.Fee).
		Uint("token", p.TokenID).
		Uint("nonce", uint64(p.Nonce)).
		OptionalString("memo", p.Memo.Text()).
		Uint("amount", p.Amount).
		Uint("valid_until", uint64(p.ValidUntil))
}

func stakeDelegationObject(d *transaction.StakeDelegation) *types.ObjectWriter {
	return types.NewObjectWriter().
		String("new_delegate", d.To.Address()).
		String("delegator", d.From.Address()).
		Uint("fee", d.Fee).
		Uint("nonce", uint64(d.Nonce)).
		OptionalString("memo", d.Memo.Text()).
		Uint("valid_until", uint64(d.ValidUntil))
}

// SignedTransactionToSignedCommand parses a Rosetta envelope and returns the
// canonical signed command.
func SignedTransactionToSignedCommand(data []byte) ([]byte, error) {
	tx, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return tx.SignedCommand(), nil
}

func decodeError(what string, err error) error {
	for _, target := range []error{types.ErrRange, types.ErrMalformedInput, types.ErrInvalidAddress, types.ErrInvalidKey} {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %v", types.ErrMalformedInput, what, err)
}
