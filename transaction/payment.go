package transaction

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/blockberries/mina-signer-go/crypto"
	"github.com/blockberries/mina-signer-go/hasher"
	"github.com/blockberries/mina-signer-go/types"
)

// Payment transfers Amount of TokenID from From to To. From also pays Fee.
type Payment struct {
	From       crypto.CompressedPublicKey
	To         crypto.CompressedPublicKey
	Fee        uint64
	Amount     uint64
	Nonce      uint32
	ValidUntil uint32
	Memo       Memo
	TokenID    uint64
}

var _ hasher.Hashable = (*Payment)(nil)

// ParsePayment builds a payment from host values. Numerics go through
// types.ParseU64/ParseU32; a nil or empty validUntil means DefaultValidUntil.
func ParsePayment(from, to string, fee, amount, nonce, validUntil interface{}, memo *string) (*Payment, error) {
	src, err := parseAddress("from", from)
	if err != nil {
		return nil, err
	}
	dst, err := parseAddress("to", to)
	if err != nil {
		return nil, err
	}
	p := &Payment{From: src, To: dst, TokenID: DefaultTokenID}
	if p.Fee, err = types.ParseU64(fee); err != nil {
		return nil, fmt.Errorf("fee: %w", err)
	}
	if p.Amount, err = types.ParseU64(amount); err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	if p.Nonce, err = types.ParseU32(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	if p.ValidUntil, err = parseValidUntil(validUntil); err != nil {
		return nil, err
	}
	if p.Memo, err = NewOptionalMemo(memo); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Payment) command() *userCommand {
	return &userCommand{
		tag:        TagPayment,
		source:     p.From,
		receiver:   p.To,
		fee:        p.Fee,
		amount:     p.Amount,
		tokenID:    p.TokenID,
		nonce:      p.Nonce,
		validUntil: p.ValidUntil,
		memo:       p.Memo,
	}
}

// ToROInput implements hasher.Hashable.
func (p *Payment) ToROInput() *hasher.ROInput {
	return p.command().roInput()
}

type paymentJSON struct {
	To         string          `json:"to"`
	From       string          `json:"from"`
	Fee        *types.U64      `json:"fee"`
	Amount     *types.U64      `json:"amount"`
	Nonce      *types.U32      `json:"nonce"`
	Memo       *string         `json:"memo"`
	ValidUntil json.RawMessage `json:"validUntil,omitempty"`
}

// MarshalJSON encodes fee and amount as decimal strings, nonce and validUntil
// as numbers, and an empty memo as null.
func (p Payment) MarshalJSON() ([]byte, error) {
	fee, amount, nonce := types.U64(p.Fee), types.U64(p.Amount), types.U32(p.Nonce)
	vu, _ := types.U32(p.ValidUntil).MarshalJSON()
	return json.Marshal(paymentJSON{
		To:         p.To.Address(),
		From:       p.From.Address(),
		Fee:        &fee,
		Amount:     &amount,
		Nonce:      &nonce,
		Memo:       p.Memo.Text(),
		ValidUntil: vu,
	})
}

// UnmarshalJSON requires to, from, fee, amount and nonce.
func (p *Payment) UnmarshalJSON(data []byte) error {
	var j paymentJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return wrapJSONError("payment", err)
	}
	if j.Fee == nil || j.Amount == nil || j.Nonce == nil {
		return fmt.Errorf("%w: payment requires fee, amount and nonce", types.ErrMalformedInput)
	}
	src, err := parseAddress("from", j.From)
	if err != nil {
		return err
	}
	dst, err := parseAddress("to", j.To)
	if err != nil {
		return err
	}
	vu, err := validUntilFromJSON(j.ValidUntil)
	if err != nil {
		return err
	}
	memo, err := NewOptionalMemo(j.Memo)
	if err != nil {
		return err
	}
	*p = Payment{
		From:       src,
		To:         dst,
		Fee:        uint64(*j.Fee),
		Amount:     uint64(*j.Amount),
		Nonce:      uint32(*j.Nonce),
		ValidUntil: vu,
		Memo:       memo,
		TokenID:    DefaultTokenID,
	}
	return nil
}

// ============================================================================
// Shared parsing helpers
// ============================================================================

func parseAddress(name, address string) (crypto.CompressedPublicKey, error) {
	if address == "" {
		return crypto.CompressedPublicKey{}, fmt.Errorf("%w: %s is required", types.ErrMalformedInput, name)
	}
	pk, err := crypto.ParsePublicKey(address)
	if err != nil {
		return crypto.CompressedPublicKey{}, fmt.Errorf("%s: %w", name, err)
	}
	return pk.Compress(), nil
}

func parseValidUntil(v interface{}) (uint32, error) {
	switch x := v.(type) {
	case nil:
		return DefaultValidUntil, nil
	case string:
		if x == "" {
			return DefaultValidUntil, nil
		}
	case *string:
		if x == nil || *x == "" {
			return DefaultValidUntil, nil
		}
		v = *x
	}
	vu, err := types.ParseU32(v)
	if err != nil {
		return 0, fmt.Errorf("validUntil: %w", err)
	}
	return vu, nil
}

func validUntilFromJSON(raw json.RawMessage) (uint32, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) {
		return DefaultValidUntil, nil
	}
	var vu types.U32
	if err := vu.UnmarshalJSON(raw); err != nil {
		return 0, fmt.Errorf("validUntil: %w", err)
	}
	return uint32(vu), nil
}

// wrapJSONError keeps typed errors from field decoders and maps syntax
// errors to ErrMalformedInput.
func wrapJSONError(what string, err error) error {
	if isTyped(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", types.ErrMalformedInput, what, err)
}
