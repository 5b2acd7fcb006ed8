package transaction

import (
	"encoding/json"
	"fmt"

	"github.com/blockberries/mina-signer-go/crypto"
	"github.com/blockberries/mina-signer-go/hasher"
	"github.com/blockberries/mina-signer-go/types"
)

// StakeDelegation moves the stake of From (the delegator) to To (the new
// delegate).
type StakeDelegation struct {
	From       crypto.CompressedPublicKey
	To         crypto.CompressedPublicKey
	Fee        uint64
	Nonce      uint32
	ValidUntil uint32
	Memo       Memo
}

var _ hasher.Hashable = (*StakeDelegation)(nil)

// ParseStakeDelegation is the delegation counterpart of ParsePayment.
func ParseStakeDelegation(from, to string, fee, nonce, validUntil interface{}, memo *string) (*StakeDelegation, error) {
	src, err := parseAddress("from", from)
	if err != nil {
		return nil, err
	}
	dst, err := parseAddress("to", to)
	if err != nil {
		return nil, err
	}
	d := &StakeDelegation{From: src, To: dst}
	if d.Fee, err = types.ParseU64(fee); err != nil {
		return nil, fmt.Errorf("fee: %w", err)
	}
	if d.Nonce, err = types.ParseU32(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	if d.ValidUntil, err = parseValidUntil(validUntil); err != nil {
		return nil, err
	}
	if d.Memo, err = NewOptionalMemo(memo); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *StakeDelegation) command() *userCommand {
	return &userCommand{
		tag:        TagStakeDelegation,
		source:     d.From,
		receiver:   d.To,
		fee:        d.Fee,
		tokenID:    DefaultTokenID,
		nonce:      d.Nonce,
		validUntil: d.ValidUntil,
		memo:       d.Memo,
	}
}

// ToROInput implements hasher.Hashable.
func (d *StakeDelegation) ToROInput() *hasher.ROInput {
	return d.command().roInput()
}

type stakeDelegationJSON struct {
	To         string          `json:"to"`
	From       string          `json:"from"`
	Fee        *types.U64      `json:"fee"`
	Nonce      *types.U32      `json:"nonce"`
	Memo       *string         `json:"memo"`
	ValidUntil json.RawMessage `json:"validUntil,omitempty"`
}

// MarshalJSON mirrors Payment.MarshalJSON without the amount.
func (d StakeDelegation) MarshalJSON() ([]byte, error) {
	fee, nonce := types.U64(d.Fee), types.U32(d.Nonce)
	vu, _ := types.U32(d.ValidUntil).MarshalJSON()
	return json.Marshal(stakeDelegationJSON{
		To:         d.To.Address(),
		From:       d.From.Address(),
		Fee:        &fee,
		Nonce:      &nonce,
		Memo:       d.Memo.Text(),
		ValidUntil: vu,
	})
}

// UnmarshalJSON requires to, from, fee and nonce.
func (d *StakeDelegation) UnmarshalJSON(data []byte) error {
	var j stakeDelegationJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return wrapJSONError("stake delegation", err)
	}
	if j.Fee == nil || j.Nonce == nil {
		return fmt.Errorf("%w: stake delegation requires fee and nonce", types.ErrMalformedInput)
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
	*d = StakeDelegation{
		From:       src,
		To:         dst,
		Fee:        uint64(*j.Fee),
		Nonce:      uint32(*j.Nonce),
		ValidUntil: vu,
		Memo:       memo,
	}
	return nil
}
