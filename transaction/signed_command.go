package transaction

import (
	"strconv"
	"strings"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/mina-signer-go/crypto"
	"github.com/blockberries/mina-signer-go/field"
	"github.com/blockberries/mina-signer-go/types"
)

// nanominaPerMina is the fee denomination of signed-command JSON.
const nanominaPerMina = 1_000_000_000

// placeholderSignature stands in for the signature of an unsigned command.
var placeholderSignature = &crypto.Signature{R: field.Fp.One(), S: field.Fq.One()}

// FormatMina renders a nanomina amount as decimal MINA with trailing
// fractional zeros removed: 200100000 is "0.2001", 1000000000 is "1".
func FormatMina(nanomina uint64) string {
	whole := strconv.FormatUint(nanomina/nanominaPerMina, 10)
	frac := nanomina % nanominaPerMina
	if frac == 0 {
		return whole
	}
	digits := strconv.FormatUint(frac, 10)
	digits = strings.Repeat("0", 9-len(digits)) + digits
	return whole + "." + strings.TrimRight(digits, "0")
}

func commonJSON(c *userCommand) *types.ObjectWriter {
	return types.NewObjectWriter().
		String("fee", FormatMina(c.fee)).
		Uint("fee_token", feeToken).
		String("fee_payer_pk", c.source.Address()).
		Uint("nonce", uint64(c.nonce)).
		Uint("valid_until", uint64(c.validUntil)).
		String("memo", c.memo.Base58())
}

// variant encodes a constructor-tagged value as ["Tag", value].
func variant(tag string, value []byte) []byte {
	out := make([]byte, 0, len(tag)+len(value)+8)
	out = append(out, '[')
	out = append(out, cramberry.EscapeJSONString(tag)...)
	out = append(out, ',')
	out = append(out, value...)
	return append(out, ']')
}

func (c *userCommand) bodyJSON() []byte {
	switch c.tag {
	case TagStakeDelegation:
		body := types.NewObjectWriter().
			String("delegator", c.source.Address()).
			String("new_delegate", c.receiver.Address())
		return variant("Stake_delegation", variant("Set_delegate", body.Bytes()))
	default:
		body := types.NewObjectWriter().
			String("source_pk", c.source.Address()).
			String("receiver_pk", c.receiver.Address()).
			Uint("token_id", c.tokenID).
			Uint("amount", c.amount)
		return variant("Payment", body.Bytes())
	}
}

func (c *userCommand) signedCommandJSON(sig *crypto.Signature) []byte {
	if sig == nil {
		sig = placeholderSignature
	}
	payload := types.NewObjectWriter().
		Object("common", commonJSON(c)).
		Raw("body", c.bodyJSON())
	return types.NewObjectWriter().
		Object("payload", payload).
		String("signer", c.source.Address()).
		String("signature", sig.Base58()).
		Bytes()
}

// SignedCommandJSON encodes p as a node signed command. A nil signature
// writes the placeholder (1, 1).
func (p *Payment) SignedCommandJSON(sig *crypto.Signature) []byte {
	return p.command().signedCommandJSON(sig)
}

// SignedCommandJSON encodes d as a node signed command.
func (d *StakeDelegation) SignedCommandJSON(sig *crypto.Signature) []byte {
	return d.command().signedCommandJSON(sig)
}

// SignedCommandJSON encodes the signed payment as a node signed command.
func (s *SignedPayment) SignedCommandJSON() []byte {
	return s.Data.SignedCommandJSON(s.Signature)
}

// SignedCommandJSON encodes the signed delegation as a node signed command.
func (s *SignedStakeDelegation) SignedCommandJSON() []byte {
	return s.Data.SignedCommandJSON(s.Signature)
}
