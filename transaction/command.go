package transaction

import (
	"math"

	"github.com/blockberries/mina-signer-go/crypto"
	"github.com/blockberries/mina-signer-go/hasher"
)

const (
	// DefaultValidUntil is the slot bound used when none is given.
	DefaultValidUntil uint32 = math.MaxUint32

	// DefaultTokenID is the MINA token.
	DefaultTokenID uint64 = 1

	// feeToken is fixed for legacy commands.
	feeToken uint64 = 1
)

// Tag identifies the body of a user command.
type Tag uint8

const (
	TagPayment         Tag = 0
	TagStakeDelegation Tag = 1
)

// bits returns the three tag bits, most significant first.
func (t Tag) bits() [3]bool {
	return [3]bool{t&4 != 0, t&2 != 0, t&1 != 0}
}

// String returns the body kind name.
func (t Tag) String() string {
	switch t {
	case TagPayment:
		return "payment"
	case TagStakeDelegation:
		return "stake_delegation"
	default:
		return "unknown"
	}
}

// userCommand is the legacy signed-command payload shared by payments and
// delegations.
type userCommand struct {
	tag        Tag
	source     crypto.CompressedPublicKey
	receiver   crypto.CompressedPublicKey
	fee        uint64
	amount     uint64
	tokenID    uint64
	nonce      uint32
	validUntil uint32
	memo       Memo
}

// roInput lays out the command as the legacy random-oracle input. The fee
// payer is the source; both appear as compressed x in the field part and
// their parities in the bit part.
func (c *userCommand) roInput() *hasher.ROInput {
	in := hasher.NewROInput()
	in.AddField(c.source.X, c.source.X, c.receiver.X)

	// common
	in.AddUint64(c.fee)
	in.AddUint64(feeToken)
	in.AddBool(c.source.IsOdd)
	in.AddUint32(c.nonce)
	in.AddUint32(c.validUntil)
	in.AddBytes(c.memo[:])

	// body
	tag := c.tag.bits()
	in.AddBool(tag[:]...)
	in.AddBool(c.source.IsOdd, c.receiver.IsOdd)
	in.AddUint64(c.tokenID)
	in.AddUint64(c.amount)
	in.AddBool(false) // token_locked
	return in
}
