package types

import "errors"

var (
	// ErrInvalidKey indicates a zero or out-of-range scalar, or a point that is
	// not on the curve.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidAddress indicates a base58check address with a bad checksum,
	// version byte or length.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrMalformedInput indicates unparsable JSON, a missing required field,
	// a bad encoding, or a Rosetta envelope with zero or several variants.
	ErrMalformedInput = errors.New("malformed input")

	// ErrRange indicates a numeric field outside its unsigned 64-bit or 32-bit range.
	ErrRange = errors.New("value out of range")

	// ErrNotImplemented indicates a recognised but unsupported transaction kind.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnknownNetwork indicates a network name other than mainnet or testnet.
	ErrUnknownNetwork = errors.New("unknown network")
)
