package crypto

import "github.com/blockberries/mina-signer-go/types"

// Error kinds returned by this package. They alias the shared sentinels so
// callers can match with errors.Is against either name.
var (
	// ErrInvalidKey is returned for zero or out-of-range scalars and points
	// that are not on the curve.
	ErrInvalidKey = types.ErrInvalidKey

	// ErrInvalidAddress is returned for base58check strings with a bad
	// checksum, version byte or length.
	ErrInvalidAddress = types.ErrInvalidAddress
)
