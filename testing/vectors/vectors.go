// Package vectors provides cross-implementation test vectors for the Mina
// legacy signer.
//
// Each vector pins a key, a payload and a network to the public key, the
// transaction id, the signature and the signed-command JSON any conforming
// implementation must produce. Signatures are deterministic, so a second
// implementation must reproduce them exactly; a verifier need only accept them.
//
// SECURITY: Test vectors use well-known test keys. NEVER use these keys in production.
package vectors

import (
	"encoding/json"
	"time"
)

// Vector categories.
const (
	CategoryKey             = "key"
	CategoryPayment         = "payment"
	CategoryStakeDelegation = "stake_delegation"
	CategoryMessage         = "message"
	CategoryEdgeCase        = "edge_case"
)

// Input kinds.
const (
	KindPayment         = "payment"
	KindStakeDelegation = "stake_delegation"
	KindMessage         = "message"
)

// TestVectorFile is the root structure of the test vector JSON file.
type TestVectorFile struct {
	// Version of the test vector format.
	Version string `json:"version"`

	// Generated timestamp in RFC3339 format.
	Generated time.Time `json:"generated"`

	// Description of this test vector file.
	Description string `json:"description"`

	// Vectors is the list of test vectors.
	Vectors []TestVector `json:"vectors"`
}

// TestVector is a single cross-implementation case.
type TestVector struct {
	// Name is a unique identifier for this test vector.
	Name string `json:"name"`

	// Description explains what this test vector tests.
	Description string `json:"description"`

	// Category groups related test vectors.
	Category string `json:"category"`

	Input    TestVectorInput    `json:"input"`
	Expected TestVectorExpected `json:"expected"`
}

// TestVectorInput holds the signing inputs. Numerics are decimal strings.
type TestVectorInput struct {
	// Kind is payment, stake_delegation or message.
	Kind string `json:"kind"`

	// Network is mainnet or testnet.
	Network string `json:"network"`

	// PrivateKey is the base58check EK... form.
	// SECURITY: These are TEST KEYS ONLY. Never use in production.
	PrivateKey string `json:"private_key"`

	From       string  `json:"from,omitempty"`
	To         string  `json:"to,omitempty"`
	Fee        string  `json:"fee,omitempty"`
	Amount     string  `json:"amount,omitempty"`
	Nonce      string  `json:"nonce,omitempty"`
	ValidUntil string  `json:"valid_until,omitempty"`
	Memo       *string `json:"memo"`

	// Message is the signed string for message vectors.
	Message string `json:"message,omitempty"`
}

// TestVectorExpected holds the outputs.
type TestVectorExpected struct {
	// PublicKey is the B62... address of PrivateKey.
	PublicKey string `json:"public_key"`

	// RawPublicKey is the raw hex form of PublicKey.
	RawPublicKey string `json:"raw_public_key"`

	// TransactionID is the 64-hex-char id; empty for messages.
	TransactionID string `json:"transaction_id,omitempty"`

	// SignatureHex is rx ‖ s as 128 hex characters.
	SignatureHex string `json:"signature_hex"`

	// SignatureField and SignatureScalar are the decimal JSON form.
	SignatureField  string `json:"signature_field"`
	SignatureScalar string `json:"signature_scalar"`

	// SignatureBase58 is the base58check form; empty for messages.
	SignatureBase58 string `json:"signature_base58,omitempty"`

	// SignedCommand is the node signed-command JSON; empty for messages.
	SignedCommand json.RawMessage `json:"signed_command,omitempty"`
}
