// Package types holds the vocabulary shared by every layer of the signer:
// error kinds, network identifiers and exact unsigned integer parsing.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NetworkID selects the domain-separation strings used for hashing and signing.
// A signature produced for one network never verifies under the other.
type NetworkID uint8

const (
	// Testnet is the development/test network.
	Testnet NetworkID = 0

	// Mainnet is the production network.
	Mainnet NetworkID = 1
)

// ParseNetworkID parses "mainnet" or "testnet" (case-insensitive, surrounding
// whitespace ignored). Every other name, "devnet" included, is rejected with
// ErrUnknownNetwork. mina-signer instead treats any name other than mainnet as
// testnet, so callers mapping devnet onto testnet domains must say so.
func ParseNetworkID(s string) (NetworkID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet":
		return Mainnet, nil
	case "testnet":
		return Testnet, nil
	case "":
		return 0, fmt.Errorf("%w: network field should not be empty, expect 'mainnet' or 'testnet'", ErrUnknownNetwork)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownNetwork, s)
	}
}

// String returns the configuration name of the network.
func (n NetworkID) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	default:
		return fmt.Sprintf("network(%d)", uint8(n))
	}
}

// IsValid reports whether n is Mainnet or Testnet.
func (n NetworkID) IsValid() bool {
	return n == Mainnet || n == Testnet
}

// Byte is the single-byte form mixed into nonce derivation.
func (n NetworkID) Byte() byte {
	return byte(n)
}

// SignatureDomain returns the domain string for signature challenges.
func (n NetworkID) SignatureDomain() string {
	if n == Mainnet {
		return "MinaSignatureMainnet"
	}
	return "CodaSignature"
}

// PaymentHashDomain returns the domain string for payment transaction ids.
func (n NetworkID) PaymentHashDomain() string {
	if n == Mainnet {
		return "MinaTxPaymentMainnet"
	}
	return "MinaTxPaymentTestnet"
}

// StakeDelegationHashDomain returns the domain string for stake delegation
// transaction ids.
func (n NetworkID) StakeDelegationHashDomain() string {
	if n == Mainnet {
		return "MinaTxStakeMainnet"
	}
	return "MinaTxStakeTestnet"
}

// MarshalJSON implements json.Marshaler.
func (n NetworkID) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NetworkID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: network must be a string: %v", ErrMalformedInput, err)
	}
	id, err := ParseNetworkID(s)
	if err != nil {
		return err
	}
	*n = id
	return nil
}

// MarshalYAML writes NetworkID as its configuration name.
func (n NetworkID) MarshalYAML() (interface{}, error) {
	return n.String(), nil
}

// UnmarshalYAML lets NetworkID appear as a plain string in YAML configuration.
func (n *NetworkID) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	id, err := ParseNetworkID(s)
	if err != nil {
		return err
	}
	*n = id
	return nil
}
