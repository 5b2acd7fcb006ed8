package crypto

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/blockberries/mina-signer-go/field"
	"github.com/blockberries/mina-signer-go/types"
)

// SignatureHexLen is the length of the hex encoding: rx and s, 32 bytes each.
const SignatureHexLen = 128

// Signature is a Schnorr signature (rx ∈ Fp, s ∈ Fq).
//
// Signatures are not malleable in rx: R is fixed to the even-y point, so the
// pair (rx, s) for a given nonce is unique.
type Signature struct {
	R field.Element
	S field.Element
}

// NewSignature checks rx < p and s < q.
func NewSignature(rx, s field.Element) (*Signature, error) {
	if !field.Fp.IsCanonical(rx) {
		return nil, fmt.Errorf("%w: signature field element is not below p", types.ErrMalformedInput)
	}
	if !field.Fq.IsCanonical(s) {
		return nil, fmt.Errorf("%w: signature scalar is not below q", types.ErrMalformedInput)
	}
	return &Signature{R: rx, S: s}, nil
}

// Hex returns rx BE32 ‖ s BE32 as 128 lowercase hex characters.
func (sig *Signature) Hex() string {
	r := field.BytesBE(sig.R)
	s := field.BytesBE(sig.S)
	out := make([]byte, 0, 64)
	out = append(out, r[:]...)
	out = append(out, s[:]...)
	return hex.EncodeToString(out)
}

// String returns the hex form.
func (sig *Signature) String() string { return sig.Hex() }

// SignatureFromHex parses the 128-character hex form.
func SignatureFromHex(s string) (*Signature, error) {
	if len(s) != SignatureHexLen {
		return nil, fmt.Errorf("%w: signature must be %d hex characters, got %d", types.ErrMalformedInput, SignatureHexLen, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: signature is not hex: %v", types.ErrMalformedInput, err)
	}
	rx, err := field.Fp.FromBytesBE(raw[:32])
	if err != nil {
		return nil, fmt.Errorf("%w: signature field element is not below p", types.ErrMalformedInput)
	}
	sc, err := field.Fq.FromBytesBE(raw[32:])
	if err != nil {
		return nil, fmt.Errorf("%w: signature scalar is not below q", types.ErrMalformedInput)
	}
	return &Signature{R: rx, S: sc}, nil
}

// SignatureJSON is the {field, scalar} decimal-string form.
type SignatureJSON struct {
	Field  string `json:"field"`
	Scalar string `json:"scalar"`
}

// JSON returns the decimal form.
func (sig *Signature) JSON() SignatureJSON {
	return SignatureJSON{Field: field.Decimal(sig.R), Scalar: field.Decimal(sig.S)}
}

// Signature parses the decimal form.
func (j SignatureJSON) Signature() (*Signature, error) {
	rx, err := field.Fp.FromDecimal(j.Field)
	if err != nil {
		return nil, fmt.Errorf("signature field: %w", err)
	}
	s, err := field.Fq.FromDecimal(j.Scalar)
	if err != nil {
		return nil, fmt.Errorf("signature scalar: %w", err)
	}
	return &Signature{R: rx, S: s}, nil
}

// MarshalJSON writes {"field": "...", "scalar": "..."}.
func (sig *Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(sig.JSON())
}

// UnmarshalJSON accepts the {field, scalar} object or the hex string.
func (sig *Signature) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", types.ErrMalformedInput, err)
		}
		parsed, err := SignatureFromHex(s)
		if err != nil {
			return err
		}
		*sig = *parsed
		return nil
	}
	var j SignatureJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("%w: %v", types.ErrMalformedInput, err)
	}
	parsed, err := j.Signature()
	if err != nil {
		return err
	}
	*sig = *parsed
	return nil
}

// Base58 returns the base58check form used by signed-command JSON
// (version 0x9a, payload 0x01 ‖ rx LE32 ‖ s LE32).
func (sig *Signature) Base58() string {
	r := field.BytesLE(sig.R)
	s := field.BytesLE(sig.S)
	payload := make([]byte, 0, signaturePayloadLen)
	payload = append(payload, versionSignaturePair)
	payload = append(payload, r[:]...)
	payload = append(payload, s[:]...)
	return EncodeBase58Check(VersionSignature, payload)
}

// SignatureFromBase58 parses the base58check form.
func SignatureFromBase58(s string) (*Signature, error) {
	payload, err := DecodeBase58Check(s, VersionSignature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedInput, err)
	}
	if len(payload) != signaturePayloadLen || payload[0] != versionSignaturePair {
		return nil, fmt.Errorf("%w: malformed signature payload", types.ErrMalformedInput)
	}
	rx, err := field.Fp.FromBytesLE(payload[1:33])
	if err != nil {
		return nil, fmt.Errorf("%w: signature field element is not below p", types.ErrMalformedInput)
	}
	sc, err := field.Fq.FromBytesLE(payload[33:])
	if err != nil {
		return nil, fmt.Errorf("%w: signature scalar is not below q", types.ErrMalformedInput)
	}
	return &Signature{R: rx, S: sc}, nil
}
