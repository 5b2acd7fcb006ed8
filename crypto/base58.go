package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// Base58check version bytes.
const (
	VersionPublicKey  byte = 0xcb
	VersionPrivateKey byte = 0x5a
	VersionSignature  byte = 0x9a

	// inner versions carried inside the payload
	versionNonZeroCurvePoint byte = 0x01
	versionCompressedPoint   byte = 0x01
	versionPrivateScalar     byte = 0x01
	versionSignaturePair     byte = 0x01
)

// Payload sizes after the version byte.
const (
	publicKeyPayloadLen  = 2 + 32 + 1  // inner versions, x LE, parity
	privateKeyPayloadLen = 1 + 32      // inner version, scalar LE
	signaturePayloadLen  = 1 + 32 + 32 // inner version, rx LE, s LE
	checksumLen          = 4
)

func checksum(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}

// EncodeBase58Check returns base58(version ‖ payload ‖ checksum), where the
// checksum is the first four bytes of a double SHA-256.
func EncodeBase58Check(version byte, payload []byte) string {
	buf := make([]byte, 0, 1+len(payload)+checksumLen)
	buf = append(buf, version)
	buf = append(buf, payload...)
	buf = append(buf, checksum(buf)...)
	return base58.Encode(buf)
}

// DecodeBase58Check decodes s, checks the checksum and version and returns the
// payload.
func DecodeBase58Check(s string, version byte) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("base58 decode: %w", err)
	}
	if len(raw) < 1+checksumLen {
		return nil, fmt.Errorf("base58check: %d bytes is too short", len(raw))
	}
	body, sum := raw[:len(raw)-checksumLen], raw[len(raw)-checksumLen:]
	want := checksum(body)
	for i := range sum {
		if sum[i] != want[i] {
			return nil, fmt.Errorf("base58check: checksum mismatch")
		}
	}
	if body[0] != version {
		return nil, fmt.Errorf("base58check: version byte 0x%02x, want 0x%02x", body[0], version)
	}
	return body[1:], nil
}
