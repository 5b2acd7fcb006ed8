// Package crypto provides Mina keys and Schnorr signatures over Pallas.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/blockberries/mina-signer-go/curve"
	"github.com/blockberries/mina-signer-go/field"
	"github.com/blockberries/mina-signer-go/types"
)

// Zeroize overwrites a byte slice with zeros.
// Used to clear decrypted key material from memory.
//
// subtle.XORBytes(b, b, b) is not eliminated as a dead store, and
// runtime.KeepAlive keeps b live until after the write.
func Zeroize(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.XORBytes(b, b, b)
	runtime.KeepAlive(b)
}

// ============================================================================
// Private keys
// ============================================================================

// PrivateKey is a Pallas scalar in [1, q-1].
type PrivateKey struct {
	d field.Element
}

// NewPrivateKey wraps a scalar, rejecting zero and values not below q.
func NewPrivateKey(d field.Element) (*PrivateKey, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: private key is zero", types.ErrInvalidKey)
	}
	if !field.Fq.IsCanonical(d) {
		return nil, fmt.Errorf("%w: private key is not below the group order", types.ErrInvalidKey)
	}
	return &PrivateKey{d: d}, nil
}

// GeneratePrivateKey draws a fresh key from crypto/rand.
func GeneratePrivateKey() (*PrivateKey, error) {
	return GeneratePrivateKeyFrom(rand.Reader)
}

// GeneratePrivateKeyFrom draws a key from r. An entropy failure is returned
// and never retried.
func GeneratePrivateKeyFrom(r io.Reader) (*PrivateKey, error) {
	for {
		d, err := field.Fq.Random(r)
		if err != nil {
			return nil, fmt.Errorf("generate private key: %w", err)
		}
		if !d.IsZero() {
			return &PrivateKey{d: d}, nil
		}
	}
}

// ParsePrivateKey accepts the base58check form (EK...) or 64 hex characters
// holding the big-endian scalar.
func ParsePrivateKey(s string) (*PrivateKey, error) {
	s = strings.TrimSpace(s)
	if len(s) == 64 && isHex(s) {
		return PrivateKeyFromHex(s)
	}
	return PrivateKeyFromBase58(s)
}

// PrivateKeyFromBase58 decodes the EK... form.
func PrivateKeyFromBase58(s string) (*PrivateKey, error) {
	payload, err := DecodeBase58Check(s, VersionPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	if len(payload) != privateKeyPayloadLen || payload[0] != versionPrivateScalar {
		return nil, fmt.Errorf("%w: malformed private key payload", types.ErrInvalidKey)
	}
	d, err := field.Fq.FromBytesLE(payload[1:])
	Zeroize(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return NewPrivateKey(d)
}

// PrivateKeyFromHex decodes a 64-character big-endian hex scalar.
func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("%w: private key must be 64 hex characters", types.ErrInvalidKey)
	}
	defer Zeroize(b)
	d, err := field.Fq.FromBytesBE(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return NewPrivateKey(d)
}

// Scalar returns the secret scalar.
// WARNING: Handle with care.
func (k *PrivateKey) Scalar() field.Element {
	return k.d
}

// PublicKey derives d·G.
func (k *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{point: curve.ScalarBaseMul(k.d)}
}

// Base58 returns the EK... encoding.
func (k *PrivateKey) Base58() string {
	le := field.BytesLE(k.d)
	payload := make([]byte, 0, privateKeyPayloadLen)
	payload = append(payload, versionPrivateScalar)
	payload = append(payload, le[:]...)
	s := EncodeBase58Check(VersionPrivateKey, payload)
	Zeroize(payload)
	Zeroize(le[:])
	return s
}

// Hex returns the 64-character big-endian hex encoding.
func (k *PrivateKey) Hex() string {
	be := field.BytesBE(k.d)
	defer Zeroize(be[:])
	return hex.EncodeToString(be[:])
}

// String never reveals the key.
func (k *PrivateKey) String() string {
	return "PrivateKey(redacted)"
}

// Equal compares two keys in constant time.
func (k *PrivateKey) Equal(o *PrivateKey) bool {
	if k == nil || o == nil {
		return k == o
	}
	a, b := field.BytesLE(k.d), field.BytesLE(o.d)
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// Zeroize clears the scalar. The key is unusable afterwards.
func (k *PrivateKey) Zeroize() {
	k.d = field.Element{}
	runtime.KeepAlive(k)
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// ============================================================================
// Public keys
// ============================================================================

// PublicKey is a non-identity Pallas point.
type PublicKey struct {
	point curve.Point
}

// NewPublicKey wraps p after checking it is on the curve and not the identity.
func NewPublicKey(p curve.Point) (*PublicKey, error) {
	if p.IsIdentity() || !p.IsOnCurve() {
		return nil, fmt.Errorf("%w: public key is not a valid curve point", types.ErrInvalidKey)
	}
	return &PublicKey{point: p}, nil
}

// CompressedPublicKey is the (x, parity of y) form carried in addresses and
// hashed into transactions.
type CompressedPublicKey struct {
	X     field.Element
	IsOdd bool
}

// ParsePublicKey decodes a B62... address and recovers the point. Encoding
// problems are ErrInvalidAddress; an x with no curve point is ErrInvalidKey.
func ParsePublicKey(address string) (*PublicKey, error) {
	c, err := ParseCompressedPublicKey(address)
	if err != nil {
		return nil, err
	}
	return c.Decompress()
}

// ParseCompressedPublicKey decodes a B62... address without recovering y.
func ParseCompressedPublicKey(address string) (CompressedPublicKey, error) {
	payload, err := DecodeBase58Check(address, VersionPublicKey)
	if err != nil {
		return CompressedPublicKey{}, fmt.Errorf("%w: %v", types.ErrInvalidAddress, err)
	}
	if len(payload) != publicKeyPayloadLen {
		return CompressedPublicKey{}, fmt.Errorf("%w: payload is %d bytes, want %d", types.ErrInvalidAddress, len(payload), publicKeyPayloadLen)
	}
	if payload[0] != versionNonZeroCurvePoint || payload[1] != versionCompressedPoint {
		return CompressedPublicKey{}, fmt.Errorf("%w: unexpected inner version bytes", types.ErrInvalidAddress)
	}
	if payload[34] > 1 {
		return CompressedPublicKey{}, fmt.Errorf("%w: parity byte must be 0 or 1", types.ErrInvalidAddress)
	}
	x, err := field.Fp.FromBytesLE(payload[2:34])
	if err != nil {
		return CompressedPublicKey{}, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return CompressedPublicKey{X: x, IsOdd: payload[34] == 1}, nil
}

// Decompress recovers the full point.
func (c CompressedPublicKey) Decompress() (*PublicKey, error) {
	p, err := curve.Decompress(c.X, c.IsOdd)
	if err != nil {
		return nil, err
	}
	return &PublicKey{point: p}, nil
}

// Address returns the B62... encoding.
func (c CompressedPublicKey) Address() string {
	le := field.BytesLE(c.X)
	payload := make([]byte, 0, publicKeyPayloadLen)
	payload = append(payload, versionNonZeroCurvePoint, versionCompressedPoint)
	payload = append(payload, le[:]...)
	if c.IsOdd {
		payload = append(payload, 1)
	} else {
		payload = append(payload, 0)
	}
	return EncodeBase58Check(VersionPublicKey, payload)
}

// Raw returns the uppercase hex of x in little-endian order with the top bit
// of the last byte set when y is odd.
func (c CompressedPublicKey) Raw() string {
	le := field.BytesLE(c.X)
	if c.IsOdd {
		le[31] |= 0x80
	}
	return strings.ToUpper(hex.EncodeToString(le[:]))
}

// Point returns the curve point.
func (k *PublicKey) Point() curve.Point { return k.point }

// Compress returns the (x, isOdd) form.
func (k *PublicKey) Compress() CompressedPublicKey {
	x, odd := k.point.Compress()
	return CompressedPublicKey{X: x, IsOdd: odd}
}

// Address returns the B62... encoding.
func (k *PublicKey) Address() string {
	return k.Compress().Address()
}

// String returns the address.
func (k *PublicKey) String() string {
	return k.Address()
}

// Equal reports whether both keys are the same point.
func (k *PublicKey) Equal(o *PublicKey) bool {
	if k == nil || o == nil {
		return k == o
	}
	return k.point.Equal(o.point)
}

// MarshalJSON encodes the key as its address string.
func (k *PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Address())
}

// UnmarshalJSON decodes an address string.
func (k *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: public key must be a string: %v", types.ErrMalformedInput, err)
	}
	pk, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*k = *pk
	return nil
}

// PublicKeyToRaw converts an address to its raw hex form.
func PublicKeyToRaw(address string) (string, error) {
	pk, err := ParsePublicKey(address)
	if err != nil {
		return "", err
	}
	return pk.Compress().Raw(), nil
}

// ============================================================================
// Keypairs
// ============================================================================

// Keypair is a private key and its public key.
type Keypair struct {
	Private *PrivateKey
	Public  *PublicKey
}

// GenerateKeypair draws a fresh keypair from crypto/rand.
func GenerateKeypair() (*Keypair, error) {
	sk, err := GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return NewKeypair(sk), nil
}

// NewKeypair derives the public half of sk.
func NewKeypair(sk *PrivateKey) *Keypair {
	return &Keypair{Private: sk, Public: sk.PublicKey()}
}

// Verify reports whether Public equals Private·G.
func (kp *Keypair) Verify() bool {
	if kp == nil || kp.Private == nil || kp.Public == nil {
		return false
	}
	return kp.Private.PublicKey().Equal(kp.Public)
}

// keypairJSON is the external {privateKey, publicKey} form.
type keypairJSON struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
}

// MarshalJSON writes {"privateKey": "EK...", "publicKey": "B62..."}.
func (kp *Keypair) MarshalJSON() ([]byte, error) {
	return json.Marshal(keypairJSON{PrivateKey: kp.Private.Base58(), PublicKey: kp.Public.Address()})
}

// UnmarshalJSON reads the external form. The pair is not checked for
// consistency; call Verify.
func (kp *Keypair) UnmarshalJSON(data []byte) error {
	var raw keypairJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", types.ErrMalformedInput, err)
	}
	sk, err := ParsePrivateKey(raw.PrivateKey)
	if err != nil {
		return err
	}
	pk, err := ParsePublicKey(raw.PublicKey)
	if err != nil {
		return err
	}
	kp.Private, kp.Public = sk, pk
	return nil
}
