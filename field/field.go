// Package field implements arithmetic in the two Pasta prime fields used by
// Mina: Fp, the Pallas base field, and Fq, the Pallas scalar field.
//
// Elements are plain uint256.Int values kept reduced below the modulus. Every
// operation takes and returns values, so elements can be copied and compared
// with == like any other array.
package field

import (
	"fmt"
	"io"

	"github.com/holiman/uint256"

	"github.com/blockberries/mina-signer-go/types"
)

// ErrNonCanonical is returned when an encoded element is not below the modulus.
var ErrNonCanonical = fmt.Errorf("%w: non-canonical field element", types.ErrMalformedInput)

// Element is a reduced element of a prime field.
type Element = uint256.Int

// Field is a prime field of order below 2^255.
type Field struct {
	name    string
	m       uint256.Int
	mMinus2 uint256.Int
	half    uint256.Int // (m-1)/2

	// m-1 = oddPart * 2^twoAdicity
	twoAdicity  int
	oddPart     uint256.Int
	rootOfUnity uint256.Int // nonResidue^oddPart, a primitive 2^twoAdicity root
	qPlus1Half  uint256.Int // (oddPart+1)/2
}

// Pallas moduli.
const (
	pHex = "0x40000000000000000000000000000000224698fc094cf91b992d30ed00000001"
	qHex = "0x40000000000000000000000000000000224698fc0994a8dd8c46eb2100000001"
)

var (
	// Fp is the Pallas base field. Curve coordinates and Poseidon state live here.
	Fp = newField("Fp", pHex)

	// Fq is the Pallas scalar field. Private keys and signature scalars live here.
	Fq = newField("Fq", qHex)
)

func newField(name, modulusHex string) *Field {
	f := &Field{name: name}
	f.m = *uint256.MustFromHex(modulusHex)

	one := uint256.NewInt(1)
	f.mMinus2.Sub(&f.m, uint256.NewInt(2))

	var mMinus1 uint256.Int
	mMinus1.Sub(&f.m, one)
	f.half.Rsh(&mMinus1, 1)

	f.oddPart = mMinus1
	for f.oddPart[0]&1 == 0 {
		f.oddPart.Rsh(&f.oddPart, 1)
		f.twoAdicity++
	}
	f.qPlus1Half.AddUint64(&f.oddPart, 1)
	f.qPlus1Half.Rsh(&f.qPlus1Half, 1)

	var found bool
	for c := uint64(2); c < 1000; c++ {
		z := uint256.NewInt(c)
		if f.Legendre(*z) == -1 {
			f.rootOfUnity = f.Exp(*z, f.oddPart)
			found = true
			break
		}
	}
	if !found {
		panic("field: no quadratic non-residue found for " + name)
	}
	return f
}

// Name returns "Fp" or "Fq".
func (f *Field) Name() string { return f.name }

// Modulus returns the field order.
func (f *Field) Modulus() Element { return f.m }

// TwoAdicity returns the largest s such that 2^s divides m-1.
func (f *Field) TwoAdicity() int { return f.twoAdicity }

// Zero returns the additive identity.
func (f *Field) Zero() Element { return Element{} }

// One returns the multiplicative identity.
func (f *Field) One() Element { return Element{1} }

// FromUint64 returns v as a field element.
func (f *Field) FromUint64(v uint64) Element {
	return Element{v}
}

// IsCanonical reports whether x is already reduced below the modulus.
func (f *Field) IsCanonical(x Element) bool {
	return x.Lt(&f.m)
}

// Reduce maps any 256-bit integer into the field.
func (f *Field) Reduce(x Element) Element {
	var z Element
	z.Mod(&x, &f.m)
	return z
}

// Add returns x + y.
func (f *Field) Add(x, y Element) Element {
	var z Element
	z.AddMod(&x, &y, &f.m)
	return z
}

// Sub returns x - y.
func (f *Field) Sub(x, y Element) Element {
	var z Element
	z.Sub(&x, &y)
	if x.Lt(&y) {
		z.Add(&z, &f.m)
	}
	return z
}

// Neg returns -x.
func (f *Field) Neg(x Element) Element {
	if x.IsZero() {
		return x
	}
	var z Element
	z.Sub(&f.m, &x)
	return z
}

// Double returns 2x.
func (f *Field) Double(x Element) Element {
	return f.Add(x, x)
}

// Mul returns x * y.
func (f *Field) Mul(x, y Element) Element {
	var z Element
	z.MulMod(&x, &y, &f.m)
	return z
}

// Square returns x².
func (f *Field) Square(x Element) Element {
	return f.Mul(x, x)
}

// Exp returns x^e by left-to-right square and multiply.
func (f *Field) Exp(x, e Element) Element {
	z := f.One()
	for i := e.BitLen() - 1; i >= 0; i-- {
		z = f.Square(z)
		if Bit(e, i) == 1 {
			z = f.Mul(z, x)
		}
	}
	return z
}

// Inv returns 1/x. The boolean is false when x is zero.
func (f *Field) Inv(x Element) (Element, bool) {
	if x.IsZero() {
		return Element{}, false
	}
	return f.Exp(x, f.mMinus2), true
}

// Legendre returns 1 for a non-zero square, -1 for a non-square and 0 for zero.
func (f *Field) Legendre(x Element) int {
	if x.IsZero() {
		return 0
	}
	r := f.Exp(x, f.half)
	if r == f.One() {
		return 1
	}
	return -1
}

// IsOdd reports whether the canonical integer form of x is odd.
func IsOdd(x Element) bool {
	return x[0]&1 == 1
}

// Bit returns bit i (0 = least significant) of x.
func Bit(x Element, i int) uint {
	if i < 0 || i >= 256 {
		return 0
	}
	return uint(x[i/64]>>(uint(i)%64)) & 1
}

// FromBytesLE decodes a 32-byte little-endian integer, rejecting values not
// below the modulus.
func (f *Field) FromBytesLE(b []byte) (Element, error) {
	if len(b) != 32 {
		return Element{}, fmt.Errorf("%w: %s element must be 32 bytes, got %d", types.ErrMalformedInput, f.name, len(b))
	}
	var be [32]byte
	for i := 0; i < 32; i++ {
		be[i] = b[31-i]
	}
	return f.FromBytesBE(be[:])
}

// FromBytesBE decodes a 32-byte big-endian integer, rejecting values not
// below the modulus.
func (f *Field) FromBytesBE(b []byte) (Element, error) {
	if len(b) != 32 {
		return Element{}, fmt.Errorf("%w: %s element must be 32 bytes, got %d", types.ErrMalformedInput, f.name, len(b))
	}
	var z Element
	z.SetBytes32(b)
	if !f.IsCanonical(z) {
		return Element{}, fmt.Errorf("%w: %s", ErrNonCanonical, f.name)
	}
	return z, nil
}

// BytesLE encodes x as 32 little-endian bytes.
func BytesLE(x Element) [32]byte {
	be := x.Bytes32()
	var le [32]byte
	for i := 0; i < 32; i++ {
		le[i] = be[31-i]
	}
	return le
}

// BytesBE encodes x as 32 big-endian bytes.
func BytesBE(x Element) [32]byte {
	return x.Bytes32()
}

// FromDecimal parses a base-10 string, rejecting values not below the modulus.
func (f *Field) FromDecimal(s string) (Element, error) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Element{}, fmt.Errorf("%w: %s element %q is not a decimal integer", types.ErrMalformedInput, f.name, s)
		}
	}
	z, err := uint256.FromDecimal(s)
	if err != nil {
		return Element{}, fmt.Errorf("%w: %s element %q: %v", types.ErrMalformedInput, f.name, s, err)
	}
	if !f.IsCanonical(*z) {
		return Element{}, fmt.Errorf("%w: %s", ErrNonCanonical, f.name)
	}
	return *z, nil
}

// Decimal returns the base-10 form of x.
func Decimal(x Element) string {
	return x.Dec()
}

// Random draws a uniformly distributed element by rejection sampling 32-byte
// strings with the top two bits cleared. Errors from r are returned as is.
func (f *Field) Random(r io.Reader) (Element, error) {
	var buf [32]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Element{}, fmt.Errorf("read entropy: %w", err)
		}
		buf[0] &= 0x3f
		var z Element
		z.SetBytes32(buf[:])
		if f.IsCanonical(z) {
			return z, nil
		}
	}
}
