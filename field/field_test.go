package field

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/mina-signer-go/types"
)

func dec(t *testing.T, s string) Element {
	t.Helper()
	z, err := uint256.FromDecimal(s)
	require.NoError(t, err)
	return *z
}

func TestModuli(t *testing.T) {
	p := Fp.Modulus()
	q := Fq.Modulus()
	assert.Equal(t, "28948022309329048855892746252171976963363056481941560715954676764349967630337", p.Dec())
	assert.Equal(t, "28948022309329048855892746252171976963363056481941647379679742748393362948097", q.Dec())
	assert.True(t, p.Lt(&q), "scalar field must be larger than base field")
	assert.Equal(t, 32, Fp.TwoAdicity())
	assert.Equal(t, 32, Fq.TwoAdicity())
	assert.Equal(t, "Fp", Fp.Name())
	assert.Equal(t, "Fq", Fq.Name())
}

func TestAddSubNeg(t *testing.T) {
	for _, f := range []*Field{Fp, Fq} {
		t.Run(f.Name(), func(t *testing.T) {
			m := f.Modulus()
			var mMinus1 Element
			mMinus1.SubUint64(&m, 1)

			assert.Equal(t, f.Zero(), f.Add(mMinus1, f.One()), "m-1 + 1 wraps to zero")
			assert.Equal(t, mMinus1, f.Sub(f.Zero(), f.One()), "0 - 1 wraps to m-1")
			assert.Equal(t, mMinus1, f.Neg(f.One()))
			assert.Equal(t, f.Zero(), f.Neg(f.Zero()))

			x := f.FromUint64(12345)
			y := f.FromUint64(678)
			assert.Equal(t, x, f.Add(f.Sub(x, y), y))
			assert.Equal(t, y, f.Sub(y, f.Zero()))
			assert.Equal(t, f.Zero(), f.Add(x, f.Neg(x)))
			assert.Equal(t, f.FromUint64(24690), f.Double(x))
		})
	}
}

func TestMulInv(t *testing.T) {
	half, ok := Fp.Inv(Fp.FromUint64(2))
	require.True(t, ok)
	assert.Equal(t, dec(t, "14474011154664524427946373126085988481681528240970780357977338382174983815169"), half)

	third, ok := Fq.Inv(Fq.FromUint64(3))
	require.True(t, ok)
	assert.Equal(t, dec(t, "19298681539552699237261830834781317975575370987961098253119828498928908632065"), third)

	_, ok = Fp.Inv(Fp.Zero())
	assert.False(t, ok, "zero has no inverse")

	for i := 0; i < 16; i++ {
		x, err := Fp.Random(rand.Reader)
		require.NoError(t, err)
		if x.IsZero() {
			continue
		}
		inv, ok := Fp.Inv(x)
		require.True(t, ok)
		assert.Equal(t, Fp.One(), Fp.Mul(x, inv))
	}
}

func TestExp(t *testing.T) {
	e := dec(t, "12345678901234567890")
	assert.Equal(t,
		dec(t, "2052675595114404756474298906289489475332001400802688026506758298547491393372"),
		Fp.Exp(Fp.FromUint64(7), e))
	assert.Equal(t, Fp.One(), Fp.Exp(Fp.FromUint64(7), Fp.Zero()))
	assert.Equal(t, Fp.FromUint64(49), Fp.Square(Fp.FromUint64(7)))
}

func TestLegendre(t *testing.T) {
	assert.Equal(t, 0, Fp.Legendre(Fp.Zero()))
	assert.Equal(t, 1, Fp.Legendre(Fp.FromUint64(4)))
	assert.Equal(t, -1, Fp.Legendre(Fp.FromUint64(5)), "5 is the smallest non-residue")
	assert.Equal(t, -1, Fq.Legendre(Fq.FromUint64(5)))
	assert.Equal(t, 1, Fp.Legendre(Fp.FromUint64(6)))
}

func TestSqrt(t *testing.T) {
	for _, f := range []*Field{Fp, Fq} {
		t.Run(f.Name(), func(t *testing.T) {
			r, ok := f.Sqrt(f.Zero())
			require.True(t, ok)
			assert.True(t, r.IsZero())

			r, ok = f.Sqrt(f.FromUint64(4))
			require.True(t, ok)
			assert.Equal(t, f.FromUint64(4), f.Square(r))

			_, ok = f.Sqrt(f.FromUint64(5))
			assert.False(t, ok)

			for i := 0; i < 16; i++ {
				x, err := f.Random(rand.Reader)
				require.NoError(t, err)
				sq := f.Square(x)
				r, ok := f.Sqrt(sq)
				require.True(t, ok)
				assert.True(t, r == x || r == f.Neg(x), "root must be ±x")
			}
		})
	}
}

func TestByteCodecs(t *testing.T) {
	x := dec(t, "22536877747820698688010660184495467853785925552441222123266613953322243475471")

	le := BytesLE(x)
	be := BytesBE(x)
	for i := 0; i < 32; i++ {
		assert.Equal(t, be[i], le[31-i])
	}

	back, err := Fp.FromBytesLE(le[:])
	require.NoError(t, err)
	assert.Equal(t, x, back)

	back, err = Fp.FromBytesBE(be[:])
	require.NoError(t, err)
	assert.Equal(t, x, back)

	_, err = Fp.FromBytesLE(le[:31])
	assert.True(t, errors.Is(err, types.ErrMalformedInput))

	m := BytesBE(Fp.Modulus())
	_, err = Fp.FromBytesBE(m[:])
	assert.ErrorIs(t, err, ErrNonCanonical)
	assert.ErrorIs(t, err, types.ErrMalformedInput)

	// p is below q, so the Fp modulus is a valid Fq element
	_, err = Fq.FromBytesBE(m[:])
	assert.NoError(t, err)
}

func TestDecimal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"zero", "0", false},
		{"small", "42", false},
		{"p-1", "28948022309329048855892746252171976963363056481941560715954676764349967630336", false},
		{"p", "28948022309329048855892746252171976963363056481941560715954676764349967630337", true},
		{"empty", "", true},
		{"negative", "-1", true},
		{"plus", "+1", true},
		{"hex", "0x10", true},
		{"space", " 1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := Fp.FromDecimal(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrMalformedInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, Decimal(x))
		})
	}
}

func TestIsOddAndBit(t *testing.T) {
	assert.True(t, IsOdd(Fp.FromUint64(3)))
	assert.False(t, IsOdd(Fp.FromUint64(4)))

	x := Element{0, 1} // 2^64
	assert.Equal(t, uint(1), Bit(x, 64))
	assert.Equal(t, uint(0), Bit(x, 63))
	assert.Equal(t, uint(0), Bit(x, 256))
	assert.Equal(t, uint(0), Bit(x, -1))
}

func TestRandomPropagatesReadError(t *testing.T) {
	_, err := Fq.Random(bytes.NewReader(make([]byte, 8)))
	assert.Error(t, err)
}

func TestRandomMasksTopBits(t *testing.T) {
	x, err := Fq.Random(bytes.NewReader(bytes.Repeat([]byte{0xff}, 32)))
	require.NoError(t, err)
	assert.Equal(t, 253, x.BitLen()-1)
	assert.True(t, Fq.IsCanonical(x))
}

func BenchmarkMul(b *testing.B) {
	x, _ := Fp.Random(rand.Reader)
	y, _ := Fp.Random(rand.Reader)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = Fp.Mul(x, y)
	}
}

func BenchmarkSqrt(b *testing.B) {
	x, _ := Fp.Random(rand.Reader)
	sq := Fp.Square(x)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Fp.Sqrt(sq)
	}
}
