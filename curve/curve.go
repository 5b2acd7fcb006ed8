// Package curve implements the Pallas elliptic curve y² = x³ + 5 over Fp.
//
// Points are affine at the API and Jacobian internally. Scalars are plain
// 256-bit integers; callers reduce modulo the group order where it matters.
package curve

import (
	"fmt"

	"github.com/blockberries/mina-signer-go/field"
	"github.com/blockberries/mina-signer-go/types"
)

var fp = field.Fp

// B is the curve constant.
var B = fp.FromUint64(5)

// Point is an affine Pallas point. The zero value (0, 0) is the identity;
// x = 0 never occurs on the curve because 5 is not a square in Fp.
type Point struct {
	X, Y field.Element
}

var generator = Point{
	X: fp.FromUint64(1),
	Y: mustDecimal("12418654782883325593414442427049395787963493412651469444558597405572177144507"),
}

func mustDecimal(s string) field.Element {
	x, err := fp.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return x
}

// Generator returns the fixed base point G.
func Generator() Point { return generator }

// Identity returns the point at infinity.
func Identity() Point { return Point{} }

// NewPoint returns the affine point (x, y), failing when it is not on the curve.
func NewPoint(x, y field.Element) (Point, error) {
	p := Point{X: x, Y: y}
	if !fp.IsCanonical(x) || !fp.IsCanonical(y) || p.IsIdentity() || !p.IsOnCurve() {
		return Point{}, fmt.Errorf("%w: point is not on the curve", types.ErrInvalidKey)
	}
	return p, nil
}

// IsIdentity reports whether p is the point at infinity.
func (p Point) IsIdentity() bool { return p.X.IsZero() && p.Y.IsZero() }

// IsOnCurve reports whether p satisfies the curve equation. The identity is
// on the curve.
func (p Point) IsOnCurve() bool {
	if p.IsIdentity() {
		return true
	}
	lhs := fp.Square(p.Y)
	rhs := fp.Add(fp.Mul(fp.Square(p.X), p.X), B)
	return lhs == rhs
}

// Equal reports whether p and o are the same point.
func (p Point) Equal(o Point) bool {
	if p.IsIdentity() || o.IsIdentity() {
		return p.IsIdentity() == o.IsIdentity()
	}
	return p.X == o.X && p.Y == o.Y
}

// Neg returns -p.
func (p Point) Neg() Point {
	if p.IsIdentity() {
		return Identity()
	}
	return Point{X: p.X, Y: fp.Neg(p.Y)}
}

// Compress returns the x coordinate and the parity of y.
func (p Point) Compress() (x field.Element, isOdd bool) {
	return p.X, field.IsOdd(p.Y)
}

// Decompress recovers the point with the given x coordinate and y parity.
func Decompress(x field.Element, isOdd bool) (Point, error) {
	if !fp.IsCanonical(x) {
		return Point{}, fmt.Errorf("%w: x coordinate out of range", types.ErrInvalidKey)
	}
	rhs := fp.Add(fp.Mul(fp.Square(x), x), B)
	y, ok := fp.Sqrt(rhs)
	if !ok {
		return Point{}, fmt.Errorf("%w: x coordinate is not on the curve", types.ErrInvalidKey)
	}
	if field.IsOdd(y) != isOdd {
		y = fp.Neg(y)
	}
	return Point{X: x, Y: y}, nil
}

// String formats p as (x, y) in decimal.
func (p Point) String() string {
	if p.IsIdentity() {
		return "(infinity)"
	}
	return fmt.Sprintf("(%s, %s)", p.X.Dec(), p.Y.Dec())
}

// Add returns a + b.
func Add(a, b Point) Point {
	return toJacobian(a).add(toJacobian(b)).affine()
}

// Double returns 2p.
func Double(p Point) Point {
	return toJacobian(p).double().affine()
}

// ScalarMul returns k·p.
func ScalarMul(k field.Element, p Point) Point {
	return toJacobian(p).mul(k).affine()
}

// ScalarBaseMul returns k·G.
func ScalarBaseMul(k field.Element) Point {
	return ScalarMul(k, generator)
}
