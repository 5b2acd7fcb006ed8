package curve

import "github.com/blockberries/mina-signer-go/field"

// jacobian represents (X/Z², Y/Z³). Z == 0 is the identity.
type jacobian struct {
	x, y, z field.Element
}

func toJacobian(p Point) jacobian {
	if p.IsIdentity() {
		return jacobian{x: fp.One(), y: fp.One()}
	}
	return jacobian{x: p.X, y: p.Y, z: fp.One()}
}

func (p jacobian) isIdentity() bool { return p.z.IsZero() }

func (p jacobian) affine() Point {
	if p.isIdentity() {
		return Identity()
	}
	zinv, _ := fp.Inv(p.z)
	zinv2 := fp.Square(zinv)
	return Point{
		X: fp.Mul(p.x, zinv2),
		Y: fp.Mul(p.y, fp.Mul(zinv2, zinv)),
	}
}

// double uses dbl-2009-l (a = 0).
func (p jacobian) double() jacobian {
	if p.isIdentity() || p.y.IsZero() {
		return jacobian{x: fp.One(), y: fp.One()}
	}
	a := fp.Square(p.x)
	b := fp.Square(p.y)
	c := fp.Square(b)
	d := fp.Double(fp.Sub(fp.Sub(fp.Square(fp.Add(p.x, b)), a), c))
	e := fp.Add(fp.Double(a), a)
	f := fp.Square(e)

	var r jacobian
	r.x = fp.Sub(f, fp.Double(d))
	c8 := fp.Double(fp.Double(fp.Double(c)))
	r.y = fp.Sub(fp.Mul(e, fp.Sub(d, r.x)), c8)
	r.z = fp.Double(fp.Mul(p.y, p.z))
	return r
}

// add uses add-2007-bl.
func (p jacobian) add(q jacobian) jacobian {
	if p.isIdentity() {
		return q
	}
	if q.isIdentity() {
		return p
	}
	z1z1 := fp.Square(p.z)
	z2z2 := fp.Square(q.z)
	u1 := fp.Mul(p.x, z2z2)
	u2 := fp.Mul(q.x, z1z1)
	s1 := fp.Mul(fp.Mul(p.y, q.z), z2z2)
	s2 := fp.Mul(fp.Mul(q.y, p.z), z1z1)

	h := fp.Sub(u2, u1)
	rr := fp.Double(fp.Sub(s2, s1))
	if h.IsZero() {
		if rr.IsZero() {
			return p.double()
		}
		return jacobian{x: fp.One(), y: fp.One()}
	}
	i := fp.Square(fp.Double(h))
	j := fp.Mul(h, i)
	v := fp.Mul(u1, i)

	var r jacobian
	r.x = fp.Sub(fp.Sub(fp.Square(rr), j), fp.Double(v))
	r.y = fp.Sub(fp.Mul(rr, fp.Sub(v, r.x)), fp.Double(fp.Mul(s1, j)))
	r.z = fp.Mul(fp.Sub(fp.Sub(fp.Square(fp.Add(p.z, q.z)), z1z1), z2z2), h)
	return r
}

// mul is a Montgomery ladder over all 256 bits of k, so the sequence of
// group operations does not depend on the scalar's length.
func (p jacobian) mul(k field.Element) jacobian {
	r0 := jacobian{x: fp.One(), y: fp.One()}
	r1 := p
	for i := 255; i >= 0; i-- {
		if field.Bit(k, i) == 0 {
			r1 = r0.add(r1)
			r0 = r0.double()
		} else {
			r0 = r0.add(r1)
			r1 = r1.double()
		}
	}
	return r0
}
