package field

// Sqrt returns a square root of x by Tonelli-Shanks. The boolean is false when
// x is not a square. Which of the two roots is returned is unspecified; callers
// that care pick by parity.
func (f *Field) Sqrt(x Element) (Element, bool) {
	switch f.Legendre(x) {
	case 0:
		return Element{}, true
	case -1:
		return Element{}, false
	}

	m := f.twoAdicity
	c := f.rootOfUnity
	t := f.Exp(x, f.oddPart)
	r := f.Exp(x, f.qPlus1Half)
	one := f.One()

	for t != one {
		// least i with t^(2^i) == 1
		i := 0
		t2 := t
		for t2 != one {
			t2 = f.Square(t2)
			i++
			if i == m {
				return Element{}, false
			}
		}

		b := c
		for j := 0; j < m-i-1; j++ {
			b = f.Square(b)
		}
		m = i
		c = f.Square(b)
		t = f.Mul(t, c)
		r = f.Mul(r, b)
	}
	return r, true
}
