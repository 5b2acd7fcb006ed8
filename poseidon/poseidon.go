package poseidon

import "github.com/blockberries/mina-signer-go/field"

var fp = field.Fp

func sbox(x field.Element) field.Element {
	x2 := fp.Square(x)
	return fp.Mul(fp.Square(x2), x)
}

// Permute applies the permutation to s in place.
func (p *Params) Permute(s *State) {
	for i := 0; i < Width; i++ {
		s[i] = fp.Add(s[i], p.RoundConstants[0][i])
	}
	for r := 1; r < len(p.RoundConstants); r++ {
		var t State
		for i := 0; i < Width; i++ {
			t[i] = sbox(s[i])
		}
		for i := 0; i < Width; i++ {
			acc := p.RoundConstants[r][i]
			for j := 0; j < Width; j++ {
				acc = fp.Add(acc, fp.Mul(p.MDS[i][j], t[j]))
			}
			s[i] = acc
		}
	}
}

type mode uint8

const (
	absorbing mode = iota
	squeezing
)

// Sponge is a duplex sponge. It is a value type: copying a Sponge forks it,
// which is how per-domain initial states are reused.
type Sponge struct {
	params *Params
	state  State
	mode   mode
	offset int
}

// NewSponge returns an empty sponge in the absorbing mode. A nil params selects
// the legacy set.
func NewSponge(params *Params) Sponge {
	if params == nil {
		params = legacy
	}
	return Sponge{params: params}
}

// Absorb feeds xs into the sponge. Absorbing directly after a squeeze adds
// into the first rate position without permuting.
func (s *Sponge) Absorb(xs ...field.Element) {
	for _, x := range xs {
		switch {
		case s.mode == squeezing:
			s.state[0] = fp.Add(s.state[0], x)
			s.mode, s.offset = absorbing, 1
		case s.offset == Rate:
			s.params.Permute(&s.state)
			s.state[0] = fp.Add(s.state[0], x)
			s.offset = 1
		default:
			s.state[s.offset] = fp.Add(s.state[s.offset], x)
			s.offset++
		}
	}
}

// Squeeze extracts one field element.
func (s *Sponge) Squeeze() field.Element {
	if s.mode == absorbing || s.offset == Rate {
		s.params.Permute(&s.state)
		s.mode, s.offset = squeezing, 1
		return s.state[0]
	}
	out := s.state[s.offset]
	s.offset++
	return out
}

// State returns a copy of the permutation state.
func (s *Sponge) State() State {
	return s.state
}

// Hash absorbs xs into a fresh sponge and squeezes once.
func (p *Params) Hash(xs ...field.Element) field.Element {
	s := NewSponge(p)
	s.Absorb(xs...)
	return s.Squeeze()
}
