// Package poseidon implements the legacy Poseidon permutation and duplex
// sponge over the Pallas base field: width 3, rate 2, S-box x⁵, full rounds
// only, with one round-constant addition before the first round.
//
// The built-in constant set returned by Legacy is derived from labelled
// BLAKE2b seeds. It is not the table published with the Mina protocol, so
// digests and signatures made with it do not verify on Mina nodes. Load the
// published legacy Fp table with LoadLegacyParamsFile to interoperate.
package poseidon

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/blockberries/mina-signer-go/field"
)

const (
	// Width is the number of field elements in the permutation state.
	Width = 3

	// Rate is the number of state elements absorbed or squeezed per permutation.
	Rate = 2

	// LegacyFullRounds is the number of full rounds in the legacy parameter set.
	LegacyFullRounds = 63

	// legacyLabel prefixes every seed of the derived parameter set.
	legacyLabel = "PoseidonLegacyFp"
)

// ErrInvalidParams is returned by Params.Validate and the table loaders.
var ErrInvalidParams = errors.New("invalid poseidon parameters")

// State is the permutation state.
type State [Width]field.Element

// Params is a complete constant set for the permutation. RoundConstants[0] is
// added before the first round and RoundConstants[r] at the end of round r, so
// a set with n rounds carries n+1 rows.
type Params struct {
	MDS            [Width][Width]field.Element
	RoundConstants [][Width]field.Element
}

// Rounds returns the number of full rounds.
func (p *Params) Rounds() int {
	return len(p.RoundConstants) - 1
}

// Validate checks that the table is non-empty and every constant is reduced.
func (p *Params) Validate() error {
	if len(p.RoundConstants) < 2 {
		return fmt.Errorf("%w: need at least 2 round-constant rows, got %d", ErrInvalidParams, len(p.RoundConstants))
	}
	for i := range p.MDS {
		for j := range p.MDS[i] {
			if !field.Fp.IsCanonical(p.MDS[i][j]) {
				return fmt.Errorf("%w: mds[%d][%d] is not reduced", ErrInvalidParams, i, j)
			}
		}
	}
	for r, row := range p.RoundConstants {
		for i := range row {
			if !field.Fp.IsCanonical(row[i]) {
				return fmt.Errorf("%w: rc[%d][%d] is not reduced", ErrInvalidParams, r, i)
			}
		}
	}
	return nil
}

var legacy = mustDeriveLegacy()

// Legacy returns the built-in legacy-shaped parameter set. The value is
// shared and must not be modified. See the package doc for how it differs
// from the published Mina table.
func Legacy() *Params {
	return legacy
}

// deriveConstant maps a seed to Fp: BLAKE2b-256, top two bits cleared, read
// big-endian. The result is below 2^254 and therefore below p.
func deriveConstant(seed string) field.Element {
	sum := blake2b.Sum256([]byte(seed))
	sum[0] &= 0x3f
	var x field.Element
	x.SetBytes32(sum[:])
	return x
}

// DeriveParams builds a parameter set from labelled BLAKE2b seeds. The MDS
// matrix is the Cauchy matrix 1/(x_i - y_j), which is invertible whenever the
// x and y values are pairwise distinct.
func DeriveParams(label string, rounds int) (*Params, error) {
	if rounds < 1 {
		return nil, fmt.Errorf("%w: rounds must be positive", ErrInvalidParams)
	}
	fp := field.Fp

	var xs, ys [Width]field.Element
	seen := make(map[field.Element]struct{}, 2*Width)
	for i := 0; i < Width; i++ {
		xs[i] = deriveConstant(fmt.Sprintf("%s/mds/x/%d", label, i))
		ys[i] = deriveConstant(fmt.Sprintf("%s/mds/y/%d", label, i))
		seen[xs[i]] = struct{}{}
		seen[ys[i]] = struct{}{}
	}
	if len(seen) != 2*Width {
		return nil, fmt.Errorf("%w: cauchy seeds for %q collide", ErrInvalidParams, label)
	}

	p := &Params{RoundConstants: make([][Width]field.Element, rounds+1)}
	for i := 0; i < Width; i++ {
		for j := 0; j < Width; j++ {
			inv, ok := fp.Inv(fp.Sub(xs[i], ys[j]))
			if !ok {
				return nil, fmt.Errorf("%w: singular cauchy entry (%d, %d)", ErrInvalidParams, i, j)
			}
			p.MDS[i][j] = inv
		}
	}
	for r := range p.RoundConstants {
		for i := 0; i < Width; i++ {
			p.RoundConstants[r][i] = deriveConstant(fmt.Sprintf("%s/rc/%d/%d", label, r, i))
		}
	}
	return p, nil
}

func mustDeriveLegacy() *Params {
	p, err := DeriveParams(legacyLabel, LegacyFullRounds)
	if err != nil {
		panic(err)
	}
	return p
}
