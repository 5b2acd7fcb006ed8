package poseidon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/mina-signer-go/field"
)

func fpDec(t testing.TB, s string) field.Element {
	t.Helper()
	x, err := field.Fp.FromDecimal(s)
	require.NoError(t, err)
	return x
}

func TestLegacyParamsPinned(t *testing.T) {
	p := Legacy()
	require.NoError(t, p.Validate())
	assert.Equal(t, LegacyFullRounds, p.Rounds())
	assert.Len(t, p.RoundConstants, 64)

	assert.Equal(t, fpDec(t, "5120851564832219435984378502455404348241577473012869791814223281407441743813"), p.MDS[0][0])
	assert.Equal(t, fpDec(t, "10579706238738336764130498420074800439375214006069533467109343530608391621737"), p.MDS[2][1])
	assert.Equal(t, fpDec(t, "21970122257343393167263123136263770775865405727252711995681127474542801213071"), p.RoundConstants[0][0])
	assert.Equal(t, fpDec(t, "11500820803133486908505199553861305155438059044530734225550672803966090281364"), p.RoundConstants[1][1])
	assert.Equal(t, fpDec(t, "18919487112276203132794215626993655853156850747284598723235466402116907236857"), p.RoundConstants[63][2])
}

func TestPermuteZero(t *testing.T) {
	var s State
	Legacy().Permute(&s)
	assert.Equal(t, State{
		fpDec(t, "2514856803184284603992165670968058781267473558119898839050570833357918306980"),
		fpDec(t, "21956109398185205625541577596973541275249701163557172706664054390460516664815"),
		fpDec(t, "4639478076455839314556209996534479096970687614592443678641857183750855111587"),
	}, s)
}

func TestHash(t *testing.T) {
	p := Legacy()
	assert.Equal(t,
		fpDec(t, "2514856803184284603992165670968058781267473558119898839050570833357918306980"),
		p.Hash())
	assert.Equal(t,
		fpDec(t, "14160037027247511761732571941517728817677520690320025306261430411502172668005"),
		p.Hash(field.Fp.FromUint64(1), field.Fp.FromUint64(2), field.Fp.FromUint64(3)))
}

func TestSpongeModes(t *testing.T) {
	s := NewSponge(nil)
	s.Absorb(field.Fp.FromUint64(1))
	a := s.Squeeze()
	b := s.Squeeze()
	c := s.Squeeze() // rate exhausted, permutes again
	s.Absorb(field.Fp.FromUint64(7))
	d := s.Squeeze()

	assert.Equal(t, fpDec(t, "14574609095755836285160796552306386521053145499360597814241021258908003776621"), a)
	assert.Equal(t, fpDec(t, "19803006898230566730436879879896586092531905018993998702104825529587919597409"), b)
	assert.Equal(t, fpDec(t, "2487803753758777795913273457218776967594468829973014618757975891770634665698"), c)
	assert.Equal(t, fpDec(t, "4132366805181971085267939818447087715962592748799313605505391232774068224153"), d)
}

func TestSpongeCopyForks(t *testing.T) {
	base := NewSponge(nil)
	base.Absorb(field.Fp.FromUint64(42))
	base.Squeeze()

	fork1 := base
	fork2 := base
	fork1.Absorb(field.Fp.FromUint64(1))
	fork2.Absorb(field.Fp.FromUint64(1))
	assert.Equal(t, fork1.Squeeze(), fork2.Squeeze())

	fork3 := base
	fork3.Absorb(field.Fp.FromUint64(2))
	assert.NotEqual(t, fork1.State(), fork3.State())
}

func TestDeriveParams(t *testing.T) {
	p, err := DeriveParams("other-label", 8)
	require.NoError(t, err)
	assert.Equal(t, 8, p.Rounds())
	assert.NotEqual(t, Legacy().MDS, p.MDS)

	_, err = DeriveParams(legacyLabel, 0)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestValidateRejects(t *testing.T) {
	p := &Params{}
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)

	bad := *Legacy()
	bad.RoundConstants = append([][Width]field.Element(nil), Legacy().RoundConstants...)
	bad.RoundConstants[5][1] = field.Fp.Modulus()
	assert.ErrorIs(t, bad.Validate(), ErrInvalidParams)
	require.NoError(t, Legacy().Validate(), "copy must not alias the shared table")
}

func BenchmarkPermute(b *testing.B) {
	var s State
	p := Legacy()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Permute(&s)
	}
}
