package coupling

import (
	"math"
	"math/rand"
	"testing"

	"github.com/colsim/colsim/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAlphaS(t *testing.T, cfg Config) *AlphaS {
	t.Helper()
	a, err := NewAlphaS(cfg)
	require.NoError(t, err)
	return a
}

func TestAlphaS_ReferencePoint_ReproducesAlphaSAtZ(t *testing.T) {
	for _, order := range []Order{LO, NLO} {
		a := newAlphaS(t, Config{Order: order, Cutoff: 1})
		assert.InDelta(t, sim.AlphaSAtZ, a.Value(sim.ZMass*sim.ZMass), 1e-12, "order %d", order)
	}
}

func TestAlphaS_ContinuousAcrossFlavourThresholds(t *testing.T) {
	// GIVEN both orders
	for _, order := range []Order{LO, NLO} {
		a := newAlphaS(t, Config{Order: order, Cutoff: 1})
		for _, m := range []float64{sim.BottomMass, sim.CharmMass} {
			// WHEN evaluated just above and just below a quark-mass threshold
			above := a.Value(m * m * (1 + 1e-9))
			below := a.Value(m * m * (1 - 1e-9))

			// THEN the matching keeps the coupling continuous
			assert.InDelta(t, above, below, 1e-6, "order %d threshold %v", order, m)
		}
	}
}

func TestAlphaS_DecreasesWithScale(t *testing.T) {
	for _, order := range []Order{LO, NLO} {
		a := newAlphaS(t, Config{Order: order, Cutoff: 1})
		prev := math.Inf(1)
		for _, q := range []float64{1, 2, 5, 10, 50, 91.188, 200, 1000} {
			v := a.Value(q * q)
			assert.Less(t, v, prev, "order %d at Q=%v", order, q)
			assert.Greater(t, v, 0.0)
			prev = v
		}
	}
}

func TestAlphaS_RunningOverestimateAtCutoff_BoundsActual(t *testing.T) {
	// GIVEN a running coupling with a 1 GeV cutoff
	const cutoff = 1.0
	a := newAlphaS(t, Config{Order: NLO, Cutoff: cutoff})
	over := a.Overestimate(cutoff * cutoff)
	rng := rand.New(rand.NewSource(7))

	// WHEN the actual coupling is evaluated across the evolution range
	for i := 0; i < 10000; i++ {
		t2 := 4*cutoff*cutoff + rng.Float64()*(1e4-4)
		z := rng.Float64()

		// THEN the overestimate dominates everywhere
		require.LessOrEqual(t, a.Actual(t2, z), over)
	}
}

func TestAlphaS_FixedScale_ActualEqualsOverestimate(t *testing.T) {
	// GIVEN a fixed scale of Q0/2 = 50 GeV
	a := newAlphaS(t, Config{Order: LO, FixedScale: true, Scale: 50, Cutoff: 1})

	// THEN the coupling veto always accepts
	want := a.Value(2500) / (2 * math.Pi)
	assert.InDelta(t, want, a.Actual(400, 0.3), 1e-15)
	assert.InDelta(t, want, a.Overestimate(1), 1e-15)
	assert.Equal(t, 50.0, a.Scale(9, 0.5))
}

func TestAlphaS_RunningScale_ClampedAtCutoff(t *testing.T) {
	a := newAlphaS(t, Config{Order: LO, Cutoff: 2})
	assert.Equal(t, 2.0, a.Scale(16, 0.01), "soft emission pT is clamped")
	assert.InDelta(t, 0.25*10, a.Scale(100, 0.5), 1e-12)
}

func TestNewAlphaS_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown order", Config{Order: 2, Cutoff: 1}},
		{"zero cutoff", Config{Order: LO}},
		{"fixed without scale", Config{Order: LO, FixedScale: true, Cutoff: 1}},
		{"below Landau pole", Config{Order: LO, Cutoff: 0.05}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewAlphaS(tc.cfg)
			assert.ErrorIs(t, err, sim.ErrConfiguration)
		})
	}
}

func TestBetaCoefficients(t *testing.T) {
	assert.InDelta(t, 23.0/6.0, Beta0(5), 1e-12)
	assert.InDelta(t, 17.0/6.0*9-(5+4.0/3.0)*0.5*5, Beta1(5), 1e-12)
}

func TestConstant(t *testing.T) {
	c := Constant(0.02)
	assert.Equal(t, 0.02, c.Actual(100, 0.5))
	assert.Equal(t, 0.02, c.Overestimate(1))
}
