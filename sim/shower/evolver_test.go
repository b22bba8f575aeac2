package shower

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colsim/colsim/sim"
	"github.com/colsim/colsim/sim/coupling"
)

// fixedLimitsKernel keeps the quark splitting function but fixes the z
// limits, so ρ no longer depends on t and the Sudakov factor is a power law.
type fixedLimitsKernel struct {
	QuarkKernel
	zm, zp float64
}

func (k fixedLimitsKernel) Limits(t, qc float64) (float64, float64) { return k.zm, k.zp }

// softKernel also sets the true splitting function equal to its overestimate.
type softKernel struct {
	fixedLimitsKernel
}

func (k softKernel) Splitting(z float64) float64 { return k.Overestimate(z) }

// sequence replays fixed uniforms, cycling when exhausted.
type sequence struct {
	vals []float64
	i    int
}

func (s *sequence) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

// ratioCoupling has a constant Actual/Overestimate ratio.
type ratioCoupling struct{ actual, over float64 }

func (c ratioCoupling) Actual(t, z float64) float64    { return c.actual }
func (c ratioCoupling) Overestimate(t float64) float64 { return c.over }

// alphaForRho returns the constant coupling giving ρ = 2·α·CF·log(4) = rho
// for limits [0.2, 0.8].
func alphaForRho(rho float64) float64 {
	return rho / (2 * sim.CF * math.Log(4))
}

func newEvolver(t *testing.T, cfg Config, c Coupling, k Kernel, rng sim.RandomSource) *Evolver {
	t.Helper()
	e, err := NewEvolver(cfg, c, k, rng)
	require.NoError(t, err)
	return e
}

func TestEvolve_RunningCoupling_ScalesStrictlyDecreasingAboveCutoff(t *testing.T) {
	// GIVEN a quark line from Q0 = 100 GeV with a 1 GeV cutoff and NLO running
	const q0, qc = 100.0, 1.0
	as, err := coupling.NewAlphaS(coupling.Config{Order: coupling.NLO, Cutoff: qc})
	require.NoError(t, err)
	e := newEvolver(t, DefaultConfig(q0, qc), as, nil, rand.New(rand.NewSource(11)))

	total := 0
	for i := 0; i < 500; i++ {
		// WHEN evolved
		h, err := e.Evolve()
		require.NoError(t, err)

		// THEN every recorded emission is accepted, ordered and above the cutoff
		assert.Contains(t, []Termination{BelowCutoff, NoRoot, Unresolved}, h.Termination)
		assert.GreaterOrEqual(t, h.Trials, len(h.Emissions))
		prev := math.Inf(1)
		for _, em := range h.Emissions {
			assert.True(t, em.Generated)
			assert.True(t, em.Continue)
			assert.Less(t, em.Scale(), prev)
			assert.GreaterOrEqual(t, em.Scale(), qc)
			assert.LessOrEqual(t, em.Scale(), q0)
			assert.Greater(t, em.Z, 0.0)
			assert.Less(t, em.Z, 1.0)
			assert.InDelta(t, em.Z*(1-em.Z)*em.Scale(), em.PT(), 1e-9*q0)
			prev = em.Scale()
		}
		total += len(h.Emissions)
	}
	assert.Greater(t, total, 0, "some lines must radiate")
}

func TestEvolve_ZeroEmissionFraction_MatchesSudakovFactor(t *testing.T) {
	// GIVEN a kernel with fixed limits [0.2, 0.8], no vetoes, and ρ = 0.2
	const q0, qc, rho = 100.0, 1.0, 0.2
	kernel := softKernel{fixedLimitsKernel{zm: 0.2, zp: 0.8}}
	c := coupling.Constant(alphaForRho(rho))
	e := newEvolver(t, DefaultConfig(q0, qc), c, kernel, rand.New(rand.NewSource(2024)))

	// WHEN many lines are evolved
	const n = 20000
	empty := 0
	for i := 0; i < n; i++ {
		h, err := e.Evolve()
		require.NoError(t, err)
		if len(h.Emissions) == 0 {
			empty++
		}
	}

	// THEN the zero-emission fraction approximates Δ = (4·Qc²/Q0²)^ρ ≈ 0.209
	want := math.Pow(DefaultSafetyFactor*qc*qc/(q0*q0), rho)
	assert.InDelta(t, want, float64(empty)/n, 0.015)
}

func TestEvolve_SameSeed_IdenticalHistories(t *testing.T) {
	as, err := coupling.NewAlphaS(coupling.Config{Order: coupling.LO, Cutoff: 1})
	require.NoError(t, err)
	a := newEvolver(t, DefaultConfig(91.188, 1), as, nil, rand.New(rand.NewSource(5)))
	b := newEvolver(t, DefaultConfig(91.188, 1), as, nil, rand.New(rand.NewSource(5)))

	for i := 0; i < 50; i++ {
		ha, err := a.Evolve()
		require.NoError(t, err)
		hb, err := b.Evolve()
		require.NoError(t, err)
		require.Equal(t, ha, hb, "evolution %d", i)
	}
}

func TestEvolveFrom_StartBelowCutoff_NoTrials(t *testing.T) {
	e := newEvolver(t, DefaultConfig(100, 1), coupling.Constant(0.02), nil, rand.New(rand.NewSource(1)))

	h, err := e.EvolveFrom(1.5)

	require.NoError(t, err)
	assert.Equal(t, BelowCutoff, h.Termination)
	assert.Zero(t, h.Trials)
	assert.Empty(t, h.Emissions)
}

func TestGenerateEmission_KnownUniforms_ExactKinematics(t *testing.T) {
	// GIVEN fixed limits [0.2, 0.8], ρ = 0.2 and uniforms r1 = r2 = 0.5
	const q = 100.0
	kernel := softKernel{fixedLimitsKernel{zm: 0.2, zp: 0.8}}
	alpha := alphaForRho(0.2)
	rng := &sequence{vals: []float64{0.5, 0.5, 0.1, 0.1}}
	e := newEvolver(t, DefaultConfig(q, 1), coupling.Constant(alpha), kernel, rng)

	// WHEN one trial is generated
	em, term, err := e.GenerateEmission(q, alpha)

	// THEN t = Q²·r1^(1/ρ) and z solves the midpoint of Γ between the limits
	require.NoError(t, err)
	assert.Empty(t, term)
	assert.InEpsilon(t, q*q/32, em.T, 2e-3)
	assert.InDelta(t, 0.6, em.Z, 1e-12)
	assert.InDelta(t, 0.36*0.16*em.T, em.PT2, 1e-9)
	assert.InDelta(t, 0.24*em.T, em.M2, 1e-9)
	assert.True(t, em.Generated)
	assert.True(t, em.Continue)
	assert.Equal(t, 4, rng.i, "four uniforms per trial")
}

func TestGenerateEmission_Vetoes(t *testing.T) {
	const q = 100.0
	limits := fixedLimitsKernel{zm: 0.2, zp: 0.8}
	over := alphaForRho(0.2)
	// At z = 0.6 the quark splitting ratio is (1 + z²)/2 = 0.68.
	tests := []struct {
		name          string
		r3, r4        float64
		actualRatio   float64
		wantGenerated bool
	}{
		{"both pass", 0.5, 0.5, 1, true},
		{"splitting veto", 0.99, 0.1, 1, false},
		{"coupling veto", 0.1, 0.6, 0.5, false},
		{"coupling tie accepts", 0.1, 0.5, 0.5, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rng := &sequence{vals: []float64{0.5, 0.5, tc.r3, tc.r4}}
			c := ratioCoupling{actual: tc.actualRatio * over, over: over}
			e := newEvolver(t, DefaultConfig(q, 1), c, limits, rng)

			em, term, err := e.GenerateEmission(q, over)

			require.NoError(t, err)
			assert.Empty(t, term)
			assert.True(t, em.Continue, "a vetoed trial still lowers the scale")
			assert.Less(t, em.T, q*q)
			assert.Equal(t, tc.wantGenerated, em.Generated)
			if !tc.wantGenerated {
				assert.Equal(t, 1.0, em.Z)
				assert.Zero(t, em.PT2)
				assert.Zero(t, em.M2)
			}
		})
	}
}

func TestGenerateEmission_ScaleBelowBracket_NoRoot(t *testing.T) {
	// GIVEN r1 so small that log(r1)/ρ lies below log(BracketFactor·Qc²/Q²)
	kernel := softKernel{fixedLimitsKernel{zm: 0.2, zp: 0.8}}
	alpha := alphaForRho(0.2)
	rng := &sequence{vals: []float64{1e-12, 0.5, 0.5, 0.5}}
	e := newEvolver(t, DefaultConfig(100, 1), coupling.Constant(alpha), kernel, rng)

	// WHEN one trial is generated
	em, term, err := e.GenerateEmission(100, alpha)

	// THEN it reports a physical end of evolution, not an error
	require.NoError(t, err)
	assert.Equal(t, NoRoot, term)
	assert.False(t, em.Continue)
}

func TestGenerateEmission_IterationCap_IsConvergenceFailure(t *testing.T) {
	// GIVEN a single bisection step with a root inside the bracket
	cfg := DefaultConfig(100, 1)
	cfg.MaxIterations = 1
	kernel := softKernel{fixedLimitsKernel{zm: 0.2, zp: 0.8}}
	alpha := alphaForRho(0.2)
	e := newEvolver(t, cfg, coupling.Constant(alpha), kernel, &sequence{vals: []float64{0.5}})

	// WHEN evolved
	_, err := e.Evolve()

	// THEN the numerical failure is distinguishable from termination
	assert.ErrorIs(t, err, sim.ErrConvergenceFailure)
}

func TestEvolve_TrialCap_IsTrialsExhausted(t *testing.T) {
	// GIVEN a strong coupling that keeps the scale near Q0 and one allowed trial
	cfg := DefaultConfig(1000, 1)
	cfg.MaxTrials = 1
	kernel := softKernel{fixedLimitsKernel{zm: 0.2, zp: 0.8}}
	e := newEvolver(t, cfg, coupling.Constant(1), kernel, &sequence{vals: []float64{0.9, 0.5, 0.1, 0.1}})

	_, err := e.Evolve()

	assert.ErrorIs(t, err, sim.ErrTrialsExhausted)
}

func TestNewEvolver_InvalidConfig(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	mutate := func(f func(*Config)) Config {
		cfg := DefaultConfig(100, 1)
		f(&cfg)
		return cfg
	}
	tests := []struct {
		name string
		cfg  Config
		c    Coupling
	}{
		{"zero cutoff", mutate(func(c *Config) { c.Cutoff = 0 }), coupling.Constant(0.02)},
		{"negative start", mutate(func(c *Config) { c.InitialScale = -1 }), coupling.Constant(0.02)},
		{"safety factor 1", mutate(func(c *Config) { c.SafetyFactor = 1 }), coupling.Constant(0.02)},
		{"bracket above safety", mutate(func(c *Config) { c.BracketFactor = 5 }), coupling.Constant(0.02)},
		{"zero tolerance", mutate(func(c *Config) { c.Tolerance = 0 }), coupling.Constant(0.02)},
		{"zero iterations", mutate(func(c *Config) { c.MaxIterations = 0 }), coupling.Constant(0.02)},
		{"zero trials", mutate(func(c *Config) { c.MaxTrials = 0 }), coupling.Constant(0.02)},
		{"nil coupling", DefaultConfig(100, 1), nil},
		{"zero overestimate", DefaultConfig(100, 1), coupling.Constant(0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEvolver(tc.cfg, tc.c, nil, rng)
			assert.ErrorIs(t, err, sim.ErrConfiguration)
		})
	}
}

func TestQuarkKernel_IntegralInverseRoundTrip(t *testing.T) {
	k := QuarkKernel{}
	for _, z := range []float64{0.01, 0.3, 0.5, 0.9, 0.999} {
		assert.InDelta(t, z, k.InverseIntegral(k.Integral(z, 0.05), 0.05), 1e-12)
		assert.LessOrEqual(t, k.Splitting(z), k.Overestimate(z))
	}
	zm, zp := k.Limits(100, 1)
	assert.InDelta(t, 0.1, zm, 1e-15)
	assert.InDelta(t, 0.9, zp, 1e-15)
}

func TestSolveScale_RootAbovePole_Recovered(t *testing.T) {
	// GIVEN the quark kernel at Q=1000 GeV, where bisection over the full
	// bracket collapses onto the 4·Qc² pole although the equation has roots above it
	const alpha = 0.015084
	e := newEvolver(t, DefaultConfig(1000, 1), coupling.Constant(alpha), QuarkKernel{}, &sequence{vals: []float64{0.5}})

	// WHEN the scale equation is solved for r=0.387
	tt, term, err := e.solveScale(1000, 0.387, alpha)

	// THEN the largest genuine root is returned instead of Unresolved
	require.NoError(t, err)
	require.Equal(t, Termination(""), term)
	assert.InDelta(t, 39.06, math.Sqrt(tt), 1.0)
	zm, zp := QuarkKernel{}.Limits(tt, 1)
	rho := QuarkKernel{}.Integral(zp, alpha) - QuarkKernel{}.Integral(zm, alpha)
	assert.InDelta(t, math.Log(0.387)/rho, math.Log(tt/1e6), 2*DefaultTolerance)
}

func TestSolveScale_NoRootAbovePole_Unresolved(t *testing.T) {
	// GIVEN a draw whose only sign change is the pole itself
	const alpha = 0.015084
	e := newEvolver(t, DefaultConfig(1000, 1), coupling.Constant(alpha), QuarkKernel{}, &sequence{vals: []float64{0.5}})

	// WHEN solved for r=0.1
	_, term, err := e.solveScale(1000, 0.1, alpha)

	// THEN the line ends without an emission above the cutoff
	require.NoError(t, err)
	assert.Equal(t, Unresolved, term)
}
