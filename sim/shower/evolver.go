// Package shower evolves a single parton line down in scale with the Sudakov
// veto algorithm: trial emissions are generated from an overestimate of the
// splitting rate and vetoed against the true splitting function and coupling.
package shower

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/colsim/colsim/sim"
	"github.com/colsim/colsim/sim/rootfind"
)

// Coupling supplies the strong coupling in units of α/(2π).
// Overestimate(t) must bound Actual over the whole evolution range.
type Coupling interface {
	Actual(t, z float64) float64
	Overestimate(t float64) float64
}

// Evolver runs Sudakov evolutions against one random stream.
// Not safe for concurrent use.
type Evolver struct {
	cfg       Config
	coupling  Coupling
	kernel    Kernel
	rng       sim.RandomSource
	alphaOver float64
}

// NewEvolver validates cfg and fixes the coupling overestimate for every
// evolution run by this Evolver. A nil kernel selects QuarkKernel.
func NewEvolver(cfg Config, coupling Coupling, kernel Kernel, rng sim.RandomSource) (*Evolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if coupling == nil || rng == nil {
		return nil, fmt.Errorf("%w: shower needs a coupling and a random source", sim.ErrConfiguration)
	}
	if kernel == nil {
		kernel = QuarkKernel{}
	}
	s := cfg.overestimateScale()
	alphaOver := coupling.Overestimate(s * s)
	if !positiveFinite(alphaOver) {
		return nil, fmt.Errorf("%w: coupling overestimate at %v GeV is %v", sim.ErrConfiguration, s, alphaOver)
	}
	return &Evolver{
		cfg:       cfg,
		coupling:  coupling,
		kernel:    kernel,
		rng:       rng,
		alphaOver: alphaOver,
	}, nil
}

// AlphaOver returns the coupling overestimate used for trial generation.
func (e *Evolver) AlphaOver() float64 {
	return e.alphaOver
}

// Evolve runs one evolution from the configured initial scale.
func (e *Evolver) Evolve() (*History, error) {
	return e.EvolveFrom(e.cfg.InitialScale)
}

// EvolveFrom runs one evolution from q0 (GeV) down to the cutoff. Each trial
// starts from t·z² of the previous one. Only trials with z != 1 are recorded.
func (e *Evolver) EvolveFrom(q0 float64) (*History, error) {
	if !positiveFinite(q0) {
		return nil, fmt.Errorf("%w: evolution start scale must be positive, got %v", sim.ErrConfiguration, q0)
	}
	tmin := e.cfg.Cutoff * e.cfg.Cutoff
	stop := e.cfg.SafetyFactor * tmin
	h := &History{StartScale: q0, Cutoff: e.cfg.Cutoff}

	t, z := q0*q0, 1.0
	for {
		q := math.Sqrt(t) * z
		if q*q <= stop {
			h.Termination = BelowCutoff
			break
		}
		if h.Trials >= e.cfg.MaxTrials {
			return nil, fmt.Errorf("%w: evolution from %v GeV still at %v GeV after %d trials",
				sim.ErrTrialsExhausted, q0, q, h.Trials)
		}
		h.Trials++

		em, term, err := e.GenerateEmission(q, e.alphaOver)
		if err != nil {
			return nil, fmt.Errorf("trial %d at %v GeV: %w", h.Trials, q, err)
		}
		if term != "" {
			h.Termination = term
			break
		}
		if em.T < stop {
			h.Termination = BelowCutoff
			break
		}
		t, z = em.T, em.Z
		if em.Z != 1 {
			h.Emissions = append(h.Emissions, em)
		}
	}

	logEmissionsTable(h)
	return h, nil
}

// GenerateEmission performs one trial below scale q (GeV) with coupling
// overestimate alphaOver. Four uniforms are drawn up front: r1 fixes the
// scale, r2 the momentum fraction, r3 and r4 the splitting and coupling vetoes.
// A non-empty Termination means the line cannot evolve further; the returned
// error is reserved for numerical failure of the scale solve.
func (e *Evolver) GenerateEmission(q, alphaOver float64) (Emission, Termination, error) {
	r1, r2, r3, r4 := e.uniform(), e.uniform(), e.uniform(), e.uniform()

	t, term, err := e.solveScale(q, r1, alphaOver)
	if err != nil || term != "" {
		return Emission{T: q * q, Z: 1}, term, err
	}

	zm, zp := e.kernel.Limits(t, e.cfg.Cutoff)
	gm := e.kernel.Integral(zm, alphaOver)
	gp := e.kernel.Integral(zp, alphaOver)
	z := e.kernel.InverseIntegral(gm+r2*(gp-gm), alphaOver)
	if !(z > 0 && z < 1) {
		logrus.Debugf("trial at sqrt(t)=%.6g produced z=%v outside (0,1)", math.Sqrt(t), z)
		return Emission{T: t, Z: 1}, Unphysical, nil
	}

	em := Emission{
		T:         t,
		Z:         z,
		PT2:       z * z * (1 - z) * (1 - z) * t,
		M2:        z * (1 - z) * t,
		Generated: true,
		Continue:  true,
	}
	if ratio := e.kernel.Splitting(z) / e.kernel.Overestimate(z); ratio < r3 {
		logrus.Debugf("trial at sqrt(t)=%.6g z=%.6f vetoed by splitting ratio %.6f < %.6f", math.Sqrt(t), z, ratio, r3)
		em.Generated = false
	}
	if ratio := e.coupling.Actual(t, z) / alphaOver; ratio < r4 {
		logrus.Debugf("trial at sqrt(t)=%.6g z=%.6f vetoed by coupling ratio %.6f < %.6f", math.Sqrt(t), z, ratio, r4)
		em.Generated = false
	}
	if !em.Generated {
		em.Z, em.PT2, em.M2 = 1, 0, 0
	}
	return em, "", nil
}

// scanSteps is the grid used to look for a root above the pole of the
// overestimate integral.
const scanSteps = 256

// solveScale solves log(t/q²) = log(r)/ρ(t) for t by bisection over
// log(t/q²) in [log(BracketFactor·Qc²/q²), 0], where ρ(t) = Γ(zp) - Γ(zm).
func (e *Evolver) solveScale(q, r, alphaOver float64) (float64, Termination, error) {
	q2 := q * q
	qc := e.cfg.Cutoff
	logR := math.Log(r)
	f := func(x float64) float64 {
		t := q2 * math.Exp(x)
		zm, zp := e.kernel.Limits(t, qc)
		rho := e.kernel.Integral(zp, alphaOver) - e.kernel.Integral(zm, alphaOver)
		return x - logR/rho
	}

	lo := math.Log(e.cfg.BracketFactor * qc * qc / q2)
	res, err := rootfind.Bisection(f, lo, 0, rootfind.BisectionOptions{
		Tolerance:     e.cfg.Tolerance,
		MaxIterations: e.cfg.MaxIterations,
	})
	switch {
	case errors.Is(err, rootfind.ErrNoSignChange):
		return 0, NoRoot, nil
	case errors.Is(err, rootfind.ErrNotConverged):
		return 0, "", fmt.Errorf("%w: scale equation: %v", sim.ErrConvergenceFailure, err)
	case err != nil:
		return 0, "", fmt.Errorf("%w: scale equation below %v GeV: %v", sim.ErrConfiguration, q, err)
	}
	if math.Abs(res.Residual) > e.cfg.Tolerance {
		// Collapsed onto the pole; a pair of genuine roots may still sit above it.
		root, found, err := e.scanAbove(f, res.Root+e.cfg.Tolerance)
		if err != nil {
			return 0, "", err
		}
		if !found {
			return 0, Unresolved, nil
		}
		return q2 * math.Exp(root), "", nil
	}
	return q2 * math.Exp(res.Root), "", nil
}

// scanAbove walks down from x = 0 to lo in scanSteps steps and bisects the
// first interval where f turns non-positive, which is the largest root.
func (e *Evolver) scanAbove(f rootfind.Func, lo float64) (float64, bool, error) {
	if !(lo < 0) {
		return 0, false, nil
	}
	hi, fhi := 0.0, f(0)
	if !(fhi > 0) {
		return 0, false, nil
	}
	step := -lo / scanSteps
	for k := 1; k <= scanSteps; k++ {
		x := -float64(k) * step
		fx := f(x)
		if math.IsNaN(fx) {
			return 0, false, nil
		}
		if fx <= 0 {
			res, err := rootfind.Bisection(f, x, hi, rootfind.BisectionOptions{
				Tolerance:     e.cfg.Tolerance,
				MaxIterations: e.cfg.MaxIterations,
			})
			if errors.Is(err, rootfind.ErrNotConverged) {
				return 0, false, fmt.Errorf("%w: scale equation: %v", sim.ErrConvergenceFailure, err)
			}
			if err != nil || math.Abs(res.Residual) > e.cfg.Tolerance {
				return 0, false, nil
			}
			logrus.Debugf("scale equation: recovered root at log(t/q²)=%.6g above the pole", res.Root)
			return res.Root, true, nil
		}
		hi = x
	}
	return 0, false, nil
}

// uniform draws from (0, 1); log(r) needs r > 0.
func (e *Evolver) uniform() float64 {
	if u := e.rng.Float64(); u > 0 {
		return u
	}
	return 0x1p-53
}
