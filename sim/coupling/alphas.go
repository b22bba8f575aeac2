// Package coupling provides running-coupling providers for the parton shower.
// Every provider exposes Actual(t, z) and Overestimate(t), both in units of
// α/(2π), with Overestimate bounding Actual over the evolution range.
package coupling

import (
	"fmt"
	"math"

	"github.com/colsim/colsim/sim"
)

// Order selects the perturbative order of the running.
type Order int

const (
	// LO is one-loop running.
	LO Order = 0
	// NLO is two-loop running.
	NLO Order = 1
)

// Beta0 is the one-loop beta-function coefficient for nf active flavours.
func Beta0(nf int) float64 {
	return 11.0/6.0*sim.CA - 2.0/3.0*sim.TR*float64(nf)
}

// Beta1 is the two-loop beta-function coefficient for nf active flavours.
func Beta1(nf int) float64 {
	return 17.0/6.0*sim.CA*sim.CA - (5.0/3.0*sim.CA+sim.CF)*sim.TR*float64(nf)
}

// Config configures AlphaS.
type Config struct {
	Order      Order
	FixedScale bool    // evaluate at Scale instead of the emission pT
	Scale      float64 // fixed renormalization scale in GeV, typically Q0/2
	Cutoff     float64 // shower cutoff in GeV; running scales are clamped here
}

// AlphaS is the analytic strong coupling with charm and bottom thresholds,
// anchored at α_s(M_Z²). Immutable after construction; safe for concurrent use.
type AlphaS struct {
	order      Order
	fixed      bool
	fixedScale float64
	cutoff     float64
	alphasB    float64 // α_s(m_b²)
	alphasC    float64 // α_s(m_c²)
}

// NewAlphaS validates cfg and precomputes the threshold matching values.
func NewAlphaS(cfg Config) (*AlphaS, error) {
	if cfg.Order != LO && cfg.Order != NLO {
		return nil, fmt.Errorf("%w: alpha_s order must be 0 (LO) or 1 (NLO), got %d", sim.ErrConfiguration, cfg.Order)
	}
	if !(cfg.Cutoff > 0) || math.IsInf(cfg.Cutoff, 0) {
		return nil, fmt.Errorf("%w: alpha_s cutoff must be positive, got %v", sim.ErrConfiguration, cfg.Cutoff)
	}
	if cfg.FixedScale && (!(cfg.Scale > 0) || math.IsInf(cfg.Scale, 0)) {
		return nil, fmt.Errorf("%w: fixed alpha_s scale must be positive, got %v", sim.ErrConfiguration, cfg.Scale)
	}
	a := &AlphaS{
		order:      cfg.Order,
		fixed:      cfg.FixedScale,
		fixedScale: cfg.Scale,
		cutoff:     cfg.Cutoff,
	}
	// The bottom value only needs the Z reference; the charm value needs the bottom one.
	a.alphasB = a.Value(sim.BottomMass * sim.BottomMass)
	a.alphasC = a.Value(sim.CharmMass * sim.CharmMass)

	lowest := a.Value(cfg.Cutoff * cfg.Cutoff)
	if !(lowest > 0) || math.IsInf(lowest, 0) {
		return nil, fmt.Errorf("%w: alpha_s at cutoff %v GeV is %v (below the Landau pole)",
			sim.ErrConfiguration, cfg.Cutoff, lowest)
	}
	return a, nil
}

// Value returns α_s(t) for a squared scale t in GeV².
func (a *AlphaS) Value(t float64) float64 {
	tref, asref, nf := a.reference(t)
	b0 := Beta0(nf) / (2 * math.Pi)
	if a.order == LO {
		return 1.0 / (1.0/asref + b0*math.Log(t/tref))
	}
	b1 := Beta1(nf) / (4 * math.Pi * math.Pi)
	term := 1.0 + b0*asref*math.Log(t/tref)
	return asref / term * (1.0 - b1/b0*asref*math.Log(term)/term)
}

// reference picks the matching point and flavour count for t.
func (a *AlphaS) reference(t float64) (tref, asref float64, nf int) {
	switch {
	case t >= sim.BottomMass*sim.BottomMass:
		return sim.ZMass * sim.ZMass, sim.AlphaSAtZ, 5
	case t >= sim.CharmMass*sim.CharmMass:
		return sim.BottomMass * sim.BottomMass, a.alphasB, 4
	default:
		return sim.CharmMass * sim.CharmMass, a.alphasC, 3
	}
}

// Scale returns the renormalization scale in GeV for an emission at (t, z):
// the fixed scale, or the emission pT = z(1-z)√t clamped at the cutoff.
func (a *AlphaS) Scale(t, z float64) float64 {
	if a.fixed {
		return a.fixedScale
	}
	return math.Max(z*(1-z)*math.Sqrt(t), a.cutoff)
}

// Actual returns α_s/(2π) at the emission's renormalization scale.
func (a *AlphaS) Actual(t, z float64) float64 {
	mu := a.Scale(t, z)
	return a.Value(mu*mu) / (2 * math.Pi)
}

// Overestimate returns α_s/(2π) at the fixed scale, or at max(t, cutoff²)
// when running. Passing cutoff² gives a bound on Actual for every emission.
func (a *AlphaS) Overestimate(t float64) float64 {
	if a.fixed {
		return a.Value(a.fixedScale*a.fixedScale) / (2 * math.Pi)
	}
	return a.Value(math.Max(t, a.cutoff*a.cutoff)) / (2 * math.Pi)
}

// Constant is a scale-independent coupling α/(2π). Actual and Overestimate
// coincide, so the coupling veto always accepts.
type Constant float64

// Actual returns the constant.
func (c Constant) Actual(t, z float64) float64 { return float64(c) }

// Overestimate returns the constant.
func (c Constant) Overestimate(t float64) float64 { return float64(c) }
