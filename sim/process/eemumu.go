package process

import (
	"math"

	"github.com/colsim/colsim/sim"
)

// EEToMuMu is e⁺e⁻ -> γ/Z -> μ⁺μ⁻ at fixed centre-of-mass energy.
// The only phase-space variable is cosθ of the outgoing muon; φ is
// integrated analytically and drawn uniformly when particles are built.
type EEToMuMu struct {
	ecm float64
	s   float64
}

var _ Process = (*EEToMuMu)(nil)

// NewEEToMuMu creates the process at ecm GeV.
func NewEEToMuMu(ecm float64) *EEToMuMu {
	return &EEToMuMu{ecm: ecm, s: ecm * ecm}
}

func (p *EEToMuMu) Name() string { return "ee2mumu" }

func (p *EEToMuMu) Bounds() []sim.Bound {
	return []sim.Bound{{Name: "cos_theta", Min: -1, Max: 1}}
}

func (p *EEToMuMu) DiagnosticNames() []string {
	return []string{"ecm", "cos_theta"}
}

// Evaluate returns dσ/dcosθ in pb.
func (p *EEToMuMu) Evaluate(pt sim.PhaseSpacePoint) sim.Evaluation {
	cosTheta := pt[0]
	if cosTheta < -1 || cosTheta > 1 {
		return sim.Invalid()
	}
	w := dsigmaHat(lepton, p.s, cosTheta, 1) * sim.GeV2ToPb
	return sim.Valid(w, p.ecm, cosTheta)
}

// TotalCrossSection returns the analytic σ in pb: the cosθ term integrates
// to zero and (1 + cos²θ) to 8/3.
func (p *EEToMuMu) TotalCrossSection() float64 {
	return 2 * math.Pi * sim.AlphaEM * sim.AlphaEM / (4 * p.s) * a0(lepton, p.s) * 8.0 / 3.0 * sim.GeV2ToPb
}

// BuildParticles returns e⁻, e⁺ along ±z and the μ⁻μ⁺ pair at the accepted
// cosθ with a uniform azimuth drawn from rng.
func (p *EEToMuMu) BuildParticles(pt sim.PhaseSpacePoint, rng sim.RandomSource) ([]sim.Particle, error) {
	e := 0.5 * p.ecm
	muMinus, muPlus := backToBack(p.ecm, pt[0], 2*math.Pi*rng.Float64())
	return []sim.Particle{
		{Momentum: sim.NewFourVector(e, 0, 0, e), PID: 11, Name: "e-"},
		{Momentum: sim.NewFourVector(e, 0, 0, -e), PID: -11, Name: "e+"},
		{Momentum: muMinus, PID: 13, Name: "mu-"},
		{Momentum: muPlus, PID: -13, Name: "mu+"},
	}, nil
}
