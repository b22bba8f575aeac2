package process

import (
	"math"

	"github.com/colsim/colsim/sim"
)

// fermion holds the electric charge and the vector/axial Z couplings.
type fermion struct {
	charge float64
	vector float64
	axial  float64
}

var (
	lepton    = fermion{charge: -1, vector: -0.5 + 2*sim.SinSqWeinberg, axial: -0.5}
	upQuark   = fermion{charge: 2.0 / 3.0, vector: 0.5 - 4.0/3.0*sim.SinSqWeinberg, axial: 0.5}
	downQuark = fermion{charge: -1.0 / 3.0, vector: -0.5 + 2.0/3.0*sim.SinSqWeinberg, axial: -0.5}
)

const (
	zMass2  = sim.ZMass * sim.ZMass
	zWidth2 = sim.ZWidth * sim.ZWidth
)

// kappa is √2·G_F·M_Z²/(4πα).
var kappa = math.Sqrt2 * sim.FermiConstant * zMass2 / (4 * math.Pi * sim.AlphaEM)

// chi1 is the γ-Z interference propagator factor.
func chi1(s float64) float64 {
	return kappa * s * (s - zMass2) / ((s-zMass2)*(s-zMass2) + zWidth2*zMass2)
}

// chi2 is the pure Z propagator factor.
func chi2(s float64) float64 {
	return kappa * kappa * s * s / ((s-zMass2)*(s-zMass2) + zWidth2*zMass2)
}

// a0 is the coefficient of (1 + cos²θ) for f f̄ -> γ/Z -> l⁺l⁻.
func a0(f fermion, s float64) float64 {
	l := lepton
	return f.charge*f.charge -
		2*f.charge*l.vector*f.vector*chi1(s) +
		(l.axial*l.axial+l.vector*l.vector)*(f.axial*f.axial+f.vector*f.vector)*chi2(s)
}

// a1 is the coefficient of cosθ, the forward-backward asymmetry.
func a1(f fermion, s float64) float64 {
	l := lepton
	return -4*f.charge*l.axial*f.axial*chi1(s) +
		8*l.axial*l.vector*f.axial*f.vector*chi2(s)
}

// dsigmaHat is dσ/dcosθ in GeV⁻² for f f̄ -> l⁺l⁻ at squared energy s,
// averaged over colourAverage initial colour states.
func dsigmaHat(f fermion, s, cosTheta, colourAverage float64) float64 {
	return 2 * math.Pi * sim.AlphaEM * sim.AlphaEM / (4 * colourAverage * s) *
		(a0(f, s)*(1+cosTheta*cosTheta) + a1(f, s)*cosTheta)
}

// backToBack returns a pair of massless momenta of total energy q in their
// rest frame, the first along (θ, φ).
func backToBack(q, cosTheta, phi float64) (sim.FourVector, sim.FourVector) {
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	e := 0.5 * q
	px := e * sinTheta * math.Cos(phi)
	py := e * sinTheta * math.Sin(phi)
	pz := e * cosTheta
	return sim.NewFourVector(e, px, py, pz), sim.NewFourVector(e, -px, -py, -pz)
}
