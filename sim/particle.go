package sim

import (
	"fmt"
	"math"
)

// FourVector is a four-momentum (E, px, py, pz) in GeV.
type FourVector [4]float64

// NewFourVector builds a four-momentum from its components.
func NewFourVector(e, px, py, pz float64) FourVector {
	return FourVector{e, px, py, pz}
}

func (v FourVector) E() float64  { return v[0] }
func (v FourVector) Px() float64 { return v[1] }
func (v FourVector) Py() float64 { return v[2] }
func (v FourVector) Pz() float64 { return v[3] }

// Pt2 returns the squared transverse momentum.
func (v FourVector) Pt2() float64 {
	return v[1]*v[1] + v[2]*v[2]
}

// Pt returns the transverse momentum.
func (v FourVector) Pt() float64 {
	return math.Sqrt(v.Pt2())
}

// Mass2 returns the Minkowski square E² - |p|².
func (v FourVector) Mass2() float64 {
	return v[0]*v[0] - v[1]*v[1] - v[2]*v[2] - v[3]*v[3]
}

// Add returns the component-wise sum.
func (v FourVector) Add(o FourVector) FourVector {
	return FourVector{v[0] + o[0], v[1] + o[1], v[2] + o[2], v[3] + o[3]}
}

// ZBoost applies a Lorentz boost with velocity beta along the z axis:
// E' = γ(E - βpz), pz' = γ(pz - βE).
func (v FourVector) ZBoost(beta float64) FourVector {
	gamma := 1.0 / math.Sqrt(1.0-beta*beta)
	return FourVector{
		gamma * (v[0] - beta*v[3]),
		v[1],
		v[2],
		gamma * (v[3] - beta*v[0]),
	}
}

func (v FourVector) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", v[0], v[1], v[2], v[3])
}

// Particle is a final- or initial-state particle of an event.
type Particle struct {
	Momentum FourVector
	PID      int    // PDG particle ID
	Name     string // short label, e.g. "mu-"
}

func (p Particle) String() string {
	return fmt.Sprintf("%s (%d) %s", p.Name, p.PID, p.Momentum)
}
