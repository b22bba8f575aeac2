package shower

import (
	"math"

	"github.com/colsim/colsim/sim"
)

// Kernel is a splitting function together with the analytically integrable
// overestimate used to generate trial emissions. Overestimate(z) must be
// >= Splitting(z) inside Limits.
type Kernel interface {
	// Splitting is the true splitting function P(z).
	Splitting(z float64) float64
	// Overestimate is the bounding function used for trial generation.
	Overestimate(z float64) float64
	// Integral is the primitive Γ(z) of alpha·Overestimate.
	Integral(z, alpha float64) float64
	// InverseIntegral solves Γ(z) = r for z.
	InverseIntegral(r, alpha float64) float64
	// Limits returns the z range [zm, zp] open at scale t for cutoff qc.
	Limits(t, qc float64) (zm, zp float64)
}

// QuarkKernel is the q -> qg kernel, P(z) = CF(1+z²)/(1-z), with the soft
// overestimate 2CF/(1-z) and cutoff limits [Qc/√t, 1-Qc/√t].
type QuarkKernel struct{}

var _ Kernel = QuarkKernel{}

func (QuarkKernel) Splitting(z float64) float64 {
	return sim.CF * (1 + z*z) / (1 - z)
}

func (QuarkKernel) Overestimate(z float64) float64 {
	return 2 * sim.CF / (1 - z)
}

func (QuarkKernel) Integral(z, alpha float64) float64 {
	return -2 * alpha * sim.CF * math.Log1p(-z)
}

func (QuarkKernel) InverseIntegral(r, alpha float64) float64 {
	return 1 - math.Exp(-0.5*r/(sim.CF*alpha))
}

func (QuarkKernel) Limits(t, qc float64) (zm, zp float64) {
	x := math.Sqrt(qc * qc / t)
	return x, 1 - x
}
