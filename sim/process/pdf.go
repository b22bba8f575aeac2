package process

import "math"

// PDF returns x·f(x, Q²) for the parton with PDG code pid (21 = gluon).
// Implementations must be safe for concurrent use.
type PDF interface {
	XfxQ2(pid int, x, q2 float64) float64
}

// LesHouchesToyPDF is the Les Houches benchmark parametrization of the proton
// at Q0² = 2 GeV², without evolution. Charm and heavier flavours are zero.
type LesHouchesToyPDF struct{}

var _ PDF = LesHouchesToyPDF{}

// XfxQ2 ignores q2.
func (LesHouchesToyPDF) XfxQ2(pid int, x, q2 float64) float64 {
	if !(x > 0) || x >= 1 {
		return 0
	}
	dbar := 0.1939875 * math.Pow(x, -0.1) * math.Pow(1-x, 6)
	ubar := (1 - x) * dbar
	switch pid {
	case 2:
		return 5.107200*math.Pow(x, 0.8)*math.Pow(1-x, 3) + ubar
	case -2:
		return ubar
	case 1:
		return 3.064320*math.Pow(x, 0.8)*math.Pow(1-x, 4) + dbar
	case -1:
		return dbar
	case 3, -3:
		return 0.2 * (ubar + dbar)
	case 21:
		return 1.7 * math.Pow(x, -0.1) * math.Pow(1-x, 5)
	default:
		return 0
	}
}
