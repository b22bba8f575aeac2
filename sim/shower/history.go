package shower

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Termination records why an evolution stopped. All values are normal
// outcomes; numerical failures are returned as errors instead.
type Termination string

const (
	// BelowCutoff means the next trial scale fell under SafetyFactor·Qc².
	BelowCutoff Termination = "below_cutoff"
	// NoRoot means the scale equation had no sign change in its bracket.
	NoRoot Termination = "no_root"
	// Unresolved means the bracket collapsed onto a point where the scale
	// equation is not satisfied, typically the pole of the overestimate
	// integral at 4·Qc², and a grid scan above that point found no root
	// either: no emission is left above the cutoff.
	Unresolved Termination = "unresolved"
	// Unphysical means the kernel produced a momentum fraction outside (0, 1).
	Unphysical Termination = "unphysical"
)

// Emission is the outcome of one trial. Vetoed trials carry Z = 1 and zero
// PT2/M2 but still move the evolution scale down.
type Emission struct {
	T         float64 // evolution scale squared, GeV²
	Z         float64 // momentum fraction
	PT2       float64 // z²(1-z)²t
	M2        float64 // z(1-z)t
	Generated bool    // passed both veto tests
	Continue  bool    // evolution may proceed after this trial
}

// Scale returns √t.
func (e Emission) Scale() float64 { return math.Sqrt(e.T) }

// PT returns the transverse momentum.
func (e Emission) PT() float64 { return math.Sqrt(e.PT2) }

// M returns the virtual mass of the splitting.
func (e Emission) M() float64 { return math.Sqrt(e.M2) }

// History is the ordered, strictly decreasing list of accepted emissions of
// one parton line.
type History struct {
	StartScale  float64 // Q0 in GeV
	Cutoff      float64 // Qc in GeV
	Emissions   []Emission
	Trials      int // trial emissions attempted, including vetoed ones
	Termination Termination
}

// logEmissionsTable writes a history as a table at debug level.
func logEmissionsTable(h *History) {
	if len(h.Emissions) == 0 || !logrus.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	const rule = "+---+--------------------+---------------------+--------------------+---------------------------+"
	logrus.Debugf("emissions from Q0=%.3f GeV (%d trials, %s):", h.StartScale, h.Trials, h.Termination)
	logrus.Debug(rule)
	logrus.Debug("| # |  Evo scale [GeV]   |         1-z         |      pT [GeV]      | virt. mass in a->bc [GeV] |")
	logrus.Debug(rule)
	for i, e := range h.Emissions {
		logrus.Debugf("| %d |      %8.3f      | %19.15f | %18.15f |     %17.14f     |",
			i, e.Scale(), 1-e.Z, e.PT(), e.M())
	}
	logrus.Debug(rule)
}
