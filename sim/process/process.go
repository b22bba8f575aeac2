// Package process implements weight functions for concrete scattering
// processes. Each process owns its phase-space bounds, reports its weight in
// picobarn and builds the final-state particles of an accepted point.
package process

import (
	"fmt"
	"math"
	"sort"

	"github.com/colsim/colsim/sim"
)

// Process is a weight function together with the phase space it is defined on.
// Implementations are immutable and safe for concurrent use.
type Process interface {
	sim.WeightFunction
	sim.ParticleBuilder

	// Name returns the registry name of the process.
	Name() string
	// Bounds returns the phase-space bounds the weight is defined over.
	Bounds() []sim.Bound
	// DiagnosticNames labels the diagnostics slice of each evaluation.
	DiagnosticNames() []string
}

// Options carries the collider configuration shared by all processes.
type Options struct {
	ECM                  float64 // centre-of-mass energy in GeV
	MinCutoffEnergy      float64 // lower bound on the invariant mass Q in GeV (hadron colliders)
	TransformationEnergy float64 // Breit-Wigner mapping scale in GeV (0 = MinCutoffEnergy)
	PDF                  PDF     // parton densities (hadron colliders, nil = LesHouchesToyPDF)
}

// ValidProcesses is the set of recognized process names.
var ValidProcesses = map[string]bool{"ee2mumu": true, "pp2zg2ll": true}

// Names returns the recognized process names in sorted order.
func Names() []string {
	names := make([]string, 0, len(ValidProcesses))
	for n := range ValidProcesses {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New creates the named process.
func New(name string, opts Options) (Process, error) {
	if !ValidProcesses[name] {
		return nil, fmt.Errorf("%w: unknown process %q (valid: %v)", sim.ErrConfiguration, name, Names())
	}
	if !(opts.ECM > 0) || math.IsInf(opts.ECM, 0) {
		return nil, fmt.Errorf("%w: centre-of-mass energy must be positive, got %v", sim.ErrConfiguration, opts.ECM)
	}
	switch name {
	case "ee2mumu":
		return NewEEToMuMu(opts.ECM), nil
	default:
		return NewDrellYan(opts)
	}
}

// NewPhaseSpace builds a sampler over the bounds of p.
func NewPhaseSpace(p Process) (*sim.PhaseSpace, error) {
	ps, err := sim.NewPhaseSpace(p.Bounds())
	if err != nil {
		return nil, fmt.Errorf("phase space for %s: %w", p.Name(), err)
	}
	return ps, nil
}
