package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// PhaseSpacePoint is one draw from a PhaseSpace. Its length always equals the
// sampler's dimensionality.
type PhaseSpacePoint []float64

// Bound declares one axis of a phase-space hyper-rectangle, sampled over [Min, Max).
type Bound struct {
	Name string
	Min  float64
	Max  float64
}

// PhaseSpace draws points uniformly inside an axis-aligned hyper-rectangle.
// The dimensionality is fixed at construction; bounds can be revised with
// SetBounds, which recomputes deltas and volume in the same call.
type PhaseSpace struct {
	bounds []Bound
	min    []float64
	max    []float64
	delta  []float64
	volume float64
}

// NewPhaseSpace creates a sampler over the given bounds.
func NewPhaseSpace(bounds []Bound) (*PhaseSpace, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("%w: phase space needs at least one dimension", ErrConfiguration)
	}
	n := len(bounds)
	ps := &PhaseSpace{
		bounds: make([]Bound, n),
		min:    make([]float64, n),
		max:    make([]float64, n),
		delta:  make([]float64, n),
	}
	if err := ps.SetBounds(bounds); err != nil {
		return nil, err
	}
	return ps, nil
}

// SetBounds replaces every bound. The number of bounds must match Dims().
// On error the previous bounds stay in effect.
func (ps *PhaseSpace) SetBounds(bounds []Bound) error {
	if len(bounds) != len(ps.bounds) {
		return fmt.Errorf("%w: phase space has %d dimensions, got %d bounds",
			ErrConfiguration, len(ps.bounds), len(bounds))
	}
	for i, b := range bounds {
		if err := validateBound(i, b); err != nil {
			return err
		}
	}
	for i, b := range bounds {
		ps.bounds[i] = b
		ps.min[i] = b.Min
		ps.max[i] = b.Max
	}
	floats.SubTo(ps.delta, ps.max, ps.min)
	ps.volume = floats.Prod(ps.delta)
	return nil
}

func validateBound(idx int, b Bound) error {
	if math.IsNaN(b.Min) || math.IsInf(b.Min, 0) || math.IsNaN(b.Max) || math.IsInf(b.Max, 0) {
		return fmt.Errorf("%w: bound[%d] %q must be finite, got [%v, %v)", ErrConfiguration, idx, b.Name, b.Min, b.Max)
	}
	if b.Min >= b.Max {
		return fmt.Errorf("%w: bound[%d] %q needs min < max, got [%v, %v)", ErrConfiguration, idx, b.Name, b.Min, b.Max)
	}
	return nil
}

// Sample draws each coordinate independently and uniformly from [min_i, max_i).
func (ps *PhaseSpace) Sample(rng RandomSource) PhaseSpacePoint {
	p := make(PhaseSpacePoint, len(ps.delta))
	for i := range p {
		p[i] = ps.min[i] + rng.Float64()*ps.delta[i]
		// Guard the open upper edge against rounding in min + u*delta.
		if p[i] >= ps.max[i] {
			p[i] = math.Nextafter(ps.max[i], ps.min[i])
		}
	}
	return p
}

// Dims returns the fixed dimensionality.
func (ps *PhaseSpace) Dims() int {
	return len(ps.delta)
}

// Deltas returns max_i - min_i per dimension. The slice is a copy.
func (ps *PhaseSpace) Deltas() []float64 {
	out := make([]float64, len(ps.delta))
	copy(out, ps.delta)
	return out
}

// Volume returns the product of the deltas: the Monte-Carlo Jacobian.
func (ps *PhaseSpace) Volume() float64 {
	return ps.volume
}

// Bounds returns a copy of the current bounds.
func (ps *PhaseSpace) Bounds() []Bound {
	out := make([]Bound, len(ps.bounds))
	copy(out, ps.bounds)
	return out
}

// Contains reports whether p lies inside the current hyper-rectangle.
func (ps *PhaseSpace) Contains(p PhaseSpacePoint) bool {
	if len(p) != len(ps.delta) {
		return false
	}
	for i, x := range p {
		if x < ps.min[i] || x >= ps.max[i] {
			return false
		}
	}
	return true
}
