package sim

// Event is one unweighted event accepted by the hit-or-miss generator.
// Events are immutable once emitted.
type Event struct {
	Weight      float64         // Jacobian-scaled weight of the accepted point
	Point       PhaseSpacePoint // accepted phase-space point
	Particles   []Particle      // nil when the weight function builds no particles
	Diagnostics []float64       // diagnostic scalars reported by the weight function
}
