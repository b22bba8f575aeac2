package sim

// Evaluation is the outcome of evaluating a weight function at one point.
// An invalid evaluation means the point must be discarded and redrawn.
type Evaluation struct {
	Weight      float64
	Diagnostics []float64
	Valid       bool
}

// Valid builds a valid evaluation carrying optional diagnostic scalars.
func Valid(weight float64, diagnostics ...float64) Evaluation {
	return Evaluation{Weight: weight, Diagnostics: diagnostics, Valid: true}
}

// Invalid builds an evaluation that rejects the sampled point.
func Invalid() Evaluation {
	return Evaluation{}
}

// WeightFunction evaluates the (unnormalized) differential cross section at a
// phase-space point. It must be pure given its inputs; implementations used
// with IntegrateParallel must also be safe for concurrent use.
type WeightFunction interface {
	Evaluate(p PhaseSpacePoint) Evaluation
}

// WeightFunc adapts an ordinary function to WeightFunction.
type WeightFunc func(p PhaseSpacePoint) Evaluation

// Evaluate calls f(p).
func (f WeightFunc) Evaluate(p PhaseSpacePoint) Evaluation {
	return f(p)
}

// ParticleBuilder is an optional capability of a weight function: it turns an
// accepted phase-space point into final-state particles. rng is the
// generator's stream, for degrees of freedom the weight does not depend on.
type ParticleBuilder interface {
	BuildParticles(p PhaseSpacePoint, rng RandomSource) ([]Particle, error)
}
