package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// GeneratorStats counts the draws made by an EventGenerator.
type GeneratorStats struct {
	Trials   int64   // points drawn, including invalid ones
	Accepted int64   // events emitted
	Invalid  int64   // points rejected by the weight function
	MaxRatio float64 // largest weight/envelope ratio seen on a valid draw
}

// AcceptanceRate returns Accepted/Trials, or 0 before the first trial.
func (s GeneratorStats) AcceptanceRate() float64 {
	if s.Trials == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Trials)
}

// EventGenerator produces unweighted events by hit-or-miss sampling against
// an envelope on the Jacobian-scaled weight, normally the MaxWeight of a prior
// integration run. It borrows the sampler and weight function and is not safe
// for concurrent use.
type EventGenerator struct {
	ps        *PhaseSpace
	fn        WeightFunction
	rng       RandomSource
	builder   ParticleBuilder // nil when fn builds no particles
	envelope  float64
	maxTrials int64
	stats     GeneratorStats
}

// NewEventGenerator validates its inputs and returns a generator whose
// effective envelope is envelope * cfg.EnvelopeFactor.
func NewEventGenerator(ps *PhaseSpace, fn WeightFunction, rng RandomSource, envelope float64, cfg GeneratorConfig) (*EventGenerator, error) {
	if ps == nil || fn == nil || rng == nil {
		return nil, fmt.Errorf("%w: event generator needs a phase space, weight function and random source", ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !(envelope > 0) || math.IsInf(envelope, 0) {
		return nil, fmt.Errorf("%w: envelope must be positive and finite, got %v", ErrConfiguration, envelope)
	}
	g := &EventGenerator{
		ps:        ps,
		fn:        fn,
		rng:       rng,
		envelope:  envelope * cfg.envelopeFactor(),
		maxTrials: cfg.trialCap(),
	}
	if b, ok := fn.(ParticleBuilder); ok {
		g.builder = b
	}
	return g, nil
}

// Envelope returns the effective envelope including the configured factor.
func (g *EventGenerator) Envelope() float64 {
	return g.envelope
}

// Stats returns the draw counters accumulated so far.
func (g *EventGenerator) Stats() GeneratorStats {
	return g.stats
}

// ExpectedTrialsPerEvent returns envelope/estimate, the mean number of valid
// draws per accepted event. Both quantities already include the Jacobian.
func (g *EventGenerator) ExpectedTrialsPerEvent(estimate float64) float64 {
	if estimate <= 0 {
		return math.Inf(1)
	}
	return g.envelope / estimate
}

// Next draws points until one is accepted. A sample whose ratio exceeds 1
// aborts with ErrEnvelopeViolation; running past the per-event trial cap
// aborts with ErrTrialsExhausted.
func (g *EventGenerator) Next() (Event, error) {
	for trial := int64(0); trial < g.maxTrials; trial++ {
		g.stats.Trials++
		p := g.ps.Sample(g.rng)
		ev := g.fn.Evaluate(p)
		if !ev.Valid {
			g.stats.Invalid++
			continue
		}
		if math.IsNaN(ev.Weight) || math.IsInf(ev.Weight, 0) {
			return Event{}, fmt.Errorf("%w: %v at %v", ErrNonFiniteWeight, ev.Weight, p)
		}
		w := ev.Weight * g.ps.Volume()
		ratio := w / g.envelope
		if ratio > g.stats.MaxRatio {
			g.stats.MaxRatio = ratio
		}
		if ratio > 1 {
			return Event{}, fmt.Errorf("%w: weight %.9g exceeds envelope %.9g (ratio %.6f) at %v",
				ErrEnvelopeViolation, w, g.envelope, ratio, p)
		}
		if g.rng.Float64() > ratio {
			continue
		}

		event := Event{
			Weight:      w,
			Point:       p,
			Diagnostics: ev.Diagnostics,
		}
		if g.builder != nil {
			particles, err := g.builder.BuildParticles(p, g.rng)
			if err != nil {
				return Event{}, fmt.Errorf("building particles at %v: %w", p, err)
			}
			event.Particles = particles
		}
		g.stats.Accepted++
		logrus.Debugf("event accepted after %d trials: weight=%.6g ratio=%.4f", trial+1, w, ratio)
		return event, nil
	}
	return Event{}, fmt.Errorf("%w: no event accepted in %d trials (envelope %.9g)",
		ErrTrialsExhausted, g.maxTrials, g.envelope)
}

// Generate emits n events to sink in acceptance order. It stops at the first
// generator or sink error.
func (g *EventGenerator) Generate(n int, sink func(Event) error) error {
	if n < 0 {
		return fmt.Errorf("%w: event count must be non-negative, got %d", ErrConfiguration, n)
	}
	for i := 0; i < n; i++ {
		ev, err := g.Next()
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if err := sink(ev); err != nil {
			return fmt.Errorf("event sink at event %d: %w", i, err)
		}
	}
	return nil
}
