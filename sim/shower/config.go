package shower

import (
	"fmt"
	"math"

	"github.com/colsim/colsim/sim"
)

// Default evolution parameters.
const (
	DefaultSafetyFactor  = 4.0
	DefaultBracketFactor = 3.9999
	DefaultTolerance     = 1e-3
	DefaultMaxIterations = 1000
	DefaultMaxTrials     = 10000
)

// Config groups the parameters of one Sudakov evolution.
type Config struct {
	InitialScale float64 // Q0 in GeV
	Cutoff       float64 // Qc in GeV

	// Evolution stops once t·z² falls below SafetyFactor·Qc².
	SafetyFactor float64
	// Lower end of the scale bracket is BracketFactor·Qc². Must not exceed SafetyFactor.
	BracketFactor float64
	Tolerance     float64 // bisection bracket width and residual tolerance
	MaxIterations int     // bisection iteration cap per trial
	MaxTrials     int     // trial cap per evolution

	// OverestimateScale is where the coupling overestimate is evaluated, in GeV.
	// 0 selects the cutoff, the largest running coupling in the evolution range.
	OverestimateScale float64
}

// DefaultConfig returns a Config with the default evolution parameters.
func DefaultConfig(initialScale, cutoff float64) Config {
	return Config{
		InitialScale:  initialScale,
		Cutoff:        cutoff,
		SafetyFactor:  DefaultSafetyFactor,
		BracketFactor: DefaultBracketFactor,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		MaxTrials:     DefaultMaxTrials,
	}
}

// Validate checks that the config can drive an evolution.
func (c Config) Validate() error {
	if !positiveFinite(c.InitialScale) {
		return fmt.Errorf("%w: shower initial scale must be positive, got %v", sim.ErrConfiguration, c.InitialScale)
	}
	if !positiveFinite(c.Cutoff) {
		return fmt.Errorf("%w: shower cutoff must be positive, got %v", sim.ErrConfiguration, c.Cutoff)
	}
	if !(c.SafetyFactor > 1) || math.IsInf(c.SafetyFactor, 0) {
		return fmt.Errorf("%w: shower safety factor must be > 1, got %v", sim.ErrConfiguration, c.SafetyFactor)
	}
	if !(c.BracketFactor > 0) || c.BracketFactor > c.SafetyFactor {
		return fmt.Errorf("%w: shower bracket factor must be in (0, %v], got %v",
			sim.ErrConfiguration, c.SafetyFactor, c.BracketFactor)
	}
	if !positiveFinite(c.Tolerance) {
		return fmt.Errorf("%w: shower tolerance must be positive, got %v", sim.ErrConfiguration, c.Tolerance)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: shower max iterations must be positive, got %d", sim.ErrConfiguration, c.MaxIterations)
	}
	if c.MaxTrials <= 0 {
		return fmt.Errorf("%w: shower max trials must be positive, got %d", sim.ErrConfiguration, c.MaxTrials)
	}
	if c.OverestimateScale < 0 || math.IsNaN(c.OverestimateScale) || math.IsInf(c.OverestimateScale, 0) {
		return fmt.Errorf("%w: shower overestimate scale must be >= 0, got %v", sim.ErrConfiguration, c.OverestimateScale)
	}
	return nil
}

// overestimateScale resolves the scale in GeV at which the coupling
// overestimate is taken.
func (c Config) overestimateScale() float64 {
	if c.OverestimateScale > 0 {
		return c.OverestimateScale
	}
	return c.Cutoff
}

func positiveFinite(x float64) bool {
	return x > 0 && !math.IsInf(x, 0)
}
