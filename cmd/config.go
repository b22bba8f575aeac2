package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/colsim/colsim/sim"
	"github.com/colsim/colsim/sim/coupling"
	"github.com/colsim/colsim/sim/process"
	"github.com/colsim/colsim/sim/shower"
)

// RunConfig represents a full run configuration file.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type RunConfig struct {
	Seed        int64             `yaml:"seed"`
	Process     ProcessConfig     `yaml:"process"`
	Integration IntegrationConfig `yaml:"integration"`
	Generation  GenerationConfig  `yaml:"generation"`
	Shower      ShowerConfig      `yaml:"shower"`
	Output      OutputConfig      `yaml:"output"`
}

// ProcessConfig selects the hard process and collider.
type ProcessConfig struct {
	Name                 string  `yaml:"name"`
	ECM                  float64 `yaml:"ecm"`                   // GeV
	MinCutoffEnergy      float64 `yaml:"min_cutoff_energy"`     // GeV
	TransformationEnergy float64 `yaml:"transformation_energy"` // GeV, 0 = min_cutoff_energy
}

// IntegrationConfig holds the cross-section integration budget.
type IntegrationConfig struct {
	Evaluations int64 `yaml:"evaluations"`
	MaxAttempts int64 `yaml:"max_attempts"` // 0 = 10*evaluations + 1000
	Workers     int   `yaml:"workers"`
}

// GenerationConfig holds the unweighted event generation parameters.
type GenerationConfig struct {
	Events            int     `yaml:"events"`
	MaxTrialsPerEvent int64   `yaml:"max_trials_per_event"`
	EnvelopeFactor    float64 `yaml:"envelope_factor"` // multiplies the sampled maximum weight
}

// ShowerConfig holds the Sudakov evolution parameters.
type ShowerConfig struct {
	InitialScale  float64 `yaml:"initial_scale"` // GeV
	Cutoff        float64 `yaml:"cutoff"`        // GeV
	FixedScale    bool    `yaml:"fixed_scale"`
	Order         int     `yaml:"order"` // 0 = LO, 1 = NLO
	Evolutions    int     `yaml:"evolutions"`
	SafetyFactor  float64 `yaml:"safety_factor"`
	BracketFactor float64 `yaml:"bracket_factor"`
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
	MaxTrials     int     `yaml:"max_trials"`
}

// OutputConfig selects where runs are persisted.
type OutputConfig struct {
	Database string `yaml:"database"` // empty = do not persist
}

// DefaultEnvelopeFactor is the safety margin applied over the maximum weight
// seen during integration, which sits below the true peak of a narrow resonance.
const DefaultEnvelopeFactor = 1.2

// DefaultRunConfig returns the configuration used when no file is given.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Seed: 42,
		Process: ProcessConfig{
			Name:            "pp2zg2ll",
			ECM:             14000,
			MinCutoffEnergy: 60,
		},
		Integration: IntegrationConfig{
			Evaluations: 1_000_000,
			Workers:     1,
		},
		Generation: GenerationConfig{
			Events:         100,
			EnvelopeFactor: DefaultEnvelopeFactor,
		},
		Shower: ShowerConfig{
			InitialScale:  1000,
			Cutoff:        1,
			FixedScale:    true,
			Order:         int(coupling.LO),
			Evolutions:    1000,
			SafetyFactor:  shower.DefaultSafetyFactor,
			BracketFactor: shower.DefaultBracketFactor,
			Tolerance:     shower.DefaultTolerance,
			MaxIterations: shower.DefaultMaxIterations,
			MaxTrials:     shower.DefaultMaxTrials,
		},
	}
}

// LoadRunConfig reads a YAML run configuration on top of DefaultRunConfig.
// Unknown keys are rejected.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	cfg := DefaultRunConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return cfg, nil
}

// Validate checks every section. Stage-specific checks that need built
// objects (phase space, coupling) happen when those objects are constructed.
func (c *RunConfig) Validate() error {
	if !process.ValidProcesses[c.Process.Name] {
		return fmt.Errorf("process: unknown name %q; valid: %v", c.Process.Name, process.Names())
	}
	if c.Process.ECM <= 0 {
		return fmt.Errorf("process: ecm must be positive, got %f", c.Process.ECM)
	}
	if err := c.integration().Validate(); err != nil {
		return fmt.Errorf("integration: %w", err)
	}
	if c.Integration.Workers <= 0 {
		return fmt.Errorf("integration: workers must be positive, got %d", c.Integration.Workers)
	}
	if c.Generation.Events < 0 {
		return fmt.Errorf("generation: events must be non-negative, got %d", c.Generation.Events)
	}
	if err := c.generator().Validate(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	if c.Shower.Order != int(coupling.LO) && c.Shower.Order != int(coupling.NLO) {
		return fmt.Errorf("shower: order must be 0 (LO) or 1 (NLO), got %d", c.Shower.Order)
	}
	if c.Shower.Evolutions < 0 {
		return fmt.Errorf("shower: evolutions must be non-negative, got %d", c.Shower.Evolutions)
	}
	if err := c.evolution().Validate(); err != nil {
		return fmt.Errorf("shower: %w", err)
	}
	return nil
}

func (c *RunConfig) processOptions() process.Options {
	return process.Options{
		ECM:                  c.Process.ECM,
		MinCutoffEnergy:      c.Process.MinCutoffEnergy,
		TransformationEnergy: c.Process.TransformationEnergy,
	}
}

func (c *RunConfig) integration() sim.IntegrationConfig {
	return sim.NewIntegrationConfig(c.Integration.Evaluations, c.Integration.MaxAttempts)
}

func (c *RunConfig) generator() sim.GeneratorConfig {
	return sim.NewGeneratorConfig(c.Generation.MaxTrialsPerEvent, c.Generation.EnvelopeFactor)
}

func (c *RunConfig) evolution() shower.Config {
	return shower.Config{
		InitialScale:  c.Shower.InitialScale,
		Cutoff:        c.Shower.Cutoff,
		SafetyFactor:  c.Shower.SafetyFactor,
		BracketFactor: c.Shower.BracketFactor,
		Tolerance:     c.Shower.Tolerance,
		MaxIterations: c.Shower.MaxIterations,
		MaxTrials:     c.Shower.MaxTrials,
	}
}

// couplingConfig fixes the scale at Q0/2 when FixedScale is set.
func (c *RunConfig) couplingConfig() coupling.Config {
	return coupling.Config{
		Order:      coupling.Order(c.Shower.Order),
		FixedScale: c.Shower.FixedScale,
		Scale:      c.Shower.InitialScale / 2,
		Cutoff:     c.Shower.Cutoff,
	}
}
