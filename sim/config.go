package sim

import "fmt"

// defaultAttemptsPerEvaluation bounds invalid-sample retries when
// IntegrationConfig.MaxAttempts is left at zero.
const (
	defaultAttemptsPerEvaluation = 10
	defaultAttemptsSlack         = 1000
	defaultMaxTrialsPerEvent     = 10_000_000
)

// IntegrationConfig groups Monte-Carlo integration parameters.
type IntegrationConfig struct {
	NumEvaluations int64 // valid weight evaluations to accumulate (must be > 0)
	MaxAttempts    int64 // cap on total evaluations incl. invalid ones (0 = 10*N + 1000)
}

// NewIntegrationConfig creates an IntegrationConfig. Zero-valued arguments are kept as-is.
func NewIntegrationConfig(numEvaluations, maxAttempts int64) IntegrationConfig {
	return IntegrationConfig{NumEvaluations: numEvaluations, MaxAttempts: maxAttempts}
}

// Validate checks that the config can drive an integration run.
func (c IntegrationConfig) Validate() error {
	if c.NumEvaluations <= 0 {
		return fmt.Errorf("%w: integration evaluations must be positive, got %d", ErrConfiguration, c.NumEvaluations)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("%w: integration max attempts must be non-negative, got %d", ErrConfiguration, c.MaxAttempts)
	}
	if c.MaxAttempts > 0 && c.MaxAttempts < c.NumEvaluations {
		return fmt.Errorf("%w: integration max attempts %d below evaluations %d", ErrConfiguration, c.MaxAttempts, c.NumEvaluations)
	}
	return nil
}

// attemptCap resolves the effective cap on total weight evaluations.
func (c IntegrationConfig) attemptCap() int64 {
	if c.MaxAttempts > 0 {
		return c.MaxAttempts
	}
	return defaultAttemptsPerEvaluation*c.NumEvaluations + defaultAttemptsSlack
}

// GeneratorConfig groups hit-or-miss event generation parameters.
type GeneratorConfig struct {
	MaxTrialsPerEvent int64   // draws allowed per accepted event (0 = 1e7)
	EnvelopeFactor    float64 // multiplier applied to the integration max weight (0 = 1)
}

// NewGeneratorConfig creates a GeneratorConfig. Zero-valued arguments are kept as-is.
func NewGeneratorConfig(maxTrialsPerEvent int64, envelopeFactor float64) GeneratorConfig {
	return GeneratorConfig{MaxTrialsPerEvent: maxTrialsPerEvent, EnvelopeFactor: envelopeFactor}
}

// Validate checks generator limits.
func (c GeneratorConfig) Validate() error {
	if c.MaxTrialsPerEvent < 0 {
		return fmt.Errorf("%w: max trials per event must be non-negative, got %d", ErrConfiguration, c.MaxTrialsPerEvent)
	}
	if c.EnvelopeFactor < 0 || (c.EnvelopeFactor > 0 && c.EnvelopeFactor < 1) {
		return fmt.Errorf("%w: envelope factor must be 0 (default) or >= 1, got %v", ErrConfiguration, c.EnvelopeFactor)
	}
	return nil
}

func (c GeneratorConfig) trialCap() int64 {
	if c.MaxTrialsPerEvent > 0 {
		return c.MaxTrialsPerEvent
	}
	return defaultMaxTrialsPerEvent
}

func (c GeneratorConfig) envelopeFactor() float64 {
	if c.EnvelopeFactor > 0 {
		return c.EnvelopeFactor
	}
	return 1
}
