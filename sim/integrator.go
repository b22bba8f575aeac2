package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ctxCheckInterval is how many attempts a worker runs between context checks.
const ctxCheckInterval = 4096

// IntegrationResult holds the outcome of one Monte-Carlo integration run.
// MaxWeight is >= every Jacobian-scaled weight observed during the run and
// MaxPoint is the point that produced it. Immutable after Integrate returns.
type IntegrationResult struct {
	Estimate       float64
	StandardError  float64
	Variance       float64
	MaxWeight      float64
	MaxPoint       PhaseSpacePoint
	Evaluations    int64 // valid samples accumulated
	InvalidSamples int64 // samples rejected by the weight function and redrawn
}

// Accumulator collects Σw, Σw², the sample count and the running maximum.
// Per-worker accumulators are combined with Merge; the random streams are not.
type Accumulator struct {
	n         int64
	invalid   int64
	sum       float64
	sumSq     float64
	maxWeight float64
	maxPoint  PhaseSpacePoint
}

// Add records one Jacobian-scaled weight observed at p.
func (a *Accumulator) Add(w float64, p PhaseSpacePoint) {
	if a.n == 0 || w > a.maxWeight {
		a.maxWeight = w
		a.maxPoint = append(a.maxPoint[:0], p...)
	}
	a.n++
	a.sum += w
	a.sumSq += w * w
}

// AddInvalid counts one rejected sample.
func (a *Accumulator) AddInvalid() {
	a.invalid++
}

// Merge folds o into a. Ties on the maximum keep a's point, so merging in a
// fixed order is deterministic.
func (a *Accumulator) Merge(o *Accumulator) {
	if o.n > 0 && (a.n == 0 || o.maxWeight > a.maxWeight) {
		a.maxWeight = o.maxWeight
		a.maxPoint = append(a.maxPoint[:0], o.maxPoint...)
	}
	a.n += o.n
	a.invalid += o.invalid
	a.sum += o.sum
	a.sumSq += o.sumSq
}

// Count returns the number of valid samples accumulated.
func (a *Accumulator) Count() int64 {
	return a.n
}

// Result computes the crude Monte-Carlo estimate:
// estimate = Σw/N, variance = Σw²/N - estimate², standardError = sqrt(variance/N).
// The variance is biased but consistent; do not over-interpret it for small N.
func (a *Accumulator) Result() *IntegrationResult {
	res := &IntegrationResult{
		Evaluations:    a.n,
		InvalidSamples: a.invalid,
	}
	if a.n == 0 {
		return res
	}
	n := float64(a.n)
	res.Estimate = a.sum / n
	// Cancellation can leave a tiny negative value for near-constant weights.
	res.Variance = math.Max(a.sumSq/n-res.Estimate*res.Estimate, 0)
	res.StandardError = math.Sqrt(res.Variance / n)
	res.MaxWeight = a.maxWeight
	res.MaxPoint = append(PhaseSpacePoint(nil), a.maxPoint...)
	return res
}

// Integrate estimates ∫ fn over the sampler's hyper-rectangle with
// cfg.NumEvaluations valid samples drawn from rng.
// Invalid samples are redrawn without consuming the budget; once the total
// attempt cap is reached the run fails with ErrConvergenceFailure.
func Integrate(ps *PhaseSpace, fn WeightFunction, rng RandomSource, cfg IntegrationConfig) (*IntegrationResult, error) {
	if err := checkIntegrationInputs(ps, fn, cfg); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrConfiguration)
	}
	acc := &Accumulator{}
	if err := accumulate(context.Background(), acc, ps, fn, rng, cfg.NumEvaluations, cfg.attemptCap()); err != nil {
		return nil, err
	}
	res := acc.Result()
	logrus.Debugf("integration: N=%d invalid=%d estimate=%.9g ± %.9g max=%.9g",
		res.Evaluations, res.InvalidSamples, res.Estimate, res.StandardError, res.MaxWeight)
	return res, nil
}

// IntegrateParallel splits the evaluation budget across workers. Worker i
// draws from rng.ForSubsystem(SubsystemWorker(i)); the last worker takes the
// remainder. Per-worker accumulators are merged in worker order, so a fixed
// seed and worker count reproduce the same result. fn must be safe for
// concurrent use and ps must not be modified while the call runs.
func IntegrateParallel(ctx context.Context, ps *PhaseSpace, fn WeightFunction, rng *PartitionedRNG,
	cfg IntegrationConfig, workers int) (*IntegrationResult, error) {
	if err := checkIntegrationInputs(ps, fn, cfg); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil partitioned rng", ErrConfiguration)
	}
	if workers <= 0 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", ErrConfiguration, workers)
	}
	if int64(workers) > cfg.NumEvaluations {
		workers = int(cfg.NumEvaluations)
	}

	// PartitionedRNG is single-goroutine; resolve every stream before fan-out.
	streams := make([]*rand.Rand, workers)
	for i := range streams {
		streams[i] = rng.ForSubsystem(SubsystemWorker(i))
	}

	perWorker := cfg.NumEvaluations / int64(workers)
	remainder := cfg.NumEvaluations % int64(workers)
	accs := make([]*Accumulator, workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		n := perWorker
		if i == workers-1 {
			n += remainder
		}
		accs[i] = &Accumulator{}
		maxAttempts := cfg.workerAttemptCap(n)
		g.Go(func() error {
			if err := accumulate(gctx, accs[i], ps, fn, streams[i], n, maxAttempts); err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := &Accumulator{}
	for _, a := range accs {
		total.Merge(a)
	}
	res := total.Result()
	logrus.Debugf("parallel integration: workers=%d N=%d invalid=%d estimate=%.9g ± %.9g",
		workers, res.Evaluations, res.InvalidSamples, res.Estimate, res.StandardError)
	return res, nil
}

// workerAttemptCap shares the attempt cap proportionally to a worker's budget.
func (c IntegrationConfig) workerAttemptCap(n int64) int64 {
	if c.MaxAttempts == 0 {
		return IntegrationConfig{NumEvaluations: n}.attemptCap()
	}
	share := math.Ceil(float64(c.MaxAttempts) * float64(n) / float64(c.NumEvaluations))
	return max(int64(share), n)
}

func checkIntegrationInputs(ps *PhaseSpace, fn WeightFunction, cfg IntegrationConfig) error {
	if ps == nil {
		return fmt.Errorf("%w: nil phase space", ErrConfiguration)
	}
	if fn == nil {
		return fmt.Errorf("%w: nil weight function", ErrConfiguration)
	}
	return cfg.Validate()
}

// accumulate draws until acc holds n valid samples or maxAttempts is reached.
func accumulate(ctx context.Context, acc *Accumulator, ps *PhaseSpace, fn WeightFunction,
	rng RandomSource, n, maxAttempts int64) error {
	var attempts int64
	for acc.Count() < n {
		if attempts >= maxAttempts {
			return fmt.Errorf("%w: %d attempts produced %d of %d valid samples (%d invalid)",
				ErrConvergenceFailure, attempts, acc.Count(), n, acc.invalid)
		}
		if attempts%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		attempts++

		p := ps.Sample(rng)
		ev := fn.Evaluate(p)
		if !ev.Valid {
			acc.AddInvalid()
			continue
		}
		if math.IsNaN(ev.Weight) || math.IsInf(ev.Weight, 0) {
			return fmt.Errorf("%w: %v at %v", ErrNonFiniteWeight, ev.Weight, p)
		}
		acc.Add(ev.Weight*ps.Volume(), p)
	}
	return nil
}
