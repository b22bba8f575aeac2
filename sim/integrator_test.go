package sim

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colsim/colsim/sim/internal/testutil"
)

func unitInterval(t *testing.T) *PhaseSpace {
	t.Helper()
	ps, err := NewPhaseSpace([]Bound{{"x", 0, 1}})
	require.NoError(t, err)
	return ps
}

var linear = WeightFunc(func(p PhaseSpacePoint) Evaluation { return Valid(2 * p[0]) })

func TestIntegrate_GoldenDataset(t *testing.T) {
	dataset := testutil.LoadIntegralDataset(t)
	require.NotEmpty(t, dataset.Cases)

	for _, tc := range dataset.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			// GIVEN an integrand with a closed-form integral over a box
			bounds := make([]Bound, len(tc.Min))
			for i := range bounds {
				bounds[i] = Bound{Min: tc.Min[i], Max: tc.Max[i]}
			}
			ps, err := NewPhaseSpace(bounds)
			require.NoError(t, err)
			f := testutil.Integrands[tc.Integrand]
			fn := WeightFunc(func(p PhaseSpacePoint) Evaluation { return Valid(f(p)) })

			// WHEN integrated with the case's seed and budget
			res, err := Integrate(ps, fn, rand.New(rand.NewSource(tc.Seed)), NewIntegrationConfig(tc.Evaluations, 0))
			require.NoError(t, err)

			// THEN the estimate matches within the tolerance and the error bar is honest
			testutil.AssertFloat64Equal(t, tc.Name, tc.Expected, res.Estimate, tc.RelTol)
			assert.Less(t, math.Abs(res.Estimate-tc.Expected), 5*res.StandardError+1e-12)
			assert.Equal(t, tc.Evaluations, res.Evaluations)
		})
	}
}

func TestIntegrate_StandardErrorScalesAsInverseSqrtN(t *testing.T) {
	// GIVEN the same integrand at N and 100·N samples
	small, err := Integrate(unitInterval(t), linear, rand.New(rand.NewSource(1)), NewIntegrationConfig(10_000, 0))
	require.NoError(t, err)
	large, err := Integrate(unitInterval(t), linear, rand.New(rand.NewSource(2)), NewIntegrationConfig(1_000_000, 0))
	require.NoError(t, err)

	// THEN the error shrinks by ~10 and the variance approaches 1/3
	assert.InDelta(t, 10.0, small.StandardError/large.StandardError, 0.5)
	assert.InDelta(t, 1.0/3.0, large.Variance, 0.005)
}

func TestIntegrate_MaxWeightBoundsEverySample(t *testing.T) {
	// GIVEN a recording weight function over a box of volume 2
	ps, err := NewPhaseSpace([]Bound{{"x", 0, 2}})
	require.NoError(t, err)
	var seen []float64
	fn := WeightFunc(func(p PhaseSpacePoint) Evaluation {
		w := math.Sin(3*p[0]) + 1
		seen = append(seen, w)
		return Valid(w)
	})

	// WHEN integrated
	res, err := Integrate(ps, fn, rand.New(rand.NewSource(8)), NewIntegrationConfig(5000, 0))
	require.NoError(t, err)

	// THEN MaxWeight dominates every Jacobian-scaled weight and MaxPoint reproduces it
	for _, w := range seen {
		assert.LessOrEqual(t, w*ps.Volume(), res.MaxWeight)
	}
	require.Len(t, res.MaxPoint, 1)
	assert.Equal(t, (math.Sin(3*res.MaxPoint[0])+1)*ps.Volume(), res.MaxWeight)
}

func TestIntegrate_InvalidSamplesRedrawn(t *testing.T) {
	// GIVEN a weight function that rejects the left half of the interval
	fn := WeightFunc(func(p PhaseSpacePoint) Evaluation {
		if p[0] < 0.5 {
			return Invalid()
		}
		return Valid(1)
	})

	// WHEN integrated
	res, err := Integrate(unitInterval(t), fn, rand.New(rand.NewSource(4)), NewIntegrationConfig(20_000, 0))
	require.NoError(t, err)

	// THEN exactly N valid samples were kept and roughly as many rejected
	assert.Equal(t, int64(20_000), res.Evaluations)
	assert.InEpsilon(t, 20_000, float64(res.InvalidSamples), 0.05)
	assert.Equal(t, 1.0, res.Estimate)
	assert.Zero(t, res.Variance)
}

func TestIntegrate_AttemptCapExceeded_ConvergenceFailure(t *testing.T) {
	alwaysInvalid := WeightFunc(func(PhaseSpacePoint) Evaluation { return Invalid() })

	_, err := Integrate(unitInterval(t), alwaysInvalid, rand.New(rand.NewSource(1)), NewIntegrationConfig(10, 100))

	assert.ErrorIs(t, err, ErrConvergenceFailure)
}

func TestIntegrate_NonFiniteWeight_Error(t *testing.T) {
	for _, w := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		fn := WeightFunc(func(PhaseSpacePoint) Evaluation { return Valid(w) })
		_, err := Integrate(unitInterval(t), fn, rand.New(rand.NewSource(1)), NewIntegrationConfig(10, 0))
		assert.ErrorIs(t, err, ErrNonFiniteWeight, "weight %v", w)
	}
}

func TestIntegrate_InvalidInputs_ConfigurationError(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ps := unitInterval(t)

	_, err := Integrate(nil, linear, rng, NewIntegrationConfig(10, 0))
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = Integrate(ps, nil, rng, NewIntegrationConfig(10, 0))
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = Integrate(ps, linear, nil, NewIntegrationConfig(10, 0))
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = Integrate(ps, linear, rng, NewIntegrationConfig(0, 0))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestIntegrate_SameSeed_Identical(t *testing.T) {
	a, err := Integrate(unitInterval(t), linear, rand.New(rand.NewSource(77)), NewIntegrationConfig(1000, 0))
	require.NoError(t, err)
	b, err := Integrate(unitInterval(t), linear, rand.New(rand.NewSource(77)), NewIntegrationConfig(1000, 0))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestIntegrateParallel_DeterministicAndAgreesWithSerial(t *testing.T) {
	ctx := context.Background()
	cfg := NewIntegrationConfig(400_001, 0)

	// GIVEN two runs with the same key and worker count
	a, err := IntegrateParallel(ctx, unitInterval(t), linear, NewPartitionedRNG(NewSimulationKey(5)), cfg, 4)
	require.NoError(t, err)
	b, err := IntegrateParallel(ctx, unitInterval(t), linear, NewPartitionedRNG(NewSimulationKey(5)), cfg, 4)
	require.NoError(t, err)

	// THEN they are bit-for-bit identical, keep the full budget and hit the analytic value
	assert.Equal(t, a, b)
	assert.Equal(t, int64(400_001), a.Evaluations)
	assert.InEpsilon(t, 1.0, a.Estimate, 0.005)
}

func TestIntegrateParallel_MoreWorkersThanSamples(t *testing.T) {
	res, err := IntegrateParallel(context.Background(), unitInterval(t), linear,
		NewPartitionedRNG(NewSimulationKey(1)), NewIntegrationConfig(3, 0), 16)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Evaluations)
}

func TestIntegrateParallel_WorkerErrorPropagates(t *testing.T) {
	alwaysInvalid := WeightFunc(func(PhaseSpacePoint) Evaluation { return Invalid() })

	_, err := IntegrateParallel(context.Background(), unitInterval(t), alwaysInvalid,
		NewPartitionedRNG(NewSimulationKey(1)), NewIntegrationConfig(100, 200), 2)

	assert.ErrorIs(t, err, ErrConvergenceFailure)
}

func TestIntegrateParallel_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := IntegrateParallel(ctx, unitInterval(t), linear,
		NewPartitionedRNG(NewSimulationKey(1)), NewIntegrationConfig(1000, 0), 2)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIntegrateParallel_InvalidWorkers(t *testing.T) {
	_, err := IntegrateParallel(context.Background(), unitInterval(t), linear,
		NewPartitionedRNG(NewSimulationKey(1)), NewIntegrationConfig(10, 0), 0)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestAccumulator_Merge_KeepsLargestAndTiesFavorReceiver(t *testing.T) {
	a := &Accumulator{}
	a.Add(2, PhaseSpacePoint{0.1})
	b := &Accumulator{}
	b.Add(2, PhaseSpacePoint{0.9})
	b.Add(1, PhaseSpacePoint{0.5})

	a.Merge(b)
	res := a.Result()

	assert.Equal(t, int64(3), res.Evaluations)
	assert.Equal(t, 2.0, res.MaxWeight)
	assert.Equal(t, PhaseSpacePoint{0.1}, res.MaxPoint)
	assert.InDelta(t, 5.0/3.0, res.Estimate, 1e-15)
}

func TestAccumulator_Empty_ZeroResult(t *testing.T) {
	res := (&Accumulator{}).Result()
	assert.Zero(t, res.Evaluations)
	assert.Zero(t, res.Estimate)
	assert.Nil(t, res.MaxPoint)
}

func TestAccumulator_NegativeWeights_MaxTracksFirstSample(t *testing.T) {
	acc := &Accumulator{}
	acc.Add(-3, PhaseSpacePoint{0})
	acc.Add(-1, PhaseSpacePoint{1})
	assert.Equal(t, -1.0, acc.Result().MaxWeight)
}
