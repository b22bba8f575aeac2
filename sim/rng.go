package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// RandomSource is a stream of uniform draws in [0, 1).
// *rand.Rand satisfies it. Implementations are consumed sequentially and are
// NOT safe for concurrent use; every goroutine needs its own stream.
type RandomSource interface {
	Float64() float64
}

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemIntegration is the stream used by serial cross-section integration.
	// Uses master seed directly so that --seed maps 1:1 onto the integration stream.
	SubsystemIntegration = "integration"

	// SubsystemHitOrMiss is the stream used for unweighted event generation.
	SubsystemHitOrMiss = "hitormiss"

	// SubsystemShower is the stream used by the Sudakov evolution.
	SubsystemShower = "shower"
)

// SubsystemWorker returns the subsystem name for parallel integration worker N.
func SubsystemWorker(id int) string {
	return fmt.Sprintf("worker_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemIntegration: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
// Parallel callers fetch every worker stream up front and hand one to each goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	var derivedSeed int64
	if name == SubsystemIntegration {
		derivedSeed = int64(p.key)
	} else {
		derivedSeed = int64(p.key) ^ fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Reseed switches to a new SimulationKey. Every cached stream is dropped, so
// subsequent ForSubsystem calls restart their sequences from the new key.
func (p *PartitionedRNG) Reseed(key SimulationKey) {
	p.key = key
	p.subsystems = make(map[string]*rand.Rand)
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
