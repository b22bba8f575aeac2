// Package sim provides the Monte-Carlo core of the collision simulator.
//
// # Reading Guide
//
// Start with these files to understand the hard-process path:
//   - phasespace.go: uniform sampling inside a hyper-rectangle of kinematic variables
//   - integrator.go: crude Monte-Carlo integration, serial and parallel
//   - generator.go: hit-or-miss unweighting against the integration envelope
//
// # Architecture
//
// The sim package defines the shared types and the sampling loops;
// physics lives in sub-packages:
//   - sim/rootfind/: bisection and Newton-Raphson, leaf utilities
//   - sim/shower/: Sudakov-veto evolution of a single parton line
//   - sim/coupling/: analytic running coupling providers
//   - sim/process/: weight functions for concrete scattering processes
//   - sim/record/: caller-owned run records and summaries
//   - sim/store/: SQLite persistence of run records
//
// # Key Interfaces
//
//   - RandomSource: sequentially consumed uniform stream, one per goroutine
//   - WeightFunction: differential cross section at a phase-space point
//   - ParticleBuilder: optional capability turning an accepted point into particles
//
// Randomness is always injected. PartitionedRNG derives one stream per
// subsystem from the run seed, so a fixed seed reproduces a run exactly.
package sim
