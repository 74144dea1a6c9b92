// Package sim provides the occurrence sampling engine for hazard-sim.
//
// # Reading Guide
//
// The pipeline runs in three stages, one file each:
//   - catalog.go: BuildCatalog filters an event catalog to the events that can
//     be sampled once per step and converts frequencies to probabilities
//   - sampler.go: SampleOccurrences draws the (replication, year, event)
//     Bernoulli tensor from an explicit random source
//   - sequence.go: AssembleSequences turns the tensor into per-year lists of
//     event IDs
//
// pipeline.go chains the three stages; rng.go holds the seed derivation.
//
// # Sub-packages
//
//   - sim/eventset/: YAML event-set files
//   - sim/stats/: summary statistics of a run
//   - sim/store/: SQLite persistence of runs
package sim
