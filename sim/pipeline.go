package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// RNGMode selects how the sampler consumes randomness.
type RNGMode string

const (
	// RNGModeSingle draws every cell from one stream in flattened
	// replication, year, event order.
	RNGModeSingle RNGMode = "single"

	// RNGModePartitioned gives each replication its own derived stream and
	// samples replications concurrently.
	RNGModePartitioned RNGMode = "partitioned"
)

var validRNGModes = map[RNGMode]bool{
	RNGModeSingle:      true,
	RNGModePartitioned: true,
}

// IsValidRNGMode reports whether name is a supported RNG mode.
func IsValidRNGMode(name string) bool {
	return validRNGModes[RNGMode(name)]
}

// Defaults used by the CLI when flags are left unset.
const (
	DefaultYears        = 30
	DefaultReplications = 20
	DefaultStepLength   = 1.0
	DefaultSeed         = int64(42)
)

// RunConfig groups the caller-supplied parameters of one sampling run.
type RunConfig struct {
	Years        int     // horizon length in years, >= 1
	Replications int     // number of Monte Carlo realizations, >= 1
	StepLength   float64 // years per Bernoulli step, > 0
	Seed         *int64  // nil for a non-reproducible run
	Mode         RNGMode // "" means RNGModeSingle
	Workers      int     // partitioned mode only; <= 0 uses GOMAXPROCS
}

// DefaultRunConfig returns a RunConfig seeded with DefaultSeed.
func DefaultRunConfig() RunConfig {
	seed := DefaultSeed
	return RunConfig{
		Years:        DefaultYears,
		Replications: DefaultReplications,
		StepLength:   DefaultStepLength,
		Seed:         &seed,
		Mode:         RNGModeSingle,
	}
}

// Validate checks the parameters that can be checked without a catalog.
func (c RunConfig) Validate() error {
	if c.Years < 1 {
		return fmt.Errorf("%w: years must be >= 1, got %d", ErrInvalidParameter, c.Years)
	}
	if c.Replications < 1 {
		return fmt.Errorf("%w: replications must be >= 1, got %d", ErrInvalidParameter, c.Replications)
	}
	if c.Mode != "" && !validRNGModes[c.Mode] {
		return fmt.Errorf("%w: unknown rng mode %q; valid: single, partitioned", ErrInvalidParameter, c.Mode)
	}
	return nil
}

// RunResult carries the artifacts of one run: the filtered catalog (event IDs
// and probabilities), the occurrence tensor and the assembled sequences,
// plus the key that reproduces them.
type RunResult struct {
	Key       SimulationKey
	Seeded    bool
	Catalog   FilteredCatalog
	Tensor    *OccurrenceTensor
	Sequences []EventSequence
}

// CreateEventSequences runs the catalog builder, the sampler and the
// assembler in order. It either returns every artifact or an error; no draw
// happens before all parameters are validated.
func CreateEventSequences(ctx context.Context, records []EventRecord, cfg RunConfig) (*RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	catalog, err := BuildCatalog(records, cfg.StepLength)
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}
	logrus.Infof("catalog: %d of %d events eligible at step length %g", catalog.Len(), len(records), cfg.StepLength)

	key, seeded := resolveKey(cfg.Seed)
	start := time.Now()

	var tensor *OccurrenceTensor
	switch cfg.Mode {
	case RNGModePartitioned:
		tensor, err = SampleOccurrencesPartitioned(ctx, catalog.Probabilities, cfg.Years, cfg.Replications, key, cfg.Workers)
	default:
		tensor, err = SampleOccurrences(catalog.Probabilities, cfg.Years, cfg.Replications, NewSource(key))
	}
	if err != nil {
		return nil, fmt.Errorf("sampling occurrences: %w", err)
	}

	sequences, err := AssembleSequences(tensor, catalog.EventIDs)
	if err != nil {
		return nil, fmt.Errorf("assembling sequences: %w", err)
	}
	logrus.Infof("sampled %d replications × %d years in %v", cfg.Replications, cfg.Years, time.Since(start))

	return &RunResult{
		Key:       key,
		Seeded:    seeded,
		Catalog:   catalog,
		Tensor:    tensor,
		Sequences: sequences,
	}, nil
}

func resolveKey(seed *int64) (SimulationKey, bool) {
	if seed != nil {
		return NewSimulationKey(*seed), true
	}
	key := RandomSimulationKey()
	logrus.Warnf("unseeded run: drew key %d (pass --seed %d to replay)", int64(key), int64(key))
	return key, false
}
