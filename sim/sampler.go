package sim

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SampleOccurrences draws one Bernoulli trial per (replication, year, event)
// cell from rng. Cell (r, y, e) is true iff u < probabilities[e] for a fresh
// u = rng.Float64() in [0, 1).
//
// Draws are consumed in flattened order: replication-major, then year, then
// event. For a fixed seed this makes the tensor reproducible across runs and
// across implementations that share the same ordering.
//
// All parameters are validated before the first draw.
func SampleOccurrences(probabilities []float64, years, replications int, rng *rand.Rand) (*OccurrenceTensor, error) {
	if err := validateSamplerParams(probabilities, years, replications); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrInvalidParameter)
	}

	t := newOccurrenceTensor(replications, years, len(probabilities))
	for r := 0; r < replications; r++ {
		fillReplication(t, r, probabilities, rng)
	}
	logrus.Debugf("sampler: drew %d cells (%d replications × %d years × %d events)",
		len(t.cells), replications, years, len(probabilities))
	return t, nil
}

// SampleOccurrencesPartitioned samples each replication from its own stream,
// seeded with key.Derive(SubsystemReplication(r)), and spreads replications
// across workers goroutines. Within a replication draws follow year, then
// event order.
//
// The result depends only on key and the arguments, never on workers.
// workers <= 0 uses GOMAXPROCS.
func SampleOccurrencesPartitioned(ctx context.Context, probabilities []float64, years, replications int, key SimulationKey, workers int) (*OccurrenceTensor, error) {
	if err := validateSamplerParams(probabilities, years, replications); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > replications {
		workers = replications
	}

	t := newOccurrenceTensor(replications, years, len(probabilities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for r := 0; r < replications; r++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// each replication owns a disjoint range of t.cells
			rng := newRandFromSeed(key.Derive(SubsystemReplication(r)))
			fillReplication(t, r, probabilities, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logrus.Debugf("sampler: drew %d cells on %d workers", len(t.cells), workers)
	return t, nil
}

func fillReplication(t *OccurrenceTensor, r int, probabilities []float64, rng *rand.Rand) {
	for y := 0; y < t.years; y++ {
		base := t.offset(r, y, 0)
		for e, p := range probabilities {
			t.cells[base+e] = rng.Float64() < p
		}
	}
}

func validateSamplerParams(probabilities []float64, years, replications int) error {
	if years < 1 {
		return fmt.Errorf("%w: years must be >= 1, got %d", ErrInvalidParameter, years)
	}
	if replications < 1 {
		return fmt.Errorf("%w: replications must be >= 1, got %d", ErrInvalidParameter, replications)
	}
	for i, p := range probabilities {
		if err := validateProbability(p); err != nil {
			return fmt.Errorf("probabilities[%d]: %w", i, err)
		}
	}
	return nil
}
