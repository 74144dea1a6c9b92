// Package stats summarizes the occurrence tensor of a run.
// It reads sim.RunResult and never draws random numbers.
package stats

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"github.com/hazard-sim/hazard-sim/sim"
)

// EventSummary aggregates one event's occurrences across all replications.
type EventSummary struct {
	ID            string
	Probability   float64 // per-step probability from the catalog
	Occurrences   int
	EmpiricalRate float64 // Occurrences / (replications × years)
	StdErr        float64 // binomial standard error of EmpiricalRate
}

// Summary aggregates statistics from a RunResult.
type Summary struct {
	Replications int
	Years        int
	Events       []EventSummary

	EventsPerYearMean   float64
	EventsPerYearStdDev float64
	EmptyYearFraction   float64

	EventsPerReplicationMean   float64
	EventsPerReplicationStdDev float64
}

// Summarize computes aggregate statistics from a RunResult.
// Safe for nil results (returns a zero-value summary). Standard deviations
// of a single observation are reported as 0.
func Summarize(result *sim.RunResult) *Summary {
	summary := &Summary{}
	if result == nil || result.Tensor == nil {
		return summary
	}
	t := result.Tensor
	reps, years, events := t.Shape()
	summary.Replications = reps
	summary.Years = years
	trials := float64(reps * years)

	ids := result.Catalog.EventIDs
	if len(ids) != events {
		ids = sim.PlaceholderEventIDs(events)
	}
	summary.Events = make([]EventSummary, events)
	for e := range summary.Events {
		n := t.Count(e)
		rate := float64(n) / trials
		es := EventSummary{
			ID:            ids[e],
			Occurrences:   n,
			EmpiricalRate: rate,
			StdErr:        math.Sqrt(rate * (1 - rate) / trials),
		}
		if e < len(result.Catalog.Probabilities) {
			es.Probability = result.Catalog.Probabilities[e]
		}
		summary.Events[e] = es
	}

	perYear := make([]float64, 0, reps*years)
	perReplication := make([]float64, reps)
	empty := 0
	for r := 0; r < reps; r++ {
		for y := 0; y < years; y++ {
			n := t.CountYear(r, y)
			if n == 0 {
				empty++
			}
			perYear = append(perYear, float64(n))
			perReplication[r] += float64(n)
		}
	}
	summary.EmptyYearFraction = float64(empty) / trials
	summary.EventsPerYearMean, summary.EventsPerYearStdDev = meanStdDev(perYear)
	summary.EventsPerReplicationMean, summary.EventsPerReplicationStdDev = meanStdDev(perReplication)
	return summary
}

func meanStdDev(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	if len(x) == 1 {
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

// Print writes the summary as an aligned table.
func (s *Summary) Print(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "=== Occurrence Summary (%d replications × %d years) ===\n", s.Replications, s.Years); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tP(step)\tOCCURRENCES\tRATE\tSTDERR")
	for _, e := range s.Events {
		fmt.Fprintf(tw, "%s\t%.4f\t%d\t%.4f\t%.4f\n", e.ID, e.Probability, e.Occurrences, e.EmpiricalRate, e.StdErr)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Events per year      : %.3f ± %.3f\nEmpty years          : %.2f%%\nEvents per sequence  : %.3f ± %.3f\n",
		s.EventsPerYearMean, s.EventsPerYearStdDev, 100*s.EmptyYearFraction,
		s.EventsPerReplicationMean, s.EventsPerReplicationStdDev)
	return err
}
