package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	sim "github.com/hazard-sim/hazard-sim/sim"
	"github.com/hazard-sim/hazard-sim/sim/store"
)

// ResultDocument is the JSON layout written by `run --output`.
type ResultDocument struct {
	Seed          int64               `json:"seed"`
	Seeded        bool                `json:"seeded"`
	Mode          string              `json:"rng_mode"`
	Years         int                 `json:"years"`
	Replications  int                 `json:"replications"`
	StepLength    float64             `json:"step_length"`
	EventIDs      []string            `json:"event_ids"`
	Probabilities []float64           `json:"probabilities"`
	Sequences     []sim.EventSequence `json:"sequences"`
	Occurrences   [][][]bool          `json:"occurrences"`
}

func newResultDocument(result *sim.RunResult, cfg sim.RunConfig) ResultDocument {
	mode := cfg.Mode
	if mode == "" {
		mode = sim.RNGModeSingle
	}
	return ResultDocument{
		Seed:          int64(result.Key),
		Seeded:        result.Seeded,
		Mode:          string(mode),
		Years:         result.Tensor.Years(),
		Replications:  result.Tensor.Replications(),
		StepLength:    cfg.StepLength,
		EventIDs:      result.Catalog.EventIDs,
		Probabilities: result.Catalog.Probabilities,
		Sequences:     result.Sequences,
		Occurrences:   result.Tensor.Nested(),
	}
}

func writeResult(w io.Writer, result *sim.RunResult, cfg sim.RunConfig) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newResultDocument(result, cfg))
}

// writeResultFile writes the JSON document to path, or stdout for "-".
func writeResultFile(path string, result *sim.RunResult, cfg sim.RunConfig) error {
	if path == "-" {
		return writeResult(os.Stdout, result, cfg)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := writeResult(f, result, cfg); err != nil {
		_ = f.Close()
		return fmt.Errorf("encoding result: %w", err)
	}
	return f.Close()
}

func printRunList(w io.Writer, runs []store.RunInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tSEED\tYEARS\tREPLICATIONS\tSTEP\tMODE\tEVENTS")
	for _, r := range runs {
		seedLabel := fmt.Sprintf("%d", r.Seed)
		if !r.Seeded {
			seedLabel += " (drawn)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%g\t%s\t%d\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), seedLabel, r.Years, r.Replications, r.StepLength, r.Mode, r.Events)
	}
	_ = tw.Flush()
}
