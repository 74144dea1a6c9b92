package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/hazard-sim/hazard-sim/sim"
	"github.com/hazard-sim/hazard-sim/sim/eventset"
	"github.com/hazard-sim/hazard-sim/sim/stats"
	"github.com/hazard-sim/hazard-sim/sim/store"
)

var (
	// CLI flags for the run command
	eventsPath   string  // Path to the YAML event-set file
	years        int     // Simulated horizon in years
	replications int     // Number of Monte Carlo sequences
	stepLength   float64 // Time step in years
	seed         int64   // Seed for occurrence sampling
	unseeded     bool    // Draw the seed from OS entropy instead of --seed
	rngMode      string  // single or partitioned
	workers      int     // Worker goroutines for partitioned sampling
	outputPath   string  // JSON result file ("-" for stdout)
	dbPath       string  // SQLite run store
	printSummary bool    // Print per-event statistics
	logLevel     string  // Log verbosity level

	// CLI flags for the show command
	showRunID string
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "hazard-sim",
	Short: "Monte Carlo hazard event-occurrence sequence generator",
}

// setupLogging applies --log to the global logger.
func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// runConfigFromFlags assembles a RunConfig from parsed flags.
func runConfigFromFlags() sim.RunConfig {
	cfg := sim.RunConfig{
		Years:        years,
		Replications: replications,
		StepLength:   stepLength,
		Mode:         sim.RNGMode(rngMode),
		Workers:      workers,
	}
	if !unseeded {
		s := seed
		cfg.Seed = &s
	}
	return cfg
}

// runCmd generates event sequences from an event-set file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate event-occurrence sequences from an event set",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		if eventsPath == "" {
			logrus.Fatalf("Event set not provided (--events). Exiting.")
		}
		if !sim.IsValidRNGMode(rngMode) {
			logrus.Fatalf("Unknown --rng-mode %q; valid: single, partitioned", rngMode)
		}
		if unseeded && cmd.Flags().Changed("seed") {
			logrus.Fatalf("--seed and --unseeded are mutually exclusive")
		}

		set, err := eventset.Load(eventsPath)
		if err != nil {
			logrus.Fatalf("unable to load event set: %v", err)
		}
		cfg := runConfigFromFlags()

		logrus.Infof("Starting run for event set %q: years=%d, replications=%d, step=%g, mode=%s",
			set.Name, cfg.Years, cfg.Replications, cfg.StepLength, rngMode)
		startTime := time.Now()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		result, err := sim.CreateEventSequences(ctx, set.Records(), cfg)
		if err != nil {
			logrus.Fatalf("run failed: %v", err)
		}

		if outputPath != "" {
			if err := writeResultFile(outputPath, result, cfg); err != nil {
				logrus.Fatalf("unable to write result: %v", err)
			}
		}
		if dbPath != "" {
			runID, err := saveRun(ctx, dbPath, result, cfg)
			if err != nil {
				logrus.Fatalf("unable to save run: %v", err)
			}
			logrus.Infof("Saved run %s to %s", runID, dbPath)
		}
		if printSummary {
			if err := stats.Summarize(result).Print(summaryWriter(outputPath)); err != nil {
				logrus.Fatalf("unable to print summary: %v", err)
			}
		}

		logrus.Infof("Run complete in %v.", time.Since(startTime))
	},
}

// saveRun stores result in the run store at path. A failed close is reported,
// since the WAL checkpoint happens there.
func saveRun(ctx context.Context, path string, result *sim.RunResult, cfg sim.RunConfig) (runID string, err error) {
	st, err := store.Open(path)
	if err != nil {
		return "", fmt.Errorf("open run store: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close run store: %w", cerr)
		}
	}()
	return st.SaveRun(ctx, result, cfg)
}

// summaryWriter keeps the summary table off stdout when the result document
// is written there.
func summaryWriter(output string) io.Writer {
	if output == "-" {
		return os.Stderr
	}
	return os.Stdout
}

// showCmd lists stored runs or summarizes one of them
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List stored runs or summarize a stored run",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		if dbPath == "" {
			logrus.Fatalf("Run store not provided (--db). Exiting.")
		}
		st, err := store.Open(dbPath)
		if err != nil {
			logrus.Fatalf("unable to open run store: %v", err)
		}
		defer st.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if showRunID == "" {
			runs, err := st.ListRuns(ctx)
			if err != nil {
				logrus.Fatalf("unable to list runs: %v", err)
			}
			printRunList(os.Stdout, runs)
			return
		}

		run, err := st.LoadRun(ctx, showRunID)
		if err != nil {
			logrus.Fatalf("unable to load run: %v", err)
		}
		if err := stats.Summarize(run.Result).Print(os.Stdout); err != nil {
			logrus.Fatalf("unable to print summary: %v", err)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite run store path")

	runCmd.Flags().StringVar(&eventsPath, "events", "", "Path to the YAML event-set file")
	runCmd.Flags().IntVar(&years, "years", sim.DefaultYears, "Number of years to simulate")
	runCmd.Flags().IntVar(&replications, "replications", sim.DefaultReplications, "Number of sequences to simulate")
	runCmd.Flags().Float64Var(&stepLength, "step", sim.DefaultStepLength, "Time step in years")
	runCmd.Flags().Int64Var(&seed, "seed", sim.DefaultSeed, "Seed for occurrence sampling")
	runCmd.Flags().BoolVar(&unseeded, "unseeded", false, "Draw a fresh seed from OS entropy (logged for replay)")
	runCmd.Flags().StringVar(&rngMode, "rng-mode", string(sim.RNGModeSingle), "Random stream layout (single, partitioned)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Worker goroutines for --rng-mode partitioned (0 = GOMAXPROCS)")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Write the result as JSON to this path (- for stdout)")
	runCmd.Flags().BoolVar(&printSummary, "summary", false, "Print per-event occurrence statistics")

	showCmd.Flags().StringVar(&showRunID, "run", "", "Run ID to summarize (lists runs when empty)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(showCmd)
}
