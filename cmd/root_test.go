package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sim "github.com/hazard-sim/hazard-sim/sim"
	"github.com/hazard-sim/hazard-sim/sim/store"
)

func TestRunConfigFromFlags_Seeded(t *testing.T) {
	// GIVEN parsed flag values
	years, replications, stepLength, seed, unseeded, rngMode, workers = 10, 4, 0.5, 99, false, "partitioned", 3
	t.Cleanup(resetRunFlags)

	cfg := runConfigFromFlags()

	assert.Equal(t, 10, cfg.Years)
	assert.Equal(t, 4, cfg.Replications)
	assert.Equal(t, 0.5, cfg.StepLength)
	assert.Equal(t, sim.RNGModePartitioned, cfg.Mode)
	assert.Equal(t, 3, cfg.Workers)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(99), *cfg.Seed)
}

func TestRunConfigFromFlags_Unseeded(t *testing.T) {
	unseeded = true
	t.Cleanup(resetRunFlags)

	assert.Nil(t, runConfigFromFlags().Seed)
}

func TestWriteResult_JSONLayout(t *testing.T) {
	seed := int64(42)
	cfg := sim.RunConfig{Years: 3, Replications: 2, StepLength: 1, Seed: &seed}
	res, err := sim.CreateEventSequences(context.Background(),
		[]sim.EventRecord{{ID: "a", Frequency: 0.5}, {ID: "b", Frequency: 4}}, cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, res, cfg))

	var doc ResultDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, int64(42), doc.Seed)
	assert.True(t, doc.Seeded)
	assert.Equal(t, "single", doc.Mode)
	assert.Equal(t, []string{"a"}, doc.EventIDs)
	assert.Equal(t, []float64{0.5}, doc.Probabilities)
	assert.Equal(t, res.Tensor.Nested(), doc.Occurrences)
	assert.Equal(t, res.Sequences, doc.Sequences)

	// empty years serialize as [] rather than null
	assert.NotContains(t, buf.String(), "null")
}

func TestRunCommand_WritesOutputAndStore(t *testing.T) {
	dir := t.TempDir()
	events := filepath.Join(dir, "events.yaml")
	out := filepath.Join(dir, "result.json")
	db := filepath.Join(dir, "runs.sqlite")
	require.NoError(t, os.WriteFile(events, []byte(`
name: coastal
sub_events:
  - name: surge_rp2
    frequency: 0.5
  - name: surge_rp20
    frequency: 0.05
`), 0644))
	t.Cleanup(resetRunFlags)

	rootCmd.SetArgs([]string{"run", "--events", events, "--years", "5", "--replications", "3",
		"--seed", "7", "--output", out, "--db", db, "--log", "error"})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc ResultDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, int64(7), doc.Seed)
	assert.Equal(t, 5, doc.Years)
	assert.Equal(t, 3, doc.Replications)
	assert.Equal(t, []string{"surge_rp2", "surge_rp20"}, doc.EventIDs)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(7), runs[0].Seed)
}

func TestSaveRun_ReturnsRunID(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.sqlite")
	seed := int64(11)
	cfg := sim.RunConfig{Years: 2, Replications: 2, StepLength: 1, Seed: &seed}
	res, err := sim.CreateEventSequences(context.Background(), []sim.EventRecord{{ID: "a", Frequency: 0.5}}, cfg)
	require.NoError(t, err)

	id, err := saveRun(context.Background(), db, res, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// THEN the store was closed cleanly and the run is readable
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	got, err := st.LoadRun(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, res.Sequences, got.Result.Sequences)
}

func TestSaveRun_OpenFailure(t *testing.T) {
	_, err := saveRun(context.Background(), " ", nil, sim.RunConfig{})
	assert.ErrorContains(t, err, "open run store")
}

func TestSummaryWriter_AvoidsStdoutResult(t *testing.T) {
	assert.Equal(t, os.Stderr, summaryWriter("-"))
	assert.Equal(t, os.Stdout, summaryWriter(""))
	assert.Equal(t, os.Stdout, summaryWriter("result.json"))
}

func TestPrintRunList(t *testing.T) {
	var buf bytes.Buffer
	printRunList(&buf, []store.RunInfo{
		{ID: "run-1", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Seed: 42, Seeded: true, Years: 30, Replications: 20, StepLength: 1, Mode: sim.RNGModeSingle, Events: 4},
		{ID: "run-2", Seed: -5, Seeded: false, Years: 1, Replications: 1, StepLength: 0.5, Mode: sim.RNGModePartitioned},
	})

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "2026-01-02T03:04:05Z")
	assert.Contains(t, out, "-5 (drawn)")
	assert.Contains(t, out, "partitioned")
}

// resetRunFlags restores package-level flag variables to their defaults.
func resetRunFlags() {
	eventsPath, outputPath, dbPath = "", "", ""
	years, replications, stepLength = sim.DefaultYears, sim.DefaultReplications, sim.DefaultStepLength
	seed, unseeded = sim.DefaultSeed, false
	rngMode, workers = string(sim.RNGModeSingle), 0
	printSummary = false
	logLevel = "warn"
}
