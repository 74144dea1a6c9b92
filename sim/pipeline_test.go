package sim

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords() []EventRecord {
	return []EventRecord{
		{ID: "surge_rp2", Frequency: 0.5},
		{ID: "nuisance", Frequency: 6},
		{ID: "surge_rp10", Frequency: 0.1},
		{ID: "surge_rp100", Frequency: 0.01},
	}
}

func seedPtr(v int64) *int64 { return &v }

func TestCreateEventSequences_ReturnsAllArtifacts(t *testing.T) {
	cfg := RunConfig{Years: 30, Replications: 20, StepLength: 1, Seed: seedPtr(42)}

	res, err := CreateEventSequences(context.Background(), testRecords(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"surge_rp2", "surge_rp10", "surge_rp100"}, res.Catalog.EventIDs)
	assert.Equal(t, []float64{0.5, 0.1, 0.01}, res.Catalog.Probabilities)
	assert.Equal(t, NewSimulationKey(42), res.Key)
	assert.True(t, res.Seeded)

	r, y, e := res.Tensor.Shape()
	assert.Equal(t, [3]int{20, 30, 3}, [3]int{r, y, e})
	require.Len(t, res.Sequences, 20)
	for _, seq := range res.Sequences {
		assert.Len(t, seq, 30)
	}
}

func TestCreateEventSequences_SingleModeMatchesSampler(t *testing.T) {
	cfg := RunConfig{Years: 10, Replications: 5, StepLength: 1, Seed: seedPtr(9), Mode: RNGModeSingle}
	res, err := CreateEventSequences(context.Background(), testRecords(), cfg)
	require.NoError(t, err)

	direct, err := SampleOccurrences(res.Catalog.Probabilities, 10, 5, NewSource(9))
	require.NoError(t, err)
	assert.Equal(t, direct.Nested(), res.Tensor.Nested())
}

func TestCreateEventSequences_Reproducible(t *testing.T) {
	for _, mode := range []RNGMode{RNGModeSingle, RNGModePartitioned} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := RunConfig{Years: 15, Replications: 8, StepLength: 1, Seed: seedPtr(5), Mode: mode, Workers: 3}
			a, err := CreateEventSequences(context.Background(), testRecords(), cfg)
			require.NoError(t, err)
			b, err := CreateEventSequences(context.Background(), testRecords(), cfg)
			require.NoError(t, err)
			assert.Equal(t, a.Sequences, b.Sequences)
		})
	}
}

func TestCreateEventSequences_Unseeded(t *testing.T) {
	cfg := RunConfig{Years: 5, Replications: 2, StepLength: 1}
	res, err := CreateEventSequences(context.Background(), testRecords(), cfg)
	require.NoError(t, err)
	assert.False(t, res.Seeded)

	// the drawn key replays the run
	replay, err := CreateEventSequences(context.Background(), testRecords(),
		RunConfig{Years: 5, Replications: 2, StepLength: 1, Seed: seedPtr(int64(res.Key))})
	require.NoError(t, err)
	assert.Equal(t, res.Tensor.Nested(), replay.Tensor.Nested())
}

func TestCreateEventSequences_EmptyCatalog(t *testing.T) {
	records := []EventRecord{{ID: "a", Frequency: 2}, {ID: "b", Frequency: 5}}
	cfg := RunConfig{Years: 4, Replications: 3, StepLength: 1, Seed: seedPtr(1)}

	res, err := CreateEventSequences(context.Background(), records, cfg)
	require.NoError(t, err)

	assert.Empty(t, res.Catalog.EventIDs)
	assert.Equal(t, 0, res.Tensor.Events())
	require.Len(t, res.Sequences, 3)
	for _, seq := range res.Sequences {
		require.Len(t, seq, 4)
		for _, year := range seq {
			assert.Empty(t, year)
		}
	}
}

func TestCreateEventSequences_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  RunConfig
	}{
		{"zero years", RunConfig{Years: 0, Replications: 1, StepLength: 1}},
		{"zero replications", RunConfig{Years: 1, Replications: 0, StepLength: 1}},
		{"zero step", RunConfig{Years: 1, Replications: 1, StepLength: 0}},
		{"negative step", RunConfig{Years: 1, Replications: 1, StepLength: -1}},
		{"unknown mode", RunConfig{Years: 1, Replications: 1, StepLength: 1, Mode: "sobol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := CreateEventSequences(context.Background(), testRecords(), tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidParameter)
			assert.Nil(t, res)
		})
	}
}

func TestDefaultRunConfig(t *testing.T) {
	cfg := DefaultRunConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.Years)
	assert.Equal(t, 20, cfg.Replications)
	assert.Equal(t, 1.0, cfg.StepLength)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(42), *cfg.Seed)
}

func TestIsValidRNGMode(t *testing.T) {
	assert.True(t, IsValidRNGMode("single"))
	assert.True(t, IsValidRNGMode("partitioned"))
	assert.False(t, IsValidRNGMode(""))
	assert.False(t, IsValidRNGMode("Single"))
}

func TestResolveKey_UnseededKeyVisibleAtWarn(t *testing.T) {
	// GIVEN the CLI default log level
	hook := logtest.NewGlobal()
	t.Cleanup(hook.Reset)
	prev := logrus.GetLevel()
	logrus.SetLevel(logrus.WarnLevel)
	t.Cleanup(func() { logrus.SetLevel(prev) })

	key, seeded := resolveKey(nil)

	// THEN the drawn key is still logged so the run can be replayed
	assert.False(t, seeded)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, fmt.Sprintf("--seed %d", int64(key)))
}
