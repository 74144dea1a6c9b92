package eventset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazard-sim/hazard-sim/sim"
)

func writeEventSet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidYAML_LoadsCorrectly(t *testing.T) {
	path := writeEventSet(t, `
name: coastal
description: synthetic surge set
sub_events:
  - name: surge_rp2
    frequency: 0.5
  - name: surge_rp10
    frequency: 0.1
  - name: tide
    frequency: 12
`)

	set, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "coastal", set.Name)
	assert.Equal(t, "synthetic surge set", set.Description)
	require.Len(t, set.SubEvents, 3)
	assert.Equal(t, SubEvent{Name: "surge_rp10", Frequency: 0.1}, set.SubEvents[1])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading event set")
}

func TestParse_UnknownKey_ReturnsError(t *testing.T) {
	_, err := Parse(strings.NewReader(`
name: coastal
sub_events:
  - name: a
    frequncy: 0.1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frequncy")
}

func TestParse_EmptyDocument(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty document")
}

func TestParse_NoSubEvents_IsValid(t *testing.T) {
	set, err := Parse(strings.NewReader("name: empty\n"))
	require.NoError(t, err)
	assert.Empty(t, set.Records())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		set     EventSet
		wantMsg string
	}{
		{"missing name", EventSet{SubEvents: []SubEvent{{Frequency: 0.1}}}, "name is required"},
		{"duplicate name", EventSet{SubEvents: []SubEvent{{Name: "a", Frequency: 0.1}, {Name: "a", Frequency: 0.2}}}, "already used"},
		{"negative frequency", EventSet{SubEvents: []SubEvent{{Name: "a", Frequency: -1}}}, "non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParse_NonFiniteFrequency(t *testing.T) {
	_, err := Parse(strings.NewReader(`
name: x
sub_events:
  - name: a
    frequency: .inf
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finite")
}

func TestRecords_PreservesFileOrder(t *testing.T) {
	set := &EventSet{SubEvents: []SubEvent{
		{Name: "b", Frequency: 0.2},
		{Name: "a", Frequency: 0.1},
	}}
	assert.Equal(t, []sim.EventRecord{
		{ID: "b", Frequency: 0.2},
		{ID: "a", Frequency: 0.1},
	}, set.Records())
}
