// Package eventset reads hazard event-set files, the catalogs of sub-events
// and annual frequencies fed to the occurrence sampler.
package eventset

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/hazard-sim/hazard-sim/sim"
)

// EventSet is the top-level event-set file.
// Loaded from YAML via Load(path).
type EventSet struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	SubEvents   []SubEvent `yaml:"sub_events"`
}

// SubEvent is one hazard event of the set.
type SubEvent struct {
	Name      string  `yaml:"name"`
	Frequency float64 `yaml:"frequency"` // occurrences per year
}

// Load reads and parses a YAML event-set file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Load(path string) (*EventSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading event set: %w", err)
	}
	set, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	logrus.Debugf("eventset: loaded %q with %d sub-events from %s", set.Name, len(set.SubEvents), path)
	return set, nil
}

// Parse decodes an event set from r with strict field checking and validates it.
func Parse(r io.Reader) (*EventSet, error) {
	var set EventSet
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&set); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("parsing event set: empty document")
		}
		return nil, fmt.Errorf("parsing event set: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event set: %w", err)
	}
	return &set, nil
}

// Validate checks that every sub-event has a unique name and a finite,
// non-negative frequency.
func (s *EventSet) Validate() error {
	seen := make(map[string]int, len(s.SubEvents))
	for i, ev := range s.SubEvents {
		prefix := fmt.Sprintf("sub_events[%d]", i)
		if ev.Name == "" {
			return fmt.Errorf("%s: name is required", prefix)
		}
		if j, dup := seen[ev.Name]; dup {
			return fmt.Errorf("%s: name %q already used by sub_events[%d]", prefix, ev.Name, j)
		}
		seen[ev.Name] = i
		if math.IsNaN(ev.Frequency) || math.IsInf(ev.Frequency, 0) {
			return fmt.Errorf("%s: frequency must be a finite number, got %f", prefix, ev.Frequency)
		}
		if ev.Frequency < 0 {
			return fmt.Errorf("%s: frequency must be non-negative, got %f", prefix, ev.Frequency)
		}
	}
	return nil
}

// Records converts the sub-events to catalog records, in file order.
func (s *EventSet) Records() []sim.EventRecord {
	records := make([]sim.EventRecord, len(s.SubEvents))
	for i, ev := range s.SubEvents {
		records[i] = sim.EventRecord{ID: ev.Name, Frequency: ev.Frequency}
	}
	return records
}
