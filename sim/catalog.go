package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// probabilityRoundingTolerance absorbs frequency × step products that land a
// few ulps above 1 for events sitting exactly on the 1/step boundary.
const probabilityRoundingTolerance = 1e-9

// EventRecord is one entry of an external hazard event catalog.
type EventRecord struct {
	ID        string
	Frequency float64 // expected occurrences per year, >= 0
}

// FilteredCatalog holds the events eligible for per-step Bernoulli sampling.
// EventIDs and Probabilities are parallel and keep the input catalog order.
type FilteredCatalog struct {
	EventIDs      []string
	Probabilities []float64
}

// Len returns the number of selected events.
func (c FilteredCatalog) Len() int {
	return len(c.EventIDs)
}

// BuildCatalog selects every record whose frequency is at most 1/stepLength
// and converts its frequency to a per-step probability frequency × stepLength.
//
// Events that occur more than once per step on average cannot be represented
// by a single Bernoulli trial and are dropped. An empty selection is valid and
// yields empty (non-nil) slices.
func BuildCatalog(records []EventRecord, stepLength float64) (FilteredCatalog, error) {
	if math.IsNaN(stepLength) || math.IsInf(stepLength, 0) || stepLength <= 0 {
		return FilteredCatalog{}, fmt.Errorf("%w: step length must be positive and finite, got %v", ErrInvalidParameter, stepLength)
	}

	maxFrequency := 1.0 / stepLength
	catalog := FilteredCatalog{
		EventIDs:      make([]string, 0, len(records)),
		Probabilities: make([]float64, 0, len(records)),
	}
	seen := make(map[string]bool, len(records))

	for i, rec := range records {
		if rec.ID == "" {
			return FilteredCatalog{}, fmt.Errorf("%w: event[%d] has an empty identifier", ErrInvalidParameter, i)
		}
		if math.IsNaN(rec.Frequency) || math.IsInf(rec.Frequency, 0) || rec.Frequency < 0 {
			return FilteredCatalog{}, fmt.Errorf("%w: event %q frequency must be finite and non-negative, got %v",
				ErrInvalidParameter, rec.ID, rec.Frequency)
		}
		if rec.Frequency > maxFrequency {
			logrus.Debugf("catalog: excluding %q (frequency %g exceeds one per %g-year step)", rec.ID, rec.Frequency, stepLength)
			continue
		}
		if seen[rec.ID] {
			return FilteredCatalog{}, fmt.Errorf("%w: %q", ErrDuplicateEvent, rec.ID)
		}
		seen[rec.ID] = true

		p, err := stepProbability(rec.Frequency, stepLength)
		if err != nil {
			return FilteredCatalog{}, fmt.Errorf("event %q: %w", rec.ID, err)
		}
		catalog.EventIDs = append(catalog.EventIDs, rec.ID)
		catalog.Probabilities = append(catalog.Probabilities, p)
	}
	return catalog, nil
}

// stepProbability clamps rounding overshoot to exactly 1 and rejects any
// other value outside [0, 1].
func stepProbability(frequency, stepLength float64) (float64, error) {
	p := frequency * stepLength
	if p > 1 && p <= 1+probabilityRoundingTolerance {
		return 1, nil
	}
	if err := validateProbability(p); err != nil {
		return 0, err
	}
	return p, nil
}

func validateProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: %v not in [0, 1]", ErrProbabilityRange, p)
	}
	return nil
}
