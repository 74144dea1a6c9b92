package sim

import "fmt"

// EventSequence lists, for one replication, the events that occurred in each
// simulated year. Index y holds the IDs for year y in catalog order; a year
// without events is an empty slice.
type EventSequence [][]string

// PlaceholderEventIDs returns event_0 … event_{n-1}.
func PlaceholderEventIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("event_%d", i)
	}
	return ids
}

// AssembleSequences converts an occurrence tensor into one EventSequence per
// replication. A nil eventIDs slice is replaced by PlaceholderEventIDs.
// Replication and year order follow the tensor; IDs within a year follow
// ascending event index.
func AssembleSequences(tensor *OccurrenceTensor, eventIDs []string) ([]EventSequence, error) {
	if tensor == nil {
		return nil, fmt.Errorf("%w: occurrence tensor is nil", ErrInvalidParameter)
	}
	if eventIDs == nil {
		eventIDs = PlaceholderEventIDs(tensor.Events())
	}
	if len(eventIDs) != tensor.Events() {
		return nil, fmt.Errorf("%w: %d event ids for %d tensor events", ErrShapeMismatch, len(eventIDs), tensor.Events())
	}

	sequences := make([]EventSequence, tensor.Replications())
	for r := range sequences {
		seq := make(EventSequence, tensor.Years())
		for y := range seq {
			year := make([]string, 0, tensor.CountYear(r, y))
			for e, hit := range tensor.Year(r, y) {
				if hit {
					year = append(year, eventIDs[e])
				}
			}
			seq[y] = year
		}
		sequences[r] = seq
	}
	return sequences, nil
}
