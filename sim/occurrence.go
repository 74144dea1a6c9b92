package sim

import "fmt"

// OccurrenceTensor is a dense boolean array of shape
// (replications, years, events). Cells are stored flat in replication-major,
// then year, then event order, the same order the sampler draws them in.
//
// A tensor is never mutated after the sampler or a constructor returns it.
type OccurrenceTensor struct {
	replications int
	years        int
	events       int
	cells        []bool
}

func newOccurrenceTensor(replications, years, events int) *OccurrenceTensor {
	return &OccurrenceTensor{
		replications: replications,
		years:        years,
		events:       events,
		cells:        make([]bool, replications*years*events),
	}
}

// NewOccurrenceTensor copies a nested [replication][year][event] array into a
// tensor. Every replication must have the same number of years and every year
// the same number of events.
func NewOccurrenceTensor(nested [][][]bool) (*OccurrenceTensor, error) {
	if len(nested) == 0 || len(nested[0]) == 0 {
		return nil, fmt.Errorf("%w: tensor needs at least one replication and one year", ErrInvalidParameter)
	}
	years := len(nested[0])
	events := len(nested[0][0])
	t := newOccurrenceTensor(len(nested), years, events)
	for r, rep := range nested {
		if len(rep) != years {
			return nil, fmt.Errorf("%w: replication %d has %d years, want %d", ErrShapeMismatch, r, len(rep), years)
		}
		for y, row := range rep {
			if len(row) != events {
				return nil, fmt.Errorf("%w: replication %d year %d has %d events, want %d", ErrShapeMismatch, r, y, len(row), events)
			}
			copy(t.cells[t.offset(r, y, 0):], row)
		}
	}
	return t, nil
}

// Shape returns (replications, years, events).
func (t *OccurrenceTensor) Shape() (int, int, int) {
	return t.replications, t.years, t.events
}

func (t *OccurrenceTensor) Replications() int { return t.replications }
func (t *OccurrenceTensor) Years() int        { return t.years }
func (t *OccurrenceTensor) Events() int       { return t.events }

// At reports whether event e occurred in year y of replication r.
// Panics on out-of-range indices, like slice indexing.
func (t *OccurrenceTensor) At(r, y, e int) bool {
	if r < 0 || r >= t.replications || y < 0 || y >= t.years || e < 0 || e >= t.events {
		panic(fmt.Sprintf("occurrence index (%d, %d, %d) out of range for shape (%d, %d, %d)",
			r, y, e, t.replications, t.years, t.events))
	}
	return t.cells[t.offset(r, y, e)]
}

// Year returns the event row for year y of replication r. The returned slice
// aliases the tensor and must not be modified. Panics on out-of-range indices.
func (t *OccurrenceTensor) Year(r, y int) []bool {
	if r < 0 || r >= t.replications || y < 0 || y >= t.years {
		panic(fmt.Sprintf("occurrence index (%d, %d) out of range for shape (%d, %d, %d)",
			r, y, t.replications, t.years, t.events))
	}
	start := t.offset(r, y, 0)
	return t.cells[start : start+t.events : start+t.events]
}

// Count returns how many times event e occurred across all replications and years.
func (t *OccurrenceTensor) Count(e int) int {
	n := 0
	for r := 0; r < t.replications; r++ {
		for y := 0; y < t.years; y++ {
			if t.At(r, y, e) {
				n++
			}
		}
	}
	return n
}

// CountYear returns the number of events that occurred in year y of replication r.
func (t *OccurrenceTensor) CountYear(r, y int) int {
	n := 0
	for _, hit := range t.Year(r, y) {
		if hit {
			n++
		}
	}
	return n
}

// Nested returns a [replication][year][event] copy of the tensor.
func (t *OccurrenceTensor) Nested() [][][]bool {
	out := make([][][]bool, t.replications)
	for r := range out {
		out[r] = make([][]bool, t.years)
		for y := range out[r] {
			out[r][y] = append([]bool{}, t.Year(r, y)...)
		}
	}
	return out
}

func (t *OccurrenceTensor) offset(r, y, e int) int {
	return (r*t.years+y)*t.events + e
}
