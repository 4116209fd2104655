package learning

import (
	"fmt"
	"sort"
)

// MinMaxScaler scales numeric features to the [0, 1] range observed
// during fitting. Values outside the fitted range are clamped.
type MinMaxScaler struct {
	mins   []float64
	maxs   []float64
	fitted bool
}

// NewMinMaxScaler creates an unfitted scaler
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// Fit learns the per-column min and max from the samples
func (s *MinMaxScaler) Fit(samples [][]float64) error {
	if len(samples) == 0 {
		return fmt.Errorf("cannot fit scaler on empty sample set")
	}

	cols := len(samples[0])
	s.mins = make([]float64, cols)
	s.maxs = make([]float64, cols)
	copy(s.mins, samples[0])
	copy(s.maxs, samples[0])

	for _, row := range samples {
		if len(row) != cols {
			return fmt.Errorf("inconsistent feature width: expected %d, got %d", cols, len(row))
		}
		for j, v := range row {
			if v < s.mins[j] {
				s.mins[j] = v
			}
			if v > s.maxs[j] {
				s.maxs[j] = v
			}
		}
	}

	s.fitted = true
	return nil
}

// Transform scales one sample in place-safe fashion (returns a copy)
func (s *MinMaxScaler) Transform(sample []float64) ([]float64, error) {
	if !s.fitted {
		return nil, fmt.Errorf("scaler is not fitted")
	}
	if len(sample) != len(s.mins) {
		return nil, fmt.Errorf("feature width mismatch: expected %d, got %d", len(s.mins), len(sample))
	}

	out := make([]float64, len(sample))
	for j, v := range sample {
		span := s.maxs[j] - s.mins[j]
		if span == 0 {
			out[j] = 0
			continue
		}
		scaled := (v - s.mins[j]) / span
		if scaled < 0 {
			scaled = 0
		}
		if scaled > 1 {
			scaled = 1
		}
		out[j] = scaled
	}
	return out, nil
}

// TransformAll scales a batch of samples
func (s *MinMaxScaler) TransformAll(samples [][]float64) ([][]float64, error) {
	out := make([][]float64, len(samples))
	for i, row := range samples {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

// OneHotEncoder encodes categorical string columns as indicator
// vectors. Categories unseen during fitting land in a dedicated
// "unknown" bucket per column.
type OneHotEncoder struct {
	// categories[col] maps category value to its slot within the
	// column's block. The last slot of each block is the unknown
	// bucket.
	categories []map[string]int
	widths     []int
	fitted     bool
}

// NewOneHotEncoder creates an unfitted encoder
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{}
}

// Fit learns the category sets from the samples. Category order is
// sorted per column so encoding is deterministic across runs.
func (e *OneHotEncoder) Fit(samples [][]string) error {
	if len(samples) == 0 {
		return fmt.Errorf("cannot fit encoder on empty sample set")
	}

	cols := len(samples[0])
	seen := make([]map[string]struct{}, cols)
	for j := range seen {
		seen[j] = make(map[string]struct{})
	}
	for _, row := range samples {
		if len(row) != cols {
			return fmt.Errorf("inconsistent categorical width: expected %d, got %d", cols, len(row))
		}
		for j, v := range row {
			seen[j][v] = struct{}{}
		}
	}

	e.categories = make([]map[string]int, cols)
	e.widths = make([]int, cols)
	for j := range seen {
		values := make([]string, 0, len(seen[j]))
		for v := range seen[j] {
			values = append(values, v)
		}
		sort.Strings(values)

		e.categories[j] = make(map[string]int, len(values))
		for slot, v := range values {
			e.categories[j][v] = slot
		}
		e.widths[j] = len(values) + 1 // +1 for the unknown bucket
	}

	e.fitted = true
	return nil
}

// Transform encodes one categorical sample as a flat indicator vector
func (e *OneHotEncoder) Transform(sample []string) ([]float64, error) {
	if !e.fitted {
		return nil, fmt.Errorf("encoder is not fitted")
	}
	if len(sample) != len(e.categories) {
		return nil, fmt.Errorf("categorical width mismatch: expected %d, got %d", len(e.categories), len(sample))
	}

	total := 0
	for _, w := range e.widths {
		total += w
	}
	out := make([]float64, total)

	offset := 0
	for j, v := range sample {
		slot, ok := e.categories[j][v]
		if !ok {
			slot = e.widths[j] - 1 // unknown bucket
		}
		out[offset+slot] = 1
		offset += e.widths[j]
	}
	return out, nil
}

// Width returns the total encoded vector width
func (e *OneHotEncoder) Width() int {
	total := 0
	for _, w := range e.widths {
		total += w
	}
	return total
}
