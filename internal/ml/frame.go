package ml

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Frame is an in-memory numeric table. Nulls are stored as NaN.
type Frame struct {
	columns []string
	data    map[string][]float64
	rows    int
}

func NewFrame(rows int) *Frame {
	return &Frame{data: make(map[string][]float64), rows: rows}
}

// AddColumn appends a column; values must have exactly Len() entries.
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != f.rows {
		return fmt.Errorf("column %s has %d values, frame has %d rows", name, len(values), f.rows)
	}
	if _, ok := f.data[name]; !ok {
		f.columns = append(f.columns, name)
	}
	f.data[name] = values
	return nil
}

func (f *Frame) Len() int { return f.rows }

func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

func (f *Frame) Has(name string) bool {
	_, ok := f.data[name]
	return ok
}

func (f *Frame) Column(name string) ([]float64, bool) {
	v, ok := f.data[name]
	return v, ok
}

// Means returns the null-excluding mean of every column. Columns with no
// observed values map to 0.
func (f *Frame) Means() map[string]float64 {
	out := make(map[string]float64, len(f.columns))
	for _, c := range f.columns {
		m, ok := Mean(f.data[c])
		if !ok {
			m = 0
		}
		out[c] = m
	}
	return out
}

// Matrix builds a row-major matrix of the named columns, replacing NaN with fill[column].
func (f *Frame) Matrix(cols []string, fill map[string]float64) [][]float64 {
	x := make([][]float64, f.rows)
	for i := range x {
		row := make([]float64, len(cols))
		for j, c := range cols {
			v := f.data[c][i]
			if math.IsNaN(v) {
				v = fill[c]
			}
			row[j] = v
		}
		x[i] = row
	}
	return x
}

// Mean ignores NaN. ok is false when nothing was observed.
func Mean(values []float64) (float64, bool) {
	obs := observed(values)
	if len(obs) == 0 {
		return 0, false
	}
	return stat.Mean(obs, nil), true
}

// Median ignores NaN and averages the two middle values on even counts.
func Median(values []float64) (float64, bool) {
	obs := observed(values)
	if len(obs) == 0 {
		return 0, false
	}
	sort.Float64s(obs)
	mid := len(obs) / 2
	if len(obs)%2 == 1 {
		return obs[mid], true
	}
	return (obs[mid-1] + obs[mid]) / 2, true
}

func observed(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// IsIdentifierColumn reports whether a column name looks like an identifier:
// it equals "id" or ends with "id", case-insensitively.
func IsIdentifierColumn(name string) bool {
	lower := strings.ToLower(name)
	return lower == "id" || strings.HasSuffix(lower, "id")
}

// featureColumns returns the frame's non-identifier columns minus any excluded names.
func featureColumns(f *Frame, exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	var out []string
	for _, c := range f.columns {
		if IsIdentifierColumn(c) || skip[c] {
			continue
		}
		out = append(out, c)
	}
	return out
}
