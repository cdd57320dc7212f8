package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameAddColumnLength(t *testing.T) {
	f := NewFrame(2)
	require.NoError(t, f.AddColumn("a", []float64{1, 2}))
	assert.Error(t, f.AddColumn("b", []float64{1}))
	assert.Equal(t, []string{"a"}, f.Columns())
}

func TestFrameMeansSkipNaN(t *testing.T) {
	f := NewFrame(3)
	require.NoError(t, f.AddColumn("a", []float64{1, math.NaN(), 3}))
	require.NoError(t, f.AddColumn("empty", []float64{math.NaN(), math.NaN(), math.NaN()}))

	means := f.Means()
	assert.InDelta(t, 2.0, means["a"], 1e-12)
	assert.Equal(t, 0.0, means["empty"])
}

func TestFrameMatrixFillsNaN(t *testing.T) {
	f := NewFrame(2)
	require.NoError(t, f.AddColumn("a", []float64{math.NaN(), 4}))
	require.NoError(t, f.AddColumn("b", []float64{1, 2}))

	x := f.Matrix([]string{"b", "a"}, map[string]float64{"a": 9})
	assert.Equal(t, [][]float64{{1, 9}, {2, 4}}, x)
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
		ok     bool
	}{
		{"odd", []float64{3, 1, 2}, 2, true},
		{"even", []float64{4, 1, 3, 2}, 2.5, true},
		{"nan ignored", []float64{math.NaN(), 5, 1}, 3, true},
		{"empty", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Median(tt.values)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestIsIdentifierColumn(t *testing.T) {
	tests := map[string]bool{
		"id":                 true,
		"ID":                 true,
		"machine_id":         true,
		"operatorId":         true,
		"power_kw":           false,
		"true_anomaly_label": false,
		// Suffix match is purely lexical.
		"humid": true,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, IsIdentifierColumn(name))
		})
	}
}

func TestFeatureColumnsExcludes(t *testing.T) {
	f := NewFrame(1)
	for _, c := range []string{"id", "power_kw", "energy_cost", "energy_kwh"} {
		require.NoError(t, f.AddColumn(c, []float64{1}))
	}
	assert.Equal(t, []string{"power_kw", "energy_kwh"}, featureColumns(f, "energy_cost"))
}
