package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeStormCatalog(t *testing.T) *StormCatalog {
	t.Helper()
	c, err := NewStormCatalog([]CatalogEntry{{103, 3}, {101, 1}, {102, 2}})
	require.NoError(t, err)
	return c
}

func TestNewStormCatalog_SortsByWeightAndBuildsCDF(t *testing.T) {
	c := threeStormCatalog(t)

	assert.Equal(t, []int{101, 102, 103}, c.IDs())
	cdf := c.CDF()
	require.Len(t, cdf, 3)
	assert.InDelta(t, 1.0/6, cdf[0], 1e-12)
	assert.InDelta(t, 3.0/6, cdf[1], 1e-12)
	assert.Equal(t, 1.0, cdf[2])
	assert.InDelta(t, 2.0/6, c.Probability(102), 1e-12)
	assert.Equal(t, 0.0, c.Probability(999))
}

func TestNewStormCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		entries []CatalogEntry
	}{
		{"empty", nil},
		{"zero total", []CatalogEntry{{1, 0}, {2, 0}}},
		{"negative weight", []CatalogEntry{{1, -1}, {2, 3}}},
		{"nan weight", []CatalogEntry{{1, math.NaN()}}},
		{"duplicate id", []CatalogEntry{{1, 1}, {1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStormCatalog(tt.entries)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestStormCatalog_Lookup(t *testing.T) {
	c := threeStormCatalog(t)
	tests := []struct {
		u      float64
		wantID int
	}{
		{0.0, 101},
		{0.16, 101},
		{1.0 / 6, 102},
		{0.49, 102},
		{0.5, 103},
		{0.99999, 103},
	}
	for _, tt := range tests {
		id, cdf := c.Lookup(tt.u)
		assert.Equal(t, tt.wantID, id, "u=%v", tt.u)
		assert.Greater(t, cdf, tt.u)
	}
}

func TestStormCatalog_ZeroWeightNeverSelected(t *testing.T) {
	c, err := NewStormCatalog([]CatalogEntry{{7, 0}, {8, 1}})
	require.NoError(t, err)
	id, _ := c.Lookup(0)
	assert.Equal(t, 8, id)
	assert.True(t, c.Contains(7))
}
