package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastal-risk/stormgen/sim/internal/testutil"
)

func uniformSchedule(t *testing.T, n int) *ProbabilitySchedule {
	t.Helper()
	days, cdf := testutil.UniformScheduleRows(n)
	entries := make([]ScheduleEntry, n)
	for i := range entries {
		entries[i] = ScheduleEntry{DayOfYear: days[i], CumulativeProbability: cdf[i]}
	}
	s, err := NewProbabilitySchedule(entries)
	require.NoError(t, err)
	return s
}

func TestNewProbabilitySchedule_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		entries []ScheduleEntry
	}{
		{"empty", nil},
		{"day zero", []ScheduleEntry{{0, 1.0}}},
		{"day past 366", []ScheduleEntry{{367, 1.0}}},
		{"days not increasing", []ScheduleEntry{{2, 0.5}, {2, 1.0}}},
		{"cdf decreasing", []ScheduleEntry{{1, 0.6}, {2, 0.5}, {3, 1.0}}},
		{"negative cdf", []ScheduleEntry{{1, -0.1}, {2, 1.0}}},
		{"final far from one", []ScheduleEntry{{1, 0.2}, {2, 0.8}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProbabilitySchedule(tt.entries)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSchedule), "error must wrap ErrInvalidSchedule: %v", err)
		})
	}
}

func TestNewProbabilitySchedule_FinalWithinTolerance(t *testing.T) {
	s, err := NewProbabilitySchedule([]ScheduleEntry{{1, 0.5}, {2, 0.995}})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestProbabilitySchedule_SampleDay_FirstGreater(t *testing.T) {
	// GIVEN cdf [0.25, 0.25, 1.0] over days 10, 20, 30
	s, err := NewProbabilitySchedule([]ScheduleEntry{{10, 0.25}, {20, 0.25}, {30, 1.0}})
	require.NoError(t, err)

	tests := []struct {
		u    float64
		want int
	}{
		{0.0, 10},
		{0.2499, 10},
		{0.25, 30}, // day 20 has zero mass and is never chosen
		{0.9999, 30},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.SampleDay(tt.u), "u=%v", tt.u)
	}
}

func TestProbabilitySchedule_SampleDay_ClampsAboveFinalCDF(t *testing.T) {
	s, err := NewProbabilitySchedule([]ScheduleEntry{{1, 0.5}, {2, 0.995}})
	require.NoError(t, err)
	assert.Equal(t, 2, s.SampleDay(0.999))
}

func TestNewUniformSchedule(t *testing.T) {
	s, err := NewUniformSchedule(365)
	require.NoError(t, err)
	assert.Equal(t, 365, s.Len())
	assert.Equal(t, 1, s.FirstDay())
	assert.Equal(t, 365, s.LastDay())
	assert.Equal(t, 1, s.SampleDay(0))
	assert.Equal(t, 183, s.SampleDay(0.5))

	_, err = NewUniformSchedule(0)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestProbabilitySchedule_Entries_IsCopy(t *testing.T) {
	s := uniformSchedule(t, 4)
	e := s.Entries()
	e[0].DayOfYear = 99
	assert.Equal(t, 1, s.FirstDay())
}
