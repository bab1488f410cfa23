package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastal-risk/stormgen/sim"
	"github.com/coastal-risk/stormgen/sim/internal/testutil"
)

func uniformScheduleCSV(n int) string {
	days, cdf := testutil.UniformScheduleRows(n)
	var b strings.Builder
	b.WriteString("day_of_year,cumulative_probability\n")
	for i := range days {
		fmt.Fprintf(&b, "%d,%v\n", days[i], cdf[i])
	}
	return b.String()
}

func TestReadSchedule_DayOfYearColumns(t *testing.T) {
	s, err := ReadSchedule(strings.NewReader(uniformScheduleCSV(365)))
	require.NoError(t, err)
	assert.Equal(t, 365, s.Len())
	assert.Equal(t, 1, s.FirstDay())
	assert.Equal(t, 365, s.LastDay())
}

func TestReadSchedule_MonthDayColumns(t *testing.T) {
	// GIVEN the Month/Day layout with a seasonal window in June
	input := "Month,Day,Cumulative trop prob\n" +
		"6,1,0.25\n" +
		"6,2,0.5\n" +
		"6,3,0.75\n" +
		"6,4,1.0\n"

	// WHEN parsed
	s, err := ReadSchedule(strings.NewReader(input))

	// THEN day_of_year is the row ordinal
	require.NoError(t, err)
	assert.Equal(t, []sim.ScheduleEntry{
		{DayOfYear: 1, CumulativeProbability: 0.25},
		{DayOfYear: 2, CumulativeProbability: 0.5},
		{DayOfYear: 3, CumulativeProbability: 0.75},
		{DayOfYear: 4, CumulativeProbability: 1.0},
	}, s.Entries())
}

func TestReadSchedule_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no cdf column", "day_of_year,p\n1,1\n"},
		{"no day column", "cdf\n1\n"},
		{"bad probability", "day_of_year,cdf\n1,x\n"},
		{"bad day", "doy,cdf\none,1\n"},
		{"bad month", "Month,Day,Cumulative trop prob\n13,1,1\n"},
		{"decreasing", "doy,cdf\n1,0.6\n2,0.4\n3,1\n"},
		{"does not reach one", "doy,cdf\n1,0.2\n2,0.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSchedule(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, sim.ErrInvalidSchedule)
		})
	}
}

func TestReadCatalog_Aliases(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"snake case", "storm_id,weight\n101,1\n102,2\n103,3\n"},
		{"original columns", "storm_ID,DSW,extra\n103,3,x\n101,1,y\n102,2,z\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ReadCatalog(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, 3, c.Len())
			assert.InDelta(t, 1.0/6, c.Probability(101), 1e-12)
			assert.InDelta(t, 0.5, c.Probability(103), 1e-12)
		})
	}
}

func TestReadCatalog_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing weight", "storm_id\n1\n"},
		{"header only", "storm_id,weight\n"},
		{"bad id", "storm_id,weight\nabc,1\n"},
		{"bad weight", "storm_id,weight\n1,heavy\n"},
		{"negative weight", "storm_id,weight\n1,-1\n"},
		{"zero total", "storm_id,weight\n1,0\n2,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCatalog(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, sim.ErrInvalidCatalog)
		})
	}
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	schedPath := filepath.Join(dir, "schedule.csv")
	catPath := filepath.Join(dir, "catalog.csv")
	require.NoError(t, os.WriteFile(schedPath, []byte(uniformScheduleCSV(10)), 0644))
	require.NoError(t, os.WriteFile(catPath, []byte("storm_ID,DSW\n7,0.5\n8,0.5\n"), 0644))

	s, err := LoadSchedule(schedPath)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Len())

	c, err := LoadCatalog(catPath)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8}, c.IDs())

	_, err = LoadSchedule(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
	_, err = LoadCatalog(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
