package sim

import (
	"fmt"
	"math"
	"sort"
)

// MaxDayOfYear is the largest day ordinal a schedule may carry (leap years).
const MaxDayOfYear = 366

// CDFTolerance is how far the final cumulative probability of a schedule may
// sit from 1.0 before the schedule is rejected.
const CDFTolerance = 1e-2

// ScheduleEntry is one row of a daily seasonality CDF.
type ScheduleEntry struct {
	DayOfYear             int
	CumulativeProbability float64
}

// ProbabilitySchedule is a validated, immutable daily seasonality CDF.
// Safe for concurrent reads.
type ProbabilitySchedule struct {
	days []int
	cdf  []float64
}

// NewProbabilitySchedule validates entries and builds a schedule.
// Entries must be strictly increasing in day, non-decreasing in cumulative
// probability, lie in [1, 366] x [0, 1], and end within CDFTolerance of 1.0.
func NewProbabilitySchedule(entries []ScheduleEntry) (*ProbabilitySchedule, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidSchedule)
	}
	days := make([]int, len(entries))
	cdf := make([]float64, len(entries))
	for i, e := range entries {
		if e.DayOfYear < 1 || e.DayOfYear > MaxDayOfYear {
			return nil, fmt.Errorf("%w: entry %d: day_of_year %d outside [1, %d]", ErrInvalidSchedule, i, e.DayOfYear, MaxDayOfYear)
		}
		p := e.CumulativeProbability
		if math.IsNaN(p) || p < 0 || p > 1+CDFTolerance {
			return nil, fmt.Errorf("%w: entry %d: cumulative probability %f outside [0, 1]", ErrInvalidSchedule, i, p)
		}
		if i > 0 {
			if e.DayOfYear <= days[i-1] {
				return nil, fmt.Errorf("%w: entry %d: day_of_year %d not after %d", ErrInvalidSchedule, i, e.DayOfYear, days[i-1])
			}
			if p < cdf[i-1] {
				return nil, fmt.Errorf("%w: entry %d: cumulative probability decreases (%f < %f)", ErrInvalidSchedule, i, p, cdf[i-1])
			}
		}
		days[i] = e.DayOfYear
		cdf[i] = p
	}
	if last := cdf[len(cdf)-1]; math.Abs(last-1.0) > CDFTolerance {
		return nil, fmt.Errorf("%w: final cumulative probability %f, want 1.0", ErrInvalidSchedule, last)
	}
	return &ProbabilitySchedule{days: days, cdf: cdf}, nil
}

// NewUniformSchedule returns a schedule giving every day in [1, yearLength]
// the same probability.
func NewUniformSchedule(yearLength int) (*ProbabilitySchedule, error) {
	if yearLength < 1 || yearLength > MaxDayOfYear {
		return nil, fmt.Errorf("%w: uniform year length %d outside [1, %d]", ErrInvalidSchedule, yearLength, MaxDayOfYear)
	}
	entries := make([]ScheduleEntry, yearLength)
	for i := range entries {
		entries[i] = ScheduleEntry{
			DayOfYear:             i + 1,
			CumulativeProbability: float64(i+1) / float64(yearLength),
		}
	}
	entries[yearLength-1].CumulativeProbability = 1.0
	return NewProbabilitySchedule(entries)
}

// SampleDay maps a uniform draw u in [0, 1) to the first day whose cumulative
// probability exceeds u. Draws at or above the final cumulative value (possible
// when it is slightly below 1.0) map to the last day.
func (s *ProbabilitySchedule) SampleDay(u float64) int {
	idx := sort.Search(len(s.cdf), func(i int) bool { return s.cdf[i] > u })
	if idx >= len(s.days) {
		idx = len(s.days) - 1
	}
	return s.days[idx]
}

// Len returns the number of days in the schedule. This is the default year
// length for feasibility capping.
func (s *ProbabilitySchedule) Len() int { return len(s.days) }

// FirstDay returns the smallest day ordinal in the schedule.
func (s *ProbabilitySchedule) FirstDay() int { return s.days[0] }

// LastDay returns the largest day ordinal in the schedule.
func (s *ProbabilitySchedule) LastDay() int { return s.days[len(s.days)-1] }

// Entries returns a copy of the schedule rows.
func (s *ProbabilitySchedule) Entries() []ScheduleEntry {
	out := make([]ScheduleEntry, len(s.days))
	for i := range s.days {
		out[i] = ScheduleEntry{DayOfYear: s.days[i], CumulativeProbability: s.cdf[i]}
	}
	return out
}
