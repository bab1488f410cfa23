package sim

// Event is one generated storm occurrence. Events are never mutated after
// creation and are ordered chronologically within a year by Timestamp.
type Event struct {
	LifecycleID int     `json:"lifecycle"`
	YearOffset  int     `json:"year_offset"`
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	Day         int     `json:"day"`
	DayOfYear   int     `json:"day_of_year"`
	Hour        float64 `json:"hour"`
	StormID     int     `json:"storm_id"`
	ResidualCDF float64 `json:"rcdf"`
	// LayoutOK is false when the year's layout missed the separation constraint
	// and was kept under FailurePolicyKeep.
	LayoutOK bool `json:"layout_ok"`
}

// Timestamp returns the fractional day of year, DayOfYear + Hour/24.
func (e Event) Timestamp() float64 {
	return float64(e.DayOfYear) + e.Hour/HoursPerDay
}

// YearSummary records what happened in one simulated year, including years
// that produced no events.
type YearSummary struct {
	YearOffset int
	Year       int
	// Drawn is the capped Poisson count.
	Drawn int
	// Emitted is the number of events appended (0 when discarded).
	Emitted   int
	Attempts  int
	LayoutOK  bool
	Discarded bool
}

// Lifecycle is one multi-year realization. Events are ordered by year, then
// timestamp. Years has one entry per simulated year.
type Lifecycle struct {
	ID     int
	Events []Event
	Years  []YearSummary
}

// AnnualCounts returns the emitted event count of every year, zeros included.
func (lc *Lifecycle) AnnualCounts() []int {
	counts := make([]int, len(lc.Years))
	for i, y := range lc.Years {
		counts[i] = y.Emitted
	}
	return counts
}

// FailedYears returns how many years missed the separation constraint.
func (lc *Lifecycle) FailedYears() int {
	n := 0
	for _, y := range lc.Years {
		if !y.LayoutOK {
			n++
		}
	}
	return n
}

// DiscardedYears returns how many failed years were dropped.
func (lc *Lifecycle) DiscardedYears() int {
	n := 0
	for _, y := range lc.Years {
		if y.Discarded {
			n++
		}
	}
	return n
}
