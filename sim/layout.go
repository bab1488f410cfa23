package sim

import (
	"math/rand/v2"
	"sort"
)

// DefaultMaxAttempts bounds the rejection loop of SampleLayout.
const DefaultMaxAttempts = 1000

// HoursPerDay converts hours to fractional days.
const HoursPerDay = 24.0

// Layout is the timing of one year's events, sorted by day + hour/24.
// OK is false when no attempt met the separation constraint; Days and Hours
// then hold the last (violating) candidate.
type Layout struct {
	Days     []int
	Hours    []float64
	OK       bool
	Attempts int
}

// Len returns the number of events in the layout.
func (l Layout) Len() int { return len(l.Days) }

// Timestamps returns day + hour/24 for every event.
func (l Layout) Timestamps() []float64 {
	ts := make([]float64, len(l.Days))
	for i := range l.Days {
		ts[i] = float64(l.Days[i]) + l.Hours[i]/HoursPerDay
	}
	return ts
}

// MinGap returns the smallest gap between consecutive timestamps, and false
// when the layout has fewer than two events.
func (l Layout) MinGap() (float64, bool) {
	if len(l.Days) < 2 {
		return 0, false
	}
	ts := l.Timestamps()
	gap := ts[1] - ts[0]
	for i := 2; i < len(ts); i++ {
		if d := ts[i] - ts[i-1]; d < gap {
			gap = d
		}
	}
	return gap, true
}

// SampleLayout draws nEvents (day, hour) pairs by rejection sampling until every
// consecutive gap is at least minSepDays, giving up after maxAttempts.
//
// Each attempt draws nEvents days by inverse CDF against schedule, then nEvents
// hours uniform in [0, 24), and sorts the pairs by day + hour/24. With one event
// the first attempt is accepted. When attempts run out the last candidate is
// returned with OK=false. maxAttempts below 1 is treated as 1.
func SampleLayout(nEvents int, schedule *ProbabilitySchedule, minSepDays float64, rng *rand.Rand, maxAttempts int) Layout {
	if nEvents <= 0 {
		return Layout{Days: []int{}, Hours: []float64{}, OK: true}
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last Layout
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		days := make([]int, nEvents)
		hours := make([]float64, nEvents)
		for i := range days {
			days[i] = schedule.SampleDay(rng.Float64())
		}
		for i := range hours {
			hours[i] = rng.Float64() * HoursPerDay
		}
		sortByTimestamp(days, hours)

		last = Layout{Days: days, Hours: hours, Attempts: attempt}
		if nEvents == 1 {
			last.OK = true
			return last
		}
		if gap, _ := last.MinGap(); gap >= minSepDays {
			last.OK = true
			return last
		}
	}
	return last
}

// sortByTimestamp orders days and hours together by day + hour/24.
// Ties keep draw order.
func sortByTimestamp(days []int, hours []float64) {
	order := make([]int, len(days))
	for i := range order {
		order[i] = i
	}
	ts := func(i int) float64 { return float64(days[i]) + hours[i]/HoursPerDay }
	sort.SliceStable(order, func(a, b int) bool { return ts(order[a]) < ts(order[b]) })

	sortedDays := make([]int, len(days))
	sortedHours := make([]float64, len(hours))
	for i, j := range order {
		sortedDays[i] = days[j]
		sortedHours[i] = hours[j]
	}
	copy(days, sortedDays)
	copy(hours, sortedHours)
}
