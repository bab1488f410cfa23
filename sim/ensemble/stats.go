package ensemble

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// CountStats summarizes the distribution of annual event counts.
type CountStats struct {
	Years int
	Mean  float64
	// Variance is the population variance (ddof=0).
	Variance float64
	// Distribution maps k to the empirical P(N=k).
	Distribution   map[int]float64
	FailedYears    int
	DiscardedYears int
	// FailureRate is FailedYears / Years.
	FailureRate float64
}

// ComputeCountStats summarizes per-year counts. Every simulated year must be
// present, including years with zero events.
func ComputeCountStats(counts []int, failedYears, discardedYears int) CountStats {
	cs := CountStats{
		Years:          len(counts),
		Distribution:   make(map[int]float64),
		FailedYears:    failedYears,
		DiscardedYears: discardedYears,
	}
	if len(counts) == 0 {
		return cs
	}
	xs := make([]float64, len(counts))
	for i, c := range counts {
		xs[i] = float64(c)
		cs.Distribution[c]++
	}
	cs.Mean, cs.Variance = stat.PopMeanVariance(xs, nil)
	for k := range cs.Distribution {
		cs.Distribution[k] /= float64(len(counts))
	}
	cs.FailureRate = float64(failedYears) / float64(len(counts))
	return cs
}

// RelativeError returns |Mean - target| / target, or |Mean| when target is 0.
func (cs CountStats) RelativeError(target float64) float64 {
	if target == 0 {
		return math.Abs(cs.Mean)
	}
	return math.Abs(cs.Mean-target) / target
}

// Format renders a verification table comparing the counts to target.
func (cs CountStats) Format(target float64) string {
	var b strings.Builder
	fmt.Fprintln(&b, "--- Storm Count Verification ---")
	fmt.Fprintf(&b, "Years simulated:     %d\n", cs.Years)
	fmt.Fprintf(&b, "Target lambda:       %.4f\n", target)
	fmt.Fprintf(&b, "Empirical mean:      %.4f\n", cs.Mean)
	fmt.Fprintf(&b, "Empirical variance:  %.4f\n", cs.Variance)
	fmt.Fprintf(&b, "Layout failures:     %d (%.2f%%), discarded %d\n", cs.FailedYears, 100*cs.FailureRate, cs.DiscardedYears)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, " k | empirical P(N=k)")
	ks := make([]int, 0, len(cs.Distribution))
	for k := range cs.Distribution {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	for _, k := range ks {
		fmt.Fprintf(&b, "%2d | %.4f\n", k, cs.Distribution[k])
	}
	return b.String()
}
