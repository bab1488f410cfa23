// Package testutil provides shared test infrastructure for the stormgen
// generator. It consolidates fixture rows and assertion helpers used across
// sim/ and its sub-package tests.
package testutil

import (
	"math"
	"testing"
)

// UniformScheduleRows returns (day, cumulative probability) columns for a
// schedule that spreads probability evenly over days 1..n.
func UniformScheduleRows(n int) (days []int, cdf []float64) {
	days = make([]int, n)
	cdf = make([]float64, n)
	for i := 0; i < n; i++ {
		days[i] = i + 1
		cdf[i] = float64(i+1) / float64(n)
	}
	return days, cdf
}

// ThreeStormWeights is the small catalog used by scenario tests:
// ids 101, 102, 103 with weights 1, 2, 3 (cdf 1/6, 3/6, 1).
var ThreeStormWeights = map[int]float64{101: 1, 102: 2, 103: 3}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertMinGap fails if any consecutive pair of timestamps is closer than minGap.
func AssertMinGap(t *testing.T, name string, timestamps []float64, minGap float64) {
	t.Helper()
	for i := 1; i < len(timestamps); i++ {
		if gap := timestamps[i] - timestamps[i-1]; gap < minGap {
			t.Errorf("%s: gap[%d] = %.4f days, want >= %.4f", name, i-1, gap, minGap)
		}
	}
}
