package sim

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// FeasibilityCap returns the largest number of events that fit in one year of
// yearLengthDays while keeping minSepDays between consecutive events:
// floor(yearLengthDays / minSepDays) + 1.
func FeasibilityCap(yearLengthDays int, minSepDays float64) int {
	return int(math.Floor(float64(yearLengthDays)/minSepDays)) + 1
}

// SampleCount draws n ~ Poisson(lambda) for one year and caps it at
// FeasibilityCap(yearLengthDays, minSepDays). Always returns n >= 0.
// A non-positive lambda yields 0 without consuming the stream.
func SampleCount(lambda float64, yearLengthDays int, minSepDays float64, rng *rand.Rand) int {
	if lambda <= 0 {
		return 0
	}
	n := int(distuv.Poisson{Lambda: lambda, Src: rng}.Rand())
	if n == 0 {
		return 0
	}
	return min(n, FeasibilityCap(yearLengthDays, minSepDays))
}
