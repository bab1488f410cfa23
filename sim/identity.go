package sim

import "math/rand/v2"

// AssignIDs draws nEvents storm identities from catalog with replacement by
// inverse-CDF lookup. It returns the ids and the CDF value each draw matched.
func AssignIDs(nEvents int, catalog *StormCatalog, rng *rand.Rand) (stormIDs []int, residualCDF []float64) {
	if nEvents <= 0 {
		return []int{}, []float64{}
	}
	stormIDs = make([]int, nEvents)
	residualCDF = make([]float64, nEvents)
	for i := range stormIDs {
		stormIDs[i], residualCDF[i] = catalog.Lookup(rng.Float64())
	}
	return stormIDs, residualCDF
}
