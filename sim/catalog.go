package sim

import (
	"fmt"
	"math"
	"sort"
)

// CatalogEntry is one weighted storm identity.
type CatalogEntry struct {
	StormID int
	Weight  float64
}

// StormCatalog is a validated, immutable set of weighted storm identities with
// derived probabilities and CDF. Entries are held in ascending weight order
// (ties keep input order). Safe for concurrent reads.
type StormCatalog struct {
	ids   []int
	probs []float64
	cdf   []float64
	index map[int]int
}

// NewStormCatalog validates entries and derives probability = weight/sum and
// the cumulative distribution over entries sorted by weight ascending.
// Zero weights are allowed but never sampled; the total must be positive.
func NewStormCatalog(entries []CatalogEntry) (*StormCatalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidCatalog)
	}
	seen := make(map[int]bool, len(entries))
	total := 0.0
	for i, e := range entries {
		if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) || e.Weight < 0 {
			return nil, fmt.Errorf("%w: entry %d (storm %d): weight must be finite and non-negative, got %f", ErrInvalidCatalog, i, e.StormID, e.Weight)
		}
		if seen[e.StormID] {
			return nil, fmt.Errorf("%w: duplicate storm_id %d", ErrInvalidCatalog, e.StormID)
		}
		seen[e.StormID] = true
		total += e.Weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: total weight is zero", ErrInvalidCatalog)
	}

	sorted := make([]CatalogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Weight < sorted[j].Weight })

	c := &StormCatalog{
		ids:   make([]int, len(sorted)),
		probs: make([]float64, len(sorted)),
		cdf:   make([]float64, len(sorted)),
		index: make(map[int]int, len(sorted)),
	}
	cumulative := 0.0
	for i, e := range sorted {
		p := e.Weight / total
		cumulative += p
		c.ids[i] = e.StormID
		c.probs[i] = p
		c.cdf[i] = cumulative
		c.index[e.StormID] = i
	}
	// Rounding must not leave a gap at the top of the unit interval.
	c.cdf[len(c.cdf)-1] = 1.0
	return c, nil
}

// Lookup maps a uniform draw u in [0, 1) to the first entry whose CDF exceeds
// u, returning its storm id and CDF value.
func (c *StormCatalog) Lookup(u float64) (stormID int, cdf float64) {
	idx := sort.Search(len(c.cdf), func(i int) bool { return c.cdf[i] > u })
	if idx >= len(c.ids) {
		idx = len(c.ids) - 1
	}
	return c.ids[idx], c.cdf[idx]
}

// Len returns the number of storms in the catalog.
func (c *StormCatalog) Len() int { return len(c.ids) }

// Contains reports whether stormID is in the catalog.
func (c *StormCatalog) Contains(stormID int) bool {
	_, ok := c.index[stormID]
	return ok
}

// Probability returns the normalized probability of stormID, or 0 if absent.
func (c *StormCatalog) Probability(stormID int) float64 {
	i, ok := c.index[stormID]
	if !ok {
		return 0
	}
	return c.probs[i]
}

// IDs returns storm ids in CDF order.
func (c *StormCatalog) IDs() []int {
	out := make([]int, len(c.ids))
	copy(out, c.ids)
	return out
}

// CDF returns the cumulative distribution in the same order as IDs.
func (c *StormCatalog) CDF() []float64 {
	out := make([]float64, len(c.cdf))
	copy(out, c.cdf)
	return out
}
