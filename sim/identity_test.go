package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignIDs_Empty(t *testing.T) {
	ids, res := AssignIDs(0, threeStormCatalog(t), newTestRand(1))
	assert.Empty(t, ids)
	assert.Empty(t, res)
}

func TestAssignIDs_MembersOfCatalog(t *testing.T) {
	c := threeStormCatalog(t)
	ids, res := AssignIDs(500, c, newTestRand(2))
	assert.Len(t, ids, 500)
	assert.Len(t, res, 500)
	for i, id := range ids {
		assert.True(t, c.Contains(id), "storm %d not in catalog", id)
		assert.Greater(t, res[i], 0.0)
		assert.LessOrEqual(t, res[i], 1.0)
	}
}

func TestAssignIDs_FrequenciesMatchWeights(t *testing.T) {
	// GIVEN weights 1:2:3
	c := threeStormCatalog(t)

	// WHEN 60000 identities are drawn
	n := 60000
	ids, _ := AssignIDs(n, c, newTestRand(42))
	counts := map[int]int{}
	for _, id := range ids {
		counts[id]++
	}

	// THEN each frequency is within 5% of its probability
	for _, id := range []int{101, 102, 103} {
		got := float64(counts[id]) / float64(n)
		want := c.Probability(id)
		if math.Abs(got-want)/want > 0.05 {
			t.Errorf("storm %d frequency = %.4f, want ≈ %.4f", id, got, want)
		}
	}
}
