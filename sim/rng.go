package sim

import (
	"hash/fnv"
	"math/rand/v2"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible generation run.
// Two runs with the same SimulationKey and identical inputs MUST produce
// identical event sequences.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemLifecycle namespaces the per-lifecycle streams.
	SubsystemLifecycle = "lifecycle"

	// SubsystemCalibration labels calibration probe runs.
	SubsystemCalibration = "calibration"
)

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG streams.
//
// Derivation formula:
//   - ForLifecycle(id): PCG(seed ^ fnv1a64("lifecycle"), id)
//
// Thread-safety: PartitionedRNG holds no mutable state and may be shared by
// any number of goroutines; each returned *rand.Rand must stay owned by one
// goroutine.
type PartitionedRNG struct {
	key SimulationKey
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key}
}

// ForLifecycle returns a fresh RNG for lifecycle id. The stream depends only on
// the key and the id, so a lifecycle draws the same values whichever worker
// computes it and in whatever order.
func (p *PartitionedRNG) ForLifecycle(id int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(p.key)^fnv1a64(SubsystemLifecycle), uint64(int64(id))))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
