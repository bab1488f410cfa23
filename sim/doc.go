// Package sim provides the stochastic storm-event generator for stormgen.
//
// # Reading Guide
//
// Start with these files to understand one simulated year:
//   - count.go: capped Poisson event count (SampleCount, FeasibilityCap)
//   - layout.go: separation-constrained timing by rejection sampling (SampleLayout)
//   - identity.go: weighted storm identity by inverse CDF (AssignIDs)
//   - lifecycle.go: the year loop that ties them together (LifecycleSimulator)
//
// # Inputs
//
// ProbabilitySchedule (daily seasonality CDF) and StormCatalog (weighted storm
// ids) are validated at construction and never mutated afterwards, so a single
// instance may be shared by any number of concurrent lifecycles.
//
// # Randomness
//
// Every sampling function takes an explicit *rand.Rand. PartitionedRNG derives
// independent streams from one seed; ForLifecycle gives each lifecycle its own
// stream so results do not depend on scheduling order.
//
// # Sub-packages
//   - sim/ensemble/: parallel ensemble driver, rate calibration, count statistics
//   - sim/record/: event sinks (CSV, Kafka, memory)
//   - sim/loader/: schedule and catalog CSV loaders
package sim
