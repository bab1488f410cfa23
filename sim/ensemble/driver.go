// Package ensemble runs many independent lifecycles, calibrates the Poisson
// rate against separation thinning, and summarizes annual event counts.
package ensemble

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/coastal-risk/stormgen/sim"
)

// Sink receives the events of each lifecycle, one call per lifecycle, in
// lifecycle order.
type Sink interface {
	Write(ctx context.Context, events []sim.Event) error
}

// Config controls ensemble shape and parallelism.
type Config struct {
	NumLifecycles int
	// Workers is the number of goroutines simulating lifecycles. 0 uses GOMAXPROCS.
	Workers int
	Seed    int64
	// FirstLifecycleID is the id of the first lifecycle; ids are consecutive.
	FirstLifecycleID int
}

// Summary aggregates one ensemble run.
type Summary struct {
	RunID          string
	Lifecycles     int
	Years          int
	Events         int
	FailedYears    int
	DiscardedYears int
	// AnnualCounts holds the emitted count of every simulated year in
	// lifecycle order, zeros included.
	AnnualCounts []int
	Elapsed      time.Duration
}

// MeanAnnualRate returns events per simulated year, or 0 for an empty run.
func (s *Summary) MeanAnnualRate() float64 {
	if s.Years == 0 {
		return 0
	}
	return float64(s.Events) / float64(s.Years)
}

// Stats computes count statistics over the run's annual counts.
func (s *Summary) Stats() CountStats {
	return ComputeCountStats(s.AnnualCounts, s.FailedYears, s.DiscardedYears)
}

// Option configures a Driver.
type Option func(*Driver)

// WithMetrics records ensemble progress into m.
func WithMetrics(m *Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithClock replaces the wall clock used for timing.
func WithClock(c clockwork.Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithRunID fixes the run identifier instead of generating a UUID.
func WithRunID(id string) Option {
	return func(d *Driver) { d.runID = id }
}

// Driver generates an ensemble of statistically independent lifecycles.
// Lifecycle id i always uses stream PartitionedRNG.ForLifecycle(i), so output is
// identical for any worker count.
type Driver struct {
	simulator *sim.LifecycleSimulator
	cfg       Config
	rng       *sim.PartitionedRNG
	metrics   *Metrics
	clock     clockwork.Clock
	runID     string
}

// NewDriver validates cfg and builds a Driver around simulator.
func NewDriver(simulator *sim.LifecycleSimulator, cfg Config, opts ...Option) (*Driver, error) {
	if simulator == nil {
		return nil, fmt.Errorf("%w: nil lifecycle simulator", sim.ErrInvalidConfig)
	}
	if cfg.NumLifecycles <= 0 {
		return nil, fmt.Errorf("%w: num_lifecycles must be positive, got %d", sim.ErrInvalidConfig, cfg.NumLifecycles)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("%w: workers must be non-negative, got %d", sim.ErrInvalidConfig, cfg.Workers)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	cfg.Workers = min(cfg.Workers, cfg.NumLifecycles)

	d := &Driver{
		simulator: simulator,
		cfg:       cfg,
		rng:       sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = NewMetrics(nil)
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	if d.runID == "" {
		d.runID = uuid.NewString()
	}
	return d, nil
}

// RunID returns the identifier attached to this driver's summaries.
func (d *Driver) RunID() string { return d.runID }

// Config returns the resolved configuration.
func (d *Driver) Config() Config { return d.cfg }

// Run simulates the ensemble and writes each lifecycle's events to sink in
// lifecycle order. A nil sink only aggregates the summary. Cancelling ctx stops
// the run between lifecycles; the partial summary is returned with ctx.Err().
func (d *Driver) Run(ctx context.Context, sink Sink) (*Summary, error) {
	return d.run(ctx, func(lc *sim.Lifecycle) error {
		if sink == nil {
			return nil
		}
		if err := sink.Write(ctx, lc.Events); err != nil {
			return fmt.Errorf("writing lifecycle %d: %w", lc.ID, err)
		}
		return nil
	})
}

// Generate simulates the ensemble and returns every lifecycle in id order.
func (d *Driver) Generate(ctx context.Context) ([]*sim.Lifecycle, *Summary, error) {
	lifecycles := make([]*sim.Lifecycle, 0, d.cfg.NumLifecycles)
	summary, err := d.run(ctx, func(lc *sim.Lifecycle) error {
		lifecycles = append(lifecycles, lc)
		return nil
	})
	return lifecycles, summary, err
}

func (d *Driver) run(parent context.Context, emit func(*sim.Lifecycle) error) (*Summary, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	d.metrics.EnsembleRunning.Set(1)
	defer d.metrics.EnsembleRunning.Set(0)

	start := d.clock.Now()
	simCfg := d.simulator.Config()
	summary := &Summary{
		RunID:        d.runID,
		AnnualCounts: make([]int, 0, d.cfg.NumLifecycles*simCfg.DurationYears),
	}
	logrus.Debugf("ensemble %s: %d lifecycles x %d years on %d workers", d.runID, d.cfg.NumLifecycles, simCfg.DurationYears, d.cfg.Workers)

	jobs := make(chan int)
	results := make(chan *sim.Lifecycle, d.cfg.Workers)

	var wg sync.WaitGroup
	for w := 0; w < d.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				t0 := d.clock.Now()
				lc := d.simulator.Simulate(id, d.rng.ForLifecycle(id))
				d.metrics.LifecycleDuration.Observe(d.clock.Since(t0).Seconds())
				select {
				case results <- lc:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := 0; i < d.cfg.NumLifecycles; i++ {
			select {
			case jobs <- d.cfg.FirstLifecycleID + i:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	// Workers finish out of order; hold results until the next id arrives.
	pending := make(map[int]*sim.Lifecycle)
	next := d.cfg.FirstLifecycleID
	for lc := range results {
		pending[lc.ID] = lc
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := parent.Err(); err != nil {
				summary.Elapsed = d.clock.Since(start)
				return summary, err
			}
			if err := emit(ready); err != nil {
				summary.Elapsed = d.clock.Since(start)
				return summary, err
			}
			d.record(summary, ready)
			next++
		}
	}

	summary.Elapsed = d.clock.Since(start)
	if err := parent.Err(); err != nil {
		return summary, err
	}
	logrus.Debugf("ensemble %s: %d events in %d years (%d failed layouts) in %s",
		d.runID, summary.Events, summary.Years, summary.FailedYears, summary.Elapsed)
	return summary, nil
}

func (d *Driver) record(summary *Summary, lc *sim.Lifecycle) {
	summary.Lifecycles++
	summary.Events += len(lc.Events)
	for _, y := range lc.Years {
		summary.Years++
		summary.AnnualCounts = append(summary.AnnualCounts, y.Emitted)
		d.metrics.EventsPerYear.Observe(float64(y.Emitted))
		if !y.LayoutOK {
			summary.FailedYears++
			d.metrics.LayoutFailures.Inc()
		}
		if y.Discarded {
			summary.DiscardedYears++
			d.metrics.YearsDiscarded.Inc()
		}
	}
	d.metrics.LifecyclesGenerated.Inc()
	d.metrics.EventsGenerated.Add(float64(len(lc.Events)))
	d.metrics.YearsSimulated.Add(float64(len(lc.Years)))
}
