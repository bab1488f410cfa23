package sim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
)

// FailurePolicy decides what happens to a year whose layout missed the
// separation constraint after MaxAttempts.
type FailurePolicy string

const (
	// FailurePolicyKeep appends the last candidate with LayoutOK=false.
	FailurePolicyKeep FailurePolicy = "keep"
	// FailurePolicyDiscard drops the year's events and marks it Discarded.
	FailurePolicyDiscard FailurePolicy = "discard"
)

var validFailurePolicies = map[FailurePolicy]bool{
	"":                   true, // empty defaults to keep
	FailurePolicyKeep:    true,
	FailurePolicyDiscard: true,
}

// IsValidFailurePolicy reports whether name is a recognized failure policy.
func IsValidFailurePolicy(name string) bool {
	return validFailurePolicies[FailurePolicy(name)]
}

// LifecycleConfig holds the per-lifecycle generation parameters.
type LifecycleConfig struct {
	InitYear      int
	DurationYears int
	Lambda        float64
	MinSepDays    float64
	// YearLengthDays feeds the feasibility cap. 0 uses the schedule length.
	YearLengthDays int
	// MaxAttempts bounds layout rejection sampling. 0 uses DefaultMaxAttempts.
	MaxAttempts   int
	FailurePolicy FailurePolicy
}

// Validate checks the configuration, returning an error wrapping ErrInvalidConfig.
func (c *LifecycleConfig) Validate() error {
	if c.DurationYears <= 0 {
		return fmt.Errorf("%w: duration_years must be positive, got %d", ErrInvalidConfig, c.DurationYears)
	}
	if math.IsNaN(c.MinSepDays) || math.IsInf(c.MinSepDays, 0) || c.MinSepDays <= 0 {
		return fmt.Errorf("%w: min_sep_days must be a positive finite number, got %f", ErrInvalidConfig, c.MinSepDays)
	}
	if math.IsNaN(c.Lambda) || math.IsInf(c.Lambda, 0) || c.Lambda < 0 {
		return fmt.Errorf("%w: lambda must be a non-negative finite number, got %f", ErrInvalidConfig, c.Lambda)
	}
	if c.YearLengthDays < 0 || c.YearLengthDays > MaxDayOfYear {
		return fmt.Errorf("%w: year_length_days must be in [0, %d], got %d", ErrInvalidConfig, MaxDayOfYear, c.YearLengthDays)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("%w: max_attempts must be non-negative, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if !validFailurePolicies[c.FailurePolicy] {
		return fmt.Errorf("%w: unknown failure_policy %q; valid: keep, discard", ErrInvalidConfig, c.FailurePolicy)
	}
	return nil
}

// LifecycleSimulator turns a configuration plus shared read-only inputs into
// lifecycles. It holds no mutable state; one simulator may serve many
// goroutines as long as each passes its own RNG.
type LifecycleSimulator struct {
	cfg      LifecycleConfig
	schedule *ProbabilitySchedule
	catalog  *StormCatalog
}

// NewLifecycleSimulator validates cfg and resolves its defaults.
func NewLifecycleSimulator(cfg LifecycleConfig, schedule *ProbabilitySchedule, catalog *StormCatalog) (*LifecycleSimulator, error) {
	if schedule == nil {
		return nil, fmt.Errorf("%w: nil schedule", ErrInvalidSchedule)
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrInvalidCatalog)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.YearLengthDays == 0 {
		cfg.YearLengthDays = schedule.Len()
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = FailurePolicyKeep
	}
	return &LifecycleSimulator{cfg: cfg, schedule: schedule, catalog: catalog}, nil
}

// Config returns the resolved configuration.
func (s *LifecycleSimulator) Config() LifecycleConfig { return s.cfg }

// Schedule returns the shared schedule.
func (s *LifecycleSimulator) Schedule() *ProbabilitySchedule { return s.schedule }

// Catalog returns the shared catalog.
func (s *LifecycleSimulator) Catalog() *StormCatalog { return s.catalog }

// FeasibilityCap returns the per-year event cap for this configuration.
func (s *LifecycleSimulator) FeasibilityCap() int {
	return FeasibilityCap(s.cfg.YearLengthDays, s.cfg.MinSepDays)
}

// WithLambda returns a copy of the simulator using a different Poisson rate.
func (s *LifecycleSimulator) WithLambda(lambda float64) *LifecycleSimulator {
	cp := *s
	cp.cfg.Lambda = lambda
	return &cp
}

// Simulate generates one lifecycle. For each year it draws a capped count,
// lays out the timing, and assigns identities, consuming rng in that order.
// Identical rng state and inputs always produce identical output.
func (s *LifecycleSimulator) Simulate(lifecycleID int, rng *rand.Rand) *Lifecycle {
	cfg := s.cfg
	lc := &Lifecycle{
		ID:    lifecycleID,
		Years: make([]YearSummary, 0, cfg.DurationYears),
	}

	for yearOffset := 0; yearOffset < cfg.DurationYears; yearOffset++ {
		year := cfg.InitYear + yearOffset
		summary := YearSummary{YearOffset: yearOffset, Year: year, LayoutOK: true}

		n := SampleCount(cfg.Lambda, cfg.YearLengthDays, cfg.MinSepDays, rng)
		summary.Drawn = n
		if n == 0 {
			lc.Years = append(lc.Years, summary)
			continue
		}

		layout := SampleLayout(n, s.schedule, cfg.MinSepDays, rng, cfg.MaxAttempts)
		ids, residuals := AssignIDs(layout.Len(), s.catalog, rng)
		summary.Attempts = layout.Attempts
		summary.LayoutOK = layout.OK

		if !layout.OK {
			logrus.WithFields(logrus.Fields{
				"lifecycle": lifecycleID,
				"year":      year,
				"events":    n,
				"attempts":  layout.Attempts,
				"policy":    cfg.FailurePolicy,
			}).Debugf("layout missed %.2f-day separation", cfg.MinSepDays)
			if cfg.FailurePolicy == FailurePolicyDiscard {
				summary.Discarded = true
				lc.Years = append(lc.Years, summary)
				continue
			}
		}

		for k := range layout.Days {
			month, day := MonthDay(year, layout.Days[k])
			lc.Events = append(lc.Events, Event{
				LifecycleID: lifecycleID,
				YearOffset:  yearOffset,
				Year:        year,
				Month:       month,
				Day:         day,
				DayOfYear:   layout.Days[k],
				Hour:        layout.Hours[k],
				StormID:     ids[k],
				ResidualCDF: residuals[k],
				LayoutOK:    layout.OK,
			})
		}
		summary.Emitted = layout.Len()
		lc.Years = append(lc.Years, summary)
	}
	return lc
}
