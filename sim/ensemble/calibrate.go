package ensemble

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/coastal-risk/stormgen/sim"
)

// Calibration defaults.
const (
	DefaultCalibrationYears      = 50
	DefaultCalibrationLifecycles = 200
	DefaultCalibrationIterations = 12
	DefaultMaxExpansions         = 5
	DefaultCalibrationTolerance  = 0.05
)

// CalibrationConfig controls the rate search.
type CalibrationConfig struct {
	TargetLambda float64
	// Years and Lifecycles size each probe ensemble.
	Years      int
	Lifecycles int
	// Iterations is the fixed number of bisection steps.
	Iterations int
	// MaxExpansions bounds how often the upper bracket may double.
	MaxExpansions int
	// Tolerance is the relative gap between achieved and target rate above
	// which the result is reported as not converged.
	Tolerance float64
	Seed      int64
	Workers   int
}

func (c *CalibrationConfig) applyDefaults() {
	if c.Years == 0 {
		c.Years = DefaultCalibrationYears
	}
	if c.Lifecycles == 0 {
		c.Lifecycles = DefaultCalibrationLifecycles
	}
	if c.Iterations == 0 {
		c.Iterations = DefaultCalibrationIterations
	}
	if c.MaxExpansions == 0 {
		c.MaxExpansions = DefaultMaxExpansions
	}
	if c.Tolerance == 0 {
		c.Tolerance = DefaultCalibrationTolerance
	}
}

func (c *CalibrationConfig) validate() error {
	if math.IsNaN(c.TargetLambda) || math.IsInf(c.TargetLambda, 0) || c.TargetLambda < 0 {
		return fmt.Errorf("%w: target lambda must be a non-negative finite number, got %f", sim.ErrInvalidConfig, c.TargetLambda)
	}
	if c.Years < 0 || c.Lifecycles < 0 || c.Iterations < 0 || c.MaxExpansions < 0 {
		return fmt.Errorf("%w: calibration sizes must be non-negative", sim.ErrInvalidConfig)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: calibration tolerance must be non-negative, got %f", sim.ErrInvalidConfig, c.Tolerance)
	}
	return nil
}

// CalibrationResult reports the chosen raw rate and how close it gets.
type CalibrationResult struct {
	TargetLambda float64
	LambdaRaw    float64
	// AchievedRate is the probe-ensemble annual mean at LambdaRaw.
	AchievedRate float64
	// Low and High are the final bisection bracket.
	Low, High      float64
	Probes         int
	FeasibilityCap int
	Converged      bool
}

// RelativeError returns |AchievedRate - TargetLambda| / TargetLambda.
func (r *CalibrationResult) RelativeError() float64 {
	if r.TargetLambda == 0 {
		return math.Abs(r.AchievedRate)
	}
	return math.Abs(r.AchievedRate-r.TargetLambda) / r.TargetLambda
}

// Calibrator searches for the raw Poisson rate whose post-thinning annual mean
// matches a target.
type Calibrator struct {
	base    *sim.LifecycleSimulator
	cfg     CalibrationConfig
	metrics *Metrics
}

// NewCalibrator builds a calibrator. The base simulator supplies schedule,
// catalog, separation, year length, attempts, and failure policy; its lambda and
// duration are replaced per probe.
func NewCalibrator(base *sim.LifecycleSimulator, cfg CalibrationConfig, metrics *Metrics) (*Calibrator, error) {
	if base == nil {
		return nil, fmt.Errorf("%w: nil lifecycle simulator", sim.ErrInvalidConfig)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Calibrator{base: base, cfg: cfg, metrics: metrics}, nil
}

// Calibrate brackets lambda_raw in [0.5*target, 3*target], doubles the upper
// bound (at most MaxExpansions times) while its probe mean stays below target,
// then bisects for a fixed number of iterations and returns the bracket
// midpoint. A target beyond the feasibility cap drives the search to the
// expanded upper bound; the result then reports Converged=false instead of
// failing.
func (c *Calibrator) Calibrate(ctx context.Context) (*CalibrationResult, error) {
	target := c.cfg.TargetLambda
	res := &CalibrationResult{
		TargetLambda:   target,
		FeasibilityCap: c.base.FeasibilityCap(),
	}
	if target == 0 {
		res.Converged = true
		c.publish(res)
		return res, nil
	}

	lo, hi := 0.5*target, 3.0*target
	hiMean, err := c.probe(ctx, hi, res)
	if err != nil {
		return nil, err
	}
	for i := 0; i < c.cfg.MaxExpansions && hiMean < target; i++ {
		lo = hi
		hi *= 2
		if hiMean, err = c.probe(ctx, hi, res); err != nil {
			return nil, err
		}
	}
	if hiMean < target {
		logrus.Warnf("calibration: mean %.4f at lambda_raw=%.4f still below target %.4f (feasibility cap %d events/year)",
			hiMean, hi, target, res.FeasibilityCap)
	}

	for i := 0; i < c.cfg.Iterations; i++ {
		mid := 0.5 * (lo + hi)
		mean, err := c.probe(ctx, mid, res)
		if err != nil {
			return nil, err
		}
		if mean < target {
			lo = mid
		} else {
			hi = mid
		}
	}

	res.Low, res.High = lo, hi
	res.LambdaRaw = 0.5 * (lo + hi)
	if res.AchievedRate, err = c.probe(ctx, res.LambdaRaw, res); err != nil {
		return nil, err
	}
	res.Converged = res.RelativeError() <= c.cfg.Tolerance
	if !res.Converged {
		logrus.Warnf("calibration did not converge: target %.4f, achieved %.4f at lambda_raw=%.4f (tolerance %.1f%%)",
			target, res.AchievedRate, res.LambdaRaw, 100*c.cfg.Tolerance)
	} else {
		logrus.Infof("calibration: lambda_raw=%.4f achieves %.4f events/year (target %.4f)", res.LambdaRaw, res.AchievedRate, target)
	}
	c.publish(res)
	return res, nil
}

// probe runs one calibration ensemble at lambda and returns its annual mean.
// Every probe reuses the same seed so probes differ only in lambda.
func (c *Calibrator) probe(ctx context.Context, lambda float64, res *CalibrationResult) (float64, error) {
	cfg := c.base.Config()
	cfg.Lambda = lambda
	cfg.DurationYears = c.cfg.Years
	simulator, err := sim.NewLifecycleSimulator(cfg, c.base.Schedule(), c.base.Catalog())
	if err != nil {
		return 0, err
	}
	driver, err := NewDriver(simulator, Config{
		NumLifecycles: c.cfg.Lifecycles,
		Workers:       c.cfg.Workers,
		Seed:          c.cfg.Seed,
	}, WithRunID(sim.SubsystemCalibration))
	if err != nil {
		return 0, err
	}
	summary, err := driver.Run(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("calibration probe at lambda_raw=%.4f: %w", lambda, err)
	}
	res.Probes++
	c.metrics.CalibrationProbes.Inc()
	mean := summary.MeanAnnualRate()
	logrus.Debugf("calibration probe %d: lambda_raw=%.4f mean=%.4f", res.Probes, lambda, mean)
	return mean, nil
}

func (c *Calibrator) publish(res *CalibrationResult) {
	c.metrics.CalibratedLambdaRaw.Set(res.LambdaRaw)
	c.metrics.CalibratedRate.Set(res.AchievedRate)
}
