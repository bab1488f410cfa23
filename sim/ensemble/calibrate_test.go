package ensemble

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastal-risk/stormgen/sim"
)

func TestNewCalibrator_Validation(t *testing.T) {
	s := defaultTestSimulator(t)
	tests := []struct {
		name string
		sim  *sim.LifecycleSimulator
		cfg  CalibrationConfig
	}{
		{"nil simulator", nil, CalibrationConfig{TargetLambda: 1}},
		{"negative target", s, CalibrationConfig{TargetLambda: -1}},
		{"negative years", s, CalibrationConfig{TargetLambda: 1, Years: -1}},
		{"negative tolerance", s, CalibrationConfig{TargetLambda: 1, Tolerance: -0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCalibrator(tt.sim, tt.cfg, nil)
			assert.ErrorIs(t, err, sim.ErrInvalidConfig)
		})
	}
}

func TestCalibrate_ZeroTarget_NoProbes(t *testing.T) {
	c, err := NewCalibrator(defaultTestSimulator(t), CalibrationConfig{TargetLambda: 0}, nil)
	require.NoError(t, err)

	res, err := c.Calibrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.LambdaRaw)
	assert.Equal(t, 0, res.Probes)
	assert.True(t, res.Converged)
}

func TestCalibrate_ConvergesForFeasibleTarget(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	// GIVEN target 1.7 with 7-day separation on a uniform 365-day schedule
	s := newTestSimulator(t, sim.LifecycleConfig{InitYear: 2033, DurationYears: 50, Lambda: 1.7, MinSepDays: 7})
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c, err := NewCalibrator(s, CalibrationConfig{TargetLambda: 1.7, Seed: 11}, m)
	require.NoError(t, err)

	// WHEN calibrating
	res, err := c.Calibrate(context.Background())
	require.NoError(t, err)

	// THEN the bracket was bisected 12 times after one upper-bound probe
	assert.True(t, res.Converged)
	assert.Equal(t, 1+DefaultCalibrationIterations+1, res.Probes)
	assert.LessOrEqual(t, res.Low, res.LambdaRaw)
	assert.GreaterOrEqual(t, res.High, res.LambdaRaw)
	assert.Equal(t, 53, res.FeasibilityCap)
	assert.Equal(t, float64(res.Probes), promtestutil.ToFloat64(m.CalibrationProbes))
	assert.Equal(t, res.LambdaRaw, promtestutil.ToFloat64(m.CalibratedLambdaRaw))

	// AND a large independent ensemble at lambda_raw has mean within 5% of 1.7
	d, err := NewDriver(s.WithLambda(res.LambdaRaw), Config{NumLifecycles: 300, Seed: 2024})
	require.NoError(t, err)
	summary, err := d.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.7, summary.MeanAnnualRate(), 1.7*0.05)
}

func TestCalibrate_InfeasibleTarget_BoundedAndNotConverged(t *testing.T) {
	// GIVEN 60-day separation (cap = floor(365/60)+1 = 7) and target 10
	s := newTestSimulator(t, sim.LifecycleConfig{
		InitYear: 2033, DurationYears: 1, Lambda: 10, MinSepDays: 60, MaxAttempts: 50,
	})
	c, err := NewCalibrator(s, CalibrationConfig{TargetLambda: 10, Years: 20, Lifecycles: 20, Seed: 3}, nil)
	require.NoError(t, err)

	// WHEN calibrating
	res, err := c.Calibrate(context.Background())
	require.NoError(t, err)

	// THEN the search stops after the fixed probe budget, pinned near the
	// expanded upper bound, and reports the gap instead of failing
	assert.False(t, res.Converged)
	assert.Equal(t, 7, res.FeasibilityCap)
	assert.LessOrEqual(t, res.AchievedRate, 7.0)
	assert.GreaterOrEqual(t, res.LambdaRaw, 3*res.TargetLambda)
	assert.Equal(t, 1+DefaultMaxExpansions+DefaultCalibrationIterations+1, res.Probes)
	assert.Greater(t, res.RelativeError(), 0.05)
}

func TestCalibrate_SameSeedSameResult(t *testing.T) {
	s := newTestSimulator(t, sim.LifecycleConfig{InitYear: 2033, DurationYears: 1, Lambda: 3, MinSepDays: 30})
	cfg := CalibrationConfig{TargetLambda: 3, Years: 10, Lifecycles: 20, Iterations: 6, Seed: 5, Workers: 3}
	run := func() *CalibrationResult {
		c, err := NewCalibrator(s, cfg, nil)
		require.NoError(t, err)
		res, err := c.Calibrate(context.Background())
		require.NoError(t, err)
		return res
	}
	assert.Equal(t, run(), run())
}

func TestCalibrate_CancelledContext(t *testing.T) {
	c, err := NewCalibrator(defaultTestSimulator(t), CalibrationConfig{TargetLambda: 1.7, Years: 5, Lifecycles: 5}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Calibrate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
