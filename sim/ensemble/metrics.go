package ensemble

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for ensemble
// generation and calibration.
type Metrics struct {
	LifecyclesGenerated prometheus.Counter
	EventsGenerated     prometheus.Counter
	YearsSimulated      prometheus.Counter
	LayoutFailures      prometheus.Counter
	YearsDiscarded      prometheus.Counter
	EnsembleRunning     prometheus.Gauge

	LifecycleDuration prometheus.Histogram
	EventsPerYear     prometheus.Histogram

	// Calibration metrics.
	CalibrationProbes   prometheus.Counter
	CalibratedLambdaRaw prometheus.Gauge
	CalibratedRate      prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg. A nil reg leaves
// them unregistered, which keeps tests and library callers off the global
// registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LifecyclesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stormgen",
			Name:      "lifecycles_generated_total",
			Help:      "Total lifecycles simulated.",
		}),
		EventsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stormgen",
			Name:      "events_generated_total",
			Help:      "Total storm events emitted.",
		}),
		YearsSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stormgen",
			Name:      "years_simulated_total",
			Help:      "Total lifecycle years simulated, including years without events.",
		}),
		LayoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stormgen",
			Name:      "layout_failures_total",
			Help:      "Years whose timing layout missed the minimum separation after max attempts.",
		}),
		YearsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stormgen",
			Name:      "years_discarded_total",
			Help:      "Failed years dropped under the discard policy.",
		}),
		EnsembleRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stormgen",
			Name:      "ensemble_running",
			Help:      "1 while an ensemble is being generated, 0 otherwise.",
		}),
		LifecycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stormgen",
			Name:      "lifecycle_duration_seconds",
			Help:      "Wall time to simulate one lifecycle.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		EventsPerYear: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stormgen",
			Name:      "events_per_year",
			Help:      "Emitted events per simulated year.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 7, 10, 15, 20},
		}),
		CalibrationProbes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stormgen",
			Name:      "calibration_probes_total",
			Help:      "Calibration ensembles evaluated.",
		}),
		CalibratedLambdaRaw: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stormgen",
			Name:      "calibrated_lambda_raw",
			Help:      "Poisson rate chosen by the last calibration.",
		}),
		CalibratedRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stormgen",
			Name:      "calibrated_effective_rate",
			Help:      "Empirical annual rate achieved at the calibrated Poisson rate.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.LifecyclesGenerated,
			m.EventsGenerated,
			m.YearsSimulated,
			m.LayoutFailures,
			m.YearsDiscarded,
			m.EnsembleRunning,
			m.LifecycleDuration,
			m.EventsPerYear,
			m.CalibrationProbes,
			m.CalibratedLambdaRaw,
			m.CalibratedRate,
		)
	}
	return m
}
