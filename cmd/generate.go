package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/coastal-risk/stormgen/sim/ensemble"
	"github.com/coastal-risk/stormgen/sim/record"
)

var (
	outputPath   string   // Event CSV path
	metricsAddr  string   // Prometheus listen address
	calibrate    bool     // Calibrate lambda before generating
	kafkaBrokers []string // Kafka bootstrap brokers
	kafkaTopic   string   // Kafka topic for events
	printStats   bool     // Print count verification after the run
)

// generateCmd simulates an ensemble and writes its events to the configured sinks
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an ensemble of storm lifecycles",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveRunConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid run configuration: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		metrics := ensemble.NewMetrics(reg)
		if cfg.MetricsAddr != "" {
			srv := newMetricsServer(cfg.MetricsAddr, reg)
			srv.start()
			defer srv.shutdown()
		}

		res, err := runGenerate(ctx, cfg, metrics, cmd.OutOrStdout())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logrus.Warnf("Generation interrupted after %d lifecycles", res.Summary.Lifecycles)
				return
			}
			logrus.Fatalf("Generation failed: %v", err)
		}
		if printStats {
			fmt.Fprint(cmd.OutOrStdout(), res.Summary.Stats().Format(res.TargetLambda))
		}
	},
}

func registerGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&outputPath, "output", "", "Event CSV path (a .header.yaml sidecar is written next to it)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	cmd.Flags().BoolVar(&calibrate, "calibrate", false, "Calibrate the raw Poisson rate so the effective rate matches --lambda")
	cmd.Flags().StringSliceVar(&kafkaBrokers, "kafka-brokers", nil, "Kafka brokers; events are published when set with --kafka-topic")
	cmd.Flags().StringVar(&kafkaTopic, "kafka-topic", "", "Kafka topic for events")
	cmd.Flags().BoolVar(&printStats, "stats", false, "Print annual count verification after the run")
}

// generateResult carries what a generate run produced.
type generateResult struct {
	Summary      *ensemble.Summary
	Calibration  *ensemble.CalibrationResult
	TargetLambda float64
	LambdaRaw    float64
}

// runGenerate builds the simulator, optionally calibrates, and streams the
// ensemble into the configured sinks. The run header is written even when the
// run is interrupted so partial output stays self-describing.
func runGenerate(ctx context.Context, cfg *RunConfig, metrics *ensemble.Metrics, out io.Writer) (*generateResult, error) {
	simulator, err := buildSimulator(cfg)
	if err != nil {
		return nil, err
	}
	res := &generateResult{TargetLambda: cfg.Lambda, LambdaRaw: cfg.Lambda, Summary: &ensemble.Summary{}}

	if cfg.Calibration.Enabled {
		calibrator, err := ensemble.NewCalibrator(simulator, cfg.calibrationConfig(), metrics)
		if err != nil {
			return res, err
		}
		cal, err := calibrator.Calibrate(ctx)
		if err != nil {
			return res, fmt.Errorf("calibrating lambda: %w", err)
		}
		res.Calibration = cal
		res.LambdaRaw = cal.LambdaRaw
		simulator = simulator.WithLambda(cal.LambdaRaw)
		fmt.Fprintf(out, "Calibrated lambda_raw=%.4f (target %.4f, achieved %.4f, converged=%t)\n",
			cal.LambdaRaw, cal.TargetLambda, cal.AchievedRate, cal.Converged)
	}

	runID := uuid.NewString()
	var sinks record.MultiSink
	var csvSink *record.CSVSink
	if cfg.Output != "" {
		if csvSink, err = record.OpenCSVSink(cfg.Output); err != nil {
			return res, err
		}
		sinks = append(sinks, csvSink)
	}
	if cfg.Kafka != nil {
		kafkaSink, err := record.NewKafkaSink(cfg.kafkaConfig(), runID)
		if err != nil {
			_ = sinks.Close()
			return res, err
		}
		sinks = append(sinks, kafkaSink)
	}
	if len(sinks) == 0 {
		logrus.Warn("No output or kafka sink configured; events are counted but not written")
	}

	driver, err := ensemble.NewDriver(simulator, cfg.ensembleConfig(),
		ensemble.WithMetrics(metrics), ensemble.WithRunID(runID))
	if err != nil {
		_ = sinks.Close()
		return res, err
	}
	simCfg := simulator.Config()
	logrus.Infof("Generating %d lifecycles x %d years (lambda_raw=%.4f, min_sep_days=%g, cap=%d/year, run %s)",
		cfg.NumLifecycles, simCfg.DurationYears, simCfg.Lambda, simCfg.MinSepDays, simulator.FeasibilityCap(), runID)

	summary, runErr := driver.Run(ctx, sinks)
	if summary != nil {
		res.Summary = summary
	}
	closeErr := sinks.Close()

	if csvSink != nil {
		header := &record.RunHeader{
			RunID:          runID,
			CreatedAt:      time.Now().UTC().Format(time.RFC3339),
			Seed:           cfg.Seed,
			InitYear:       simCfg.InitYear,
			DurationYears:  simCfg.DurationYears,
			NumLifecycles:  res.Summary.Lifecycles,
			Lambda:         simCfg.Lambda,
			MinSepDays:     simCfg.MinSepDays,
			YearLengthDays: simCfg.YearLengthDays,
			MaxAttempts:    simCfg.MaxAttempts,
			FailurePolicy:  string(simCfg.FailurePolicy),
			ScheduleFile:   cfg.ScheduleFile,
			CatalogFile:    cfg.CatalogFile,
			Events:         res.Summary.Events,
			FailedYears:    res.Summary.FailedYears,
			DiscardedYears: res.Summary.DiscardedYears,
		}
		if cfg.Calibration.Enabled {
			header.LambdaTarget = res.TargetLambda
		}
		if err := record.WriteHeader(record.HeaderPath(cfg.Output), header); err != nil {
			return res, err
		}
	}
	if runErr != nil {
		return res, runErr
	}
	if closeErr != nil {
		return res, fmt.Errorf("closing sinks: %w", closeErr)
	}

	logrus.Infof("Generated %d events over %d years (%.4f/year, %d failed layouts) in %s",
		res.Summary.Events, res.Summary.Years, res.Summary.MeanAnnualRate(), res.Summary.FailedYears, res.Summary.Elapsed)
	return res, nil
}
