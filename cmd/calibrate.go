package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/coastal-risk/stormgen/sim/ensemble"
)

// calibrateCmd searches for the raw Poisson rate that yields the target effective rate
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Find the raw Poisson rate whose post-separation annual mean matches --lambda",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveRunConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid run configuration: %v", err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if _, err := runCalibrate(ctx, cfg, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Calibration failed: %v", err)
		}
	},
}

func runCalibrate(ctx context.Context, cfg *RunConfig, out io.Writer) (*ensemble.CalibrationResult, error) {
	simulator, err := buildSimulator(cfg)
	if err != nil {
		return nil, err
	}
	calibrator, err := ensemble.NewCalibrator(simulator, cfg.calibrationConfig(), nil)
	if err != nil {
		return nil, err
	}
	res, err := calibrator.Calibrate(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(out, "--- Rate Calibration ---")
	fmt.Fprintf(out, "Target lambda:    %.4f\n", res.TargetLambda)
	fmt.Fprintf(out, "Raw lambda:       %.4f\n", res.LambdaRaw)
	fmt.Fprintf(out, "Achieved rate:    %.4f (relative error %.2f%%)\n", res.AchievedRate, 100*res.RelativeError())
	fmt.Fprintf(out, "Final bracket:    [%.4f, %.4f] after %d probes\n", res.Low, res.High, res.Probes)
	fmt.Fprintf(out, "Feasibility cap:  %d events/year\n", res.FeasibilityCap)
	fmt.Fprintf(out, "Converged:        %t\n", res.Converged)
	return res, nil
}
