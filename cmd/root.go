package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel   string // Log verbosity level
	configPath string // YAML run configuration

	// Overrides applied on top of the run configuration when set explicitly
	seed           int64   // Seed for the partitioned RNG
	initYear       int     // First simulated calendar year
	durationYears  int     // Years per lifecycle
	numLifecycles  int     // Lifecycles per ensemble
	lambda         float64 // Target (or raw, without calibration) annual event rate
	minSepDays     float64 // Minimum days between consecutive events in a year
	yearLengthDays int     // Year length for the feasibility cap (0 = schedule length)
	maxAttempts    int     // Layout rejection sampling bound
	failurePolicy  string  // keep or discard failed layouts
	workers        int     // Parallel lifecycle workers (0 = GOMAXPROCS)
	scheduleFile   string  // Seasonal schedule CSV
	catalogFile    string  // Storm catalog CSV
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "stormgen",
	Short: "Stochastic storm lifecycle generator",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerRunFlags adds the run configuration flags shared by generate and
// calibrate.
func registerRunFlags(cmd *cobra.Command) {
	d := DefaultRunConfig()
	cmd.Flags().StringVar(&configPath, "config", "", "YAML run configuration file")
	cmd.Flags().Int64Var(&seed, "seed", d.Seed, "Seed for lifecycle random streams")
	cmd.Flags().IntVar(&initYear, "init-year", d.InitYear, "First simulated calendar year")
	cmd.Flags().IntVar(&durationYears, "years", d.DurationYears, "Years per lifecycle")
	cmd.Flags().IntVar(&numLifecycles, "lifecycles", d.NumLifecycles, "Number of lifecycles in the ensemble")
	cmd.Flags().Float64Var(&lambda, "lambda", d.Lambda, "Annual event rate (target rate when calibrating)")
	cmd.Flags().Float64Var(&minSepDays, "min-sep-days", d.MinSepDays, "Minimum days between consecutive events in a year")
	cmd.Flags().IntVar(&yearLengthDays, "year-length", 0, "Year length in days for the feasibility cap (0 = schedule length)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", d.MaxAttempts, "Maximum layout attempts per year")
	cmd.Flags().StringVar(&failurePolicy, "failure-policy", d.FailurePolicy, "Failed layout handling (keep, discard)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel workers (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&scheduleFile, "schedule", "", "Seasonal schedule CSV (default: uniform)")
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "Storm catalog CSV")
}

// resolveRunConfig loads --config (or the defaults) and applies every flag
// the user set explicitly.
func resolveRunConfig(cmd *cobra.Command) (*RunConfig, error) {
	cfg := DefaultRunConfig()
	if configPath != "" {
		var err error
		if cfg, err = LoadRunConfig(configPath); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("init-year") {
		cfg.InitYear = initYear
	}
	if flags.Changed("years") {
		cfg.DurationYears = durationYears
	}
	if flags.Changed("lifecycles") {
		cfg.NumLifecycles = numLifecycles
	}
	if flags.Changed("lambda") {
		cfg.Lambda = lambda
	}
	if flags.Changed("min-sep-days") {
		cfg.MinSepDays = minSepDays
	}
	if flags.Changed("year-length") {
		cfg.YearLengthDays = yearLengthDays
	}
	if flags.Changed("max-attempts") {
		cfg.MaxAttempts = maxAttempts
	}
	if flags.Changed("failure-policy") {
		cfg.FailurePolicy = failurePolicy
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("schedule") {
		cfg.ScheduleFile = scheduleFile
	}
	if flags.Changed("catalog") {
		cfg.CatalogFile = catalogFile
	}
	if flags.Changed("output") {
		cfg.Output = outputPath
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if flags.Changed("calibrate") {
		cfg.Calibration.Enabled = calibrate
	}
	if flags.Changed("kafka-brokers") {
		if cfg.Kafka == nil {
			cfg.Kafka = &KafkaConfig{}
		}
		cfg.Kafka.Brokers = kafkaBrokers
	}
	if flags.Changed("kafka-topic") {
		if cfg.Kafka == nil {
			cfg.Kafka = &KafkaConfig{}
		}
		cfg.Kafka.Topic = kafkaTopic
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	registerRunFlags(generateCmd)
	registerGenerateFlags(generateCmd)
	registerRunFlags(calibrateCmd)

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(validateCmd)
}
