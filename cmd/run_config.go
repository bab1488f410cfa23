package cmd

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/coastal-risk/stormgen/sim"
	"github.com/coastal-risk/stormgen/sim/ensemble"
	"github.com/coastal-risk/stormgen/sim/loader"
	"github.com/coastal-risk/stormgen/sim/record"
)

//go:embed run_config.schema.json
var runConfigSchemaJSON []byte

const runConfigSchemaURL = "run_config.schema.json"

var runConfigSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(runConfigSchemaURL, bytes.NewReader(runConfigSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(runConfigSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// KafkaConfig is the optional Kafka sink section.
type KafkaConfig struct {
	Brokers                []string `yaml:"brokers"`
	Topic                  string   `yaml:"topic"`
	AllowAutoTopicCreation bool     `yaml:"allow_auto_topic_creation"`
}

// CalibrationConfig is the rate calibration section. Zero sizes use the
// calibrator defaults.
type CalibrationConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Years      int     `yaml:"years"`
	Lifecycles int     `yaml:"lifecycles"`
	Iterations int     `yaml:"iterations"`
	Tolerance  float64 `yaml:"tolerance"`
}

// RunConfig is the YAML run configuration shared by all subcommands.
type RunConfig struct {
	Seed           int64             `yaml:"seed"`
	InitYear       int               `yaml:"init_year"`
	DurationYears  int               `yaml:"duration_years"`
	NumLifecycles  int               `yaml:"num_lifecycles"`
	Lambda         float64           `yaml:"lambda"`
	MinSepDays     float64           `yaml:"min_sep_days"`
	YearLengthDays int               `yaml:"year_length_days"`
	MaxAttempts    int               `yaml:"max_attempts"`
	FailurePolicy  string            `yaml:"failure_policy"`
	Workers        int               `yaml:"workers"`
	ScheduleFile   string            `yaml:"schedule_file"`
	CatalogFile    string            `yaml:"catalog_file"`
	Output         string            `yaml:"output"`
	MetricsAddr    string            `yaml:"metrics_addr"`
	Kafka          *KafkaConfig      `yaml:"kafka,omitempty"`
	Calibration    CalibrationConfig `yaml:"calibration"`
}

// DefaultRunConfig returns the configuration used when no file is given.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Seed:          42,
		InitYear:      2033,
		DurationYears: 50,
		NumLifecycles: 100,
		Lambda:        1.7,
		MinSepDays:    7,
		MaxAttempts:   sim.DefaultMaxAttempts,
		FailurePolicy: string(sim.FailurePolicyKeep),
	}
}

// LoadRunConfig reads a YAML run configuration on top of the defaults.
// The document is checked against the embedded JSON schema, then decoded
// strictly: unrecognized keys are rejected.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	return parseRunConfig(data)
}

func parseRunConfig(data []byte) (*RunConfig, error) {
	if err := validateRunConfigSchema(data); err != nil {
		return nil, fmt.Errorf("%w: %v", sim.ErrInvalidConfig, err)
	}
	cfg := DefaultRunConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return cfg, nil
}

// validateRunConfigSchema converts the YAML document to JSON values and
// validates it against the run config schema.
func validateRunConfigSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing run config: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("converting run config to JSON: %w", err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	schema, err := runConfigSchema()
	if err != nil {
		return err
	}
	return schema.Validate(payload)
}

// Validate checks cross-field constraints not covered by the schema.
func (c *RunConfig) Validate() error {
	lc := c.lifecycleConfig()
	if err := lc.Validate(); err != nil {
		return err
	}
	if c.NumLifecycles <= 0 {
		return fmt.Errorf("%w: num_lifecycles must be positive, got %d", sim.ErrInvalidConfig, c.NumLifecycles)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", sim.ErrInvalidConfig, c.Workers)
	}
	if c.CatalogFile == "" {
		return fmt.Errorf("%w: catalog_file is required", sim.ErrInvalidConfig)
	}
	if c.Kafka != nil && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("%w: kafka needs brokers and a topic", sim.ErrInvalidConfig)
	}
	return nil
}

func (c *RunConfig) lifecycleConfig() sim.LifecycleConfig {
	return sim.LifecycleConfig{
		InitYear:       c.InitYear,
		DurationYears:  c.DurationYears,
		Lambda:         c.Lambda,
		MinSepDays:     c.MinSepDays,
		YearLengthDays: c.YearLengthDays,
		MaxAttempts:    c.MaxAttempts,
		FailurePolicy:  sim.FailurePolicy(c.FailurePolicy),
	}
}

func (c *RunConfig) ensembleConfig() ensemble.Config {
	return ensemble.Config{
		NumLifecycles: c.NumLifecycles,
		Workers:       c.Workers,
		Seed:          c.Seed,
	}
}

func (c *RunConfig) calibrationConfig() ensemble.CalibrationConfig {
	return ensemble.CalibrationConfig{
		TargetLambda: c.Lambda,
		Years:        c.Calibration.Years,
		Lifecycles:   c.Calibration.Lifecycles,
		Iterations:   c.Calibration.Iterations,
		Tolerance:    c.Calibration.Tolerance,
		Seed:         c.Seed,
		Workers:      c.Workers,
	}
}

func (c *RunConfig) kafkaConfig() record.KafkaConfig {
	return record.KafkaConfig{
		Brokers:                c.Kafka.Brokers,
		Topic:                  c.Kafka.Topic,
		AllowAutoTopicCreation: c.Kafka.AllowAutoTopicCreation,
	}
}

// buildSimulator loads the schedule and catalog and constructs the lifecycle
// simulator. Without a schedule file the schedule is uniform over
// year_length_days, or 365 days when that is unset.
func buildSimulator(c *RunConfig) (*sim.LifecycleSimulator, error) {
	var (
		schedule *sim.ProbabilitySchedule
		err      error
	)
	if c.ScheduleFile != "" {
		schedule, err = loader.LoadSchedule(c.ScheduleFile)
	} else {
		n := c.YearLengthDays
		if n == 0 {
			n = 365
		}
		logrus.Infof("No schedule_file given; using a uniform schedule over %d days", n)
		schedule, err = sim.NewUniformSchedule(n)
	}
	if err != nil {
		return nil, err
	}
	catalog, err := loader.LoadCatalog(c.CatalogFile)
	if err != nil {
		return nil, err
	}
	return sim.NewLifecycleSimulator(c.lifecycleConfig(), schedule, catalog)
}
