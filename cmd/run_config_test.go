package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastal-risk/stormgen/sim"
)

func TestParseRunConfig_AppliesDefaults(t *testing.T) {
	// GIVEN a config that sets only a few fields
	cfg, err := parseRunConfig([]byte("lambda: 2.5\ncatalog_file: storms.csv\ncalibration:\n  enabled: true\n  years: 20\n"))

	// THEN unspecified fields keep their defaults
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.Lambda)
	assert.Equal(t, "storms.csv", cfg.CatalogFile)
	assert.True(t, cfg.Calibration.Enabled)
	assert.Equal(t, 20, cfg.Calibration.Years)
	assert.Equal(t, 2033, cfg.InitYear)
	assert.Equal(t, 50, cfg.DurationYears)
	assert.Equal(t, 100, cfg.NumLifecycles)
	assert.Equal(t, 7.0, cfg.MinSepDays)
	assert.Equal(t, "keep", cfg.FailurePolicy)
}

func TestParseRunConfig_EmptyDocument(t *testing.T) {
	cfg, err := parseRunConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRunConfig(), cfg)
}

func TestParseRunConfig_Kafka(t *testing.T) {
	cfg, err := parseRunConfig([]byte("kafka:\n  brokers: [\"localhost:9092\"]\n  topic: storms\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Kafka)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "storms", cfg.Kafka.Topic)
}

func TestParseRunConfig_SchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "lamda: 1.7\n"},
		{"negative lambda", "lambda: -1\n"},
		{"zero separation", "min_sep_days: 0\n"},
		{"zero years", "duration_years: 0\n"},
		{"year too long", "year_length_days: 400\n"},
		{"bad policy", "failure_policy: retry\n"},
		{"kafka without topic", "kafka:\n  brokers: [a:1]\n"},
		{"unknown calibration key", "calibration:\n  iters: 3\n"},
		{"wrong type", "num_lifecycles: many\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRunConfig([]byte(tt.yaml))
			assert.ErrorIs(t, err, sim.ErrInvalidConfig)
		})
	}
}

func TestParseRunConfig_MalformedYAML(t *testing.T) {
	_, err := parseRunConfig([]byte("lambda: [1.7\n"))
	assert.Error(t, err)
}

func TestRunConfig_Validate(t *testing.T) {
	valid := DefaultRunConfig()
	valid.CatalogFile = "storms.csv"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *RunConfig)
	}{
		{"missing catalog", func(c *RunConfig) { c.CatalogFile = "" }},
		{"zero lifecycles", func(c *RunConfig) { c.NumLifecycles = 0 }},
		{"negative workers", func(c *RunConfig) { c.Workers = -2 }},
		{"zero separation", func(c *RunConfig) { c.MinSepDays = 0 }},
		{"empty kafka", func(c *RunConfig) { c.Kafka = &KafkaConfig{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *valid
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), sim.ErrInvalidConfig)
		})
	}
}

func TestLoadRunConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 7\nnum_lifecycles: 3\n"), 0644))
	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 3, cfg.NumLifecycles)

	_, err = LoadRunConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuildSimulator_UniformScheduleFallback(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultRunConfig()
	cfg.CatalogFile = writeCatalog(t, dir)
	cfg.YearLengthDays = 360

	s, err := buildSimulator(cfg)
	require.NoError(t, err)
	assert.Equal(t, 360, s.Schedule().Len())
	assert.Equal(t, 52, s.FeasibilityCap())

	cfg.CatalogFile = filepath.Join(dir, "missing.csv")
	_, err = buildSimulator(cfg)
	assert.Error(t, err)
}
