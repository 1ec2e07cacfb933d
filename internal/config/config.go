package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	DataPath     string  `yaml:"data_path"`
	Limit        int     `yaml:"limit"`
	TrainRows    int     `yaml:"train_rows"`
	LearningRate float64 `yaml:"learning_rate"`
	Steps        int     `yaml:"steps"`
	BatchSize    int     `yaml:"batch_size"`
	Periods      int     `yaml:"periods"`
	ClipNorm     float64 `yaml:"clip_norm"`
	NumWorkers   int     `yaml:"num_workers"`
	Seed         int64   `yaml:"seed"`
	LogEvery     int     `yaml:"log_every"`
	SamplePNG    string  `yaml:"sample_png"`
	HistoryCSV   string  `yaml:"history_csv"`
}

// Overrides captures CLI supplied values. Nil fields were not set.
type Overrides struct {
	DataPath     *string
	Limit        *int
	TrainRows    *int
	LearningRate *float64
	Steps        *int
	BatchSize    *int
	Periods      *int
	ClipNorm     *float64
	NumWorkers   *int
	Seed         *int64
	LogEvery     *int
	SamplePNG    *string
	HistoryCSV   *string
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DataPath:     "mnist_train_small.csv",
		Limit:        10000,
		TrainRows:    7500,
		LearningRate: 0.03,
		Steps:        1000,
		BatchSize:    30,
		Periods:      10,
		ClipNorm:     5.0,
		NumWorkers:   4,
		Seed:         42,
		LogEvery:     50,
	}
}

// Load reads a Config from YAML. Keys missing from the file keep their
// Default values. Callers run Validate once overrides are applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := parseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// ApplyOverrides updates cfg with every override that was set, including
// zero values.
func (c *Config) ApplyOverrides(o Overrides) {
	set(&c.DataPath, o.DataPath)
	set(&c.Limit, o.Limit)
	set(&c.TrainRows, o.TrainRows)
	set(&c.LearningRate, o.LearningRate)
	set(&c.Steps, o.Steps)
	set(&c.BatchSize, o.BatchSize)
	set(&c.Periods, o.Periods)
	set(&c.ClipNorm, o.ClipNorm)
	set(&c.NumWorkers, o.NumWorkers)
	set(&c.Seed, o.Seed)
	set(&c.LogEvery, o.LogEvery)
	set(&c.SamplePNG, o.SamplePNG)
	set(&c.HistoryCSV, o.HistoryCSV)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DataPath == "" {
		return errors.New("data_path must be set")
	}
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be > 0 (got %d)", c.Limit)
	}
	if c.TrainRows <= 0 || c.TrainRows >= c.Limit {
		return fmt.Errorf("train_rows must be in (0, %d) (got %d)", c.Limit, c.TrainRows)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be > 0 (got %d)", c.Steps)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.Periods <= 0 {
		return fmt.Errorf("periods must be > 0 (got %d)", c.Periods)
	}
	if c.Steps < c.Periods {
		return fmt.Errorf("steps (%d) must be >= periods (%d)", c.Steps, c.Periods)
	}
	if c.ClipNorm < 0 {
		return fmt.Errorf("clip_norm must be >= 0 (got %g)", c.ClipNorm)
	}
	if c.NumWorkers <= 0 {
		return fmt.Errorf("num_workers must be > 0 (got %d)", c.NumWorkers)
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 50
	}
	return nil
}

func parseYAML(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}
