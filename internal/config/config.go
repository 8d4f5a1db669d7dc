// Package config holds all dddlens configuration. The config is loaded once,
// validated eagerly, and threaded explicitly through every stage; nothing in
// the engine reads configuration through globals.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all engine configuration.
type Config struct {
	// Scan settings
	Scan ScanConfig `yaml:"scan"`

	// Classification thresholds
	Thresholds ThresholdConfig `yaml:"thresholds"`

	// Anti-pattern detection limits
	AntiPatterns AntiPatternConfig `yaml:"anti_patterns"`

	// RuleOverrides is an optional path to a YAML file of rule weight
	// overrides applied on top of the builtin registry.
	RuleOverrides string `yaml:"rule_overrides"`
}

// ScanConfig controls source unit processing.
type ScanConfig struct {
	// Workers bounds the concurrent unit workers.
	Workers int `yaml:"workers"`

	// UnitTimeout bounds per-unit extraction; a timeout degrades the unit
	// to Skipped rather than aborting the run.
	UnitTimeout string `yaml:"unit_timeout"`

	// IgnorePatterns skips matching paths/dirs during source walking.
	IgnorePatterns []string `yaml:"ignore_patterns"`
}

// ThresholdConfig controls confidence discretization and ambiguity handling.
// The source material never fixes these numbers, so they are tunable here
// rather than hard-coded.
type ThresholdConfig struct {
	// High and Medium are the accumulated-weight cutoffs for the
	// three-level confidence scale.
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`

	// Closeness is the maximum weight gap for a losing role to be
	// recorded as an alternate.
	Closeness float64 `yaml:"closeness"`
}

// AntiPatternConfig holds the structural limits for anti-pattern checks.
type AntiPatternConfig struct {
	GodClassMethodLimit     int `yaml:"god_class_method_limit"`
	GodClassFieldLimit      int `yaml:"god_class_field_limit"`
	GodClassVerbMin         int `yaml:"god_class_verb_min"`
	MegaAggregateChildLimit int `yaml:"mega_aggregate_child_limit"`
	PrimitiveComboMin       int `yaml:"primitive_combo_min"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Workers:     8,
			UnitTimeout: "10s",
			IgnorePatterns: []string{
				".git",
				"node_modules",
				"vendor",
				"dist",
				"build",
				"target",
				"testdata",
			},
		},
		Thresholds: ThresholdConfig{
			High:      5.0,
			Medium:    3.0,
			Closeness: 2.0,
		},
		AntiPatterns: AntiPatternConfig{
			GodClassMethodLimit:     12,
			GodClassFieldLimit:      10,
			GodClassVerbMin:         5,
			MegaAggregateChildLimit: 5,
			PrimitiveComboMin:       2,
		},
	}
}

// Load reads a YAML config file on top of the defaults and applies
// environment overrides. An empty path returns defaults plus env overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets operators retune hot knobs without a config file.
func (c *Config) applyEnvOverrides() {
	if env := os.Getenv("DDDLENS_WORKERS"); env != "" {
		if v, err := strconv.Atoi(env); err == nil && v > 0 {
			c.Scan.Workers = v
		}
	}
	if env := os.Getenv("DDDLENS_UNIT_TIMEOUT"); env != "" {
		if _, err := time.ParseDuration(env); err == nil {
			c.Scan.UnitTimeout = env
		}
	}
}

// Validate checks structural consistency. A broken config aborts the run
// before any symbol is processed.
func (c *Config) Validate() error {
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("config: scan.workers must be positive, got %d", c.Scan.Workers)
	}
	if c.Scan.UnitTimeout != "" {
		if _, err := time.ParseDuration(c.Scan.UnitTimeout); err != nil {
			return fmt.Errorf("config: invalid scan.unit_timeout %q: %w", c.Scan.UnitTimeout, err)
		}
	}
	if c.Thresholds.High <= 0 || c.Thresholds.Medium <= 0 {
		return fmt.Errorf("config: confidence thresholds must be positive")
	}
	if c.Thresholds.Medium > c.Thresholds.High {
		return fmt.Errorf("config: thresholds.medium (%v) exceeds thresholds.high (%v)",
			c.Thresholds.Medium, c.Thresholds.High)
	}
	if c.Thresholds.Closeness < 0 {
		return fmt.Errorf("config: thresholds.closeness must be non-negative")
	}
	ap := c.AntiPatterns
	if ap.GodClassMethodLimit <= 0 || ap.GodClassFieldLimit <= 0 || ap.GodClassVerbMin <= 0 {
		return fmt.Errorf("config: god class limits must be positive")
	}
	if ap.MegaAggregateChildLimit <= 0 {
		return fmt.Errorf("config: anti_patterns.mega_aggregate_child_limit must be positive")
	}
	if ap.PrimitiveComboMin < 2 {
		return fmt.Errorf("config: anti_patterns.primitive_combo_min must be at least 2")
	}
	return nil
}

// UnitTimeoutDuration parses the per-unit timeout. Returns zero (disabled)
// when unset; Validate has already rejected malformed values.
func (c *Config) UnitTimeoutDuration() time.Duration {
	if c.Scan.UnitTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Scan.UnitTimeout)
	if err != nil {
		return 0
	}
	return d
}
