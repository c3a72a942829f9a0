package sched

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml
type Config struct {
	TickMS     int       `yaml:"tick_ms"`     // 1 (by default)
	SliceTicks int       `yaml:"slice_ticks"` // 4 (by default), fair class
	CPUs       int       `yaml:"cpus"`        // 1 (by default)
	WRR        WRRConfig `yaml:"wrr"`
}

// WRRConfig tunes the weighted round-robin class.
type WRRConfig struct {
	Timeslice        int    `yaml:"timeslice"`         // base quantum in ticks, 10 (by default)
	MarkerIndex      int    `yaml:"marker_index"`      // 1 (by default)
	Marker           string `yaml:"marker"`            // "b" (by default)
	BackgroundWeight int    `yaml:"background_weight"` // 1 (by default)
	DefaultWeight    int    `yaml:"default_weight"`    // 10 (by default)
	WakeAtHead       bool   `yaml:"wake_at_head"`
}

// DefaultConfig is used when no config file is found.
func DefaultConfig() Config {
	return Config{
		TickMS:     1,
		SliceTicks: 4,
		CPUs:       1,
		WRR: WRRConfig{
			Timeslice:        10,
			MarkerIndex:      1,
			Marker:           "b",
			BackgroundWeight: int(WeightBackground),
			DefaultWeight:    int(WeightDefault),
		},
	}
}

// Load reads YAML and overrides defaults; empty path or a missing file =
// defaults only.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.clamp()
	return cfg, nil
}

// sanity clamps
func (c *Config) clamp() {
	d := DefaultConfig()
	if c.TickMS <= 0 {
		c.TickMS = d.TickMS
	}
	if c.SliceTicks <= 0 {
		c.SliceTicks = d.SliceTicks
	}
	if c.CPUs <= 0 {
		c.CPUs = d.CPUs
	}
	if c.WRR.Timeslice <= 0 {
		c.WRR.Timeslice = d.WRR.Timeslice
	}
	// Index and marker only make sense together: an unset or invalid marker
	// falls back to the whole default rule.
	if c.WRR.MarkerIndex < 0 || len(c.WRR.Marker) != 1 {
		c.WRR.MarkerIndex = d.WRR.MarkerIndex
		c.WRR.Marker = d.WRR.Marker
	}
	if c.WRR.BackgroundWeight <= 0 {
		c.WRR.BackgroundWeight = d.WRR.BackgroundWeight
	}
	if c.WRR.DefaultWeight <= 0 {
		c.WRR.DefaultWeight = d.WRR.DefaultWeight
	}
}

// Normalized returns c with every unset or out-of-range field replaced by its
// default.
func (c Config) Normalized() Config {
	c.clamp()
	return c
}

// Tick is the length of one scheduler tick.
func (c Config) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// Quantum builds the WRR weight and time-slice rule.
func (c Config) Quantum() Quantum {
	c.clamp()
	return Quantum{
		Base: uint(c.WRR.Timeslice),
		Weights: MarkerClassifier{
			Index:    c.WRR.MarkerIndex,
			Marker:   c.WRR.Marker[0],
			Marked:   Weight(c.WRR.BackgroundWeight),
			Unmarked: Weight(c.WRR.DefaultWeight),
		},
	}
}
