package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Carmen-Shannon/oxy-batch/engine/batch"
)

// Config is the root of the TOML configuration file.
type Config struct {
	Batch     batch.Limits    `toml:"batch"`
	Render    RenderConfig    `toml:"render"`
	Assets    AssetsConfig    `toml:"assets"`
	Logging   LoggingConfig   `toml:"logging"`
	Profiling ProfilingConfig `toml:"profiling"`
}

type RenderConfig struct {
	Backend    string  `toml:"backend"` // "headless" or "wgpu"
	Width      int     `toml:"width"`
	Height     int     `toml:"height"`
	FrameLimit float64 `toml:"frame_limit"` // frames per second, 0 = uncapped
	KeepFrames int     `toml:"keep_frames"` // headless backend frame history
}

type AssetsConfig struct {
	Scene          string `toml:"scene"`
	PreloadWorkers int    `toml:"preload_workers"` // 0 = one per CPU
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type ProfilingConfig struct {
	Enabled  bool          `toml:"enabled"`
	Interval time.Duration `toml:"interval"`
	Mode     string        `toml:"mode"` // "", "cpu" or "mem"
	Path     string        `toml:"path"`
}

// Load reads a TOML file over the defaults and validates the result.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - *Config: the merged configuration
//   - error: error if the file cannot be read, parsed or validated
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Batch: batch.DefaultLimits(),
		Render: RenderConfig{
			Backend:    "headless",
			Width:      1280,
			Height:     720,
			KeepFrames: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Profiling: ProfilingConfig{
			Interval: time.Second,
			Path:     ".",
		},
	}
}

// Validate checks every section and joins the errors found.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Batch.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Render.Backend {
	case "headless", "wgpu":
	default:
		errs = append(errs, fmt.Errorf("render.backend: unknown backend %q", c.Render.Backend))
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Errorf("render: target size %dx%d must be positive", c.Render.Width, c.Render.Height))
	}
	if c.Render.FrameLimit < 0 {
		errs = append(errs, errors.New("render.frame_limit: must not be negative"))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}
	switch c.Profiling.Mode {
	case "", "cpu", "mem":
	default:
		errs = append(errs, fmt.Errorf("profiling.mode: unknown mode %q", c.Profiling.Mode))
	}
	if c.Profiling.Interval <= 0 {
		errs = append(errs, errors.New("profiling.interval: must be positive"))
	}
	return errors.Join(errs...)
}
