// Package config loads the YAML configuration shared by all commands.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/CaioMussatto/Cacaio-docker/crossmodal"
	"github.com/CaioMussatto/Cacaio-docker/enrichr"
	"github.com/CaioMussatto/Cacaio-docker/projection"
)

var ErrInvalid = errors.New("config: invalid value")

// Config is the root configuration document.
type Config struct {
	// Catalog is the dataset manifest path.
	Catalog string `yaml:"catalog,omitempty"`

	// Workers bounds similarity computation; zero uses every CPU.
	Workers int `yaml:"workers,omitempty"`

	Aligner AlignerConfig `yaml:"aligner"`
	Ranking RankingConfig `yaml:"ranking"`
	Enrichr EnrichrConfig `yaml:"enrichr"`
	Log     LogConfig     `yaml:"log"`
}

// AlignerConfig holds the cross-modal alignment parameters.
type AlignerConfig struct {
	Components     int       `yaml:"components"`
	Theta          float64   `yaml:"theta"`
	Lambda         float64   `yaml:"lambda"`
	Sigma          []float64 `yaml:"sigma"`
	MaxIter        int       `yaml:"max_iter"`
	MaxIterKMeans  int       `yaml:"max_iter_kmeans"`
	EpsilonCluster float64   `yaml:"epsilon_cluster"`
	EpsilonHarmony float64   `yaml:"epsilon_harmony"`
	BlockSize      float64   `yaml:"block_size"`
	Seed           int64     `yaml:"seed"`
}

// RankingConfig holds defaults for top-N views.
type RankingConfig struct {
	TopN int `yaml:"top_n"`
}

// EnrichrConfig configures the enrichment client.
type EnrichrConfig struct {
	Organism  string        `yaml:"organism"`
	BaseURL   string        `yaml:"base_url,omitempty"`
	Timeout   time.Duration `yaml:"timeout"`
	Libraries []string      `yaml:"libraries"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.fillDefaults()
	return cfg
}

// fillDefaults replaces zero values with defaults. Theta and Seed default to
// zero, so any value read for them is kept.
func (c *Config) fillDefaults() {
	harmony := crossmodal.DefaultOptions().Harmony
	a := &c.Aligner
	if a.Components == 0 {
		a.Components = crossmodal.DefaultOptions().Components
	}
	if a.Lambda == 0 {
		a.Lambda = harmony.Lambda
	}
	if len(a.Sigma) == 0 {
		a.Sigma = harmony.Sigma
	}
	if a.MaxIter == 0 {
		a.MaxIter = harmony.MaxIter
	}
	if a.MaxIterKMeans == 0 {
		a.MaxIterKMeans = harmony.MaxIterKMeans
	}
	if a.EpsilonCluster == 0 {
		a.EpsilonCluster = harmony.EpsilonCluster
	}
	if a.EpsilonHarmony == 0 {
		a.EpsilonHarmony = harmony.EpsilonHarmony
	}
	if a.BlockSize == 0 {
		a.BlockSize = harmony.BlockSize
	}
	if c.Ranking.TopN == 0 {
		c.Ranking.TopN = 5
	}
	if c.Enrichr.Organism == "" {
		c.Enrichr.Organism = "human"
	}
	if c.Enrichr.Timeout == 0 {
		c.Enrichr.Timeout = 60 * time.Second
	}
	if len(c.Enrichr.Libraries) == 0 {
		c.Enrichr.Libraries = []string{"KEGG_2021_Human", "GO_Biological_Process_2023", "MSigDB_Hallmark_2020"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// DefaultPath returns the per-user configuration file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cacaio", "config.yaml")
}

// Load reads path and fills unset fields with defaults. A missing file
// yields the defaults unless required is set.
func Load(path string, required bool) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return Default(), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	if cfg.Catalog != "" && !filepath.IsAbs(cfg.Catalog) {
		cfg.Catalog = filepath.Join(filepath.Dir(path), cfg.Catalog)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	a := c.Aligner
	switch {
	case a.Components < 1:
		return fmt.Errorf("%w: aligner.components must be positive", ErrInvalid)
	case a.Lambda < 0:
		return fmt.Errorf("%w: aligner.lambda must not be negative", ErrInvalid)
	case a.Theta < 0:
		return fmt.Errorf("%w: aligner.theta must not be negative", ErrInvalid)
	case a.BlockSize <= 0 || a.BlockSize > 1:
		return fmt.Errorf("%w: aligner.block_size must be in (0, 1]", ErrInvalid)
	case c.Ranking.TopN < 1:
		return fmt.Errorf("%w: ranking.top_n must be positive", ErrInvalid)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative", ErrInvalid)
	}
	for _, sigma := range a.Sigma {
		if sigma <= 0 {
			return fmt.Errorf("%w: aligner.sigma values must be positive", ErrInvalid)
		}
	}
	if c.Enrichr.BaseURL == "" {
		if _, err := enrichr.BaseURL(c.Enrichr.Organism); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if _, err := c.Log.Handler(); err != nil {
		return err
	}
	return nil
}

// AlignOptions converts the aligner section into crossmodal options.
func (c *Config) AlignOptions() crossmodal.Options {
	opts := crossmodal.DefaultOptions()
	a := c.Aligner
	opts.Components = a.Components
	opts.Harmony = projection.HarmonyConfig{
		Theta:          a.Theta,
		Lambda:         a.Lambda,
		Sigma:          a.Sigma,
		MaxIter:        a.MaxIter,
		MaxIterKMeans:  a.MaxIterKMeans,
		EpsilonCluster: a.EpsilonCluster,
		EpsilonHarmony: a.EpsilonHarmony,
		BlockSize:      a.BlockSize,
		Seed:           a.Seed,
	}
	return opts
}

// EnrichrURL returns the configured base URL or the organism's default.
func (c *Config) EnrichrURL() (string, error) {
	if c.Enrichr.BaseURL != "" {
		return c.Enrichr.BaseURL, nil
	}
	return enrichr.BaseURL(c.Enrichr.Organism)
}

// SlogLevel parses the configured level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalid, l.Level)
	}
}

// Handler builds a stderr handler for the configured level and format.
func (l LogConfig) Handler() (slog.Handler, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(l.Format) {
	case "", "text":
		return slog.NewTextHandler(os.Stderr, opts), nil
	case "json":
		return slog.NewJSONHandler(os.Stderr, opts), nil
	default:
		return nil, fmt.Errorf("%w: log.format %q", ErrInvalid, l.Format)
	}
}
