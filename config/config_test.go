package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Aligner.Components != 50 || cfg.Aligner.Theta != 0 || cfg.Aligner.Lambda != 1 {
		t.Errorf("unexpected aligner defaults %+v", cfg.Aligner)
	}
	if len(cfg.Aligner.Sigma) != 1 || cfg.Aligner.Sigma[0] != 0.1 {
		t.Errorf("sigma = %v, want [0.1]", cfg.Aligner.Sigma)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `catalog: data/catalog.yaml
workers: 2
aligner:
  components: 30
  sigma: [0.2]
ranking:
  top_n: 10
enrichr:
  organism: mouse
  timeout: 5s
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog != filepath.Join(dir, "data", "catalog.yaml") {
		t.Errorf("catalog = %q", cfg.Catalog)
	}
	if cfg.Aligner.Components != 30 || cfg.Aligner.Sigma[0] != 0.2 {
		t.Errorf("aligner = %+v", cfg.Aligner)
	}
	if cfg.Aligner.Lambda != 1 || cfg.Aligner.MaxIter != 10 {
		t.Errorf("unset aligner fields lost their defaults: %+v", cfg.Aligner)
	}
	if cfg.Ranking.TopN != 10 || cfg.Workers != 2 {
		t.Errorf("ranking/workers = %d/%d", cfg.Ranking.TopN, cfg.Workers)
	}
	if cfg.Enrichr.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Enrichr.Timeout)
	}
	level, _ := cfg.Log.SlogLevel()
	if level != slog.LevelDebug {
		t.Errorf("level = %v", level)
	}

	opts := cfg.AlignOptions()
	if opts.Components != 30 || opts.Harmony.Sigma[0] != 0.2 || opts.Harmony.BlockSize != 0.05 {
		t.Errorf("align options = %+v", opts)
	}
}

func TestLoad_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	cfg, err := Load(path, false)
	if err != nil || cfg.Ranking.TopN != 5 {
		t.Fatalf("optional missing file: %v, %+v", err, cfg)
	}
	if _, err := Load(path, true); err == nil {
		t.Fatal("required missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"components", func(c *Config) { c.Aligner.Components = 0 }},
		{"block size", func(c *Config) { c.Aligner.BlockSize = 2 }},
		{"sigma", func(c *Config) { c.Aligner.Sigma = []float64{0.1, 0} }},
		{"top n", func(c *Config) { c.Ranking.TopN = 0 }},
		{"organism", func(c *Config) { c.Enrichr.Organism = "martian" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestEnrichrURL(t *testing.T) {
	cfg := Default()
	cfg.Enrichr.Organism = "fly"
	url, err := cfg.EnrichrURL()
	if err != nil || url != "https://maayanlab.cloud/FlyEnrichr" {
		t.Errorf("url = %q, %v", url, err)
	}
	cfg.Enrichr.BaseURL = "http://localhost:9000"
	if url, _ := cfg.EnrichrURL(); url != "http://localhost:9000" {
		t.Errorf("explicit base URL ignored: %q", url)
	}
}
