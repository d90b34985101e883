package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/crawlgraph/internal/force"
)

// TestNewConfig pins the defaults so that changing one is a deliberate act.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default CrawlDepth is 3", func(t *testing.T) {
		t.Parallel()
		if cfg.CrawlDepth != 3 {
			t.Errorf("expected CrawlDepth to be 3, got %d", cfg.CrawlDepth)
		}
	})

	t.Run("default TickInterval is 60 Hz", func(t *testing.T) {
		t.Parallel()
		if cfg.TickInterval != time.Second/60 {
			t.Errorf("expected TickInterval to be 1/60s, got %v", cfg.TickInterval)
		}
	})

	t.Run("default layout is a 500x500 canvas converging in 300 steps", func(t *testing.T) {
		t.Parallel()
		l := cfg.Layout
		if l.Width != 500 || l.Height != 500 {
			t.Errorf("expected 500x500, got %vx%v", l.Width, l.Height)
		}
		if l.AlphaDecay != 0.0228 || l.AlphaMin != 0.001 || l.MaxSteps != 1000 {
			t.Errorf("unexpected decay settings: %+v", l)
		}
	})

	t.Run("default layout matches the simulator defaults", func(t *testing.T) {
		t.Parallel()
		l, p := DefaultLayout(), force.DefaultParams()
		if l.AlphaDecay != p.AlphaDecay || l.ChargeStrength != p.ChargeStrength ||
			l.LinkDistance != p.LinkDistance || l.NodeRadius != p.NodeRadius ||
			l.Theta != p.Theta || l.MaxSpeed != p.MaxSpeed ||
			l.BarnesHutThreshold != p.BarnesHutThreshold || l.VelocityDecay != p.VelocityDecay {
			t.Errorf("expected layout %+v to match params %+v", l, p)
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid defaults, got %v", err)
		}
	})
}

// TestConfigValidate tests one validation rule per case.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr error
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "zero batch size", modify: func(c *Config) { c.BatchSize = 0 }, wantErr: ErrInvalidBatchSize},
		{
			name:    "json and markdown",
			modify:  func(c *Config) { c.JSONReport, c.MarkdownReport = true, true },
			wantErr: ErrConflictingReportFormats,
		},
		{name: "negative delay", modify: func(c *Config) { c.CrawlDelay = -time.Second }, wantErr: ErrInvalidCrawlDelay},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "negative depth", modify: func(c *Config) { c.CrawlDepth = -1 }, wantErr: ErrInvalidCrawlDepth},
		{name: "zero tick interval", modify: func(c *Config) { c.TickInterval = 0 }, wantErr: ErrInvalidTickInterval},
		{name: "zero width", modify: func(c *Config) { c.Layout.Width = 0 }, wantErr: ErrInvalidCanvas},
		{name: "alpha decay of one", modify: func(c *Config) { c.Layout.AlphaDecay = 1 }, wantErr: ErrInvalidAlphaDecay},
		{name: "alpha min of zero", modify: func(c *Config) { c.Layout.AlphaMin = 0 }, wantErr: ErrInvalidAlphaMin},
		{name: "velocity decay above one", modify: func(c *Config) { c.Layout.VelocityDecay = 1.5 }, wantErr: ErrInvalidVelocityDecay},
		{name: "zero max steps", modify: func(c *Config) { c.Layout.MaxSteps = 0 }, wantErr: ErrInvalidMaxSteps},
		{name: "negative radius", modify: func(c *Config) { c.Layout.NodeRadius = -1 }, wantErr: ErrInvalidLayout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("crawl needs a seed", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		if err := cfg.ValidateCrawl(); !errors.Is(err, ErrNoTarget) {
			t.Errorf("expected ErrNoTarget, got %v", err)
		}
		cfg.Seeds = []string{"https://example.com"}
		if err := cfg.ValidateCrawl(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	f := &File{
		Defaults: SiteConfig{
			Depth:          2,
			Cookie:         "default=1",
			Headers:        map[string]string{"X-Default": "yes"},
			IgnorePatterns: []string{"*.pdf"},
		},
		Sites: map[string]SiteConfig{
			"example.com": {
				Depth:          5,
				Headers:        map[string]string{"Authorization": "Bearer token"},
				FollowPatterns: []string{"/blog/*"},
			},
		},
	}

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		got := f.GetSiteConfig("other.example")
		if got.Depth != 2 || got.Cookie != "default=1" {
			t.Errorf("expected defaults, got %+v", got)
		}
	})

	t.Run("site values override defaults", func(t *testing.T) {
		t.Parallel()

		got := f.GetSiteConfig("example.com")
		if got.Depth != 5 {
			t.Errorf("expected depth 5, got %d", got.Depth)
		}
		if got.Cookie != "default=1" {
			t.Errorf("expected default cookie kept, got %q", got.Cookie)
		}
		if got.Headers["X-Default"] != "yes" || got.Headers["Authorization"] != "Bearer token" {
			t.Errorf("expected merged headers, got %v", got.Headers)
		}
		if len(got.FollowPatterns) != 1 || len(got.IgnorePatterns) != 1 {
			t.Errorf("unexpected patterns: %+v", got)
		}
	})

	t.Run("merging does not leak into defaults", func(t *testing.T) {
		t.Parallel()

		_ = f.GetSiteConfig("example.com")
		if _, ok := f.Defaults.Headers["Authorization"]; ok {
			t.Error("expected default headers untouched")
		}
	})
}

func TestLayoutMerge(t *testing.T) {
	t.Parallel()

	got := DefaultLayout().Merge(Layout{Width: 800, AlphaDecay: 0.01, MaxSteps: 2000})
	if got.Width != 800 || got.Height != 500 {
		t.Errorf("expected 800x500, got %vx%v", got.Width, got.Height)
	}
	if got.AlphaDecay != 0.01 || got.MaxSteps != 2000 {
		t.Errorf("expected overrides applied, got %+v", got)
	}
	if got.ChargeStrength != -30 {
		t.Errorf("expected charge strength kept, got %v", got.ChargeStrength)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.crawlgraph")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads sites and layout", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `defaults:
  depth: 2
sites:
  example.com:
    cookie: "session=xyz"
    ignorePatterns:
      - "/logout*"
layout:
  width: 800
  alphaDecay: 0.01
`)
		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Defaults.Depth != 2 {
			t.Errorf("expected default depth 2, got %d", f.Defaults.Depth)
		}
		if f.Sites["example.com"].Cookie != "session=xyz" {
			t.Errorf("expected site cookie, got %+v", f.Sites["example.com"])
		}
		if f.Layout.Width != 800 || f.Layout.AlphaDecay != 0.01 {
			t.Errorf("expected layout overrides, got %+v", f.Layout)
		}
	})

	t.Run("rejects invalid layout", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "layout:\n  alphaDecay: 2\n")
		if _, err := LoadConfigFile(path); !errors.Is(err, ErrInvalidAlphaDecay) {
			t.Errorf("expected ErrInvalidAlphaDecay, got %v", err)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `invalid: yaml: content: [}`)
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "defaults:\n  depth: 1\n")
		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

func TestLoadInto(t *testing.T) {
	t.Parallel()

	t.Run("applies explicit file", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ConfigFilePath = writeConfig(t, "layout:\n  height: 300\n")
		if err := LoadInto(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Layout.Height != 300 || cfg.Layout.Width != 500 {
			t.Errorf("expected 500x300, got %vx%v", cfg.Layout.Width, cfg.Layout.Height)
		}
		if cfg.SiteConfigs == nil {
			t.Error("expected site configs to be set")
		}
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ConfigFilePath = filepath.Join(t.TempDir(), "missing.yaml")
		err := LoadInto(cfg)
		if !errors.Is(err, ErrConfigNotFound) || !strings.Contains(err.Error(), "missing.yaml") {
			t.Errorf("expected ErrConfigNotFound naming the file, got %v", err)
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "defaults: {}")
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile("/nonexistent/path/config.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{"data": XDGDataDir(), "config": XDGConfigDir()} {
		if !strings.HasSuffix(dir, AppName) {
			t.Errorf("expected %s dir to end with %q, got %q", name, AppName, dir)
		}
	}
}
