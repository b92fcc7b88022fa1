package config

import (
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad_FullFile(t *testing.T) {
	content := `
server:
  port: 9000
  cors_origins: ["http://localhost:3000"]
data:
  path: "/data/points.csv.gz"
  x_column: "easting"
  y_column: "northing"
index:
  min_children: 4
  max_children: 16
render:
  workers: 2
  default_colormap: viridis
  compression: best_compression
cache:
  enabled: true
  tile_size_mb: 64
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("unexpected cors origins: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Data.Path != "/data/points.csv.gz" {
		t.Errorf("unexpected data path: %s", cfg.Data.Path)
	}
	if cfg.Data.XColumn != "easting" || cfg.Data.YColumn != "northing" {
		t.Errorf("unexpected columns: %s, %s", cfg.Data.XColumn, cfg.Data.YColumn)
	}
	if cfg.Index.MinChildren != 4 || cfg.Index.MaxChildren != 16 {
		t.Errorf("unexpected index options: %+v", cfg.Index)
	}
	if cfg.Render.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Render.Workers)
	}
	if cfg.Render.DefaultColormap != "viridis" {
		t.Errorf("expected viridis, got %q", cfg.Render.DefaultColormap)
	}
	if cfg.Render.PNGCompression() != png.BestCompression {
		t.Errorf("unexpected compression level %v", cfg.Render.PNGCompression())
	}
	if !cfg.Cache.Enabled || cfg.Cache.TileSizeMB != 64 {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	content := `
server:
  port: 0
data:
  path: "/test/points.parquet"
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Data.XColumn != "X" || cfg.Data.YColumn != "Y" {
		t.Errorf("expected default columns X and Y, got %s and %s", cfg.Data.XColumn, cfg.Data.YColumn)
	}
	if cfg.Index.MinChildren != 25 || cfg.Index.MaxChildren != 50 {
		t.Errorf("unexpected default index options: %+v", cfg.Index)
	}
	if cfg.Render.DefaultColormap != "heat" {
		t.Errorf("expected default colormap heat, got %q", cfg.Render.DefaultColormap)
	}
	if cfg.Render.PNGCompression() != png.BestSpeed {
		t.Errorf("expected best speed compression, got %v", cfg.Render.PNGCompression())
	}
	if cfg.Cache.Enabled {
		t.Error("expected tile cache to be disabled by default")
	}
	if cfg.Cache.StatsEntries != 1000 {
		t.Errorf("expected 1000 stats entries, got %d", cfg.Cache.StatsEntries)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("expected defaults for missing file, got %v", err)
	}
	if cfg.Data.Path != "data/stored.parquet" {
		t.Errorf("unexpected default data path: %s", cfg.Data.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "server.yaml"))
	if err != nil {
		t.Fatalf("failed to load shipped config: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("shipped config drifted from defaults:\n got %+v\nwant %+v", cfg, DefaultConfig())
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown colormap", "render:\n  default_colormap: rainbow\n"},
		{"unknown compression", "render:\n  compression: fastest\n"},
		{"port out of range", "server:\n  port: 70000\n"},
		{"fan-out inverted", "index:\n  min_children: 40\n  max_children: 10\n"},
		{"bad yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}
