// Package config handles configuration loading for the heatmap tile server.
package config

import (
	"errors"
	"fmt"
	"image/png"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/heatmap-tiles/server/pkg/colormap"
)

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Index  IndexConfig  `yaml:"index"`
	Render RenderConfig `yaml:"render"`
	Cache  CacheConfig  `yaml:"cache"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	Port        int      `yaml:"port" validate:"min=1,max=65535"`
	CORSOrigins []string `yaml:"cors_origins"`
	StaticDir   string   `yaml:"static_dir"`
}

// DataConfig describes the point dataset loaded at startup.
type DataConfig struct {
	Path    string `yaml:"path" validate:"required"`
	XColumn string `yaml:"x_column" validate:"required"`
	YColumn string `yaml:"y_column" validate:"required"`
	// Table is only used for SQLite datasets.
	Table string `yaml:"table"`
}

// IndexConfig controls the R-tree fan-out.
type IndexConfig struct {
	MinChildren int `yaml:"min_children" validate:"min=2"`
	MaxChildren int `yaml:"max_children" validate:"gtefield=MinChildren"`
}

// RenderConfig contains rendering settings.
type RenderConfig struct {
	Workers         int    `yaml:"workers" validate:"min=0"`
	QueueSize       int    `yaml:"queue_size" validate:"min=0"`
	DefaultColormap string `yaml:"default_colormap" validate:"colormap"`
	Compression     string `yaml:"compression" validate:"oneof=default none best_speed best_compression"`
}

// CacheConfig contains caching settings. The tile cache is off unless enabled.
type CacheConfig struct {
	Enabled        bool `yaml:"enabled"`
	TileSizeMB     int  `yaml:"tile_size_mb" validate:"min=1"`
	TileTTLMinutes int  `yaml:"tile_ttl_minutes" validate:"min=1"`
	StatsEntries   int  `yaml:"stats_entries" validate:"min=1"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"*"},
			StaticDir:   "./www/lib",
		},
		Data: DataConfig{
			Path:    "data/stored.parquet",
			XColumn: "X",
			YColumn: "Y",
			Table:   "points",
		},
		Index: IndexConfig{
			MinChildren: 25,
			MaxChildren: 50,
		},
		Render: RenderConfig{
			Workers:         0,
			QueueSize:       256,
			DefaultColormap: colormap.Default,
			Compression:     "best_speed",
		},
		Cache: CacheConfig{
			Enabled:        false,
			TileSizeMB:     256,
			TileTTLMinutes: 10,
			StatsEntries:   1000,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = defaults.Server.StaticDir
	}
	if cfg.Data.Path == "" {
		cfg.Data.Path = defaults.Data.Path
	}
	if cfg.Data.XColumn == "" {
		cfg.Data.XColumn = defaults.Data.XColumn
	}
	if cfg.Data.YColumn == "" {
		cfg.Data.YColumn = defaults.Data.YColumn
	}
	if cfg.Data.Table == "" {
		cfg.Data.Table = defaults.Data.Table
	}
	if cfg.Index.MinChildren == 0 {
		cfg.Index.MinChildren = defaults.Index.MinChildren
	}
	if cfg.Index.MaxChildren == 0 {
		cfg.Index.MaxChildren = defaults.Index.MaxChildren
	}
	if cfg.Render.QueueSize == 0 {
		cfg.Render.QueueSize = defaults.Render.QueueSize
	}
	if cfg.Render.DefaultColormap == "" {
		cfg.Render.DefaultColormap = defaults.Render.DefaultColormap
	}
	if cfg.Render.Compression == "" {
		cfg.Render.Compression = defaults.Render.Compression
	}
	if cfg.Cache.TileSizeMB == 0 {
		cfg.Cache.TileSizeMB = defaults.Cache.TileSizeMB
	}
	if cfg.Cache.TileTTLMinutes == 0 {
		cfg.Cache.TileTTLMinutes = defaults.Cache.TileTTLMinutes
	}
	if cfg.Cache.StatsEntries == 0 {
		cfg.Cache.StatsEntries = defaults.Cache.StatsEntries
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("colormap", func(fl validator.FieldLevel) bool {
		_, ok := colormap.Lookup(fl.Field().String())
		return ok
	}); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// PNGCompression maps the configured compression name to a png.CompressionLevel.
func (r RenderConfig) PNGCompression() png.CompressionLevel {
	switch r.Compression {
	case "none":
		return png.NoCompression
	case "best_speed":
		return png.BestSpeed
	case "best_compression":
		return png.BestCompression
	}
	return png.DefaultCompression
}
