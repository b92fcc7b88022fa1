// Package main is the entry point for the heatmap tile server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/heatmap-tiles/server/assets"
	"github.com/heatmap-tiles/server/internal/api"
	"github.com/heatmap-tiles/server/internal/cache"
	"github.com/heatmap-tiles/server/internal/config"
	"github.com/heatmap-tiles/server/internal/data/tabular"
	"github.com/heatmap-tiles/server/internal/index"
	"github.com/heatmap-tiles/server/internal/logger"
	"github.com/heatmap-tiles/server/internal/render"
	"github.com/heatmap-tiles/server/internal/service"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"  env:"CONFIG_FILE"  description:"Path to configuration file" default:"config/server.yaml"`
	DataFile   string `short:"d" long:"data"    env:"DATA_FILE"    description:"Dataset file, overrides data.path"`
	Port       int    `short:"p" long:"port"    env:"LISTEN_PORT"  description:"Port to listen on, overrides server.port"`
	Version    bool   `short:"V" long:"version" description:"Print version and exit"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Println(versioninfo.Short())
		return
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load configuration
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.ConfigFile).Msg("Failed to load configuration")
	}
	if opts.DataFile != "" {
		cfg.Data.Path = opts.DataFile
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("version", versioninfo.Short()).
		Str("data", cfg.Data.Path).
		Msg("Starting heatmap tile server")

	// Load the dataset and build the index before listening
	start := time.Now()
	points, loadStats, err := tabular.Load(cfg.Data.Path, tabular.Options{
		XColumn: cfg.Data.XColumn,
		YColumn: cfg.Data.YColumn,
		Table:   cfg.Data.Table,
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Data.Path).Msg("Failed to load dataset")
	}
	if loadStats.Defaulted > 0 {
		log.Warn().
			Int("rows", loadStats.Defaulted).
			Str("x_column", cfg.Data.XColumn).
			Str("y_column", cfg.Data.YColumn).
			Msg("Rows with missing or unparseable coordinates were placed at 0")
	}
	if loadStats.Skipped > 0 {
		log.Warn().Int("rows", loadStats.Skipped).Msg("Undecodable rows skipped")
	}

	store := index.Build(points, index.Options{
		MinChildren: cfg.Index.MinChildren,
		MaxChildren: cfg.Index.MaxChildren,
	})
	log.Info().
		Int("points", store.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("Spatial index built")

	// Initialize cache manager
	tileCacheMB := 0
	if cfg.Cache.Enabled {
		tileCacheMB = cfg.Cache.TileSizeMB
	}
	cacheManager, err := cache.NewManager(cache.Config{
		TileCacheSizeMB: tileCacheMB,
		TileTTL:         time.Duration(cfg.Cache.TileTTLMinutes) * time.Minute,
		StatsCacheSize:  cfg.Cache.StatsEntries,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache")
	}
	defer cacheManager.Close()

	// Initialize tile renderer
	tileRenderer := render.NewTileRenderer(render.Config{
		DefaultColormap: cfg.Render.DefaultColormap,
		Compression:     cfg.Render.PNGCompression(),
	})

	pool := service.NewRenderPool(service.RenderPoolConfig{
		Workers:   cfg.Render.Workers,
		QueueSize: cfg.Render.QueueSize,
	})
	pool.Start()
	defer pool.Stop()
	log.Info().
		Int("workers", pool.Workers()).
		Bool("tile_cache", cacheManager.TilesEnabled()).
		Msg("Render pool started")

	tileService := service.NewTileService(service.TileServiceConfig{
		Store:           store,
		Renderer:        tileRenderer,
		Pool:            pool,
		Cache:           cacheManager,
		DefaultColormap: cfg.Render.DefaultColormap,
		Source:          cfg.Data.Path,
		Load:            loadStats,
	})

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Service:     tileService,
		CORSOrigins: cfg.Server.CORSOrigins,
		StaticDir:   cfg.Server.StaticDir,
		IndexHTML:   assets.IndexHTML,
		Version:     versioninfo.Short(),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Addr, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
