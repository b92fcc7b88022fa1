// Package api provides HTTP handlers for the heatmap tile server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/paulmach/orb/maptile"
	"github.com/rs/zerolog/log"

	"github.com/heatmap-tiles/server/internal/render"
	"github.com/heatmap-tiles/server/internal/service"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Service     *service.TileService
	CORSOrigins []string
	StaticDir   string // served under /lib when it exists
	IndexHTML   []byte
	Version     string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if len(cfg.IndexHTML) > 0 {
		r.Get("/", indexHandler(cfg.IndexHTML))
	}

	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			r.Handle("/lib/*", http.StripPrefix("/lib/", http.FileServer(http.Dir(cfg.StaticDir))))
		} else {
			log.Debug().Str("dir", cfg.StaticDir).Msg("Static directory not found, /lib disabled")
		}
	}

	// Tile endpoints
	r.Get("/tiles/{z}/{x}/{y}.png", tileHandler(cfg.Service, render.FormatPNG))
	r.Get("/tiles/{z}/{x}/{y}.webp", tileHandler(cfg.Service, render.FormatWebP))
	r.Get("/debug/tiles/{z}/{x}/{y}.png", debugTileHandler(cfg.Service))

	// API endpoints
	r.Route("/api", func(r chi.Router) {
		r.Get("/dataset", datasetHandler(cfg.Service, cfg.Version))
		r.Get("/tiles/{z}/{x}/{y}/stats", tileStatsHandler(cfg.Service))
	})

	return r
}

// parseTile reads the z/x/y URL params. Any uint32 triple is accepted; the
// address is not checked against the zoom level.
func parseTile(r *http.Request) (maptile.Tile, error) {
	var v [3]uint32
	for i, name := range []string{"z", "x", "y"} {
		n, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
		if err != nil {
			return maptile.Tile{}, errors.New("invalid " + name)
		}
		v[i] = uint32(n)
	}
	return maptile.New(v[1], v[2], maptile.Zoom(v[0])), nil
}

// writeError maps service errors to HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownColormap):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled):
		// Client went away.
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, service.ErrPoolStopped):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func tileHandler(svc *service.TileService, format render.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tile, err := parseTile(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data, err := svc.GetTile(r.Context(), tile, format, r.URL.Query().Get("colormap"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(data)
	}
}

func debugTileHandler(svc *service.TileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tile, err := parseTile(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data, err := svc.GetDebugTile(r.Context(), tile, r.URL.Query().Get("colormap"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", render.FormatPNG.ContentType())
		w.Header().Set("Cache-Control", "no-store")
		w.Write(data)
	}
}

func tileStatsHandler(svc *service.TileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tile, err := parseTile(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data, err := svc.GetStats(r.Context(), tile)
		if err != nil {
			writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

type datasetResponse struct {
	service.DatasetInfo
	Version string                 `json:"version"`
	Cache   map[string]interface{} `json:"cache,omitempty"`
}

func datasetHandler(svc *service.TileService, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, datasetResponse{
			DatasetInfo: svc.Dataset(),
			Version:     version,
			Cache:       svc.CacheStats(),
		})
	}
}
