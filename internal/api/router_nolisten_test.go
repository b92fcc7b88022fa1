package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"

	"github.com/heatmap-tiles/server/internal/index"
	"github.com/heatmap-tiles/server/internal/render"
	"github.com/heatmap-tiles/server/internal/service"
)

// The router works without a cache and without an index page.
func TestTileStatsEndpoint_NoListen(t *testing.T) {
	pool := service.NewRenderPool(service.RenderPoolConfig{Workers: 1})
	pool.Start()
	defer pool.Stop()

	tileService := service.NewTileService(service.TileServiceConfig{
		Store:    index.Build([]orb.Point{{-1000, 1000}}, index.DefaultOptions()),
		Renderer: render.NewTileRenderer(render.Config{DefaultColormap: "viridis"}),
		Pool:     pool,
	})

	router := NewRouter(RouterConfig{
		Service:     tileService,
		CORSOrigins: []string{"http://localhost:3000"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tiles/1/0/0/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if got, _ := payload["points"].(float64); got != 1 {
		t.Fatalf("expected the north-west point in tile 1/0/0, got %v", payload["points"])
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected no index route without a page, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/dataset", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var info map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if _, ok := info["cache"]; ok {
		t.Errorf("expected no cache section without a cache manager: %v", info)
	}
	if info["default_colormap"] != "heat" {
		t.Errorf("expected heat default when the service is not told otherwise, got %v", info["default_colormap"])
	}
}
