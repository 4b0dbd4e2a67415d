package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"skycast/internal/core"
	"skycast/internal/types"
)

// validTileLayers enumerates the weather map layers the provider serves.
var validTileLayers = map[string]struct{}{
	"clouds_new":        {},
	"precipitation_new": {},
	"pressure_new":      {},
	"wind_new":          {},
	"temp_new":          {},
}

// maxTileZoom bounds the accepted zoom levels.
const maxTileZoom = 18

// TileFetcherInterface retrieves weather map tile images.
type TileFetcherInterface interface {
	FetchTile(ctx context.Context, layer string, z, x, y int) ([]byte, string, error)
}

// MapsHandler proxies weather map tiles. Tiles are proxied rather than
// redirected because the upstream tile URL embeds the provider API key.
type MapsHandler struct {
	tiles  TileFetcherInterface
	logger *slog.Logger
}

// NewMapsHandler creates a MapsHandler with the provided dependencies.
func NewMapsHandler(tiles TileFetcherInterface, logger *slog.Logger) *MapsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MapsHandler{
		tiles:  tiles,
		logger: logger,
	}
}

// RegisterRoutes mounts the map endpoints onto the mux.
func (h *MapsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tile/{layer}/{z}/{x}/{y}", h.HandleTile)
}

// HandleTile handles GET /v1/maps/tile/{layer}/{z}/{x}/{y}.
func (h *MapsHandler) HandleTile(w http.ResponseWriter, r *http.Request) {
	layer := chi.URLParam(r, "layer")
	if _, ok := validTileLayers[layer]; !ok {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidLayer,
			"unknown map layer",
			nil,
			map[string]any{"layer": layer, "valid_layers": tileLayerNames()},
		))
		return
	}

	z, x, y, err := parseTileCoords(
		chi.URLParam(r, "z"),
		chi.URLParam(r, "x"),
		chi.URLParam(r, "y"),
	)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	img, contentType, err := h.tiles.FetchTile(r.Context(), layer, z, x, y)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// parseTileCoords validates the z/x/y path segments. x and y must lie within
// the 2^z grid for the zoom level.
func parseTileCoords(zStr, xStr, yStr string) (z, x, y int, err error) {
	badCoords := func(msg string) error {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidTile,
			msg,
			nil,
			map[string]any{"z": zStr, "x": xStr, "y": yStr},
		)
	}

	z, zerr := strconv.Atoi(zStr)
	x, xerr := strconv.Atoi(xStr)
	y, yerr := strconv.Atoi(yStr)
	if zerr != nil || xerr != nil || yerr != nil {
		return 0, 0, 0, badCoords("tile coordinates must be integers")
	}
	if z < 0 || z > maxTileZoom {
		return 0, 0, 0, badCoords("zoom level out of range")
	}
	gridSize := 1 << z
	if x < 0 || x >= gridSize || y < 0 || y >= gridSize {
		return 0, 0, 0, badCoords("tile x/y outside the grid for this zoom level")
	}
	return z, x, y, nil
}

func tileLayerNames() []string {
	names := make([]string, 0, len(validTileLayers))
	for name := range validTileLayers {
		names = append(names, name)
	}
	return names
}
