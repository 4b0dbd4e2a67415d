package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"skycast/internal/core"
	"skycast/internal/types"
)

// GeocoderInterface is the geocoding contract used by the geo handler.
type GeocoderInterface interface {
	Geocode(ctx context.Context, query string, limit int) ([]types.GeocodeCandidate, error)
}

// GeoHandler exposes location search. Unlike the weather endpoints, search
// returns the full candidate list; an ambiguous query is the expected case
// here, not an error.
type GeoHandler struct {
	geocoder GeocoderInterface
	logger   *slog.Logger
}

// NewGeoHandler creates a GeoHandler with the provided dependencies.
func NewGeoHandler(geocoder GeocoderInterface, logger *slog.Logger) *GeoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeoHandler{
		geocoder: geocoder,
		logger:   logger,
	}
}

// RegisterRoutes mounts the geo endpoints onto the mux.
func (h *GeoHandler) RegisterRoutes(r chi.Router) {
	r.Get("/search", h.HandleSearch)
}

type searchResponse struct {
	Query      string                   `json:"query"`
	Candidates []types.GeocodeCandidate `json:"candidates"`
}

// HandleSearch handles GET /v1/geo/search.
func (h *GeoHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"q query parameter is required",
			nil,
		))
		return
	}

	limit, err := parseOptionalInt(q, "limit")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if limit <= 0 || limit > 5 {
		limit = 5
	}

	candidates, err := h.geocoder.Geocode(r.Context(), query, limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if candidates == nil {
		candidates = []types.GeocodeCandidate{}
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: searchResponse{Query: query, Candidates: candidates},
	})
}
