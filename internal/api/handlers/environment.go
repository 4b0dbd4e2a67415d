package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"skycast/internal/core"
	"skycast/internal/solar"
	"skycast/internal/tiers"
	"skycast/internal/types"
)

// AirQualityInterface fetches air pollution data.
type AirQualityInterface interface {
	AirPollution(ctx context.Context, lat, lon float64) (*types.AirQuality, error)
}

// UVInterface fetches the current UV index.
type UVInterface interface {
	UVIndex(ctx context.Context, lat, lon float64) (*types.UVReading, error)
}

// ObservationInterface fetches basic current conditions. The solar endpoint
// uses it to source cloud cover when the caller does not supply one.
type ObservationInterface interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (*types.CurrentConditions, error)
}

// EnvironmentHandler serves air quality, UV, and solar estimation endpoints.
type EnvironmentHandler struct {
	air      AirQualityInterface
	uv       UVInterface
	observer ObservationInterface
	geocoder GeocoderInterface
	logger   *slog.Logger
}

// NewEnvironmentHandler creates an EnvironmentHandler with the provided
// dependencies.
func NewEnvironmentHandler(
	air AirQualityInterface,
	uv UVInterface,
	observer ObservationInterface,
	geocoder GeocoderInterface,
	logger *slog.Logger,
) *EnvironmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnvironmentHandler{
		air:      air,
		uv:       uv,
		observer: observer,
		geocoder: geocoder,
		logger:   logger,
	}
}

// RegisterAirRoutes mounts the air quality endpoints onto the mux.
func (h *EnvironmentHandler) RegisterAirRoutes(r chi.Router) {
	r.Get("/quality", h.HandleAirQuality)
	r.Get("/uv", h.HandleUVIndex)
}

// RegisterSolarRoutes mounts the solar endpoints onto the mux.
func (h *EnvironmentHandler) RegisterSolarRoutes(r chi.Router) {
	r.Get("/estimate", h.HandleSolarEstimate)
}

// locate resolves the request location: explicit coordinates, or a free-text
// query via the geocoder with the usual never-auto-select rule.
func (h *EnvironmentHandler) locate(r *http.Request) (types.Coordinates, error) {
	loc, err := parseLocation(r.URL.Query())
	if err != nil {
		return types.Coordinates{}, err
	}
	return tiers.Locate(r.Context(), h.geocoder, loc)
}

// HandleAirQuality handles GET /v1/air/quality.
func (h *EnvironmentHandler) HandleAirQuality(w http.ResponseWriter, r *http.Request) {
	coords, err := h.locate(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	quality, err := h.air.AirPollution(r.Context(), coords.Lat, coords.Lon)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: quality})
}

// HandleUVIndex handles GET /v1/air/uv.
func (h *EnvironmentHandler) HandleUVIndex(w http.ResponseWriter, r *http.Request) {
	coords, err := h.locate(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	reading, err := h.uv.UVIndex(r.Context(), coords.Lat, coords.Lon)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: reading})
}

// HandleSolarEstimate handles GET /v1/solar/estimate.
//
// cloud_cover (fraction 0-1) and uv_index are optional; when omitted they are
// sourced from live observations for the resolved location. month defaults to
// the current calendar month (UTC).
func (h *EnvironmentHandler) HandleSolarEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	coords, err := h.locate(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	cloudCover, haveCloud, err := parseOptionalFloat(q, "cloud_cover")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if !haveCloud {
		current, err := h.observer.CurrentWeather(r.Context(), coords.Lat, coords.Lon)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		cloudCover = float64(current.CloudCover) / 100
	}

	uvIndex, haveUV, err := parseOptionalFloat(q, "uv_index")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if !haveUV {
		reading, err := h.uv.UVIndex(r.Context(), coords.Lat, coords.Lon)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		uvIndex = reading.Value
	}

	month := time.Now().UTC().Month()
	if monthStr := q.Get("month"); monthStr != "" {
		month, err = types.ParseMonth(monthStr)
		if err != nil {
			core.Error(w, r, err)
			return
		}
	}

	profile, err := solar.Estimate(solar.Inputs{
		Coords:     coords,
		CloudCover: cloudCover,
		UVIndex:    uvIndex,
		Month:      month,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: profile})
}
