package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"skycast/internal/core"
	"skycast/internal/tiers"
	"skycast/internal/types"
)

// ResolverInterface is the tier-resolution contract used by the weather
// handler. Defined locally to avoid tight coupling per the handler injection
// pattern.
type ResolverInterface interface {
	Resolve(ctx context.Context, req tiers.Request) (*types.TieredResult, error)
}

// ZipLookupInterface resolves current weather by postal code. ZIP lookups are
// basic-tier only; they bypass the tier resolver.
type ZipLookupInterface interface {
	CurrentByZip(ctx context.Context, zip, countryCode string) (*types.CurrentConditions, error)
}

// WeatherHandler maps HTTP requests onto tiered weather lookups.
type WeatherHandler struct {
	resolver ResolverInterface
	zip      ZipLookupInterface
	logger   *slog.Logger
}

// NewWeatherHandler creates a WeatherHandler with the provided dependencies.
func NewWeatherHandler(resolver ResolverInterface, zip ZipLookupInterface, logger *slog.Logger) *WeatherHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherHandler{
		resolver: resolver,
		zip:      zip,
		logger:   logger,
	}
}

// RegisterRoutes mounts the weather endpoints onto the mux.
func (h *WeatherHandler) RegisterRoutes(r chi.Router) {
	r.Get("/current", h.HandleCurrent)
	r.Get("/forecast", h.HandleForecast)
	r.Get("/alerts", h.HandleAlerts)
	r.Get("/historical", h.HandleHistorical)
	r.Get("/zip", h.HandleByZip)
}

// HandleCurrent handles GET /v1/weather/current.
func (h *WeatherHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	h.resolveAndRespond(w, r, types.ShapeCurrent)
}

// HandleForecast handles GET /v1/weather/forecast.
func (h *WeatherHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	h.resolveAndRespond(w, r, types.ShapeForecast)
}

// HandleAlerts handles GET /v1/weather/alerts.
func (h *WeatherHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	h.resolveAndRespond(w, r, types.ShapeAlerts)
}

// HandleHistorical handles GET /v1/weather/historical. The target time comes
// from either dt (unix seconds) or date (YYYY-MM-DD, interpreted as midnight
// UTC).
func (h *WeatherHandler) HandleHistorical(w http.ResponseWriter, r *http.Request) {
	h.resolveAndRespond(w, r, types.ShapeHistorical)
}

// resolveAndRespond implements the shared request flow: parse location and
// units, call the resolver, envelope the result. Basic-tier and unavailable
// results carry a warning in the response meta so clients notice the
// degradation without parsing payload shapes.
func (h *WeatherHandler) resolveAndRespond(w http.ResponseWriter, r *http.Request, shape types.DataShape) {
	q := r.URL.Query()

	loc, err := parseLocation(q)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	units, err := types.ParseUnits(q.Get("units"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	req := tiers.Request{
		Shape:    shape,
		Location: loc,
		Units:    units,
	}

	if shape == types.ShapeForecast {
		cnt, err := parseOptionalInt(q, "cnt")
		if err != nil {
			core.Error(w, r, err)
			return
		}
		req.ForecastCount = cnt
	}

	if shape == types.ShapeHistorical {
		at, err := parseHistoricalTime(q.Get("dt"), q.Get("date"))
		if err != nil {
			core.Error(w, r, err)
			return
		}
		req.At = at
	}

	result, err := h.resolver.Resolve(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: result,
		Meta: tierMeta(result),
	})
}

// HandleByZip handles GET /v1/weather/zip. The country code may be embedded
// ("94040,US") or passed separately via the country parameter.
func (h *WeatherHandler) HandleByZip(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	zip := strings.TrimSpace(q.Get("zip"))
	if zip == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"zip query parameter is required",
			nil,
		))
		return
	}

	country := strings.TrimSpace(q.Get("country"))
	if country == "" {
		if zipCode, cc, found := strings.Cut(zip, ","); found {
			zip = strings.TrimSpace(zipCode)
			country = strings.TrimSpace(cc)
		}
	}

	units, err := types.ParseUnits(q.Get("units"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	current, err := h.zip.CurrentByZip(r.Context(), zip, country)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	result := &types.TieredResult{
		Source: types.TierBasic,
		Units:  units,
		Basic:  &types.BasicPayload{Current: current},
	}
	tiers.ConvertBasic(result.Basic, units)

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: result})
}

// parseHistoricalTime resolves the dt/date parameters into a unix timestamp.
// dt wins when both are present.
func parseHistoricalTime(dt, date string) (int64, error) {
	if dt != "" {
		at, err := strconv.ParseInt(dt, 10, 64)
		if err != nil {
			return 0, types.NewAppError(
				types.ErrCodeValidationInvalidDate,
				"dt must be a unix timestamp in seconds",
				err,
			)
		}
		return at, nil
	}
	if date != "" {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			return 0, types.NewAppError(
				types.ErrCodeValidationInvalidDate,
				"date must be formatted as YYYY-MM-DD",
				err,
			)
		}
		return t.Unix(), nil
	}
	return 0, types.NewAppError(
		types.ErrCodeValidationMissingField,
		"either dt or date is required for historical lookups",
		nil,
	)
}

// tierMeta attaches a degradation warning for non-rich results.
func tierMeta(result *types.TieredResult) *core.ResponseMeta {
	switch result.Source {
	case types.TierBasic:
		return &core.ResponseMeta{Warnings: []string{
			"served from the basic data tier; hourly/daily detail and alerts are unavailable on the current plan",
		}}
	case types.TierUnavailable:
		return &core.ResponseMeta{Warnings: []string{result.Note}}
	default:
		return nil
	}
}
