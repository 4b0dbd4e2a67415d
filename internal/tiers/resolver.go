// Package tiers implements the data-tier resolution strategy: attempt the
// subscription-gated rich data source first, and on an entitlement refusal
// degrade to the basic source when the requested shape has a basic equivalent,
// or report the tier as unavailable when it does not.
package tiers

import (
	"context"
	"log/slog"
	"time"

	"skycast/internal/types"
)

// oneCallReference points callers at the subscription page for the rich tier.
const oneCallReference = "https://openweathermap.org/api/one-call-3"

// Geocoder resolves free-text location queries into candidates.
type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) ([]types.GeocodeCandidate, error)
}

// RichClient is the subscription-tier data source.
type RichClient interface {
	OneCall(ctx context.Context, lat, lon float64, exclude string) (*types.RichPayload, error)
	Timemachine(ctx context.Context, lat, lon float64, at int64) (*types.RichPayload, error)
}

// BasicClient is the default-access data source.
type BasicClient interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (*types.CurrentConditions, error)
	Forecast(ctx context.Context, lat, lon float64, cnt int) (*types.BasicForecast, error)
}

// Request describes one tiered data lookup.
type Request struct {
	Shape    types.DataShape
	Location types.Location
	Units    types.Units

	// At is the unix timestamp for historical lookups. Ignored otherwise.
	At int64

	// ForecastCount limits the number of basic forecast points when positive.
	ForecastCount int
}

// Resolver orchestrates geocoding, tier selection, and unit conversion.
// It is safe for concurrent use.
type Resolver struct {
	geocoder Geocoder
	rich     RichClient
	basic    BasicClient
	logger   *slog.Logger

	// historyWindow bounds how far back historical lookups may reach.
	historyWindow time.Duration
	now           func() time.Time
}

// NewResolver creates a Resolver over the given data sources.
func NewResolver(geocoder Geocoder, rich RichClient, basic BasicClient, logger *slog.Logger) *Resolver {
	return &Resolver{
		geocoder:      geocoder,
		rich:          rich,
		basic:         basic,
		logger:        logger,
		historyWindow: 5 * 24 * time.Hour,
		now:           time.Now,
	}
}

// Resolve executes one tiered lookup.
//
// Location handling: explicit coordinates bypass geocoding entirely. A text
// query that resolves to exactly one candidate proceeds with that candidate's
// coordinates. More than one candidate aborts with a location_ambiguous error
// carrying every candidate; the resolver never auto-selects, and no weather
// fetch is attempted.
//
// Tier handling: the rich source is tried first. An entitlement refusal
// degrades to the basic source for shapes that have a basic equivalent
// (current, forecast); for rich-only shapes (alerts, historical) it yields a
// TierUnavailable result, which is not an error. Any other rich-tier failure
// propagates unchanged; the basic tier is never used to mask outages.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*types.TieredResult, error) {
	if err := req.Location.Validate(); err != nil {
		return nil, err
	}
	units := req.Units
	if units == "" {
		units = types.UnitsMetric
	}
	if req.Shape == types.ShapeHistorical {
		if err := r.validateHistoricalTimestamp(req.At); err != nil {
			return nil, err
		}
	}

	coords, err := Locate(ctx, r.geocoder, req.Location)
	if err != nil {
		return nil, err
	}

	rich, err := r.fetchRich(ctx, req, coords)
	if err == nil {
		convertRichPayload(rich, units)
		return &types.TieredResult{
			Source: types.TierRich,
			Units:  units,
			Rich:   rich,
		}, nil
	}

	if !types.IsCode(err, types.ErrCodeUpstreamNotEntitled) {
		return nil, err
	}

	if !req.Shape.HasBasicEquivalent() {
		r.logger.InfoContext(ctx, "rich tier not entitled, no basic equivalent",
			slog.String("shape", string(req.Shape)))
		return &types.TieredResult{
			Source:    types.TierUnavailable,
			Units:     units,
			Note:      "this data requires a One Call 3.0 subscription",
			Reference: oneCallReference,
		}, nil
	}

	r.logger.InfoContext(ctx, "rich tier not entitled, degrading to basic",
		slog.String("shape", string(req.Shape)))

	basic, err := r.fetchBasic(ctx, req, coords)
	if err != nil {
		return nil, err
	}
	ConvertBasic(basic, units)
	return &types.TieredResult{
		Source: types.TierBasic,
		Units:  units,
		Basic:  basic,
	}, nil
}

// Locate turns a Location into coordinates, geocoding when needed. Explicit
// coordinates pass through untouched. A query resolving to multiple candidates
// fails with location_ambiguous carrying every candidate; callers surface the
// list so the client can choose.
func Locate(ctx context.Context, g Geocoder, loc types.Location) (types.Coordinates, error) {
	if loc.HasCoords() {
		return *loc.Coords, nil
	}

	candidates, err := g.Geocode(ctx, loc.Query, 5)
	if err != nil {
		return types.Coordinates{}, err
	}

	switch len(candidates) {
	case 0:
		return types.Coordinates{}, types.NewAppErrorWithDetails(
			types.ErrCodeLocationNotFound,
			"no locations match the query",
			nil,
			map[string]any{"query": loc.Query},
		)
	case 1:
		return types.Coordinates{Lat: candidates[0].Lat, Lon: candidates[0].Lon}, nil
	default:
		return types.Coordinates{}, types.NewAppErrorWithDetails(
			types.ErrCodeLocationAmbiguous,
			"multiple locations match the query; retry with explicit coordinates",
			nil,
			map[string]any{"query": loc.Query, "candidates": candidates},
		)
	}
}

// fetchRich requests the rich-tier payload shaped for the requested data.
// The exclude list trims One Call blocks the shape does not need.
func (r *Resolver) fetchRich(ctx context.Context, req Request, coords types.Coordinates) (*types.RichPayload, error) {
	switch req.Shape {
	case types.ShapeCurrent:
		return r.rich.OneCall(ctx, coords.Lat, coords.Lon, "minutely,hourly,daily")
	case types.ShapeForecast:
		return r.rich.OneCall(ctx, coords.Lat, coords.Lon, "minutely")
	case types.ShapeAlerts:
		return r.rich.OneCall(ctx, coords.Lat, coords.Lon, "minutely,hourly,daily,current")
	case types.ShapeHistorical:
		return r.rich.Timemachine(ctx, coords.Lat, coords.Lon, req.At)
	default:
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeInternalUnexpected,
			"unknown data shape",
			nil,
			map[string]any{"shape": string(req.Shape)},
		)
	}
}

func (r *Resolver) fetchBasic(ctx context.Context, req Request, coords types.Coordinates) (*types.BasicPayload, error) {
	switch req.Shape {
	case types.ShapeCurrent:
		current, err := r.basic.CurrentWeather(ctx, coords.Lat, coords.Lon)
		if err != nil {
			return nil, err
		}
		return &types.BasicPayload{Current: current}, nil
	case types.ShapeForecast:
		forecast, err := r.basic.Forecast(ctx, coords.Lat, coords.Lon, req.ForecastCount)
		if err != nil {
			return nil, err
		}
		return &types.BasicPayload{Forecast: forecast}, nil
	default:
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeInternalUnexpected,
			"shape has no basic equivalent",
			nil,
			map[string]any{"shape": string(req.Shape)},
		)
	}
}

// validateHistoricalTimestamp enforces the provider's lookback window: the
// timestamp must be in the past and within historyWindow of now.
func (r *Resolver) validateHistoricalTimestamp(at int64) error {
	if at <= 0 {
		return types.NewAppError(
			types.ErrCodeValidationMissingField,
			"historical lookups require a timestamp",
			nil,
		)
	}
	now := r.now()
	t := time.Unix(at, 0)
	if t.After(now) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidDate,
			"historical timestamp must be in the past",
			nil,
			map[string]any{"at": at},
		)
	}
	if now.Sub(t) > r.historyWindow {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidDate,
			"historical timestamp is outside the supported lookback window",
			nil,
			map[string]any{"at": at, "window_hours": int(r.historyWindow.Hours())},
		)
	}
	return nil
}
