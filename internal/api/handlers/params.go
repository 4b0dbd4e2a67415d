// Package handlers contains the HTTP handler implementations for the SkyCast
// API. Handlers parse and validate query parameters, delegate to domain
// services through locally-defined interfaces, and shape responses through the
// core chassis envelopes.
package handlers

import (
	"net/url"
	"strconv"
	"strings"

	"skycast/internal/types"
)

// parseLocation builds a Location from query parameters. Explicit lat/lon take
// precedence over the free-text q parameter.
func parseLocation(q url.Values) (types.Location, error) {
	latStr := q.Get("lat")
	lonStr := q.Get("lon")

	if latStr != "" || lonStr != "" {
		if latStr == "" || lonStr == "" {
			return types.Location{}, types.NewAppError(
				types.ErrCodeValidationMissingField,
				"lat and lon must be provided together",
				nil,
			)
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return types.Location{}, types.NewAppError(
				types.ErrCodeValidationInvalidLat,
				"lat must be a valid number",
				nil,
			)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return types.Location{}, types.NewAppError(
				types.ErrCodeValidationInvalidLon,
				"lon must be a valid number",
				nil,
			)
		}
		loc := types.Location{Coords: &types.Coordinates{Lat: lat, Lon: lon}}
		if err := loc.Validate(); err != nil {
			return types.Location{}, err
		}
		return loc, nil
	}

	query := strings.TrimSpace(q.Get("q"))
	loc := types.Location{Query: query}
	if err := loc.Validate(); err != nil {
		return types.Location{}, err
	}
	return loc, nil
}

// parseCoordinates is the strict variant for endpoints that require an
// explicit lat/lon pair.
func parseCoordinates(q url.Values) (types.Coordinates, error) {
	latStr := q.Get("lat")
	if latStr == "" {
		return types.Coordinates{}, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lat query parameter is required",
			nil,
		)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return types.Coordinates{}, types.NewAppError(
			types.ErrCodeValidationInvalidLat,
			"lat must be a valid number",
			nil,
		)
	}

	lonStr := q.Get("lon")
	if lonStr == "" {
		return types.Coordinates{}, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lon query parameter is required",
			nil,
		)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return types.Coordinates{}, types.NewAppError(
			types.ErrCodeValidationInvalidLon,
			"lon must be a valid number",
			nil,
		)
	}

	coords := types.Coordinates{Lat: lat, Lon: lon}
	if err := coords.Validate(); err != nil {
		return types.Coordinates{}, err
	}
	return coords, nil
}

// parseOptionalInt parses an optional integer query parameter, returning 0
// when absent.
func parseOptionalInt(q url.Values, name string) (int, error) {
	s := q.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			name+" must be a valid integer",
			nil,
			map[string]any{"param": name},
		)
	}
	return n, nil
}

// parseOptionalFloat parses an optional float query parameter. The second
// return value reports whether the parameter was present.
func parseOptionalFloat(q url.Values, name string) (float64, bool, error) {
	s := q.Get(name)
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			name+" must be a valid number",
			nil,
			map[string]any{"param": name},
		)
	}
	return f, true, nil
}
