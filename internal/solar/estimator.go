// Package solar estimates usable solar radiation for a site from its latitude,
// current cloud cover, and UV index. The model is a deliberately coarse
// clear-sky baseline scaled by three factors; it is a screening estimate, not
// an engineering irradiance calculation.
package solar

import (
	"math"
	"time"

	"skycast/internal/types"
)

// sourceLabel tags every profile so downstream consumers know the numbers are
// modelled, not measured.
const sourceLabel = "latitude_band_model"

// Inputs are the observational parameters for one estimate. CloudCover is a
// fraction in [0, 1]; UVIndex is the dimensionless UV index, zero or positive.
type Inputs struct {
	Coords     types.Coordinates
	CloudCover float64
	UVIndex    float64
	Month      time.Month
}

// Estimate produces a SolarProfile for the given inputs.
//
// The clear-sky baseline comes from latitude bands: equatorial sites get
// 5.8 kWh/m2/day, tropical 5.5, subtropical 4.5, and beyond 35 degrees the
// baseline decays linearly at 0.05 per degree with a floor of 1.0. The
// baseline is scaled by a cloud attenuation factor (75% loss at full
// overcast), a UV adjustment clamped to [0.7, 1.5], and a sinusoidal seasonal
// factor peaking at the hemisphere's summer solstice month. The seasonal
// amplitude scales with latitude so equatorial sites stay flat year-round.
//
// Peak sun hours equal the average daily energy density under the 1000 W/m2
// reference convention.
func Estimate(in Inputs) (*types.SolarProfile, error) {
	if err := in.Coords.Validate(); err != nil {
		return nil, err
	}
	if in.CloudCover < 0 || in.CloudCover > 1 {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeValidationCloudCover,
			"cloud cover must be a fraction between 0 and 1",
			nil,
			map[string]any{"cloud_cover": in.CloudCover},
		)
	}
	if in.UVIndex < 0 {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeValidationUVIndex,
			"uv index must be zero or positive",
			nil,
			map[string]any{"uv_index": in.UVIndex},
		)
	}
	if in.Month < time.January || in.Month > time.December {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidMonth,
			"month must be a calendar month",
			nil,
			map[string]any{"month": int(in.Month)},
		)
	}

	lat := in.Coords.Lat
	base := baseRadiation(lat)
	cloudFactor := 1 - in.CloudCover*0.75
	uvFactor := uvAdjustment(in.UVIndex)

	avg := base * cloudFactor * uvFactor * seasonalFactor(lat, in.Month)

	monthly := make(map[string]float64, 12)
	for m := time.January; m <= time.December; m++ {
		monthly[types.MonthName(m)] = round2(base * cloudFactor * uvFactor * seasonalFactor(lat, m))
	}

	return &types.SolarProfile{
		Coordinates:      in.Coords,
		AvgDailyKWhM2:    round2(avg),
		PeakSunHours:     round2(avg),
		MonthlyAverages:  monthly,
		CloudCoverFactor: round2(cloudFactor),
		UVFactor:         round2(uvFactor),
		Source:           sourceLabel,
	}, nil
}

// baseRadiation returns the clear-sky daily baseline in kWh/m2 for a latitude.
func baseRadiation(lat float64) float64 {
	abs := math.Abs(lat)
	switch {
	case abs < 10:
		return 5.8
	case abs < 23.5:
		return 5.5
	case abs < 35:
		return 4.5
	default:
		return math.Max(1.0, 4.5-0.05*(abs-35))
	}
}

// uvAdjustment maps the UV index onto a multiplier in [0.7, 1.5].
func uvAdjustment(uv float64) float64 {
	f := 0.7 + 0.08*uv
	if f > 1.5 {
		return 1.5
	}
	return f
}

// seasonalFactor is a cosine over the calendar year peaking at the summer
// solstice month of the site's hemisphere (June north, December south). The
// amplitude grows with latitude up to 0.3 at 45 degrees and beyond.
func seasonalFactor(lat float64, month time.Month) float64 {
	peak := time.June
	if lat < 0 {
		peak = time.December
	}
	amplitude := 0.3 * math.Min(1, math.Abs(lat)/45)
	return 1 + amplitude*math.Cos(float64(month-peak)*math.Pi/6)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
