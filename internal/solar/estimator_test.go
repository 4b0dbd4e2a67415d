package solar

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skycast/internal/types"
)

func inputs(lat, lon, cloud, uv float64, month time.Month) Inputs {
	return Inputs{
		Coords:     types.Coordinates{Lat: lat, Lon: lon},
		CloudCover: cloud,
		UVIndex:    uv,
		Month:      month,
	}
}

func TestEstimateEquatorialClearSky(t *testing.T) {
	// 8.98N, clear sky, strong UV, peak month: 5.8 * 1.0 * 1.5 * seasonal.
	profile, err := Estimate(inputs(8.98, -79.52, 0, 10, time.June))
	require.NoError(t, err)

	assert.InDelta(t, 9.22, profile.AvgDailyKWhM2, 1e-9)
	assert.Equal(t, profile.AvgDailyKWhM2, profile.PeakSunHours)
	assert.InDelta(t, 1.0, profile.CloudCoverFactor, 1e-9)
	assert.InDelta(t, 1.5, profile.UVFactor, 1e-9)
	assert.Equal(t, sourceLabel, profile.Source)
	assert.Len(t, profile.MonthlyAverages, 12)
}

func TestEstimateLatitudeBands(t *testing.T) {
	cases := []struct {
		name string
		lat  float64
		base float64
	}{
		{"equatorial", 0, 5.8},
		{"tropical", 15, 5.5},
		{"tropical south", -20, 5.5},
		{"subtropical", 30, 4.5},
		{"band edge 35", 35, 4.5},
		{"temperate 45", 45, 4.0},
		{"high latitude 60", 60, 3.25},
		{"pole", 90, 1.75},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.base, baseRadiation(tc.lat), 1e-9)
		})
	}
}

func TestEstimateCloudAttenuation(t *testing.T) {
	clear, err := Estimate(inputs(0, 0, 0, 5, time.June))
	require.NoError(t, err)
	overcast, err := Estimate(inputs(0, 0, 1, 5, time.June))
	require.NoError(t, err)

	assert.InDelta(t, 0.25, overcast.CloudCoverFactor, 1e-9, "full overcast loses 75%")
	assert.Less(t, overcast.AvgDailyKWhM2, clear.AvgDailyKWhM2)
	assert.InDelta(t, clear.AvgDailyKWhM2*0.25, overcast.AvgDailyKWhM2, 0.01)
}

func TestEstimateUVAdjustmentClamps(t *testing.T) {
	assert.InDelta(t, 0.7, uvAdjustment(0), 1e-9)
	assert.InDelta(t, 1.1, uvAdjustment(5), 1e-9)
	assert.InDelta(t, 1.5, uvAdjustment(10), 1e-9)
	assert.InDelta(t, 1.5, uvAdjustment(14), 1e-9, "extreme UV stays clamped")
}

func TestEstimateSeasonalHemispheres(t *testing.T) {
	t.Run("northern peaks in june", func(t *testing.T) {
		june, err := Estimate(inputs(40, -3.7, 0.2, 6, time.June))
		require.NoError(t, err)
		december, err := Estimate(inputs(40, -3.7, 0.2, 6, time.December))
		require.NoError(t, err)
		assert.Greater(t, june.AvgDailyKWhM2, december.AvgDailyKWhM2)
	})

	t.Run("southern peaks in december", func(t *testing.T) {
		june, err := Estimate(inputs(-40, 144.9, 0.2, 6, time.June))
		require.NoError(t, err)
		december, err := Estimate(inputs(-40, 144.9, 0.2, 6, time.December))
		require.NoError(t, err)
		assert.Greater(t, december.AvgDailyKWhM2, june.AvgDailyKWhM2)
	})

	t.Run("equator is flat year round", func(t *testing.T) {
		profile, err := Estimate(inputs(0, 0, 0.3, 7, time.March))
		require.NoError(t, err)
		first := profile.MonthlyAverages["january"]
		for name, v := range profile.MonthlyAverages {
			assert.InDelta(t, first, v, 1e-9, "month %s", name)
		}
	})
}

func TestEstimateSeasonalFactorShape(t *testing.T) {
	// At 45N the amplitude saturates at 0.3.
	assert.InDelta(t, 1.3, seasonalFactor(45, time.June), 1e-9)
	assert.InDelta(t, 0.7, seasonalFactor(45, time.December), 1e-9)
	// Quarter phase lands on the mean.
	assert.InDelta(t, 1.0, seasonalFactor(45, time.March), 1e-9)
	// Amplitude scales below 45 degrees.
	assert.InDelta(t, 1+0.3*(20.0/45.0), seasonalFactor(20, time.June), 1e-9)
}

func TestEstimateValidation(t *testing.T) {
	cases := []struct {
		name string
		in   Inputs
		code types.ErrorCode
	}{
		{"latitude out of range", inputs(95, 0, 0.5, 5, time.June), types.ErrCodeValidationInvalidLat},
		{"longitude out of range", inputs(0, 181, 0.5, 5, time.June), types.ErrCodeValidationInvalidLon},
		{"cloud cover negative", inputs(0, 0, -0.1, 5, time.June), types.ErrCodeValidationCloudCover},
		{"cloud cover above one", inputs(0, 0, 1.1, 5, time.June), types.ErrCodeValidationCloudCover},
		{"uv negative", inputs(0, 0, 0.5, -1, time.June), types.ErrCodeValidationUVIndex},
		{"month zero", inputs(0, 0, 0.5, 5, time.Month(0)), types.ErrCodeValidationInvalidMonth},
		{"month thirteen", inputs(0, 0, 0.5, 5, time.Month(13)), types.ErrCodeValidationInvalidMonth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profile, err := Estimate(tc.in)
			require.Error(t, err)
			assert.Nil(t, profile)
			assert.True(t, types.IsCode(err, tc.code), "want %s, got %v", tc.code, err)
		})
	}
}

func TestEstimateMonthlyAveragesConsistent(t *testing.T) {
	profile, err := Estimate(inputs(52.5, 13.4, 0.4, 3, time.September))
	require.NoError(t, err)

	// The headline average must equal the requested month's entry.
	assert.InDelta(t, profile.MonthlyAverages["september"], profile.AvgDailyKWhM2, 1e-9)

	for name, v := range profile.MonthlyAverages {
		assert.False(t, math.IsNaN(v), "month %s", name)
		assert.Greater(t, v, 0.0, "month %s", name)
	}
}
