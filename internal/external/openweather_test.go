package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skycast/internal/config"
	"skycast/internal/types"
)

func newOWMClient(t *testing.T, srvURL string) *OpenWeatherClient {
	t.Helper()
	base := NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"owm-"+t.Name(),
		RetryPolicy{MaxRetries: 0, MinWait: time.Millisecond, MaxWait: time.Millisecond},
		"skycast-test/1.0",
		WithSleepFunc(func(time.Duration) {}),
	)
	return NewOpenWeatherClient(config.ProviderConfig{
		APIKey:     types.SecretString("test-key"),
		BaseURL:    srvURL + "/data/2.5",
		GeoURL:     srvURL + "/geo/1.0",
		OneCallURL: srvURL + "/data/3.0",
		TileURL:    srvURL + "/map",
	}, base)
}

func TestGeocodeParsesCandidates(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/geo/1.0/direct", r.URL.Path)
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name":"London","lat":51.5073,"lon":-0.1276,"country":"GB","state":"England"},
			{"name":"London","lat":42.9836,"lon":-81.2497,"country":"CA","state":"Ontario"}
		]`))
	}))
	defer srv.Close()

	c := newOWMClient(t, srv.URL)
	candidates, err := c.Geocode(context.Background(), "London", 5)

	require.NoError(t, err)
	assert.Equal(t, "test-key", gotQuery.Get("appid"))
	assert.Equal(t, "London", gotQuery.Get("q"))
	require.Len(t, candidates, 2)
	assert.Equal(t, "GB", candidates[0].Country)
	assert.Equal(t, "Ontario", candidates[1].State)
	assert.InDelta(t, 51.5073, candidates[0].Lat, 1e-9)
}

func TestCurrentWeatherParsesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("units"), "provider is always queried in standard units")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"coord":{"lat":51.51,"lon":-0.13},
			"weather":[{"id":500,"main":"Rain","description":"light rain","icon":"10d"}],
			"main":{"temp":288.15,"feels_like":287.4,"temp_min":286.1,"temp_max":289.9,"pressure":1012,"humidity":81},
			"visibility":10000,
			"wind":{"speed":4.1,"deg":80},
			"clouds":{"all":90},
			"rain":{"1h":0.25},
			"dt":1719392400,
			"sys":{"country":"GB","sunrise":1719370000,"sunset":1719430000},
			"timezone":3600,
			"name":"London"
		}`))
	}))
	defer srv.Close()

	c := newOWMClient(t, srv.URL)
	current, err := c.CurrentWeather(context.Background(), 51.51, -0.13)

	require.NoError(t, err)
	assert.InDelta(t, 288.15, current.Temp, 1e-9)
	assert.Equal(t, 1012, current.Pressure)
	assert.Equal(t, 90, current.CloudCover)
	assert.Equal(t, "London", current.City)
	assert.Equal(t, "GB", current.Country)
	require.NotNil(t, current.Rain)
	require.NotNil(t, current.Rain.OneHour)
	assert.InDelta(t, 0.25, *current.Rain.OneHour, 1e-9)
	require.NotNil(t, current.WindDeg)
	assert.Equal(t, 80, *current.WindDeg)
}

func TestForecastParsesPoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/2.5/forecast", r.URL.Path)
		assert.Equal(t, "8", r.URL.Query().Get("cnt"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"list":[
				{"dt":1719392400,"main":{"temp":290.1,"feels_like":289.0,"pressure":1010,"humidity":70},
				 "weather":[{"id":800,"main":"Clear","description":"clear sky","icon":"01d"}],
				 "clouds":{"all":5},"wind":{"speed":2.5,"deg":120},"pop":0.1}
			],
			"city":{"name":"Paris","coord":{"lat":48.85,"lon":2.35},"country":"FR","timezone":7200}
		}`))
	}))
	defer srv.Close()

	c := newOWMClient(t, srv.URL)
	forecast, err := c.Forecast(context.Background(), 48.85, 2.35, 8)

	require.NoError(t, err)
	assert.Equal(t, "Paris", forecast.City)
	assert.Equal(t, 7200, forecast.TimezoneOffset)
	require.Len(t, forecast.Points, 1)
	assert.InDelta(t, 290.1, forecast.Points[0].Temp, 1e-9)
	require.NotNil(t, forecast.Points[0].Precipitation)
	assert.InDelta(t, 0.1, *forecast.Points[0].Precipitation, 1e-9)
}

func TestOneCallEntitlementErrorIsStructural(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/data/3.0/onecall", r.URL.Path)
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"cod":401,"message":"Please note that using One Call 3.0 requires a separate subscription"}`))
		}))

		c := newOWMClient(t, srv.URL)
		_, err := c.OneCall(context.Background(), 51.5, -0.12, "minutely")
		srv.Close()

		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrCodeUpstreamNotEntitled),
			"status %d on a One Call endpoint must map to the entitlement code", status)
	}
}

func TestBasicTier401IsRejectionNotEntitlement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	c := newOWMClient(t, srv.URL)
	_, err := c.CurrentWeather(context.Background(), 51.5, -0.12)

	require.Error(t, err)
	assert.False(t, types.IsCode(err, types.ErrCodeUpstreamNotEntitled))
	assert.True(t, types.IsCode(err, types.ErrCodeUpstreamRejected))
}

func TestNotFoundMapsLocationNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()

	c := newOWMClient(t, srv.URL)
	_, err := c.CurrentByZip(context.Background(), "00000", "US")

	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeLocationNotFound))
}

func TestMalformedJSONMapsUpstreamMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"coord":`))
	}))
	defer srv.Close()

	c := newOWMClient(t, srv.URL)
	_, err := c.CurrentWeather(context.Background(), 51.5, -0.12)

	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeUpstreamMalformed))
}

func TestOneCallParsesRichPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "minutely", r.URL.Query().Get("exclude"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"lat":35.68,"lon":139.69,"timezone":"Asia/Tokyo","timezone_offset":32400,
			"current":{"dt":1719392400,"temp":300.2,"feels_like":302.1,"pressure":1008,"humidity":65,
				"dew_point":293.1,"uvi":7.5,"clouds":20,"wind_speed":3.2,
				"weather":[{"id":801,"main":"Clouds","description":"few clouds","icon":"02d"}]},
			"hourly":[{"dt":1719396000,"temp":300.5,"feels_like":302.0,"pressure":1008,"humidity":64,
				"uvi":7.0,"clouds":25,"wind_speed":3.5,"pop":0.2,
				"weather":[{"id":801,"main":"Clouds","description":"few clouds","icon":"02d"}]}],
			"daily":[{"dt":1719403200,"sunrise":1719370000,"sunset":1719422000,
				"temp":{"day":301.0,"min":295.5,"max":302.3,"night":296.8},
				"pressure":1007,"humidity":60,"uvi":8.1,"clouds":30,"wind_speed":4.0,"pop":0.3,
				"weather":[{"id":500,"main":"Rain","description":"light rain","icon":"10d"}]}],
			"alerts":[{"sender_name":"JMA","event":"Heat Advisory","start":1719392000,"end":1719450000,
				"description":"High temperatures expected.","tags":["Extreme temperature value"]}]
		}`))
	}))
	defer srv.Close()

	c := newOWMClient(t, srv.URL)
	payload, err := c.OneCall(context.Background(), 35.68, 139.69, "minutely")

	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", payload.Timezone)
	require.NotNil(t, payload.Current)
	assert.InDelta(t, 300.2, payload.Current.Temp, 1e-9)
	assert.InDelta(t, 7.5, payload.Current.UVIndex, 1e-9)
	require.Len(t, payload.Hourly, 1)
	assert.InDelta(t, 0.2, payload.Hourly[0].POP, 1e-9)
	require.Len(t, payload.Daily, 1)
	assert.InDelta(t, 295.5, payload.Daily[0].TempMin, 1e-9)
	require.Len(t, payload.Alerts, 1)
	assert.Equal(t, "Heat Advisory", payload.Alerts[0].Event)
	assert.Empty(t, payload.History)
}

func TestTimemachineParsesHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/3.0/onecall/timemachine", r.URL.Path)
		assert.Equal(t, "1719300000", r.URL.Query().Get("dt"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"lat":51.5,"lon":-0.12,"timezone":"Europe/London","timezone_offset":3600,
			"data":[{"dt":1719300000,"temp":287.0,"feels_like":286.2,"pressure":1015,"humidity":78,
				"dew_point":283.0,"uvi":0,"clouds":100,"wind_speed":5.0,
				"weather":[{"id":804,"main":"Clouds","description":"overcast clouds","icon":"04n"}]}]
		}`))
	}))
	defer srv.Close()

	c := newOWMClient(t, srv.URL)
	payload, err := c.Timemachine(context.Background(), 51.5, -0.12, 1719300000)

	require.NoError(t, err)
	require.Len(t, payload.History, 1)
	assert.InDelta(t, 287.0, payload.History[0].Temp, 1e-9)
	assert.Equal(t, 100, payload.History[0].CloudCover)
}

func TestAirPollutionParsesReadings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/2.5/air_pollution", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"coord":{"lat":28.61,"lon":77.21},
			"list":[{"main":{"aqi":4},"components":{"co":1200.5,"no":15.2,"no2":40.1,"o3":60.3,"so2":18.7,"pm2_5":95.4,"pm10":130.2,"nh3":12.1},"dt":1719392400}]
		}`))
	}))
	defer srv.Close()

	c := newOWMClient(t, srv.URL)
	quality, err := c.AirPollution(context.Background(), 28.61, 77.21)

	require.NoError(t, err)
	require.Len(t, quality.Readings, 1)
	assert.Equal(t, 4, quality.Readings[0].AQI)
	assert.InDelta(t, 95.4, quality.Readings[0].Components.PM25, 1e-9)
}

func TestUVIndexParsesReading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/2.5/uvi", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"lat":-33.87,"lon":151.21,"date_iso":"2026-08-24T12:00:00Z","date":1787918400,"value":3.4}`))
	}))
	defer srv.Close()

	c := newOWMClient(t, srv.URL)
	reading, err := c.UVIndex(context.Background(), -33.87, 151.21)

	require.NoError(t, err)
	assert.InDelta(t, 3.4, reading.Value, 1e-9)
	assert.Equal(t, "2026-08-24T12:00:00Z", reading.DateISO)
}

func TestFetchTileProxiesImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/map/clouds_new/3/4/2.png", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	c := newOWMClient(t, srv.URL)
	img, contentType, err := c.FetchTile(context.Background(), "clouds_new", 3, 4, 2)

	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, png, img)
}
