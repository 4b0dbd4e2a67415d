package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"skycast/internal/config"
	"skycast/internal/types"
)

// maxResponseBodySize bounds upstream response bodies (4 MB). OpenWeatherMap
// payloads are far smaller; the limit protects against a misbehaving upstream.
const maxResponseBodySize = 4 << 20

// OpenWeatherClient translates SkyCast calls into OpenWeatherMap HTTP requests
// and reshapes the wire JSON into domain types. All payload-bearing calls
// request standard units (Kelvin, m/s); unit conversion is applied by the tier
// resolver, not here.
//
// The client distinguishes the subscription-gated One Call 3.0 endpoints from
// the default-access 2.5 endpoints: authorization failures on the former are
// mapped to the structural entitlement error code so that the tier resolver
// can fall back without string matching.
type OpenWeatherClient struct {
	base *BaseClient

	apiKey     types.SecretString
	baseURL    string
	geoURL     string
	oneCallURL string
	tileURL    string
}

// NewOpenWeatherClient creates a client for the configured OpenWeatherMap
// endpoints. The BaseClient supplies retries and circuit breaking.
func NewOpenWeatherClient(cfg config.ProviderConfig, base *BaseClient) *OpenWeatherClient {
	return &OpenWeatherClient{
		base:       base,
		apiKey:     cfg.APIKey,
		baseURL:    trimSlash(cfg.BaseURL),
		geoURL:     trimSlash(cfg.GeoURL),
		oneCallURL: trimSlash(cfg.OneCallURL),
		tileURL:    trimSlash(cfg.TileURL),
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// owmError is the provider's error envelope: {"cod": ..., "message": ...}.
// cod is a string on some endpoints and a number on others.
type owmError struct {
	Cod     json.RawMessage `json:"cod"`
	Message string          `json:"message"`
}

// richTierEndpoint marks requests against One Call 3.0 so that authorization
// failures map to the entitlement code instead of a generic rejection.
type tierClass int

const (
	basicTierEndpoint tierClass = iota
	richTierEndpoint
)

// getJSON issues a GET against rawURL with the query values plus the API key,
// and decodes a 200 response into dst. Non-200 responses and malformed bodies
// are mapped to typed AppErrors.
func (c *OpenWeatherClient) getJSON(ctx context.Context, rawURL string, q url.Values, tier tierClass, dst any) error {
	q.Set("appid", c.apiKey.Unmask())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+q.Encode(), nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "building upstream request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "reading upstream response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return c.mapStatusError(resp.StatusCode, body, tier)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamMalformed,
			"upstream returned malformed JSON",
			err,
		)
	}
	return nil
}

// mapStatusError translates a non-200 provider status into a typed AppError.
// Authorization failures on rich-tier endpoints become the structural
// entitlement signal; the same statuses on basic endpoints indicate a bad key
// and are surfaced as plain rejections.
func (c *OpenWeatherClient) mapStatusError(status int, body []byte, tier tierClass) error {
	var oe owmError
	_ = json.Unmarshal(body, &oe)
	msg := oe.Message
	if msg == "" {
		msg = fmt.Sprintf("upstream returned status %d", status)
	}

	switch {
	case (status == http.StatusUnauthorized || status == http.StatusForbidden) && tier == richTierEndpoint:
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamNotEntitled,
			"subscription plan does not include this data source",
			nil,
			map[string]any{"provider_message": msg},
		)
	case status == http.StatusNotFound:
		return types.NewAppErrorWithDetails(
			types.ErrCodeLocationNotFound,
			"no data found for the requested location",
			nil,
			map[string]any{"provider_message": msg},
		)
	case status == http.StatusTooManyRequests:
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "upstream rate limit exceeded", nil)
	case status >= 500:
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, msg, nil)
	default:
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamRejected,
			"upstream rejected the request",
			nil,
			map[string]any{"status": status, "provider_message": msg},
		)
	}
}

// --- Geocoding ---

type owmGeoResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

// Geocode resolves a free-text location query into zero or more candidates.
// The candidate list is returned as-is; disambiguation is the caller's job.
func (c *OpenWeatherClient) Geocode(ctx context.Context, query string, limit int) ([]types.GeocodeCandidate, error) {
	if limit <= 0 || limit > 5 {
		limit = 5
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", fmt.Sprintf("%d", limit))

	var raw []owmGeoResult
	if err := c.getJSON(ctx, c.geoURL+"/direct", q, basicTierEndpoint, &raw); err != nil {
		return nil, err
	}

	candidates := make([]types.GeocodeCandidate, 0, len(raw))
	for _, r := range raw {
		candidates = append(candidates, types.GeocodeCandidate{
			Name:    r.Name,
			State:   r.State,
			Country: r.Country,
			Lat:     r.Lat,
			Lon:     r.Lon,
		})
	}
	return candidates, nil
}

// --- Basic tier (data/2.5) ---

type owmCoord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type owmMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  int     `json:"pressure"`
	Humidity  int     `json:"humidity"`
}

type owmWind struct {
	Speed float64  `json:"speed"`
	Deg   *int     `json:"deg"`
	Gust  *float64 `json:"gust"`
}

type owmClouds struct {
	All int `json:"all"`
}

type owmPrecip struct {
	OneHour   *float64 `json:"1h"`
	ThreeHour *float64 `json:"3h"`
}

type owmSys struct {
	Country string `json:"country"`
	Sunrise *int64 `json:"sunrise"`
	Sunset  *int64 `json:"sunset"`
}

type owmCurrentResponse struct {
	Coord      owmCoord                 `json:"coord"`
	Weather    []types.WeatherCondition `json:"weather"`
	Main       owmMain                  `json:"main"`
	Visibility *int                     `json:"visibility"`
	Wind       owmWind                  `json:"wind"`
	Clouds     owmClouds                `json:"clouds"`
	Rain       *owmPrecip               `json:"rain"`
	Snow       *owmPrecip               `json:"snow"`
	Dt         int64                    `json:"dt"`
	Sys        owmSys                   `json:"sys"`
	Timezone   int                      `json:"timezone"`
	Name       string                   `json:"name"`
}

func (r *owmCurrentResponse) toDomain() *types.CurrentConditions {
	cc := &types.CurrentConditions{
		Coord:          types.Coordinates{Lat: r.Coord.Lat, Lon: r.Coord.Lon},
		Conditions:     r.Weather,
		Temp:           r.Main.Temp,
		FeelsLike:      r.Main.FeelsLike,
		TempMin:        r.Main.TempMin,
		TempMax:        r.Main.TempMax,
		Pressure:       r.Main.Pressure,
		Humidity:       r.Main.Humidity,
		Visibility:     r.Visibility,
		WindSpeed:      r.Wind.Speed,
		WindDeg:        r.Wind.Deg,
		WindGust:       r.Wind.Gust,
		CloudCover:     r.Clouds.All,
		ObservedAt:     r.Dt,
		Sunrise:        r.Sys.Sunrise,
		Sunset:         r.Sys.Sunset,
		TimezoneOffset: r.Timezone,
		City:           r.Name,
		Country:        r.Sys.Country,
	}
	if r.Rain != nil {
		cc.Rain = &types.Precipitation{OneHour: r.Rain.OneHour, ThreeHour: r.Rain.ThreeHour}
	}
	if r.Snow != nil {
		cc.Snow = &types.Precipitation{OneHour: r.Snow.OneHour, ThreeHour: r.Snow.ThreeHour}
	}
	return cc
}

// CurrentWeather fetches basic-tier current conditions by coordinates.
func (c *OpenWeatherClient) CurrentWeather(ctx context.Context, lat, lon float64) (*types.CurrentConditions, error) {
	q := coordValues(lat, lon)
	var raw owmCurrentResponse
	if err := c.getJSON(ctx, c.baseURL+"/weather", q, basicTierEndpoint, &raw); err != nil {
		return nil, err
	}
	return raw.toDomain(), nil
}

// CurrentByZip fetches basic-tier current conditions by ZIP/postal code.
// countryCode is optional; when present it is appended in "zip,CC" form.
func (c *OpenWeatherClient) CurrentByZip(ctx context.Context, zip, countryCode string) (*types.CurrentConditions, error) {
	q := url.Values{}
	if countryCode != "" {
		q.Set("zip", zip+","+countryCode)
	} else {
		q.Set("zip", zip)
	}
	var raw owmCurrentResponse
	if err := c.getJSON(ctx, c.baseURL+"/weather", q, basicTierEndpoint, &raw); err != nil {
		return nil, err
	}
	return raw.toDomain(), nil
}

type owmForecastItem struct {
	Dt      int64                    `json:"dt"`
	Main    owmMain                  `json:"main"`
	Weather []types.WeatherCondition `json:"weather"`
	Clouds  owmClouds                `json:"clouds"`
	Wind    owmWind                  `json:"wind"`
	POP     *float64                 `json:"pop"`
	Rain    *owmPrecip               `json:"rain"`
	Snow    *owmPrecip               `json:"snow"`
}

type owmForecastCity struct {
	Name     string   `json:"name"`
	Coord    owmCoord `json:"coord"`
	Country  string   `json:"country"`
	Timezone int      `json:"timezone"`
}

type owmForecastResponse struct {
	List []owmForecastItem `json:"list"`
	City owmForecastCity   `json:"city"`
}

// Forecast fetches the basic-tier 5-day forecast with 3-hour intervals.
// cnt limits the number of points when positive (provider maximum is 40).
func (c *OpenWeatherClient) Forecast(ctx context.Context, lat, lon float64, cnt int) (*types.BasicForecast, error) {
	q := coordValues(lat, lon)
	if cnt > 0 {
		q.Set("cnt", fmt.Sprintf("%d", cnt))
	}

	var raw owmForecastResponse
	if err := c.getJSON(ctx, c.baseURL+"/forecast", q, basicTierEndpoint, &raw); err != nil {
		return nil, err
	}

	points := make([]types.ForecastPoint, 0, len(raw.List))
	for _, item := range raw.List {
		p := types.ForecastPoint{
			At:            item.Dt,
			Temp:          item.Main.Temp,
			FeelsLike:     item.Main.FeelsLike,
			Pressure:      item.Main.Pressure,
			Humidity:      item.Main.Humidity,
			Conditions:    item.Weather,
			CloudCover:    item.Clouds.All,
			WindSpeed:     item.Wind.Speed,
			WindDeg:       item.Wind.Deg,
			Precipitation: item.POP,
		}
		if item.Rain != nil {
			p.Rain = &types.Precipitation{ThreeHour: item.Rain.ThreeHour}
		}
		if item.Snow != nil {
			p.Snow = &types.Precipitation{ThreeHour: item.Snow.ThreeHour}
		}
		points = append(points, p)
	}

	return &types.BasicForecast{
		City:           raw.City.Name,
		Country:        raw.City.Country,
		Coord:          types.Coordinates{Lat: raw.City.Coord.Lat, Lon: raw.City.Coord.Lon},
		TimezoneOffset: raw.City.Timezone,
		Points:         points,
	}, nil
}

type owmAirItem struct {
	Main struct {
		AQI int `json:"aqi"`
	} `json:"main"`
	Components types.AirComponents `json:"components"`
	Dt         int64               `json:"dt"`
}

type owmAirResponse struct {
	Coord owmCoord     `json:"coord"`
	List  []owmAirItem `json:"list"`
}

// AirPollution fetches the air quality index and pollutant concentrations.
func (c *OpenWeatherClient) AirPollution(ctx context.Context, lat, lon float64) (*types.AirQuality, error) {
	q := coordValues(lat, lon)
	var raw owmAirResponse
	if err := c.getJSON(ctx, c.baseURL+"/air_pollution", q, basicTierEndpoint, &raw); err != nil {
		return nil, err
	}

	readings := make([]types.AirQualityReading, 0, len(raw.List))
	for _, item := range raw.List {
		readings = append(readings, types.AirQualityReading{
			AQI:        item.Main.AQI,
			Components: item.Components,
			At:         item.Dt,
		})
	}
	return &types.AirQuality{
		Coord:    types.Coordinates{Lat: raw.Coord.Lat, Lon: raw.Coord.Lon},
		Readings: readings,
	}, nil
}

type owmUVResponse struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	DateISO string  `json:"date_iso"`
	Date    int64   `json:"date"`
	Value   float64 `json:"value"`
}

// UVIndex fetches the current UV index for a coordinate pair.
func (c *OpenWeatherClient) UVIndex(ctx context.Context, lat, lon float64) (*types.UVReading, error) {
	q := coordValues(lat, lon)
	var raw owmUVResponse
	if err := c.getJSON(ctx, c.baseURL+"/uvi", q, basicTierEndpoint, &raw); err != nil {
		return nil, err
	}
	return &types.UVReading{
		Coord:   types.Coordinates{Lat: raw.Lat, Lon: raw.Lon},
		Date:    raw.Date,
		DateISO: raw.DateISO,
		Value:   raw.Value,
	}, nil
}

// --- Rich tier (data/3.0 One Call) ---

type owmOneCallWeatherBlock struct {
	Dt         int64                    `json:"dt"`
	Temp       float64                  `json:"temp"`
	FeelsLike  float64                  `json:"feels_like"`
	Pressure   int                      `json:"pressure"`
	Humidity   int                      `json:"humidity"`
	DewPoint   float64                  `json:"dew_point"`
	UVI        float64                  `json:"uvi"`
	Clouds     int                      `json:"clouds"`
	Visibility *int                     `json:"visibility"`
	WindSpeed  float64                  `json:"wind_speed"`
	WindDeg    *int                     `json:"wind_deg"`
	WindGust   *float64                 `json:"wind_gust"`
	Weather    []types.WeatherCondition `json:"weather"`
	POP        float64                  `json:"pop"`
}

func (b *owmOneCallWeatherBlock) toObservation() types.RichObservation {
	return types.RichObservation{
		At:         b.Dt,
		Temp:       b.Temp,
		FeelsLike:  b.FeelsLike,
		Pressure:   b.Pressure,
		Humidity:   b.Humidity,
		DewPoint:   b.DewPoint,
		UVIndex:    b.UVI,
		CloudCover: b.Clouds,
		Visibility: b.Visibility,
		WindSpeed:  b.WindSpeed,
		WindDeg:    b.WindDeg,
		WindGust:   b.WindGust,
		Conditions: b.Weather,
	}
}

type owmDailyTemp struct {
	Day   float64 `json:"day"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Night float64 `json:"night"`
}

type owmDailyItem struct {
	Dt        int64                    `json:"dt"`
	Sunrise   int64                    `json:"sunrise"`
	Sunset    int64                    `json:"sunset"`
	Temp      owmDailyTemp             `json:"temp"`
	Pressure  int                      `json:"pressure"`
	Humidity  int                      `json:"humidity"`
	UVI       float64                  `json:"uvi"`
	Clouds    int                      `json:"clouds"`
	WindSpeed float64                  `json:"wind_speed"`
	Weather   []types.WeatherCondition `json:"weather"`
	POP       float64                  `json:"pop"`
}

type owmOneCallResponse struct {
	Lat            float64                  `json:"lat"`
	Lon            float64                  `json:"lon"`
	Timezone       string                   `json:"timezone"`
	TimezoneOffset int                      `json:"timezone_offset"`
	Current        *owmOneCallWeatherBlock  `json:"current"`
	Hourly         []owmOneCallWeatherBlock `json:"hourly"`
	Daily          []owmDailyItem           `json:"daily"`
	Alerts         []types.Alert            `json:"alerts"`
	Data           []owmOneCallWeatherBlock `json:"data"` // timemachine responses
}

func (r *owmOneCallResponse) toDomain() *types.RichPayload {
	p := &types.RichPayload{
		Coord:          types.Coordinates{Lat: r.Lat, Lon: r.Lon},
		Timezone:       r.Timezone,
		TimezoneOffset: r.TimezoneOffset,
		Alerts:         r.Alerts,
	}
	if r.Current != nil {
		obs := r.Current.toObservation()
		p.Current = &obs
	}
	for i := range r.Hourly {
		h := &r.Hourly[i]
		p.Hourly = append(p.Hourly, types.HourlyPoint{
			At:         h.Dt,
			Temp:       h.Temp,
			FeelsLike:  h.FeelsLike,
			Pressure:   h.Pressure,
			Humidity:   h.Humidity,
			UVIndex:    h.UVI,
			CloudCover: h.Clouds,
			WindSpeed:  h.WindSpeed,
			WindDeg:    h.WindDeg,
			Conditions: h.Weather,
			POP:        h.POP,
		})
	}
	for _, d := range r.Daily {
		p.Daily = append(p.Daily, types.DailyPoint{
			At:         d.Dt,
			Sunrise:    d.Sunrise,
			Sunset:     d.Sunset,
			TempDay:    d.Temp.Day,
			TempMin:    d.Temp.Min,
			TempMax:    d.Temp.Max,
			TempNight:  d.Temp.Night,
			Pressure:   d.Pressure,
			Humidity:   d.Humidity,
			UVIndex:    d.UVI,
			CloudCover: d.Clouds,
			WindSpeed:  d.WindSpeed,
			Conditions: d.Weather,
			POP:        d.POP,
		})
	}
	for i := range r.Data {
		p.History = append(p.History, r.Data[i].toObservation())
	}
	return p
}

// OneCall fetches the subscription-tier comprehensive payload. exclude lists
// the One Call blocks to omit (current, minutely, hourly, daily, alerts).
// Authorization failures map to the entitlement error code.
func (c *OpenWeatherClient) OneCall(ctx context.Context, lat, lon float64, exclude string) (*types.RichPayload, error) {
	q := coordValues(lat, lon)
	if exclude != "" {
		q.Set("exclude", exclude)
	}
	var raw owmOneCallResponse
	if err := c.getJSON(ctx, c.oneCallURL+"/onecall", q, richTierEndpoint, &raw); err != nil {
		return nil, err
	}
	return raw.toDomain(), nil
}

// Timemachine fetches historical observations for a unix timestamp within the
// provider's 5-day lookback window. Rich tier only.
func (c *OpenWeatherClient) Timemachine(ctx context.Context, lat, lon float64, at int64) (*types.RichPayload, error) {
	q := coordValues(lat, lon)
	q.Set("dt", fmt.Sprintf("%d", at))
	var raw owmOneCallResponse
	if err := c.getJSON(ctx, c.oneCallURL+"/onecall/timemachine", q, richTierEndpoint, &raw); err != nil {
		return nil, err
	}
	return raw.toDomain(), nil
}

// --- Map tiles ---

// TileURL builds the weather map tile URL for the given layer and tile
// coordinates. The URL embeds the API key, so it is never returned to
// clients; FetchTile proxies the image instead.
func (c *OpenWeatherClient) TileURL(layer string, z, x, y int) string {
	return fmt.Sprintf("%s/%s/%d/%d/%d.png?appid=%s", c.tileURL, layer, z, x, y, c.apiKey.Unmask())
}

// FetchTile retrieves one weather map tile image. It returns the raw image
// bytes and the upstream content type.
func (c *OpenWeatherClient) FetchTile(ctx context.Context, layer string, z, x, y int) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.TileURL(layer, z, x, y), nil)
	if err != nil {
		return nil, "", types.NewAppError(types.ErrCodeInternalUnexpected, "building upstream request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		return nil, "", c.mapStatusError(resp.StatusCode, body, basicTierEndpoint)
	}

	img, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, "", types.NewAppError(types.ErrCodeUpstreamUnavailable, "reading upstream tile", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return img, contentType, nil
}

func coordValues(lat, lon float64) url.Values {
	q := url.Values{}
	q.Set("lat", strconvFloat(lat))
	q.Set("lon", strconvFloat(lon))
	return q
}

func strconvFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
