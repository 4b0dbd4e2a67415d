package types

import (
	"strconv"
	"strings"
	"time"
)

// Units selects the measurement system applied to returned payloads.
// Conversion covers temperature and wind speed only; pressure and visibility
// are reported as received from the provider.
type Units string

const (
	UnitsStandard Units = "standard" // Kelvin, metres/sec
	UnitsMetric   Units = "metric"   // Celsius, metres/sec
	UnitsImperial Units = "imperial" // Fahrenheit, miles/hour
)

// ParseUnits validates a units query value. An empty string defaults to metric.
func ParseUnits(s string) (Units, error) {
	switch Units(strings.ToLower(s)) {
	case "":
		return UnitsMetric, nil
	case UnitsStandard:
		return UnitsStandard, nil
	case UnitsMetric:
		return UnitsMetric, nil
	case UnitsImperial:
		return UnitsImperial, nil
	}
	return "", NewAppErrorWithDetails(
		ErrCodeValidationInvalidUnits,
		"units must be one of: standard, metric, imperial",
		nil,
		map[string]any{"units": s},
	)
}

// DataShape identifies the conceptual payload a caller is asking the tier
// resolver for. It determines which rich-tier fields are requested and whether
// a basic-tier fallback exists.
type DataShape string

const (
	ShapeCurrent    DataShape = "current"
	ShapeForecast   DataShape = "forecast"
	ShapeAlerts     DataShape = "alerts"
	ShapeHistorical DataShape = "historical"
)

// HasBasicEquivalent reports whether the shape can be served by the basic tier.
// Alerts and historical lookups exist only behind the rich subscription.
func (s DataShape) HasBasicEquivalent() bool {
	return s == ShapeCurrent || s == ShapeForecast
}

// TierSource tags a TieredResult with the data tier that produced it.
type TierSource string

const (
	TierRich        TierSource = "rich"
	TierBasic       TierSource = "basic"
	TierUnavailable TierSource = "unavailable"
)

// Coordinates is a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that the coordinates are within the valid geographic range.
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return NewAppErrorWithDetails(
			ErrCodeValidationInvalidLat,
			"latitude must be between -90 and 90",
			nil,
			map[string]any{"lat": c.Lat},
		)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return NewAppErrorWithDetails(
			ErrCodeValidationInvalidLon,
			"longitude must be between -180 and 180",
			nil,
			map[string]any{"lon": c.Lon},
		)
	}
	return nil
}

// Location is the caller-supplied target of a weather request: a free-text
// query, a coordinate pair, or both. Coordinates, when present, take precedence
// and bypass text resolution entirely.
type Location struct {
	Query  string       `json:"query,omitempty"`
	Coords *Coordinates `json:"coords,omitempty"`
}

// HasCoords reports whether an explicit coordinate pair was supplied.
func (l Location) HasCoords() bool {
	return l.Coords != nil
}

// Validate checks that at least one representation is present and that any
// coordinates are in range.
func (l Location) Validate() error {
	if l.Coords == nil && strings.TrimSpace(l.Query) == "" {
		return NewAppError(
			ErrCodeValidationMissingTarget,
			"either a location query or a lat/lon pair is required",
			nil,
		)
	}
	if l.Coords != nil {
		return l.Coords.Validate()
	}
	return nil
}

// GeocodeCandidate is one possible resolution of a free-text location query.
// When more than one candidate is returned, the caller must choose; the
// service never auto-selects among ambiguous matches.
type GeocodeCandidate struct {
	Name    string  `json:"name"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// WeatherCondition describes one observed or forecast weather condition group.
type WeatherCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Precipitation carries rain or snow accumulation volumes in millimetres.
type Precipitation struct {
	OneHour   *float64 `json:"1h,omitempty"`
	ThreeHour *float64 `json:"3h,omitempty"`
}

// CurrentConditions is the basic-tier current weather observation.
type CurrentConditions struct {
	Coord          Coordinates        `json:"coord"`
	Conditions     []WeatherCondition `json:"weather"`
	Temp           float64            `json:"temp"`
	FeelsLike      float64            `json:"feels_like"`
	TempMin        float64            `json:"temp_min"`
	TempMax        float64            `json:"temp_max"`
	Pressure       int                `json:"pressure"`
	Humidity       int                `json:"humidity"`
	Visibility     *int               `json:"visibility,omitempty"`
	WindSpeed      float64            `json:"wind_speed"`
	WindDeg        *int               `json:"wind_deg,omitempty"`
	WindGust       *float64           `json:"wind_gust,omitempty"`
	CloudCover     int                `json:"cloud_cover"`
	Rain           *Precipitation     `json:"rain,omitempty"`
	Snow           *Precipitation     `json:"snow,omitempty"`
	ObservedAt     int64              `json:"observed_at"`
	Sunrise        *int64             `json:"sunrise,omitempty"`
	Sunset         *int64             `json:"sunset,omitempty"`
	TimezoneOffset int                `json:"timezone_offset"`
	City           string             `json:"city,omitempty"`
	Country        string             `json:"country,omitempty"`
}

// ForecastPoint is one 3-hour-interval entry of the basic 5-day forecast.
type ForecastPoint struct {
	At            int64              `json:"at"`
	Temp          float64            `json:"temp"`
	FeelsLike     float64            `json:"feels_like"`
	Pressure      int                `json:"pressure"`
	Humidity      int                `json:"humidity"`
	Conditions    []WeatherCondition `json:"weather"`
	CloudCover    int                `json:"cloud_cover"`
	WindSpeed     float64            `json:"wind_speed"`
	WindDeg       *int               `json:"wind_deg,omitempty"`
	Precipitation *float64           `json:"precipitation_probability,omitempty"`
	Rain          *Precipitation     `json:"rain,omitempty"`
	Snow          *Precipitation     `json:"snow,omitempty"`
}

// BasicForecast is the basic-tier 5-day forecast: fixed 3-hour-interval points.
type BasicForecast struct {
	City           string          `json:"city,omitempty"`
	Country        string          `json:"country,omitempty"`
	Coord          Coordinates     `json:"coord"`
	TimezoneOffset int             `json:"timezone_offset"`
	Points         []ForecastPoint `json:"points"`
}

// RichObservation is the current-conditions block of a rich-tier payload.
type RichObservation struct {
	At         int64              `json:"at"`
	Temp       float64            `json:"temp"`
	FeelsLike  float64            `json:"feels_like"`
	Pressure   int                `json:"pressure"`
	Humidity   int                `json:"humidity"`
	DewPoint   float64            `json:"dew_point"`
	UVIndex    float64            `json:"uvi"`
	CloudCover int                `json:"cloud_cover"`
	Visibility *int               `json:"visibility,omitempty"`
	WindSpeed  float64            `json:"wind_speed"`
	WindDeg    *int               `json:"wind_deg,omitempty"`
	WindGust   *float64           `json:"wind_gust,omitempty"`
	Conditions []WeatherCondition `json:"weather"`
}

// HourlyPoint is one hour of the rich-tier hourly forecast.
type HourlyPoint struct {
	At         int64              `json:"at"`
	Temp       float64            `json:"temp"`
	FeelsLike  float64            `json:"feels_like"`
	Pressure   int                `json:"pressure"`
	Humidity   int                `json:"humidity"`
	UVIndex    float64            `json:"uvi"`
	CloudCover int                `json:"cloud_cover"`
	WindSpeed  float64            `json:"wind_speed"`
	WindDeg    *int               `json:"wind_deg,omitempty"`
	Conditions []WeatherCondition `json:"weather"`
	POP        float64            `json:"pop"`
}

// DailyPoint is one day of the rich-tier daily forecast.
type DailyPoint struct {
	At         int64              `json:"at"`
	Sunrise    int64              `json:"sunrise"`
	Sunset     int64              `json:"sunset"`
	TempDay    float64            `json:"temp_day"`
	TempMin    float64            `json:"temp_min"`
	TempMax    float64            `json:"temp_max"`
	TempNight  float64            `json:"temp_night"`
	Pressure   int                `json:"pressure"`
	Humidity   int                `json:"humidity"`
	UVIndex    float64            `json:"uvi"`
	CloudCover int                `json:"cloud_cover"`
	WindSpeed  float64            `json:"wind_speed"`
	Conditions []WeatherCondition `json:"weather"`
	POP        float64            `json:"pop"`
}

// Alert is a severe weather alert from the rich tier.
type Alert struct {
	Sender      string   `json:"sender_name"`
	Event       string   `json:"event"`
	Start       int64    `json:"start"`
	End         int64    `json:"end"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// RichPayload is the subscription-tier payload: hourly/daily breakdowns and
// alerts in addition to current conditions.
type RichPayload struct {
	Coord          Coordinates       `json:"coord"`
	Timezone       string            `json:"timezone"`
	TimezoneOffset int               `json:"timezone_offset"`
	Current        *RichObservation  `json:"current,omitempty"`
	Hourly         []HourlyPoint     `json:"hourly,omitempty"`
	Daily          []DailyPoint      `json:"daily,omitempty"`
	Alerts         []Alert           `json:"alerts,omitempty"`
	History        []RichObservation `json:"history,omitempty"`
}

// BasicPayload is the default-access payload: current conditions and/or
// coarse 3-hour-interval forecast points only.
type BasicPayload struct {
	Current  *CurrentConditions `json:"current,omitempty"`
	Forecast *BasicForecast     `json:"forecast,omitempty"`
}

// TieredResult is a payload tagged with the tier that served it. Callers must
// branch on Source, never on payload shape. Rich and basic payloads are never
// mixed in one result. When Source is TierUnavailable, both payloads are nil
// and Note/Reference explain what entitlement is missing.
type TieredResult struct {
	Source    TierSource    `json:"source"`
	Units     Units         `json:"units"`
	Note      string        `json:"note,omitempty"`
	Reference string        `json:"reference,omitempty"`
	Rich      *RichPayload  `json:"rich,omitempty"`
	Basic     *BasicPayload `json:"basic,omitempty"`
}

// AirComponents holds pollutant concentrations in micrograms per cubic metre.
type AirComponents struct {
	CO   float64 `json:"co"`
	NO   float64 `json:"no"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	SO2  float64 `json:"so2"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
	NH3  float64 `json:"nh3"`
}

// AirQualityReading is one timestamped AQI measurement with its components.
// AQI uses the provider's 1 (good) to 5 (very poor) scale.
type AirQualityReading struct {
	AQI        int           `json:"aqi"`
	Components AirComponents `json:"components"`
	At         int64         `json:"at"`
}

// AirQuality is the air pollution payload for a coordinate pair.
type AirQuality struct {
	Coord    Coordinates         `json:"coord"`
	Readings []AirQualityReading `json:"readings"`
}

// UVReading is the current UV index for a coordinate pair.
type UVReading struct {
	Coord   Coordinates `json:"coord"`
	Date    int64       `json:"date"`
	DateISO string      `json:"date_iso"`
	Value   float64     `json:"value"`
}

// SolarProfile is the output of the solar radiation estimator. Peak sun hours
// equal the average daily energy density under the 1000 W/m2 reference
// convention.
type SolarProfile struct {
	Coordinates      Coordinates        `json:"coordinates"`
	AvgDailyKWhM2    float64            `json:"avg_daily_kwh_m2"`
	PeakSunHours     float64            `json:"peak_sun_hours"`
	MonthlyAverages  map[string]float64 `json:"monthly_averages"`
	CloudCoverFactor float64            `json:"cloud_cover_factor"`
	UVFactor         float64            `json:"uv_factor"`
	Source           string             `json:"source"`
}

// TileRef describes one weather map tile and the URL to fetch it from.
type TileRef struct {
	Layer string `json:"layer"`
	Zoom  int    `json:"zoom"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	URL   string `json:"tile_url"`
}

// monthNames maps lowercase English month names to their calendar month.
var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// ParseMonth resolves a lowercase month name ("june") or a 1-12 numeral into a
// calendar month.
func ParseMonth(s string) (time.Month, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if m, ok := monthNames[name]; ok {
		return m, nil
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 && n <= 12 {
		return time.Month(n), nil
	}
	return 0, NewAppErrorWithDetails(
		ErrCodeValidationInvalidMonth,
		"month must be a calendar month name or a number from 1 to 12",
		nil,
		map[string]any{"month": s},
	)
}

// MonthName returns the lowercase English name of a calendar month.
func MonthName(m time.Month) string {
	return strings.ToLower(m.String())
}
