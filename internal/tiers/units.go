package tiers

import "skycast/internal/types"

// The provider is always queried in standard units (Kelvin, metres/sec) so
// that tier fallback never mixes unit systems mid-flight. Conversion to the
// caller's requested system happens here, in one place, covering temperature
// and wind speed. Pressure (hPa) and visibility (metres) pass through as-is.

const (
	kelvinOffset       = 273.15
	metersSecToMilesHr = 2.23694
)

func convertTemp(kelvin float64, units types.Units) float64 {
	switch units {
	case types.UnitsMetric:
		return kelvin - kelvinOffset
	case types.UnitsImperial:
		return (kelvin-kelvinOffset)*9/5 + 32
	default:
		return kelvin
	}
}

func convertWind(metersSec float64, units types.Units) float64 {
	if units == types.UnitsImperial {
		return metersSec * metersSecToMilesHr
	}
	return metersSec
}

func convertTempPtr(p *float64, units types.Units) {
	if p != nil {
		*p = convertTemp(*p, units)
	}
}

func convertWindPtr(p *float64, units types.Units) {
	if p != nil {
		*p = convertWind(*p, units)
	}
}

func convertObservation(o *types.RichObservation, units types.Units) {
	o.Temp = convertTemp(o.Temp, units)
	o.FeelsLike = convertTemp(o.FeelsLike, units)
	o.DewPoint = convertTemp(o.DewPoint, units)
	o.WindSpeed = convertWind(o.WindSpeed, units)
	convertWindPtr(o.WindGust, units)
}

func convertRichPayload(p *types.RichPayload, units types.Units) {
	if p == nil || units == types.UnitsStandard {
		return
	}
	if p.Current != nil {
		convertObservation(p.Current, units)
	}
	for i := range p.Hourly {
		h := &p.Hourly[i]
		h.Temp = convertTemp(h.Temp, units)
		h.FeelsLike = convertTemp(h.FeelsLike, units)
		h.WindSpeed = convertWind(h.WindSpeed, units)
	}
	for i := range p.Daily {
		d := &p.Daily[i]
		d.TempDay = convertTemp(d.TempDay, units)
		d.TempMin = convertTemp(d.TempMin, units)
		d.TempMax = convertTemp(d.TempMax, units)
		d.TempNight = convertTemp(d.TempNight, units)
		d.WindSpeed = convertWind(d.WindSpeed, units)
	}
	for i := range p.History {
		convertObservation(&p.History[i], units)
	}
}

// ConvertBasic converts a basic payload in standard units to the requested
// system. Exposed for callers that fetch basic-tier data outside the resolver
// (ZIP lookups).
func ConvertBasic(p *types.BasicPayload, units types.Units) {
	if p == nil || units == types.UnitsStandard {
		return
	}
	if c := p.Current; c != nil {
		c.Temp = convertTemp(c.Temp, units)
		c.FeelsLike = convertTemp(c.FeelsLike, units)
		c.TempMin = convertTemp(c.TempMin, units)
		c.TempMax = convertTemp(c.TempMax, units)
		c.WindSpeed = convertWind(c.WindSpeed, units)
		convertWindPtr(c.WindGust, units)
	}
	if f := p.Forecast; f != nil {
		for i := range f.Points {
			pt := &f.Points[i]
			pt.Temp = convertTemp(pt.Temp, units)
			pt.FeelsLike = convertTemp(pt.FeelsLike, units)
			pt.WindSpeed = convertWind(pt.WindSpeed, units)
		}
	}
}
