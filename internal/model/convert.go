package model

import "time"

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func conditions(in []OWMCondition) []Condition {
	out := make([]Condition, 0, len(in))
	for _, c := range in {
		out = append(out, Condition{
			ID:          c.ID,
			Category:    c.Main,
			Description: c.Description,
			Icon:        c.Icon,
		})
	}
	return out
}

// Snapshot maps a current weather payload to a WeatherSnapshot.
func (r OpenWeatherMapResponse) Snapshot() WeatherSnapshot {
	return WeatherSnapshot{
		City:          r.Name,
		Country:       r.Sys.Country,
		Coordinates:   Coordinates{Lat: r.Coord.Lat, Lon: r.Coord.Lon},
		ObservedAt:    unixOrZero(r.Dt),
		Temperature:   r.Main.Temp,
		FeelsLike:     r.Main.FeelsLike,
		TempMin:       r.Main.TempMin,
		TempMax:       r.Main.TempMax,
		Humidity:      r.Main.Humidity,
		Pressure:      r.Main.Pressure,
		Visibility:    r.Visibility,
		Clouds:        r.Clouds.All,
		WindSpeed:     r.Wind.Speed,
		WindDeg:       r.Wind.Deg,
		WindDirection: CompassDirection(r.Wind.Deg),
		Sunrise:       unixOrZero(r.Sys.Sunrise),
		Sunset:        unixOrZero(r.Sys.Sunset),
		Conditions:    conditions(r.Weather),
	}
}

// Forecast maps the 5-day/3-hour payload to an hourly Forecast.
func (r OpenWeatherMapForecastResponse) Forecast() Forecast {
	n := len(r.List)
	if n > MaxHourlyPoints {
		n = MaxHourlyPoints
	}
	points := make([]ForecastPoint, 0, n)
	for _, item := range r.List[:n] {
		points = append(points, ForecastPoint{
			Time:          unixOrZero(item.Dt),
			Temperature:   item.Main.Temp,
			FeelsLike:     item.Main.FeelsLike,
			TempMin:       item.Main.TempMin,
			TempMax:       item.Main.TempMax,
			Humidity:      item.Main.Humidity,
			Pressure:      item.Main.Pressure,
			WindSpeed:     item.Wind.Speed,
			WindDeg:       item.Wind.Deg,
			WindDirection: CompassDirection(item.Wind.Deg),
			PrecipChance:  item.Pop,
			Clouds:        item.Clouds.All,
			Conditions:    conditions(item.Weather),
		})
	}
	return Forecast{
		City:        r.City.Name,
		Country:     r.City.Country,
		Coordinates: Coordinates{Lat: r.City.Coord.Lat, Lon: r.City.Coord.Lon},
		Kind:        ForecastHourly,
		Points:      points,
	}
}

// Forecast maps the daily part of a One Call payload to a daily Forecast without a place name.
func (r OpenWeatherMapOneCallResponse) Forecast() Forecast {
	n := len(r.Daily)
	if n > MaxDailyPoints {
		n = MaxDailyPoints
	}
	points := make([]ForecastPoint, 0, n)
	for _, d := range r.Daily[:n] {
		points = append(points, ForecastPoint{
			Time:          unixOrZero(d.Dt),
			Temperature:   d.Temp.Day,
			FeelsLike:     d.FeelsLike.Day,
			TempMin:       d.Temp.Min,
			TempMax:       d.Temp.Max,
			Humidity:      d.Humidity,
			Pressure:      d.Pressure,
			WindSpeed:     d.WindSpeed,
			WindDeg:       d.WindDeg,
			WindDirection: CompassDirection(d.WindDeg),
			PrecipChance:  d.Pop,
			Clouds:        d.Clouds,
			Conditions:    conditions(d.Weather),
		})
	}
	return Forecast{
		Coordinates: Coordinates{Lat: r.Lat, Lon: r.Lon},
		Kind:        ForecastDaily,
		Points:      points,
	}
}

func (g OpenWeatherMapGeoResult) Location() Location {
	return Location{
		Name:        g.Name,
		Country:     g.Country,
		State:       g.State,
		Coordinates: Coordinates{Lat: g.Lat, Lon: g.Lon},
	}
}

// Sample maps the first air pollution entry. ok is false when the payload has no entries.
func (r OpenWeatherMapAirPollutionResponse) Sample() (sample AirQualitySample, ok bool) {
	if len(r.List) == 0 {
		return AirQualitySample{}, false
	}
	e := r.List[0]
	return AirQualitySample{
		Coordinates: Coordinates{Lat: r.Coord.Lat, Lon: r.Coord.Lon},
		Index:       e.Main.AQI,
		Label:       AQILabel(e.Main.AQI),
		PM25:        e.Components.PM25,
		PM10:        e.Components.PM10,
		NO2:         e.Components.NO2,
		O3:          e.Components.O3,
		MeasuredAt:  unixOrZero(e.Dt),
	}, true
}
