package model

import (
	"math"
	"time"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Condition is one weather condition descriptor.
type Condition struct {
	ID          int    `json:"id"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// IconURL returns the OpenWeatherMap icon image for the condition. size is "2x", "4x" or empty.
func (c Condition) IconURL(size string) string {
	if c.Icon == "" {
		return ""
	}
	if size == "" {
		return "https://openweathermap.org/img/wn/" + c.Icon + ".png"
	}
	return "https://openweathermap.org/img/wn/" + c.Icon + "@" + size + ".png"
}

// WeatherSnapshot is a point-in-time reading for one location. It is never mutated after it is
// built; a newer fetch replaces it.
type WeatherSnapshot struct {
	City          string      `json:"city"`
	Country       string      `json:"country"`
	Coordinates   Coordinates `json:"coordinates"`
	ObservedAt    time.Time   `json:"observed_at"`
	Temperature   float64     `json:"temperature"`
	FeelsLike     float64     `json:"feels_like"`
	TempMin       float64     `json:"temp_min"`
	TempMax       float64     `json:"temp_max"`
	Humidity      int         `json:"humidity"`
	Pressure      int         `json:"pressure"`
	Visibility    int         `json:"visibility"`
	Clouds        int         `json:"clouds"`
	WindSpeed     float64     `json:"wind_speed"`
	WindDeg       float64     `json:"wind_deg"`
	WindDirection string      `json:"wind_direction"`
	Sunrise       time.Time   `json:"sunrise"`
	Sunset        time.Time   `json:"sunset"`
	Conditions    []Condition `json:"conditions"`
	Cached        bool        `json:"cached"`
}

// Primary returns the first condition, or the zero Condition when there is none.
func (w WeatherSnapshot) Primary() Condition {
	if len(w.Conditions) == 0 {
		return Condition{}
	}
	return w.Conditions[0]
}

func (w WeatherSnapshot) RoundedTemperature() int {
	return int(math.Round(w.Temperature))
}

func (w WeatherSnapshot) RoundedFeelsLike() int {
	return int(math.Round(w.FeelsLike))
}

// ForecastPoint is one forecast slot, hourly or daily.
type ForecastPoint struct {
	Time          time.Time   `json:"time"`
	Temperature   float64     `json:"temperature"`
	FeelsLike     float64     `json:"feels_like"`
	TempMin       float64     `json:"temp_min"`
	TempMax       float64     `json:"temp_max"`
	Humidity      int         `json:"humidity"`
	Pressure      int         `json:"pressure"`
	WindSpeed     float64     `json:"wind_speed"`
	WindDeg       float64     `json:"wind_deg"`
	WindDirection string      `json:"wind_direction"`
	PrecipChance  float64     `json:"precipitation_probability"`
	Clouds        int         `json:"clouds"`
	Conditions    []Condition `json:"conditions"`
}

func (p ForecastPoint) RoundedTemperature() int {
	return int(math.Round(p.Temperature))
}

type ForecastKind string

const (
	ForecastHourly ForecastKind = "hourly"
	ForecastDaily  ForecastKind = "daily"
)

// Limits of the two forecast products.
const (
	MaxHourlyPoints = 40
	MaxDailyPoints  = 7
)

// Forecast is an ordered, finite sequence of forecast points for one location.
type Forecast struct {
	City        string          `json:"city"`
	Country     string          `json:"country"`
	Coordinates Coordinates     `json:"coordinates"`
	Kind        ForecastKind    `json:"kind"`
	Points      []ForecastPoint `json:"points"`
}

// AirQualitySample is the air pollution reading at a coordinate pair.
type AirQualitySample struct {
	Coordinates Coordinates `json:"coordinates"`
	Index       int         `json:"aqi"`
	Label       string      `json:"label"`
	PM25        float64     `json:"pm2_5"`
	PM10        float64     `json:"pm10"`
	NO2         float64     `json:"no2"`
	O3          float64     `json:"o3"`
	MeasuredAt  time.Time   `json:"measured_at"`
}

// Conditions is current weather shown together with the air quality at the same place.
type Conditions struct {
	Weather    WeatherSnapshot  `json:"weather"`
	AirQuality AirQualitySample `json:"air_quality"`
}

// Location is a geocoding match.
type Location struct {
	Name        string      `json:"name"`
	Country     string      `json:"country"`
	State       string      `json:"state,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
}

// MapPin is a searched place and the weather at it.
type MapPin struct {
	Location Location        `json:"location"`
	Weather  WeatherSnapshot `json:"weather"`
}

// Dashboard is the home page: a greeting and the weather in the first favorite cities.
type Dashboard struct {
	Greeting  string            `json:"greeting"`
	Favorites []WeatherSnapshot `json:"favorites"`
}
