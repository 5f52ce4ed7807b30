package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// CompassDirection maps a wind bearing in degrees to an 8-point compass label.
func CompassDirection(deg float64) string {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	idx := int(math.Round(deg/45)) % 8
	return compassPoints[idx]
}

var aqiLabels = map[int]string{
	1: "Good",
	2: "Fair",
	3: "Moderate",
	4: "Poor",
	5: "Very Poor",
}

// AQILabel names an OpenWeatherMap air quality index (1-5).
func AQILabel(index int) string {
	if l, ok := aqiLabels[index]; ok {
		return l
	}
	return "Unknown"
}

func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good Morning"
	case h < 18:
		return "Good Afternoon"
	default:
		return "Good Evening"
	}
}

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// ParseCoordinates parses "lat,lon".
func ParseCoordinates(s string) (Coordinates, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinates{}, fmt.Errorf("%w: want \"lat,lon\", got %q", ErrInvalidCoordinates, s)
	}
	return ParseLatLon(parts[0], parts[1])
}

// ParseLatLon parses and range-checks a latitude and longitude pair.
func ParseLatLon(lat, lon string) (Coordinates, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinates, lat)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinates, lon)
	}
	c := Coordinates{Lat: la, Lon: lo}
	if err := c.Validate(); err != nil {
		return Coordinates{}, err
	}
	return c, nil
}

func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinates, c.Lat)
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinates, c.Lon)
	}
	return nil
}

func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}
