package model

// Wire types for the OpenWeatherMap products the gateway calls.

type OWMCoord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type OWMCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type OWMMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  int     `json:"pressure"`
	Humidity  int     `json:"humidity"`
	SeaLevel  int     `json:"sea_level"`
	GrndLevel int     `json:"grnd_level"`
}

type OWMWind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
	Gust  float64 `json:"gust"`
}

type OWMClouds struct {
	All int `json:"all"`
}

// OpenWeatherMapResponse is the /data/2.5/weather payload.
type OpenWeatherMapResponse struct {
	Coord      OWMCoord       `json:"coord"`
	Weather    []OWMCondition `json:"weather"`
	Main       OWMMain        `json:"main"`
	Visibility int            `json:"visibility"`
	Wind       OWMWind        `json:"wind"`
	Clouds     OWMClouds      `json:"clouds"`
	Dt         int64          `json:"dt"`
	Sys        struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Timezone int    `json:"timezone"`
	Name     string `json:"name"`
}

// OpenWeatherMapForecastResponse is the /data/2.5/forecast payload (5 days, 3-hour steps).
type OpenWeatherMapForecastResponse struct {
	Cnt  int `json:"cnt"`
	List []struct {
		Dt         int64          `json:"dt"`
		Main       OWMMain        `json:"main"`
		Weather    []OWMCondition `json:"weather"`
		Clouds     OWMClouds      `json:"clouds"`
		Wind       OWMWind        `json:"wind"`
		Visibility int            `json:"visibility"`
		Pop        float64        `json:"pop"`
	} `json:"list"`
	City struct {
		Name    string   `json:"name"`
		Coord   OWMCoord `json:"coord"`
		Country string   `json:"country"`
	} `json:"city"`
}

// OpenWeatherMapOneCallResponse is the daily part of the /data/3.0/onecall payload.
type OpenWeatherMapOneCallResponse struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone"`
	Daily    []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Day float64 `json:"day"`
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"temp"`
		FeelsLike struct {
			Day float64 `json:"day"`
		} `json:"feels_like"`
		Pressure  int            `json:"pressure"`
		Humidity  int            `json:"humidity"`
		WindSpeed float64        `json:"wind_speed"`
		WindDeg   float64        `json:"wind_deg"`
		Weather   []OWMCondition `json:"weather"`
		Clouds    int            `json:"clouds"`
		Pop       float64        `json:"pop"`
	} `json:"daily"`
}

// OpenWeatherMapGeoResult is one element of the /geo/1.0/direct array.
type OpenWeatherMapGeoResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

// OpenWeatherMapAirPollutionResponse is the /data/2.5/air_pollution payload.
type OpenWeatherMapAirPollutionResponse struct {
	Coord OWMCoord `json:"coord"`
	List  []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components struct {
			CO   float64 `json:"co"`
			NO   float64 `json:"no"`
			NO2  float64 `json:"no2"`
			O3   float64 `json:"o3"`
			SO2  float64 `json:"so2"`
			PM25 float64 `json:"pm2_5"`
			PM10 float64 `json:"pm10"`
			NH3  float64 `json:"nh3"`
		} `json:"components"`
		Dt int64 `json:"dt"`
	} `json:"list"`
}

// OpenWeatherMapError is the body OpenWeatherMap sends with non-200 statuses.
// cod is a string on some products and a number on others.
type OpenWeatherMapError struct {
	Cod     interface{} `json:"cod"`
	Message string      `json:"message"`
}
