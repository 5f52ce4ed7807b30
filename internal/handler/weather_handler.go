package handler

import (
	"net/http"

	"github.com/fakhrymubarak/weather-lookup/internal/config"
	"github.com/fakhrymubarak/weather-lookup/internal/model"
	"github.com/fakhrymubarak/weather-lookup/internal/service"
	"go.uber.org/zap"
)

type WeatherHandler struct {
	WeatherService service.WeatherServiceInterface
	logger         *zap.SugaredLogger
}

func NewWeatherHandler(svc ...service.WeatherServiceInterface) *WeatherHandler {
	var weatherService service.WeatherServiceInterface
	if len(svc) > 0 && svc[0] != nil {
		weatherService = svc[0]
	} else {
		weatherService = service.NewWeatherService()
	}
	return &WeatherHandler{
		WeatherService: weatherService,
		logger:         config.GetLogger(),
	}
}

// requireLocation reads the location query parameter, writing a 400 when it is missing.
func (h *WeatherHandler) requireLocation(w http.ResponseWriter, r *http.Request) (string, bool) {
	location := queryParam(r, "location")
	if location == "" {
		writeError(w, http.StatusBadRequest, "Missing 'location' query parameter")
		return "", false
	}
	return location, true
}

func (h *WeatherHandler) requireCoords(w http.ResponseWriter, r *http.Request) (model.Coordinates, bool) {
	lat, lon := queryParam(r, "lat"), queryParam(r, "lon")
	if lat == "" || lon == "" {
		writeError(w, http.StatusBadRequest, "Missing 'lat' or 'lon' query parameter")
		return model.Coordinates{}, false
	}
	coords, err := model.ParseLatLon(lat, lon)
	if err != nil {
		writeLookupError(w, h.logger, err)
		return model.Coordinates{}, false
	}
	return coords, true
}

func (h *WeatherHandler) respond(w http.ResponseWriter, data interface{}, err error) {
	if err != nil {
		writeLookupError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, model.SuccessResponse(data))
}

// HandleWeather serves GET /weather?location=.
func (h *WeatherHandler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	location, ok := h.requireLocation(w, r)
	if !ok {
		return
	}
	weather, err := h.WeatherService.GetWeather(r.Context(), location)
	h.respond(w, weather, err)
}

// HandleWeatherByCoords serves GET /weather/coords?lat=&lon=.
func (h *WeatherHandler) HandleWeatherByCoords(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	coords, ok := h.requireCoords(w, r)
	if !ok {
		return
	}
	weather, err := h.WeatherService.GetWeatherByCoords(r.Context(), coords)
	h.respond(w, weather, err)
}

// HandleHourlyForecast serves GET /forecast/hourly?location=.
func (h *WeatherHandler) HandleHourlyForecast(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	location, ok := h.requireLocation(w, r)
	if !ok {
		return
	}
	forecast, err := h.WeatherService.GetHourlyForecast(r.Context(), location)
	h.respond(w, forecast, err)
}

// HandleDailyForecast serves GET /forecast/daily?location=.
func (h *WeatherHandler) HandleDailyForecast(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	location, ok := h.requireLocation(w, r)
	if !ok {
		return
	}
	forecast, err := h.WeatherService.GetDailyForecast(r.Context(), location)
	h.respond(w, forecast, err)
}

// HandleAirQuality serves GET /air?lat=&lon=.
func (h *WeatherHandler) HandleAirQuality(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	coords, ok := h.requireCoords(w, r)
	if !ok {
		return
	}
	air, err := h.WeatherService.GetAirQuality(r.Context(), coords)
	h.respond(w, air, err)
}

// HandleConditions serves GET /conditions?location=.
func (h *WeatherHandler) HandleConditions(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	location, ok := h.requireLocation(w, r)
	if !ok {
		return
	}
	conditions, err := h.WeatherService.GetConditions(r.Context(), location)
	h.respond(w, conditions, err)
}

// HandleGeocode serves GET /geocode?location=.
func (h *WeatherHandler) HandleGeocode(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	location, ok := h.requireLocation(w, r)
	if !ok {
		return
	}
	loc, err := h.WeatherService.Geocode(r.Context(), location)
	h.respond(w, loc, err)
}
