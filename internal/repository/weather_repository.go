package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fakhrymubarak/weather-lookup/internal/config"
	"github.com/fakhrymubarak/weather-lookup/internal/model"
	"github.com/fakhrymubarak/weather-lookup/internal/redis"
	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Custom error types
var (
	ErrLocationNotFound  = errors.New("location not found")
	ErrAPIKeyMissing     = errors.New("API key missing")
	ErrExternalAPI       = errors.New("external API error")
	ErrNetwork           = errors.New("network error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrEmptyLocation     = errors.New("location is empty")
)

// LocationNotFoundError is returned when OpenWeatherMap cannot resolve a location.
type LocationNotFoundError struct {
	Location string
	Message  string
}

func (e *LocationNotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrLocationNotFound.Error()
}

func (e *LocationNotFoundError) Is(target error) bool {
	return target == ErrLocationNotFound
}

// WeatherRepository defines the interface for weather data access
type WeatherRepository interface {
	GetWeather(ctx context.Context, location string) (*model.WeatherSnapshot, error)
	GetWeatherByCoords(ctx context.Context, coords model.Coordinates) (*model.WeatherSnapshot, error)
	GetHourlyForecast(ctx context.Context, location string) (*model.Forecast, error)
	GetDailyForecast(ctx context.Context, coords model.Coordinates) (*model.Forecast, error)
	Geocode(ctx context.Context, location string) (*model.Location, error)
	GetAirQuality(ctx context.Context, coords model.Coordinates) (*model.AirQualitySample, error)
}

// redisClient is the part of *redisv9.Client the weather cache needs.
type redisClient interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
}

// weatherRepository implements WeatherRepository
type weatherRepository struct {
	redisClient redisClient
	httpClient  *http.Client
	limiter     *rate.Limiter
	apiURL      string
	geoURL      string
	units       string
	cacheTTL    time.Duration
	logger      *zap.SugaredLogger
}

// NewWeatherRepository creates a new weather repository instance
func NewWeatherRepository(httpClient ...*http.Client) WeatherRepository {
	client := &http.Client{Timeout: config.GetOpenWeatherTimeout()}
	if len(httpClient) > 0 && httpClient[0] != nil {
		client = httpClient[0]
	}

	repo := &weatherRepository{
		httpClient: client,
		apiURL:     strings.TrimRight(config.GetOpenWeatherApiUrl(), "/"),
		geoURL:     strings.TrimRight(config.GetOpenWeatherGeoUrl(), "/"),
		units:      config.GetOpenWeatherUnits(),
		cacheTTL:   config.GetCacheTTL(),
		logger:     config.GetLogger(),
	}
	if repo.cacheTTL > 0 {
		repo.redisClient = redis.GetClient()
	}
	if rps, burst := config.GetOutboundRateLimitConfig(); rps > 0 {
		repo.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return repo
}

// GetWeather retrieves current weather by city name, checking cache first, then external API
func (r *weatherRepository) GetWeather(ctx context.Context, location string) (*model.WeatherSnapshot, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, ErrEmptyLocation
	}

	// Try to get from cache first
	if cached, err := r.getFromCache(ctx, location); err == nil {
		return cached, nil
	}

	// If not in cache, fetch from external API
	params := url.Values{}
	params.Set("q", location)
	weather, err := r.fetchCurrent(ctx, location, params)
	if err != nil {
		return nil, err
	}

	// Cache the result
	r.cacheWeather(ctx, location, weather)

	return weather, nil
}

// GetWeatherByCoords retrieves current weather at a coordinate pair. Coordinate lookups are not cached.
func (r *weatherRepository) GetWeatherByCoords(ctx context.Context, coords model.Coordinates) (*model.WeatherSnapshot, error) {
	if err := coords.Validate(); err != nil {
		return nil, err
	}
	return r.fetchCurrent(ctx, coords.String(), coordParams(coords))
}

func (r *weatherRepository) fetchCurrent(ctx context.Context, location string, params url.Values) (*model.WeatherSnapshot, error) {
	params.Set("units", r.units)

	var data model.OpenWeatherMapResponse
	if err := r.getJSON(ctx, r.apiURL+"/data/2.5/weather", params, location, &data); err != nil {
		return nil, err
	}
	if len(data.Weather) == 0 {
		return nil, fmt.Errorf("%w: current weather for %q has no conditions", ErrMalformedResponse, location)
	}

	weather := data.Snapshot()
	return &weather, nil
}

// GetHourlyForecast retrieves the 5-day/3-hour forecast for a city name.
func (r *weatherRepository) GetHourlyForecast(ctx context.Context, location string) (*model.Forecast, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, ErrEmptyLocation
	}

	params := url.Values{}
	params.Set("q", location)
	params.Set("units", r.units)

	var data model.OpenWeatherMapForecastResponse
	if err := r.getJSON(ctx, r.apiURL+"/data/2.5/forecast", params, location, &data); err != nil {
		return nil, err
	}
	if len(data.List) == 0 {
		return nil, fmt.Errorf("%w: forecast for %q has no entries", ErrMalformedResponse, location)
	}

	forecast := data.Forecast()
	return &forecast, nil
}

// GetDailyForecast retrieves up to seven daily entries from the One Call product.
func (r *weatherRepository) GetDailyForecast(ctx context.Context, coords model.Coordinates) (*model.Forecast, error) {
	if err := coords.Validate(); err != nil {
		return nil, err
	}

	params := coordParams(coords)
	params.Set("exclude", "current,minutely,hourly,alerts")
	params.Set("units", r.units)

	var data model.OpenWeatherMapOneCallResponse
	if err := r.getJSON(ctx, r.apiURL+"/data/3.0/onecall", params, coords.String(), &data); err != nil {
		return nil, err
	}
	if len(data.Daily) == 0 {
		return nil, fmt.Errorf("%w: one call response for %s has no daily entries", ErrMalformedResponse, coords)
	}

	forecast := data.Forecast()
	return &forecast, nil
}

// Geocode resolves a city name to its best match.
func (r *weatherRepository) Geocode(ctx context.Context, location string) (*model.Location, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, ErrEmptyLocation
	}

	params := url.Values{}
	params.Set("q", location)
	params.Set("limit", "1")

	var data []model.OpenWeatherMapGeoResult
	if err := r.getJSON(ctx, r.geoURL+"/geo/1.0/direct", params, location, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &LocationNotFoundError{Location: location, Message: "city not found"}
	}

	loc := data[0].Location()
	return &loc, nil
}

// GetAirQuality retrieves the current air pollution sample at a coordinate pair.
func (r *weatherRepository) GetAirQuality(ctx context.Context, coords model.Coordinates) (*model.AirQualitySample, error) {
	if err := coords.Validate(); err != nil {
		return nil, err
	}

	var data model.OpenWeatherMapAirPollutionResponse
	if err := r.getJSON(ctx, r.apiURL+"/data/2.5/air_pollution", coordParams(coords), coords.String(), &data); err != nil {
		return nil, err
	}

	sample, ok := data.Sample()
	if !ok {
		return nil, fmt.Errorf("%w: air pollution for %s has no entries", ErrMalformedResponse, coords)
	}
	return &sample, nil
}

// getJSON issues a GET against OpenWeatherMap and decodes a 200 body into out.
func (r *weatherRepository) getJSON(ctx context.Context, endpoint string, params url.Values, location string, out interface{}) error {
	apiKey := config.GetOpenWeatherMapAPIKey()
	if apiKey == "" {
		return ErrAPIKeyMissing
	}
	params.Set("appid", apiKey)

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limit wait: %w", ErrNetwork, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrExternalAPI, err)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log().Warnw("OpenWeatherMap request failed", "endpoint", endpoint, "location", location, "error", err)
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	r.log().Debugw("OpenWeatherMap request", "endpoint", endpoint, "location", location,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		msg := errorMessage(resp.Body)
		if resp.StatusCode == http.StatusNotFound {
			return &LocationNotFoundError{Location: location, Message: msg}
		}
		return fmt.Errorf("%w: status %d: %s", ErrExternalAPI, resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

// getFromCache retrieves weather data from Redis cache
func (r *weatherRepository) getFromCache(ctx context.Context, location string) (*model.WeatherSnapshot, error) {
	if r.redisClient == nil {
		return nil, redisv9.Nil
	}

	val, err := r.redisClient.Get(ctx, cacheKey(location)).Result()
	if err != nil {
		return nil, err
	}

	var weather model.WeatherSnapshot
	if err := json.Unmarshal([]byte(val), &weather); err != nil {
		return nil, err
	}

	weather.Cached = true
	return &weather, nil
}

// cacheWeather stores weather data in Redis cache
func (r *weatherRepository) cacheWeather(ctx context.Context, location string, weather *model.WeatherSnapshot) {
	if r.redisClient == nil || r.cacheTTL <= 0 {
		return
	}

	if b, err := json.Marshal(weather); err == nil {
		if err := r.redisClient.Set(ctx, cacheKey(location), b, r.cacheTTL).Err(); err != nil {
			r.log().Warnw("Error caching weather", "location", location, "error", err)
		}
	}
}

func (r *weatherRepository) log() *zap.SugaredLogger {
	if r.logger == nil {
		return zap.NewNop().Sugar()
	}
	return r.logger
}

func cacheKey(location string) string {
	return "weather:" + strings.ToLower(location)
}

func coordParams(c model.Coordinates) url.Values {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	return params
}

// errorMessage extracts the "message" field of an OpenWeatherMap error body, or the raw body.
func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var apiErr model.OpenWeatherMapError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return strings.TrimSpace(string(raw))
}
