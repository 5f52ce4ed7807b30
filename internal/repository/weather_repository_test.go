package repository

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fakhrymubarak/weather-lookup/internal/config"
	"github.com/fakhrymubarak/weather-lookup/internal/model"
	"github.com/fakhrymubarak/weather-lookup/internal/owmtest"
	"github.com/fakhrymubarak/weather-lookup/internal/redis"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// newServedRepository points a repository built from config at a fake OpenWeatherMap and a miniredis.
func newServedRepository(t *testing.T) (*weatherRepository, *owmtest.Server, *miniredis.Miniredis) {
	t.Helper()
	t.Setenv("OPENWEATHERMAP_API_KEY", owmtest.APIKey)

	owm := owmtest.NewServer()
	t.Cleanup(owm.Close)
	mr := miniredis.RunT(t)

	viper.Set("openweathermap.api_url", owm.URL)
	viper.Set("openweathermap.geo_url", owm.URL)
	viper.Set("redis.addr", mr.Addr())
	redis.ResetClientForTest()
	config.ReloadConfigForTest()
	t.Cleanup(func() {
		viper.Set("openweathermap.api_url", "https://api.openweathermap.org")
		viper.Set("openweathermap.geo_url", "https://api.openweathermap.org")
		viper.Set("redis.addr", "localhost:6379")
		redis.ResetClientForTest()
	})

	return NewWeatherRepository().(*weatherRepository), owm, mr
}

func TestNewWeatherRepository(t *testing.T) {
	repo, owm, _ := newServedRepository(t)
	assert.Equal(t, owm.URL, repo.apiURL)
	assert.Equal(t, "metric", repo.units)
	assert.Equal(t, time.Minute, repo.cacheTTL)
	assert.NotNil(t, repo.redisClient)
	assert.Nil(t, repo.limiter)
}

func TestNewWeatherRepository_CustomClient(t *testing.T) {
	custom := &http.Client{Timeout: time.Second}
	repo := NewWeatherRepository(custom).(*weatherRepository)
	assert.Same(t, custom, repo.httpClient)
}

func TestWeatherRepository_GetWeather_CachesInRedis(t *testing.T) {
	repo, owm, mr := newServedRepository(t)
	ctx := context.Background()

	first, err := repo.GetWeather(ctx, "London")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "London", first.City)
	assert.Equal(t, "SW", first.WindDirection)
	assert.True(t, mr.Exists("weather:london"))
	assert.Equal(t, time.Minute, mr.TTL("weather:london"))

	second, err := repo.GetWeather(ctx, "london")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Temperature, second.Temperature)
	assert.Equal(t, 1, owm.Hits("/data/2.5/weather"))

	mr.FastForward(2 * time.Minute)
	third, err := repo.GetWeather(ctx, "London")
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, owm.Hits("/data/2.5/weather"))
}

func TestWeatherRepository_GetWeather_NotFound(t *testing.T) {
	repo, _, mr := newServedRepository(t)

	_, err := repo.GetWeather(context.Background(), "InvalidCity12345")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocationNotFound))

	var notFound *LocationNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "InvalidCity12345", notFound.Location)
	assert.Equal(t, "city not found", err.Error())
	assert.False(t, mr.Exists("weather:invalidcity12345"))
}

func TestWeatherRepository_InvalidAPIKey(t *testing.T) {
	repo, _, _ := newServedRepository(t)
	t.Setenv("OPENWEATHERMAP_API_KEY", "invalid_key")

	_, err := repo.GetWeather(context.Background(), "Paris")
	assert.True(t, errors.Is(err, ErrExternalAPI))
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestWeatherRepository_GetWeatherByCoords(t *testing.T) {
	repo, owm, mr := newServedRepository(t)
	ctx := context.Background()

	w, err := repo.GetWeatherByCoords(ctx, model.Coordinates{Lat: 48.8534, Lon: 2.3488})
	require.NoError(t, err)
	assert.Equal(t, "Paris", w.City)
	assert.Equal(t, "FR", w.Country)
	assert.Equal(t, "NE", w.WindDirection)
	assert.Empty(t, mr.Keys(), "coordinate lookups are not cached")

	sea, err := repo.GetWeatherByCoords(ctx, model.Coordinates{Lat: 10, Lon: -30})
	require.NoError(t, err)
	assert.Equal(t, "", sea.City)

	_, err = repo.GetWeatherByCoords(ctx, model.Coordinates{Lat: 123, Lon: 0})
	assert.True(t, errors.Is(err, model.ErrInvalidCoordinates))
	assert.Equal(t, 2, owm.Hits("/data/2.5/weather"))
}

func TestWeatherRepository_GetHourlyForecast(t *testing.T) {
	repo, _, _ := newServedRepository(t)

	f, err := repo.GetHourlyForecast(context.Background(), "Tokyo")
	require.NoError(t, err)
	assert.Equal(t, model.ForecastHourly, f.Kind)
	assert.Equal(t, "Tokyo", f.City)
	assert.Equal(t, "JP", f.Country)
	require.Len(t, f.Points, 40)
	assert.Equal(t, 3*time.Hour, f.Points[1].Time.Sub(f.Points[0].Time))
	assert.Equal(t, 0.35, f.Points[0].PrecipChance)
	assert.Equal(t, "N", f.Points[0].WindDirection)

	_, err = repo.GetHourlyForecast(context.Background(), "Atlantis")
	assert.True(t, errors.Is(err, ErrLocationNotFound))
}

func TestWeatherRepository_GetDailyForecast(t *testing.T) {
	repo, owm, _ := newServedRepository(t)

	f, err := repo.GetDailyForecast(context.Background(), model.Coordinates{Lat: 59.9127, Lon: 10.7461})
	require.NoError(t, err)
	assert.Equal(t, model.ForecastDaily, f.Kind)
	assert.Len(t, f.Points, model.MaxDailyPoints)
	assert.Equal(t, -7.5, f.Points[0].TempMin)

	owm.DisableOneCall()
	_, err = repo.GetDailyForecast(context.Background(), model.Coordinates{Lat: 59.9127, Lon: 10.7461})
	assert.True(t, errors.Is(err, ErrExternalAPI))
}

func TestWeatherRepository_Geocode(t *testing.T) {
	repo, owm, _ := newServedRepository(t)

	loc, err := repo.Geocode(context.Background(), "Madrid")
	require.NoError(t, err)
	assert.Equal(t, "Madrid", loc.Name)
	assert.Equal(t, "ES", loc.Country)
	assert.Equal(t, model.Coordinates{Lat: 40.4165, Lon: -3.7026}, loc.Coordinates)

	_, err = repo.Geocode(context.Background(), "Nowhere")
	assert.True(t, errors.Is(err, ErrLocationNotFound))
	assert.Equal(t, 2, owm.Hits("/geo/1.0/direct"))

	_, err = repo.Geocode(context.Background(), " ")
	assert.True(t, errors.Is(err, ErrEmptyLocation))
}

func TestWeatherRepository_GetAirQuality(t *testing.T) {
	repo, owm, _ := newServedRepository(t)

	aq, err := repo.GetAirQuality(context.Background(), model.Coordinates{Lat: 40.4165, Lon: -3.7026})
	require.NoError(t, err)
	assert.Equal(t, 4, aq.Index)
	assert.Equal(t, "Poor", aq.Label)
	assert.Equal(t, 8.2, aq.PM25)
	assert.Equal(t, 12.7, aq.PM10)
	assert.Equal(t, 15.4, aq.NO2)
	assert.Equal(t, 60.1, aq.O3)

	owm.FailStatus("/data/2.5/air_pollution", http.StatusServiceUnavailable)
	_, err = repo.GetAirQuality(context.Background(), model.Coordinates{Lat: 40.4165, Lon: -3.7026})
	assert.True(t, errors.Is(err, ErrExternalAPI))
}

func TestWeatherRepository_ContextCanceled(t *testing.T) {
	repo, owm, _ := newServedRepository(t)
	release := owm.Block("Oslo")
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := repo.GetWeather(ctx, "Oslo")
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWeatherRepository_OutboundRateLimit(t *testing.T) {
	repo, _, _ := newServedRepository(t)
	repo.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	_, err := repo.GetWeatherByCoords(context.Background(), model.Coordinates{Lat: 1, Lon: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = repo.GetWeatherByCoords(ctx, model.Coordinates{Lat: 1, Lon: 1})
	assert.True(t, errors.Is(err, ErrNetwork))
}

func TestWeatherRepository_ConcurrentAccess(t *testing.T) {
	repo, _, _ := newServedRepository(t)
	ctx := context.Background()
	done := make(chan error, 5)

	for i := 0; i < 5; i++ {
		go func() {
			_, err := repo.GetWeather(ctx, "Paris")
			done <- err
		}()
	}

	for i := 0; i < 5; i++ {
		assert.NoError(t, <-done)
	}
}
