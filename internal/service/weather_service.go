package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fakhrymubarak/weather-lookup/internal/config"
	"github.com/fakhrymubarak/weather-lookup/internal/model"
	"github.com/fakhrymubarak/weather-lookup/internal/repository"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// WeatherServiceInterface is what the handlers need from the service layer.
type WeatherServiceInterface interface {
	GetWeather(ctx context.Context, location string) (*model.WeatherSnapshot, error)
	GetWeatherByCoords(ctx context.Context, coords model.Coordinates) (*model.WeatherSnapshot, error)
	GetHourlyForecast(ctx context.Context, location string) (*model.Forecast, error)
	GetDailyForecast(ctx context.Context, location string) (*model.Forecast, error)
	GetAirQuality(ctx context.Context, coords model.Coordinates) (*model.AirQualitySample, error)
	GetConditions(ctx context.Context, location string) (*model.Conditions, error)
	Geocode(ctx context.Context, location string) (*model.Location, error)
	SearchLocation(ctx context.Context, location string) (*model.MapPin, error)
	GetDashboard(ctx context.Context, favorites []string) (*model.Dashboard, error)
}

// WeatherService composes repository calls into the lookups the pages show.
type WeatherService struct {
	WeatherRepo    repository.WeatherRepository
	DashboardLimit int
	Now            func() time.Time
	logger         *zap.SugaredLogger
}

// NewWeatherService creates a service over repo, or over a repository built from config.
func NewWeatherService(repo ...repository.WeatherRepository) *WeatherService {
	var r repository.WeatherRepository
	if len(repo) > 0 && repo[0] != nil {
		r = repo[0]
	} else {
		r = repository.NewWeatherRepository()
	}
	return &WeatherService{
		WeatherRepo:    r,
		DashboardLimit: config.GetDashboardLimit(),
		Now:            time.Now,
		logger:         config.GetLogger(),
	}
}

func (s *WeatherService) GetWeather(ctx context.Context, location string) (*model.WeatherSnapshot, error) {
	return s.WeatherRepo.GetWeather(ctx, location)
}

func (s *WeatherService) GetWeatherByCoords(ctx context.Context, coords model.Coordinates) (*model.WeatherSnapshot, error) {
	return s.WeatherRepo.GetWeatherByCoords(ctx, coords)
}

func (s *WeatherService) GetHourlyForecast(ctx context.Context, location string) (*model.Forecast, error) {
	return s.WeatherRepo.GetHourlyForecast(ctx, location)
}

func (s *WeatherService) GetAirQuality(ctx context.Context, coords model.Coordinates) (*model.AirQualitySample, error) {
	return s.WeatherRepo.GetAirQuality(ctx, coords)
}

func (s *WeatherService) Geocode(ctx context.Context, location string) (*model.Location, error) {
	return s.WeatherRepo.Geocode(ctx, location)
}

// GetDailyForecast resolves the city through current weather, then fetches the daily forecast at
// its coordinates. If the first lookup fails the forecast is never requested.
func (s *WeatherService) GetDailyForecast(ctx context.Context, location string) (*model.Forecast, error) {
	current, err := s.WeatherRepo.GetWeather(ctx, location)
	if err != nil {
		return nil, err
	}

	forecast, err := s.WeatherRepo.GetDailyForecast(ctx, current.Coordinates)
	if err != nil {
		return nil, err
	}

	out := *forecast
	out.City = current.City
	out.Country = current.Country
	out.Coordinates = current.Coordinates
	return &out, nil
}

// GetConditions returns current weather and the air quality at the same place. Either both
// succeed or the lookup fails.
func (s *WeatherService) GetConditions(ctx context.Context, location string) (*model.Conditions, error) {
	current, err := s.WeatherRepo.GetWeather(ctx, location)
	if err != nil {
		return nil, err
	}

	air, err := s.WeatherRepo.GetAirQuality(ctx, current.Coordinates)
	if err != nil {
		return nil, err
	}

	return &model.Conditions{Weather: *current, AirQuality: *air}, nil
}

// SearchLocation geocodes a place name and pins the weather at the match.
func (s *WeatherService) SearchLocation(ctx context.Context, location string) (*model.MapPin, error) {
	loc, err := s.WeatherRepo.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	current, err := s.WeatherRepo.GetWeatherByCoords(ctx, loc.Coordinates)
	if err != nil {
		return nil, err
	}

	pin := &model.MapPin{Location: *loc, Weather: *current}
	pin.Weather.City = loc.Name
	if loc.Country != "" {
		pin.Weather.Country = loc.Country
	}
	return pin, nil
}

// GetDashboard fetches the weather of the first favorites concurrently. Cities that fail are
// left out; the rest keep the favorites order.
func (s *WeatherService) GetDashboard(ctx context.Context, favorites []string) (*model.Dashboard, error) {
	limit := s.DashboardLimit
	if limit <= 0 {
		limit = config.GetDashboardLimit()
	}
	if len(favorites) > limit {
		favorites = favorites[:limit]
	}

	results := make([]*model.WeatherSnapshot, len(favorites))
	p := pool.New().WithMaxGoroutines(limit)
	for i, city := range favorites {
		p.Go(func() {
			w, err := s.WeatherRepo.GetWeather(ctx, city)
			if err != nil {
				s.log().Warnw("Dropping favorite from dashboard", "city", city, "error", err)
				return
			}
			results[i] = w
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrNetwork, err)
	}

	dash := &model.Dashboard{
		Greeting:  model.Greeting(s.now()),
		Favorites: make([]model.WeatherSnapshot, 0, len(results)),
	}
	for _, w := range results {
		if w != nil {
			dash.Favorites = append(dash.Favorites, *w)
		}
	}
	return dash, nil
}

func (s *WeatherService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *WeatherService) log() *zap.SugaredLogger {
	if s.logger == nil {
		return zap.NewNop().Sugar()
	}
	return s.logger
}
