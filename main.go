package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fakhrymubarak/weather-lookup/internal/config"
	"github.com/fakhrymubarak/weather-lookup/internal/handler"
	"github.com/fakhrymubarak/weather-lookup/internal/middleware"
	"github.com/fakhrymubarak/weather-lookup/internal/redis"
	"github.com/fakhrymubarak/weather-lookup/internal/repository"
	"github.com/fakhrymubarak/weather-lookup/internal/service"
	"go.uber.org/zap"
)

func main() {
	logger := config.GetLogger()
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Fatalw("Server error", "error", err)
	}
}

// newServer wires the repository, service, handlers and middleware into an http.Server.
func newServer(ctx context.Context, logger *zap.SugaredLogger) *http.Server {
	if config.GetOpenWeatherMapAPIKey() == "" {
		logger.Warn("OPENWEATHERMAP_API_KEY is not set; lookups will fail until it is")
	}

	weatherRepo := repository.NewWeatherRepository()
	weatherService := service.NewWeatherService(weatherRepo)
	router := handler.NewRouter(handler.RouterOptions{
		Service: weatherService,
		Ping:    redis.Ping,
	})

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfigFromViper())
	limiter.StartCleanup(ctx)

	return &http.Server{
		Addr:              ":" + config.GetServerPort(),
		Handler:           middleware.RequestLogger(logger)(limiter.Middleware(router)),
		ReadHeaderTimeout: config.GetServerTimeoutDuration("read_header_timeout", 15*time.Second),
		ReadTimeout:       config.GetServerTimeoutDuration("read_timeout", 15*time.Second),
		WriteTimeout:      config.GetServerTimeoutDuration("write_timeout", 10*time.Second),
		IdleTimeout:       config.GetServerTimeoutDuration("idle_timeout", 30*time.Second),
	}
}

// run serves until ctx is done, then drains in-flight requests.
func run(ctx context.Context, logger *zap.SugaredLogger) error {
	if err := redis.Ping(ctx); err != nil {
		logger.Warnw("Redis is not reachable; favorites and cache are unavailable", "addr", config.GetRedisAddr(), "error", err)
	}
	defer func() { _ = redis.GetClient().Close() }()

	srv := newServer(ctx, logger)

	serverErr := make(chan error, 1)
	go func() {
		logger.Infow("Starting weather lookup server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		config.GetServerTimeoutDuration("shutdown_timeout", 10*time.Second))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
