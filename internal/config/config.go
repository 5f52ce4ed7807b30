package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var once sync.Once
var logger *zap.SugaredLogger
var loggerOnce sync.Once

// isTestRun returns true if the current process is a Go test binary.
func isTestRun() bool {
	return flag.Lookup("test.v") != nil || filepath.Ext(os.Args[0]) == ".test"
}

func initConfig() {
	once.Do(func() {
		// REDIS_ADDR overrides redis.addr, OPENWEATHERMAP_API_URL overrides openweathermap.api_url, ...
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		root, err := getProjectRoot()
		if err != nil {
			GetLogger().Errorw("Error finding project root", "error", err)
			return
		}
		viper.SetConfigType("yaml")

		viper.SetConfigName("config")
		viper.AddConfigPath(root)
		if err = viper.ReadInConfig(); err != nil {
			GetLogger().Errorw("Error reading config file", "error", err)
		}

		if isTestRun() {
			viper.SetConfigName("config_test")
			if err = viper.MergeInConfig(); err != nil {
				GetLogger().Errorw("Error merging test config file", "error", err)
			}
		}
	})
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// GetOpenWeatherApiUrl returns the base URL of the weather and air pollution products.
func GetOpenWeatherApiUrl() string {
	initConfig()
	return getStringOr("openweathermap.api_url", "https://api.openweathermap.org")
}

// GetOpenWeatherGeoUrl returns the base URL of the geocoding product.
func GetOpenWeatherGeoUrl() string {
	initConfig()
	return getStringOr("openweathermap.geo_url", GetOpenWeatherApiUrl())
}

func GetOpenWeatherUnits() string {
	initConfig()
	return getStringOr("openweathermap.units", "metric")
}

// GetOpenWeatherTimeout returns the outbound HTTP client timeout. Defaults to 10s.
func GetOpenWeatherTimeout() time.Duration {
	initConfig()
	return getDurationOr("openweathermap.timeout", 10*time.Second)
}

// GetOutboundRateLimitConfig returns requests per second and burst for calls to OpenWeatherMap.
// A zero rate means unlimited.
func GetOutboundRateLimitConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("openweathermap.rate_limit.rate")
	burst = viper.GetInt("openweathermap.rate_limit.burst")
	if burst <= 0 {
		burst = 1
	}
	return
}

func GetOpenWeatherMapAPIKey() string {
	_ = godotenv.Load()
	return os.Getenv("OPENWEATHERMAP_API_KEY")
}

func GetRedisAddr() string {
	initConfig()
	return getStringOr("redis.addr", "localhost:6379")
}

func GetRedisPassword() string {
	initConfig()
	return viper.GetString("redis.password")
}

func GetRedisDB() int {
	initConfig()
	return viper.GetInt("redis.db")
}

func GetServerPort() string {
	initConfig()
	return getStringOr("server.port", "8080")
}

func GetCacheExpiration() string {
	initConfig()
	return viper.GetString("cache.expiration")
}

// GetCacheTTL parses cache.expiration. An empty, zero or invalid value disables caching.
func GetCacheTTL() time.Duration {
	ttl, err := time.ParseDuration(GetCacheExpiration())
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

func GetServerTimeout(key string) string {
	initConfig()
	return viper.GetString("server." + key)
}

// GetServerTimeoutDuration parses server.<key>, falling back to def.
func GetServerTimeoutDuration(key string, def time.Duration) time.Duration {
	initConfig()
	return getDurationOr("server."+key, def)
}

// GetFavoritesKey returns the KV key holding the JSON-encoded favorite city list.
func GetFavoritesKey() string {
	initConfig()
	return getStringOr("favorites.key", "favoriteCities")
}

// GetDashboardLimit returns how many favorites the dashboard looks up. Defaults to 4.
func GetDashboardLimit() int {
	initConfig()
	n := viper.GetInt("favorites.dashboard_limit")
	if n <= 0 {
		return 4
	}
	return n
}

// ReloadConfigForTest resets the config singleton and reloads Viper config. Use only in tests.
func ReloadConfigForTest() {
	once = sync.Once{}
	initConfig()
}

func GetLogger() *zap.SugaredLogger {
	loggerOnce.Do(func() {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		logger = l.Sugar()
	})
	return logger
}

// GetRateLimiterCleanupTimeout returns the rate limiter cleanup timeout as a time.Duration.
// Defaults to 3m if not set or invalid.
func GetRateLimiterCleanupTimeout() time.Duration {
	initConfig()
	return getDurationOr("rate_limiter.cleanup_timeout", 3*time.Minute)
}

// GetGlobalRateLimiterConfig returns the per-minute rate and burst for the global rate limiter from config.
func GetGlobalRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.global.rate")
	if rate == 0 {
		rate = 10
	}
	burst = viper.GetInt("rate_limiter.global.burst")
	if burst == 0 {
		burst = 10
	}
	return
}

// GetParamRateLimiterConfig returns the per-minute rate and burst for the param rate limiter from config.
func GetParamRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.param.rate")
	if rate == 0 {
		rate = 2
	}
	burst = viper.GetInt("rate_limiter.param.burst")
	if burst == 0 {
		burst = 2
	}
	return
}

func getStringOr(key, def string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return def
}

func getDurationOr(key string, def time.Duration) time.Duration {
	s := viper.GetString(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
