package redis

import (
	"context"
	"sync"

	"github.com/fakhrymubarak/weather-lookup/internal/config"
	redisv9 "github.com/redis/go-redis/v9"
)

var (
	client *redisv9.Client
	once   sync.Once
)

// GetClient returns the process-wide Redis client that backs the favorites entry and the weather cache.
func GetClient() *redisv9.Client {
	once.Do(func() {
		client = NewClient(config.GetRedisAddr())
	})
	return client
}

// NewClient builds a client for addr using the configured password and database.
func NewClient(addr string) *redisv9.Client {
	return redisv9.NewClient(&redisv9.Options{
		Addr:     addr,
		Password: config.GetRedisPassword(),
		DB:       config.GetRedisDB(),
	})
}

// Ping reports whether Redis is reachable.
func Ping(ctx context.Context) error {
	return GetClient().Ping(ctx).Err()
}

// ResetClientForTest resets the Redis client singleton. Use only in tests.
func ResetClientForTest() {
	if client != nil {
		_ = client.Close()
	}
	once = sync.Once{}
	client = nil
}
