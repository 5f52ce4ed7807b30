package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fakhrymubarak/weather-lookup/internal/config"
	"github.com/fakhrymubarak/weather-lookup/internal/middleware"
	"github.com/fakhrymubarak/weather-lookup/internal/redis"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func useMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	viper.Set("redis.addr", mr.Addr())
	config.ReloadConfigForTest()
	redis.ResetClientForTest()
	t.Cleanup(func() {
		viper.Set("redis.addr", "localhost:6379")
		viper.Set("server.port", "8080")
		redis.ResetClientForTest()
	})
	return mr
}

func TestEnvironmentVariables(t *testing.T) {
	// Test default port behavior
	assert.Equal(t, "8080", config.GetServerPort())
}

func TestNewServer(t *testing.T) {
	useMiniRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := newServer(ctx, zap.NewNop().Sugar())
	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, 15*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 15*time.Second, srv.ReadTimeout)
	assert.Equal(t, 10*time.Second, srv.WriteTimeout)
	assert.Equal(t, 30*time.Second, srv.IdleTimeout)

	// Test that handlers are properly registered behind the middleware
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/weather", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	useMiniRedis(t)
	viper.Set("server.port", "0")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, zap.NewNop().Sugar()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRun_ListenError(t *testing.T) {
	useMiniRedis(t)
	viper.Set("server.port", "not-a-port")

	err := run(context.Background(), zap.NewNop().Sugar())
	assert.Error(t, err)
}

func BenchmarkNewServer(b *testing.B) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for i := 0; i < b.N; i++ {
		_ = newServer(ctx, zap.NewNop().Sugar())
	}
}
