package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fakhrymubarak/weather-lookup/internal/config"
	"github.com/fakhrymubarak/weather-lookup/internal/model"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds the limits of both token buckets. Rates are requests per minute.
type RateLimitConfig struct {
	GlobalRate     float64
	GlobalBurst    int
	ParamRate      float64
	ParamBurst     int
	ParamKey       string
	CleanupTimeout time.Duration
	// ExemptPaths are served without touching either bucket.
	ExemptPaths    []string
}

// RateLimitConfigFromViper reads the limits from the rate_limiter config section.
func RateLimitConfigFromViper() RateLimitConfig {
	globalRate, globalBurst := config.GetGlobalRateLimiterConfig()
	paramRate, paramBurst := config.GetParamRateLimiterConfig()
	return RateLimitConfig{
		GlobalRate:     globalRate,
		GlobalBurst:    globalBurst,
		ParamRate:      paramRate,
		ParamBurst:     paramBurst,
		ParamKey:       "location",
		CleanupTimeout: config.GetRateLimiterCleanupTimeout(),
		ExemptPaths:    []string{"/healthz"},
	}
}

// the visitor holds the rate limiter and last seen time for a client, or a client and parameter value.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-IP limit and a per-(IP, parameter value) limit.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	muGlobal sync.Mutex
	// globalVisitors maps IP addresses to their visitor.
	globalVisitors map[string]*visitor
	muParam        sync.Mutex
	// paramVisitors maps IP addresses and parameter values to their visitor.
	paramVisitors map[string]map[string]*visitor
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.ParamKey == "" {
		cfg.ParamKey = "location"
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = 3 * time.Minute
	}
	return &RateLimiter{
		cfg:            cfg,
		now:            time.Now,
		globalVisitors: make(map[string]*visitor),
		paramVisitors:  make(map[string]map[string]*visitor),
	}
}

// getGlobalLimiter returns the rate limiter for the given IP address, creating one if it does not exist.
func (rl *RateLimiter) getGlobalLimiter(ip string) *rate.Limiter {
	rl.muGlobal.Lock()
	defer rl.muGlobal.Unlock()
	v, exists := rl.globalVisitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(rl.cfg.GlobalRate/60.0), rl.cfg.GlobalBurst)
		rl.globalVisitors[ip] = &visitor{limiter, rl.now()}
		return limiter
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// getParamLimiter returns the rate limiter for the given IP address and parameter value, creating one if it does not exist.
func (rl *RateLimiter) getParamLimiter(ip, param string) *rate.Limiter {
	rl.muParam.Lock()
	defer rl.muParam.Unlock()
	if _, ok := rl.paramVisitors[ip]; !ok {
		rl.paramVisitors[ip] = make(map[string]*visitor)
	}
	v, exists := rl.paramVisitors[ip][param]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(rl.cfg.ParamRate/60.0), rl.cfg.ParamBurst)
		rl.paramVisitors[ip][param] = &visitor{limiter, rl.now()}
		return limiter
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// cleanup removes visitors that have not been seen for longer than the cleanup timeout.
func (rl *RateLimiter) cleanup() {
	now := rl.now()

	rl.muGlobal.Lock()
	for ip, v := range rl.globalVisitors {
		if now.Sub(v.lastSeen) > rl.cfg.CleanupTimeout {
			delete(rl.globalVisitors, ip)
		}
	}
	rl.muGlobal.Unlock()

	rl.muParam.Lock()
	for ip, paramMap := range rl.paramVisitors {
		for param, v := range paramMap {
			if now.Sub(v.lastSeen) > rl.cfg.CleanupTimeout {
				delete(paramMap, param)
			}
		}
		if len(paramMap) == 0 {
			delete(rl.paramVisitors, ip)
		}
	}
	rl.muParam.Unlock()
}

// StartCleanup removes stale visitors every minute until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()
}

// Reset clears all visitor states. Used primarily for testing.
func (rl *RateLimiter) Reset() {
	rl.muGlobal.Lock()
	clear(rl.globalVisitors)
	rl.muGlobal.Unlock()
	rl.muParam.Lock()
	clear(rl.paramVisitors)
	rl.muParam.Unlock()
}

func (rl *RateLimiter) visitorCount() (global, param int) {
	rl.muGlobal.Lock()
	global = len(rl.globalVisitors)
	rl.muGlobal.Unlock()
	rl.muParam.Lock()
	for _, m := range rl.paramVisitors {
		param += len(m)
	}
	rl.muParam.Unlock()
	return global, param
}

// getIP extracts the client's IP address from the HTTP request, considering X-Forwarded-For headers.
func getIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // fallback
	}
	return ip
}

// Middleware enforces global and per-parameter rate limiting. The per-parameter limit applies only
// to requests that carry the parameter; values are compared case-insensitively. If a limit is
// exceeded, it responds with a 429 status and a JSON error.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slices.Contains(rl.cfg.ExemptPaths, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		ip := getIP(r)
		param := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(rl.cfg.ParamKey)))
		if !rl.getGlobalLimiter(ip).Allow() {
			tooManyRequests(w,
				fmt.Sprintf("Rate limit exceeded: max %g requests per minute per user/IP", rl.cfg.GlobalRate),
				"Too Many Requests (global limit)")
			return
		}
		if param != "" && !rl.getParamLimiter(ip, param).Allow() {
			tooManyRequests(w,
				fmt.Sprintf("Rate limit exceeded: max %g requests per minute per unique %s per user/IP", rl.cfg.ParamRate, rl.cfg.ParamKey),
				"Too Many Requests (per-param limit)")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tooManyRequests(w http.ResponseWriter, errMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	resp := model.ErrorResponse(errMsg)
	resp.Message = message
	_ = json.NewEncoder(w).Encode(resp)
}
