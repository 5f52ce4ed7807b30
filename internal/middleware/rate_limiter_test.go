package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// Note: refill is 10 or 2 requests per minute, so within a test only the burst is available.

func testLimiter() *RateLimiter {
	return NewRateLimiter(RateLimitConfig{
		GlobalRate:  10,
		GlobalBurst: 10,
		ParamRate:   2,
		ParamBurst:  2,
		ParamKey:    "location",
	})
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
})

func TestRateLimitMiddleware_GlobalBurst(t *testing.T) {
	mw := testLimiter().Middleware(okHandler)
	ip := "1.2.3.4:1234"

	// 10 unique params are allowed instantly (global burst)
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("GET", fmt.Sprintf("/weather?location=city%d", i), nil)
		req.RemoteAddr = ip
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d on request %d", w.Result().StatusCode, i+1)
		}
	}
	// 11th request (new param) is blocked by the global burst
	req := httptest.NewRequest("GET", "/weather?location=city10", nil)
	req.RemoteAddr = ip
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d on 11th request", w.Result().StatusCode)
	}
	var resp map[string]interface{}
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if !strings.Contains(resp["error"].(string), "max 10 requests per minute per user/IP") {
		t.Errorf("expected global limit error, got %v", resp["error"])
	}
	if resp["message"] != "Too Many Requests (global limit)" {
		t.Errorf("unexpected message %v", resp["message"])
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimitMiddleware_PerParamBurst(t *testing.T) {
	mw := testLimiter().Middleware(okHandler)
	ip := "2.3.4.5:2345"

	// 2 requests to the same param allowed instantly (burst), ignoring case
	for _, loc := range []string{"London", "london"} {
		req := httptest.NewRequest("GET", "/weather?location="+loc, nil)
		req.RemoteAddr = ip
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d for %s", w.Result().StatusCode, loc)
		}
	}
	// Per-param burst blocks the 3rd request to the same param
	req := httptest.NewRequest("GET", "/weather?location=LONDON", nil)
	req.RemoteAddr = ip
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d on 3rd request", w.Result().StatusCode)
	}
	var resp map[string]interface{}
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if !strings.Contains(resp["error"].(string), "per unique location") {
		t.Errorf("expected per-param limit error, got %v", resp["error"])
	}

	// A different param from the same IP still passes
	req = httptest.NewRequest("GET", "/weather?location=Paris", nil)
	req.RemoteAddr = ip
	w = httptest.NewRecorder()
	mw.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for a new param, got %d", w.Result().StatusCode)
	}
}

func TestRateLimitMiddleware_NoParamOnlyGlobal(t *testing.T) {
	rl := testLimiter()
	mw := rl.Middleware(okHandler)
	ip := "7.7.7.7:7777"

	// Requests without a location share only the global bucket
	for i, path := range []string{"/pages/weather", "/pages/weather", "/favorites", "/favorites", "/dashboard"} {
		req := httptest.NewRequest("GET", path, nil)
		req.RemoteAddr = ip
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d on request %d (%s)", w.Code, i+1, path)
		}
	}
	if _, p := rl.visitorCount(); p != 0 {
		t.Errorf("expected no param visitors, got %d", p)
	}
}

func TestRateLimitMiddleware_ExemptPaths(t *testing.T) {
	cfg := RateLimitConfigFromViper()
	cfg.GlobalBurst = 1
	rl := NewRateLimiter(cfg)
	mw := rl.Middleware(okHandler)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/healthz", nil)
		req.RemoteAddr = "8.8.8.8:1"
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected /healthz to be exempt, got %d on request %d", w.Code, i+1)
		}
	}
	if g, _ := rl.visitorCount(); g != 0 {
		t.Errorf("expected exempt requests to create no visitors, got %d", g)
	}
}

func TestRateLimitMiddleware_SeparateClients(t *testing.T) {
	mw := testLimiter().Middleware(okHandler)

	for _, ip := range []string{"3.3.3.3", "4.4.4.4"} {
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest("GET", "/weather?location=Oslo", nil)
			req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
			w := httptest.NewRecorder()
			mw.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200 for %s, got %d", ip, w.Code)
			}
		}
	}
}

func TestGetIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "5.6.7.8:9999"
	if got := getIP(req); got != "5.6.7.8" {
		t.Errorf("expected 5.6.7.8, got %s", got)
	}
	req.Header.Set("X-Forwarded-For", " 9.9.9.9 , 5.6.7.8")
	if got := getIP(req); got != "9.9.9.9" {
		t.Errorf("expected 9.9.9.9, got %s", got)
	}
	req = httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "no-port"
	if got := getIP(req); got != "no-port" {
		t.Errorf("expected fallback to RemoteAddr, got %s", got)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := testLimiter()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	mw := rl.Middleware(okHandler)

	for _, loc := range []string{"a", "b"} {
		req := httptest.NewRequest("GET", "/weather?location="+loc, nil)
		req.RemoteAddr = "6.6.6.6:1"
		mw.ServeHTTP(httptest.NewRecorder(), req)
	}
	if g, p := rl.visitorCount(); g != 1 || p != 2 {
		t.Fatalf("expected 1 global and 2 param visitors, got %d and %d", g, p)
	}

	now = now.Add(2 * time.Minute)
	rl.cleanup()
	if g, p := rl.visitorCount(); g != 1 || p != 2 {
		t.Fatalf("visitors seen 2m ago must survive, got %d and %d", g, p)
	}

	now = now.Add(2 * time.Minute)
	rl.cleanup()
	if g, p := rl.visitorCount(); g != 0 || p != 0 {
		t.Fatalf("expected stale visitors removed, got %d and %d", g, p)
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := testLimiter()
	mw := rl.Middleware(okHandler)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/weather", nil)
		mw.ServeHTTP(httptest.NewRecorder(), req)
	}
	rl.Reset()

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, httptest.NewRequest("GET", "/weather", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after reset, got %d", w.Code)
	}
}

func TestRateLimitConfigFromViper(t *testing.T) {
	cfg := RateLimitConfigFromViper()
	if cfg.GlobalRate != 10 || cfg.GlobalBurst != 10 {
		t.Errorf("unexpected global config %v/%d", cfg.GlobalRate, cfg.GlobalBurst)
	}
	if cfg.ParamRate != 2 || cfg.ParamBurst != 2 {
		t.Errorf("unexpected param config %v/%d", cfg.ParamRate, cfg.ParamBurst)
	}
	if cfg.ParamKey != "location" || cfg.CleanupTimeout != 3*time.Minute {
		t.Errorf("unexpected key/cleanup %s/%v", cfg.ParamKey, cfg.CleanupTimeout)
	}
	if len(cfg.ExemptPaths) != 1 || cfg.ExemptPaths[0] != "/healthz" {
		t.Errorf("unexpected exempt paths %v", cfg.ExemptPaths)
	}
}
