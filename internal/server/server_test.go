package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyuon7877/onesquare-sub001/internal/config"
	"github.com/hyuon7877/onesquare-sub001/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		Environment: "test",
		HTTPPort:    "0",
		Security: config.SecurityConfig{
			RateLimitPerMinute:   60,
			RateLimitBurst:       1000,
			HeavyPathLimit:       10,
			HeavyPaths:           []string{"/api/v1/reports"},
			IDSThreshold:         10,
			BlockDuration:        time.Hour,
			ScoreWindow:          time.Hour,
			NotFoundThreshold:    20,
			NotFoundWindow:       5 * time.Minute,
			FailedLoginThreshold: 5,
			FailedLoginWindow:    time.Hour,
			InputValidation:      true,
			LogViolations:        true,
			AuditThreshold:       1000,
			AuditWindow:          time.Hour,
			LoginPaths:           []string{"/api/v1/auth/login"},
			MonitorSchedule:      "@daily",
		},
	}
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	srv, err := New(nil, store.NewMemoryStore(), cfg)
	require.NoError(t, err)
	srv.Mount(func(api *gin.RouterGroup) {
		api.GET("/items", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"items": []string{}})
		})
	})
	return srv
}

func do(srv *Server, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":40000"
	resp := httptest.NewRecorder()
	srv.Engine.ServeHTTP(resp, req)
	return resp
}

func TestServerAllowsNormalTraffic(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp := do(srv, http.MethodGet, "/api/v1/items", "203.0.113.50")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "DENY", resp.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, resp.Header().Get("X-Request-ID"))
}

func TestServerRateLimitsSustainedTraffic(t *testing.T) {
	srv := newTestServer(t, testConfig())

	for i := 0; i < 60; i++ {
		resp := do(srv, http.MethodGet, "/api/v1/items", "203.0.113.51")
		require.Equal(t, http.StatusOK, resp.Code, "request %d", i+1)
	}

	resp := do(srv, http.MethodGet, "/api/v1/items", "203.0.113.51")
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "60", resp.Header().Get("Retry-After"))

	// A different client is unaffected.
	other := do(srv, http.MethodGet, "/api/v1/items", "203.0.113.52")
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestServerBlocksInjectionAttempts(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp := do(srv, http.MethodGet, "/api/v1/items?id=1%27%20OR%20%271%27%3D%271", "203.0.113.53")

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, resp.Body.String())
}

func TestServerBansProbingClients(t *testing.T) {
	srv := newTestServer(t, testConfig())

	for i := 0; i < 10; i++ {
		resp := do(srv, http.MethodGet, "/wp-admin/setup.php", "203.0.113.54")
		require.Equal(t, http.StatusForbidden, resp.Code, "probe %d", i+1)
	}

	// Ban is now live; even clean endpoints are refused.
	resp := do(srv, http.MethodGet, "/api/v1/items", "203.0.113.54")
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestServerWhitelistAlwaysAdmits(t *testing.T) {
	cfg := testConfig()
	cfg.Security.IPWhitelist = []string{"10.0.0.0/8"}
	cfg.Security.IPBlacklist = []string{"10.0.0.0/8"}
	cfg.Security.RateLimitPerMinute = 1
	srv := newTestServer(t, cfg)

	for i := 0; i < 20; i++ {
		resp := do(srv, http.MethodGet, "/api/v1/items?q=%27%20OR%201%3D1--", "10.20.30.40")
		require.Equal(t, http.StatusOK, resp.Code, "request %d", i+1)
	}
}

func TestServerCleanRequestLeavesNoState(t *testing.T) {
	srv := newTestServer(t, testConfig())

	// Two identical clean requests behave identically; admission state
	// from the first must not change the outcome of the second.
	first := do(srv, http.MethodGet, "/api/v1/items", "203.0.113.55")
	second := do(srv, http.MethodGet, "/api/v1/items", "203.0.113.55")

	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, http.StatusOK, second.Code)
}

func TestServerOpsEndpointsBypassPipeline(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimitPerMinute = 1
	srv := newTestServer(t, cfg)

	for i := 0; i < 10; i++ {
		resp := do(srv, http.MethodGet, "/api/v1/health", "203.0.113.56")
		require.Equal(t, http.StatusOK, resp.Code)
	}

	metricsResp := do(srv, http.MethodGet, "/metrics", "203.0.113.56")
	assert.Equal(t, http.StatusOK, metricsResp.Code)
}

func TestServerUnknownRoute(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp := do(srv, http.MethodGet, "/api/v1/does-not-exist", "203.0.113.57")

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"error":"route not found"}`, resp.Body.String())
}

func TestServerInvalidCIDRFailsConstruction(t *testing.T) {
	cfg := testConfig()
	cfg.Security.IPWhitelist = []string{"not-a-cidr"}

	_, err := New(nil, store.NewMemoryStore(), cfg)
	assert.Error(t, err)
}
