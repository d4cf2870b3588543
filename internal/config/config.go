package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string
	RedisAddr    string
	JWTSecret    string
	Security     SecurityConfig
}

// SecurityConfig holds the knobs for the admission pipeline.
type SecurityConfig struct {
	// RateLimitPerMinute is the base per-minute limit for anonymous clients.
	// Authenticated clients get twice this value.
	RateLimitPerMinute int
	// RateLimitBurst bounds requests within a single second.
	RateLimitBurst int
	// HeavyPathLimit is the fixed per-minute limit for heavy endpoints.
	HeavyPathLimit int
	// HeavyPaths lists path prefixes treated as heavy (reports, exports).
	HeavyPaths []string
	// IDSThreshold is the suspicion score that triggers an automatic ban.
	IDSThreshold int
	// BlockDuration is how long an automatic ban lasts.
	BlockDuration time.Duration
	// ScoreWindow is the TTL of the accumulating suspicion score.
	ScoreWindow time.Duration
	// IPWhitelist/IPBlacklist are static CIDR lists checked before any
	// dynamic state.
	IPWhitelist []string
	IPBlacklist []string
	// NotFoundThreshold/NotFoundWindow configure the 404-flood tracker.
	NotFoundThreshold int
	NotFoundWindow    time.Duration
	// FailedLoginThreshold/FailedLoginWindow configure the failed-login
	// tracker; crossing the threshold bans directly.
	FailedLoginThreshold int
	FailedLoginWindow    time.Duration
	// InputValidation toggles the request payload validator.
	InputValidation bool
	// LogViolations enables verbose logging of blocked requests.
	LogViolations bool
	// AuditThreshold is the (status, path) frequency that raises a
	// critical alert event.
	AuditThreshold int
	// AuditWindow bounds the (status, path) frequency counters.
	AuditWindow time.Duration
	// AlertURLs are shoutrrr destinations for critical alerts.
	AlertURLs []string
	// LoginPaths are paths whose 401 responses count as failed logins.
	LoginPaths []string
	// MonitorSchedule is the cron spec for the daily threat report.
	MonitorSchedule string
}

// Load reads env vars and falls back to defaults so the gateway can boot
// with zero configuration. CIDR lists are validated here so a typo fails
// the process at startup rather than silently skipping a range.
func Load() (Config, error) {
	cfg := Config{
		Environment:  getEnv("ONESQ_ENV", "development"),
		HTTPPort:     getEnv("ONESQ_HTTP_PORT", "8080"),
		DatabasePath: getEnv("ONESQ_DB_PATH", filepath.Join("data", "gateway.db")),
		RedisAddr:    getEnv("ONESQ_REDIS_ADDR", ""),
		JWTSecret:    getEnv("ONESQ_JWT_SECRET", ""),
		Security: SecurityConfig{
			RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
			RateLimitBurst:       getEnvInt("RATE_LIMIT_BURST", 10),
			HeavyPathLimit:       getEnvInt("ONESQ_HEAVY_PATH_LIMIT", 10),
			HeavyPaths:           getEnvList("ONESQ_HEAVY_PATHS", []string{"/api/v1/reports", "/api/v1/export"}),
			IDSThreshold:         getEnvInt("IDS_THRESHOLD", 10),
			BlockDuration:        time.Duration(getEnvInt("IDS_BLOCK_DURATION_HOURS", 24)) * time.Hour,
			ScoreWindow:          time.Duration(getEnvInt("ONESQ_SCORE_WINDOW_MINUTES", 60)) * time.Minute,
			IPWhitelist:          getEnvList("IP_WHITELIST", nil),
			IPBlacklist:          getEnvList("IP_BLACKLIST", nil),
			NotFoundThreshold:    getEnvInt("ONESQ_404_THRESHOLD", 20),
			NotFoundWindow:       time.Duration(getEnvInt("ONESQ_404_WINDOW_MINUTES", 5)) * time.Minute,
			FailedLoginThreshold: getEnvInt("ONESQ_FAILED_LOGIN_THRESHOLD", 5),
			FailedLoginWindow:    time.Duration(getEnvInt("ONESQ_FAILED_LOGIN_WINDOW_MINUTES", 60)) * time.Minute,
			InputValidation:      getEnvBool("SECURITY_INPUT_VALIDATION", true),
			LogViolations:        getEnvBool("SECURITY_LOG_VIOLATIONS", true),
			AuditThreshold:       getEnvInt("ONESQ_AUDIT_THRESHOLD", 10),
			AuditWindow:          time.Duration(getEnvInt("ONESQ_AUDIT_WINDOW_MINUTES", 60)) * time.Minute,
			AlertURLs:            getEnvList("ONESQ_ALERT_URLS", nil),
			LoginPaths:           getEnvList("ONESQ_LOGIN_PATHS", []string{"/api/v1/auth/login"}),
			MonitorSchedule:      getEnv("ONESQ_MONITOR_SCHEDULE", "@daily"),
		},
	}

	for _, entry := range cfg.Security.IPWhitelist {
		if !isValidCIDR(entry) {
			return Config{}, fmt.Errorf("invalid IP_WHITELIST entry %q", entry)
		}
	}
	for _, entry := range cfg.Security.IPBlacklist {
		if !isValidCIDR(entry) {
			return Config{}, fmt.Errorf("invalid IP_BLACKLIST entry %q", entry)
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}

	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// isValidCIDR accepts either a bare IP or a CIDR range.
func isValidCIDR(entry string) bool {
	if ip := net.ParseIP(entry); ip != nil {
		return true
	}
	_, _, err := net.ParseCIDR(entry)
	return err == nil
}
