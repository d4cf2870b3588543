package security

import (
	"time"

	"github.com/hyuon7877/onesquare-sub001/internal/config"
)

func testSecurityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		RateLimitPerMinute:   60,
		RateLimitBurst:       10,
		HeavyPathLimit:       10,
		HeavyPaths:           []string{"/api/v1/reports"},
		IDSThreshold:         10,
		BlockDuration:        24 * time.Hour,
		ScoreWindow:          time.Hour,
		NotFoundThreshold:    20,
		NotFoundWindow:       5 * time.Minute,
		FailedLoginThreshold: 5,
		FailedLoginWindow:    time.Hour,
		InputValidation:      true,
		LogViolations:        true,
		AuditThreshold:       10,
		AuditWindow:          time.Hour,
		LoginPaths:           []string{"/api/v1/auth/login"},
		MonitorSchedule:      "@daily",
	}
}
