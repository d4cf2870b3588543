package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ONESQ_DB_PATH", t.TempDir()+"/gateway.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 60, cfg.Security.RateLimitPerMinute)
	assert.Equal(t, 10, cfg.Security.RateLimitBurst)
	assert.Equal(t, 10, cfg.Security.IDSThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Security.BlockDuration)
	assert.True(t, cfg.Security.InputValidation)
	assert.True(t, cfg.Security.LogViolations)
	assert.Empty(t, cfg.Security.IPWhitelist)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ONESQ_DB_PATH", t.TempDir()+"/gateway.db")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")
	t.Setenv("RATE_LIMIT_BURST", "20")
	t.Setenv("IDS_THRESHOLD", "5")
	t.Setenv("IDS_BLOCK_DURATION_HOURS", "1")
	t.Setenv("IP_WHITELIST", "10.0.0.0/8, 192.168.1.1")
	t.Setenv("SECURITY_INPUT_VALIDATION", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Security.RateLimitPerMinute)
	assert.Equal(t, 20, cfg.Security.RateLimitBurst)
	assert.Equal(t, 5, cfg.Security.IDSThreshold)
	assert.Equal(t, time.Hour, cfg.Security.BlockDuration)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.1"}, cfg.Security.IPWhitelist)
	assert.False(t, cfg.Security.InputValidation)
}

func TestLoadRejectsBadCIDR(t *testing.T) {
	t.Setenv("ONESQ_DB_PATH", t.TempDir()+"/gateway.db")
	t.Setenv("IP_BLACKLIST", "not-a-cidr")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "IP_BLACKLIST")
}
