package middleware

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersConfig holds configuration for the security headers middleware.
type SecurityHeadersConfig struct {
	// IsDevelopment enables less strict settings for local development
	IsDevelopment bool
	// CustomCSPDirectives allows adding extra CSP directives
	CustomCSPDirectives map[string]string
}

// DefaultSecurityHeadersConfig returns a secure default configuration.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		IsDevelopment:       false,
		CustomCSPDirectives: nil,
	}
}

// SecurityHeaders returns middleware that sets security-related response
// headers. The policy is a pure function of (request-is-secure,
// debug-mode). A header already set by the application is never
// overwritten.
func SecurityHeaders(cfg SecurityHeadersConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		setIfAbsent(c, "Content-Security-Policy", buildCSP(cfg))

		// HSTS only makes sense over HTTPS; browsers ignore it on plain
		// HTTP anyway.
		if isSecure(c) {
			setIfAbsent(c, "Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		}

		// Prevent clickjacking; DENY rejects any framing.
		setIfAbsent(c, "X-Frame-Options", "DENY")

		// Prevent MIME sniffing.
		setIfAbsent(c, "X-Content-Type-Options", "nosniff")

		// Legacy browser XSS filter; mode=block suppresses the response
		// entirely on detection.
		setIfAbsent(c, "X-XSS-Protection", "1; mode=block")

		// Full URL for same-origin navigation, origin only cross-origin.
		setIfAbsent(c, "Referrer-Policy", "strict-origin-when-cross-origin")

		// Deny-by-default browser feature policy.
		setIfAbsent(c, "Permissions-Policy", buildPermissionsPolicy())

		setIfAbsent(c, "Cross-Origin-Opener-Policy", "same-origin")
		setIfAbsent(c, "Cross-Origin-Resource-Policy", "same-origin")

		c.Next()
	}
}

func setIfAbsent(c *gin.Context, name, value string) {
	if c.Writer.Header().Get(name) == "" {
		c.Header(name, value)
	}
}

func isSecure(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
}

// buildCSP constructs the Content-Security-Policy header value.
func buildCSP(cfg SecurityHeadersConfig) string {
	directives := map[string]string{
		"default-src": "'self'",
		"script-src":  "'self'",
		"style-src":   "'self' 'unsafe-inline'",
		"img-src":     "'self' data: https:",
		"font-src":    "'self' data:",
		"connect-src": "'self'",
		"frame-src":   "'none'",
		"object-src":  "'none'",
		"base-uri":    "'self'",
		"form-action": "'self'",
	}

	// In development, allow more sources for hot reloading, etc.
	if cfg.IsDevelopment {
		directives["script-src"] = "'self' 'unsafe-inline' 'unsafe-eval'"
		directives["connect-src"] = "'self' ws: wss:"
	}

	for key, value := range cfg.CustomCSPDirectives {
		directives[key] = value
	}

	// Stable directive order so the header value is identical across
	// requests and cache-friendly.
	keys := make([]string, 0, len(directives))
	for directive := range directives {
		keys = append(keys, directive)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, directive := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", directive, directives[directive]))
	}

	return strings.Join(parts, "; ")
}

// buildPermissionsPolicy constructs the Permissions-Policy header value.
func buildPermissionsPolicy() string {
	policies := []string{
		"accelerometer=()",
		"camera=()",
		"geolocation=()",
		"gyroscope=()",
		"magnetometer=()",
		"microphone=()",
		"payment=()",
		"usb=()",
	}

	return strings.Join(policies, ", ")
}
