package middleware

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hyuon7877/onesquare-sub001/internal/metrics"
	"github.com/hyuon7877/onesquare-sub001/internal/security"
)

// IntrusionGate enforces the ordered intrusion stages: whitelist,
// blacklist, live ban, suspicious path. The whitelist short-circuits the
// rest of the pipeline via the allowlisted context flag.
func IntrusionGate(d *security.Detector) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := GetIdentity(c)
		ip := net.ParseIP(c.ClientIP())

		bypass, err := d.Check(c.Request.Context(), id, ip, c.Request.URL.Path)
		if bypass {
			c.Set(AllowlistedKey, true)
			c.Next()
			return
		}
		var denied *security.AccessDenied
		if errors.As(err, &denied) {
			metrics.IncBlocked(denied.Reason)
			c.Set(ReasonKey, denied.Reason)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": denied.Message})
			return
		}
		c.Next()
	}
}

// Validate rejects requests carrying known attack signatures. The
// response body is generic so attacker input is never reflected.
func Validate(v *security.Validator, logViolations bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.Enabled() || IsAllowlisted(c) {
			c.Next()
			return
		}
		if verr := v.Validate(c.Request); verr != nil {
			if logViolations {
				GetRequestLogger(c).WithFields(map[string]interface{}{
					"client":   GetIdentity(c).Key,
					"path":     SanitizePath(c.Request.URL.Path),
					"rule":     verr.Rule,
					"location": verr.Location,
				}).Warn("request blocked by validator")
			}
			metrics.IncBlocked(security.ReasonValidation)
			c.Set(ReasonKey, security.ReasonValidation)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		c.Next()
	}
}

// RateLimit enforces the per-identity window and burst counters.
func RateLimit(rl *security.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAllowlisted(c) {
			c.Next()
			return
		}
		err := rl.Check(c.Request.Context(), GetIdentity(c), c.Request.URL.Path)
		var limited *security.RateLimited
		if errors.As(err, &limited) {
			reason := limited.ReasonLabel()
			metrics.IncBlocked(reason)
			c.Set(ReasonKey, reason)
			c.Header("Retry-After", strconv.Itoa(security.RetryAfterSeconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
