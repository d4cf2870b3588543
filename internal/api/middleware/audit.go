package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hyuon7877/onesquare-sub001/internal/metrics"
	"github.com/hyuon7877/onesquare-sub001/internal/security"
)

// Audit wraps the rest of the pipeline: it records one structured event
// per request once a decision is made, and feeds the 404-flood and
// failed-login trackers from the observed response status.
func Audit(a *security.AuditLogger, d *security.Detector, loginPaths []string) gin.HandlerFunc {
	logins := make(map[string]struct{}, len(loginPaths))
	for _, p := range loginPaths {
		logins[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		metrics.IncEvaluated()

		c.Next()

		id := GetIdentity(c)
		status := c.Writer.Status()
		reason := c.GetString(ReasonKey)
		if reason == "" {
			reason = security.ReasonAllowed
		}

		a.Record(c.Request.Context(), security.Event{
			Timestamp: start,
			ClientKey: id.Key,
			Method:    c.Request.Method,
			Path:      SanitizePath(c.Request.URL.Path),
			Status:    status,
			Reason:    reason,
			Duration:  time.Since(start),
		})

		if IsAllowlisted(c) || d == nil {
			return
		}
		switch status {
		case http.StatusNotFound:
			d.Record404(c.Request.Context(), id)
		case http.StatusUnauthorized:
			if _, ok := logins[c.Request.URL.Path]; ok {
				d.RecordFailedLogin(c.Request.Context(), id)
			}
		}
	}
}
