package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/hyuon7877/onesquare-sub001/internal/security"
)

const (
	// IdentityKey holds the resolved security.Identity in the gin context.
	IdentityKey = "clientIdentity"
	// AllowlistedKey marks requests from whitelisted CIDRs; later
	// pipeline stages must skip them entirely.
	AllowlistedKey = "allowlisted"
	// ReasonKey carries the pipeline decision reason for auditing.
	ReasonKey = "decisionReason"
)

// Identity resolves the per-request client identity before any stateful
// check runs.
func Identity(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := security.IdentityFromRequest(c.Request, c.ClientIP(), jwtSecret)
		c.Set(IdentityKey, id)
		c.Next()
	}
}

// GetIdentity returns the resolved identity, deriving one from the
// client IP if the identity middleware did not run.
func GetIdentity(c *gin.Context) security.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if id, ok := v.(security.Identity); ok {
			return id
		}
	}
	ip := c.ClientIP()
	return security.Identity{Key: "ip:" + ip, IP: ip}
}

// IsAllowlisted reports whether the request bypassed the pipeline via
// the IP whitelist.
func IsAllowlisted(c *gin.Context) bool {
	return c.GetBool(AllowlistedKey)
}
