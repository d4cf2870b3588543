package security

import "fmt"

// Decision reasons recorded on events and metrics labels.
const (
	ReasonAllowed        = "allowed"
	ReasonValidation     = "validation_block"
	ReasonRateLimited    = "rate_limited"
	ReasonBurstLimited   = "burst_limited"
	ReasonBlacklisted    = "blacklisted"
	ReasonAutoBlocked    = "auto_blocked"
	ReasonSuspiciousPath = "suspicious_path"
)

// ValidationError reports a malicious pattern found in a request.
// The matched payload itself is never carried so it cannot leak into
// responses or logs.
type ValidationError struct {
	Rule     string
	Location string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s in %s", e.Rule, e.Location)
}

// AccessDenied reports a blacklist, ban or suspicious-path rejection.
// Message is the client-facing text; Reason is the machine label.
type AccessDenied struct {
	Reason  string
	Message string
}

func (e *AccessDenied) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// RateLimited reports an exceeded window or burst counter.
type RateLimited struct {
	Burst bool
}

func (e *RateLimited) Error() string {
	if e.Burst {
		return "rate limited: burst window exceeded"
	}
	return "rate limited: window exceeded"
}

// Reason returns the machine label for this rejection.
func (e *RateLimited) ReasonLabel() string {
	if e.Burst {
		return ReasonBurstLimited
	}
	return ReasonRateLimited
}
