package security

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/yl2chen/cidranger"

	"github.com/hyuon7877/onesquare-sub001/internal/config"
	"github.com/hyuon7877/onesquare-sub001/internal/logger"
	"github.com/hyuon7877/onesquare-sub001/internal/metrics"
	"github.com/hyuon7877/onesquare-sub001/internal/store"
)

// suspiciousPathSignatures are scanner and probe paths that indicate
// automated reconnaissance rather than legitimate traffic.
var suspiciousPathSignatures = []string{
	"/admin/", "/wp-admin", "/wp-login", "/administrator",
	"/phpmyadmin", "/.env", "/.git", "/.aws", "/.ssh",
	"/config.php", "/xmlrpc.php", "/cgi-bin", "/backup",
}

// Detector keeps per-client threat state: CIDR allow/deny membership,
// suspicion scoring with auto-ban escalation, and the 404-flood and
// failed-login trackers.
//
// Static CIDR checks never touch the store; everything dynamic fails
// open on store errors so a cache outage does not block all traffic.
type Detector struct {
	store         store.Store
	allow         cidranger.Ranger
	deny          cidranger.Ranger
	threshold     int64
	banDuration   time.Duration
	scoreWindow   time.Duration
	notFoundMax   int64
	notFoundTTL   time.Duration
	loginFailMax  int64
	loginFailTTL  time.Duration
	logViolations bool
}

// NewDetector builds a Detector. CIDR lists are parsed once; a bare IP
// is widened to a /32 (or /128) range.
func NewDetector(s store.Store, cfg config.SecurityConfig) (*Detector, error) {
	allow, err := buildRanger(cfg.IPWhitelist)
	if err != nil {
		return nil, fmt.Errorf("parse IP whitelist: %w", err)
	}
	deny, err := buildRanger(cfg.IPBlacklist)
	if err != nil {
		return nil, fmt.Errorf("parse IP blacklist: %w", err)
	}

	return &Detector{
		store:         s,
		allow:         allow,
		deny:          deny,
		threshold:     int64(cfg.IDSThreshold),
		banDuration:   cfg.BlockDuration,
		scoreWindow:   cfg.ScoreWindow,
		notFoundMax:   int64(cfg.NotFoundThreshold),
		notFoundTTL:   cfg.NotFoundWindow,
		loginFailMax:  int64(cfg.FailedLoginThreshold),
		loginFailTTL:  cfg.FailedLoginWindow,
		logViolations: cfg.LogViolations,
	}, nil
}

func buildRanger(entries []string) (cidranger.Ranger, error) {
	ranger := cidranger.NewPCTrieRanger()
	for _, entry := range entries {
		cidr := entry
		if !strings.Contains(cidr, "/") {
			if ip := net.ParseIP(cidr); ip != nil && ip.To4() != nil {
				cidr += "/32"
			} else {
				cidr += "/128"
			}
		}
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", entry, err)
		}
		if err := ranger.Insert(cidranger.NewBasicRangerEntry(*network)); err != nil {
			return nil, fmt.Errorf("entry %q: %w", entry, err)
		}
	}
	return ranger, nil
}

// Check runs the ordered intrusion stages for one request.
// bypass=true means the client is allowlisted and every later pipeline
// stage must be skipped. A non-nil error is always *AccessDenied.
func (d *Detector) Check(ctx context.Context, id Identity, ip net.IP, path string) (bypass bool, err error) {
	if ip != nil {
		if ok, rErr := d.allow.Contains(ip); rErr == nil && ok {
			return true, nil
		}
		if ok, rErr := d.deny.Contains(ip); rErr == nil && ok {
			d.logBlock(id, path, ReasonBlacklisted)
			return false, &AccessDenied{Reason: ReasonBlacklisted, Message: "Blacklisted IP"}
		}
	}

	if d.isBanned(ctx, id) {
		d.logBlock(id, path, ReasonAutoBlocked)
		return false, &AccessDenied{Reason: ReasonAutoBlocked, Message: "Auto-blocked"}
	}

	if matchesSuspiciousPath(path) {
		d.raiseSuspicion(ctx, id, "suspicious path "+path)
		d.logBlock(id, path, ReasonSuspiciousPath)
		return false, &AccessDenied{Reason: ReasonSuspiciousPath, Message: "Forbidden"}
	}

	return false, nil
}

func matchesSuspiciousPath(path string) bool {
	lower := strings.ToLower(path)
	for _, sig := range suspiciousPathSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// isBanned consults both ban namespaces: score escalations land in
// auto_block, failed-login bans in banned_ip.
func (d *Detector) isBanned(ctx context.Context, id Identity) bool {
	for _, prefix := range []string{store.KeyAutoBlock, store.KeyBannedIP} {
		banned, err := store.Exists(ctx, d.store, prefix+id.Key)
		if err != nil {
			d.failOpen(err, id)
			continue
		}
		if banned {
			return true
		}
	}
	return false
}

// raiseSuspicion adds one point to the client's score and creates a ban
// once the score reaches the threshold. The score is deliberately not
// reset when the ban is created; it expires on its own window.
func (d *Detector) raiseSuspicion(ctx context.Context, id Identity, reason string) {
	score, err := d.store.Increment(ctx, store.KeySuspicious+id.Key, d.scoreWindow)
	if err != nil {
		d.failOpen(err, id)
		return
	}
	if score >= d.threshold {
		d.ban(ctx, store.KeyAutoBlock, id, reason)
	}
}

func (d *Detector) ban(ctx context.Context, prefix string, id Identity, reason string) {
	if err := d.store.Set(ctx, prefix+id.Key, reason, d.banDuration); err != nil {
		d.failOpen(err, id)
		return
	}
	metrics.IncBan()
	logger.WithFields(map[string]interface{}{
		"client":   id.Key,
		"reason":   reason,
		"duration": d.banDuration.String(),
	}).Warn("client banned")
}

// Record404 feeds the 404-flood tracker. Once the flood threshold is
// crossed, every further 404 raises the suspicion score.
func (d *Detector) Record404(ctx context.Context, id Identity) {
	n, err := d.store.Increment(ctx, store.KeySuspicious+"404:"+id.Key, d.notFoundTTL)
	if err != nil {
		d.failOpen(err, id)
		return
	}
	if n > d.notFoundMax {
		d.raiseSuspicion(ctx, id, "404 flood")
	}
}

// RecordFailedLogin feeds the failed-login tracker. Reaching the
// threshold bans directly, bypassing the suspicion score.
func (d *Detector) RecordFailedLogin(ctx context.Context, id Identity) {
	n, err := d.store.Increment(ctx, store.KeySuspicious+"login:"+id.Key, d.loginFailTTL)
	if err != nil {
		d.failOpen(err, id)
		return
	}
	if n >= d.loginFailMax {
		d.ban(ctx, store.KeyBannedIP, id, "failed logins")
	}
}

func (d *Detector) logBlock(id Identity, path, reason string) {
	if !d.logViolations {
		return
	}
	logger.WithFields(map[string]interface{}{
		"client": id.Key,
		"path":   path,
		"reason": reason,
	}).Warn("request blocked")
}

func (d *Detector) failOpen(err error, id Identity) {
	logger.WithFields(map[string]interface{}{
		"client": id.Key,
		"error":  err.Error(),
	}).Warn("intrusion store unavailable, failing open")
}
