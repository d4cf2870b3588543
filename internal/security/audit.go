package security

import (
	"context"
	"fmt"
	"time"

	"github.com/containrrr/shoutrrr"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hyuon7877/onesquare-sub001/internal/config"
	"github.com/hyuon7877/onesquare-sub001/internal/logger"
	"github.com/hyuon7877/onesquare-sub001/internal/models"
	"github.com/hyuon7877/onesquare-sub001/internal/store"
)

// Event is one pipeline decision, recorded for every request.
type Event struct {
	Timestamp time.Time
	ClientKey string
	Method    string
	Path      string
	Status    int
	Reason    string
	Duration  time.Duration
}

// AuditLogger turns pipeline decisions into structured events and
// watches for abnormal (status, path) frequency. It is report-only: it
// never bans anyone itself.
type AuditLogger struct {
	store     store.Store
	db        *gorm.DB
	threshold int64
	window    time.Duration
	alertURLs []string
}

// NewAuditLogger builds an AuditLogger. db may be nil to disable
// persistence; alert URLs may be empty to disable external alerting.
func NewAuditLogger(s store.Store, db *gorm.DB, cfg config.SecurityConfig) *AuditLogger {
	return &AuditLogger{
		store:     s,
		db:        db,
		threshold: int64(cfg.AuditThreshold),
		window:    cfg.AuditWindow,
		alertURLs: cfg.AlertURLs,
	}
}

// Record emits the per-request event and updates the frequency tracker.
func (a *AuditLogger) Record(ctx context.Context, ev Event) {
	severity := severityFor(ev)
	entry := logger.WithFields(map[string]interface{}{
		"client":   ev.ClientKey,
		"method":   ev.Method,
		"path":     ev.Path,
		"status":   ev.Status,
		"reason":   ev.Reason,
		"duration": ev.Duration.String(),
	})
	if severity == "warning" {
		entry.Warn("security event")
	} else {
		entry.Info("security event")
	}

	a.persist(ev, severity, "")
	a.trackFrequency(ctx, ev)
}

func severityFor(ev Event) string {
	if ev.Reason != ReasonAllowed {
		return "warning"
	}
	return "info"
}

func (a *AuditLogger) persist(ev Event, severity, details string) {
	if a.db == nil {
		return
	}
	rec := models.SecurityEvent{
		UUID:      uuid.NewString(),
		Kind:      ev.Reason,
		Severity:  severity,
		ClientKey: ev.ClientKey,
		Method:    ev.Method,
		Path:      ev.Path,
		Status:    ev.Status,
		Reason:    ev.Reason,
		Duration:  ev.Duration.Microseconds(),
		Details:   details,
		CreatedAt: ev.Timestamp,
	}
	if err := a.db.Create(&rec).Error; err != nil {
		logger.Log().WithField("error", err.Error()).Warn("failed to persist security event")
	}
}

// trackFrequency counts (status, path) pairs; the exact crossing of the
// threshold raises one critical event so operators are not flooded.
func (a *AuditLogger) trackFrequency(ctx context.Context, ev Event) {
	key := fmt.Sprintf("%s%d:%s", store.KeyAuditFreq, ev.Status, ev.Path)
	n, err := a.store.Increment(ctx, key, a.window)
	if err != nil {
		logger.Log().WithField("error", err.Error()).Warn("audit store unavailable")
		return
	}
	if n != a.threshold {
		return
	}

	details := fmt.Sprintf("status %d on %s seen %d times within %s", ev.Status, ev.Path, n, a.window)
	logger.WithFields(map[string]interface{}{
		"status": ev.Status,
		"path":   ev.Path,
		"count":  n,
		"window": a.window.String(),
	}).Error("abnormal response frequency")

	critical := ev
	critical.Reason = "frequency_escalation"
	a.persist(critical, "critical", details)
	a.alert(details)
}

func (a *AuditLogger) alert(message string) {
	for _, rawURL := range a.alertURLs {
		url := rawURL
		go func() {
			if err := shoutrrr.Send(url, message); err != nil {
				logger.Log().WithField("error", err.Error()).Warn("failed to send alert")
			}
		}()
	}
}
