package security

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/hyuon7877/onesquare-sub001/internal/logger"
	"github.com/hyuon7877/onesquare-sub001/internal/metrics"
	"github.com/hyuon7877/onesquare-sub001/internal/models"
)

// Monitor aggregates persisted security events into a daily threat
// report. It replaces the old process-wide analyzer singleton with a
// constructed component so it can be wired and tested like everything
// else.
type Monitor struct {
	db       *gorm.DB
	cron     *cron.Cron
	schedule string
}

// NewMonitor builds a Monitor running on the given cron schedule.
func NewMonitor(db *gorm.DB, schedule string) *Monitor {
	return &Monitor{db: db, cron: cron.New(), schedule: schedule}
}

// Start schedules the periodic report.
func (m *Monitor) Start() error {
	if _, err := m.cron.AddFunc(m.schedule, func() { m.RunReport(time.Now()) }); err != nil {
		return err
	}
	m.cron.Start()
	return nil
}

// Stop halts the scheduler.
func (m *Monitor) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

type kindCount struct {
	Kind string
	N    int64
}

// RunReport aggregates the 24 hours before now, persists a ThreatReport
// row, logs a summary and refreshes the report gauges.
func (m *Monitor) RunReport(now time.Time) (*models.ThreatReport, error) {
	since := now.Add(-24 * time.Hour)

	var counts []kindCount
	if err := m.db.Model(&models.SecurityEvent{}).
		Select("kind, count(*) as n").
		Where("created_at > ?", since).
		Group("kind").
		Scan(&counts).Error; err != nil {
		logger.Log().WithField("error", err.Error()).Warn("threat report query failed")
		return nil, err
	}

	var total, blocked int64
	byKind := make(map[string]int64, len(counts))
	for _, c := range counts {
		byKind[c.Kind] = c.N
		total += c.N
		if c.Kind != ReasonAllowed {
			blocked += c.N
		}
		metrics.SetDailyEvents(c.Kind, float64(c.N))
	}

	var critical int64
	if err := m.db.Model(&models.SecurityEvent{}).
		Where("created_at > ? AND severity = ?", since, "critical").
		Count(&critical).Error; err != nil {
		logger.Log().WithField("error", err.Error()).Warn("threat report query failed")
	}

	details, _ := json.Marshal(byKind)
	report := models.ThreatReport{
		UUID:      uuid.NewString(),
		Day:       now.Format("2006-01-02"),
		Total:     total,
		Blocked:   blocked,
		Critical:  critical,
		Details:   string(details),
		CreatedAt: now,
	}
	if err := m.db.Create(&report).Error; err != nil {
		logger.Log().WithField("error", err.Error()).Warn("failed to persist threat report")
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"day":      report.Day,
		"total":    total,
		"blocked":  blocked,
		"critical": critical,
	}).Info("daily threat report")

	return &report, nil
}
