package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsEvaluated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "onesquare_admission_requests_total",
		Help: "Total number of requests evaluated by the admission pipeline",
	})
	requestsBlocked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "onesquare_admission_blocked_total",
		Help: "Total number of requests rejected by the admission pipeline",
	}, []string{"reason"})
	bansCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "onesquare_admission_bans_total",
		Help: "Total number of automatic bans created",
	})
	dailyEvents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "onesquare_threat_report_events",
		Help: "Security events counted by the last daily threat report",
	}, []string{"kind"})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(requestsEvaluated, requestsBlocked, bansCreated, dailyEvents)
}

// IncEvaluated increments the evaluated requests counter.
func IncEvaluated() { requestsEvaluated.Inc() }

// IncBlocked increments the blocked requests counter for a reason label.
func IncBlocked(reason string) { requestsBlocked.WithLabelValues(reason).Inc() }

// IncBan increments the automatic ban counter.
func IncBan() { bansCreated.Inc() }

// SetDailyEvents records the daily report count for an event kind.
func SetDailyEvents(kind string, n float64) { dailyEvents.WithLabelValues(kind).Set(n) }
