// Package metrics объявляет метрики Prometheus сервиса клубных привилегий.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CodesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubperks_codes_issued_total",
		Help: "Total codes issued by code type",
	}, []string{"code_type"})

	IssueFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubperks_code_issue_failures_total",
		Help: "Failed code issue attempts by reason",
	}, []string{"reason"})

	Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubperks_redemptions_total",
		Help: "Redemption attempts by outcome",
	}, []string{"outcome"})

	RedemptionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clubperks_redemption_duration_seconds",
		Help:    "Time to process a redemption transaction",
		Buckets: prometheus.DefBuckets,
	})

	LoyaltyPointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clubperks_loyalty_points_awarded_total",
		Help: "Total loyalty points credited by redemptions",
	})

	CodesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clubperks_codes_expired_total",
		Help: "Codes marked expired by the sweep",
	})

	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clubperks_outbox_events_published_total",
		Help: "Outbox events delivered to the broker",
	})
)

func label(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

// ObserveIssue учитывает результат выдачи кода.
func ObserveIssue(codeType, reason string) {
	if reason == "" {
		CodesIssued.WithLabelValues(label(codeType)).Inc()
		return
	}
	IssueFailures.WithLabelValues(label(reason)).Inc()
}

// ObserveRedemption учитывает результат погашения; outcome "ok" для успеха.
func ObserveRedemption(outcome string, points int64, duration time.Duration) {
	Redemptions.WithLabelValues(label(outcome)).Inc()
	RedemptionDuration.Observe(duration.Seconds())
	if points > 0 {
		LoyaltyPointsAwarded.Add(float64(points))
	}
}
