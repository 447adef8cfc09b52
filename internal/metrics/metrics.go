// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kidshield"

// Registry is the registry served on /metrics. It is separate from the
// default registry so tests and tools do not pick up stray collectors.
var Registry = prometheus.NewRegistry()

var (
	// Registrations counts registration attempts by outcome
	Registrations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Family registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Logins counts login attempts by outcome
	Logins = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// RuleUpserts counts successful rule writes by platform; see PlatformLabel
	RuleUpserts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_upserts_total",
			Help:      "Rule upserts by platform",
		},
		[]string{"platform"},
	)

	// UsageEvents counts recorded usage events by platform; see PlatformLabel.
	// Event kinds are free-form and are not a label.
	UsageEvents = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_events_total",
			Help:      "Usage events recorded by platform",
		},
		[]string{"platform"},
	)

	// PolicyLookups counts policy reads, split by whether the default was served
	PolicyLookups = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_lookups_total",
			Help:      "Policy reads by source (rule or default)",
		},
		[]string{"source"},
	)
)

// platformLabels are the platforms that get their own series. Platform names
// come from clients, so anything else is counted as "other".
var platformLabels = map[string]bool{
	"youtube":   true,
	"roblox":    true,
	"minecraft": true,
	"tiktok":    true,
	"instagram": true,
	"snapchat":  true,
	"fortnite":  true,
	"netflix":   true,
	"twitch":    true,
	"discord":   true,
}

// PlatformLabel maps a normalized platform name onto a bounded label value
func PlatformLabel(platform string) string {
	if platformLabels[platform] {
		return platform
	}
	return "other"
}

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
