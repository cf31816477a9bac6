// Package metrics defines and registers all custom Prometheus metrics for
// the avatar rendering service. It is the single source of truth for
// metric names, labels, and help strings. Every metric here is created with
// promauto and registered once at package init; the render coordinator's
// job-event counter lives in internal/infrastructure/render instead.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "avatar_render"

// RequestsTotal counts every GET /avatar/{type}/{username}.webp request.
// Labels:
//   - view: "avatar", "sprite", or "thumbnail" (aliases resolved), or
//     "unknown" for an unrecognised {type}
//   - outcome: "cache_hit", "rendered", "redirect", "not_found", "error"
var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Total number of avatar requests, by view and outcome.",
	},
	[]string{"view", "outcome"},
)

// RequestDuration measures end-to-end latency of GET /avatar/..., from
// request entry to response write.
// Label:
//   - outcome: same as RequestsTotal
var RequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Duration of avatar requests end-to-end.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

// PartFetchTotal is the counter for Part-Image Loader fetch outcomes. It is
// registered but nothing in this service increments it; the loader's own
// counters are exposed through partcache.Loader.Stats.
// Label:
//   - result: "memory_hit", "disk_hit", "origin_hit", "origin_miss", "breaker_open"
var PartFetchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "part_fetch_total",
		Help:      "Total number of part-image lookups, by tier and result.",
	},
	[]string{"result"},
)

// CircuitBreakerState reports the current state of each named breaker as a
// gauge (0=closed, 1=half_open, 2=open) so it can be graphed over time.
// Label:
//   - name: "object_store" or "part_cdn"
var CircuitBreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state per dependency (0=closed, 1=half_open, 2=open).",
	},
	[]string{"name"},
)
