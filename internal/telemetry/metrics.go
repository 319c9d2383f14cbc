package telemetry

import "github.com/prometheus/client_golang/prometheus"

// EventsIngestedTotal counts device events accepted into the event log,
// labelled by event_type. Duplicates (rejected by the unique constraint)
// are not counted here.
var EventsIngestedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "traqr",
		Subsystem: "eventlog",
		Name:      "ingested_total",
		Help:      "Total number of device events accepted into the event log.",
	},
	[]string{"event_type"},
)

// EventsDuplicateTotal counts events dropped as duplicates of an
// already-stored (device_id, event_id) pair.
var EventsDuplicateTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "traqr",
		Subsystem: "eventlog",
		Name:      "duplicate_total",
		Help:      "Total number of device events dropped as duplicates.",
	},
)

// ProjectionFailuresTotal counts projector errors, which are always
// swallowed at the ingress boundary but still worth alerting on.
var ProjectionFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "traqr",
		Subsystem: "projector",
		Name:      "failures_total",
		Help:      "Total number of projector errors, by pipeline.",
	},
	[]string{"pipeline"},
)

// CanonicalGuardSkippedTotal counts config events skipped because the
// emitting device was not the store's canonical device.
var CanonicalGuardSkippedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "traqr",
		Subsystem: "projector",
		Name:      "canonical_guard_skipped_total",
		Help:      "Total number of config events skipped by the canonical-device guard.",
	},
)

// CommandsDeliveredTotal counts command queue fetches, by command_type.
var CommandsDeliveredTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "traqr",
		Subsystem: "commandqueue",
		Name:      "delivered_total",
		Help:      "Total number of commands delivered to devices.",
	},
	[]string{"command_type"},
)

// CommandsAckedTotal counts terminal command acknowledgements, by status.
var CommandsAckedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "traqr",
		Subsystem: "commandqueue",
		Name:      "acked_total",
		Help:      "Total number of command acknowledgements, by terminal status.",
	},
	[]string{"status"},
)

// CommandsEnqueuedTotal counts commands created, by command_type.
var CommandsEnqueuedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "traqr",
		Subsystem: "commandqueue",
		Name:      "enqueued_total",
		Help:      "Total number of commands enqueued, by command_type.",
	},
	[]string{"command_type"},
)

// CommandsExpiredTotal counts commands transitioned queued -> expired by the
// worker's expiry sweep.
var CommandsExpiredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "traqr",
		Subsystem: "commandqueue",
		Name:      "expired_total",
		Help:      "Total number of commands expired by the worker's stale-command sweep.",
	},
)

// WebhooksReceivedTotal counts delivery-platform webhook deliveries, by
// provider and outcome.
var WebhooksReceivedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "traqr",
		Subsystem: "webhook",
		Name:      "received_total",
		Help:      "Total number of delivery-platform webhook requests, by provider and outcome.",
	},
	[]string{"provider", "outcome"},
)

// WebhookProcessingDuration tracks webhook handling latency by provider.
var WebhookProcessingDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "traqr",
		Subsystem: "webhook",
		Name:      "processing_duration_seconds",
		Help:      "Delivery-platform webhook processing duration in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"provider"},
)

// EntitlementDeniedTotal counts sync calls rejected by the entitlement gate.
var EntitlementDeniedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "traqr",
		Subsystem: "entitlement",
		Name:      "denied_total",
		Help:      "Total number of device-authenticated calls denied for lack of an active entitlement.",
	},
	[]string{"endpoint"},
)

// All returns all TraqrPOSCloud-specific metrics for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		EventsIngestedTotal,
		EventsDuplicateTotal,
		ProjectionFailuresTotal,
		CanonicalGuardSkippedTotal,
		CommandsDeliveredTotal,
		CommandsAckedTotal,
		CommandsEnqueuedTotal,
		CommandsExpiredTotal,
		WebhooksReceivedTotal,
		WebhookProcessingDuration,
		EntitlementDeniedTotal,
	}
}
