package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Import pipeline
	MetricParseDuration = "gpx.parse_duration"
	MetricPointsDropped = "gpx.points_dropped"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricRidesImported  = "business.rides_imported"
	MetricMetersRecorded = "business.meters_recorded"
)
