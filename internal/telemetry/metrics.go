package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ServerMetrics holds metric instruments for HTTP server telemetry.
// Initialize once at server startup and reuse throughout the application lifecycle.
type ServerMetrics struct {
	RequestCounter    metric.Int64Counter       // Total HTTP requests
	RequestDuration   metric.Float64Histogram   // HTTP request latency
	ActiveConnections metric.Int64UpDownCounter // Active HTTP connections
	ErrorCounter      metric.Int64Counter       // Total HTTP errors (5xx)
	RoleSwitchCounter metric.Int64Counter       // Role switch operations
	AuthzDenials      metric.Int64Counter       // Denied authorization checks
}

// NewServerMetrics creates a new ServerMetrics instance with pre-configured instruments.
// Call this during server initialization and store the returned metrics globally.
func NewServerMetrics() (*ServerMetrics, error) {
	meter := otel.Meter("reachapi/http")

	// Counter: Total number of HTTP requests
	requestCounter, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	// Histogram: HTTP request duration in milliseconds
	// Use for: Latency percentiles (p50, p95, p99)
	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, err
	}

	// UpDownCounter: Number of active HTTP connections
	activeConnections, err := meter.Int64UpDownCounter(
		"http.server.active_connections",
		metric.WithDescription("Number of active HTTP connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	// Counter: Total number of HTTP errors (5xx responses)
	errorCounter, err := meter.Int64Counter(
		"http.server.error.count",
		metric.WithDescription("Total number of HTTP server errors (5xx)"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	// Counter: Role switch operations, labelled by target role and outcome
	roleSwitchCounter, err := meter.Int64Counter(
		"iam.role_switch.count",
		metric.WithDescription("Total number of role switch operations"),
		metric.WithUnit("{switch}"),
	)
	if err != nil {
		return nil, err
	}

	// Counter: Denied authorization checks, labelled by object and capability
	authzDenials, err := meter.Int64Counter(
		"iam.authz.denied.count",
		metric.WithDescription("Total number of denied authorization checks"),
		metric.WithUnit("{denial}"),
	)
	if err != nil {
		return nil, err
	}

	return &ServerMetrics{
		RequestCounter:    requestCounter,
		RequestDuration:   requestDuration,
		ActiveConnections: activeConnections,
		ErrorCounter:      errorCounter,
		RoleSwitchCounter: roleSwitchCounter,
		AuthzDenials:      authzDenials,
	}, nil
}

// RecordRequest records an HTTP request with method, route, status, and duration.
// Call this at the end of each request handler (typically in middleware).
func (m *ServerMetrics) RecordRequest(ctx context.Context, method, route, status string, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String("http.status_code", status),
	)

	// Increment request counter
	m.RequestCounter.Add(ctx, 1, attrs)

	// Record request duration
	m.RequestDuration.Record(ctx, durationMs, attrs)

	// Increment error counter if 5xx status
	if len(status) > 0 && status[0] == '5' {
		m.ErrorCounter.Add(ctx, 1, attrs)
	}
}

// RecordRoleSwitch records a role switch attempt.
func (m *ServerMetrics) RecordRoleSwitch(ctx context.Context, targetRole string, ok bool) {
	m.RoleSwitchCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role.target", targetRole),
		attribute.Bool("role.switch_ok", ok),
	))
}

// RecordAuthzDenial records a denied authorization check.
func (m *ServerMetrics) RecordAuthzDenial(ctx context.Context, obj, act string) {
	m.AuthzDenials.Add(ctx, 1, metric.WithAttributes(
		attribute.String("authz.object", obj),
		attribute.String("authz.action", act),
	))
}
