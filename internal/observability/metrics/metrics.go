package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	ClaimsCreatedTotal     metric.Int64Counter
	ConnectionsTotal       metric.Int64Counter
	SupplyPathTouchesTotal metric.Int64Counter
	VisibilityRequests     metric.Int64Counter
	FogRequests            metric.Int64Counter
	ChatBroadcastsTotal    metric.Int64Counter
	DBQueryDurationSeconds metric.Float64Histogram
	ActiveSubscribersGauge metric.Int64Gauge
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments once, using the
// globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("fogline")
		var err error
		m := &AppMetrics{}

		m.ClaimsCreatedTotal, err = meter.Int64Counter(
			"claims_created_total",
			metric.WithDescription("Total number of home claims created"),
			metric.WithUnit("{claim}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create claims_created_total: %v", err)
		}

		m.ConnectionsTotal, err = meter.Int64Counter(
			"connections_total",
			metric.WithDescription("Total number of connection requests and approvals"),
			metric.WithUnit("{connection}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create connections_total: %v", err)
		}

		m.SupplyPathTouchesTotal, err = meter.Int64Counter(
			"supply_path_touches_total",
			metric.WithDescription("Total number of successful supply-path touches"),
			metric.WithUnit("{touch}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create supply_path_touches_total: %v", err)
		}

		m.VisibilityRequests, err = meter.Int64Counter(
			"visibility_requests_total",
			metric.WithDescription("Total number of visibility computations"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create visibility_requests_total: %v", err)
		}

		m.FogRequests, err = meter.Int64Counter(
			"fog_requests_total",
			metric.WithDescription("Total number of fog computations"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create fog_requests_total: %v", err)
		}

		m.ChatBroadcastsTotal, err = meter.Int64Counter(
			"chat_broadcasts_total",
			metric.WithDescription("Total number of chat messages broadcast to rooms"),
			metric.WithUnit("{message}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_broadcasts_total: %v", err)
		}

		m.DBQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.ActiveSubscribersGauge, err = meter.Int64Gauge(
			"chat_subscribers_current",
			metric.WithDescription("Current number of live chat subscriptions"),
			metric.WithUnit("{connection}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_subscribers_current: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the global metrics instance. InitAppMetrics must have run;
// falling back to a lazy init keeps tests working without explicit setup.
func Get() *AppMetrics {
	if appMetrics == nil {
		InitAppMetrics()
	}
	return appMetrics
}
