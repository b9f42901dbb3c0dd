package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// OpenWeatherMap call rate by endpoint (current, forecast) and status.
	WeatherAPICallsTotal *prometheus.CounterVec

	// OpenWeatherMap latency. Watch for: p95 creeping toward the client timeout.
	WeatherAPIDuration *prometheus.HistogramVec

	// Classified fetch failures by endpoint and category.
	WeatherFetchErrorsTotal *prometheus.CounterVec

	// Aggregation passes over the tracked list.
	AggregationBatchesTotal prometheus.Counter

	// Wall time of one aggregation pass (slowest city dominates).
	AggregationBatchDuration prometheus.Histogram

	// Per-city outcomes: success, failure, discarded (city removed while in flight).
	AggregationOutcomesTotal *prometheus.CounterVec

	// Batches where every city failed (the "no data" condition).
	AggregationEmptyTotal prometheus.Counter

	// Size of the tracked city list.
	TrackedCities prometheus.Gauge

	// Unit preference changes. These never cause fetches.
	UnitChangesTotal *prometheus.CounterVec

	// Detail view loads by result.
	DetailLoadsTotal *prometheus.CounterVec

	// Rate limit denials.
	RateLimitDeniedTotal prometheus.Counter

	// Open websocket subscribers.
	WebsocketClients prometheus.Gauge
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of OpenWeatherMap API calls",
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	WeatherFetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherFetchErrorsTotal",
			Help: "Failed weather fetches by endpoint and error category",
		},
		[]string{"endpoint", "category"},
	)
	AggregationBatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregationBatchesTotal",
			Help: "Total number of aggregation passes over the tracked city list",
		},
	)
	AggregationBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregationBatchDurationSeconds",
			Help:    "Time for every fetch in a batch to settle",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
	AggregationOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregationOutcomesTotal",
			Help: "Per-city aggregation outcomes (success, failure, discarded)",
		},
		[]string{"result"},
	)
	AggregationEmptyTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregationEmptyTotal",
			Help: "Batches in which no tracked city returned data",
		},
	)
	TrackedCities = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackedCities",
			Help: "Number of cities on the dashboard",
		},
	)
	UnitChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitChangesTotal",
			Help: "Temperature unit preference changes by target unit",
		},
		[]string{"unit"},
	)
	DetailLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detailLoadsTotal",
			Help: "Detail view loads by result (ok, partial, failed)",
		},
		[]string{"result"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocketClients",
			Help: "Connected dashboard websocket clients",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherFetchErrorsTotal,
		AggregationBatchesTotal, AggregationBatchDuration, AggregationOutcomesTotal, AggregationEmptyTotal,
		TrackedCities, UnitChangesTotal, DetailLoadsTotal,
		RateLimitDeniedTotal, WebsocketClients,
	)
}

// RecordFetchError counts one classified fetch failure.
func RecordFetchError(endpoint, category string) {
	WeatherFetchErrorsTotal.WithLabelValues(endpoint, category).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
