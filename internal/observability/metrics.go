package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	roadmapRequestsTotal  *prometheus.CounterVec
	roadmapParseErrors    *prometheus.CounterVec
	roadmapLatencySeconds prometheus.Histogram
	chatMessagesTotal     *prometheus.CounterVec
	careerTokensTotal     *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillpath_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "skillpath_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5, 10, 30},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillpath_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		roadmapRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillpath_roadmap_requests_total",
			Help: "Roadmap generation requests by outcome.",
		}, []string{"outcome"})

		roadmapParseErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillpath_roadmap_parse_errors_total",
			Help: "Model responses that could not be parsed into a roadmap, by error kind.",
		}, []string{"kind"})

		roadmapLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "skillpath_roadmap_generation_seconds",
			Help:    "End to end roadmap generation latency.",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 40, 60},
		})

		chatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillpath_chat_messages_total",
			Help: "Chat messages handled by role.",
		}, []string{"role"})

		careerTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillpath_career_tokens_total",
			Help: "Career tokens issued and resolved by outcome.",
		}, []string{"operation", "outcome"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			roadmapRequestsTotal,
			roadmapParseErrors,
			roadmapLatencySeconds,
			chatMessagesTotal,
			careerTokensTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// RoadmapRequests counts generation requests by outcome.
func RoadmapRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return roadmapRequestsTotal
}

// RoadmapParseErrors counts parse failures by kind.
func RoadmapParseErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return roadmapParseErrors
}

// RoadmapLatency exposes the generation latency histogram.
func RoadmapLatency() prometheus.Histogram {
	RegisterMetrics()
	return roadmapLatencySeconds
}

// ChatMessages counts chat messages by role.
func ChatMessages() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesTotal
}

// CareerTokens counts career token operations.
func CareerTokens() *prometheus.CounterVec {
	RegisterMetrics()
	return careerTokensTotal
}
