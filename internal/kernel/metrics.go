package kernel

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the per-service collector set: counters for events
// published/consumed and errors by kind, an external-API-calls-by-outcome
// counter, and duration histograms for request handling and background
// processing. The underlying vecs are registered once per process and
// shared; each Metrics instance pins its own service label so /metrics
// never mixes series across services that share a board.
type Metrics struct {
	service string

	EventsPublished *prometheus.CounterVec
	EventsConsumed  *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	ExternalCalls   *prometheus.CounterVec

	RequestDuration    *prometheus.HistogramVec
	ProcessingDuration *prometheus.HistogramVec
}

var (
	registerOnce sync.Once

	eventsPublishedVec *prometheus.CounterVec
	eventsConsumedVec  *prometheus.CounterVec
	errorsTotalVec     *prometheus.CounterVec
	externalCallsVec   *prometheus.CounterVec

	requestDurationVec    *prometheus.HistogramVec
	processingDurationVec *prometheus.HistogramVec
)

func registerCollectors() {
	eventsPublishedVec = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalpipe_events_published_total",
		Help: "Events published to the event bus.",
	}, []string{"service", "event"})
	eventsConsumedVec = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalpipe_events_consumed_total",
		Help: "Events consumed from the event bus.",
	}, []string{"service", "event", "outcome"})
	errorsTotalVec = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalpipe_errors_total",
		Help: "Errors encountered, labelled by taxonomy kind.",
	}, []string{"service", "kind"})
	externalCallsVec = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalpipe_external_api_calls_total",
		Help: "External API calls, labelled by dependency and outcome.",
	}, []string{"service", "dependency", "outcome"})
	requestDurationVec = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signalpipe_http_request_duration_seconds",
		Help:    "HTTP request duration for the service's own surface.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "path", "status"})
	processingDurationVec = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signalpipe_processing_duration_seconds",
		Help:    "Time spent processing one cycle or one consumed event.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "stage"})
}

// NewMetrics binds the shared collectors to the owning service's label.
// The vecs are registered against the default prometheus registry exactly
// once per process, so constructing a second Metrics (e.g. in tests) never
// double-registers.
func NewMetrics(service string) *Metrics {
	registerOnce.Do(registerCollectors)

	return &Metrics{
		service:            service,
		EventsPublished:    eventsPublishedVec,
		EventsConsumed:     eventsConsumedVec,
		ErrorsTotal:        errorsTotalVec,
		ExternalCalls:      externalCallsVec,
		RequestDuration:    requestDurationVec,
		ProcessingDuration: processingDurationVec,
	}
}

func (m *Metrics) EventPublished(event string) {
	m.EventsPublished.WithLabelValues(m.service, event).Inc()
}

func (m *Metrics) EventConsumed(event, outcome string) {
	m.EventsConsumed.WithLabelValues(m.service, event, outcome).Inc()
}

func (m *Metrics) Error(kind string) {
	m.ErrorsTotal.WithLabelValues(m.service, kind).Inc()
}

func (m *Metrics) ExternalCall(dependency, outcome string) {
	m.ExternalCalls.WithLabelValues(m.service, dependency, outcome).Inc()
}

func (m *Metrics) ObserveProcessing(stage string, d time.Duration) {
	m.ProcessingDuration.WithLabelValues(m.service, stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveRequest(path, status string, d time.Duration) {
	m.RequestDuration.WithLabelValues(m.service, path, status).Observe(d.Seconds())
}
