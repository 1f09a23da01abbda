package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "govsense"

func register(reg prometheus.Registerer, cs ...prometheus.Collector) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(cs...)
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// ClientMetrics exposes counters/histograms for calls to the classification service.
type ClientMetrics struct {
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	retriesTotal   *prometheus.CounterVec
}

func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify_client",
			Name:      "requests_total",
			Help:      "Total classification requests by endpoint and outcome",
		}, []string{"endpoint", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classify_client",
			Name:      "request_latency_seconds",
			Help:      "Latency of classification requests including retries",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"endpoint"}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify_client",
			Name:      "retries_total",
			Help:      "Transport retries issued against the classification service",
		}, []string{"endpoint"}),
	}
	register(reg, m.requestsTotal, m.requestLatency, m.retriesTotal)
	return m
}

func (m *ClientMetrics) ObserveRequest(endpoint, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(endpoint, status).Inc()
	m.requestLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *ClientMetrics) ObserveRetry(endpoint string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(endpoint).Inc()
}

// SessionMetrics tracks submission cycles of conversation sessions.
type SessionMetrics struct {
	submissionsTotal *prometheus.CounterVec
	rejectionsTotal  *prometheus.CounterVec
	inFlight         prometheus.Gauge
	activeSessions   prometheus.Gauge
}

func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "submissions_total",
			Help:      "Completed submission cycles by kind and outcome",
		}, []string{"kind", "outcome"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "rejections_total",
			Help:      "Submissions rejected before a turn was created",
		}, []string{"reason"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "requests_in_flight",
			Help:      "Classification requests currently outstanding",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Open conversation sessions",
		}),
	}
	register(reg, m.submissionsTotal, m.rejectionsTotal, m.inFlight, m.activeSessions)
	return m
}

func (m *SessionMetrics) ObserveSubmission(kind, outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *SessionMetrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.rejectionsTotal.WithLabelValues(reason).Inc()
}

func (m *SessionMetrics) RequestStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *SessionMetrics) RequestFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

func (m *SessionMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *SessionMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// ServiceMetrics covers the classification backend: model calls and the result cache.
type ServiceMetrics struct {
	classificationsTotal *prometheus.CounterVec
	modelLatency         *prometheus.HistogramVec
	cacheTotal           *prometheus.CounterVec
}

func NewServiceMetrics(reg prometheus.Registerer) *ServiceMetrics {
	m := &ServiceMetrics{
		classificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "classifications_total",
			Help:      "Classifications served by input kind, model and parse path",
		}, []string{"kind", "model", "parse"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "model_latency_seconds",
			Help:      "Latency of LLM calls",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"model", "status"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups",
		}, []string{"hit"}),
	}
	register(reg, m.classificationsTotal, m.modelLatency, m.cacheTotal)
	return m
}

func (m *ServiceMetrics) ObserveClassification(kind, model, parse string) {
	if m == nil {
		return
	}
	m.classificationsTotal.WithLabelValues(kind, model, parse).Inc()
}

func (m *ServiceMetrics) ObserveModelCall(model, status string, seconds float64) {
	if m == nil {
		return
	}
	m.modelLatency.WithLabelValues(model, status).Observe(seconds)
}

func (m *ServiceMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	m.cacheTotal.WithLabelValues(boolLabel(hit)).Inc()
}
