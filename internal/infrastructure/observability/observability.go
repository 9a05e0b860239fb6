package observability

import (
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

type registeredMetrics struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m *registeredMetrics) Counter(name observability.MetricKey) observability.Counter {
	if m == nil || m.counters == nil {
		return observability.NopCounter()
	}
	if c, ok := m.counters[name]; ok && c != nil {
		return c
	}
	return observability.NopCounter()
}

func (m *registeredMetrics) Histogram(name observability.MetricKey) observability.Histogram {
	if m == nil || m.histograms == nil {
		return observability.NopHistogram()
	}
	if h, ok := m.histograms[name]; ok && h != nil {
		return h
	}
	return observability.NopHistogram()
}

type counterDef struct {
	key    observability.MetricKey
	help   string
	labels []string
}

type histogramDef struct {
	key     observability.MetricKey
	help    string
	buckets []float64
	labels  []string
}

var counterDefs = []counterDef{
	{observability.MUsecaseRequests, "Total number of use case invocations.", []string{"use_case", "outcome"}},
	{observability.MHTTPRequests, "Total number of HTTP requests.", []string{"method", "route", "status"}},
	{observability.MExternalRequests, "Calls made to collaborators outside the use case.", []string{"peer", "endpoint", "outcome"}},
	{observability.MInventoryReservations, "Inventory reservation attempts per item.", []string{"item", "outcome"}},
	{observability.MInventoryStockouts, "Reservations denied because the item ran out.", []string{"item"}},
	{observability.MPayments, "Settled payments per method.", []string{"method"}},
}

var histogramDefs = []histogramDef{
	{observability.MUsecaseDuration, "Duration of use case execution in seconds.", prometheus.DefBuckets, []string{"use_case"}},
	{observability.MHTTPRequestDuration, "Duration of HTTP requests in seconds.", prometheus.DefBuckets, []string{"method", "route", "status"}},
	{observability.MExternalRequestDuration, "Duration of collaborator calls in seconds.", prometheus.DefBuckets, []string{"peer", "endpoint"}},
}

// New assembles an Observability provider backed by the supplied tracer and logger. When reg is
// non-nil every metric the application emits is registered on it; otherwise metrics are no-ops.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	reg prometrics.Registry,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	var metrics observability.Metrics = observability.NopMetrics()
	if reg != nil {
		m := &registeredMetrics{
			counters:   make(map[observability.MetricKey]observability.Counter, len(counterDefs)),
			histograms: make(map[observability.MetricKey]observability.Histogram, len(histogramDefs)),
		}
		for _, d := range counterDefs {
			m.counters[d.key] = reg.Counter(string(d.key), d.help, d.labels...)
		}
		for _, d := range histogramDefs {
			m.histograms[d.key] = reg.Histogram(string(d.key), d.help, d.buckets, d.labels...)
		}
		metrics = m
	}

	return &provider{
		tracer:  tracer,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *provider) Tracer() observability.Tracer {
	return p.tracer
}

func (p *provider) Logger() observability.Logger {
	return p.logger
}

func (p *provider) Metrics() observability.Metrics {
	if p.metrics == nil {
		return observability.NopMetrics()
	}
	return p.metrics
}
