package prometrics

import (
	"sync"

	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry exposes the subset of Prometheus registry functionality needed by the application.
type Registry interface {
	Counter(name string, help string, labelKeys ...string) observability.Counter
	Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram
}

type registry struct {
	counters   sync.Map // name -> *counter
	histograms sync.Map // name -> *histogram
	reg        prometheus.Registerer
	namespace  string
	subsystem  string
}

// New returns a Registry that registers collectors on reg. A nil reg means the
// process-wide default registerer served by promhttp.Handler.
func New(reg prometheus.Registerer, namespace, subsystem string) Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &registry{reg: reg, namespace: namespace, subsystem: subsystem}
}

type counter struct {
	v    *prometheus.CounterVec
	keys []string
}

func (c *counter) Add(d float64, labels ...observability.Label) {
	c.v.WithLabelValues(labelValues(c.keys, labels)...).Add(d)
}

func (c *counter) Bind(labels ...observability.Label) observability.BoundCounter {
	return &boundCounter{c: c.v.WithLabelValues(labelValues(c.keys, labels)...)}
}

type boundCounter struct{ c prometheus.Counter }

func (c *boundCounter) Add(d float64) {
	if c == nil || c.c == nil {
		return
	}
	c.c.Add(d)
}

type histogram struct {
	v    *prometheus.HistogramVec
	keys []string
}

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	h.v.WithLabelValues(labelValues(h.keys, labels)...).Observe(v)
}

func (h *histogram) Bind(labels ...observability.Label) observability.BoundHistogram {
	return &boundHistogram{o: h.v.WithLabelValues(labelValues(h.keys, labels)...)}
}

type boundHistogram struct{ o prometheus.Observer }

func (h *boundHistogram) Observe(v float64) {
	if h == nil || h.o == nil {
		return
	}
	h.o.Observe(v)
}

// labelValues orders values by the declared keys; unknown labels are dropped and
// missing ones become "" so a sloppy call site never panics the vector.
func labelValues(keys []string, ls []observability.Label) []string {
	values := make([]string, len(keys))
	for _, l := range ls {
		for i, k := range keys {
			if k == l.Key {
				values[i] = l.Value
				break
			}
		}
	}
	return values
}

func (r *registry) Counter(name string, help string, labelKeys ...string) observability.Counter {
	// ensure only registered once
	if v, ok := r.counters.Load(name); ok {
		return v.(*counter)
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help,
	}, labelKeys)
	r.reg.MustRegister(cv)
	c := &counter{v: cv, keys: labelKeys}
	actual, _ := r.counters.LoadOrStore(name, c)
	return actual.(*counter)
}

func (r *registry) Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram {
	if v, ok := r.histograms.Load(name); ok {
		return v.(*histogram)
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labelKeys)
	r.reg.MustRegister(hv)
	h := &histogram{v: hv, keys: labelKeys}
	actual, _ := r.histograms.LoadOrStore(name, h)
	return actual.(*histogram)
}
