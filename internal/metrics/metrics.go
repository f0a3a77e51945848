package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "refundstatus"

// Recorder receives outcomes of refund operations.
type Recorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	CacheLookup(hit bool)
	StatusServed(status string)
}

// Prometheus implements Recorder on a dedicated registry.
type Prometheus struct {
	registry   *prometheus.Registry
	operations *prometheus.HistogramVec
	cache      *prometheus.CounterVec
	served     *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates recorder with process and Go runtime collectors registered.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of refund operations by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Latest refund cache lookups by result.",
		}, []string{"result"}),
		served: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_served_total",
			Help:      "Refund statuses returned to taxpayers.",
		}, []string{"status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.operations,
		p.cache,
		p.served,
	)
	return p
}

func (p *Prometheus) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	result := "error"
	if success {
		result = "success"
	}
	p.operations.WithLabelValues(operation, result).Observe(duration.Seconds())
}

func (p *Prometheus) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cache.WithLabelValues(result).Inc()
}

func (p *Prometheus) StatusServed(status string) {
	p.served.WithLabelValues(status).Inc()
}

// Handler exposes the registry in Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Nop discards every observation.
type Nop struct{}

func (Nop) Observe(context.Context, string, bool, time.Duration) {}
func (Nop) CacheLookup(bool)                                     {}
func (Nop) StatusServed(string)                                  {}
