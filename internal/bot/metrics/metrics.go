// Package metrics counts what a run did. Values are written to a
// node-exporter textfile at the end of the run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "profilebot"

// Recorder is implemented by Prom and Noop.
type Recorder interface {
	IncVariant(outcome string)
	IncUploadFailure(phase string)
	IncItem(outcome string)
	IncBatchCleaned()
	AddUploadedBytes(n int64)
	ObserveUpload(kind string, d time.Duration)
}

// Noop discards everything.
type Noop struct{}

func (Noop) IncVariant(string)                   {}
func (Noop) IncUploadFailure(string)             {}
func (Noop) IncItem(string)                      {}
func (Noop) IncBatchCleaned()                    {}
func (Noop) AddUploadedBytes(int64)              {}
func (Noop) ObserveUpload(string, time.Duration) {}

// Prom keeps the counters in its own registry.
type Prom struct {
	reg *prometheus.Registry

	variants       *prometheus.CounterVec
	uploadFailures *prometheus.CounterVec
	items          *prometheus.CounterVec
	cleaned        prometheus.Counter
	bytes          prometheus.Counter
	uploadSeconds  *prometheus.HistogramVec
	lastRun        prometheus.Gauge
}

func NewProm() *Prom {
	p := &Prom{
		reg: prometheus.NewRegistry(),
		variants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "variants_total",
			Help:      "Variants processed by outcome",
		}, []string{"outcome"}),
		uploadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "upload_failures_total",
			Help:      "Variant upload failures by phase",
		}, []string{"phase"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "items_total",
			Help:      "Catalog items processed by outcome",
		}, []string{"outcome"}),
		cleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "batches_cleaned_total",
			Help:      "Batch directories removed after a fully successful upload",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Container bytes stored in object storage",
		}),
		uploadSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "upload_duration_seconds",
			Help:      "Object upload latency by kind",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
	p.reg.MustRegister(p.variants, p.uploadFailures, p.items, p.cleaned, p.bytes, p.uploadSeconds, p.lastRun)
	return p
}

// Registry exposes the registry for gathering.
func (p *Prom) Registry() *prometheus.Registry { return p.reg }

func (p *Prom) IncVariant(outcome string) {
	p.variants.WithLabelValues(outcome).Inc()
}

func (p *Prom) IncUploadFailure(phase string) {
	p.uploadFailures.WithLabelValues(phase).Inc()
}

func (p *Prom) IncItem(outcome string) {
	p.items.WithLabelValues(outcome).Inc()
}

func (p *Prom) IncBatchCleaned() {
	p.cleaned.Inc()
}

func (p *Prom) AddUploadedBytes(n int64) {
	if n > 0 {
		p.bytes.Add(float64(n))
	}
}

func (p *Prom) ObserveUpload(kind string, d time.Duration) {
	p.uploadSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

// WriteTextfile stamps the run time and writes every metric to path in the
// text exposition format.
func (p *Prom) WriteTextfile(path string, finished time.Time) error {
	p.lastRun.Set(float64(finished.Unix()))
	return prometheus.WriteToTextfile(path, p.reg)
}
