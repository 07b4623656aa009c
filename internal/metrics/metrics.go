// Package metrics holds the Prometheus collectors for pipeline runs and the
// preprocessing service.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hn-post-classifier/internal/models"
)

const namespace = "hnprep"

// Metrics is bound to its own registry so several instances can coexist in
// one process (tests, CLI plus server).
type Metrics struct {
	reg *prometheus.Registry

	RowsRead     prometheus.Counter
	RowsDropped  *prometheus.CounterVec
	BandPosts    *prometheus.GaugeVec
	SplitSize    *prometheus.GaugeVec
	StageSeconds *prometheus.HistogramVec

	IngestPages    *prometheus.CounterVec
	IngestPosts    prometheus.Counter
	InsertedPosts  prometheus.Counter
	TokenizedPosts *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	m := &Metrics{reg: reg}

	m.RowsRead = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_read_total",
		Help:      "Posts read from storage or import files",
	})
	m.RowsDropped = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_dropped_total",
		Help:      "Posts removed by undersampling",
	}, []string{"band"})
	m.BandPosts = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "band_posts",
		Help:      "Posts per score band before and after undersampling",
	}, []string{"stage", "band"})
	m.SplitSize = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "split_size",
		Help:      "Rows in each persisted split",
	}, []string{"split"})
	m.StageSeconds = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Wall time of each pipeline stage",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"stage"})

	m.IngestPages = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_pages_total",
		Help:      "Listing pages fetched, by outcome",
	}, []string{"status"})
	m.IngestPosts = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_posts_total",
		Help:      "Posts parsed from listing pages",
	})
	m.InsertedPosts = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inserted_posts_total",
		Help:      "Posts newly written to storage",
	})
	m.TokenizedPosts = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokenized_posts_total",
		Help:      "Rows served from tokenized datasets",
	}, []string{"split"})

	m.HTTPRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Requests handled by the preprocessing service",
	}, []string{"path", "code"})

	return m
}

// WithRuntime adds the Go runtime and process collectors. Only the
// long-running server wants these.
func (m *Metrics) WithRuntime() *Metrics {
	m.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry for /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveStage records the time since start under stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// SetBands publishes a band distribution for stage ("before" or "after").
func (m *Metrics) SetBands(stage string, counts map[models.Band]int) {
	for band, n := range counts {
		m.BandPosts.WithLabelValues(stage, string(band)).Set(float64(n))
	}
}

// WriteTextfile dumps the registry in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
