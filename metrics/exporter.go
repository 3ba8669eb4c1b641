package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hullbridge/vhacd"
)

// DefaultNamespace prefixes every exported metric name.
const DefaultNamespace = "hullbridge"

// Exporter mirrors records into Prometheus collectors on a private
// registry. A CLI run has no scrape endpoint, so the registry is written
// out in node-exporter textfile format instead.
type Exporter struct {
	registry *prometheus.Registry

	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	hulls     *prometheus.HistogramVec
	triangles prometheus.Histogram
	cacheHits prometheus.Counter
	lastRun   *prometheus.GaugeVec
}

// NewExporter registers the decomposition collectors under namespace.
// An empty namespace uses DefaultNamespace.
func NewExporter(namespace string) *Exporter {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	registry := prometheus.NewRegistry()

	e := &Exporter{
		registry: registry,
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decompositions_total",
				Help:      "Total number of decompositions by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "decomposition_duration_seconds",
				Help:      "Wall time of Compute calls in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"backend"},
		),
		hulls: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "decomposition_hulls",
				Help:      "Number of convex hulls produced per decomposition",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512},
			},
			[]string{"backend"},
		),
		triangles: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "input_triangles",
				Help:      "Triangle count of decomposed meshes",
				Buckets:   prometheus.ExponentialBuckets(16, 4, 10),
			},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Decompositions served from the history database",
			},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_decomposition_timestamp_seconds",
				Help:      "Unix time of the most recent decomposition by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(e.runs, e.duration, e.hulls, e.triangles, e.cacheHits, e.lastRun)
	return e
}

// Registry exposes the private registry, e.g. for promhttp.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Record implements part of Collector.
func (e *Exporter) Record(rec DecompositionRecord) {
	e.runs.WithLabelValues(rec.Backend, rec.Outcome).Inc()
	if rec.Cached {
		e.cacheHits.Inc()
	} else {
		e.duration.WithLabelValues(rec.Backend).Observe(rec.Duration.Seconds())
		e.triangles.Observe(float64(rec.Triangles))
	}
	if rec.Outcome == OutcomeCompleted {
		e.hulls.WithLabelValues(rec.Backend).Observe(float64(rec.Hulls))
	}

	end := rec.StartTime.Add(rec.Duration)
	if rec.StartTime.IsZero() {
		end = time.Now()
	}
	e.lastRun.WithLabelValues(rec.Outcome).Set(float64(end.UnixNano()) / 1e9)
}

// WriteTextfile writes the registry to path atomically.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}

// Recorder fans records out to a Store and an optional Exporter.
type Recorder struct {
	store    *Store
	exporter *Exporter
}

// NewRecorder combines store and exporter. exporter may be nil.
func NewRecorder(store *Store, exporter *Exporter) *Recorder {
	if store == nil {
		store = NewStore(DefaultStoreConfig())
	}
	return &Recorder{store: store, exporter: exporter}
}

// Record implements Collector.
func (r *Recorder) Record(rec DecompositionRecord) {
	r.store.Record(rec)
	if r.exporter != nil {
		r.exporter.Record(rec)
	}
}

// Summary implements Collector.
func (r *Recorder) Summary() Summary { return r.store.Summary() }

// Recent implements Collector.
func (r *Recorder) Recent(limit int) []DecompositionRecord { return r.store.Recent(limit) }

// Exporter returns the attached exporter, or nil.
func (r *Recorder) Exporter() *Exporter { return r.exporter }

var _ Collector = (*Recorder)(nil)

// FromReport converts an engine report into a record.
func FromReport(id, mesh, backend string, report vhacd.ComputeReport) DecompositionRecord {
	rec := DecompositionRecord{
		ID:        id,
		Mesh:      mesh,
		Backend:   backend,
		Outcome:   report.Outcome.String(),
		Points:    report.CountPoints,
		Triangles: report.CountTriangles,
		Hulls:     report.Hulls,
		StartTime: time.Now().Add(-report.Duration),
		Duration:  report.Duration,
	}
	if report.Err != nil {
		rec.ErrorMsg = report.Err.Error()
	}
	return rec
}
