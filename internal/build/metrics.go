package build

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// ResultLabel is the outcome of compiling or copying a single file.
type ResultLabel string

const (
	ResultCompiled ResultLabel = "compiled"
	ResultSkipped  ResultLabel = "skipped"
	ResultFailed   ResultLabel = "failed"
	ResultCopied   ResultLabel = "copied"
)

// Metrics records build activity as Prometheus metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry      *prom.Registry
	templates     *prom.CounterVec
	files         *prom.CounterVec
	packages      prom.Counter
	buildDuration prom.Histogram
	outcomes      *prom.CounterVec
}

// NewMetrics constructs and registers the build metrics on reg, or on a new
// registry when reg is nil.
func NewMetrics(reg *prom.Registry) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		templates: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tmplbuild",
			Name:      "templates_total",
			Help:      "Templates processed by outcome",
		}, []string{"result"}),
		files: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tmplbuild",
			Name:      "files_total",
			Help:      "Ordinary files processed by the base step by outcome",
		}, []string{"result"}),
		packages: prom.NewCounter(prom.CounterOpts{
			Namespace: "tmplbuild",
			Name:      "packages_scanned_total",
			Help:      "Packages scanned for templates",
		}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "tmplbuild",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		outcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tmplbuild",
			Name:      "build_outcomes_total",
			Help:      "Build runs by final status",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.templates, m.files, m.packages, m.buildDuration, m.outcomes)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prom.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncTemplate counts one template outcome.
func (m *Metrics) IncTemplate(result ResultLabel) {
	if m == nil {
		return
	}
	m.templates.WithLabelValues(string(result)).Inc()
}

// IncFile counts one base-step file outcome.
func (m *Metrics) IncFile(result ResultLabel) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(string(result)).Inc()
}

// IncPackage counts one scanned package.
func (m *Metrics) IncPackage() {
	if m == nil {
		return
	}
	m.packages.Inc()
}

// ObserveBuild records a finished run.
func (m *Metrics) ObserveBuild(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.buildDuration.Observe(d.Seconds())
	outcome := "success"
	if err != nil {
		outcome = "failed"
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes the current metrics in the Prometheus text format,
// suitable for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prom.WriteToTextfile(path, m.registry)
}
