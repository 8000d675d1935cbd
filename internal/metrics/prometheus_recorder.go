package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "freeze"

// PrometheusRecorder implements Recorder using Prometheus collectors.
type PrometheusRecorder struct {
	registry        *prom.Registry
	loadedPosts     *prom.GaugeVec
	skippedFiles    *prom.CounterVec
	loadDuration    *prom.HistogramVec
	renderDuration  *prom.HistogramVec
	renderResults   *prom.CounterVec
	publishDuration prom.Histogram
	publishOutcome  *prom.CounterVec
	publishedPages  prom.Gauge
	commandResults  *prom.CounterVec
	commandDuration *prom.HistogramVec
}

// NewPrometheusRecorder registers the freeze collectors on reg. A nil reg
// gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		loadedPosts: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "posts_loaded",
			Help:      "Posts held by the last load of each collection",
		}, []string{"collection"}),
		skippedFiles: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "posts_skipped_total",
			Help:      "Content files skipped because they failed to build",
		}, []string{"collection"}),
		loadDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "posts_load_duration_seconds",
			Help:      "Duration of collection loads",
			Buckets:   prom.DefBuckets,
		}, []string{"collection"}),
		renderDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of single route renders",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
		renderResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "render_results_total",
			Help:      "Route renders by kind and outcome",
		}, []string{"kind", "outcome"}),
		publishDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Total publish duration",
			Buckets:   prom.DefBuckets,
		}),
		publishOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "publish_outcomes_total",
			Help:      "Publish runs by outcome",
		}, []string{"outcome"}),
		publishedPages: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "published_pages",
			Help:      "Pages written by the last publish",
		}),
		commandResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "command_results_total",
			Help:      "Command executions by message type and outcome",
		}, []string{"command", "outcome"}),
		commandDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Duration of command executions",
			Buckets:   prom.DefBuckets,
		}, []string{"command"}),
	}
	reg.MustRegister(
		pr.loadedPosts,
		pr.skippedFiles,
		pr.loadDuration,
		pr.renderDuration,
		pr.renderResults,
		pr.publishDuration,
		pr.publishOutcome,
		pr.publishedPages,
		pr.commandResults,
		pr.commandDuration,
	)
	return pr
}

// Registry returns the registry the collectors live on.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *PrometheusRecorder) ObserveLoad(collection string, loaded, skipped int, d time.Duration) {
	if p == nil {
		return
	}
	p.loadedPosts.WithLabelValues(collection).Set(float64(loaded))
	if skipped > 0 {
		p.skippedFiles.WithLabelValues(collection).Add(float64(skipped))
	}
	p.loadDuration.WithLabelValues(collection).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRender(kind string, outcome Outcome, d time.Duration) {
	if p == nil {
		return
	}
	p.renderDuration.WithLabelValues(kind).Observe(d.Seconds())
	p.renderResults.WithLabelValues(kind, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObservePublish(outcome Outcome, pages int, d time.Duration) {
	if p == nil {
		return
	}
	p.publishDuration.Observe(d.Seconds())
	p.publishOutcome.WithLabelValues(string(outcome)).Inc()
	if outcome != OutcomeFailed {
		p.publishedPages.Set(float64(pages))
	}
}

func (p *PrometheusRecorder) ObserveCommand(command string, outcome Outcome, d time.Duration) {
	if p == nil {
		return
	}
	p.commandDuration.WithLabelValues(command).Observe(d.Seconds())
	p.commandResults.WithLabelValues(command, string(outcome)).Inc()
}
