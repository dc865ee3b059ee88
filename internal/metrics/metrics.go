package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notebot"

// Metrics holds the counters the pipeline increments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	generations       *prometheus.CounterVec
	groundingFallback prometheus.Counter
	notesPosted       prometheus.Counter
	notesFailed       prometheus.Counter
	summaries         *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		registry: reg,

		generations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Number of AI generation calls by grounding tool and outcome.",
			}, []string{"tool", "status"}),

		groundingFallback: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "grounding_fallbacks_total",
				Help:      "Number of url-grounded calls that fell back to search grounding.",
			}),

		notesPosted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notes_posted_total",
				Help:      "Number of fragments published as notes.",
			}),

		notesFailed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notes_failed_total",
				Help:      "Number of note posts that failed and aborted their chain.",
			}),

		summaries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summaries_total",
				Help:      "Number of summarized prompts by source and outcome.",
			}, []string{"source", "status"}),
	}
}

func (m *Metrics) IncGeneration(tool string, status string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(tool, status).Inc()
}

func (m *Metrics) IncGroundingFallback() {
	if m == nil {
		return
	}
	m.groundingFallback.Inc()
}

func (m *Metrics) IncNotePosted() {
	if m == nil {
		return
	}
	m.notesPosted.Inc()
}

func (m *Metrics) IncNoteFailed() {
	if m == nil {
		return
	}
	m.notesFailed.Inc()
}

func (m *Metrics) IncSummary(source string, status string) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(source, status).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
