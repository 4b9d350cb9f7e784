// Package metrics records render and helper activity with Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Render outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeMissing  = "missing"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
)

const maxLabelLength = 128

// Collector groups the pongoview metric vectors. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry       *prometheus.Registry
	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	helperLookups  *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates a collector registered against its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pongoview",
				Name:      "renders_total",
				Help:      "Templates rendered, by template and outcome.",
			},
			[]string{"template", "outcome"},
		),
		renderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pongoview",
				Name:      "render_duration_seconds",
				Help:      "Duration of template renders.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.25, 1},
			},
			[]string{"template"},
		),
		helperLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pongoview",
				Name:      "helper_lookups_total",
				Help:      "Helper lookups, by helper name and outcome.",
			},
			[]string{"helper", "outcome"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pongoview",
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP view requests.",
				Buckets:   []float64{0.01, 0.1, 0.3, 1.2, 5},
			},
			[]string{"path", "method", "status"},
		),
	}
	c.registry.MustRegister(c.renders, c.renderDuration, c.helperLookups, c.httpDuration)
	return c
}

// Registry exposes the underlying registry, mainly for tests and for
// combining with process collectors.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveRender records one render of template.
func (c *Collector) ObserveRender(template, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	template = truncateUTF8(template, maxLabelLength)
	c.renders.WithLabelValues(template, outcome).Inc()
	if outcome == OutcomeOK {
		c.renderDuration.WithLabelValues(template).Observe(elapsed.Seconds())
	}
}

// ObserveHelper records one helper lookup.
func (c *Collector) ObserveHelper(name, outcome string) {
	if c == nil {
		return
	}
	c.helperLookups.WithLabelValues(truncateUTF8(name, maxLabelLength), outcome).Inc()
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request duration labelled by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		protoMajor := r.ProtoMajor
		if protoMajor < 1 {
			protoMajor = 1
		}
		ww := middleware.NewWrapResponseWriter(w, protoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if status < 100 || status > 599 {
			status = http.StatusInternalServerError
		}

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		c.httpDuration.WithLabelValues(
			truncateUTF8(path, maxLabelLength),
			r.Method,
			strconv.Itoa(status),
		).Observe(time.Since(start).Seconds())
	})
}

// truncateUTF8 cuts s to at most maxBytes without splitting a rune.
func truncateUTF8(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
