package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRender(t *testing.T) {
	c := New()
	c.ObserveRender("hello.twig", OutcomeOK, 2*time.Millisecond)
	c.ObserveRender("hello.twig", OutcomeOK, time.Millisecond)
	c.ObserveRender("missing.twig", OutcomeMissing, 0)

	if got := testutil.ToFloat64(c.renders.WithLabelValues("hello.twig", OutcomeOK)); got != 2 {
		t.Fatalf("expected 2 ok renders, got %v", got)
	}
	if got := testutil.ToFloat64(c.renders.WithLabelValues("missing.twig", OutcomeMissing)); got != 1 {
		t.Fatalf("expected 1 missing render, got %v", got)
	}
	if got := testutil.CollectAndCount(c.renderDuration); got != 1 {
		t.Fatalf("expected one duration series, got %d", got)
	}
}

func TestObserveHelper(t *testing.T) {
	c := New()
	c.ObserveHelper("partial", OutcomeOK)
	c.ObserveHelper("nope", OutcomeNotFound)

	if got := testutil.ToFloat64(c.helperLookups.WithLabelValues("nope", OutcomeNotFound)); got != 1 {
		t.Fatalf("expected 1 not found lookup, got %v", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveRender("x", OutcomeOK, time.Second)
	c.ObserveHelper("x", OutcomeOK)
	if c.Registry() != nil {
		t.Fatalf("expected nil registry")
	}
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	if h := c.Middleware(next); h == nil {
		t.Fatalf("expected passthrough handler")
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	c := New()
	router := chi.NewRouter()
	router.Use(c.Middleware)
	router.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	router.Handle("/metrics", c.Handler())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/42", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `path="/users/{id}"`) || !strings.Contains(body, `status="418"`) {
		t.Fatalf("expected route pattern and status labels, got:\n%s", body)
	}
}

func TestTruncateUTF8(t *testing.T) {
	if got := truncateUTF8("héllo", 2); got != "h" {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
	if got := truncateUTF8("abc", 10); got != "abc" {
		t.Fatalf("unexpected %q", got)
	}
}
