package httpview

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-pongoview/pkg/engine"
	"github.com/goliatone/go-pongoview/pkg/metrics"
	"github.com/goliatone/go-pongoview/pkg/renderer"
	"github.com/goliatone/go-pongoview/pkg/resolver"
	"github.com/goliatone/go-pongoview/pkg/testsupport"
	"github.com/goliatone/go-pongoview/pkg/view"
)

func newView(t *testing.T, opts ...renderer.Option) *view.View {
	t.Helper()
	env, err := engine.New(engine.WithFS(testsupport.TemplatesFS(map[string]string{
		"layout.twig": `<main>{{ content|safe }}</main>`,
		"user.twig":   `user {{ params.id }} tab={{ query.tab }} {{ greeting }}`,
		"boom.twig":   `{{ helper("missing") }}`,
	})))
	if err != nil {
		t.Fatalf("environment: %v", err)
	}
	r, err := renderer.New(env, resolver.NewEnvironmentResolver(env), opts...)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	return r.View()
}

func get(t *testing.T, h http.Handler, target string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	body, _ := io.ReadAll(rec.Result().Body)
	return rec.Code, string(body)
}

func TestHandlerRendersRoutes(t *testing.T) {
	collector := metrics.New()
	h := New(newView(t, renderer.WithMetrics(collector)),
		WithMetrics(collector),
		WithRoutes(
			Route{Path: "/users/{id}", Template: "user", Variables: map[string]any{"greeting": "hi"}},
			Route{Path: "/framed/{id}", Template: "user", Layout: "layout"},
			Route{Path: "/missing", Template: "nope"},
			Route{Path: "/boom", Template: "boom"},
		),
	)
	router := h.Router()

	code, body := get(t, router, "/users/7?tab=posts")
	if code != http.StatusOK || body != "user 7 tab=posts hi" {
		t.Fatalf("unexpected response %d %q", code, body)
	}

	code, body = get(t, router, "/framed/8")
	if code != http.StatusOK || body != "<main>user 8 tab= </main>" {
		t.Fatalf("unexpected layout response %d %q", code, body)
	}

	if code, _ := get(t, router, "/missing"); code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing template, got %d", code)
	}
	if code, _ := get(t, router, "/boom"); code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for failing render, got %d", code)
	}

	code, body = get(t, router, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", code)
	}
	for _, series := range []string{"pongoview_renders_total", "pongoview_http_request_duration_seconds"} {
		if !strings.Contains(body, series) {
			t.Fatalf("expected %s in metrics output", series)
		}
	}
}

func TestModelForCollectsParams(t *testing.T) {
	h := New(nil)
	req := httptest.NewRequest(http.MethodGet, "/?tag=a&tag=b&q=x", nil)
	model := h.modelFor(Route{Template: "list", Variables: map[string]any{"title": "List"}}, req.WithContext(context.Background()))

	want := view.Variables{
		"title":  "List",
		"params": map[string]any{},
		"query":  map[string]any{"tag": []any{"a", "b"}, "q": "x"},
	}
	if diff := cmp.Diff(want, model.Variables()); diff != "" {
		t.Fatalf("variables mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRoutes(t *testing.T) {
	routes, err := DecodeRoutes([]any{
		map[string]any{"path": "/", "template": "home"},
		map[string]any{"path": "/about", "template": "about", "layout": "layout", "method": "get"},
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []Route{
		{Path: "/", Template: "home"},
		{Path: "/about", Template: "about", Layout: "layout", Method: "get"},
	}
	if diff := cmp.Diff(want, routes); diff != "" {
		t.Fatalf("routes mismatch (-want +got):\n%s", diff)
	}

	if _, err := DecodeRoutes([]any{map[string]any{"path": "/"}}); !errors.Is(err, view.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for route without template, got %v", err)
	}
	if routes, err := DecodeRoutes(nil); err != nil || routes != nil {
		t.Fatalf("expected nil routes, got %v, %v", routes, err)
	}
}
