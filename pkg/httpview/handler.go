// Package httpview serves view models over HTTP with a chi router.
package httpview

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/goliatone/go-pongoview/pkg/logging"
	"github.com/goliatone/go-pongoview/pkg/metrics"
	"github.com/goliatone/go-pongoview/pkg/view"
)

// Route maps a URL pattern to a template. URL parameters and query values
// are added to the model's variables under "params" and "query". When Layout
// is set, the page output is rendered into the layout's content variable.
type Route struct {
	Method    string         `mapstructure:"method"`
	Path      string         `mapstructure:"path"`
	Template  string         `mapstructure:"template"`
	Layout    string         `mapstructure:"layout"`
	Variables map[string]any `mapstructure:"variables"`
}

// DecodeRoutes decodes the "routes" configuration list.
func DecodeRoutes(raw any) ([]Route, error) {
	if raw == nil {
		return nil, nil
	}
	v := viper.New()
	v.Set("routes", raw)
	var routes []Route
	if err := v.UnmarshalKey("routes", &routes); err != nil {
		return nil, errors.Wrap(err, "httpview: decode routes")
	}
	for i, route := range routes {
		if strings.TrimSpace(route.Path) == "" || strings.TrimSpace(route.Template) == "" {
			return nil, view.Mark(errors.Newf("httpview: routes[%d] needs a path and a template", i), view.ErrInvalidArgument)
		}
	}
	return routes, nil
}

// Option configures a Handler.
type Option func(*Handler)

func WithRoutes(routes ...Route) Option {
	return func(h *Handler) {
		h.routes = append(h.routes, routes...)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = logging.OrNop(logger)
	}
}

// WithMetrics records request durations and exposes /metrics.
func WithMetrics(collector *metrics.Collector) Option {
	return func(h *Handler) {
		h.metrics = collector
	}
}

// Handler renders configured routes through a view.
type Handler struct {
	view    *view.View
	routes  []Route
	logger  *zap.Logger
	metrics *metrics.Collector
}

func New(v *view.View, options ...Option) *Handler {
	h := &Handler{view: v, logger: zap.NewNop()}
	for _, opt := range options {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Router builds a chi router serving every route.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(h.logger))
	r.Use(logging.Recoverer(h.logger))
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}
	for _, route := range h.routes {
		method := strings.ToUpper(strings.TrimSpace(route.Method))
		if method == "" {
			method = http.MethodGet
		}
		r.Method(method, route.Path, h.ServeRoute(route))
	}
	return r
}

// ServeRoute renders route for each request. An empty render is a 404.
func (h *Handler) ServeRoute(route Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := h.modelFor(route, r)

		out, err := h.view.Render(r.Context(), page)
		if err == nil && out != "" && route.Layout != "" {
			layout := view.NewModel(route.Layout, view.Variables{
				view.DefaultCaptureTo: out,
				"params":              page.Variables()["params"],
				"query":               page.Variables()["query"],
			})
			out, err = h.view.Render(r.Context(), layout)
		}
		if err != nil {
			h.logger.Error("render failed",
				zap.String("template", route.Template),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if out == "" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(out))
	}
}

func (h *Handler) modelFor(route Route, r *http.Request) *view.Model {
	vars := view.Variables(route.Variables).Clone()

	params := map[string]any{}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			if key == "*" || i >= len(rctx.URLParams.Values) {
				continue
			}
			params[key] = rctx.URLParams.Values[i]
		}
	}
	query := map[string]any{}
	for key, values := range r.URL.Query() {
		if len(values) == 1 {
			query[key] = values[0]
			continue
		}
		list := make([]any, len(values))
		for i, v := range values {
			list[i] = v
		}
		query[key] = list
	}
	vars["params"] = params
	vars["query"] = query
	return view.NewModel(route.Template, vars)
}
