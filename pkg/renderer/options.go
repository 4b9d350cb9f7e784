package renderer

import (
	"github.com/flosch/pongo2/v6"
	"go.uber.org/zap"

	"github.com/goliatone/go-pongoview/pkg/helper"
	"github.com/goliatone/go-pongoview/pkg/metrics"
	"github.com/goliatone/go-pongoview/pkg/view"
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithView sets the view used to render children the renderer cannot render
// directly. Defaults to a view bound to the renderer.
func WithView(v *view.View) Option {
	return func(r *Renderer) {
		r.view = v
	}
}

// WithLoader overrides the environment's loader for existence checks.
func WithLoader(loader pongo2.TemplateLoader) Option {
	return func(r *Renderer) {
		r.loader = loader
	}
}

// WithEngineHelpers sets the engine-specific helper registry.
func WithEngineHelpers(registry *helper.Registry) Option {
	return func(r *Renderer) {
		r.engineHelpers = registry
	}
}

// WithFrameworkHelpers sets the fallback helper registry.
func WithFrameworkHelpers(registry *helper.Registry) Option {
	return func(r *Renderer) {
		r.frameworkHelpers = registry
	}
}

func WithCanRenderTrees(enabled bool) Option {
	return func(r *Renderer) {
		r.canRenderTrees = enabled
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records renders and helper lookups.
func WithMetrics(collector *metrics.Collector) Option {
	return func(r *Renderer) {
		r.metrics = collector
	}
}
