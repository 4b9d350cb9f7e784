// Package pongoview renders view model trees through pongo2 templates. The
// root package bundles the pieces under pkg/ into a ready renderer for callers
// that do not run a service container.
package pongoview

import (
	"context"

	"github.com/cockroachdb/errors"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-pongoview/pkg/config"
	"github.com/goliatone/go-pongoview/pkg/engine"
	"github.com/goliatone/go-pongoview/pkg/helper"
	"github.com/goliatone/go-pongoview/pkg/renderer"
	"github.com/goliatone/go-pongoview/pkg/resolver"
	"github.com/goliatone/go-pongoview/pkg/service"
	"github.com/goliatone/go-pongoview/pkg/view"
)

// Model aliases view.Model so callers can build trees from the root package.
type Model = view.Model

// Variables aliases view.Variables.
type Variables = view.Variables

// View aliases view.View.
type View = view.View

// Renderer aliases renderer.Renderer.
type Renderer = renderer.Renderer

// NewModel builds a model for template.
func NewModel(template string, variables Variables) *Model {
	return view.NewModel(template, variables)
}

// Option configures New.
type Option func(*options)

type options struct {
	engine    []engine.Option
	renderer  []renderer.Option
	selection *theme.Selection
	bare      bool
}

// WithEngineOptions configures the template environment (base dirs, fs.FS,
// template map, globals).
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) {
		o.engine = append(o.engine, opts...)
	}
}

// WithRendererOptions is applied after the default helper registries, so it
// can replace them.
func WithRendererOptions(opts ...renderer.Option) Option {
	return func(o *options) {
		o.renderer = append(o.renderer, opts...)
	}
}

// WithTheme aliases theme partials in the environment and exposes the theme
// helper.
func WithTheme(selection *theme.Selection) Option {
	return func(o *options) {
		o.selection = selection
	}
}

// WithoutDefaultHelpers skips the built-in helpers.
func WithoutDefaultHelpers() Option {
	return func(o *options) {
		o.bare = true
	}
}

// New builds a renderer over a fresh environment. Unless disabled, the engine
// registry carries partial (and theme when configured) and the framework
// registry carries view_model, escape_html and sanitize_html.
func New(opts ...Option) (*Renderer, error) {
	cfg := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	engineOpts := append([]engine.Option(nil), cfg.engine...)
	if cfg.selection != nil {
		engineOpts = append(engineOpts, engine.WithTheme(cfg.selection))
	}
	env, err := engine.New(engineOpts...)
	if err != nil {
		return nil, err
	}

	var rendererOpts []renderer.Option
	if !cfg.bare {
		engineHelpers := helper.NewRegistry(helper.WithName(service.HelpersService))
		if err := helper.RegisterEngineDefaults(engineHelpers, cfg.selection); err != nil {
			return nil, errors.Wrap(err, "pongoview: register engine helpers")
		}
		frameworkHelpers := helper.NewRegistry(helper.WithName(service.FrameworkHelpersService))
		if err := helper.RegisterDefaults(frameworkHelpers); err != nil {
			return nil, errors.Wrap(err, "pongoview: register framework helpers")
		}
		rendererOpts = append(rendererOpts,
			renderer.WithEngineHelpers(engineHelpers),
			renderer.WithFrameworkHelpers(frameworkHelpers),
		)
	}
	rendererOpts = append(rendererOpts, cfg.renderer...)

	return renderer.New(env, resolver.NewEnvironmentResolver(env), rendererOpts...)
}

// Render builds a renderer with opts and renders model through its view. It
// is the simplest entry point for one-off renders.
func Render(ctx context.Context, model *Model, opts ...Option) (string, error) {
	r, err := New(opts...)
	if err != nil {
		return "", err
	}
	return r.View().Render(ctx, model)
}

// FromConfig loads configuration and returns the view wired by the service
// container, along with the container for further lookups.
func FromConfig(cfg *config.Config, opts ...service.BootstrapOption) (*View, *service.ServiceManager, error) {
	sm := service.Bootstrap(cfg, opts...)
	v, err := service.View(sm)
	if err != nil {
		return nil, nil, err
	}
	return v, sm, nil
}
