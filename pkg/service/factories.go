package service

import (
	"github.com/cockroachdb/errors"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-pongoview/pkg/engine"
	"github.com/goliatone/go-pongoview/pkg/helper"
	"github.com/goliatone/go-pongoview/pkg/metrics"
	"github.com/goliatone/go-pongoview/pkg/renderer"
	"github.com/goliatone/go-pongoview/pkg/resolver"
	"github.com/goliatone/go-pongoview/pkg/view"
)

// EnvironmentFactory builds the engine environment from the module options.
// extra options are applied after the configured ones.
func EnvironmentFactory(extra ...engine.Option) FactoryFunc {
	return func(c Container) (any, error) {
		opts, err := moduleOptions(c)
		if err != nil {
			return nil, err
		}

		engineOpts := []engine.Option{
			engine.WithExtension(opts.Suffix),
			engine.WithBaseDir(opts.TemplatePathStack...),
			engine.WithTemplateMap(opts.TemplateMap),
			engine.WithGlobalData(opts.Globals),
			engine.WithAutoReload(opts.AutoReload),
			engine.WithLogger(loggerFrom(c)),
		}
		if c.Has(ThemeService) {
			selection, err := Lookup[*theme.Selection](c, ThemeService)
			if err != nil {
				return nil, err
			}
			engineOpts = append(engineOpts, engine.WithTheme(selection))
		}
		engineOpts = append(engineOpts, extra...)

		env, err := engine.New(engineOpts...)
		if err != nil {
			return nil, view.Mark(errors.Wrap(err, "service: build environment"), view.ErrRuntime)
		}
		return env, nil
	}
}

// ResolverFactory returns an aggregate resolver whose first member resolves
// through the environment. Callers may attach more resolvers.
func ResolverFactory(c Container) (any, error) {
	env, err := Lookup[*engine.Environment](c, EnvironmentService)
	if err != nil {
		return nil, err
	}
	return resolver.NewAggregateResolver(resolver.NewEnvironmentResolver(env)), nil
}

// FrameworkHelpersFactory builds the framework-wide helper registry with the
// default helpers.
func FrameworkHelpersFactory(c Container) (any, error) {
	registry := helper.NewRegistry(helper.WithLocator(c), helper.WithName(FrameworkHelpersService))
	if err := helper.RegisterDefaults(registry); err != nil {
		return nil, err
	}
	return registry, nil
}

// RendererFactory assembles the renderer. Framework helpers are attached only
// when invoke_framework_helpers is set.
func RendererFactory(c Container) (any, error) {
	opts, err := moduleOptions(c)
	if err != nil {
		return nil, err
	}
	env, err := Lookup[*engine.Environment](c, EnvironmentService)
	if err != nil {
		return nil, err
	}
	res, err := Lookup[view.Resolver](c, ResolverService)
	if err != nil {
		return nil, err
	}
	engineHelpers, err := Lookup[*helper.Registry](c, HelpersService)
	if err != nil {
		return nil, err
	}

	rendererOpts := []renderer.Option{
		renderer.WithEngineHelpers(engineHelpers),
		renderer.WithCanRenderTrees(opts.CanRenderTrees),
		renderer.WithLogger(loggerFrom(c)),
	}
	if opts.InvokeFrameworkHelpers && c.Has(FrameworkHelpersService) {
		frameworkHelpers, err := Lookup[*helper.Registry](c, FrameworkHelpersService)
		if err != nil {
			return nil, err
		}
		rendererOpts = append(rendererOpts, renderer.WithFrameworkHelpers(frameworkHelpers))
	}
	if c.Has(MetricsService) {
		collector, err := Lookup[*metrics.Collector](c, MetricsService)
		if err != nil {
			return nil, err
		}
		rendererOpts = append(rendererOpts, renderer.WithMetrics(collector))
	}

	return renderer.New(env, res, rendererOpts...)
}

// ViewFactory builds the view and points the renderer's child delegation at
// it.
func ViewFactory(c Container) (any, error) {
	r, err := Lookup[*renderer.Renderer](c, RendererService)
	if err != nil {
		return nil, err
	}
	v := view.New(view.WithRenderer(r), view.WithLogger(loggerFrom(c)))
	r.SetView(v)
	return v, nil
}
