package service

import (
	theme "github.com/goliatone/go-theme"
	"go.uber.org/zap"

	"github.com/goliatone/go-pongoview/pkg/config"
	"github.com/goliatone/go-pongoview/pkg/engine"
	"github.com/goliatone/go-pongoview/pkg/helper"
	"github.com/goliatone/go-pongoview/pkg/metrics"
	"github.com/goliatone/go-pongoview/pkg/renderer"
	"github.com/goliatone/go-pongoview/pkg/view"
)

// BootstrapOption customises Bootstrap.
type BootstrapOption func(*bootstrap)

type bootstrap struct {
	catalog       *helper.Catalog
	logger        *zap.Logger
	metrics       *metrics.Collector
	selector      theme.ThemeSelector
	engineOptions []engine.Option
	configurers   []helper.Configurer
}

// WithCatalog supplies the type catalog used to resolve helper config
// entries by name.
func WithCatalog(catalog *helper.Catalog) BootstrapOption {
	return func(b *bootstrap) {
		b.catalog = catalog
	}
}

func WithLogger(logger *zap.Logger) BootstrapOption {
	return func(b *bootstrap) {
		b.logger = logger
	}
}

func WithMetrics(collector *metrics.Collector) BootstrapOption {
	return func(b *bootstrap) {
		b.metrics = collector
	}
}

// WithThemeSelector registers a go-theme selector used to resolve the
// configured theme.
func WithThemeSelector(selector theme.ThemeSelector) BootstrapOption {
	return func(b *bootstrap) {
		b.selector = selector
	}
}

// WithEngineOptions appends engine options, such as engine.WithFS, to the
// configured ones.
func WithEngineOptions(opts ...engine.Option) BootstrapOption {
	return func(b *bootstrap) {
		b.engineOptions = append(b.engineOptions, opts...)
	}
}

// WithHelperConfigs appends in-process configurers after the configured
// helpers.configs entries.
func WithHelperConfigs(configurers ...helper.Configurer) BootstrapOption {
	return func(b *bootstrap) {
		b.configurers = append(b.configurers, configurers...)
	}
}

// Bootstrap registers cfg and every pongoview factory on a new
// ServiceManager. Nothing is built until a service is requested.
func Bootstrap(cfg *config.Config, options ...BootstrapOption) *ServiceManager {
	b := &bootstrap{catalog: helper.NewCatalog(), logger: zap.NewNop()}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}

	sm := NewServiceManager()
	sm.SetService(ConfigService, withHelperConfigs(cfg, b.configurers))
	sm.SetService(LoggerService, b.logger)
	if b.metrics != nil {
		sm.SetService(MetricsService, b.metrics)
	}
	if b.selector != nil {
		sm.SetService(ThemeSelectorService, b.selector)
	}

	opts, err := DecodeModuleOptions(cfg.Section(ModuleName))
	if err == nil && opts.Theme.Enabled() {
		sm.SetFactory(ThemeService, ThemeFactory)
	}

	sm.SetFactory(EnvironmentService, EnvironmentFactory(b.engineOptions...))
	sm.SetFactory(ResolverService, ResolverFactory)
	sm.SetFactory(HelpersService, HelperManagerFactory(b.catalog))
	sm.SetFactory(FrameworkHelpersService, FrameworkHelpersFactory)
	sm.SetFactory(RendererService, RendererFactory)
	sm.SetFactory(ViewService, ViewFactory)
	return sm
}

// withHelperConfigs returns a copy of cfg whose module section lists the
// extra configurers after the configured ones.
func withHelperConfigs(cfg *config.Config, extra []helper.Configurer) *config.Config {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if len(extra) == 0 {
		return cfg
	}

	out := *cfg
	out.Settings = cloneMap(cfg.Settings)
	section := cloneMap(cfg.Section(ModuleName))
	helpers, _ := section["helpers"].(map[string]any)
	helpers = cloneMap(helpers)

	existing, _ := helpers["configs"].([]any)
	configs := append([]any(nil), existing...)
	for _, c := range extra {
		configs = append(configs, c)
	}
	helpers["configs"] = configs
	section["helpers"] = helpers
	out.Settings[ModuleName] = section
	return &out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Renderer fetches the renderer service.
func Renderer(c Container) (*renderer.Renderer, error) {
	return Lookup[*renderer.Renderer](c, RendererService)
}

// View fetches the view service.
func View(c Container) (*view.View, error) {
	return Lookup[*view.View](c, ViewService)
}
