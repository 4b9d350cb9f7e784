package service

// Service names registered by Bootstrap.
const (
	ConfigService           = "config"
	LoggerService           = "logger"
	MetricsService          = "metrics"
	ThemeSelectorService    = "theme.selector"
	ThemeService            = "pongoview.theme"
	EnvironmentService      = "pongoview.environment"
	ResolverService         = "pongoview.resolver"
	HelpersService          = "pongoview.helpers"
	FrameworkHelpersService = "view.helpers"
	RendererService         = "pongoview.renderer"
	ViewService             = "view"
)

// ModuleName is the configuration section read by the factories.
const ModuleName = "pongoview"
