package service

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/goliatone/go-pongoview/pkg/config"
	"github.com/goliatone/go-pongoview/pkg/view"
)

// ModuleOptions is the decoded "pongoview" configuration section.
type ModuleOptions struct {
	Suffix                 string            `mapstructure:"suffix"`
	TemplatePathStack      []string          `mapstructure:"template_path_stack"`
	TemplateMap            map[string]string `mapstructure:"template_map"`
	Globals                map[string]any    `mapstructure:"globals"`
	AutoReload             bool              `mapstructure:"auto_reload"`
	InvokeFrameworkHelpers bool              `mapstructure:"invoke_framework_helpers"`
	CanRenderTrees         bool              `mapstructure:"can_render_trees"`
	Theme                  ThemeOptions      `mapstructure:"theme"`
	Helpers                HelperOptions     `mapstructure:"helpers"`
}

// ThemeOptions selects a go-theme manifest and variant.
type ThemeOptions struct {
	Name     string `mapstructure:"name"`
	Variant  string `mapstructure:"variant"`
	Manifest string `mapstructure:"manifest"`
}

// Enabled reports whether a theme was configured.
func (t ThemeOptions) Enabled() bool {
	return t.Name != ""
}

// HelperOptions lists helper configurers applied in order. Entries are
// catalog type names, container service names, raw maps or
// helper.Configurer values.
type HelperOptions struct {
	Configs []any `mapstructure:"configs"`
}

// DecodeModuleOptions decodes section over the defaults. Keys are
// case-insensitive, so template_map and globals keys arrive lowercased.
func DecodeModuleOptions(section map[string]any) (ModuleOptions, error) {
	v := viper.New()
	v.SetDefault("suffix", ".twig")
	v.SetDefault("invoke_framework_helpers", true)
	v.SetDefault("can_render_trees", true)
	if err := v.MergeConfigMap(deepCopy(section)); err != nil {
		return ModuleOptions{}, errors.Wrap(err, "service: merge module options")
	}

	var opts ModuleOptions
	if err := v.Unmarshal(&opts); err != nil {
		return ModuleOptions{}, view.Mark(errors.Wrap(err, "service: decode module options"), view.ErrRuntime)
	}
	return opts, nil
}

// moduleOptions reads the module section from the container's config
// service, accepting either a *config.Config or a raw settings map.
func moduleOptions(c Container) (ModuleOptions, error) {
	section := map[string]any{}
	if c.Has(ConfigService) {
		raw, err := c.Get(ConfigService)
		if err != nil {
			return ModuleOptions{}, err
		}
		switch cfg := raw.(type) {
		case *config.Config:
			section = cfg.Section(ModuleName)
		case map[string]any:
			if s, ok := cfg[ModuleName].(map[string]any); ok {
				section = s
			}
		case nil:
		default:
			return ModuleOptions{}, view.Mark(
				errors.Newf("service: config service has unsupported type %T", raw),
				view.ErrRuntime,
			)
		}
	}
	return DecodeModuleOptions(section)
}

func loggerFrom(c Container) *zap.Logger {
	if !c.Has(LoggerService) {
		return zap.NewNop()
	}
	logger, err := Lookup[*zap.Logger](c, LoggerService)
	if err != nil || logger == nil {
		return zap.NewNop()
	}
	return logger
}

// deepCopy copies nested maps so viper's in-place key folding never touches
// the caller's settings.
func deepCopy(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch nested := v.(type) {
		case map[string]any:
			out[k] = deepCopy(nested)
		case map[any]any:
			converted := make(map[string]any, len(nested))
			for nk, nv := range nested {
				converted[fmt.Sprint(nk)] = nv
			}
			out[k] = deepCopy(converted)
		default:
			out[k] = v
		}
	}
	return out
}
