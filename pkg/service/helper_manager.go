package service

import (
	"fmt"

	"github.com/cockroachdb/errors"
	theme "github.com/goliatone/go-theme"
	"go.uber.org/zap"

	"github.com/goliatone/go-pongoview/pkg/helper"
	"github.com/goliatone/go-pongoview/pkg/view"
)

// HelperManagerFactory builds the engine-specific helper registry.
func HelperManagerFactory(catalog *helper.Catalog) FactoryFunc {
	return func(c Container) (any, error) {
		return NewHelperManager(c, catalog)
	}
}

// NewHelperManager creates a registry seeded with c and the engine built-ins,
// then applies every helpers.configs entry in order. Later entries override
// earlier registrations of the same helper.
func NewHelperManager(c Container, catalog *helper.Catalog) (*helper.Registry, error) {
	opts, err := moduleOptions(c)
	if err != nil {
		return nil, err
	}

	registry := helper.NewRegistry(helper.WithLocator(c), helper.WithName(HelpersService))

	var selection *theme.Selection
	if c.Has(ThemeService) {
		if selection, err = Lookup[*theme.Selection](c, ThemeService); err != nil {
			return nil, err
		}
	}
	if err := helper.RegisterEngineDefaults(registry, selection); err != nil {
		return nil, err
	}

	logger := loggerFrom(c)
	for i, entry := range opts.Helpers.Configs {
		configurer, err := resolveConfigurer(c, catalog, entry)
		if err != nil {
			return nil, errors.Wrapf(err, "service: helpers.configs[%d]", i)
		}
		if err := configurer.ConfigureRegistry(registry); err != nil {
			return nil, view.Mark(errors.Wrapf(err, "service: apply helpers.configs[%d]", i), view.ErrRuntime)
		}
		logger.Debug("helper config applied", zap.Int("index", i), zap.String("kind", fmt.Sprintf("%T", configurer)))
	}
	return registry, nil
}

// resolveConfigurer turns one helpers.configs entry into a Configurer:
// a catalog type name, then a container service name, then a raw map.
func resolveConfigurer(c Container, catalog *helper.Catalog, entry any) (helper.Configurer, error) {
	switch v := entry.(type) {
	case helper.Configurer:
		return v, nil
	case string:
		if catalog.Has(v) {
			instance, err := catalog.New(v)
			if err != nil {
				return nil, view.Mark(err, view.ErrRuntime)
			}
			configurer, ok := instance.(helper.Configurer)
			if !ok {
				return nil, view.Mark(
					errors.Newf("service: catalog type %q (%T) does not configure helpers", v, instance),
					view.ErrRuntime,
				)
			}
			return configurer, nil
		}
		if c.Has(v) {
			svc, err := c.Get(v)
			if err != nil {
				return nil, view.Mark(err, view.ErrRuntime)
			}
			configurer, ok := svc.(helper.Configurer)
			if !ok {
				return nil, view.Mark(
					errors.Newf("service: service %q (%T) does not configure helpers", v, svc),
					view.ErrRuntime,
				)
			}
			return configurer, nil
		}
		return nil, view.Mark(
			errors.WithHint(
				errors.Newf("service: %q is neither a catalog type nor a service", v),
				"register the type with helper.Catalog or the service with the container",
			),
			view.ErrRuntime,
		)
	case map[string]any:
		return helper.NewConfig(v, catalog), nil
	case map[any]any:
		raw := make(map[string]any, len(v))
		for key, value := range v {
			raw[fmt.Sprint(key)] = value
		}
		return helper.NewConfig(raw, catalog), nil
	default:
		return nil, view.Mark(
			errors.Newf("service: unsupported helper config entry %T", entry),
			view.ErrRuntime,
		)
	}
}
