package service

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-pongoview/pkg/helper"
	"github.com/goliatone/go-pongoview/pkg/view"
)

func containerWithConfigs(configs ...any) *ServiceManager {
	sm := NewServiceManager()
	sm.SetService(ConfigService, map[string]any{
		ModuleName: map[string]any{
			"helpers": map[string]any{"configs": configs},
		},
	})
	return sm
}

func TestHelperManagerAppliesEntriesInOrder(t *testing.T) {
	var applied []string
	record := func(label string, services map[string]any) helper.Configurer {
		return helper.ConfigurerFunc(func(r *helper.Registry) error {
			applied = append(applied, label)
			for name, value := range services {
				if err := r.SetService(name, value); err != nil {
					return err
				}
			}
			return nil
		})
	}

	catalog := helper.NewCatalog()
	catalog.MustRegister("app.ClassConfig", func() any {
		return record("class", map[string]any{"greet": "from class", "only_class": "class"})
	})

	sm := containerWithConfigs(
		"app.ClassConfig",
		"app.service_config",
		map[string]any{"services": map[string]any{"greet": "from map"}},
	)
	sm.SetService("app.service_config", record("service", map[string]any{"greet": "from service", "only_service": "service"}))

	registry, err := NewHelperManager(sm, catalog)
	if err != nil {
		t.Fatalf("helper manager: %v", err)
	}

	if diff := cmp.Diff([]string{"class", "service"}, applied); diff != "" {
		t.Fatalf("apply order mismatch (-want +got):\n%s", diff)
	}
	for name, want := range map[string]any{
		"greet":        "from map",
		"only_class":   "class",
		"only_service": "service",
	} {
		got, err := registry.Get(name, nil)
		if err != nil {
			t.Fatalf("get %s: %v", name, err)
		}
		if got != want {
			t.Fatalf("%s: got %v want %v", name, got, want)
		}
	}
	if !registry.Has(helper.PartialName) {
		t.Fatalf("expected engine defaults to be registered")
	}
	if registry.Locator() != Container(sm) {
		t.Fatalf("expected registry to be seeded with the container")
	}
}

func TestHelperManagerWithoutConfigs(t *testing.T) {
	registry, err := NewHelperManager(NewServiceManager(), nil)
	if err != nil {
		t.Fatalf("helper manager: %v", err)
	}
	if diff := cmp.Diff([]string{"partial"}, registry.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestHelperManagerRejectsBadEntries(t *testing.T) {
	catalog := helper.NewCatalog()
	catalog.MustRegister("app.NotAConfigurer", func() any { return struct{}{} })

	cases := map[string]*ServiceManager{
		"unknown name":       containerWithConfigs("app.Missing"),
		"catalog non-config": containerWithConfigs("app.NotAConfigurer"),
		"service non-config": containerWithConfigs("app.plain"),
		"unsupported entry":  containerWithConfigs(42),
		"failing configurer": containerWithConfigs(map[string]any{"aliases": map[string]any{"x": 1}}),
	}
	cases["service non-config"].SetService("app.plain", "just a string")

	for name, sm := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewHelperManager(sm, catalog)
			if !errors.Is(err, view.ErrRuntime) {
				t.Fatalf("expected runtime error, got %v", err)
			}
		})
	}
}

func TestHelperManagerFactory(t *testing.T) {
	sm := NewServiceManager()
	sm.SetFactory(HelpersService, HelperManagerFactory(nil))

	registry, err := Lookup[*helper.Registry](sm, HelpersService)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if registry.Name() != HelpersService {
		t.Fatalf("unexpected registry name %q", registry.Name())
	}
}
