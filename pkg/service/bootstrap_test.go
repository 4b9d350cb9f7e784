package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-pongoview/pkg/config"
	"github.com/goliatone/go-pongoview/pkg/helper"
	"github.com/goliatone/go-pongoview/pkg/metrics"
	"github.com/goliatone/go-pongoview/pkg/testsupport"
	"github.com/goliatone/go-pongoview/pkg/view"
)

func bootstrapConfig(t *testing.T, module map[string]any) *config.Config {
	t.Helper()
	dir := testsupport.WriteTemplates(t, t.TempDir(), map[string]string{
		"layout.twig":       `<main>{{ content }}</main>`,
		"page.twig":         `{{ helper("site") }}: {{ helper("escape_html", title) }}`,
		"themed/page.twig":  `themed {{ helper("theme", "brand") }}`,
		"missing_help.twig": `{{ helper("escape_html", "x") }}`,
	})
	module["template_path_stack"] = []any{dir}
	return &config.Config{Settings: map[string]any{ModuleName: module}}
}

func TestBootstrapRendersThroughView(t *testing.T) {
	cfg := bootstrapConfig(t, map[string]any{
		"helpers": map[string]any{
			"configs": []any{
				map[string]any{"services": map[string]any{"site": "Acme"}},
			},
		},
	})
	collector := metrics.New()
	sm := Bootstrap(cfg, WithMetrics(collector))

	v, err := View(sm)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	r, err := Renderer(sm)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	if r.View() != v {
		t.Fatalf("renderer should delegate children to the view service")
	}
	if r.FrameworkHelpers() == nil {
		t.Fatalf("framework helpers are on by default")
	}

	model := view.NewModel("layout", nil)
	model.AddChild(view.NewModel("page", view.Variables{"title": "<Home>"}), "", false)

	got, err := v.Render(context.Background(), model)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Acme: &lt;Home&gt;" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestBootstrapWithoutFrameworkHelpers(t *testing.T) {
	cfg := bootstrapConfig(t, map[string]any{"invoke_framework_helpers": false})
	sm := Bootstrap(cfg)

	r, err := Renderer(sm)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	if r.FrameworkHelpers() != nil {
		t.Fatalf("framework helpers should be disabled")
	}
	if _, err := r.Render(context.Background(), "missing_help", nil); err == nil {
		t.Fatalf("expected framework helper lookup to fail")
	}
}

func TestBootstrapAppendsInProcessConfigurers(t *testing.T) {
	cfg := bootstrapConfig(t, map[string]any{
		"helpers": map[string]any{
			"configs": []any{
				map[string]any{"services": map[string]any{"site": "from config"}},
			},
		},
	})
	sm := Bootstrap(cfg, WithHelperConfigs(helper.ConfigurerFunc(func(r *helper.Registry) error {
		return r.SetService("site", "from code")
	})))

	r, err := Renderer(sm)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	got, err := r.Call(context.Background(), "site")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got != "from code" {
		t.Fatalf("expected in-process configurer to run last, got %v", got)
	}
	configs := cfg.Section(ModuleName)["helpers"].(map[string]any)["configs"].([]any)
	if len(configs) != 1 {
		t.Fatalf("bootstrap must not modify the caller's config, got %d entries", len(configs))
	}
}

func TestBootstrapThemeFromManifest(t *testing.T) {
	manifestPath := filepath.Join(t.TempDir(), "theme.yaml")
	manifest := strings.Join([]string{
		"name: acme",
		"version: 1.0.0",
		"tokens:",
		"  brand: '#123456'",
		"templates:",
		"  page: themed/page",
	}, "\n")
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	cfg := bootstrapConfig(t, map[string]any{
		"theme": map[string]any{"name": "acme", "manifest": manifestPath},
	})
	sm := Bootstrap(cfg)

	r, err := Renderer(sm)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	got, err := r.Render(context.Background(), "page", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "themed #123456" {
		t.Fatalf("unexpected themed output %q", got)
	}
}

type stubSelector struct {
	selection *theme.Selection
	err       error
}

func (s stubSelector) Select(_, _ string, _ ...theme.QueryOption) (*theme.Selection, error) {
	return s.selection, s.err
}

func TestBootstrapThemeFromSelector(t *testing.T) {
	selection := &theme.Selection{
		Theme:   "acme",
		Variant: "dark",
		Manifest: &theme.Manifest{
			Name:   "acme",
			Tokens: map[string]string{"brand": "#000"},
			Variants: map[string]theme.Variant{
				"dark": {Templates: map[string]string{"page": "themed/page"}},
			},
		},
	}
	cfg := bootstrapConfig(t, map[string]any{
		"theme": map[string]any{"name": "acme", "variant": "dark"},
	})
	sm := Bootstrap(cfg, WithThemeSelector(stubSelector{selection: selection}))

	r, err := Renderer(sm)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	got, err := r.Render(context.Background(), "page", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "themed #000" {
		t.Fatalf("unexpected themed output %q", got)
	}

	failing := Bootstrap(cfg, WithThemeSelector(stubSelector{err: errors.New("no such theme")}))
	if _, err := Renderer(failing); !errors.Is(err, view.ErrRuntime) {
		t.Fatalf("expected runtime error from failing selector, got %v", err)
	}
}

func TestDecodeModuleOptionsDefaults(t *testing.T) {
	opts, err := DecodeModuleOptions(nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if opts.Suffix != ".twig" || !opts.InvokeFrameworkHelpers || !opts.CanRenderTrees {
		t.Fatalf("unexpected defaults %+v", opts)
	}

	opts, err = DecodeModuleOptions(map[string]any{
		"Suffix":           ".html",
		"auto_reload":      "true",
		"can_render_trees": false,
		"template_map":     map[string]any{"layout": "/tmp/layout.html"},
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if opts.Suffix != ".html" || !opts.AutoReload || opts.CanRenderTrees {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.TemplateMap["layout"] != "/tmp/layout.html" {
		t.Fatalf("unexpected template map %v", opts.TemplateMap)
	}
}
