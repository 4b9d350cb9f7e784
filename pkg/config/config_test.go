package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

const sampleYAML = `
log_level: debug
pongoview:
  suffix: .html
  template_path_stack:
    - ./views
  helpers:
    configs:
      - app.HelperConfig
      - invokables:
          upper: app.Upper
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(WithSearchPaths(t.TempDir()), WithDotEnv())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "dev" || cfg.LogLevel != "info" || cfg.Addr != ":8080" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	section := cfg.Section(Section)
	if section["suffix"] != ".twig" || section["invoke_framework_helpers"] != true {
		t.Fatalf("unexpected module defaults %v", section)
	}
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pongoview.yaml", sampleYAML)
	t.Setenv("PONGOVIEW_THEME_NAME", "acme")
	t.Setenv("PONGOVIEW_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("suffix", ".twig", "")
	flags.String("addr", ":8080", "")
	if err := flags.Parse([]string{"--addr", ":9090"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(WithFile(path), WithFlags(flags), WithDotEnv())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Fatalf("expected env to override file, got %q", cfg.LogLevel)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("expected explicit flag to win, got %q", cfg.Addr)
	}

	section := cfg.Section(Section)
	if section["suffix"] != ".html" {
		t.Fatalf("unset flag must not override the file, got %v", section["suffix"])
	}
	theme, _ := section["theme"].(map[string]any)
	if theme["name"] != "acme" {
		t.Fatalf("expected theme name from env, got %v", section["theme"])
	}
	if diff := cmp.Diff([]any{"./views"}, section["template_path_stack"]); diff != "" {
		t.Fatalf("path stack mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "PONGOVIEW_ENV=prod\n")
	t.Cleanup(func() { _ = os.Unsetenv("PONGOVIEW_ENV") })

	cfg, err := Load(WithSearchPaths(dir), WithDotEnv(envFile))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "prod" {
		t.Fatalf("expected .env value, got %q", cfg.Env)
	}
}

func TestLoadSearchesConfigFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "addr: \":7000\"\n")

	cfg, err := Load(WithSearchPaths(dir), WithDotEnv())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("expected searched config file, got %q", cfg.Addr)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(WithFile(filepath.Join(t.TempDir(), "missing.yaml")), WithDotEnv()); err == nil {
		t.Fatalf("expected missing explicit file to fail")
	}

	path := writeFile(t, t.TempDir(), "bad.yaml", "log_level: loud\n")
	if _, err := Load(WithFile(path), WithDotEnv()); err == nil {
		t.Fatalf("expected invalid log level to fail")
	}
}

func TestFlagKey(t *testing.T) {
	cases := map[string]string{
		"addr":        "addr",
		"log-level":   "log_level",
		"suffix":      "pongoview.suffix",
		"theme.name":  "pongoview.theme.name",
		"pongoview.x": "pongoview.x",
	}
	for in, want := range cases {
		if got := flagKey(in); got != want {
			t.Fatalf("flagKey(%q) = %q, want %q", in, got, want)
		}
	}
}
