package service

import (
	"os"

	"github.com/cockroachdb/errors"
	theme "github.com/goliatone/go-theme"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-pongoview/pkg/view"
)

// ThemeFactory resolves the configured theme selection, through a
// theme.ThemeSelector service when one is registered and from a manifest file
// otherwise.
func ThemeFactory(c Container) (any, error) {
	opts, err := moduleOptions(c)
	if err != nil {
		return nil, err
	}
	if !opts.Theme.Enabled() {
		return nil, view.Mark(errors.New("service: no theme configured"), view.ErrRuntime)
	}

	if c.Has(ThemeSelectorService) {
		selector, err := Lookup[theme.ThemeSelector](c, ThemeSelectorService)
		if err != nil {
			return nil, err
		}
		selection, err := selector.Select(opts.Theme.Name, opts.Theme.Variant)
		if err != nil {
			return nil, view.Mark(errors.Wrapf(err, "service: select theme %q", opts.Theme.Name), view.ErrRuntime)
		}
		return selection, nil
	}

	if opts.Theme.Manifest == "" {
		return nil, view.Mark(
			errors.WithHint(
				errors.Newf("service: theme %q has no manifest", opts.Theme.Name),
				"set pongoview.theme.manifest or register a theme.selector service",
			),
			view.ErrRuntime,
		)
	}
	manifest, err := LoadManifest(opts.Theme.Manifest)
	if err != nil {
		return nil, err
	}
	if manifest.Name != "" && manifest.Name != opts.Theme.Name {
		return nil, view.Mark(
			errors.Newf("service: manifest %s declares theme %q, want %q", opts.Theme.Manifest, manifest.Name, opts.Theme.Name),
			view.ErrRuntime,
		)
	}
	return &theme.Selection{
		Theme:    opts.Theme.Name,
		Variant:  opts.Theme.Variant,
		Manifest: manifest,
	}, nil
}

// LoadManifest reads a go-theme manifest from a YAML file.
func LoadManifest(path string) (*theme.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "service: read theme manifest %s", path)
	}
	var manifest theme.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrapf(err, "service: decode theme manifest %s", path)
	}
	return &manifest, nil
}
