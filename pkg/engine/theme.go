package engine

import (
	theme "github.com/goliatone/go-theme"
)

// themeTemplates flattens the template overrides of a theme selection. Variant
// entries replace manifest entries with the same key.
func themeTemplates(selection *theme.Selection) map[string]string {
	if selection == nil || selection.Manifest == nil {
		return nil
	}
	manifest := selection.Manifest

	out := make(map[string]string, len(manifest.Templates))
	for name, target := range manifest.Templates {
		out[name] = target
	}
	if variant, ok := manifest.Variants[selection.Variant]; ok {
		for name, target := range variant.Templates {
			out[name] = target
		}
	}
	return out
}
