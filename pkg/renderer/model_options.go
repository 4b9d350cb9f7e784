package renderer

import (
	"strings"

	"github.com/flosch/pongo2/v6"
	"go.uber.org/zap"

	"github.com/goliatone/go-pongoview/pkg/engine"
	"github.com/goliatone/go-pongoview/pkg/view"
)

// Model option keys a view model can carry to reconfigure the renderer.
const (
	OptionCanRenderTrees = "can_render_trees"
	OptionLoader         = "loader"
	OptionResolver       = "resolver"
	OptionView           = "view"
	OptionEnvironment    = "environment"
)

// applyModelOptions applies the recognised options. Unknown keys and values
// of the wrong type are ignored.
func (r *Renderer) applyModelOptions(options map[string]any) {
	for key, value := range options {
		switch optionKey(key) {
		case optionKey(OptionCanRenderTrees):
			if enabled, ok := value.(bool); ok {
				r.SetCanRenderTrees(enabled)
				continue
			}
		case optionKey(OptionLoader):
			if loader, ok := value.(pongo2.TemplateLoader); ok {
				r.SetLoader(loader)
				continue
			}
		case optionKey(OptionResolver):
			if resolver, ok := value.(view.Resolver); ok {
				r.SetResolver(resolver)
				continue
			}
		case optionKey(OptionView):
			if v, ok := value.(*view.View); ok && v != nil {
				r.SetView(v)
				continue
			}
		case optionKey(OptionEnvironment):
			if env, ok := value.(*engine.Environment); ok && env != nil {
				r.SetEnvironment(env)
				continue
			}
		default:
			continue
		}
		r.logger.Debug("ignoring model option with unexpected type", zap.String("option", key))
	}
}

func optionKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "").Replace(key)
}
