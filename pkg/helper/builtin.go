package helper

import (
	"context"
	"html"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/flosch/pongo2/v6"
	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-pongoview/pkg/view"
)

// Built-in helper names.
const (
	ViewModelName    = "view_model"
	EscapeHTMLName   = "escape_html"
	SanitizeHTMLName = "sanitize_html"
	ThemeName        = "theme"
	PartialName      = "partial"
)

// RegisterDefaults installs the framework-wide built-ins: view_model,
// escape_html and sanitize_html.
func RegisterDefaults(r *Registry) error {
	if r == nil {
		return errors.New("helper: register defaults: registry is nil")
	}
	if err := r.SetInvokable(ViewModelName, func() Helper { return &ViewModel{} }); err != nil {
		return err
	}
	if err := r.SetService(EscapeHTMLName, Func(escapeHTML)); err != nil {
		return err
	}
	return r.SetFactory(SanitizeHTMLName, func(_ Locator, _ string, opts map[string]any) (Helper, error) {
		policy, _ := opts["policy"].(string)
		return NewSanitizer(policy), nil
	})
}

// RegisterEngineDefaults installs helpers that only make sense next to a
// template engine: partial, and theme when a selection is supplied.
func RegisterEngineDefaults(r *Registry, selection *theme.Selection) error {
	if r == nil {
		return errors.New("helper: register engine defaults: registry is nil")
	}
	if err := r.SetService(PartialName, &Partial{}); err != nil {
		return err
	}
	if selection == nil {
		return nil
	}
	return r.SetService(ThemeName, NewTheme(selection))
}

// ViewModel exposes the model currently being rendered. The model carried by
// the render context wins; the one set with SetCurrent is the fallback for
// callers that invoke the helper outside a render.
type ViewModel struct {
	mu      sync.RWMutex
	current *view.Model
}

func (v *ViewModel) SetCurrent(model *view.Model) {
	v.mu.Lock()
	v.current = model
	v.mu.Unlock()
}

func (v *ViewModel) Current() *view.Model {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Invoke returns the current model. With a name argument it returns that
// variable of the current model instead.
func (v *ViewModel) Invoke(ctx context.Context, args ...any) (any, error) {
	current, ok := view.ModelFrom(ctx)
	if !ok {
		current = v.Current()
	}
	if len(args) == 0 {
		return current, nil
	}
	if current == nil {
		return nil, nil
	}
	value, _ := current.Variable(view.Stringify(args[0]))
	return value, nil
}

// escapeHTML escapes its argument once and marks the result safe so the
// engine's autoescaping does not escape it again.
func escapeHTML(_ context.Context, args ...any) (any, error) {
	if len(args) == 0 {
		return pongo2.AsSafeValue(""), nil
	}
	return pongo2.AsSafeValue(html.EscapeString(view.Stringify(args[0]))), nil
}

// Sanitizer strips unsafe markup with a bluemonday policy and marks the result
// safe for template output.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds a sanitizer. "strict" removes all markup; anything else
// selects the user-generated-content policy.
func NewSanitizer(policy string) *Sanitizer {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "strict":
		return &Sanitizer{policy: bluemonday.StrictPolicy()}
	default:
		return &Sanitizer{policy: bluemonday.UGCPolicy()}
	}
}

func (s *Sanitizer) Sanitize(input string) string {
	return s.policy.Sanitize(input)
}

func (s *Sanitizer) Invoke(_ context.Context, args ...any) (any, error) {
	if len(args) == 0 {
		return pongo2.AsSafeValue(""), nil
	}
	return pongo2.AsSafeValue(s.Sanitize(view.Stringify(args[0]))), nil
}

// Theme exposes tokens and asset URLs from a go-theme selection. Variant
// values override the manifest's.
type Theme struct {
	selection *theme.Selection
	tokens    map[string]string
	assets    map[string]string
	prefix    string
}

func NewTheme(selection *theme.Selection) *Theme {
	t := &Theme{
		selection: selection,
		tokens:    map[string]string{},
		assets:    map[string]string{},
	}
	if selection == nil || selection.Manifest == nil {
		return t
	}

	manifest := selection.Manifest
	for k, v := range manifest.Tokens {
		t.tokens[k] = v
	}
	for k, v := range manifest.Assets.Files {
		t.assets[k] = v
	}
	t.prefix = manifest.Assets.Prefix

	if variant, ok := manifest.Variants[selection.Variant]; ok {
		for k, v := range variant.Tokens {
			t.tokens[k] = v
		}
		for k, v := range variant.Assets.Files {
			t.assets[k] = v
		}
		if variant.Assets.Prefix != "" {
			t.prefix = variant.Assets.Prefix
		}
	}
	return t
}

func (t *Theme) Name() string {
	if t.selection == nil {
		return ""
	}
	return t.selection.Theme
}

func (t *Theme) Variant() string {
	if t.selection == nil {
		return ""
	}
	return t.selection.Variant
}

func (t *Theme) Token(name string) string {
	return t.tokens[name]
}

// Tokens returns a copy of the merged token map.
func (t *Theme) Tokens() map[string]string {
	out := make(map[string]string, len(t.tokens))
	for k, v := range t.tokens {
		out[k] = v
	}
	return out
}

// Asset returns the URL of a named asset, or "" when the theme has none.
func (t *Theme) Asset(key string) string {
	file, ok := t.assets[key]
	if !ok || file == "" {
		return ""
	}
	if t.prefix == "" || strings.Contains(file, "://") || strings.HasPrefix(file, "/") {
		return file
	}
	return strings.TrimRight(t.prefix, "/") + "/" + strings.TrimLeft(file, "/")
}

// Invoke returns the token map, a token for theme("brand"), or an asset URL
// for theme("asset", "key").
func (t *Theme) Invoke(_ context.Context, args ...any) (any, error) {
	switch len(args) {
	case 0:
		return t.Tokens(), nil
	case 1:
		return t.Token(view.Stringify(args[0])), nil
	default:
		if view.Stringify(args[0]) == "asset" {
			return t.Asset(view.Stringify(args[1])), nil
		}
		return nil, errors.Mark(errors.Newf("helper: theme: unsupported call %q", view.Stringify(args[0])), view.ErrInvalidArgument)
	}
}

// Partial renders another template through the renderer it was looked up
// from and inserts the output unescaped.
type Partial struct {
	renderer view.Renderer
}

func (p *Partial) BindRenderer(renderer view.Renderer) Helper {
	return &Partial{renderer: renderer}
}

// Invoke renders args[0] with the optional variables in args[1].
func (p *Partial) Invoke(ctx context.Context, args ...any) (any, error) {
	if p.renderer == nil {
		return nil, errors.Mark(errors.New("helper: partial: no renderer bound"), view.ErrRuntime)
	}
	if len(args) == 0 {
		return nil, errors.Mark(errors.New("helper: partial: template name is required"), view.ErrInvalidArgument)
	}

	name := view.Stringify(args[0])
	vars := view.Variables{}
	if len(args) > 1 {
		switch v := args[1].(type) {
		case view.Variables:
			vars = v.Clone()
		case map[string]any:
			vars = view.Variables(v).Clone()
		case pongo2.Context:
			vars = view.Variables(v).Clone()
		case nil:
		default:
			return nil, errors.Mark(errors.Newf("helper: partial: variables must be a map, got %T", args[1]), view.ErrInvalidArgument)
		}
	}

	out, err := p.renderer.Render(ctx, name, vars)
	if err != nil {
		return nil, errors.Wrapf(err, "helper: partial %q", name)
	}
	return pongo2.AsSafeValue(out), nil
}
