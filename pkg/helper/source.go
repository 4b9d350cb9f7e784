package helper

import (
	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-pongoview/pkg/view"
)

// Source is anything a renderer can look helpers up in.
type Source interface {
	Has(name string) bool
	Get(name string, opts map[string]any) (Helper, error)
}

// Chain consults its sources in order; the first source that has a name
// supplies it.
type Chain []Source

func (c Chain) Has(name string) bool {
	for _, src := range c {
		if src != nil && src.Has(name) {
			return true
		}
	}
	return false
}

func (c Chain) Get(name string, opts map[string]any) (Helper, error) {
	for _, src := range c {
		if src == nil || !src.Has(name) {
			continue
		}
		return src.Get(name, opts)
	}
	return nil, errors.Mark(errors.Newf("helper: %q not found in chain", name), ErrNotFound)
}

// Bind returns a view of the registry whose lookups hand RendererBinder
// helpers a copy bound to renderer. The registry itself is not modified.
func (r *Registry) Bind(renderer view.Renderer) Source {
	return boundSource{registry: r, renderer: renderer}
}

type boundSource struct {
	registry *Registry
	renderer view.Renderer
}

func (b boundSource) Has(name string) bool {
	return b.registry.Has(name)
}

func (b boundSource) Get(name string, opts map[string]any) (Helper, error) {
	h, err := b.registry.Get(name, opts)
	if err != nil {
		return nil, err
	}
	if binder, ok := h.(RendererBinder); ok && b.renderer != nil {
		return binder.BindRenderer(b.renderer), nil
	}
	return h, nil
}
